package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ItemID is the {item_id} path parameter.
type ItemID = string

// ServerInterface is the set of API operations.
type ServerInterface interface {
	// POST /api/search
	Search(w http.ResponseWriter, r *http.Request)
	// POST /api/items
	CreateItem(w http.ResponseWriter, r *http.Request)
	// GET /api/items/{item_id}
	GetItem(w http.ResponseWriter, r *http.Request, itemID ItemID)
	// POST /api/transactions
	CreateTransaction(w http.ResponseWriter, r *http.Request)
	// GET /api/related_transaction/{item_id}
	RelatedByTransaction(w http.ResponseWriter, r *http.Request, itemID ItemID)
	// POST /api/web_search/{item_id}
	WebSearch(w http.ResponseWriter, r *http.Request, itemID ItemID)
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// HandlerOptions configure route registration.
type HandlerOptions struct {
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

type wrapper struct {
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (wr *wrapper) withItemID(fn func(http.ResponseWriter, *http.Request, ItemID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var itemID ItemID
		err := runtime.BindStyledParameterWithOptions("simple", "item_id", chi.URLParam(r, "item_id"), &itemID,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err == nil && itemID == "" {
			err = fmt.Errorf("must not be empty")
		}
		if err != nil {
			wr.errorHandler(w, r, &InvalidParamFormatError{ParamName: "item_id", Err: err})
			return
		}
		fn(w, r, itemID)
	}
}

// RegisterHandlers mounts every operation of si on r.
func RegisterHandlers(r chi.Router, si ServerInterface, opts HandlerOptions) {
	wr := &wrapper{errorHandler: opts.ErrorHandlerFunc}
	if wr.errorHandler == nil {
		wr.errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	r.Post("/api/search", si.Search)
	r.Post("/api/items", si.CreateItem)
	r.Get("/api/items/{item_id}", wr.withItemID(si.GetItem))
	r.Post("/api/transactions", si.CreateTransaction)
	r.Get("/api/related_transaction/{item_id}", wr.withItemID(si.RelatedByTransaction))
	r.Post("/api/web_search/{item_id}", wr.withItemID(si.WebSearch))
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
}
