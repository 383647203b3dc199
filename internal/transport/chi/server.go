// Package chi is the HTTP transport of the souq API.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/logger"
	healthuc "github.com/kailas-cloud/souq/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SearchDefaults fill in optional search request parameters.
type SearchDefaults struct {
	Limit          int
	MaxLimit       int
	ScoreThreshold float64
}

// Services are the use cases behind the API.
type Services struct {
	Search       SearchService
	Items        ItemService
	Transactions TransactionService
	CoPurchase   CoPurchaseService
	WebSearch    WebSearchService
	Health       HealthService
}

// Server implements ServerInterface.
type Server struct {
	svc           Services
	defaults      SearchDefaults
	staticPrefix  string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(svc Services, defaults SearchDefaults, logger *zap.Logger) *Server {
	if defaults.Limit <= 0 {
		defaults.Limit = query.DefaultLimit
	}
	if defaults.MaxLimit <= 0 {
		defaults.MaxLimit = query.DefaultMaxLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, defaults: defaults, staticPrefix: "/static", logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidTransaction, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorCodeItemNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		stageErrorHandler,
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrWebSearchUnavailable, http.StatusBadGateway, ErrorCodeWebSearch),
	}
	return s
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	q, err := s.queryFromRequest(req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.svc.Search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.searchToResponse(res))
}

// CreateItem handles POST /api/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !s.decode(w, r, &req) {
		return
	}

	it, err := s.svc.Items.Create(r.Context(), domitem.Input{
		Name:        domitem.Localized(req.Name),
		Description: domitem.Localized(req.Description),
		Color:       domitem.Localized(req.Color),
		Material:    req.Material,
		Category:    req.Category,
		Price:       req.Price,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/items/"+it.ID())
	writeJSON(w, http.StatusCreated, CreateItemResponse{ID: it.ID()})
}

// GetItem handles GET /api/items/{item_id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request, itemID ItemID) {
	it, err := s.svc.Items.Get(r.Context(), itemID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.itemToResponse(&it))
}

// CreateTransaction handles POST /api/transactions.
func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !s.decode(w, r, &req) {
		return
	}

	id, err := s.svc.Transactions.Create(r.Context(), req.UserID, req.Items)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateTransactionResponse{TransactionID: id})
}

// RelatedByTransaction handles GET /api/related_transaction/{item_id}.
func (s *Server) RelatedByTransaction(w http.ResponseWriter, r *http.Request, itemID ItemID) {
	items, err := s.svc.CoPurchase.Related(r.Context(), itemID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RelatedItemsResponse{RelatedItems: s.itemsToResponse(items)})
}

// WebSearch handles POST /api/web_search/{item_id}.
func (s *Server) WebSearch(w http.ResponseWriter, r *http.Request, itemID ItemID) {
	results, err := s.svc.WebSearch.ForItem(r.Context(), itemID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]WebResult, len(results))
	for i, res := range results {
		out[i] = WebResult{Title: res.Title, Content: res.Content, URL: res.URL}
	}
	writeJSON(w, http.StatusOK, WebSearchResponse{RelatedItems: out})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) queryFromRequest(req SearchRequest) (query.Query, error) {
	limit := s.defaults.Limit
	if req.Limit != nil {
		limit = *req.Limit
	}
	threshold := s.defaults.ScoreThreshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}

	filters, err := filter.FromMap(req.Filters)
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	q, err := query.New(strings.TrimSpace(req.Query), limit, threshold, filters, s.defaults.MaxLimit)
	if err != nil {
		return query.Query{}, err //nolint:wrapcheck // wraps domain.ErrInvalidQuery
	}
	return q, nil
}

func (s *Server) searchToResponse(res result.SearchResult) SearchResponse {
	out := SearchResponse{
		Results:        make([]ScoredItem, len(res.Results)),
		RelatedResults: s.itemsToResponse(res.RelatedResults),
		Language:       string(res.Language),
	}
	for i := range res.Results {
		out.Results[i] = ScoredItem{
			Item:  s.itemToResponse(&res.Results[i].Item),
			Score: res.Results[i].Score,
		}
	}
	return out
}

func (s *Server) itemsToResponse(items []domitem.Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = s.itemToResponse(&items[i])
	}
	return out
}

func (s *Server) itemToResponse(it *domitem.Item) Item {
	return Item{
		ID:          it.ID(),
		Name:        Localized(it.Name()),
		Description: Localized(it.Description()),
		Color:       Localized(it.Color()),
		Material:    it.Material(),
		Category:    it.Category(),
		Price:       it.Price(),
		ImagePath:   it.ImagePath(s.staticPrefix),
		CreatedAt:   it.CreatedAt(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidItem,
		domain.ErrInvalidTransaction,
		domain.ErrItemNotFound,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrProviderUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrWebSearchUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// validationMessage keeps the validation detail, which never carries internals.
func validationMessage(err error) string {
	for _, s := range []error{domain.ErrInvalidQuery, domain.ErrInvalidItem, domain.ErrInvalidTransaction} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return ""
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// stageErrorHandler maps a failed pipeline stage to 502, or 504 when the
// stage timed out.
func stageErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var se *domain.StageError
	if !errors.As(err, &se) {
		return false
	}
	status := http.StatusBadGateway
	if se.Timeout() {
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, ErrorResponse{Code: ErrorCodeProviderUnavailable, Message: msg, Stage: string(se.Stage)})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))

	msg := safeDomainMessage(err)
	if detail := validationMessage(err); detail != "" {
		msg = detail
	}
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
