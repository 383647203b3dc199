package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/domain/websearch"
	healthuc "github.com/kailas-cloud/souq/internal/usecase/health"
)

// --- Fakes ---

type fakeSearch struct {
	last query.Query
	res  result.SearchResult
	err  error
}

func (f *fakeSearch) Search(_ context.Context, q query.Query) (result.SearchResult, error) {
	f.last = q
	return f.res, f.err
}

type fakeItems struct {
	byID    map[string]domitem.Item
	created []domitem.Input
	err     error
}

func (f *fakeItems) Create(_ context.Context, in domitem.Input) (domitem.Item, error) {
	if f.err != nil {
		return domitem.Item{}, f.err
	}
	f.created = append(f.created, in)
	it, err := domitem.New("new-id", in, time.Now())
	if err != nil {
		return domitem.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	return it, nil
}

func (f *fakeItems) Get(_ context.Context, id string) (domitem.Item, error) {
	if it, ok := f.byID[id]; ok {
		return it, nil
	}
	return domitem.Item{}, domain.ErrItemNotFound
}

type fakeTransactions struct {
	userID string
	items  []string
	err    error
}

func (f *fakeTransactions) Create(_ context.Context, userID string, itemIDs []string) (string, error) {
	f.userID, f.items = userID, itemIDs
	return "tx-1", f.err
}

type fakeCoPurchase struct {
	items []domitem.Item
	err   error
}

func (f *fakeCoPurchase) Related(_ context.Context, _ string) ([]domitem.Item, error) {
	return f.items, f.err
}

type fakeWeb struct {
	results []websearch.Result
	err     error
}

func (f *fakeWeb) ForItem(_ context.Context, _ string) ([]websearch.Result, error) {
	return f.results, f.err
}

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

type testAPI struct {
	search *fakeSearch
	items  *fakeItems
	txs    *fakeTransactions
	copurc *fakeCoPurchase
	web    *fakeWeb
	health *fakeHealth
	router http.Handler
}

func mustItem(t *testing.T, id, english string) domitem.Item {
	t.Helper()
	it, err := domitem.New(id, domitem.Input{
		Name:     domitem.Localized{English: english, Arabic: "مطرقة"},
		Category: "tools",
		Price:    9.5,
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return it
}

func newTestAPI(t *testing.T, staticDir string) *testAPI {
	t.Helper()
	hammer := mustItem(t, "hammer", "Hammer")
	api := &testAPI{
		search: &fakeSearch{},
		items:  &fakeItems{byID: map[string]domitem.Item{"hammer": hammer}},
		txs:    &fakeTransactions{},
		copurc: &fakeCoPurchase{},
		web:    &fakeWeb{},
		health: &fakeHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{
			"redis": healthuc.CheckOK,
		}}},
	}
	server := NewServer(Services{
		Search:       api.search,
		Items:        api.items,
		Transactions: api.txs,
		CoPurchase:   api.copurc,
		WebSearch:    api.web,
		Health:       api.health,
	}, SearchDefaults{Limit: 10, MaxLimit: 50, ScoreThreshold: 0.3}, nil)
	api.router = NewRouter(server, RouterOptions{StaticDir: staticDir})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

// --- Search ---

func TestSearch_Success(t *testing.T) {
	api := newTestAPI(t, "")
	hammer := api.items.byID["hammer"]
	api.search.res = result.SearchResult{
		Results:        []result.ScoredCandidate{{Item: hammer, Score: 0.87}},
		RelatedResults: []domitem.Item{mustItem(t, "saw", "Saw")},
		Language:       language.English,
	}

	rr := api.do(t, "POST", "/api/search", map[string]any{
		"query":   "  hammer  ",
		"filters": map[string]string{"category": "tools"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	resp := decodeBody[SearchResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].ID != "hammer" || resp.Results[0].Score != 0.87 {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.Results[0].ImagePath != "/static/Hammer.jpg" {
		t.Errorf("image path = %q", resp.Results[0].ImagePath)
	}
	if len(resp.RelatedResults) != 1 || resp.RelatedResults[0].ID != "saw" {
		t.Errorf("related = %+v", resp.RelatedResults)
	}
	if resp.Language != "en" {
		t.Errorf("language = %q", resp.Language)
	}

	q := api.search.last
	if q.Text() != "hammer" {
		t.Errorf("query text must be trimmed, got %q", q.Text())
	}
	if q.Limit() != 10 || q.ScoreThreshold() != 0.3 {
		t.Errorf("defaults not applied: limit=%d threshold=%v", q.Limit(), q.ScoreThreshold())
	}
	if q.Filters().Len() != 1 {
		t.Errorf("filters = %d", q.Filters().Len())
	}
}

func TestSearch_EmptyBucketsEncodeAsArrays(t *testing.T) {
	api := newTestAPI(t, "")
	api.search.res = result.SearchResult{Language: language.Arabic}

	rr := api.do(t, "POST", "/api/search", map[string]any{"query": "مسمار", "limit": 3, "score_threshold": 0.5})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"results":[]`)) ||
		!bytes.Contains(rr.Body.Bytes(), []byte(`"related_results":[]`)) {
		t.Errorf("body = %s", rr.Body)
	}
	if api.search.last.Limit() != 3 || api.search.last.ScoreThreshold() != 0.5 {
		t.Error("explicit parameters must be used")
	}
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
		code ErrorCode
	}{
		{"malformed json", "{", ErrorCodeBadRequest},
		{"blank query", map[string]any{"query": "   "}, ErrorCodeValidationFailed},
		{"limit above max", map[string]any{"query": "x", "limit": 51}, ErrorCodeValidationFailed},
		{"zero limit", map[string]any{"query": "x", "limit": 0}, ErrorCodeValidationFailed},
		{"threshold above one", map[string]any{"query": "x", "score_threshold": 1.5}, ErrorCodeValidationFailed},
		{"unknown filter", map[string]any{"query": "x", "filters": map[string]string{"size": "xl"}}, ErrorCodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := newTestAPI(t, "").do(t, "POST", "/api/search", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := decodeBody[ErrorResponse](t, rr); got.Code != tc.code {
				t.Errorf("code = %s, want %s", got.Code, tc.code)
			}
		})
	}
}

func TestSearch_StageFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"embedding rejected", domain.NewStageError(domain.StageEmbedQuery, domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, "embed_query"},
		{"lexical timeout", domain.NewStageError(domain.StageLexical, context.DeadlineExceeded),
			http.StatusGatewayTimeout, "lexical"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t, "")
			api.search.err = tc.err

			rr := api.do(t, "POST", "/api/search", map[string]any{"query": "hammer"})
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			got := decodeBody[ErrorResponse](t, rr)
			if got.Code != ErrorCodeProviderUnavailable || got.Stage != tc.stage {
				t.Errorf("body = %+v", got)
			}
		})
	}
}

func TestSearch_InternalErrorDoesNotLeak(t *testing.T) {
	api := newTestAPI(t, "")
	api.search.err = errors.New("dial tcp 10.0.0.7:6379: connection refused")

	rr := api.do(t, "POST", "/api/search", map[string]any{"query": "hammer"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("10.0.0.7")) {
		t.Errorf("internal detail leaked: %s", rr.Body)
	}
}

// --- Items ---

func TestCreateItem(t *testing.T) {
	api := newTestAPI(t, "")
	rr := api.do(t, "POST", "/api/items", map[string]any{
		"name":     map[string]string{"en": "Drill", "ar": "مثقاب"},
		"category": "tools",
		"price":    99,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if got := decodeBody[CreateItemResponse](t, rr); got.ID != "new-id" {
		t.Errorf("id = %q", got.ID)
	}
	if rr.Header().Get("Location") != "/api/items/new-id" {
		t.Errorf("location = %q", rr.Header().Get("Location"))
	}
	if in := api.items.created[0]; in.Name.Arabic != "مثقاب" || in.Price != 99 {
		t.Errorf("input = %+v", in)
	}
}

func TestCreateItem_Invalid(t *testing.T) {
	rr := newTestAPI(t, "").do(t, "POST", "/api/items", map[string]any{"category": "tools"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCreateItem_ProviderError(t *testing.T) {
	api := newTestAPI(t, "")
	api.items.err = fmt.Errorf("vectorize en text: %w", domain.ErrEmbeddingProviderError)

	rr := api.do(t, "POST", "/api/items", map[string]any{"name": map[string]string{"en": "x"}, "category": "c"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetItem(t *testing.T) {
	api := newTestAPI(t, "")

	rr := api.do(t, "GET", "/api/items/hammer", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody[Item](t, rr)
	if got.ID != "hammer" || got.Name.English != "Hammer" || got.ImagePath != "/static/Hammer.jpg" {
		t.Errorf("item = %+v", got)
	}

	rr = api.do(t, "GET", "/api/items/ghost", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Code != ErrorCodeItemNotFound {
		t.Errorf("code = %s", got.Code)
	}
}

// --- Transactions, co-purchase, web search ---

func TestCreateTransaction(t *testing.T) {
	api := newTestAPI(t, "")
	rr := api.do(t, "POST", "/api/transactions", map[string]any{"user_id": "u1", "items": []string{"hammer"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[CreateTransactionResponse](t, rr); got.TransactionID != "tx-1" {
		t.Errorf("id = %q", got.TransactionID)
	}
	if api.txs.userID != "u1" || len(api.txs.items) != 1 {
		t.Errorf("call = %q %v", api.txs.userID, api.txs.items)
	}

	api.txs.err = fmt.Errorf("%w: ghost", domain.ErrItemNotFound)
	if rr := api.do(t, "POST", "/api/transactions", map[string]any{"user_id": "u1", "items": []string{"ghost"}}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown item status = %d", rr.Code)
	}

	api.txs.err = fmt.Errorf("%w: user ID is required", domain.ErrInvalidTransaction)
	if rr := api.do(t, "POST", "/api/transactions", map[string]any{"items": []string{"hammer"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d", rr.Code)
	}
}

func TestRelatedByTransaction(t *testing.T) {
	api := newTestAPI(t, "")
	api.copurc.items = []domitem.Item{mustItem(t, "nails", "Nails")}

	rr := api.do(t, "GET", "/api/related_transaction/hammer", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody[RelatedItemsResponse](t, rr)
	if len(got.RelatedItems) != 1 || got.RelatedItems[0].ID != "nails" {
		t.Errorf("related = %+v", got.RelatedItems)
	}

	api.copurc.err = domain.ErrItemNotFound
	if rr := api.do(t, "GET", "/api/related_transaction/ghost", nil); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestWebSearch(t *testing.T) {
	api := newTestAPI(t, "")
	api.web.results = []websearch.Result{{Title: "Hammer", Content: "Steel", URL: "https://amazon.com/h"}}

	rr := api.do(t, "POST", "/api/web_search/hammer", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody[WebSearchResponse](t, rr)
	if len(got.RelatedItems) != 1 || got.RelatedItems[0].URL != "https://amazon.com/h" {
		t.Errorf("results = %+v", got.RelatedItems)
	}
}

func TestWebSearch_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %w", domain.ErrWebSearchUnavailable, domain.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("status 500: %w", domain.ErrWebSearchUnavailable), http.StatusBadGateway},
		{domain.ErrItemNotFound, http.StatusNotFound},
	}
	for _, tc := range tests {
		api := newTestAPI(t, "")
		api.web.err = tc.err
		if rr := api.do(t, "POST", "/api/web_search/hammer", nil); rr.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rr.Code, tc.status)
		}
	}
}

// --- Health, static, routing ---

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, "")
	rr := api.do(t, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[HealthResponse](t, rr); got.Status != "ok" || got.Checks["redis"] != "ok" {
		t.Errorf("health = %+v", got)
	}

	api.health.report = healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{
		"postgres": healthuc.CheckError,
	}}
	if rr := api.do(t, "GET", "/health", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	if rr := newTestAPI(t, "").do(t, "GET", "/metrics", nil); rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Hammer.jpg"), []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}
	api := newTestAPI(t, dir)

	rr := api.do(t, "GET", "/static/Hammer.jpg", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "jpeg" {
		t.Errorf("status = %d body = %q", rr.Code, rr.Body)
	}
	if rr := api.do(t, "GET", "/static/missing.jpg", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	rr := newTestAPI(t, "").do(t, "GET", "/health", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}
