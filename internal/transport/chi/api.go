package chi

import (
	"time"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeItemNotFound        ErrorCode = "item_not_found"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrorCodeEmbeddingProvider   ErrorCode = "embedding_provider_error"
	ErrorCodeWebSearch           ErrorCode = "web_search_unavailable"
	ErrorCodeInternal            ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// Localized is a bilingual value.
type Localized struct {
	Arabic  string `json:"ar,omitempty"`
	English string `json:"en,omitempty"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query          string            `json:"query"`
	Limit          *int              `json:"limit,omitempty"`
	ScoreThreshold *float64          `json:"score_threshold,omitempty"`
	Filters        map[string]string `json:"filters,omitempty"`
}

// Item is the public representation of a catalog item.
type Item struct {
	ID          string    `json:"id"`
	Name        Localized `json:"name"`
	Description Localized `json:"description"`
	Color       Localized `json:"color"`
	Material    string    `json:"material,omitempty"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ImagePath   string    `json:"image_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoredItem is an item with its rerank score.
type ScoredItem struct {
	Item
	Score float64 `json:"score"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results        []ScoredItem `json:"results"`
	RelatedResults []Item       `json:"related_results"`
	Language       string       `json:"language"`
}

// CreateItemRequest is the body of POST /api/items.
type CreateItemRequest struct {
	Name        Localized `json:"name"`
	Description Localized `json:"description"`
	Color       Localized `json:"color"`
	Material    string    `json:"material"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
}

// CreateItemResponse carries the new item id.
type CreateItemResponse struct {
	ID string `json:"id"`
}

// CreateTransactionRequest is the body of POST /api/transactions.
type CreateTransactionRequest struct {
	UserID string   `json:"user_id"`
	Items  []string `json:"items"`
}

// CreateTransactionResponse carries the new transaction id.
type CreateTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

// RelatedItemsResponse lists co-purchased items.
type RelatedItemsResponse struct {
	RelatedItems []Item `json:"related_items"`
}

// WebResult is one external listing.
type WebResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// WebSearchResponse lists external listings for an item.
type WebSearchResponse struct {
	RelatedItems []WebResult `json:"related_items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
