package db

// FieldFilter is an equality pre-filter on one indexed field. Tag fields
// compare Value exactly, numeric fields compare Number.
type FieldFilter struct {
	Field   string
	Value   string
	Numeric bool
	Number  float64
}

// KNNQuery is the input for exact vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      []FieldFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 full-text search on one TEXT field.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Filters      []FieldFilter
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
