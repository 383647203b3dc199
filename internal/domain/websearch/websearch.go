// Package websearch holds results returned by the external web search provider.
package websearch

// Result is one page returned by a web search.
type Result struct {
	Title   string
	Content string
	URL     string
}
