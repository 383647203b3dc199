// Package websearch is a client for Tavily-compatible web search APIs.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/websearch"
	"github.com/kailas-cloud/souq/internal/metrics"
	"github.com/kailas-cloud/souq/internal/resilience"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 10
	defaultDepth      = "advanced"
	maxErrorBody      = 1 << 10
)

// executor runs a call under retry and circuit breaker policy.
type executor interface {
	Execute(ctx context.Context, op string, fn func(context.Context) error, classify resilience.Classifier) error
}

// Config holds web search client settings.
type Config struct {
	APIKey         string
	BaseURL        string
	IncludeDomains []string
	MaxResults     int
	SearchDepth    string
	// RatePerSec and Burst bound outbound requests; zero disables limiting.
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
	HTTPClient *http.Client
	Executor   executor
	Logger     *zap.Logger
}

// Client calls the /search endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	exec    executor
	logger  *zap.Logger
}

// NewClient creates a web search client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = defaultDepth
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSec > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: hc, limiter: limiter, exec: cfg.Executor, logger: logger}
}

type searchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	Topic          string   `json:"topic"`
	Days           int      `json:"days"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

// statusError carries a non-2xx provider response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d: %s", e.code, e.body) }

// Search returns web results for text. Failures wrap domain.ErrWebSearchUnavailable;
// a local rate limit wait that cannot finish before the deadline wraps
// domain.ErrRateLimited as well.
func (c *Client) Search(ctx context.Context, text string) ([]websearch.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("web search: %w", domain.ErrEmptyText)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, fmt.Errorf("web search: %w: %w: %w", domain.ErrWebSearchUnavailable, domain.ErrRateLimited, err)
	}

	body, err := json.Marshal(searchRequest{
		Query:          text,
		SearchDepth:    c.cfg.SearchDepth,
		Topic:          "general",
		Days:           30,
		MaxResults:     c.cfg.MaxResults,
		IncludeDomains: c.cfg.IncludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal web search request: %w", err)
	}

	var resp searchResponse
	call := func(ctx context.Context) error { return c.do(ctx, body, &resp) }
	if c.exec != nil {
		err = c.exec.Execute(ctx, "websearch", call, classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues("error").Inc()
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("web search: %w: %w: %w", domain.ErrWebSearchUnavailable, domain.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("web search: %w: %w", domain.ErrWebSearchUnavailable, err)
	}
	metrics.WebSearchRequestsTotal.WithLabelValues("success").Inc()

	out := make([]websearch.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, websearch.Result{Title: r.Title, Content: r.Content, URL: r.URL})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, body []byte, out *searchResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Warn("Web search provider rejected request",
			zap.Int("status", res.StatusCode),
			zap.String("body", string(raw)),
		)
		return &statusError{code: res.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classify(err error) resilience.Classification {
	var se *statusError
	if errors.As(err, &se) {
		transient := se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
		return resilience.Classification{Retryable: transient, RecordFailure: transient}
	}
	return resilience.Classification{Retryable: true, RecordFailure: true}
}
