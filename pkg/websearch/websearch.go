// Package websearch provides the public web search backends behind the
// web_search tool, plus an optional result cache.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrUnknownProvider = errors.New("unknown search provider")
)

const (
	ProviderStub       = "stub"
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSearxNG    = "searxng"

	CacheNone    = "none"
	CacheRedis   = "redis"
	CacheUpstash = "upstash"
)

// Provider runs one query and returns plain text for the model.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
}

type Config struct {
	Provider   string        `split_words:"true" default:"stub"`
	BaseURL    string        `split_words:"true"`
	Language   string        `split_words:"true"`
	MaxResults int           `split_words:"true" default:"5"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
	UserAgent  string        `split_words:"true" default:"Mozilla/5.0 (compatible; helpdesk-router/1.0)"`
	Cache      string        `split_words:"true" default:"none"`
	CacheTTL   time.Duration `split_words:"true" default:"1h"`
}

// Result is one hit returned by a backend.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

// New builds the configured provider; a non-nil cache wraps it.
func New(cfg Config, cache Cache) (Provider, error) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderStub:
		p = Stub{}
	case ProviderDuckDuckGo:
		p = NewDuckDuckGo(
			WithEndpoint(cfg.BaseURL),
			WithMaxResults(cfg.MaxResults),
			WithTimeout(cfg.Timeout),
			WithUserAgent(cfg.UserAgent),
		)
	case ProviderSearxNG:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("%w: searxng requires a base url", ErrUnknownProvider)
		}
		p = NewSearxNG(cfg.BaseURL,
			WithMaxResults(cfg.MaxResults),
			WithTimeout(cfg.Timeout),
			WithLanguage(cfg.Language),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cache != nil {
		p = NewCached(p, cache, cfg.CacheTTL)
	}
	return p, nil
}

// Stub returns a canned line without network access.
type Stub struct{}

func (Stub) Search(_ context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return "[WebSearch] Public info for: " + q, nil
}

func formatResults(query string, results []Result) string {
	if len(results) == 0 {
		return "No results found for: " + query
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n%s", i+1, strings.TrimSpace(r.Title), strings.TrimSpace(r.URL))
		if content := strings.TrimSpace(r.Content); content != "" {
			b.WriteString("\n")
			b.WriteString(content)
		}
	}
	return b.String()
}
