package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type searxngResponse struct {
	Query           string   `json:"query"`
	NumberOfResults int      `json:"number_of_results"`
	Results         []Result `json:"results"`
}

// SearxNG queries a SearxNG instance through its JSON API.
type SearxNG struct {
	opts options
}

func NewSearxNG(baseURL string, opts ...Option) *SearxNG {
	o := buildOptions(options{}, append([]Option{WithEndpoint(baseURL)}, opts...))
	return &SearxNG{opts: o}
}

func (s *SearxNG) Search(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("format", "json")
	values.Set("safesearch", "0")
	values.Set("categories", "general")
	if s.opts.language != "" {
		values.Set("language", s.opts.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.endpoint+"/search?"+values.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build searxng request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.opts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query searxng: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("searxng http status=%d", resp.StatusCode)
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode searxng response: %w", err)
	}

	results := parsed.Results
	if len(results) > s.opts.maxResults {
		results = results[:s.opts.maxResults]
	}
	return formatResults(q, results), nil
}
