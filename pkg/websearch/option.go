package websearch

import (
	"net/http"
	"strings"
	"time"
)

type options struct {
	endpoint   string
	language   string
	userAgent  string
	maxResults int
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*options)

func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		if trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/"); trimmed != "" {
			o.endpoint = trimmed
		}
	}
}

func WithLanguage(language string) Option {
	return func(o *options) {
		o.language = strings.TrimSpace(language)
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			o.userAgent = trimmed
		}
	}
}

func WithMaxResults(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxResults = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func buildOptions(defaults options, opts []Option) options {
	o := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.maxResults <= 0 {
		o.maxResults = 5
	}
	if o.timeout <= 0 {
		o.timeout = 10 * time.Second
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}
