package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html"

// DuckDuckGo scrapes the keyless HTML endpoint.
type DuckDuckGo struct {
	opts options
}

func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	o := buildOptions(options{
		endpoint:  defaultDuckDuckGoEndpoint,
		userAgent: "Mozilla/5.0 (compatible; helpdesk-router/1.0)",
	}, opts)
	return &DuckDuckGo{opts: o}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}

	doc, err := d.fetch(ctx, q)
	if err != nil {
		return "", err
	}

	results := make([]Result, 0, d.opts.maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		results = append(results, Result{
			Title:   title,
			URL:     resolveDuckDuckGoLink(href),
			Content: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < d.opts.maxResults
	})

	return formatResults(q, results), nil
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string) (*goquery.Document, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.endpoint+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build duckduckgo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.opts.userAgent)

	resp, err := d.opts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http status=%d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo html: %w", err)
	}
	return doc, nil
}

// resolveDuckDuckGoLink unwraps /l/?uddg=<target> redirect links.
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
