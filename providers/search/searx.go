package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"clipforge/providers"
)

// Searx adapts a SearxNG instance's JSON API to the Search capability.
type Searx struct {
	baseURL string
	client  *http.Client
}

// NewSearx builds the adapter for a SearxNG base URL.
func NewSearx(baseURL string) *Searx {
	return &Searx{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Searx) Name() string { return "searx" }

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries the instance's /search endpoint with JSON output.
func (s *Searx) Search(ctx context.Context, query string, maxResults int) ([]providers.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", s.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providers.Fatal("searx search", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, providers.Transient("searx search", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Transient("searx search", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.ClassifyHTTP("searx search", resp.StatusCode, string(body))
	}

	var parsed searxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.Fatal("searx search", fmt.Errorf("decode response: %w", err))
	}

	results := make([]providers.SearchResult, 0, maxResults)
	for i, r := range parsed.Results {
		if i >= maxResults {
			break
		}
		results = append(results, providers.SearchResult{
			Title:    r.Title,
			URL:      r.URL,
			Snippet:  r.Content,
			Position: i,
		})
	}
	return results, nil
}
