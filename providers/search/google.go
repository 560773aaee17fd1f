// Package search contains the web search and page-fetch provider adapters.
package search

import (
	"context"
	"errors"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"clipforge/providers"
)

// Google adapts the Google Custom Search JSON API to the Search capability.
type Google struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogle builds the adapter from an API key and engine ID.
func NewGoogle(ctx context.Context, apiKey, cx string) (*Google, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, providers.Fatal("google search init", err)
	}
	return &Google{svc: svc, cx: cx}, nil
}

func (g *Google) Name() string { return "google" }

// Search runs one query and maps results to the capability type.
func (g *Google) Search(ctx context.Context, query string, maxResults int) ([]providers.SearchResult, error) {
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 10
	}

	resp, err := g.svc.Cse.List().Q(query).Cx(g.cx).Num(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, providers.ClassifyHTTP("google search", apiErr.Code, apiErr.Message)
		}
		return nil, providers.Transient("google search", err)
	}

	results := make([]providers.SearchResult, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, providers.SearchResult{
			Title:    item.Title,
			URL:      item.Link,
			Snippet:  item.Snippet,
			Position: i,
		})
	}
	return results, nil
}
