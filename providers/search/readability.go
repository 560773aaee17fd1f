package search

import (
	"context"
	"fmt"
	"time"

	readability "github.com/go-shiori/go-readability"

	"clipforge/providers"
)

const maxPageChars = 12000

// Readability extracts readable article text from a URL for the research
// stage.
type Readability struct {
	timeout time.Duration
}

// NewReadability builds the page fetcher with a per-fetch timeout.
func NewReadability(timeout time.Duration) *Readability {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Readability{timeout: timeout}
}

func (r *Readability) Name() string { return "readability" }

// Fetch downloads and extracts the page's main text, truncated to a bound
// that keeps LLM prompts affordable.
func (r *Readability) Fetch(ctx context.Context, pageURL string) (string, error) {
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	article, err := readability.FromURL(pageURL, timeout)
	if err != nil {
		return "", providers.Transient("fetch page", fmt.Errorf("%s: %w", pageURL, err))
	}
	text := article.TextContent
	if len(text) > maxPageChars {
		text = text[:maxPageChars]
	}
	if text == "" {
		return "", providers.Fatal("fetch page", fmt.Errorf("%s: no readable content", pageURL))
	}
	return text, nil
}
