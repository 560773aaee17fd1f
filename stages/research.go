package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"clipforge/providers"
	"clipforge/types"
)

const (
	queryCount  = 4
	factSources = 8
	sourceChars = 1500
)

// Research turns a topic into a research bundle: LLM-generated search
// queries, web search results, fetched page content for the top hits, and an
// LLM fact-extraction pass over the material.
func Research(ctx context.Context, env Env, topic string) (*types.ResearchBundle, error) {
	log.Printf("[Research] topic: %s", topic)

	queries, err := generateQueries(ctx, env, topic)
	if err != nil {
		return nil, err
	}

	search, err := env.Registry.Search(env.Cfg.Search.Provider)
	if err != nil {
		return nil, err
	}

	var findings []types.ResearchFinding
	seen := make(map[string]bool)
	for _, q := range queries {
		results, err := searchCached(ctx, env, search, q)
		if err != nil {
			log.Printf("[Research] search %q failed: %v", q, err)
			continue
		}
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			findings = append(findings, types.ResearchFinding{
				Title:          r.Title,
				URL:            r.URL,
				Snippet:        r.Snippet,
				RelevanceScore: 1.0 - float64(r.Position)*0.1,
			})
		}
	}
	if len(findings) == 0 {
		return nil, providers.Fatal("research", fmt.Errorf("no search results for %q", topic))
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RelevanceScore > findings[j].RelevanceScore
	})
	top := findings
	if n := env.Cfg.Search.TopPagesToFetch; len(top) > n {
		top = top[:n]
	}
	fetchPages(ctx, env, top)

	return extractFacts(ctx, env, topic, queries[0], top)
}

func generateQueries(ctx context.Context, env Env, topic string) ([]string, error) {
	resp, err := env.complete(ctx, providers.CompleteRequest{
		Prompt: fmt.Sprintf("Generate %d targeted search queries to research this topic for a tech video: %q\n\nReturn ONLY a JSON array of strings.",
			queryCount, topic),
		MaxTokens: 512,
	})
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(resp)
	if err == nil {
		var queries []string
		if json.Unmarshal([]byte(raw), &queries) == nil && len(queries) > 0 {
			if len(queries) > queryCount {
				queries = queries[:queryCount]
			}
			return queries, nil
		}
	}
	// Malformed query list is not worth failing the run over.
	return []string{topic, topic + " announcement", topic + " review"}, nil
}

func searchCached(ctx context.Context, env Env, search providers.Search, query string) ([]providers.SearchResult, error) {
	params := map[string]interface{}{"query": query, "max_results": env.Cfg.Search.MaxResults}
	data, _, err := env.Caller.Call(ctx, string(providers.CapSearch), search.Name(), params, "application/json", func(ctx context.Context) ([]byte, error) {
		results, err := search.Search(ctx, query, env.Cfg.Search.MaxResults)
		if err != nil {
			return nil, err
		}
		return json.Marshal(results)
	})
	if err != nil {
		return nil, err
	}
	var results []providers.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return results, nil
}

// fetchPages fills in FullContent for each finding with a bounded worker
// pool. Fetch failures leave the finding with its snippet only.
func fetchPages(ctx context.Context, env Env, findings []types.ResearchFinding) {
	fetcher, err := env.Registry.PageFetcher("readability")
	if err != nil {
		log.Printf("[Research] no page fetcher registered, using snippets only")
		return
	}

	workers := env.Cfg.Search.Workers
	if workers <= 0 {
		workers = 4
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	for i := range findings {
		wg.Add(1)
		go func(f *types.ResearchFinding) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			params := map[string]interface{}{"url": f.URL}
			data, _, err := env.Caller.Call(ctx, string(providers.CapPageFetch), fetcher.Name(), params, "text/plain", func(ctx context.Context) ([]byte, error) {
				text, err := fetcher.Fetch(ctx, f.URL)
				if err != nil {
					return nil, err
				}
				return []byte(text), nil
			})
			if err != nil {
				log.Printf("[Research] fetch failed %s: %v", f.URL, err)
				return
			}
			f.FullContent = string(data)
		}(&findings[i])
	}
	wg.Wait()
}

func extractFacts(ctx context.Context, env Env, topic, query string, findings []types.ResearchFinding) (*types.ResearchBundle, error) {
	var sources strings.Builder
	for i, f := range findings {
		if i >= factSources {
			break
		}
		content := f.FullContent
		if content == "" {
			content = f.Snippet
		}
		if len(content) > sourceChars {
			content = content[:sourceChars]
		}
		fmt.Fprintf(&sources, "SOURCE: %s\nURL: %s\n%s\n---\n\n", f.Title, f.URL, content)
	}

	resp, err := env.complete(ctx, providers.CompleteRequest{
		Prompt: fmt.Sprintf("Researching %q for a tech video.\n\nSources:\n%s\nReturn JSON: { \"key_facts\": [...], \"structured_summary\": \"...\" }\n8-15 specific key_facts. Return ONLY valid JSON.",
			topic, sources.String()),
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, err
	}

	bundle := &types.ResearchBundle{Topic: topic, QueryUsed: query, Findings: findings}
	raw, jerr := ExtractJSON(resp)
	if jerr == nil {
		var extracted struct {
			KeyFacts          []string `json:"key_facts"`
			StructuredSummary string   `json:"structured_summary"`
		}
		if json.Unmarshal([]byte(raw), &extracted) == nil {
			bundle.KeyFacts = extracted.KeyFacts
			bundle.StructuredSummary = extracted.StructuredSummary
		}
	}
	if len(bundle.KeyFacts) == 0 {
		for i, f := range findings {
			if i >= factSources {
				break
			}
			bundle.KeyFacts = append(bundle.KeyFacts, f.Snippet)
		}
		bundle.StructuredSummary = "Research on: " + topic
	}
	for _, f := range findings {
		if f.FullContent != "" {
			bundle.RelevantURLs = append(bundle.RelevantURLs, f.URL)
		}
	}

	log.Printf("[Research] %d findings, %d key facts", len(bundle.Findings), len(bundle.KeyFacts))
	return bundle, nil
}
