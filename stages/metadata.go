package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"clipforge/providers"
	"clipforge/types"
)

// GenerateMetadata produces the SEO document written alongside the video:
// title, description, tags merged with the configured defaults, and
// thumbnail suggestions.
func GenerateMetadata(ctx context.Context, env Env, script *types.Script, research *types.ResearchBundle) (*types.Metadata, string, error) {
	mc := env.Cfg.Metadata

	facts := research.KeyFacts
	if len(facts) > 8 {
		facts = facts[:8]
	}
	resp, err := env.complete(ctx, providers.CompleteRequest{
		Prompt: fmt.Sprintf("You are a video SEO expert. Generate metadata for a tech video.\n\nTITLE: %s\nTOPIC: %s\nKEY FACTS:\n- %s\n\nReturn JSON: { \"title\": \"...(max %d chars)\", \"description\": \"...(300-500 words)\", \"tags\": [...up to %d tags], \"thumbnail_suggestions\": [\"...\", \"...\", \"...\"] }\nReturn ONLY valid JSON.",
			script.Title, script.Topic, strings.Join(facts, "\n- "), mc.TitleMaxChars, mc.MaxTags),
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, "", err
	}

	meta := &types.Metadata{Title: script.Title, Category: mc.Category}
	if raw, jerr := ExtractJSON(resp); jerr == nil {
		var data struct {
			Title                string   `json:"title"`
			Description          string   `json:"description"`
			Tags                 []string `json:"tags"`
			ThumbnailSuggestions []string `json:"thumbnail_suggestions"`
		}
		if json.Unmarshal([]byte(raw), &data) == nil {
			if data.Title != "" {
				meta.Title = data.Title
			}
			meta.Description = data.Description
			meta.Tags = data.Tags
			meta.ThumbnailSuggestions = data.ThumbnailSuggestions
		}
	}
	if meta.Description == "" {
		meta.Description = "Video about " + script.Topic
	}
	if len(meta.Title) > mc.TitleMaxChars && mc.TitleMaxChars > 0 {
		meta.Title = meta.Title[:mc.TitleMaxChars]
	}
	meta.Tags = mergeTags(meta.Tags, mc.DefaultTags, mc.MaxTags)

	path := filepath.Join(env.RunDir, "metadata.json")
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, "", fmt.Errorf("write metadata: %w", err)
	}

	log.Printf("[Metadata] %q, %d tags", meta.Title, len(meta.Tags))
	return meta, path, nil
}

// mergeTags appends defaults the model did not produce, dedupes
// case-insensitively, and caps the list.
func mergeTags(tags, defaults []string, max int) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, t := range append(append([]string{}, tags...), defaults...) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, t)
	}
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
