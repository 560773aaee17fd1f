package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"clipforge/providers"
	"clipforge/types"
)

const scriptSystem = `You are an expert video scriptwriter specialising in tech content.
Write in a %s style for %s.
%s. %s.
Embed visual cues using [SCREENSHOT: https://url | focus_text] and [VISUAL: description] markers.
The focus_text should be 3-5 words of exact text found on that webpage that matches the narration; it is used to scroll to the right part of the page.
Include at least one visual marker every 8-10 seconds of audio.
Whenever you read off a benchmark result, pricing figure, or specific comparison fact, insert a [SCREENSHOT: url | exact_table_header] marker for it.
Target word count: %d words (~%d minutes at %d wpm).
Return ONLY valid JSON, no markdown fences.`

const scriptUser = `Create a video script about: %s

RESEARCH SUMMARY:
%s

KEY FACTS:
%s

RELEVANT URLS TO SCREENSHOT:
%s

Return JSON:
{
  "title": "engaging video title",
  "sections": [
    {
      "section_id": "intro",
      "section_type": "intro",
      "title": "Section Title",
      "narration_text": "Full narration with [SCREENSHOT: url | exact text to find] markers"
    }
  ]
}

Include %d-%d sections. Types: %s.`

// GenerateScript asks the LLM for a sectioned script, then extracts the
// inline visual markers and estimates per-segment narration time from word
// count.
func GenerateScript(ctx context.Context, env Env, research *types.ResearchBundle) (*types.Script, error) {
	sc := env.Cfg.Script
	persona := sc.Persona
	targetWords := sc.TargetMinutes * sc.WordsPerMinute

	var facts strings.Builder
	for _, f := range research.KeyFacts {
		fmt.Fprintf(&facts, "- %s\n", f)
	}
	urls := research.RelevantURLs
	if len(urls) > 10 {
		urls = urls[:10]
	}

	resp, err := env.complete(ctx, providers.CompleteRequest{
		System: fmt.Sprintf(scriptSystem,
			persona.Tone, persona.Audience, persona.Style, persona.OpenerHook,
			targetWords, sc.TargetMinutes, sc.WordsPerMinute),
		Prompt: fmt.Sprintf(scriptUser,
			research.Topic, research.StructuredSummary, facts.String(),
			strings.Join(urls, "\n"),
			sc.MinSections, sc.MaxSections, strings.Join(sc.SectionTypes, ", ")),
	})
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(resp)
	if err != nil {
		return nil, providers.Fatal("script", fmt.Errorf("no JSON in script response: %w", err))
	}
	var data struct {
		Title    string `json:"title"`
		Sections []struct {
			SectionID     string `json:"section_id"`
			SectionType   string `json:"section_type"`
			Title         string `json:"title"`
			NarrationText string `json:"narration_text"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, providers.Fatal("script", fmt.Errorf("parse script JSON: %w", err))
	}
	if len(data.Sections) == 0 {
		return nil, providers.Fatal("script", fmt.Errorf("script has no sections"))
	}

	script := &types.Script{Topic: research.Topic, Title: data.Title}
	if script.Title == "" {
		script.Title = research.Topic
	}
	for i, raw := range data.Sections {
		id := raw.SectionID
		if id == "" {
			id = fmt.Sprintf("s%d", i)
		}
		markers, clean := ExtractMarkers(raw.NarrationText, id)
		words := len(strings.Fields(clean))
		secs := float64(words) / float64(sc.WordsPerMinute) * 60

		segType := raw.SectionType
		if segType == "" {
			segType = "main"
		}
		script.Segments = append(script.Segments, types.ScriptSegment{
			ID:            id,
			Type:          segType,
			Title:         raw.Title,
			NarrationText: clean,
			Markers:       markers,
			EstimatedSecs: secs,
		})
		script.EstimatedSecs += secs
	}

	log.Printf("[Script] %q: %d sections, ~%.1fmin", script.Title, len(script.Segments), script.EstimatedSecs/60)
	return script, nil
}
