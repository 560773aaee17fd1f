package stages

import (
	"regexp"
	"strings"

	"clipforge/types"
)

// Script narration embeds visual cues inline. Two forms are recognized:
//
//	[SCREENSHOT: https://url | focus text]   (focus text optional)
//	[VISUAL: description]
var (
	screenshotRe = regexp.MustCompile(`\[SCREENSHOT:\s*(https?://[^\]|]+)(?:\s*\|\s*([^\]]+))?\]`)
	visualRe     = regexp.MustCompile(`\[VISUAL:\s*([^\]]+)\]`)
	anyMarkerRe  = regexp.MustCompile(`\[(?:SCREENSHOT|VISUAL):[^\]]*\]`)
)

// ExtractMarkers pulls visual cue markers out of narration text, returning
// the markers in appearance order and the narration with markers stripped
// and whitespace collapsed.
func ExtractMarkers(narration, segmentID string) ([]types.VisualMarker, string) {
	var markers []types.VisualMarker
	for _, m := range screenshotRe.FindAllStringSubmatch(narration, -1) {
		marker := types.VisualMarker{
			Type:      "screenshot",
			URL:       strings.TrimSpace(m[1]),
			SegmentID: segmentID,
		}
		if m[2] != "" {
			marker.FocusText = strings.TrimSpace(m[2])
		}
		markers = append(markers, marker)
	}
	for _, m := range visualRe.FindAllStringSubmatch(narration, -1) {
		markers = append(markers, types.VisualMarker{
			Type:        "visual",
			Description: strings.TrimSpace(m[1]),
			SegmentID:   segmentID,
		})
	}

	clean := anyMarkerRe.ReplaceAllString(narration, "")
	return markers, strings.Join(strings.Fields(clean), " ")
}
