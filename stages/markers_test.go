package stages

import (
	"reflect"
	"testing"

	"clipforge/types"
)

func TestExtractMarkers(t *testing.T) {
	cases := []struct {
		name      string
		narration string
		markers   []types.VisualMarker
		clean     string
	}{
		{
			name:      "no markers",
			narration: "Just plain narration here.",
			clean:     "Just plain narration here.",
		},
		{
			name:      "screenshot with focus text",
			narration: "Look at this. [SCREENSHOT: https://example.com/pricing | Pro plan pricing] Impressive numbers.",
			markers: []types.VisualMarker{
				{Type: "screenshot", URL: "https://example.com/pricing", FocusText: "Pro plan pricing", SegmentID: "s1"},
			},
			clean: "Look at this. Impressive numbers.",
		},
		{
			name:      "screenshot without focus text",
			narration: "[SCREENSHOT: https://example.com/docs] The docs explain it.",
			markers: []types.VisualMarker{
				{Type: "screenshot", URL: "https://example.com/docs", SegmentID: "s1"},
			},
			clean: "The docs explain it.",
		},
		{
			name:      "visual marker",
			narration: "Here is the architecture. [VISUAL: three-tier diagram]",
			markers: []types.VisualMarker{
				{Type: "visual", Description: "three-tier diagram", SegmentID: "s1"},
			},
			clean: "Here is the architecture.",
		},
		{
			name:      "mixed markers and whitespace",
			narration: "First   [SCREENSHOT: https://a.test | benchmark table]  then\n[VISUAL: speed chart]  done.",
			markers: []types.VisualMarker{
				{Type: "screenshot", URL: "https://a.test", FocusText: "benchmark table", SegmentID: "s1"},
				{Type: "visual", Description: "speed chart", SegmentID: "s1"},
			},
			clean: "First then done.",
		},
		{
			name:      "malformed marker is ignored",
			narration: "Broken [SCREENSHOT: not-a-url] cue stays out.",
			clean:     "Broken cue stays out.",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			markers, clean := ExtractMarkers(c.narration, "s1")
			if clean != c.clean {
				t.Fatalf("clean = %q; want %q", clean, c.clean)
			}
			if !reflect.DeepEqual(markers, c.markers) {
				t.Fatalf("markers = %+v; want %+v", markers, c.markers)
			}
		})
	}
}
