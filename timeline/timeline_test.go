package timeline

import (
	"errors"
	"math"
	"testing"

	"clipforge/providers"
	"clipforge/types"
)

const epsilon = 1e-9

func defaultAsset(segID string) types.VisualAsset {
	return types.VisualAsset{SegmentID: segID, Type: "title_card", FilePath: "/tmp/" + segID + ".png"}
}

func shot(segID, url string) *types.VisualAsset {
	return &types.VisualAsset{SegmentID: segID, Type: "screenshot", FilePath: "/tmp/" + segID + ".png", URL: url}
}

// checkInvariants verifies contiguity, ordering and exact total coverage.
func checkInvariants(t *testing.T, intervals []types.TimelineInterval, total float64) {
	t.Helper()
	if len(intervals) == 0 {
		t.Fatal("no intervals")
	}
	if math.Abs(intervals[0].Start) > epsilon {
		t.Fatalf("first interval starts at %v; want 0", intervals[0].Start)
	}
	for i := 0; i < len(intervals)-1; i++ {
		if math.Abs(intervals[i].End-intervals[i+1].Start) > epsilon {
			t.Fatalf("gap/overlap between interval %d (end %v) and %d (start %v)",
				i, intervals[i].End, i+1, intervals[i+1].Start)
		}
	}
	last := intervals[len(intervals)-1]
	if math.Abs(last.End-total) > epsilon {
		t.Fatalf("last interval ends at %v; want %v", last.End, total)
	}
	for i, iv := range intervals {
		if iv.End < iv.Start {
			t.Fatalf("interval %d has negative width: [%v, %v]", i, iv.Start, iv.End)
		}
	}
}

func TestBuildSpansNarrationExactly(t *testing.T) {
	// Three segments: no markers, one marker, two markers hinted 1:3.
	script := &types.Script{
		Segments: []types.ScriptSegment{
			{ID: "intro"},
			{ID: "main", Markers: []types.VisualMarker{
				{Type: "screenshot", URL: "https://a.test", SegmentID: "main"},
			}},
			{ID: "outro", Markers: []types.VisualMarker{
				{Type: "screenshot", URL: "https://b.test", SegmentID: "outro", DurationHint: 1},
				{Type: "screenshot", URL: "https://c.test", SegmentID: "outro", DurationHint: 3},
			}},
		},
	}
	chunks := []types.AudioChunk{
		{SegmentID: "intro", Duration: 10},
		{SegmentID: "main", Duration: 5},
		{SegmentID: "outro", Duration: 20},
	}
	visuals := ResolvedVisuals{
		ByMarker: map[string][]*types.VisualAsset{
			"main":  {shot("main", "https://a.test")},
			"outro": {shot("outro", "https://b.test"), shot("outro", "https://c.test")},
		},
		Defaults: map[string]types.VisualAsset{
			"intro": defaultAsset("intro"),
			"main":  defaultAsset("main"),
			"outro": defaultAsset("outro"),
		},
	}

	intervals, err := Build(script, chunks, visuals)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	checkInvariants(t, intervals, 35)

	if len(intervals) != 4 {
		t.Fatalf("got %d intervals; want 4", len(intervals))
	}
	if intervals[0].Asset.Type != "title_card" || intervals[0].End != 10 {
		t.Fatalf("zero-marker segment interval = %+v", intervals[0])
	}
	if intervals[1].Start != 10 || intervals[1].End != 15 || intervals[1].Asset.URL != "https://a.test" {
		t.Fatalf("single-marker interval = %+v", intervals[1])
	}
	// 1:3 hint split over 20s: 5s then 15s
	if math.Abs(intervals[2].End-20) > epsilon {
		t.Fatalf("hinted split boundary = %v; want 20", intervals[2].End)
	}
	if math.Abs(intervals[3].End-35) > epsilon {
		t.Fatalf("final interval end = %v; want 35", intervals[3].End)
	}
}

func TestBuildEqualSplitWhenHintsAbsentOrZero(t *testing.T) {
	cases := []struct {
		name  string
		hints []float64
	}{
		{"no hints", []float64{0, 0, 0}},
		{"zero-sum hints", []float64{0, 0, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			markers := make([]types.VisualMarker, len(c.hints))
			resolved := make([]*types.VisualAsset, len(c.hints))
			for i, h := range c.hints {
				markers[i] = types.VisualMarker{Type: "screenshot", URL: "https://x.test", SegmentID: "s", DurationHint: h}
				resolved[i] = shot("s", "https://x.test")
			}
			script := &types.Script{Segments: []types.ScriptSegment{{ID: "s", Markers: markers}}}
			chunks := []types.AudioChunk{{SegmentID: "s", Duration: 9}}
			visuals := ResolvedVisuals{
				ByMarker: map[string][]*types.VisualAsset{"s": resolved},
				Defaults: map[string]types.VisualAsset{"s": defaultAsset("s")},
			}

			intervals, err := Build(script, chunks, visuals)
			if err != nil {
				t.Fatal(err)
			}
			checkInvariants(t, intervals, 9)
			for i, iv := range intervals {
				if math.Abs((iv.End-iv.Start)-3) > epsilon {
					t.Fatalf("interval %d width = %v; want 3", i, iv.End-iv.Start)
				}
			}
		})
	}
}

func TestBuildMismatchedHintSums(t *testing.T) {
	// Hints sum to 7 over a 10s segment; widths scale proportionally and the
	// last interval absorbs the remainder.
	script := &types.Script{Segments: []types.ScriptSegment{{
		ID: "s",
		Markers: []types.VisualMarker{
			{Type: "screenshot", URL: "https://a.test", SegmentID: "s", DurationHint: 2},
			{Type: "screenshot", URL: "https://b.test", SegmentID: "s", DurationHint: 5},
		},
	}}}
	chunks := []types.AudioChunk{{SegmentID: "s", Duration: 10}}
	visuals := ResolvedVisuals{
		ByMarker: map[string][]*types.VisualAsset{
			"s": {shot("s", "https://a.test"), shot("s", "https://b.test")},
		},
		Defaults: map[string]types.VisualAsset{"s": defaultAsset("s")},
	}

	intervals, err := Build(script, chunks, visuals)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, intervals, 10)
	if math.Abs((intervals[0].End-intervals[0].Start)-10.0*2/7) > epsilon {
		t.Fatalf("first width = %v; want %v", intervals[0].End-intervals[0].Start, 10.0*2/7)
	}
	if intervals[1].End != 10 {
		t.Fatalf("last interval must absorb rounding remainder, end = %v", intervals[1].End)
	}
}

func TestBuildUnresolvedMarkerFallsBack(t *testing.T) {
	script := &types.Script{Segments: []types.ScriptSegment{{
		ID: "s",
		Markers: []types.VisualMarker{
			{Type: "screenshot", URL: "https://down.test", SegmentID: "s"},
			{Type: "screenshot", URL: "https://up.test", SegmentID: "s"},
		},
	}}}
	chunks := []types.AudioChunk{{SegmentID: "s", Duration: 8}}
	visuals := ResolvedVisuals{
		ByMarker: map[string][]*types.VisualAsset{
			"s": {nil, shot("s", "https://up.test")}, // first fetch failed
		},
		Defaults: map[string]types.VisualAsset{"s": defaultAsset("s")},
	}

	intervals, err := Build(script, chunks, visuals)
	if err != nil {
		t.Fatalf("unresolved marker must not fail the stage: %v", err)
	}
	checkInvariants(t, intervals, 8)
	if intervals[0].Asset.Type != "title_card" {
		t.Fatalf("unresolved marker asset = %+v; want default", intervals[0].Asset)
	}
	if intervals[1].Asset.URL != "https://up.test" {
		t.Fatalf("resolved marker asset = %+v", intervals[1].Asset)
	}
}

func TestBuildSkipsZeroDurationChunks(t *testing.T) {
	script := &types.Script{Segments: []types.ScriptSegment{{ID: "a"}, {ID: "b"}}}
	chunks := []types.AudioChunk{
		{SegmentID: "a", Duration: 0},
		{SegmentID: "b", Duration: 6},
	}
	visuals := ResolvedVisuals{Defaults: map[string]types.VisualAsset{
		"a": defaultAsset("a"), "b": defaultAsset("b"),
	}}

	intervals, err := Build(script, chunks, visuals)
	if err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, intervals, 6)
	if len(intervals) != 1 || intervals[0].Asset.SegmentID != "b" {
		t.Fatalf("intervals = %+v", intervals)
	}
}

func TestCheckDrift(t *testing.T) {
	if warn, err := CheckDrift(100.5, 100, 2, 10); warn != "" || err != nil {
		t.Fatalf("small drift: warn=%q err=%v", warn, err)
	}

	warn, err := CheckDrift(104, 100, 2, 10)
	if err != nil {
		t.Fatalf("warn-level drift returned error: %v", err)
	}
	if warn == "" {
		t.Fatal("expected warning for drift above warn threshold")
	}

	_, err = CheckDrift(115, 100, 2, 10)
	var drift *providers.SyncDriftError
	if !errors.As(err, &drift) {
		t.Fatalf("err = %v; want SyncDriftError", err)
	}
	if drift.Drift != 15 {
		t.Fatalf("drift = %v; want 15", drift.Drift)
	}
}
