// Package timeline aligns narration timing to the script's visual cue
// markers, producing a gap-free, non-overlapping interval sequence covering
// the full narration duration.
package timeline

import (
	"fmt"
	"log"

	"clipforge/providers"
	"clipforge/types"
)

// ResolvedVisuals is the Visuals stage output consumed by the synchronizer.
type ResolvedVisuals struct {
	// ByMarker holds one entry per segment, in marker order. A nil element
	// means the marker's asset could not be fetched; the synchronizer
	// substitutes the segment's default asset instead of failing.
	ByMarker map[string][]*types.VisualAsset
	// Defaults maps segment ID to its fallback asset (rendered title card).
	Defaults map[string]types.VisualAsset
}

// Build produces the synchronized timeline from measured audio durations and
// the script's markers. Intervals are emitted in segment order: each
// interval's end equals the next interval's start and the whole sequence
// spans exactly [0, total narration duration].
func Build(script *types.Script, chunks []types.AudioChunk, visuals ResolvedVisuals) ([]types.TimelineInterval, error) {
	segments := make(map[string]types.ScriptSegment, len(script.Segments))
	for _, seg := range script.Segments {
		segments[seg.ID] = seg
	}

	var intervals []types.TimelineInterval
	cursor := 0.0

	for _, chunk := range chunks {
		seg, ok := segments[chunk.SegmentID]
		if !ok {
			return nil, fmt.Errorf("audio chunk references unknown segment %q", chunk.SegmentID)
		}
		if chunk.Duration <= 0 {
			continue
		}

		segStart := cursor
		segEnd := cursor + chunk.Duration
		cursor = segEnd

		assets := resolveAssets(seg, visuals)
		switch len(assets) {
		case 0:
			return nil, fmt.Errorf("segment %q has no default asset", seg.ID)
		case 1:
			intervals = append(intervals, types.TimelineInterval{
				Asset: assets[0], Start: segStart, End: segEnd,
			})
		default:
			intervals = append(intervals, divide(assets, weights(seg.Markers), segStart, segEnd)...)
		}
	}

	return intervals, nil
}

// resolveAssets returns one asset per marker, substituting the segment
// default for unresolved markers, or just the default when the segment has
// no markers.
func resolveAssets(seg types.ScriptSegment, visuals ResolvedVisuals) []types.VisualAsset {
	fallback, hasFallback := visuals.Defaults[seg.ID]

	if len(seg.Markers) == 0 {
		if !hasFallback {
			return nil
		}
		return []types.VisualAsset{fallback}
	}

	resolved := visuals.ByMarker[seg.ID]
	assets := make([]types.VisualAsset, 0, len(seg.Markers))
	for i, marker := range seg.Markers {
		if i < len(resolved) && resolved[i] != nil {
			assets = append(assets, *resolved[i])
			continue
		}
		if !hasFallback {
			return nil
		}
		log.Printf("[Sync] %v; using default asset",
			&providers.UnresolvedAssetError{Marker: markerLabel(marker), Err: fmt.Errorf("no asset resolved")})
		assets = append(assets, fallback)
	}
	return assets
}

// weights extracts duration hints, falling back to equal division when hints
// are absent or sum to zero.
func weights(markers []types.VisualMarker) []float64 {
	w := make([]float64, len(markers))
	sum := 0.0
	for i, m := range markers {
		if m.DurationHint > 0 {
			w[i] = m.DurationHint
			sum += m.DurationHint
		}
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1
		}
	}
	return w
}

// divide splits [segStart, segEnd] proportionally to the weights; the last
// interval absorbs the rounding remainder so the pieces sum exactly to the
// segment duration.
func divide(assets []types.VisualAsset, w []float64, segStart, segEnd float64) []types.TimelineInterval {
	total := 0.0
	for _, x := range w {
		total += x
	}

	duration := segEnd - segStart
	intervals := make([]types.TimelineInterval, 0, len(assets))
	start := segStart
	for i, asset := range assets {
		end := start + duration*w[i]/total
		if i == len(assets)-1 {
			end = segEnd
		}
		intervals = append(intervals, types.TimelineInterval{Asset: asset, Start: start, End: end})
		start = end
	}
	return intervals
}

func markerLabel(m types.VisualMarker) string {
	if m.URL != "" {
		return m.URL
	}
	return m.Description
}

// CheckDrift compares the assembled video's measured duration with the
// narration total. Drift above warnThreshold is reported as a warning line;
// above abortThreshold it is a SyncDriftError and the run fails.
func CheckDrift(videoDuration, narrationDuration, warnThreshold, abortThreshold float64) (string, error) {
	drift := videoDuration - narrationDuration
	if drift < 0 {
		drift = -drift
	}
	if drift > abortThreshold {
		return "", &providers.SyncDriftError{Drift: drift, Threshold: abortThreshold}
	}
	if drift > warnThreshold {
		return fmt.Sprintf("sync drift %.2fs exceeds threshold %.2fs", drift, warnThreshold), nil
	}
	return "", nil
}
