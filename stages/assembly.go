package stages

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"clipforge/providers"
	"clipforge/timeline"
	"clipforge/types"
)

// BuildTimeline aligns visual assets to narration time. Pure computation
// over the visuals/voice join; unresolved markers degrade to default assets
// inside the synchronizer.
func BuildTimeline(env Env, script *types.Script, chunks []types.AudioChunk, visuals *timeline.ResolvedVisuals) ([]types.TimelineInterval, error) {
	intervals, err := timeline.Build(script, chunks, *visuals)
	if err != nil {
		return nil, err
	}
	log.Printf("[Sync] %d intervals over %.1fs", len(intervals), types.TotalDuration(chunks))
	return intervals, nil
}

// Assemble concatenates the narration track, renders the final video from
// the timeline, and verifies the result against the narration duration. The
// returned warning is non-empty when drift exceeds the soft threshold; drift
// past the abort threshold fails the stage.
func Assemble(ctx context.Context, env Env, intervals []types.TimelineInterval, chunks []types.AudioChunk) (videoPath, warning string, err error) {
	encoder, err := env.Registry.Encoder(env.Cfg.Video.Provider)
	if err != nil {
		return "", "", err
	}

	audioPaths := make([]string, len(chunks))
	for i, c := range chunks {
		audioPaths[i] = c.AudioPath
	}
	narration := filepath.Join(env.RunDir, "narration.mp3")
	if err := encoder.ConcatAudio(ctx, audioPaths, narration); err != nil {
		return "", "", fmt.Errorf("concat narration: %w", err)
	}

	out := filepath.Join(env.RunDir, "video.mp4")
	videoPath, err = encoder.Assemble(ctx, providers.AssembleRequest{
		Timeline:   intervals,
		AudioPath:  narration,
		OutputPath: out,
	})
	if err != nil {
		return "", "", fmt.Errorf("assemble video: %w", err)
	}

	videoDur, err := encoder.Probe(ctx, videoPath)
	if err != nil {
		return "", "", fmt.Errorf("probe video: %w", err)
	}
	warning, err = timeline.CheckDrift(videoDur, types.TotalDuration(chunks), env.Cfg.Sync.MaxDriftSecs, env.Cfg.Sync.AbortDriftSecs)
	if err != nil {
		return "", "", err
	}
	if warning != "" {
		log.Printf("[Assembly] %s", warning)
	}
	log.Printf("[Assembly] %s (%.1fs)", videoPath, videoDur)
	return videoPath, warning, nil
}
