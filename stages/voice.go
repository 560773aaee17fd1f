package stages

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"clipforge/providers"
	"clipforge/types"
)

// SynthesizeVoice narrates every script segment through the configured TTS
// provider and measures each chunk's real duration with the encoder's probe.
// Chunks come back in segment order with cumulative start times.
func SynthesizeVoice(ctx context.Context, env Env, script *types.Script) ([]types.AudioChunk, error) {
	voice, err := env.Registry.Voice(env.Cfg.Voice.Provider)
	if err != nil {
		return nil, err
	}
	encoder, err := env.Registry.Encoder(env.Cfg.Video.Provider)
	if err != nil {
		return nil, err
	}
	log.Printf("[Voice] synthesizing %d segments via %s", len(script.Segments), voice.Name())

	workers := env.Cfg.Voice.Workers
	if workers <= 0 {
		workers = 2
	}

	results := make([]*types.AudioChunk, len(script.Segments))
	errs := make([]error, len(script.Segments))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	for i, seg := range script.Segments {
		text := strings.TrimSpace(seg.NarrationText)
		if text == "" {
			continue
		}
		wg.Add(1)
		go func(i int, seg types.ScriptSegment, text string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			chunk, err := synthesizeSegment(ctx, env, voice, encoder, seg.ID, text)
			if err != nil {
				errs[i] = fmt.Errorf("segment %s: %w", seg.ID, err)
				return
			}
			results[i] = chunk
		}(i, seg, text)
	}
	wg.Wait()

	var chunks []types.AudioChunk
	t := 0.0
	for i := range results {
		if errs[i] != nil {
			if env.Cfg.Voice.AbortOnFailure {
				return nil, errs[i]
			}
			log.Printf("[Voice] %v; skipping segment", errs[i])
			continue
		}
		if results[i] == nil {
			continue
		}
		chunk := *results[i]
		chunk.StartTime = t
		t += chunk.Duration
		chunks = append(chunks, chunk)
		log.Printf("[Voice] %s: %.1fs", chunk.SegmentID, chunk.Duration)
	}
	if len(chunks) == 0 {
		return nil, providers.Fatal("voice", fmt.Errorf("no narration synthesized"))
	}

	log.Printf("[Voice] total %.1fs across %d chunks", t, len(chunks))
	return chunks, nil
}

func synthesizeSegment(ctx context.Context, env Env, voice providers.Voice, encoder providers.Encoder, segID, text string) (*types.AudioChunk, error) {
	vc := env.Cfg.Voice
	params := map[string]interface{}{
		"text":             text,
		"voice_id":         vc.VoiceID,
		"model":            vc.Model,
		"stability":        vc.Stability,
		"similarity_boost": vc.SimilarityBoost,
	}
	data, _, err := env.Caller.Call(ctx, string(providers.CapVoice), voice.Name(), params, "audio/mpeg", func(ctx context.Context) ([]byte, error) {
		return voice.Synthesize(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	path, err := env.assetPath("audio", params, ".mp3")
	if err != nil {
		return nil, err
	}
	if err := materialize(path, data); err != nil {
		return nil, err
	}

	duration, err := encoder.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return &types.AudioChunk{
		SegmentID: segID, Text: text, AudioPath: path, Duration: duration,
	}, nil
}
