package pipeline

import (
	"context"
	"fmt"
	"time"

	"clipforge/config"
	"clipforge/providers"
	"clipforge/providers/encoder"
	"clipforge/providers/llm"
	"clipforge/providers/screenshot"
	"clipforge/providers/search"
	"clipforge/providers/voice"
)

// BuildRegistry wires every configured adapter into a registry. Adapters
// for all known providers are registered so a config change is enough to
// switch; only the selected ones are ever resolved.
func BuildRegistry(ctx context.Context, cfg config.Config) (*providers.Registry, error) {
	reg := providers.NewRegistry()

	if cfg.LLM.APIKey != "" {
		switch cfg.LLM.Provider {
		case "cohere":
			reg.RegisterLLM(llm.NewCohere(cfg.LLM.APIKey, cfg.LLM.Model))
		case "openai":
			reg.RegisterLLM(llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL))
		case "anthropic":
			reg.RegisterLLM(llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.Model))
		default:
			return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
		}
	}

	switch cfg.Search.Provider {
	case "google":
		if cfg.Search.GoogleAPIKey != "" {
			g, err := search.NewGoogle(ctx, cfg.Search.GoogleAPIKey, cfg.Search.GoogleCX)
			if err != nil {
				return nil, fmt.Errorf("google search: %w", err)
			}
			reg.RegisterSearch(g)
		}
	case "searx":
		reg.RegisterSearch(search.NewSearx(cfg.Search.SearxBaseURL))
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}
	reg.RegisterPageFetcher(search.NewReadability(30 * time.Second))

	if cfg.Voice.APIKey != "" {
		reg.RegisterVoice(voice.NewElevenLabs(
			cfg.Voice.APIKey, cfg.Voice.VoiceID, cfg.Voice.Model,
			cfg.Voice.Stability, cfg.Voice.SimilarityBoost))
	}

	reg.RegisterScreenshot(screenshot.NewChromedp(
		cfg.Screenshot.Width, cfg.Screenshot.Height,
		time.Duration(cfg.Screenshot.TimeoutSecs)*time.Second))

	reg.RegisterEncoder(encoder.NewFFmpeg(encoder.Style{
		Width:            cfg.Video.Width,
		Height:           cfg.Video.Height,
		FPS:              cfg.Video.FPS,
		Codec:            cfg.Video.Codec,
		Preset:           cfg.Video.Preset,
		AudioCodec:       cfg.Video.AudioCodec,
		AudioBitrate:     cfg.Video.AudioBitrate,
		BackgroundColour: cfg.Video.BackgroundColour,
	}, cfg.TempDir))

	return reg, nil
}
