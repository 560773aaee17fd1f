// Package voice contains the TTS provider adapters.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clipforge/providers"
)

const elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech/%s"

// ElevenLabs adapts the ElevenLabs TTS API to the Voice capability.
type ElevenLabs struct {
	apiKey          string
	voiceID         string
	model           string
	stability       float64
	similarityBoost float64
	client          *http.Client
}

// NewElevenLabs builds the adapter with voice tuning parameters.
func NewElevenLabs(apiKey, voiceID, model string, stability, similarityBoost float64) *ElevenLabs {
	return &ElevenLabs{
		apiKey:          apiKey,
		voiceID:         voiceID,
		model:           model,
		stability:       stability,
		similarityBoost: similarityBoost,
		client:          &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

// Synthesize returns MP3 bytes for one narration segment.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody := elevenLabsRequest{Text: text, ModelID: e.model}
	reqBody.VoiceSettings.Stability = e.stability
	reqBody.VoiceSettings.SimilarityBoost = e.similarityBoost

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, providers.Fatal("elevenlabs tts", err)
	}

	url := fmt.Sprintf(elevenLabsEndpoint, e.voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, providers.Fatal("elevenlabs tts", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, providers.Transient("elevenlabs tts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, providers.ClassifyHTTP("elevenlabs tts", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Transient("elevenlabs tts", err)
	}
	if len(audio) == 0 {
		return nil, providers.Transient("elevenlabs tts", fmt.Errorf("empty audio response"))
	}
	return audio, nil
}
