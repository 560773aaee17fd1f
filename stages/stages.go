// Package stages implements the seven pipeline stages. Each stage is a
// plain function taking the shared environment and the previous stage's
// output; all provider traffic goes through the caller so identical requests
// hit the content cache.
package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"clipforge/config"
	"clipforge/providers"
)

// Caller executes a provider call through the content-addressed cache with
// retry on transient failures.
type Caller interface {
	Call(ctx context.Context, capability, provider string, params interface{}, contentType string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error)
}

// Env is the per-run environment shared by all stages.
type Env struct {
	Cfg      config.Config
	Registry *providers.Registry
	Caller   Caller
	// RunDir receives the run's final artifacts (video, metadata).
	RunDir string
	// AssetDir receives intermediate media files. Paths under it are
	// content-addressed so cached stage payloads stay valid across runs.
	AssetDir string
}

// assetPath returns a stable content-addressed file path for a cached
// artifact.
func (e Env) assetPath(kind string, params interface{}, ext string) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	dir := filepath.Join(e.AssetDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, hex.EncodeToString(sum[:16])+ext), nil
}

// materialize writes data to path unless an identical artifact already
// exists from a previous run.
func materialize(path string, data []byte) error {
	if info, err := os.Stat(path); err == nil && info.Size() == int64(len(data)) {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func llmParams(cfg config.LLMConfig, req providers.CompleteRequest) map[string]interface{} {
	return map[string]interface{}{
		"model":      cfg.Model,
		"system":     req.System,
		"prompt":     req.Prompt,
		"max_tokens": req.MaxTokens,
	}
}

// complete runs one LLM call through the cache.
func (e Env) complete(ctx context.Context, req providers.CompleteRequest) (string, error) {
	llm, err := e.Registry.LLM(e.Cfg.LLM.Provider)
	if err != nil {
		return "", err
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = e.Cfg.LLM.MaxTokens
	}
	data, _, err := e.Caller.Call(ctx, string(providers.CapLLM), llm.Name(), llmParams(e.Cfg.LLM, req), "text/plain", func(ctx context.Context) ([]byte, error) {
		text, err := llm.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	})
	if err != nil {
		return "", fmt.Errorf("llm %s: %w", llm.Name(), err)
	}
	return string(data), nil
}
