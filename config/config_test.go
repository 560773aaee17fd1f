package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Provider != "cohere" {
		t.Fatalf("default llm provider = %q; want cohere", cfg.LLM.Provider)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("default retry attempts = %d; want 3", cfg.Retry.MaxAttempts)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	doc := map[string]interface{}{
		"llm":    map[string]interface{}{"provider": "openai", "model": "gpt-4o-mini"},
		"script": map[string]interface{}{"target_minutes": 5},
	}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("llm = %+v; file values not applied", cfg.LLM)
	}
	if cfg.Script.TargetMinutes != 5 {
		t.Fatalf("target_minutes = %d; want 5", cfg.Script.TargetMinutes)
	}
	// Untouched sections keep their defaults
	if cfg.Video.FPS != 30 {
		t.Fatalf("video.fps = %d; want default 30", cfg.Video.FPS)
	}
}

func TestApplySet(t *testing.T) {
	cases := []struct {
		name  string
		pairs []string
		check func(t *testing.T, cfg Config)
	}{
		{
			name:  "string value",
			pairs: []string{"llm.provider=anthropic"},
			check: func(t *testing.T, cfg Config) {
				if cfg.LLM.Provider != "anthropic" {
					t.Fatalf("provider = %q", cfg.LLM.Provider)
				}
			},
		},
		{
			name:  "int value",
			pairs: []string{"retry.max_attempts=5"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Retry.MaxAttempts != 5 {
					t.Fatalf("attempts = %d", cfg.Retry.MaxAttempts)
				}
			},
		},
		{
			name:  "bool and float",
			pairs: []string{"voice.abort_on_failure=false", "sync.max_drift_seconds=3.5"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Voice.AbortOnFailure {
					t.Fatal("abort_on_failure still true")
				}
				if cfg.Sync.MaxDriftSecs != 3.5 {
					t.Fatalf("max drift = %v", cfg.Sync.MaxDriftSecs)
				}
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			if err := ApplySet(&cfg, c.pairs); err != nil {
				t.Fatalf("ApplySet error: %v", err)
			}
			c.check(t, cfg)
		})
	}
}

func TestApplySetRejectsMalformedPair(t *testing.T) {
	cfg := Default()
	if err := ApplySet(&cfg, []string{"no-equals-sign"}); err == nil {
		t.Fatal("expected error for malformed --set pair")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}

	cfg = Default()
	cfg.Sync.AbortDriftSecs = 1.0
	cfg.Sync.MaxDriftSecs = 2.0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for abort threshold below warn threshold")
	}
}

func TestLoadTopicFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic.json")
	doc := `{"topic": "Go 1.24 released", "overrides": {"script": {"target_minutes": 3}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	topic, err := LoadTopicFile(path, &cfg)
	if err != nil {
		t.Fatalf("LoadTopicFile error: %v", err)
	}
	if topic != "Go 1.24 released" {
		t.Fatalf("topic = %q", topic)
	}
	if cfg.Script.TargetMinutes != 3 {
		t.Fatalf("target_minutes = %d; want 3", cfg.Script.TargetMinutes)
	}
}
