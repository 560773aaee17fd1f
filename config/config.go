package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the fully resolved pipeline configuration. It is built once at
// the boundary (file + env + --set overrides) and passed by value into the
// orchestrator; nothing re-reads ambient config mid-pipeline.
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Search     SearchConfig     `json:"search"`
	Voice      VoiceConfig      `json:"voice"`
	Screenshot ScreenshotConfig `json:"screenshot"`
	Video      VideoConfig      `json:"video"`
	Script     ScriptConfig     `json:"script"`
	Sync       SyncConfig       `json:"sync"`
	Retry      RetryConfig      `json:"retry"`
	Cache      CacheConfig      `json:"cache"`
	Metadata   MetadataConfig   `json:"metadata"`
	Kafka      KafkaConfig      `json:"kafka"`
	Publish    PublishConfig    `json:"publish"`

	OutputDir string `json:"output_dir"`
	TempDir   string `json:"temp_dir"`
}

// LLMConfig selects and parameterizes the text-generation provider.
type LLMConfig struct {
	Provider  string `json:"provider"` // "cohere" | "openai" | "anthropic"
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url,omitempty"`
	MaxTokens int    `json:"max_tokens"`
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	Provider        string `json:"provider"` // "google" | "searx"
	MaxResults      int    `json:"max_results"`
	TopPagesToFetch int    `json:"top_pages_to_fetch"`
	Workers         int    `json:"workers"`
	GoogleAPIKey    string `json:"google_api_key"`
	GoogleCX        string `json:"google_cx"`
	SearxBaseURL    string `json:"searx_base_url"`
}

// VoiceConfig selects and parameterizes the TTS provider.
type VoiceConfig struct {
	Provider        string  `json:"provider"` // "elevenlabs"
	APIKey          string  `json:"api_key"`
	VoiceID         string  `json:"voice_id"`
	Model           string  `json:"model"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	AbortOnFailure  bool    `json:"abort_on_failure"`
	Workers         int     `json:"workers"`
}

// ScreenshotConfig parameterizes headless-browser capture.
type ScreenshotConfig struct {
	Provider    string `json:"provider"` // "chromedp"
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	TimeoutSecs int    `json:"timeout_seconds"`
	Workers     int    `json:"workers"`
}

// VideoConfig parameterizes the encoder.
type VideoConfig struct {
	Provider         string   `json:"provider"` // "ffmpeg"
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	FPS              int      `json:"fps"`
	Codec            string   `json:"codec"`
	Preset           string   `json:"preset"`
	AudioCodec       string   `json:"audio_codec"`
	AudioBitrate     string   `json:"audio_bitrate"`
	BackgroundColour string   `json:"background_colour"`
	AccentColours    []string `json:"accent_colours"`
}

// Persona shapes the scriptwriter prompt.
type Persona struct {
	Tone       string `json:"tone"`
	Audience   string `json:"audience"`
	Style      string `json:"style"`
	OpenerHook string `json:"opener_hook"`
}

// ScriptConfig shapes script generation.
type ScriptConfig struct {
	TargetMinutes  int      `json:"target_minutes"`
	WordsPerMinute int      `json:"words_per_minute"`
	MinSections    int      `json:"min_sections"`
	MaxSections    int      `json:"max_sections"`
	SectionTypes   []string `json:"section_types"`
	Persona        Persona  `json:"persona"`
}

// SyncConfig holds the drift thresholds. Exceeding MaxDriftSecs logs a
// warning; exceeding AbortDriftSecs fails the run.
type SyncConfig struct {
	MaxDriftSecs   float64 `json:"max_drift_seconds"`
	AbortDriftSecs float64 `json:"abort_drift_seconds"`
}

// RetryConfig bounds the stage runner's retry policy.
type RetryConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	InitialBackoffMS int `json:"initial_backoff_ms"`
	MaxBackoffMS     int `json:"max_backoff_ms"`
	CallTimeoutSecs  int `json:"call_timeout_seconds"`
}

// CacheConfig selects the content cache backend.
type CacheConfig struct {
	Backend   string `json:"backend"` // "disk" | "redis"
	Dir       string `json:"dir"`
	RedisAddr string `json:"redis_addr"`
	RedisDB   int    `json:"redis_db"`
}

// MetadataConfig shapes the SEO metadata stage.
type MetadataConfig struct {
	TitleMaxChars int      `json:"title_max_chars"`
	MaxTags       int      `json:"max_tags"`
	DefaultTags   []string `json:"default_tags"`
	Category      string   `json:"category"`
}

// KafkaConfig configures the optional generation-request worker.
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	GroupID string   `json:"group_id"`
}

// PublishConfig configures optional artifact publishing after a run.
type PublishConfig struct {
	S3Bucket           string `json:"s3_bucket"`
	S3Region           string `json:"s3_region"`
	S3Prefix           string `json:"s3_prefix"`
	YouTubeEnabled     bool   `json:"youtube_enabled"`
	ServiceAccountFile string `json:"service_account_file"`
	PrivacyStatus      string `json:"privacy_status"`
	CategoryID         string `json:"category_id"`
}

// Default returns the baseline configuration before file and env overlays.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  "cohere",
			Model:     "command-r-plus",
			MaxTokens: 8192,
		},
		Search: SearchConfig{
			Provider:        "google",
			MaxResults:      10,
			TopPagesToFetch: 5,
			Workers:         5,
			SearxBaseURL:    "http://localhost:8080",
		},
		Voice: VoiceConfig{
			Provider:        "elevenlabs",
			Model:           "eleven_turbo_v2_5",
			Stability:       0.5,
			SimilarityBoost: 0.75,
			AbortOnFailure:  true,
			Workers:         2,
		},
		Screenshot: ScreenshotConfig{
			Provider:    "chromedp",
			Width:       1920,
			Height:      1080,
			TimeoutSecs: 20,
			Workers:     3,
		},
		Video: VideoConfig{
			Provider:         "ffmpeg",
			Width:            1920,
			Height:           1080,
			FPS:              30,
			Codec:            "libx264",
			Preset:           "fast",
			AudioCodec:       "aac",
			AudioBitrate:     "192k",
			BackgroundColour: "#0F1117",
			AccentColours:    []string{"#4A9EFF", "#FF6B35", "#00C896"},
		},
		Script: ScriptConfig{
			TargetMinutes:  12,
			WordsPerMinute: 150,
			MinSections:    4,
			MaxSections:    8,
			SectionTypes:   []string{"intro", "main", "demo", "conclusion"},
			Persona: Persona{
				Tone:       "energetic but factual",
				Audience:   "tech enthusiasts",
				Style:      "Clear explanations with concrete numbers",
				OpenerHook: "Open with the single most surprising fact",
			},
		},
		Sync: SyncConfig{
			MaxDriftSecs:   2.0,
			AbortDriftSecs: 10.0,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMS: 500,
			MaxBackoffMS:     8000,
			CallTimeoutSecs:  60,
		},
		Cache: CacheConfig{
			Backend: "disk",
			Dir:     "./cache",
		},
		Metadata: MetadataConfig{
			TitleMaxChars: 100,
			MaxTags:       20,
			Category:      "Science & Technology",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "generation-requests",
			GroupID: "clipforge",
		},
		Publish: PublishConfig{
			PrivacyStatus: "public",
			CategoryID:    "28",
		},
		OutputDir: "./output",
		TempDir:   "./temp",
	}
}

// Load reads the pipeline config file over the defaults and applies the
// environment overlay for credentials. A missing file is not an error; the
// defaults are used as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv fills credentials from the environment when the file left them
// empty. Keys in the file win so a topic override can pin a provider account.
func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.LLM.APIKey, llmKeyEnv(cfg.LLM.Provider))
	setIfEmpty(&cfg.Voice.APIKey, "ELEVENLABS_API_KEY")
	setIfEmpty(&cfg.Voice.VoiceID, "ELEVENLABS_VOICE_ID")
	setIfEmpty(&cfg.Search.GoogleAPIKey, "GOOGLE_SEARCH_API_KEY")
	setIfEmpty(&cfg.Search.GoogleCX, "GOOGLE_SEARCH_CX")
}

func llmKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "COHERE_API_KEY"
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst == "" {
		*dst = os.Getenv(envKey)
	}
}

// Validate checks cross-field constraints once at the boundary.
func (c Config) Validate() error {
	if c.Script.WordsPerMinute <= 0 {
		return fmt.Errorf("script.words_per_minute must be positive, got %d", c.Script.WordsPerMinute)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Sync.AbortDriftSecs < c.Sync.MaxDriftSecs {
		return fmt.Errorf("sync.abort_drift_seconds (%.1f) must not be below sync.max_drift_seconds (%.1f)",
			c.Sync.AbortDriftSecs, c.Sync.MaxDriftSecs)
	}
	switch c.Cache.Backend {
	case "disk", "redis":
	default:
		return fmt.Errorf("cache.backend must be disk or redis, got %q", c.Cache.Backend)
	}
	return nil
}
