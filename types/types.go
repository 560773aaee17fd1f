package types

import (
	"time"
)

// State represents the pipeline state machine
type State string

const (
	StateIdle      State = "idle"
	StateResearch  State = "researching"
	StateScript    State = "scripting"
	StateVisuals   State = "acquiring_visuals"
	StateVoice     State = "synthesizing_voice"
	StateSync      State = "syncing"
	StateAssembly  State = "assembling"
	StateMetadata  State = "finalizing_metadata"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// StageStatus is the outcome class of a single stage execution
type StageStatus string

const (
	StageCacheHit StageStatus = "cache_hit"
	StageComputed StageStatus = "computed"
	StageFailed   StageStatus = "failed"
)

// Stage names, in fixed execution order. Visuals and Voice run concurrently.
const (
	StageResearchName = "Research"
	StageScriptName   = "Script"
	StageVisualsName  = "Visuals"
	StageVoiceName    = "Voice"
	StageSyncName     = "Sync"
	StageAssemblyName = "Assembly"
	StageMetadataName = "Metadata"
)

// StageCount is the number of pipeline stages reported in progress lines.
const StageCount = 7

// StageResult records the outcome of one pipeline stage.
// Immutable once appended to a PipelineRun.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// PipelineRun is one generation request, owned by the orchestrator.
type PipelineRun struct {
	ID        string        `json:"id"`
	Topic     string        `json:"topic"`
	State     State         `json:"state"`
	Stages    []StageResult `json:"stages"`
	Log       []string      `json:"log"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
}

// ResearchFinding is one search result, optionally with fetched page content.
type ResearchFinding struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	FullContent    string  `json:"full_content,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// ResearchBundle is the output of the Research stage.
type ResearchBundle struct {
	Topic             string            `json:"topic"`
	QueryUsed         string            `json:"query_used"`
	Findings          []ResearchFinding `json:"findings"`
	KeyFacts          []string          `json:"key_facts"`
	StructuredSummary string            `json:"structured_summary"`
	RelevantURLs      []string          `json:"relevant_urls"`
}

// VisualMarker is a cue embedded in the script indicating when/what
// visual should appear.
type VisualMarker struct {
	Type         string  `json:"type"` // "screenshot" | "visual"
	URL          string  `json:"url,omitempty"`
	Description  string  `json:"description,omitempty"`
	FocusText    string  `json:"focus_text,omitempty"`
	SegmentID    string  `json:"segment_id"`
	DurationHint float64 `json:"duration_hint,omitempty"`
}

// ScriptSegment is one narrated unit of the script.
type ScriptSegment struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"` // "intro" | "main" | "demo" | "conclusion"
	Title         string         `json:"title"`
	NarrationText string         `json:"narration_text"`
	Markers       []VisualMarker `json:"markers,omitempty"`
	EstimatedSecs float64        `json:"estimated_seconds"`
}

// Script is the output of the Script stage.
type Script struct {
	Topic         string          `json:"topic"`
	Title         string          `json:"title"`
	Segments      []ScriptSegment `json:"segments"`
	EstimatedSecs float64         `json:"estimated_seconds"`
}

// VisualAsset is a resolved visual (screenshot or rendered title card).
type VisualAsset struct {
	SegmentID   string `json:"segment_id"`
	Type        string `json:"type"` // "screenshot" | "title_card"
	FilePath    string `json:"file_path"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// AudioChunk is one synthesized narration segment with measured timing.
type AudioChunk struct {
	SegmentID string  `json:"segment_id"`
	Text      string  `json:"text"`
	AudioPath string  `json:"audio_path"`
	Duration  float64 `json:"duration_seconds"`
	StartTime float64 `json:"start_time"`
}

// TimelineInterval is a time-bounded assignment of one visual asset.
// Intervals are contiguous and non-overlapping, covering [0, total duration].
type TimelineInterval struct {
	Asset VisualAsset `json:"asset"`
	Start float64     `json:"start"`
	End   float64     `json:"end"`
}

// Metadata is the SEO document written alongside the video.
type Metadata struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Tags                 []string `json:"tags"`
	Category             string   `json:"category"`
	ThumbnailSuggestions []string `json:"thumbnail_suggestions"`
}

// Result is what the orchestrator returns to the CLI and REST callers.
type Result struct {
	Success      bool     `json:"success"`
	VideoPath    string   `json:"video_path,omitempty"`
	MetadataPath string   `json:"metadata_path,omitempty"`
	Log          []string `json:"log"`
	Error        string   `json:"error,omitempty"`
}

// TotalDuration sums the measured durations of all audio chunks.
func TotalDuration(chunks []AudioChunk) float64 {
	total := 0.0
	for _, c := range chunks {
		total += c.Duration
	}
	return total
}
