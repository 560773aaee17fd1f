package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/cache"
	"clipforge/config"
	"clipforge/providers"
	"clipforge/types"
)

const scriptResponse = `{
  "title": "Generics in Practice",
  "sections": [
    {
      "section_id": "intro",
      "section_type": "intro",
      "title": "Why Generics",
      "narration_text": "Welcome back. [SCREENSHOT: https://example.com/a | pricing table] Generics landed in Go 1.18."
    },
    {
      "section_id": "outro",
      "section_type": "conclusion",
      "title": "Wrapping Up",
      "narration_text": "That is the whole story. [VISUAL: constraint hierarchy diagram]"
    }
  ]
}`

type fakeLLM struct{ failScript bool }

func (f *fakeLLM) Name() string { return "fake-llm" }

func (f *fakeLLM) Complete(ctx context.Context, req providers.CompleteRequest) (string, error) {
	switch {
	case strings.Contains(req.Prompt, "search queries"):
		return `["go generics tutorial", "go generics performance"]`, nil
	case strings.Contains(req.Prompt, "key_facts"):
		return `{"key_facts": ["generics shipped in 1.18", "type parameters use brackets"], "structured_summary": "Generics overview."}`, nil
	case strings.Contains(req.Prompt, "Create a video script"):
		if f.failScript {
			return "", providers.Fatal("fake-llm", errors.New("quota exhausted"))
		}
		return scriptResponse, nil
	case strings.Contains(req.Prompt, "SEO"):
		return `{"title": "Go Generics Explained", "description": "A deep dive.", "tags": ["golang"], "thumbnail_suggestions": ["gopher"]}`, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.60s", req.Prompt)
}

type fakeSearch struct{}

func (fakeSearch) Name() string { return "fake-search" }

func (fakeSearch) Search(ctx context.Context, query string, max int) ([]providers.SearchResult, error) {
	return []providers.SearchResult{
		{Title: "Result A for " + query, URL: "https://example.com/" + query, Snippet: "snippet a"},
		{Title: "Result B", URL: "https://example.org/" + query, Snippet: "snippet b", Position: 1},
	}, nil
}

type fakePages struct{}

func (fakePages) Name() string { return "readability" }

func (fakePages) Fetch(ctx context.Context, url string) (string, error) {
	return "extracted article text from " + url, nil
}

type fakeScreenshot struct{}

func (fakeScreenshot) Name() string { return "fake-shot" }

func (fakeScreenshot) Capture(ctx context.Context, req providers.CaptureRequest) ([]byte, error) {
	return []byte("png:" + req.URL), nil
}

type fakeVoice struct{ fail bool }

func (f *fakeVoice) Name() string { return "fake-voice" }

func (f *fakeVoice) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.fail {
		return nil, providers.Fatal("fake-voice", errors.New("voice not found"))
	}
	return []byte("mp3:" + text[:10]), nil
}

type fakeEncoder struct{}

func (fakeEncoder) Name() string { return "fake-encoder" }

func (fakeEncoder) RenderTitleCard(ctx context.Context, spec providers.TitleCardSpec, outPath string) error {
	return os.WriteFile(outPath, []byte("card:"+spec.Title), 0o644)
}

func (fakeEncoder) ConcatAudio(ctx context.Context, paths []string, outPath string) error {
	return os.WriteFile(outPath, []byte("narration"), 0o644)
}

func (fakeEncoder) Assemble(ctx context.Context, req providers.AssembleRequest) (string, error) {
	if err := os.WriteFile(req.OutputPath, []byte("mp4"), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

func (fakeEncoder) Probe(ctx context.Context, mediaPath string) (float64, error) {
	if filepath.Ext(mediaPath) == ".mp4" {
		return 8.2, nil
	}
	return 4.0, nil
}

type harness struct {
	orch  *Orchestrator
	llm   *fakeLLM
	voice *fakeVoice
}

func newHarness(t *testing.T, base string) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Provider = "fake-llm"
	cfg.Search.Provider = "fake-search"
	cfg.Voice.Provider = "fake-voice"
	cfg.Voice.AbortOnFailure = true
	cfg.Screenshot.Provider = "fake-shot"
	cfg.Video.Provider = "fake-encoder"
	cfg.OutputDir = filepath.Join(base, "out")
	cfg.TempDir = filepath.Join(base, "tmp")
	cfg.Cache.Dir = filepath.Join(base, "cache")
	cfg.Retry = config.RetryConfig{MaxAttempts: 2, InitialBackoffMS: 1, MaxBackoffMS: 2, CallTimeoutSecs: 5}

	llm := &fakeLLM{}
	voice := &fakeVoice{}
	reg := providers.NewRegistry()
	reg.RegisterLLM(llm)
	reg.RegisterSearch(fakeSearch{})
	reg.RegisterPageFetcher(fakePages{})
	reg.RegisterScreenshot(fakeScreenshot{})
	reg.RegisterVoice(voice)
	reg.RegisterEncoder(fakeEncoder{})

	store, err := cache.NewDiskStore(cfg.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(cache.New(store), cfg.Retry)
	return &harness{
		orch:  NewOrchestrator(cfg, reg, runner, NewTracker()),
		llm:   llm,
		voice: voice,
	}
}

func stageStatuses(run *types.PipelineRun) map[string]types.StageStatus {
	statuses := make(map[string]types.StageStatus)
	for _, s := range run.Stages {
		statuses[s.Stage] = s.Status
	}
	return statuses
}

func latestRun(t *testing.T, h *harness) *types.PipelineRun {
	t.Helper()
	runs := h.orch.tracker.List()
	if len(runs) == 0 {
		t.Fatal("no tracked runs")
	}
	return runs[0]
}

func TestRunProducesVideoAndMetadata(t *testing.T) {
	h := newHarness(t, t.TempDir())

	res := h.orch.Run(context.Background(), "Go Generics Explained")
	if !res.Success {
		t.Fatalf("run failed: %s\n%s", res.Error, strings.Join(res.Log, "\n"))
	}
	if _, err := os.Stat(res.VideoPath); err != nil {
		t.Fatalf("video missing: %v", err)
	}
	if _, err := os.Stat(res.MetadataPath); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}

	run := latestRun(t, h)
	if run.State != types.StateSucceeded {
		t.Fatalf("state = %s", run.State)
	}
	if len(run.Stages) != types.StageCount {
		t.Fatalf("stages = %d; want %d", len(run.Stages), types.StageCount)
	}
	order := []string{
		types.StageResearchName, types.StageScriptName, types.StageVisualsName,
		types.StageVoiceName, types.StageSyncName, types.StageAssemblyName,
		types.StageMetadataName,
	}
	for i, name := range order {
		if run.Stages[i].Stage != name {
			t.Fatalf("stage %d = %s; want %s", i, run.Stages[i].Stage, name)
		}
		if run.Stages[i].Status != types.StageComputed {
			t.Fatalf("stage %s status = %s; want computed", name, run.Stages[i].Status)
		}
	}

	wantLine := fmt.Sprintf("1/%d %s", types.StageCount, types.StageResearchName)
	found := false
	for _, line := range res.Log {
		if strings.HasPrefix(line, wantLine) {
			found = true
		}
	}
	if !found {
		t.Fatalf("progress line %q missing from log:\n%s", wantLine, strings.Join(res.Log, "\n"))
	}
}

func TestRunResumesFromPointOfFailure(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.voice.fail = true

	res := h.orch.Run(context.Background(), "Go Generics Explained")
	if res.Success {
		t.Fatal("run with failing voice provider succeeded")
	}
	statuses := stageStatuses(latestRun(t, h))
	if statuses[types.StageVoiceName] != types.StageFailed {
		t.Fatalf("voice status = %s; want failed", statuses[types.StageVoiceName])
	}
	if _, ok := statuses[types.StageSyncName]; ok {
		t.Fatal("sync ran after a failed join")
	}

	h.voice.fail = false
	res = h.orch.Run(context.Background(), "Go Generics Explained")
	if !res.Success {
		t.Fatalf("resumed run failed: %s\n%s", res.Error, strings.Join(res.Log, "\n"))
	}

	statuses = stageStatuses(latestRun(t, h))
	for _, name := range []string{types.StageResearchName, types.StageScriptName, types.StageVisualsName} {
		if statuses[name] != types.StageCacheHit {
			t.Fatalf("%s status = %s; want cache_hit", name, statuses[name])
		}
	}
	if statuses[types.StageVoiceName] != types.StageComputed {
		t.Fatalf("voice status = %s; want computed", statuses[types.StageVoiceName])
	}
}

func TestRunFatalScriptErrorHaltsAfterTwoStages(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.llm.failScript = true

	res := h.orch.Run(context.Background(), "Go Generics Explained")
	if res.Success {
		t.Fatal("run succeeded with failing script stage")
	}

	run := latestRun(t, h)
	if len(run.Stages) != 2 {
		t.Fatalf("stages recorded = %d; want 2", len(run.Stages))
	}
	if run.Stages[0].Status != types.StageComputed || run.Stages[1].Status != types.StageFailed {
		t.Fatalf("stage statuses = %s, %s", run.Stages[0].Status, run.Stages[1].Status)
	}
	if run.State != types.StateFailed {
		t.Fatalf("state = %s", run.State)
	}

	// Research stayed cached; only the failed stage recomputes.
	h.llm.failScript = false
	res = h.orch.Run(context.Background(), "Go Generics Explained")
	if !res.Success {
		t.Fatalf("rerun failed: %s", res.Error)
	}
	statuses := stageStatuses(latestRun(t, h))
	if statuses[types.StageResearchName] != types.StageCacheHit {
		t.Fatalf("research status = %s; want cache_hit", statuses[types.StageResearchName])
	}
	if statuses[types.StageScriptName] != types.StageComputed {
		t.Fatalf("script status = %s; want computed", statuses[types.StageScriptName])
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.orch.Run(ctx, "Go Generics Explained")
	if res.Success {
		t.Fatal("cancelled run succeeded")
	}
	if latestRun(t, h).State != types.StateFailed {
		t.Fatal("cancelled run not marked failed")
	}
}
