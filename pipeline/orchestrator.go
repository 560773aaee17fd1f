// Package pipeline contains the orchestration engine: the cached, retrying
// stage runner, the run tracker, and the seven-stage state machine that
// turns a topic into a rendered video.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/config"
	"clipforge/providers"
	"clipforge/stages"
	"clipforge/timeline"
	"clipforge/types"
)

// Orchestrator runs the fixed stage sequence. Stages execute strictly in
// order except Visuals and Voice, which are independent and run
// concurrently; both complete before Sync starts.
type Orchestrator struct {
	cfg      config.Config
	registry *providers.Registry
	runner   *Runner
	tracker  *Tracker
}

func NewOrchestrator(cfg config.Config, registry *providers.Registry, runner *Runner, tracker *Tracker) *Orchestrator {
	return &Orchestrator{cfg: cfg, registry: registry, runner: runner, tracker: tracker}
}

// Run executes the full pipeline synchronously and returns the structured
// result. It never returns a partially assembled video: any escalated stage
// error halts the state machine with the accumulated log.
func (o *Orchestrator) Run(ctx context.Context, topic string) *types.Result {
	id := o.tracker.Create(topic)
	return o.run(ctx, id, topic)
}

// Start launches a run in the background and returns its tracker ID.
func (o *Orchestrator) Start(ctx context.Context, topic string) string {
	id := o.tracker.Create(topic)
	go o.run(ctx, id, topic)
	return id
}

type assemblyPayload struct {
	VideoPath string `json:"video_path"`
	Warning   string `json:"warning,omitempty"`
}

type metadataPayload struct {
	Meta types.Metadata `json:"meta"`
	Path string         `json:"path"`
}

func (o *Orchestrator) run(ctx context.Context, id, topic string) *types.Result {
	t0 := time.Now()
	res := &types.Result{}

	logf := func(format string, args ...interface{}) {
		line := fmt.Sprintf(format, args...)
		log.Printf("[Pipeline] %s", line)
		o.tracker.AppendLog(id, line)
		res.Log = append(res.Log, line)
	}
	fail := func(err error) *types.Result {
		o.tracker.Finish(id, types.StateFailed)
		res.Success = false
		res.Error = err.Error()
		logf("failed after %s: %v", time.Since(t0).Round(time.Millisecond), err)
		return res
	}

	runDir := filepath.Join(o.cfg.OutputDir, fmt.Sprintf("%s_%s", safeStem(topic), id[:8]))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fail(fmt.Errorf("create run directory: %w", err))
	}
	env := stages.Env{
		Cfg:      o.cfg,
		Registry: o.registry,
		Caller:   o.runner,
		RunDir:   runDir,
		AssetDir: filepath.Join(o.cfg.Cache.Dir, "assets"),
	}

	logf("output directory: %s", runDir)
	logf("pipeline %q | llm=%s search=%s voice=%s", topic,
		o.cfg.LLM.Provider, o.cfg.Search.Provider, o.cfg.Voice.Provider)

	runStage := func(k int, name string, state types.State, fn func(ctx context.Context) (types.StageStatus, error)) error {
		if err := ctx.Err(); err != nil {
			logf("cancelled before %s", name)
			return err
		}
		o.tracker.SetState(id, state)
		start := time.Now()
		status, err := fn(ctx)
		d := time.Since(start).Round(time.Millisecond)
		result := types.StageResult{Stage: name, Status: status, Duration: d}
		if err != nil {
			result.Status = types.StageFailed
			result.Error = err.Error()
			o.tracker.AppendStage(id, result)
			logf("%d/%d %s… failed in %s: %v", k, types.StageCount, name, d, err)
			return err
		}
		o.tracker.AppendStage(id, result)
		logf("%d/%d %s… %s in %s", k, types.StageCount, name, status, d)
		return nil
	}

	// 1/7 Research
	var research types.ResearchBundle
	if err := runStage(1, types.StageResearchName, types.StateResearch, func(ctx context.Context) (types.StageStatus, error) {
		inputs := map[string]interface{}{
			"topic":           topic,
			"llm_provider":    o.cfg.LLM.Provider,
			"llm_model":       o.cfg.LLM.Model,
			"search_provider": o.cfg.Search.Provider,
			"max_results":     o.cfg.Search.MaxResults,
			"top_pages":       o.cfg.Search.TopPagesToFetch,
		}
		return o.runner.RunStage(ctx, types.StageResearchName, inputs, &research, func(ctx context.Context) (interface{}, error) {
			return stages.Research(ctx, env, topic)
		})
	}); err != nil {
		return fail(err)
	}
	saveStep(runDir, "research", research)

	// 2/7 Script
	var script types.Script
	if err := runStage(2, types.StageScriptName, types.StateScript, func(ctx context.Context) (types.StageStatus, error) {
		inputs := map[string]interface{}{
			"research":     research,
			"llm_provider": o.cfg.LLM.Provider,
			"llm_model":    o.cfg.LLM.Model,
			"script":       o.cfg.Script,
		}
		return o.runner.RunStage(ctx, types.StageScriptName, inputs, &script, func(ctx context.Context) (interface{}, error) {
			return stages.GenerateScript(ctx, env, &research)
		})
	}); err != nil {
		return fail(err)
	}
	saveStep(runDir, "script", script)

	// 3/7 Visuals and 4/7 Voice run concurrently. Both complete before the
	// join is inspected, so a failure in one never cuts the other short and
	// its finished work still lands in the cache.
	if err := ctx.Err(); err != nil {
		logf("cancelled before %s", types.StageVisualsName)
		return fail(err)
	}
	o.tracker.SetState(id, types.StateVisuals)

	type outcome struct {
		status types.StageStatus
		d      time.Duration
		err    error
	}
	var visuals timeline.ResolvedVisuals
	var chunks []types.AudioChunk
	var visOut, voiceOut outcome

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		inputs := map[string]interface{}{
			"script":     script,
			"screenshot": o.cfg.Screenshot,
			"style":      o.cfg.Video.AccentColours,
		}
		status, err := o.runner.RunStage(ctx, types.StageVisualsName, inputs, &visuals, func(ctx context.Context) (interface{}, error) {
			return stages.CollectVisuals(ctx, env, &script)
		})
		visOut = outcome{status, time.Since(start).Round(time.Millisecond), err}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		inputs := map[string]interface{}{
			"script":         script,
			"voice_provider": o.cfg.Voice.Provider,
			"voice_id":       o.cfg.Voice.VoiceID,
			"voice_model":    o.cfg.Voice.Model,
		}
		status, err := o.runner.RunStage(ctx, types.StageVoiceName, inputs, &chunks, func(ctx context.Context) (interface{}, error) {
			return stages.SynthesizeVoice(ctx, env, &script)
		})
		voiceOut = outcome{status, time.Since(start).Round(time.Millisecond), err}
		return nil
	})
	_ = g.Wait()

	var firstErr error
	for _, s := range []struct {
		k    int
		name string
		out  outcome
	}{
		{3, types.StageVisualsName, visOut},
		{4, types.StageVoiceName, voiceOut},
	} {
		result := types.StageResult{Stage: s.name, Status: s.out.status, Duration: s.out.d}
		if s.out.err != nil {
			result.Status = types.StageFailed
			result.Error = s.out.err.Error()
			logf("%d/%d %s… failed in %s: %v", s.k, types.StageCount, s.name, s.out.d, s.out.err)
			if firstErr == nil {
				firstErr = s.out.err
			}
		} else {
			logf("%d/%d %s… %s in %s", s.k, types.StageCount, s.name, s.out.status, s.out.d)
		}
		o.tracker.AppendStage(id, result)
	}
	if firstErr != nil {
		return fail(firstErr)
	}

	// 5/7 Sync
	var intervals []types.TimelineInterval
	if err := runStage(5, types.StageSyncName, types.StateSync, func(ctx context.Context) (types.StageStatus, error) {
		inputs := map[string]interface{}{"script": script, "chunks": chunks, "visuals": visuals}
		return o.runner.RunStage(ctx, types.StageSyncName, inputs, &intervals, func(ctx context.Context) (interface{}, error) {
			return stages.BuildTimeline(env, &script, chunks, &visuals)
		})
	}); err != nil {
		return fail(err)
	}
	saveStep(runDir, "timeline", intervals)

	// 6/7 Assembly
	var assembled assemblyPayload
	if err := runStage(6, types.StageAssemblyName, types.StateAssembly, func(ctx context.Context) (types.StageStatus, error) {
		inputs := map[string]interface{}{
			"timeline": intervals,
			"chunks":   chunks,
			"video":    o.cfg.Video,
			"sync":     o.cfg.Sync,
		}
		return o.runner.RunStage(ctx, types.StageAssemblyName, inputs, &assembled, func(ctx context.Context) (interface{}, error) {
			videoPath, warning, err := stages.Assemble(ctx, env, intervals, chunks)
			if err != nil {
				return nil, err
			}
			return assemblyPayload{VideoPath: videoPath, Warning: warning}, nil
		})
	}); err != nil {
		return fail(err)
	}
	if assembled.Warning != "" {
		logf("warning: %s", assembled.Warning)
	}

	// 7/7 Metadata
	var meta metadataPayload
	if err := runStage(7, types.StageMetadataName, types.StateMetadata, func(ctx context.Context) (types.StageStatus, error) {
		inputs := map[string]interface{}{
			"title":    script.Title,
			"topic":    script.Topic,
			"facts":    research.KeyFacts,
			"metadata": o.cfg.Metadata,
		}
		return o.runner.RunStage(ctx, types.StageMetadataName, inputs, &meta, func(ctx context.Context) (interface{}, error) {
			m, path, err := stages.GenerateMetadata(ctx, env, &script, &research)
			if err != nil {
				return nil, err
			}
			return metadataPayload{Meta: *m, Path: path}, nil
		})
	}); err != nil {
		return fail(err)
	}

	o.tracker.Finish(id, types.StateSucceeded)
	res.Success = true
	res.VideoPath = assembled.VideoPath
	res.MetadataPath = meta.Path
	logf("done in %s", time.Since(t0).Round(time.Millisecond))
	return res
}

// saveStep dumps a stage payload to the run directory for inspection.
func saveStep(dir, name string, payload interface{}) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
		log.Printf("[Pipeline] save %s.json failed: %v", name, err)
	}
}

var nonWord = regexp.MustCompile(`[^\w\s-]`)

func safeStem(topic string) string {
	s := nonWord.ReplaceAllString(topic, "")
	s = strings.Join(strings.Fields(s), "_")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		return "video"
	}
	return s
}
