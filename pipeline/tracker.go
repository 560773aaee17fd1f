package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/types"
)

const maxTrackedLogs = 200

// Tracker holds live and finished pipeline runs with thread-safe access.
// The REST status endpoint and the TUI poll it while runs execute.
type Tracker struct {
	mu   sync.RWMutex
	runs map[string]*types.PipelineRun
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*types.PipelineRun)}
}

// Create registers a new run in state idle and returns its ID.
func (t *Tracker) Create(topic string) string {
	id := uuid.New().String()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[id] = &types.PipelineRun{
		ID:        id,
		Topic:     topic,
		State:     types.StateIdle,
		StartedAt: time.Now(),
	}
	return id
}

// Get returns a snapshot of a run, or nil if unknown.
func (t *Tracker) Get(id string) *types.PipelineRun {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[id]
	if !ok {
		return nil
	}
	snapshot := *run
	snapshot.Stages = append([]types.StageResult{}, run.Stages...)
	snapshot.Log = append([]string{}, run.Log...)
	return &snapshot
}

// List returns snapshots of all runs, newest first.
func (t *Tracker) List() []*types.PipelineRun {
	t.mu.RLock()
	ids := make([]string, 0, len(t.runs))
	for id := range t.runs {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	runs := make([]*types.PipelineRun, 0, len(ids))
	for _, id := range ids {
		if r := t.Get(id); r != nil {
			runs = append(runs, r)
		}
	}
	for i := 0; i < len(runs); i++ {
		for j := i + 1; j < len(runs); j++ {
			if runs[j].StartedAt.After(runs[i].StartedAt) {
				runs[i], runs[j] = runs[j], runs[i]
			}
		}
	}
	return runs
}

// SetState moves a run to a new state.
func (t *Tracker) SetState(id string, state types.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if run, ok := t.runs[id]; ok {
		run.State = state
	}
}

// AppendLog adds a progress line, keeping a bounded tail.
func (t *Tracker) AppendLog(id, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[id]
	if !ok {
		return
	}
	run.Log = append(run.Log, line)
	if len(run.Log) > maxTrackedLogs {
		run.Log = run.Log[len(run.Log)-maxTrackedLogs:]
	}
}

// AppendStage records one stage outcome.
func (t *Tracker) AppendStage(id string, result types.StageResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if run, ok := t.runs[id]; ok {
		run.Stages = append(run.Stages, result)
	}
}

// Finish marks a run terminal.
func (t *Tracker) Finish(id string, state types.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if run, ok := t.runs[id]; ok {
		run.State = state
		run.EndedAt = time.Now()
	}
}
