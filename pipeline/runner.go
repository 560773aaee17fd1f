package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"clipforge/cache"
	"clipforge/config"
	"clipforge/providers"
	"clipforge/types"
)

// Runner executes provider calls through the content-addressed cache with
// transient-error retry. Stages share one Runner so identical calls collapse
// to a single in-flight computation.
type Runner struct {
	cache *cache.Cache
	retry config.RetryConfig
}

func NewRunner(c *cache.Cache, retry config.RetryConfig) *Runner {
	return &Runner{cache: c, retry: retry}
}

// Call fingerprints the request, serves a cached result when present, and
// otherwise computes with retry. The bool reports a cache hit. Failed
// computations never populate the cache.
func (r *Runner) Call(ctx context.Context, capability, provider string, params interface{}, contentType string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	fp, err := cache.Fingerprint(capability, provider, params)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint %s/%s: %w", capability, provider, err)
	}

	entry, hit, err := r.cache.GetOrCompute(ctx, fp, contentType, func(ctx context.Context) ([]byte, error) {
		return r.withRetry(ctx, compute)
	})
	if err != nil {
		return nil, false, err
	}
	return entry.Data, hit, nil
}

// RunStage executes one whole pipeline stage through the cache. The stage
// payload is JSON; on a hit the cached payload is decoded into out and the
// compute function is skipped entirely. A failed compute leaves no cache
// entry, so re-running after a mid-pipeline failure replays earlier stages
// as cache hits and recomputes from the point of failure.
func (r *Runner) RunStage(ctx context.Context, stageName string, inputs interface{}, out interface{}, compute func(ctx context.Context) (interface{}, error)) (types.StageStatus, error) {
	fp, err := cache.Fingerprint(strings.ToLower(stageName), "stage", inputs)
	if err != nil {
		return types.StageFailed, fmt.Errorf("fingerprint stage %s: %w", stageName, err)
	}

	entry, hit, err := r.cache.GetOrCompute(ctx, fp, "application/json", func(ctx context.Context) ([]byte, error) {
		payload, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(payload)
	})
	if err != nil {
		return types.StageFailed, err
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return types.StageFailed, fmt.Errorf("decode %s stage payload: %w", stageName, err)
	}
	if hit {
		return types.StageCacheHit, nil
	}
	return types.StageComputed, nil
}

// withRetry runs compute up to MaxAttempts times with exponential backoff
// and jitter. Only transient failures are retried; fatal errors surface on
// the first attempt. Each attempt gets its own timeout detached from the
// parent's cancellation so an in-flight call can finish and cache, but no
// new attempt starts once the parent is cancelled.
func (r *Runner) withRetry(ctx context.Context, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	backoff := time.Duration(r.retry.InitialBackoffMS) * time.Millisecond
	maxBackoff := time.Duration(r.retry.MaxBackoffMS) * time.Millisecond
	timeout := time.Duration(r.retry.CallTimeoutSecs) * time.Second

	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		data, err := compute(callCtx)
		cancel()
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !providers.IsTransient(err) {
			return nil, err
		}
		if attempt == r.retry.MaxAttempts {
			break
		}

		delay := backoff/2 + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", r.retry.MaxAttempts, lastErr)
}
