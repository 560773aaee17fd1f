package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipforge/cache"
	"clipforge/config"
	"clipforge/providers"
	"clipforge/types"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	store, err := cache.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(cache.New(store), config.RetryConfig{
		MaxAttempts:      3,
		InitialBackoffMS: 1,
		MaxBackoffMS:     4,
		CallTimeoutSecs:  5,
	})
}

func TestCallRetriesTransientFailures(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32

	data, hit, err := r.Call(context.Background(), "llm", "fake", map[string]interface{}{"q": "x"}, "text/plain", func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, providers.Transient("fake", errors.New("rate limited"))
		}
		return []byte("ok"), nil
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if hit {
		t.Fatal("first call reported a cache hit")
	}
	if string(data) != "ok" {
		t.Fatalf("data = %q", data)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d; want 3", calls.Load())
	}
}

func TestCallDoesNotRetryFatal(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32

	_, _, err := r.Call(context.Background(), "llm", "fake", map[string]interface{}{"q": "x"}, "text/plain", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, providers.Fatal("fake", errors.New("invalid api key"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var fatal *providers.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("err = %v; want FatalError", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d; want 1", calls.Load())
	}
}

func TestCallGivesUpAfterMaxAttempts(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32

	_, _, err := r.Call(context.Background(), "llm", "fake", map[string]interface{}{"q": "x"}, "text/plain", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, providers.Transient("fake", errors.New("timeout"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d; want 3", calls.Load())
	}

	// Failures never populate the cache: the next call computes again.
	data, hit, err := r.Call(context.Background(), "llm", "fake", map[string]interface{}{"q": "x"}, "text/plain", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("ok"), nil
	})
	if err != nil || hit {
		t.Fatalf("retry after failure: data=%q hit=%v err=%v", data, hit, err)
	}
}

func TestCallServesSecondRequestFromCache(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("payload"), nil
	}
	params := map[string]interface{}{"url": "https://example.com"}

	if _, hit, err := r.Call(context.Background(), "pagefetch", "readability", params, "text/plain", compute); err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	data, hit, err := r.Call(context.Background(), "pagefetch", "readability", params, "text/plain", compute)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("second identical call missed the cache")
	}
	if string(data) != "payload" || calls.Load() != 1 {
		t.Fatalf("data=%q calls=%d", data, calls.Load())
	}
}

func TestCallCollapsesConcurrentIdenticalRequests(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32
	params := map[string]interface{}{"url": "https://example.com/page"}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.Call(context.Background(), "screenshot", "chromedp", params, "image/png", func(ctx context.Context) ([]byte, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond)
				return []byte("png"), nil
			})
			if err != nil {
				t.Errorf("Call: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("underlying calls = %d; want 1", calls.Load())
	}
}

func TestRunStageReportsCacheHitOnRerun(t *testing.T) {
	r := testRunner(t)
	var calls atomic.Int32
	inputs := map[string]interface{}{"topic": "go generics"}
	compute := func(ctx context.Context) (interface{}, error) {
		calls.Add(1)
		return &types.ResearchBundle{Topic: "go generics", KeyFacts: []string{"a", "b"}}, nil
	}

	var first types.ResearchBundle
	status, err := r.RunStage(context.Background(), types.StageResearchName, inputs, &first, compute)
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StageComputed {
		t.Fatalf("status = %s; want computed", status)
	}

	var second types.ResearchBundle
	status, err = r.RunStage(context.Background(), types.StageResearchName, inputs, &second, compute)
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StageCacheHit {
		t.Fatalf("status = %s; want cache_hit", status)
	}
	if calls.Load() != 1 {
		t.Fatalf("compute ran %d times; want 1", calls.Load())
	}
	if len(second.KeyFacts) != 2 || second.Topic != "go generics" {
		t.Fatalf("cached payload = %+v", second)
	}
}

func TestRunStageFailureLeavesNoEntry(t *testing.T) {
	r := testRunner(t)
	inputs := map[string]interface{}{"topic": "x"}

	var out types.ResearchBundle
	status, err := r.RunStage(context.Background(), types.StageResearchName, inputs, &out, func(ctx context.Context) (interface{}, error) {
		return nil, providers.Fatal("llm", fmt.Errorf("quota exhausted"))
	})
	if err == nil || status != types.StageFailed {
		t.Fatalf("status=%s err=%v", status, err)
	}

	status, err = r.RunStage(context.Background(), types.StageResearchName, inputs, &out, func(ctx context.Context) (interface{}, error) {
		return &types.ResearchBundle{Topic: "x"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StageComputed {
		t.Fatalf("status after failure = %s; want computed", status)
	}
}
