package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func newDiskCache(t *testing.T) *Cache {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return New(store)
}

func TestGetMissThenPutThenHit(t *testing.T) {
	c := newDiskCache(t)
	ctx := context.Background()

	fp, err := Fingerprint("search", "google", map[string]string{"q": "go generics"})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	if _, err := c.Get(ctx, fp); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	payload := []byte(`{"results": []}`)
	if _, err := c.Put(ctx, fp, payload, "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Repeated gets return bit-identical data
	for i := 0; i < 3; i++ {
		entry, err := c.Get(ctx, fp)
		if err != nil {
			t.Fatalf("Get after Put: %v", err)
		}
		if !bytes.Equal(entry.Data, payload) {
			t.Fatalf("Get returned %q; want %q", entry.Data, payload)
		}
		if entry.ContentType != "application/json" {
			t.Fatalf("content type = %q", entry.ContentType)
		}
	}
}

func TestEntriesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	fp, _ := Fingerprint("voice", "elevenlabs", map[string]string{"text": "hello"})
	if _, err := store.Put(ctx, fp, []byte("mp3-bytes"), "audio/mpeg"); err != nil {
		t.Fatal(err)
	}

	// Simulate a process restart by opening a fresh store on the same dir
	reopened, err := NewDiskStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := reopened.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(entry.Data) != "mp3-bytes" {
		t.Fatalf("data = %q", entry.Data)
	}
}

func TestClearScoped(t *testing.T) {
	c := newDiskCache(t)
	ctx := context.Background()

	fpSearch, _ := Fingerprint("search", "google", "q1")
	fpShot, _ := Fingerprint("screenshot", "chromedp", "https://example.com")
	c.Put(ctx, fpSearch, []byte("a"), "text/plain")
	c.Put(ctx, fpShot, []byte("b"), "image/png")

	if err := c.Clear(ctx, "search"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := c.Get(ctx, fpSearch); !errors.Is(err, ErrMiss) {
		t.Fatal("search entry survived scoped clear")
	}
	if _, err := c.Get(ctx, fpShot); err != nil {
		t.Fatalf("screenshot entry should survive scoped clear: %v", err)
	}

	if err := c.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if _, err := c.Get(ctx, fpShot); !errors.Is(err, ErrMiss) {
		t.Fatal("entry survived full clear")
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := newDiskCache(t)
	ctx := context.Background()
	fp, _ := Fingerprint("screenshot", "chromedp", map[string]string{"url": "https://example.com/pricing"})

	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			entry, _, err := c.GetOrCompute(ctx, fp, "image/png", func(context.Context) ([]byte, error) {
				calls.Add(1)
				return []byte("png-bytes"), nil
			})
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
				return
			}
			if string(entry.Data) != "png-bytes" {
				t.Errorf("data = %q", entry.Data)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("provider call count = %d; want exactly 1", got)
	}
}

func TestGetOrComputeFailureDoesNotPopulate(t *testing.T) {
	c := newDiskCache(t)
	ctx := context.Background()
	fp, _ := Fingerprint("llm", "cohere", "prompt")

	wantErr := errors.New("rate limited")
	_, _, err := c.GetOrCompute(ctx, fp, "text/plain", func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v; want %v", err, wantErr)
	}

	if _, err := c.Get(ctx, fp); !errors.Is(err, ErrMiss) {
		t.Fatal("failed compute populated the cache")
	}

	// A later successful compute works and is cached
	entry, hit, err := c.GetOrCompute(ctx, fp, "text/plain", func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || hit {
		t.Fatalf("retry compute: entry=%v hit=%v err=%v", entry, hit, err)
	}
	if _, hit, _ := c.GetOrCompute(ctx, fp, "text/plain", nil); !hit {
		t.Fatal("expected cache hit after successful compute")
	}
}
