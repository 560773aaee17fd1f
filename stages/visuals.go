package stages

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"clipforge/providers"
	"clipforge/timeline"
	"clipforge/types"
)

// CollectVisuals resolves every visual marker in the script to a concrete
// asset and renders a fallback title card per segment. Screenshot fetches
// fan out over a bounded worker pool; a failed fetch leaves a nil slot that
// the synchronizer later fills with the segment default.
func CollectVisuals(ctx context.Context, env Env, script *types.Script) (*timeline.ResolvedVisuals, error) {
	encoder, err := env.Registry.Encoder(env.Cfg.Video.Provider)
	if err != nil {
		return nil, err
	}

	visuals := &timeline.ResolvedVisuals{
		ByMarker: make(map[string][]*types.VisualAsset),
		Defaults: make(map[string]types.VisualAsset),
	}

	for i, seg := range script.Segments {
		card, err := renderCard(ctx, env, encoder, providers.TitleCardSpec{
			Title:       seg.Title,
			SegmentType: seg.Type,
			Accent:      accent(env.Cfg.Video.AccentColours, i),
		})
		if err != nil {
			return nil, fmt.Errorf("title card for %s: %w", seg.ID, err)
		}
		visuals.Defaults[seg.ID] = types.VisualAsset{
			SegmentID: seg.ID, Type: "title_card", FilePath: card,
		}
	}

	// Repeated captures of the same URL scroll progressively further, so
	// scroll indices are assigned in marker order before the fan-out.
	type job struct {
		segID  string
		slot   int
		marker types.VisualMarker
		req    providers.CaptureRequest
	}
	var jobs []job
	urlCounts := make(map[string]int)
	cardIdx := 0
	for _, seg := range script.Segments {
		visuals.ByMarker[seg.ID] = make([]*types.VisualAsset, len(seg.Markers))
		for slot, marker := range seg.Markers {
			switch marker.Type {
			case "screenshot":
				req := providers.CaptureRequest{
					URL:         marker.URL,
					FocusText:   marker.FocusText,
					ScrollIndex: urlCounts[marker.URL],
				}
				urlCounts[marker.URL]++
				jobs = append(jobs, job{segID: seg.ID, slot: slot, marker: marker, req: req})
			case "visual":
				card, err := renderCard(ctx, env, encoder, providers.TitleCardSpec{
					Title:       marker.Description,
					SegmentType: "visual",
					Accent:      accent(env.Cfg.Video.AccentColours, cardIdx),
				})
				cardIdx++
				if err != nil {
					log.Printf("[Visual] card render failed for %q: %v", marker.Description, err)
					continue
				}
				visuals.ByMarker[seg.ID][slot] = &types.VisualAsset{
					SegmentID: seg.ID, Type: "title_card", FilePath: card, Description: marker.Description,
				}
			}
		}
	}

	shot, err := env.Registry.Screenshot(env.Cfg.Screenshot.Provider)
	if err != nil {
		if len(jobs) > 0 {
			return nil, err
		}
		shot = nil
	}

	workers := env.Cfg.Screenshot.Workers
	if workers <= 0 {
		workers = 3
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, workers)
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			asset, err := capture(ctx, env, shot, j.segID, j.req)
			if err != nil {
				log.Printf("[Visual] screenshot failed %s: %v", j.req.URL, err)
				return
			}
			mu.Lock()
			visuals.ByMarker[j.segID][j.slot] = asset
			mu.Unlock()
		}(j)
	}
	wg.Wait()

	resolved := 0
	for _, slots := range visuals.ByMarker {
		for _, a := range slots {
			if a != nil {
				resolved++
			}
		}
	}
	log.Printf("[Visual] %d/%d markers resolved, %d title cards", resolved, len(jobs), len(visuals.Defaults))
	return visuals, nil
}

func capture(ctx context.Context, env Env, shot providers.Screenshot, segID string, req providers.CaptureRequest) (*types.VisualAsset, error) {
	data, _, err := env.Caller.Call(ctx, string(providers.CapScreenshot), shot.Name(), req, "image/png", func(ctx context.Context) ([]byte, error) {
		return shot.Capture(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	path, err := env.assetPath("screenshots", req, ".png")
	if err != nil {
		return nil, err
	}
	if err := materialize(path, data); err != nil {
		return nil, err
	}
	return &types.VisualAsset{
		SegmentID: segID, Type: "screenshot", FilePath: path, URL: req.URL,
	}, nil
}

// renderCard renders a title card unless an identical one already exists.
func renderCard(ctx context.Context, env Env, encoder providers.Encoder, spec providers.TitleCardSpec) (string, error) {
	path, err := env.assetPath("cards", spec, ".png")
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return path, nil
	}
	if err := encoder.RenderTitleCard(ctx, spec, path); err != nil {
		return "", err
	}
	return path, nil
}

func accent(colours []string, i int) string {
	if len(colours) == 0 {
		return "#4A9EFF"
	}
	return colours[i%len(colours)]
}
