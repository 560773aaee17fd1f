// Package screenshot contains the headless-browser capture adapter.
package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"clipforge/providers"
)

// Chromedp captures page screenshots with headless Chrome.
type Chromedp struct {
	width   int
	height  int
	timeout time.Duration
}

// NewChromedp builds the adapter with the configured viewport and per-capture
// timeout.
func NewChromedp(width, height int, timeout time.Duration) *Chromedp {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Chromedp{width: width, height: height, timeout: timeout}
}

func (c *Chromedp) Name() string { return "chromedp" }

// Capture navigates to the URL, scrolls to the focus text when given (or by
// scroll index for repeated captures of the same page), and returns PNG
// bytes.
func (c *Chromedp) Capture(ctx context.Context, req providers.CaptureRequest) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(c.width, c.height),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, c.timeout)
	defer cancelRun()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(c.width), int64(c.height)),
		chromedp.Navigate(req.URL),
		chromedp.Sleep(1500 * time.Millisecond),
	}

	switch {
	case req.FocusText != "":
		// window.find scrolls the first match into view; recenter it so the
		// matched row is not pinned to the viewport edge.
		script := fmt.Sprintf(
			`if (window.find(%q)) { window.scrollBy(0, -window.innerHeight / 2); }`,
			req.FocusText,
		)
		tasks = append(tasks,
			chromedp.Evaluate(script, nil),
			chromedp.Sleep(time.Second),
		)
	case req.ScrollIndex > 0:
		tasks = append(tasks,
			chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, window.innerHeight * 0.8 * %d)`, req.ScrollIndex), nil),
			chromedp.Sleep(time.Second),
		)
	}

	var buf []byte
	tasks = append(tasks, chromedp.CaptureScreenshot(&buf))

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, providers.Transient("capture screenshot", fmt.Errorf("%s: %w", req.URL, err))
	}
	return buf, nil
}
