package render

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/myrjola/nearmiss/internal/errors"
)

const (
	DefaultBrowserTimeout = 30 * time.Second

	viewportWidth  = 1920
	viewportHeight = 1080
)

// Browser captures screenshots with a headless Chrome started for each capture.
type Browser struct {
	// execPath is the Chrome executable. Empty means chromedp looks it up.
	execPath string
	timeout  time.Duration
}

func NewBrowser(execPath string, timeout time.Duration) *Browser {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	return &Browser{execPath: execPath, timeout: timeout}
}

// Capture implements Capturer.
func (b *Browser) Capture(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, errors.Wrap(err, "run browser")
	}
	return png, nil
}
