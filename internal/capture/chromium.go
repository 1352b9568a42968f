// Package capture renders the calendar page to a PNG with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "calgrid/internal/log"
)

// Default capture parameters. They fit the month page at a 7-column width.
const (
	DefaultWidth   = 800
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second

	// readySelector matches the page root once it has been rendered.
	readySelector = `[data-ready="true"]`
)

// Options defines parameters for a screenshot.
type Options struct {
	// OutputPath is where the PNG is written. Parent directories are created.
	OutputPath string

	// Path and Query select the page, e.g. "/calendar" and "lang=de".
	Path  string
	Query url.Values

	// Width and Height are the viewport dimensions in pixels.
	Width  int
	Height int

	// Timeout bounds the whole capture.
	Timeout time.Duration

	// ExecPath points at a Chromium binary; empty uses chromedp's lookup.
	ExecPath string
}

func (o *Options) normalize() error {
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Path == "" {
		o.Path = "/calendar"
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// Snapshot serves h on a loopback port for the duration of the capture and
// screenshots opts.Path. h is served without authentication, so pass the
// unwrapped page handler rather than the public one.
func Snapshot(ctx context.Context, h http.Handler, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	base, stop, err := serveLocal(h)
	if err != nil {
		return err
	}
	defer stop()

	u := base + opts.Path
	if len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}
	return CapturePNG(ctx, u, opts)
}

// CapturePNG navigates headless Chromium to pageURL, waits until the page
// root carries data-ready="true" and writes a full-page PNG.
func CapturePNG(parentCtx context.Context, pageURL string, opts Options) error {
	if pageURL == "" {
		return errors.New("capture: URL is required")
	}
	if err := opts.normalize(); err != nil {
		return err
	}

	allocCtx := parentCtx
	if opts.ExecPath != "" {
		var cancelAlloc context.CancelFunc
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(opts.ExecPath))
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parentCtx, allocOpts...)
		defer cancelAlloc()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	start := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("snapshot written", "path", opts.OutputPath, "bytes", len(png), "took", time.Since(start))
	return nil
}

// serveLocal starts h on 127.0.0.1 with a random port and returns its base
// URL and a stop function.
func serveLocal(h http.Handler) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("capture: listen: %w", err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("capture: local server failed", err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return "http://" + ln.Addr().String(), stop, nil
}
