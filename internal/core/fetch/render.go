package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Renderer loads a page in a real browser so client-side content is present
// in the returned HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (*Result, error)
	Close() error
}

// RodRenderer drives a headless Chrome through go-rod. The browser is
// launched on first use and shared between renders.
type RodRenderer struct {
	bin     string
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewRodRenderer(bin string, timeout time.Duration, logger *zap.Logger) *RodRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RodRenderer{bin: bin, timeout: timeout, logger: logger}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true).Set("disable-dev-shm-usage")
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	r.logger.Info("headless browser started")
	r.launcher, r.browser = l, browser
	return browser, nil
}

func (r *RodRenderer) Render(ctx context.Context, url string) (*Result, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	// let client-side frameworks settle
	if err := sleepContext(ctx, time.Second); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	result := &Result{Status: http.StatusOK, HTML: html, FinalURL: url}
	if info, err := page.Info(); err == nil && info.URL != "" {
		result.FinalURL = info.URL
	}
	return result, nil
}

func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Cleanup()
	r.browser, r.launcher = nil, nil
	return err
}
