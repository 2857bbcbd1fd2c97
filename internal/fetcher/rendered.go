package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

const (
	renderViewportWidth  = 1280
	renderViewportHeight = 1024
)

// RenderedFetcher retrieves content through a headless browser so that
// script-generated markup is visible to the comparator. The source's page
// actions run strictly in declared order before capture.
type RenderedFetcher struct {
	cfg     config.RenderedConfig
	log     zerolog.Logger
	mu      sync.Mutex
	browser *rod.Browser
	cleanup func()
}

func NewRenderedFetcher(cfg config.RenderedConfig, log zerolog.Logger) *RenderedFetcher {
	return &RenderedFetcher{
		cfg: cfg,
		log: log.With().Str("component", "rendered_fetcher").Logger(),
	}
}

// Fetch navigates to the source URL, waits for load, executes the source's
// enabled page actions in order, and returns the rendered markup.
func (f *RenderedFetcher) Fetch(ctx context.Context, source *models.Source) ([]byte, error) {
	browser, err := f.ensureBrowser()
	if err != nil {
		return nil, errorx.NewFetchError(source.URL, "browser unavailable", err)
	}

	timeout := time.Duration(f.cfg.LoadTimeoutSeconds) * time.Second
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := browser.Context(pageCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errorx.NewFetchError(source.URL, "failed to create page", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  renderViewportWidth,
		Height: renderViewportHeight,
	}); err != nil {
		f.log.Warn().Err(err).Msg("Failed to set viewport")
	}

	if err := page.Navigate(source.URL); err != nil {
		return nil, errorx.NewFetchError(source.URL, "navigation failed", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errorx.NewFetchError(source.URL, "page load timed out", errorx.ErrTimeout)
	}

	if f.cfg.PostLoadDelaySeconds > 0 {
		if err := sleepCtx(pageCtx, time.Duration(f.cfg.PostLoadDelaySeconds)*time.Second); err != nil {
			return nil, errorx.NewFetchError(source.URL, "render wait interrupted", err)
		}
	}

	for _, action := range source.EnabledActions() {
		if err := f.runAction(pageCtx, page, action); err != nil {
			return nil, errorx.NewFetchError(source.URL, "page action failed", err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, errorx.NewFetchError(source.URL, "failed to capture markup", err)
	}
	if html == "" {
		return nil, errorx.Wrapf(errorx.ErrEmptyContent, "rendered fetch of '%s'", source.URL)
	}

	f.log.Debug().Int64("source_id", source.ID).
		Int("bytes", len(html)).
		Int("actions", len(source.EnabledActions())).
		Msg("Rendered fetch completed")

	return []byte(html), nil
}

// runAction executes one page action, then applies the configured
// post-action delay so the page can settle before the next step.
func (f *RenderedFetcher) runAction(ctx context.Context, page *rod.Page, action models.PageAction) error {
	switch action.Type {
	case models.ActionClick:
		el, err := page.Element(action.Selector)
		if err != nil {
			return errorx.Wrapf(err, "click target '%s' not found", action.Selector)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return errorx.Wrapf(err, "click on '%s' failed", action.Selector)
		}

	case models.ActionWait:
		if err := sleepCtx(ctx, time.Duration(action.WaitSeconds)*time.Second); err != nil {
			return err
		}

	case models.ActionTap:
		x := action.TapX * renderViewportWidth
		y := action.TapY * renderViewportHeight
		if err := page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
			return errorx.Wrap(err, "tap move failed")
		}
		if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return errorx.Wrap(err, "tap click failed")
		}
	}

	if f.cfg.PostActionDelaySeconds > 0 {
		return sleepCtx(ctx, time.Duration(f.cfg.PostActionDelaySeconds)*time.Second)
	}
	return nil
}

// ensureBrowser lazily launches the browser on first use so the process
// starts fast when no rendered sources exist.
func (f *RenderedFetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	if f.cfg.ChromePath != "" {
		l = l.Bin(f.cfg.ChromePath)
	}
	if f.cfg.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errorx.Wrap(err, "failed to launch browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, errorx.Wrap(err, "failed to connect to browser")
	}

	f.browser = browser
	f.cleanup = l.Cleanup
	f.log.Info().Msg("Headless browser started")
	return browser, nil
}

// Close shuts the browser down if it was ever started.
func (f *RenderedFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			f.log.Warn().Err(err).Msg("Browser close failed")
		}
		f.browser = nil
	}
	if f.cleanup != nil {
		f.cleanup()
		f.cleanup = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
