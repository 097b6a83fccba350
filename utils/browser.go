package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"restock-watcher/internal/types"
)

// queryScript snapshots every element matching a selector. Visibility follows the
// rendered layout (non-empty client rects and not visibility:hidden), not DOM presence.
const queryScript = `Array.from(document.querySelectorAll(%s)).map(el => {
	const attributes = {};
	for (const a of el.attributes) attributes[a.name] = a.value;
	const style = window.getComputedStyle(el);
	return {
		attributes: attributes,
		text: (el.textContent || "").trim(),
		visible: el.getClientRects().length > 0 && style.visibility !== "hidden"
	};
})`

// BrowserLoader holds one headless Chrome tab for the whole poll cycle.
// Pages opened through it share the tab and are visited one after another.
type BrowserLoader struct {
	config      *types.Config
	logger      types.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewBrowserLoader launches the browser. The caller must Close it.
func NewBrowserLoader(ctx context.Context, config *types.Config, logger types.Logger) (*BrowserLoader, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(config.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Debugf),
	)

	// An empty Run starts the browser and the first tab
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Debug("Browser session started")
	return &BrowserLoader{
		config:      config,
		logger:      logger,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// scoped derives a context that runs on the browser tab, expires after timeout
// and is cancelled together with the caller's ctx.
func (b *BrowserLoader) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	scoped, cancel := context.WithTimeout(b.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return scoped, func() {
		stop()
		cancel()
	}
}

// Open navigates the tab to url and waits for network idle
func (b *BrowserLoader) Open(ctx context.Context, url string) (types.Page, error) {
	var started atomic.Bool
	idle := make(chan struct{}, 1)

	listenCtx, stopListening := context.WithCancel(b.ctx)
	defer stopListening()

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		switch e.Name {
		case "init":
			started.Store(true)
		case "networkIdle":
			if started.Load() {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		}
	})

	navCtx, cancel := b.scoped(ctx, b.config.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetLifecycleEventsEnabled(true).Do(ctx)
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %v", types.ErrNavigationTimeout, url, b.config.NavigationTimeout)
		}
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	timer := time.NewTimer(b.config.IdleTimeout)
	defer timer.Stop()

	select {
	case <-idle:
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s did not reach network idle within %v", types.ErrNavigationTimeout, url, b.config.IdleTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.logger.Debugf("Loaded %s", url)
	return &browserPage{loader: b, url: url}, nil
}

// Close shuts the browser down. Safe to call more than once.
func (b *BrowserLoader) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	b.logger.Debug("Browser session closed")
	return err
}

type browserPage struct {
	loader *BrowserLoader
	url    string
}

func (p *browserPage) URL() string {
	return p.url
}

// WaitFor waits for selector to exist in the DOM
func (p *browserPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := p.loader.scoped(ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s on %s after %v", types.ErrElementWaitTimeout, selector, p.url, timeout)
		}
		return fmt.Errorf("failed to wait for %s: %w", selector, err)
	}
	return nil
}

// Query snapshots attributes, text and layout visibility of every matching element
func (p *browserPage) Query(ctx context.Context, selector string) ([]types.Element, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selector: %w", err)
	}

	queryCtx, cancel := p.loader.scoped(ctx, p.loader.config.ElementTimeout)
	defer cancel()

	var elements []types.Element
	if err := chromedp.Run(queryCtx, chromedp.Evaluate(fmt.Sprintf(queryScript, quoted), &elements)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return elements, nil
}
