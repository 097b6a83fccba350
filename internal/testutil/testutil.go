// Package testutil holds in-memory collaborators for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"restock-watcher/internal/types"
	"restock-watcher/utils"
)

// PageSpec describes what FakeLoader returns for one URL
type PageSpec struct {
	HTML     string
	OpenErr  error
	WaitErr  error
	QueryErr error
}

// FakeLoader serves static HTML pages keyed by URL
type FakeLoader struct {
	mu     sync.Mutex
	Pages  map[string]PageSpec
	Opened []string
	Closed int
}

// NewFakeLoader creates a loader for pages
func NewFakeLoader(pages map[string]PageSpec) *FakeLoader {
	return &FakeLoader{Pages: pages}
}

// Open returns the page registered for url
func (l *FakeLoader) Open(ctx context.Context, url string) (types.Page, error) {
	l.mu.Lock()
	l.Opened = append(l.Opened, url)
	ps, ok := l.Pages[url]
	l.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no page registered for %s", url)
	}
	if ps.OpenErr != nil {
		return nil, ps.OpenErr
	}

	page, err := utils.NewStaticPage(url, ps.HTML)
	if err != nil {
		return nil, err
	}
	return &FakePage{StaticPage: page, WaitErr: ps.WaitErr, QueryErr: ps.QueryErr}, nil
}

// Close counts releases
func (l *FakeLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Closed++
	return nil
}

// FakePage is a static page with injectable failures
type FakePage struct {
	*utils.StaticPage
	WaitErr  error
	QueryErr error
}

// WaitFor fails with WaitErr when set
func (p *FakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if p.WaitErr != nil {
		return p.WaitErr
	}
	return p.StaticPage.WaitFor(ctx, selector, timeout)
}

// Query fails with QueryErr when set
func (p *FakePage) Query(ctx context.Context, selector string) ([]types.Element, error) {
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	return p.StaticPage.Query(ctx, selector)
}

// RecordingDispatcher records every notification and answers with Result
type RecordingDispatcher struct {
	mu     sync.Mutex
	Events []types.NotificationEvent
	Result func(size types.SizeKey, url string) types.DeliveryResult
}

// Notify records the call
func (d *RecordingDispatcher) Notify(ctx context.Context, size types.SizeKey, url string) types.DeliveryResult {
	d.mu.Lock()
	d.Events = append(d.Events, types.NotificationEvent{Size: size, URL: url})
	d.mu.Unlock()

	if d.Result != nil {
		return d.Result(size, url)
	}
	return types.DeliveryResult{OK: true, StatusCode: 200}
}

// Swatch renders a swatch size picker; each option is "label|class|style"
func Swatch(options ...string) string {
	body := `<html><body><div class="swatch-attribute size">`
	for _, opt := range options {
		parts := strings.SplitN(opt, "|", 3)
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		body += fmt.Sprintf(`<div class="swatch-option text %s" data-option-label="%s" style="%s">%s</div>`,
			parts[1], parts[0], parts[2], parts[0])
	}
	return body + `</div></body></html>`
}
