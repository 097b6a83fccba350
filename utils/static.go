package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"restock-watcher/internal/types"
)

// StaticPage is a page parsed from server-rendered HTML without running scripts.
// Visibility is approximated from the hidden attribute and inline display/visibility
// styles on the element and its ancestors.
type StaticPage struct {
	url string
	doc *goquery.Document
}

// NewStaticPage parses html into a queryable page
func NewStaticPage(url, body string) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &StaticPage{url: url, doc: doc}, nil
}

// URL returns the page address
func (p *StaticPage) URL() string {
	return p.url
}

// WaitFor checks once for selector; static markup never changes after load
func (p *StaticPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s not found on %s", types.ErrElementWaitTimeout, selector, p.url)
	}
	return nil
}

// Query returns every element matching selector
func (p *StaticPage) Query(ctx context.Context, selector string) ([]types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var elements []types.Element
	p.doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		attrs := make(map[string]string, len(node.Attr))
		for _, a := range node.Attr {
			attrs[a.Key] = a.Val
		}
		elements = append(elements, types.Element{
			Attributes: attrs,
			Text:       strings.TrimSpace(s.Text()),
			Visible:    staticVisible(node),
		})
	})
	return elements, nil
}

func staticVisible(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "hidden":
				return false
			case "style":
				style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
				if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
					return false
				}
			}
		}
	}
	return true
}

// StaticLoader fetches pages over HTTP for sites that render size options server side
type StaticLoader struct {
	client *HTTPClient
	logger types.Logger
}

// NewStaticLoader creates a loader backed by a new HTTP client
func NewStaticLoader(config *types.Config, logger types.Logger) (*StaticLoader, error) {
	client, err := NewHTTPClient(config, logger)
	if err != nil {
		return nil, err
	}
	return &StaticLoader{client: client, logger: logger}, nil
}

// Open fetches and parses url
func (l *StaticLoader) Open(ctx context.Context, url string) (types.Page, error) {
	body, err := l.client.Get(ctx, url)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrNavigationTimeout, url, err)
		}
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	l.logger.Debugf("Fetched %d bytes from %s", len(body), url)
	page, err := NewStaticPage(url, string(body))
	if err != nil {
		return nil, err
	}
	return page, nil
}

// isTimeout reports whether err came from the caller's deadline or from the
// client's own request timeout, which surfaces as a net.Error rather than
// context.DeadlineExceeded.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Close releases the HTTP client
func (l *StaticLoader) Close() error {
	l.client.Close()
	return nil
}
