package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"restock-watcher/internal/types"
)

const browserSwatchHTML = `<html><body>
<div class="swatch-attribute size">
  <div class="swatch-option text" data-option-label="US8.5">US 8.5</div>
  <div class="swatch-option text disabled" data-option-label="US9">US 9</div>
  <div class="swatch-option text" data-option-label="US10" style="display: none">US 10</div>
  <div class="swatch-option text" data-option-label="US11" style="visibility: hidden">US 11</div>
</div>
<script>window.addEventListener("load", () => fetch("/slow"));</script>
</body></html>`

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("chrome is not installed")
}

type shopServer struct {
	*httptest.Server
	slowDone atomic.Bool
}

func newShopServer(t *testing.T, slow time.Duration) *shopServer {
	t.Helper()
	s := &shopServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/shoe.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, browserSwatchHTML)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(slow):
			s.slowDone.Store(true)
		case <-r.Context().Done():
		}
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/hang.html", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/favicon.ico", http.NotFound)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestBrowser(t *testing.T, config *types.Config) *BrowserLoader {
	t.Helper()
	logger, _ := test.NewNullLogger()
	loader, err := NewBrowserLoader(context.Background(), config, logger)
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close() })
	return loader
}

func browserConfig() *types.Config {
	config := types.DefaultConfig()
	config.NavigationTimeout = 15 * time.Second
	config.IdleTimeout = 15 * time.Second
	config.ElementTimeout = 5 * time.Second
	return config
}

func TestBrowserLoader_QueryVisibility(t *testing.T) {
	requireChrome(t)
	shop := newShopServer(t, 300*time.Millisecond)
	loader := newTestBrowser(t, browserConfig())
	ctx := context.Background()

	page, err := loader.Open(ctx, shop.URL+"/shoe.html")
	require.NoError(t, err)
	// network idle is only reached after the request started on load has finished
	assert.True(t, shop.slowDone.Load())

	require.NoError(t, page.WaitFor(ctx, "div.swatch-option", time.Second))

	elements, err := page.Query(ctx, "div.swatch-option")
	require.NoError(t, err)
	require.Len(t, elements, 4)

	label, ok := elements[0].Attr("data-option-label")
	assert.True(t, ok)
	assert.Equal(t, "US8.5", label)
	assert.Equal(t, "US 8.5", elements[0].Text)
	assert.True(t, elements[0].Visible)

	class, _ := elements[1].Attr("class")
	assert.Contains(t, class, "disabled")
	assert.True(t, elements[1].Visible)

	assert.False(t, elements[2].Visible, "display:none")
	assert.False(t, elements[3].Visible, "visibility:hidden")

	none, err := page.Query(ctx, `div.swatch-option[data-option-label="US12"]`)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBrowserPage_WaitForTimeout(t *testing.T) {
	requireChrome(t)
	shop := newShopServer(t, 0)
	loader := newTestBrowser(t, browserConfig())

	page, err := loader.Open(context.Background(), shop.URL+"/shoe.html")
	require.NoError(t, err)

	err = page.WaitFor(context.Background(), "div.size-picker", 200*time.Millisecond)
	assert.ErrorIs(t, err, types.ErrElementWaitTimeout)
}

func TestBrowserLoader_NavigationTimeout(t *testing.T) {
	requireChrome(t)
	shop := newShopServer(t, 0)
	config := browserConfig()
	config.NavigationTimeout = 300 * time.Millisecond
	loader := newTestBrowser(t, config)

	_, err := loader.Open(context.Background(), shop.URL+"/hang.html")
	assert.ErrorIs(t, err, types.ErrNavigationTimeout)
}

func TestBrowserLoader_IdleTimeout(t *testing.T) {
	requireChrome(t)
	shop := newShopServer(t, 5*time.Second)
	config := browserConfig()
	config.IdleTimeout = 200 * time.Millisecond
	loader := newTestBrowser(t, config)

	_, err := loader.Open(context.Background(), shop.URL+"/shoe.html")
	assert.ErrorIs(t, err, types.ErrNavigationTimeout)
}
