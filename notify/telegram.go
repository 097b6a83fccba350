package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"restock-watcher/internal/types"
)

// DefaultAPIURL is the Telegram Bot API endpoint
const DefaultAPIURL = "https://api.telegram.org"

// FormatRestock builds the fixed restock alert text
func FormatRestock(size types.SizeKey, url string) string {
	return fmt.Sprintf("[Restock] %s is back in stock!\n%s", size, url)
}

// Telegram sends restock alerts through the Telegram Bot API.
// Each Notify call sends exactly one message and never retries.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
	logger types.Logger
}

// Option configures a Telegram dispatcher
type Option func(*Telegram)

// WithAPIURL points the dispatcher at another Bot API host
func WithAPIURL(apiURL string) Option {
	return func(t *Telegram) {
		if apiURL != "" {
			t.client.SetBaseURL(strings.TrimRight(apiURL, "/"))
		}
	}
}

// WithTimeout bounds every delivery request
func WithTimeout(timeout time.Duration) Option {
	return func(t *Telegram) {
		t.client.SetTimeout(timeout)
	}
}

// NewTelegram validates the credentials and builds the dispatcher.
// A missing token or chat identifier is a configuration error; nothing is sent.
func NewTelegram(token, chatID string, logger types.Logger, opts ...Option) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: telegram bot token is required", types.ErrConfiguration)
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: telegram chat id is required", types.ErrConfiguration)
	}

	t := &Telegram{
		client: resty.New().
			SetBaseURL(DefaultAPIURL).
			SetTimeout(10 * time.Second).
			SetLogger(logger),
		token:  token,
		chatID: chatID,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Notify sends the restock alert for size on url
func (t *Telegram) Notify(ctx context.Context, size types.SizeKey, url string) types.DeliveryResult {
	text := FormatRestock(size, url)

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":                  t.chatID,
			"text":                     text,
			"disable_web_page_preview": "true",
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		msg := strings.ReplaceAll(err.Error(), t.token, "<token>")
		t.logger.Errorf("[Telegram] delivery to %s failed: %s", t.chatID, msg)
		return types.DeliveryResult{Err: fmt.Errorf("%w: %s", types.ErrDelivery, msg)}
	}

	if resp.StatusCode() != http.StatusOK {
		t.logger.Errorf("[Telegram] delivery failed %d: %s", resp.StatusCode(), resp.String())
		return types.DeliveryResult{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			Err:        fmt.Errorf("%w: status %d", types.ErrDelivery, resp.StatusCode()),
		}
	}

	t.logger.Infof("[Telegram] notified %s: %s", t.chatID, strings.ReplaceAll(text, "\n", " "))
	return types.DeliveryResult{OK: true, StatusCode: resp.StatusCode(), Body: resp.String()}
}

// LogDispatcher only logs alerts, for dry runs
type LogDispatcher struct {
	Logger types.Logger
}

// Notify logs the alert and reports success
func (d LogDispatcher) Notify(ctx context.Context, size types.SizeKey, url string) types.DeliveryResult {
	d.Logger.Infof("[dry-run] would notify: %s", strings.ReplaceAll(FormatRestock(size, url), "\n", " "))
	return types.DeliveryResult{OK: true}
}
