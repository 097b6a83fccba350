package types

import (
	"context"
	"fmt"
	"time"
)

// SizeKey is a size label with all whitespace removed ("US 8.5" -> "US8.5").
// Equality of keys is the only size comparison performed anywhere.
type SizeKey string

// Status is the availability of one size on one page during one cycle
type Status int

const (
	// StatusAbsent means no size option element matched the size
	StatusAbsent Status = iota
	// StatusSoldOut means the option carries a sold-out marker
	StatusSoldOut
	// StatusHidden means the option exists but is not rendered visibly
	StatusHidden
	// StatusAvailable means the option is visible and not marked sold out
	StatusAvailable
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusSoldOut:
		return "sold-out"
	case StatusHidden:
		return "hidden"
	case StatusAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *Status) UnmarshalText(text []byte) error {
	st, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown status %q", text)
	}
	*s = st
	return nil
}

// ParseStatus is the inverse of Status.String
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusAbsent, StatusSoldOut, StatusHidden, StatusAvailable} {
		if st.String() == s {
			return st, true
		}
	}
	return StatusAbsent, false
}

// Site variant strategies
const (
	StrategyAttribute = "attribute"
	StrategyEnumerate = "enumerate"
)

// SiteRules describes how a site template exposes its size options
type SiteRules struct {
	// Strategy selects the matching variant (StrategyAttribute or StrategyEnumerate)
	Strategy string `json:"strategy"`
	// ContainerSelector must exist before extraction starts
	ContainerSelector string `json:"container_selector,omitempty"`
	// OptionSelector matches a single size option element
	OptionSelector string `json:"option_selector,omitempty"`
	// LabelAttribute holds the raw size label; empty means the element text
	LabelAttribute string `json:"label_attribute,omitempty"`
}

// DefaultSiteRules returns the rules for swatch based product templates
func DefaultSiteRules() SiteRules {
	return SiteRules{
		Strategy:          StrategyAttribute,
		ContainerSelector: "div.swatch-option",
		OptionSelector:    "div.swatch-option",
		LabelAttribute:    "data-option-label",
	}
}

// MonitorTarget is a page and the sizes of interest on it
type MonitorTarget struct {
	URL   string    `json:"url"`
	Sizes []SizeKey `json:"sizes"`
	Rules SiteRules `json:"rules"`
}

// HasSize reports whether key belongs to the target's size set
func (t MonitorTarget) HasSize(key SizeKey) bool {
	for _, s := range t.Sizes {
		if s == key {
			return true
		}
	}
	return false
}

// Element is a snapshot of one rendered size option element
type Element struct {
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text"`
	Visible    bool              `json:"visible"`
}

// Attr returns the attribute value and whether it is present
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// NotificationEvent is created for every size found available and consumed once
type NotificationEvent struct {
	Size SizeKey `json:"size"`
	URL  string  `json:"url"`
	Text string  `json:"text"`
}

// DeliveryResult reports the outcome of a single notification
type DeliveryResult struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Err        error  `json:"-"`
}

// Config holds the runtime settings shared by the collaborators.
// UseHeadlessBrowser renders pages in Chrome; when false pages are fetched as static HTML.
type Config struct {
	NavigationTimeout  time.Duration
	IdleTimeout        time.Duration
	ElementTimeout     time.Duration
	CycleTimeout       time.Duration
	RequestDelay       time.Duration
	MaxRetries         int
	UseHeadlessBrowser bool
	UserAgent          string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		NavigationTimeout:  60 * time.Second,
		IdleTimeout:        30 * time.Second,
		ElementTimeout:     30 * time.Second,
		CycleTimeout:       10 * time.Minute,
		RequestDelay:       1 * time.Second,
		MaxRetries:         3,
		UseHeadlessBrowser: true,
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	}
}

// PageLoader acquires a rendering session and opens pages in it
type PageLoader interface {
	// Open navigates to url and waits for the page to settle
	Open(ctx context.Context, url string) (Page, error)

	// Close releases the session
	Close() error
}

// Page is a loaded page that can be queried for size option elements
type Page interface {
	// URL returns the address the page was opened with
	URL() string

	// WaitFor blocks until selector matches at least one element or timeout elapses
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Query returns a snapshot of every element matching selector
	Query(ctx context.Context, selector string) ([]Element, error)
}

// Dispatcher delivers restock notifications
type Dispatcher interface {
	Notify(ctx context.Context, size SizeKey, url string) DeliveryResult
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
