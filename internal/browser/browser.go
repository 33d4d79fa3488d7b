package browser

import (
	"context"
	"time"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

// Config controls how the browser process is launched and how long page
// operations may take.
type Config struct {
	UserAgent          string
	NavigationTimeout  time.Duration
	NetworkIdleTimeout time.Duration
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// DefaultConfig returns the launch settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		UserAgent:          constants.DefaultUserAgent,
		NavigationTimeout:  constants.DefaultNavigationTimeout,
		NetworkIdleTimeout: constants.DefaultNetworkIdleTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	if c.NetworkIdleTimeout <= 0 {
		c.NetworkIdleTimeout = d.NetworkIdleTimeout
	}
	return c
}

// ElementInfo is the pre-interaction snapshot of a discovered control.
type ElementInfo struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Value       string `json:"value"`
}

// DocumentMetrics are timings read from the page's performance timeline.
// Durations are milliseconds; CLS is unitless.
type DocumentMetrics struct {
	TTFB             float64 `json:"ttfb"`
	FCP              float64 `json:"fcp"`
	LCP              float64 `json:"lcp"`
	CLS              float64 `json:"cls"`
	TBT              float64 `json:"tbt"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	Load             float64 `json:"load"`
	TransferSize     float64 `json:"transferSize"`
	ResourceCount    int     `json:"resourceCount"`
}

// NavigationResult describes the main document response.
type NavigationResult struct {
	URL     string
	Status  int
	Headers map[string]string
}

// RequestEvent is a request the page is about to send.
type RequestEvent struct {
	URL          string
	Method       string
	ResourceType string
}

// Page is the narrow command set probes may run against a loaded document.
// Arguments are primitives only; no host-side state crosses into the page.
type Page interface {
	Navigate(ctx context.Context, url string) (*NavigationResult, error)
	// WaitNetworkIdle returns ErrNetworkIdleTimeout when the network does not
	// settle within timeout. Callers may carry on with what has loaded.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	QueryElements(ctx context.Context, kind audit.ElementKind) ([]ElementInfo, error)
	ClickByIndex(ctx context.Context, kind audit.ElementKind, index int) error
	SetValueByIndex(ctx context.Context, index int, value string) (before, after string, err error)
	ReadDocumentMetrics(ctx context.Context) (DocumentMetrics, error)
	HTML(ctx context.Context) (string, error)
	ServiceWorkerRegistered(ctx context.Context) (bool, error)
	SetOffline(ctx context.Context, offline bool) error
	Reload(ctx context.Context) error
	BodyTextLength(ctx context.Context) (int, error)
	// OnRequest registers fn for every request sent after the call.
	// Register before Navigate or early requests are lost.
	OnRequest(fn func(RequestEvent))
	Close() error
}

// Session owns one browser process. Close must be called exactly once per
// successful Open, on every path.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
