// Package network records the requests a page sends while loading and
// summarizes the third-party hosts among them.
package network

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

type rule struct {
	needles  []string
	category audit.ServiceCategory
}

// Classification rules; the first matching rule wins.
var rules = []rule{
	{needles: []string{"google"}, category: audit.CategoryAnalytics},
	{needles: []string{"facebook", "fb"}, category: audit.CategorySocial},
	{needles: []string{"ads", "doubleclick"}, category: audit.CategoryAdvertising},
	{needles: []string{"cdn"}, category: audit.CategoryCDN},
}

// Classify maps a host to its service category.
func Classify(host string) audit.ServiceCategory {
	host = strings.ToLower(host)
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(host, n) {
				return r.category
			}
		}
	}
	return audit.CategoryUnknown
}

// Ledger collects requests. Record is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	requests []audit.NetworkRequest
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Record adds ev unless a request with the same identity was already seen.
func (l *Ledger) Record(ev browser.RequestEvent) {
	u, err := url.Parse(ev.URL)
	if err != nil || u.Hostname() == "" {
		return
	}
	req := audit.NetworkRequest{
		URL:          ev.URL,
		ResourceType: ev.ResourceType,
		Method:       ev.Method,
		Host:         strings.ToLower(u.Hostname()),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	id := req.Identity()
	if _, ok := l.seen[id]; ok {
		return
	}
	l.seen[id] = struct{}{}
	l.requests = append(l.requests, req)
}

// Requests returns a snapshot of the recorded requests.
func (l *Ledger) Requests() []audit.NetworkRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.NetworkRequest(nil), l.requests...)
}

// Summarize aggregates the requests that left the target's host.
func Summarize(target audit.Target, requests []audit.NetworkRequest) audit.ThirdPartyData {
	data := audit.FallbackThirdParty()
	for _, req := range requests {
		if target.IsFirstParty(req.Host) {
			continue
		}
		svc, ok := data.Details[req.Host]
		if !ok {
			svc = &audit.ThirdPartyService{
				Host:          req.Host,
				Category:      Classify(req.Host),
				ResourceTypes: []string{},
			}
			data.Details[req.Host] = svc
			data.CategorySummary[svc.Category]++
		}
		svc.RequestCount++
		if req.ResourceType != "" {
			svc.AddResourceType(req.ResourceType)
		}
		data.TotalRequests++
	}
	data.TotalThirdPartyHosts = len(data.Details)
	return data
}

// Observer loads a page and reports the third-party services it contacted.
type Observer struct {
	logger      *zap.Logger
	idleTimeout time.Duration
}

// NewObserver creates an Observer. A zero idleTimeout uses the page default.
func NewObserver(logger *zap.Logger, idleTimeout time.Duration) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger, idleTimeout: idleTimeout}
}

// Capture registers a request listener, navigates to target and waits for the
// network to settle. A navigation failure is logged and yields an empty
// summary; requests seen before the failure are discarded.
func (o *Observer) Capture(ctx context.Context, page browser.Page, target audit.Target) audit.ThirdPartyData {
	ledger := NewLedger()
	page.OnRequest(ledger.Record)

	if _, err := page.Navigate(ctx, target.String()); err != nil {
		o.logger.Error("third-party capture failed",
			zap.String("target", target.String()),
			zap.Error(err))
		return audit.FallbackThirdParty()
	}
	if err := page.WaitNetworkIdle(ctx, o.idleTimeout); err != nil {
		o.logger.Debug("network did not settle, using requests seen so far", zap.Error(err))
	}

	data := Summarize(target, ledger.Requests())
	o.logger.Debug("third-party requests captured",
		zap.Int("hosts", data.TotalThirdPartyHosts),
		zap.Int("requests", data.TotalRequests))
	return data
}
