// Package browsertest provides scriptable in-memory Page and Session fakes.
package browsertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Page is a browser.Page whose answers are configured through its fields.
// Configure it before use; the fields are not guarded.
type Page struct {
	NavResult   *browser.NavigationResult
	NavigateErr error
	// Requests are replayed to OnRequest listeners during Navigate.
	Requests []browser.RequestEvent
	IdleErr  error

	Buttons  []browser.ElementInfo
	Inputs   []browser.ElementInfo
	QueryErr error
	// ClickErr and FillErr map an element index to the error it returns.
	ClickErr map[int]error
	FillErr  map[int]error
	// PanicOn makes the click or fill at that index panic.
	PanicOn map[int]bool
	// ActionDelay keeps each click/fill in flight for a while so overlap
	// can be measured.
	ActionDelay time.Duration

	Metrics    browser.DocumentMetrics
	MetricsErr error
	Content    string
	HTMLErr    error

	ServiceWorker     bool
	ServiceWorkerErr  error
	OfflineTextLength int
	OnlineTextLength  int
	ReloadErr         error
	SetOfflineErr     error

	mu         sync.Mutex
	listeners  []func(browser.RequestEvent)
	values     map[int]string
	offline    bool
	offlineLog []bool
	clicked    []int
	filled     []int
	closed     bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

var _ browser.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) (*browser.NavigationResult, error) {
	p.mu.Lock()
	listeners := append([]func(browser.RequestEvent){}, p.listeners...)
	p.mu.Unlock()

	for _, req := range p.Requests {
		for _, fn := range listeners {
			fn(req)
		}
	}
	if p.NavigateErr != nil {
		return nil, p.NavigateErr
	}
	if p.NavResult != nil {
		res := *p.NavResult
		return &res, nil
	}
	return &browser.NavigationResult{URL: url, Status: 200, Headers: map[string]string{}}, nil
}

func (p *Page) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return p.IdleErr
}

func (p *Page) QueryElements(ctx context.Context, kind audit.ElementKind) ([]browser.ElementInfo, error) {
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	if kind == audit.ElementButton {
		return append([]browser.ElementInfo{}, p.Buttons...), nil
	}
	return append([]browser.ElementInfo{}, p.Inputs...), nil
}

func (p *Page) enter() func() {
	n := p.inFlight.Add(1)
	for {
		cur := p.maxInFlight.Load()
		if n <= cur || p.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if p.ActionDelay > 0 {
		time.Sleep(p.ActionDelay)
	}
	return func() { p.inFlight.Add(-1) }
}

func (p *Page) ClickByIndex(ctx context.Context, kind audit.ElementKind, index int) error {
	defer p.enter()()
	if p.PanicOn[index] {
		panic("click exploded")
	}
	if err := p.ClickErr[index]; err != nil {
		return err
	}
	if index >= len(p.Buttons) {
		return sharedErrors.ErrElementNotFound
	}
	p.mu.Lock()
	p.clicked = append(p.clicked, index)
	p.mu.Unlock()
	return nil
}

func (p *Page) SetValueByIndex(ctx context.Context, index int, value string) (string, string, error) {
	defer p.enter()()
	if p.PanicOn[index] {
		panic("fill exploded")
	}
	if err := p.FillErr[index]; err != nil {
		return "", "", err
	}
	if index >= len(p.Inputs) {
		return "", "", sharedErrors.ErrElementNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[int]string)
	}
	before, ok := p.values[index]
	if !ok {
		before = p.Inputs[index].Value
	}
	p.values[index] = value
	p.filled = append(p.filled, index)
	return before, value, nil
}

func (p *Page) ReadDocumentMetrics(ctx context.Context) (browser.DocumentMetrics, error) {
	return p.Metrics, p.MetricsErr
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.Content, p.HTMLErr
}

func (p *Page) ServiceWorkerRegistered(ctx context.Context) (bool, error) {
	return p.ServiceWorker, p.ServiceWorkerErr
}

func (p *Page) SetOffline(ctx context.Context, offline bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offlineLog = append(p.offlineLog, offline)
	if p.SetOfflineErr != nil && offline {
		return p.SetOfflineErr
	}
	p.offline = offline
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	return p.ReloadErr
}

func (p *Page) BodyTextLength(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offline {
		return p.OfflineTextLength, nil
	}
	return p.OnlineTextLength, nil
}

func (p *Page) OnRequest(fn func(browser.RequestEvent)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Offline reports the current emulated network state.
func (p *Page) Offline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offline
}

// OfflineCalls returns every SetOffline argument in call order.
func (p *Page) OfflineCalls() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.offlineLog...)
}

// Clicked returns the indices clicked successfully, in completion order.
func (p *Page) Clicked() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.clicked...)
}

// Filled returns the indices filled successfully, in completion order.
func (p *Page) Filled() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.filled...)
}

// MaxInFlight is the highest number of clicks and fills observed running at once.
func (p *Page) MaxInFlight() int {
	return int(p.maxInFlight.Load())
}

// Session hands out pages from NewPageFunc, or Page when it is nil.
type Session struct {
	Page        *Page
	NewPageFunc func() (browser.Page, error)
	CloseErr    error

	mu     sync.Mutex
	opened int
	closes int
}

var _ browser.Session = (*Session)(nil)

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return nil, sharedErrors.ErrSessionClosed
	}
	s.opened++
	if s.NewPageFunc != nil {
		return s.NewPageFunc()
	}
	if s.Page == nil {
		s.Page = &Page{}
	}
	return s.Page, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.CloseErr
}

// PagesOpened counts NewPage calls.
func (s *Session) PagesOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closes counts Close calls.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
