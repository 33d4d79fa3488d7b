package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// ChromePage is a Page backed by one Chrome tab.
type ChromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     Config
	logger  *zap.Logger
	release func(*ChromePage)

	mainFrame cdp.FrameID

	listenMu  sync.RWMutex
	listeners []func(RequestEvent)

	idleMu   sync.Mutex
	idleCh   chan struct{}
	idleDone bool

	// loader is the document WaitNetworkIdle waits for; "" with loaderKnown
	// accepts any main-frame document. idleSeen buffers idle loaders that
	// arrive before the navigation reports its own.
	loader      cdp.LoaderID
	loaderKnown bool
	idleSeen    map[cdp.LoaderID]bool

	closeOnce sync.Once
	closeErr  error
}

var _ Page = (*ChromePage)(nil)

func newChromePage(ctx context.Context, cancel context.CancelFunc, cfg Config, logger *zap.Logger, release func(*ChromePage)) *ChromePage {
	return &ChromePage{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		release:  release,
		idleCh:   make(chan struct{}),
		idleSeen: make(map[cdp.LoaderID]bool),
	}
}

func (p *ChromePage) start() error {
	chromedp.ListenTarget(p.ctx, p.handleEvent)

	err := chromedp.Run(p.ctx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			p.idleMu.Lock()
			p.mainFrame = tree.Frame.ID
			p.idleMu.Unlock()
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	return nil
}

func (p *ChromePage) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		re := RequestEvent{
			URL:          e.Request.URL,
			Method:       e.Request.Method,
			ResourceType: string(e.Type),
		}
		p.listenMu.RLock()
		fns := p.listeners
		p.listenMu.RUnlock()
		for _, fn := range fns {
			fn(re)
		}
	case *page.EventLifecycleEvent:
		if e.Name == "networkIdle" {
			p.signalIdle(e.FrameID, e.LoaderID)
		}
	}
}

func (p *ChromePage) resetIdle() {
	p.idleMu.Lock()
	p.idleCh = make(chan struct{})
	p.idleDone = false
	p.loader = ""
	p.loaderKnown = false
	p.idleSeen = make(map[cdp.LoaderID]bool)
	p.idleMu.Unlock()
}

// signalIdle handles a networkIdle lifecycle event. Events of other frames
// and of documents other than the current navigation's are ignored.
func (p *ChromePage) signalIdle(frame cdp.FrameID, loader cdp.LoaderID) {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	if p.mainFrame != "" && frame != p.mainFrame {
		return
	}
	p.idleSeen[loader] = true
	if p.loaderKnown && (p.loader == "" || p.loader == loader) {
		p.markIdle()
	}
}

// expectLoader sets the document whose idle event ends WaitNetworkIdle.
func (p *ChromePage) expectLoader(loader cdp.LoaderID) {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	p.loader = loader
	p.loaderKnown = true
	if (loader == "" && len(p.idleSeen) > 0) || p.idleSeen[loader] {
		p.markIdle()
	}
}

// markIdle must be called with idleMu held.
func (p *ChromePage) markIdle() {
	if !p.idleDone {
		close(p.idleCh)
		p.idleDone = true
	}
}

// trackLoader reads the main frame's current loader after a navigation. When
// the frame tree is unavailable any main-frame idle event is accepted.
func (p *ChromePage) trackLoader(ctx context.Context) {
	runCtx, cancel := p.opContext(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	var loader cdp.LoaderID
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		loader = tree.Frame.LoaderID
		return nil
	}))
	if err != nil {
		p.logger.Debug("read frame loader", zap.Error(err))
	}
	p.expectLoader(loader)
}

func (p *ChromePage) idleChan() <-chan struct{} {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	return p.idleCh
}

// opContext derives a context from the tab that ends after timeout or when
// the caller's ctx is done, whichever comes first.
func (p *ChromePage) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *ChromePage) run(ctx context.Context, command string, actions ...chromedp.Action) error {
	runCtx, cancel := p.opContext(ctx, p.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return &EvaluationError{Command: command, Err: err}
	}
	return nil
}

func awaitPromise(params *runtime.EvaluateParams) *runtime.EvaluateParams {
	return params.WithAwaitPromise(true)
}

// Navigate loads url and reports the main document response.
func (p *ChromePage) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	p.resetIdle()

	runCtx, cancel := p.opContext(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	p.trackLoader(ctx)

	result := &NavigationResult{URL: url, Headers: make(map[string]string)}
	if resp != nil {
		result.URL = resp.URL
		result.Status = int(resp.Status)
		for k, v := range resp.Headers {
			result.Headers[strings.ToLower(k)] = fmt.Sprint(v)
		}
	}
	return result, nil
}

// WaitNetworkIdle blocks until the main frame reports networkIdle.
func (p *ChromePage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.cfg.NetworkIdleTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.idleChan():
		return nil
	case <-timer.C:
		return sharedErrors.ErrNetworkIdleTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return sharedErrors.ErrSessionClosed
	}
}

func (p *ChromePage) QueryElements(ctx context.Context, kind audit.ElementKind) ([]ElementInfo, error) {
	script, err := queryElementsJS(kind)
	if err != nil {
		return nil, err
	}
	var out []ElementInfo
	if err := p.run(ctx, "query "+string(kind), chromedp.Evaluate(script, &out)); err != nil {
		return nil, err
	}
	if out == nil {
		out = []ElementInfo{}
	}
	return out, nil
}

func (p *ChromePage) ClickByIndex(ctx context.Context, kind audit.ElementKind, index int) error {
	script, err := clickJS(kind, index)
	if err != nil {
		return err
	}
	var found bool
	if err := p.run(ctx, "click "+string(kind), chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s[%d]", sharedErrors.ErrElementNotFound, kind, index)
	}
	return nil
}

func (p *ChromePage) SetValueByIndex(ctx context.Context, index int, value string) (string, string, error) {
	script, err := setValueJS(index, value)
	if err != nil {
		return "", "", err
	}
	var res setValueResult
	if err := p.run(ctx, "fill input", chromedp.Evaluate(script, &res)); err != nil {
		return "", "", err
	}
	if !res.Found {
		return "", "", fmt.Errorf("%w: input[%d]", sharedErrors.ErrElementNotFound, index)
	}
	return res.Before, res.After, nil
}

func (p *ChromePage) ReadDocumentMetrics(ctx context.Context) (DocumentMetrics, error) {
	var m DocumentMetrics
	err := p.run(ctx, "read metrics", chromedp.Evaluate(metricsScript, &m, awaitPromise))
	return m, err
}

func (p *ChromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, "read html", chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *ChromePage) ServiceWorkerRegistered(ctx context.Context) (bool, error) {
	var registered bool
	err := p.run(ctx, "service worker", chromedp.Evaluate(serviceWorkerScript, &registered, awaitPromise))
	return registered, err
}

// SetOffline toggles network emulation for the tab.
func (p *ChromePage) SetOffline(ctx context.Context, offline bool) error {
	return p.run(ctx, "network emulation", network.EmulateNetworkConditions(offline, 0, -1, -1))
}

func (p *ChromePage) Reload(ctx context.Context) error {
	p.resetIdle()
	if err := p.run(ctx, "reload", chromedp.Reload()); err != nil {
		return err
	}
	p.trackLoader(ctx)
	return nil
}

func (p *ChromePage) BodyTextLength(ctx context.Context) (int, error) {
	var n int
	err := p.run(ctx, "body text", chromedp.Evaluate(bodyTextLengthScript, &n))
	return n, err
}

func (p *ChromePage) OnRequest(fn func(RequestEvent)) {
	if fn == nil {
		return
	}
	p.listenMu.Lock()
	// copy on write so handleEvent can iterate without the lock
	next := make([]func(RequestEvent), len(p.listeners), len(p.listeners)+1)
	copy(next, p.listeners)
	p.listeners = append(next, fn)
	p.listenMu.Unlock()
}

// Close closes the tab. Safe to call more than once.
func (p *ChromePage) Close() error {
	p.closeOnce.Do(func() {
		err := chromedp.Cancel(p.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		p.cancel()
		if p.release != nil {
			p.release(p)
		}
		p.closeErr = err
	})
	return p.closeErr
}
