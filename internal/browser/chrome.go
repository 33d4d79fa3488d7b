package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// LaunchFlags returns the allocator options used for every browser process.
// The sandbox flags are fixed so the audit runs inside containers.
func LaunchFlags(cfg Config) []chromedp.ExecAllocatorOption {
	cfg = cfg.withDefaults()
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.Headless,
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// ChromeSession is a Session backed by one headless Chrome process.
type ChromeSession struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	pages  map[*ChromePage]struct{}
	closed bool

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*ChromeSession)(nil)

// Open launches the browser. On error nothing is left running.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*ChromeSession, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, LaunchFlags(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	// The first Run starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &LaunchError{ExecPath: cfg.ExecPath, Err: err}
	}

	logger.Debug("browser launched", zap.String("user_agent", cfg.UserAgent))

	return &ChromeSession{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		pages:         make(map[*ChromePage]struct{}),
	}, nil
}

// NewPage opens a new tab.
func (s *ChromeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, sharedErrors.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	p := newChromePage(tabCtx, tabCancel, s.cfg, s.logger, s.release)
	if err := p.start(); err != nil {
		tabCancel()
		return nil, err
	}
	s.pages[p] = struct{}{}
	return p, nil
}

func (s *ChromeSession) release(p *ChromePage) {
	s.mu.Lock()
	delete(s.pages, p)
	s.mu.Unlock()
}

// Close closes any page still open and terminates the browser. Safe to call
// more than once; later calls return the first result.
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		pages := make([]*ChromePage, 0, len(s.pages))
		for p := range s.pages {
			pages = append(pages, p)
		}
		s.mu.Unlock()

		var err error
		for _, p := range pages {
			err = multierr.Append(err, p.Close())
		}
		if cerr := chromedp.Cancel(s.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = multierr.Append(err, cerr)
		}
		s.browserCancel()
		s.allocCancel()
		s.closeErr = err
		s.logger.Debug("browser closed", zap.Error(err))
	})
	return s.closeErr
}
