package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/interaction"
	"github.com/khanhnv2901/seca-webaudit/internal/network"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Config tunes the probes.
type Config struct {
	UserAgent     string
	HTTPTimeout   time.Duration
	IdleTimeout   time.Duration
	Concurrency   int
	LinkWorkers   int
	LinkRateLimit float64
	MaxLinks      int
}

// DefaultConfig returns the probe settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		UserAgent:     constants.DefaultUserAgent,
		HTTPTimeout:   constants.DefaultNavigationTimeout,
		IdleTimeout:   constants.DefaultNetworkIdleTimeout,
		Concurrency:   constants.DefaultInteractionConcurrency,
		LinkWorkers:   constants.DefaultLinkWorkers,
		LinkRateLimit: constants.DefaultLinkRateLimit,
		MaxLinks:      constants.DefaultMaxLinks,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.Concurrency < 1 {
		c.Concurrency = d.Concurrency
	}
	if c.LinkWorkers < 1 {
		c.LinkWorkers = d.LinkWorkers
	}
	if c.LinkRateLimit <= 0 {
		c.LinkRateLimit = d.LinkRateLimit
	}
	if c.MaxLinks < 1 {
		c.MaxLinks = d.MaxLinks
	}
	return c
}

// Probes holds the collaborators shared by every probe. It is safe to reuse
// across audits.
type Probes struct {
	cfg            Config
	client         *http.Client
	scorer         Scorer
	interactionRec interaction.Recorder
	interactions   *interaction.Runner
	observer       *network.Observer
	links          *LinkChecker
	logger         *zap.Logger
}

// Option configures Probes.
type Option func(*Probes)

// WithScorer replaces the default ThresholdScorer.
func WithScorer(s Scorer) Option {
	return func(p *Probes) {
		if s != nil {
			p.scorer = s
		}
	}
}

// WithHTTPClient replaces the client used for header, manifest, CORS and link requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Probes) {
		if c != nil {
			p.client = c
		}
	}
}

// WithInteractionRecorder reports interaction outcomes to rec.
func WithInteractionRecorder(rec interaction.Recorder) Option {
	return func(p *Probes) { p.interactionRec = rec }
}

// New builds the probe set.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Probes {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Probes{
		cfg:    cfg,
		scorer: ThresholdScorer{},
		logger: logger,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.interactions = interaction.NewRunner(logger,
		interaction.WithRecorder(p.interactionRec),
		interaction.WithCORSProber(interaction.NewCORSProber(p.client, cfg.UserAgent, cfg.HTTPTimeout, logger)))
	p.observer = network.NewObserver(logger, cfg.IdleTimeout)
	p.links = NewLinkChecker(p.client, cfg.UserAgent, cfg.LinkWorkers, cfg.LinkRateLimit)
	return p
}

// load navigates page to the target and waits for the network to settle.
// An idle timeout is not an error; the probe continues with what loaded.
func (p *Probes) load(ctx context.Context, env Env, page browser.Page) (*browser.NavigationResult, error) {
	nav, err := page.Navigate(ctx, env.Target.String())
	if err != nil {
		return nil, err
	}
	if err := page.WaitNetworkIdle(ctx, p.cfg.IdleTimeout); err != nil {
		if !errors.Is(err, sharedErrors.ErrNetworkIdleTimeout) {
			return nil, err
		}
		env.logger().Debug("network idle timeout, continuing", zap.String("target", env.Target.String()))
	}
	return nav, nil
}

// loadDocument loads the target and parses the rendered DOM.
func (p *Probes) loadDocument(ctx context.Context, env Env, page browser.Page) (*goquery.Document, *browser.NavigationResult, error) {
	nav, err := p.load(ctx, env, page)
	if err != nil {
		return nil, nil, err
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, err
	}
	return doc, nav, nil
}

// Interactions runs the element sweep against a freshly loaded page.
func (p *Probes) Interactions(ctx context.Context, env Env) audit.Outcome[audit.InteractionData] {
	return Run(ctx, env, audit.KindInteractions, func(ctx context.Context) (audit.InteractionData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.InteractionData, error) {
			if _, err := p.load(ctx, env, page); err != nil {
				return audit.InteractionData{}, err
			}
			return p.interactions.Sweep(ctx, page, env.Target, p.cfg.Concurrency)
		})
	}, audit.FallbackInteractions)
}

// ThirdParty captures requests of one page load. Navigation failures are
// absorbed by the observer and yield an empty summary.
func (p *Probes) ThirdParty(ctx context.Context, env Env) audit.Outcome[audit.ThirdPartyData] {
	return Run(ctx, env, audit.KindThirdParty, func(ctx context.Context) (audit.ThirdPartyData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.ThirdPartyData, error) {
			return p.observer.Capture(ctx, page, env.Target), nil
		})
	}, audit.FallbackThirdParty)
}
