package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/probe"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Score formulas accepted by Coordinator.
const (
	// FormulaTwoTerm is round(0.4*performance + 0.3*security). The declared
	// accessibility weight is not applied.
	FormulaTwoTerm = "two-term"
	// FormulaWeighted3 adds 0.3 * the accessibility category of the performance probe.
	FormulaWeighted3 = "weighted-3"
)

// Score weights.
const (
	PerformanceWeight   = 0.4
	SecurityWeight      = 0.3
	AccessibilityWeight = 0.3
)

// OverallScore combines the sub-scores with the named formula.
func OverallScore(formula string, performance, security, accessibility int) (int, error) {
	switch formula {
	case FormulaTwoTerm, "":
		return int(math.Round(PerformanceWeight*float64(performance) + SecurityWeight*float64(security))), nil
	case FormulaWeighted3:
		return int(math.Round(PerformanceWeight*float64(performance) +
			SecurityWeight*float64(security) +
			AccessibilityWeight*float64(accessibility))), nil
	default:
		return 0, fmt.Errorf("%w: %q", sharedErrors.ErrUnknownFormula, formula)
	}
}

// SessionFactory opens the browser session shared by the probes of one audit.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// Recorder receives probe and audit observations.
type Recorder interface {
	probe.Recorder
	RecordAudit(host string, score int, err error)
}

// ProbeEvent describes one finished probe.
type ProbeEvent struct {
	Kind     audit.ProbeKind
	Status   audit.Status
	Duration time.Duration
	Error    string
}

// Result is a sealed report and the locations the sinks stored it at.
type Result struct {
	Report    *audit.Report
	Locations []string
}

// Coordinator runs every probe of an audit against one browser session and
// hands the sealed report to the sinks.
type Coordinator struct {
	openSession SessionFactory
	probes      *probe.Probes
	sinks       []audit.Repository
	formula     string
	observer    func(ProbeEvent)
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSinks sets the repositories that receive the sealed report.
func WithSinks(sinks ...audit.Repository) Option {
	return func(c *Coordinator) { c.sinks = append(c.sinks, sinks...) }
}

// WithScoreFormula selects the overall score formula.
func WithScoreFormula(formula string) Option {
	return func(c *Coordinator) { c.formula = formula }
}

// WithObserver registers a callback invoked after each probe.
func WithObserver(fn func(ProbeEvent)) Option {
	return func(c *Coordinator) { c.observer = fn }
}

// WithRecorder reports probe and audit metrics to rec.
func WithRecorder(rec Recorder) Option {
	return func(c *Coordinator) { c.recorder = rec }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator overrides the random report IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

// NewCoordinator creates a coordinator. It fails if the score formula is unknown.
func NewCoordinator(open SessionFactory, probes *probe.Probes, logger *zap.Logger, opts ...Option) (*Coordinator, error) {
	if open == nil || probes == nil {
		return nil, fmt.Errorf("%w: session factory and probes", sharedErrors.ErrMissingRequired)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		openSession: open,
		probes:      probes,
		formula:     FormulaTwoTerm,
		observer:    func(ProbeEvent) {},
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, err := OverallScore(c.formula, 0, 0, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Run audits rawTarget. Probe failures are contained in the report; an invalid
// target, a browser launch failure or a sink failure aborts the audit and
// nothing is returned.
func (c *Coordinator) Run(ctx context.Context, rawTarget string) (result *Result, err error) {
	target, err := audit.ParseTarget(rawTarget)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}

	score := 0
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordAudit(target.Host(), score, err)
		}
	}()

	logger := c.logger.With(zap.String("target", target.String()))
	logger.Info("audit started", zap.String("formula", c.formula))

	session, err := c.openSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		cerr := session.Close()
		if cerr == nil {
			return
		}
		if err != nil {
			err = multierr.Append(err, fmt.Errorf("close browser session: %w", cerr))
			return
		}
		logger.Warn("close browser session", zap.Error(cerr))
	}()

	report, err := audit.NewReport(c.newID(), target, c.now())
	if err != nil {
		return nil, err
	}

	env := probe.Env{Session: session, Target: target, Logger: logger}
	if c.recorder != nil {
		env.Recorder = c.recorder
	}

	if err := c.runProbes(ctx, env, report); err != nil {
		return nil, err
	}

	perf := report.Performance().Data
	score, err = OverallScore(c.formula, perf.Score, report.Security().Data.Score, perf.Categories[audit.CategoryAccessibility])
	if err != nil {
		return nil, err
	}
	if err := report.SetOverallScore(score, c.formula); err != nil {
		return nil, err
	}
	if err := report.Seal(); err != nil {
		return nil, fmt.Errorf("seal report: %w", err)
	}

	result = &Result{Report: report, Locations: make([]string, 0, len(c.sinks))}
	for i, sink := range c.sinks {
		location, err := sink.Save(ctx, report)
		if err != nil {
			err = fmt.Errorf("save report: %w", err)
			return nil, multierr.Append(err, c.discard(report, c.sinks[:i]))
		}
		result.Locations = append(result.Locations, location)
	}

	logger.Info("audit finished",
		zap.String("report_id", report.ID()),
		zap.Int("overall_score", score),
		zap.Int("failed_probes", len(report.FailedProbes())))
	return result, nil
}

// discard undoes the saves of sinks, newest first, so a failed hand-off leaves
// nothing persisted. Sinks that cannot undo are logged.
func (c *Coordinator) discard(report *audit.Report, sinks []audit.Repository) error {
	// The hand-off may have failed because ctx was cancelled.
	ctx := context.Background()
	var errs error
	for i := len(sinks) - 1; i >= 0; i-- {
		d, ok := sinks[i].(audit.Discarder)
		if !ok {
			c.logger.Warn("sink cannot discard a saved report", zap.String("report_id", report.ID()))
			continue
		}
		if err := d.Discard(ctx, report); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("discard report: %w", err))
		}
	}
	return errs
}

// runProbes executes the probes one after another in report order.
func (c *Coordinator) runProbes(ctx context.Context, env probe.Env, report *audit.Report) error {
	p := c.probes
	steps := []func() error{
		func() error { return record(c, p.Performance(ctx, env), report.SetPerformance) },
		func() error { return record(c, p.Security(ctx, env), report.SetSecurity) },
		func() error { return record(c, p.Accessibility(ctx, env), report.SetAccessibility) },
		func() error { return record(c, p.Forms(ctx, env), report.SetForms) },
		func() error { return record(c, p.PWA(ctx, env), report.SetPWA) },
		func() error { return record(c, p.Backlinks(ctx, env), report.SetBacklinks) },
		func() error { return record(c, p.Interactions(ctx, env), report.SetInteractions) },
		func() error { return record(c, p.ThirdParty(ctx, env), report.SetThirdParty) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("audit interrupted: %w", err)
		}
		if err := step(); err != nil {
			return fmt.Errorf("record probe outcome: %w", err)
		}
	}
	return nil
}

func record[T any](c *Coordinator, o audit.Outcome[T], set func(audit.Outcome[T]) error) error {
	c.observer(ProbeEvent{
		Kind:     o.Kind,
		Status:   o.Status,
		Duration: time.Duration(o.DurationMS) * time.Millisecond,
		Error:    o.Error,
	})
	return set(o)
}
