// Package probe runs the individual analyses of an audit.
//
// Every probe goes through Run, which turns errors and panics into the
// probe's fallback payload so one failing analysis never aborts the audit.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// Recorder receives probe and link-check observations.
type Recorder interface {
	ObserveProbe(kind audit.ProbeKind, status audit.Status, d time.Duration)
	RecordLinkCheck(healthy bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProbe(audit.ProbeKind, audit.Status, time.Duration) {}
func (nopRecorder) RecordLinkCheck(bool)                                      {}

// Env is what every probe of one audit shares.
type Env struct {
	Session  browser.Session
	Target   audit.Target
	Logger   *zap.Logger
	Recorder Recorder
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e Env) recorder() Recorder {
	if e.Recorder == nil {
		return nopRecorder{}
	}
	return e.Recorder
}

// Run executes fn and wraps its result. On error or panic the outcome carries
// fallback() with StatusFallback and the error message.
func Run[T any](ctx context.Context, env Env, kind audit.ProbeKind, fn func(context.Context) (T, error), fallback func() T) audit.Outcome[T] {
	start := time.Now()

	var (
		data    T
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() { data, err = fn(ctx) })
	if rec := catcher.Recovered(); rec != nil {
		err = fmt.Errorf("panic: %v", rec.Value)
	}

	var out audit.Outcome[T]
	if err != nil {
		env.logger().Error("probe failed",
			zap.String("probe", kind.String()),
			zap.String("target", env.Target.String()),
			zap.Error(err))
		out = audit.Fallback(kind, fallback(), err)
	} else {
		out = audit.Succeeded(kind, data)
	}

	elapsed := time.Since(start)
	out.DurationMS = elapsed.Milliseconds()
	env.recorder().ObserveProbe(kind, out.Status, elapsed)
	return out
}

// withPage opens a page, runs fn and closes the page on every path.
func withPage[T any](ctx context.Context, env Env, fn func(browser.Page) (T, error)) (T, error) {
	var zero T
	page, err := env.Session.NewPage(ctx)
	if err != nil {
		return zero, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			env.logger().Warn("close page", zap.Error(cerr))
		}
	}()
	return fn(page)
}
