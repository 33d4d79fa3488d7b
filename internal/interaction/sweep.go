// Package interaction stress-tests the interactive controls of a loaded page.
//
// Buttons are clicked and inputs filled in fixed-size batches. Every element of
// a batch is dispatched at once and the whole batch is awaited before the next
// one starts, so at most limit actions are in flight against the page.
package interaction

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// FillPrefix is prepended to the element index to build each input's fill value.
const FillPrefix = "test value "

// Recorder receives one call per attempted interaction.
type Recorder interface {
	RecordInteraction(kind audit.ElementKind, succeeded bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordInteraction(audit.ElementKind, bool) {}

// Runner performs the interaction sweep.
type Runner struct {
	logger   *zap.Logger
	recorder Recorder
	cors     *CORSProber
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder reports interaction outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithCORSProber enables the cross-origin preflight check.
func WithCORSProber(p *CORSProber) Option {
	return func(r *Runner) { r.cors = p }
}

// NewRunner creates a Runner.
func NewRunner(logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{logger: logger, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan returns the batch sizes used for n elements at the given limit:
// ceil(n/limit) batches, all full except possibly the last.
func Plan(n, limit int) []int {
	if limit < 1 {
		limit = 1
	}
	sizes := make([]int, 0, (n+limit-1)/limit)
	for n > 0 {
		size := min(limit, n)
		sizes = append(sizes, size)
		n -= size
	}
	return sizes
}

// Sweep discovers buttons and inputs on page, clicks every button and fills
// every input. A failure of one element never aborts the sweep; only element
// discovery errors are returned.
func (r *Runner) Sweep(ctx context.Context, page browser.Page, target audit.Target, limit int) (audit.InteractionData, error) {
	if limit < 1 {
		limit = 1
	}

	buttons, err := r.discover(ctx, page, audit.ElementButton)
	if err != nil {
		return audit.InteractionData{}, err
	}
	inputs, err := r.discover(ctx, page, audit.ElementInput)
	if err != nil {
		return audit.InteractionData{}, err
	}

	r.logger.Debug("interactive elements discovered",
		zap.Int("buttons", len(buttons)),
		zap.Int("inputs", len(inputs)),
		zap.Int("concurrency", limit))

	data := audit.InteractionData{
		Buttons: buttons,
		Inputs:  inputs,
		Batches: audit.BatchStats{ConcurrencyLimit: limit},
	}

	data.Batches.ButtonBatches = r.runBatches(ctx, buttons, limit, func(ctx context.Context, el *audit.InteractiveElement) error {
		return page.ClickByIndex(ctx, audit.ElementButton, el.Index)
	})
	data.Batches.InputBatches = r.runBatches(ctx, inputs, limit, func(ctx context.Context, el *audit.InteractiveElement) error {
		value := FillPrefix + strconv.Itoa(el.Index)
		el.FillValue = value
		before, after, err := page.SetValueByIndex(ctx, el.Index, value)
		if err != nil {
			return err
		}
		el.ValueBefore = &before
		el.ValueAfter = &after
		return nil
	})

	if r.cors != nil {
		data.CORSProbe, data.CORSIssues = r.cors.Probe(ctx, target)
	} else {
		data.CORSProbe = audit.FallbackInteractions().CORSProbe
	}

	return data, nil
}

func (r *Runner) discover(ctx context.Context, page browser.Page, kind audit.ElementKind) ([]audit.InteractiveElement, error) {
	infos, err := page.QueryElements(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("discover %s elements: %w", kind, err)
	}
	elements := make([]audit.InteractiveElement, len(infos))
	for i, info := range infos {
		elements[i] = audit.InteractiveElement{
			Kind:        kind,
			Index:       i,
			Text:        info.Text,
			Type:        info.Type,
			Name:        info.Name,
			Placeholder: info.Placeholder,
		}
		if kind == audit.ElementInput {
			value := info.Value
			elements[i].ValueBefore = &value
		}
	}
	return elements, nil
}

// runBatches applies act to every element, batch by batch, and returns the
// batch sizes actually dispatched. Each goroutine writes only its own element.
func (r *Runner) runBatches(ctx context.Context, elements []audit.InteractiveElement, limit int, act func(context.Context, *audit.InteractiveElement) error) []int {
	sizes := Plan(len(elements), limit)
	start := 0
	for batchNo, size := range sizes {
		batch := elements[start : start+size]
		start += size

		var wg conc.WaitGroup
		for i := range batch {
			el := &batch[i]
			el.Attempted = true
			wg.Go(func() {
				var catcher panics.Catcher
				var err error
				catcher.Try(func() { err = act(ctx, el) })
				if rec := catcher.Recovered(); rec != nil {
					err = fmt.Errorf("panic: %v", rec.Value)
				}
				if err != nil {
					el.Error = err.Error()
				} else {
					el.Succeeded = true
				}
				r.recorder.RecordInteraction(el.Kind, el.Succeeded)
			})
		}
		wg.Wait()

		r.logger.Debug("interaction batch finished", zap.Int("batch", batchNo), zap.Int("size", size))
	}
	return sizes
}
