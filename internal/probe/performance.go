package probe

import (
	"context"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// Performance loads the target, reads the page's performance timeline and
// scores it with the configured Scorer.
func (p *Probes) Performance(ctx context.Context, env Env) audit.Outcome[audit.PerformanceData] {
	return Run(ctx, env, audit.KindPerformance, func(ctx context.Context) (audit.PerformanceData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.PerformanceData, error) {
			doc, nav, err := p.loadDocument(ctx, env, page)
			if err != nil {
				return audit.PerformanceData{}, err
			}
			metrics, err := page.ReadDocumentMetrics(ctx)
			if err != nil {
				return audit.PerformanceData{}, err
			}
			return p.scorer.Score(PageSignals{
				Target:     env.Target,
				Navigation: nav,
				Metrics:    metrics,
				Document:   doc,
			}), nil
		})
	}, audit.FallbackPerformance)
}
