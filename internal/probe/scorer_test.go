package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/browser/browsertest"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

func TestThreshold_Score(t *testing.T) {
	lcp := threshold{Good: 2500, Poor: 4000}
	tests := []struct {
		value float64
		want  int
	}{
		{0, 100},
		{2500, 100},
		{3250, 50},
		{3700, 20},
		{4000, 0},
		{9000, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lcp.score(tt.value), "value %v", tt.value)
	}
}

func TestMetricWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, th := range metricThresholds {
		sum += th.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

const wellFormedPage = `<!doctype html>
<html lang="en"><head>
<meta charset="utf-8">
<title>Example</title>
<meta name="description" content="An example page">
<meta name="viewport" content="width=device-width">
</head><body><main><h1>Hello</h1><img src="/a.png" alt="a"></main></body></html>`

func TestThresholdScorer_FastPage(t *testing.T) {
	data := ThresholdScorer{}.Score(PageSignals{
		Target:     audit.MustParseTarget("https://example.com"),
		Navigation: &browser.NavigationResult{Status: 200},
		Metrics:    browser.DocumentMetrics{FCP: 900, LCP: 1200, TBT: 50, CLS: 0.01, TTFB: 120},
		Document:   parseHTML(t, wellFormedPage),
	})

	assert.Equal(t, 100, data.Score)
	assert.Equal(t, 100, data.Categories[audit.CategoryPerformance])
	assert.Equal(t, 100, data.Categories[audit.CategoryAccessibility])
	assert.Equal(t, 100, data.Categories[audit.CategoryBestPractices])
	assert.Equal(t, 100, data.Categories[audit.CategorySEO])
	require.Len(t, data.Metrics, 5)
	assert.Equal(t, "ms", data.Metrics[audit.MetricLargestContentfulPaint].Unit)
	assert.Equal(t, 1200.0, data.Metrics[audit.MetricLargestContentfulPaint].Value)
}

func TestThresholdScorer_SlowInsecurePage(t *testing.T) {
	data := ThresholdScorer{}.Score(PageSignals{
		Target:     audit.MustParseTarget("http://example.com"),
		Navigation: &browser.NavigationResult{Status: 404},
		Metrics:    browser.DocumentMetrics{FCP: 5000, LCP: 3250, TBT: 900, CLS: 0.5, TTFB: 300},
		Document:   parseHTML(t, `<html><body><center>old</center></body></html>`),
	})

	// Only LCP (50 * 0.25) and TTFB (100 * 0.10) contribute.
	assert.Equal(t, 23, data.Score)
	assert.Equal(t, 100-40-20-10-10, data.Categories[audit.CategoryBestPractices])
	assert.Equal(t, 0, data.Categories[audit.CategorySEO])
	assert.Equal(t, 100-10-10-5, data.Categories[audit.CategoryAccessibility])
}

func TestBestPracticesScore_MixedContent(t *testing.T) {
	doc := parseHTML(t, `<html><head><meta charset="utf-8"></head><body><script src="http://cdn.example.com/a.js"></script></body></html>`)
	got := bestPracticesScore(PageSignals{Target: audit.MustParseTarget("https://example.com"), Document: doc})
	assert.Equal(t, 80, got)
}

func TestPerformanceProbe(t *testing.T) {
	page := &browsertest.Page{
		Content: wellFormedPage,
		Metrics: browser.DocumentMetrics{FCP: 900, LCP: 1200, TBT: 50, CLS: 0.01, TTFB: 120},
	}
	env, rec := testEnv(t, page)

	out := New(Config{}, zap.NewNop()).Performance(context.Background(), env)

	require.False(t, out.Failed(), out.Error)
	assert.Equal(t, 100, out.Data.Score)
	assert.True(t, page.Closed())
	assert.Equal(t, audit.KindPerformance, rec.probes[0].kind)
}

type fixedScorer struct{ score int }

func (f fixedScorer) Score(PageSignals) audit.PerformanceData {
	d := audit.FallbackPerformance()
	d.Score = f.score
	return d
}

func TestPerformanceProbe_CustomScorer(t *testing.T) {
	env, _ := testEnv(t, &browsertest.Page{Content: "<html></html>"})
	out := New(Config{}, zap.NewNop(), WithScorer(fixedScorer{score: 42})).Performance(context.Background(), env)
	assert.Equal(t, 42, out.Data.Score)
}

func TestPerformanceProbe_Failures(t *testing.T) {
	tests := []struct {
		name string
		page *browsertest.Page
	}{
		{name: "navigation", page: &browsertest.Page{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}},
		{name: "metrics", page: &browsertest.Page{MetricsErr: errors.New("evaluation failed")}},
		{name: "idle wait", page: &browsertest.Page{IdleErr: errors.New("target crashed")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := testEnv(t, tt.page)
			out := New(Config{}, zap.NewNop()).Performance(context.Background(), env)

			assert.True(t, out.Failed())
			assert.Equal(t, 0, out.Data.Score)
			assert.NotNil(t, out.Data.Metrics)
			assert.True(t, tt.page.Closed())
		})
	}
}

func TestPerformanceProbe_SessionClosed(t *testing.T) {
	session := &browsertest.Session{}
	require.NoError(t, session.Close())
	env := Env{Session: session, Target: audit.MustParseTarget("https://example.com")}

	out := New(Config{}, zap.NewNop()).Performance(context.Background(), env)

	assert.True(t, out.Failed())
	assert.Contains(t, out.Error, "open page")
}
