package probe

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// PageSignals is everything a Scorer may look at.
type PageSignals struct {
	Target     audit.Target
	Navigation *browser.NavigationResult
	Metrics    browser.DocumentMetrics
	Document   *goquery.Document
}

// Scorer turns raw page signals into category scores and scored metrics.
type Scorer interface {
	Score(s PageSignals) audit.PerformanceData
}

// threshold maps a metric value onto 0-100: values at or below Good score
// 100, values at or above Poor score 0, linear in between.
type threshold struct {
	Name   string
	Unit   string
	Good   float64
	Poor   float64
	Weight float64
}

func (t threshold) score(v float64) int {
	switch {
	case v <= t.Good:
		return 100
	case v >= t.Poor:
		return 0
	default:
		return int(math.Round(100 * (t.Poor - v) / (t.Poor - t.Good)))
	}
}

// Web Vitals thresholds. Weights sum to 1.
var metricThresholds = []threshold{
	{Name: audit.MetricFirstContentfulPaint, Unit: "ms", Good: 1800, Poor: 3000, Weight: 0.10},
	{Name: audit.MetricLargestContentfulPaint, Unit: "ms", Good: 2500, Poor: 4000, Weight: 0.25},
	{Name: audit.MetricTotalBlockingTime, Unit: "ms", Good: 200, Poor: 600, Weight: 0.30},
	{Name: audit.MetricCumulativeLayoutShift, Unit: "unitless", Good: 0.1, Poor: 0.25, Weight: 0.25},
	{Name: audit.MetricTimeToFirstByte, Unit: "ms", Good: 800, Poor: 1800, Weight: 0.10},
}

// ThresholdScorer is the default Scorer. Timing metrics are scored against
// Web Vitals thresholds; the other categories are deduction checklists over
// the rendered DOM.
type ThresholdScorer struct{}

func (ThresholdScorer) Score(s PageSignals) audit.PerformanceData {
	values := map[string]float64{
		audit.MetricFirstContentfulPaint:   s.Metrics.FCP,
		audit.MetricLargestContentfulPaint: s.Metrics.LCP,
		audit.MetricTotalBlockingTime:      s.Metrics.TBT,
		audit.MetricCumulativeLayoutShift:  s.Metrics.CLS,
		audit.MetricTimeToFirstByte:        s.Metrics.TTFB,
	}

	data := audit.PerformanceData{
		Categories: make(map[string]int, 4),
		Metrics:    make(map[string]audit.Metric, len(metricThresholds)),
	}

	var weighted float64
	for _, t := range metricThresholds {
		v := values[t.Name]
		m := audit.Metric{Value: v, Unit: t.Unit, Score: t.score(v)}
		data.Metrics[t.Name] = m
		weighted += float64(m.Score) * t.Weight
	}

	data.Categories[audit.CategoryPerformance] = clamp(int(math.Round(weighted)))
	data.Categories[audit.CategoryAccessibility] = accessibilityScore(s.Document)
	data.Categories[audit.CategoryBestPractices] = bestPracticesScore(s)
	data.Categories[audit.CategorySEO] = seoScore(s)
	data.Score = data.Categories[audit.CategoryPerformance]
	return data
}

func accessibilityScore(doc *goquery.Document) int {
	if doc == nil {
		return 0
	}
	a := AnalyzeAccessibility(doc)
	score := 100.0

	if a.Images.Total > 0 {
		score -= 30 * float64(a.Images.WithoutAlt) / float64(a.Images.Total)
	}
	if a.Labels.Controls > 0 {
		score -= 30 * float64(a.Labels.Unlabelled) / float64(a.Labels.Controls)
	}
	if a.Lang == "" {
		score -= 10
	}
	if !a.Headings.SingleH1 {
		score -= 10
	}
	score -= math.Min(15, 5*float64(len(a.Headings.SkippedLevels)))
	if a.Landmarks["main"] == 0 {
		score -= 5
	}
	return clamp(int(math.Round(score)))
}

var deprecatedTags = []string{"center", "font", "marquee", "blink", "frameset"}

func bestPracticesScore(s PageSignals) int {
	score := 100
	if !s.Target.IsHTTPS() {
		score -= 40
	}
	if s.Navigation != nil && s.Navigation.Status >= 400 {
		score -= 20
	}
	if s.Document != nil {
		if s.Document.Find("meta[charset]").Length() == 0 && !hasHTTPEquiv(s.Document, "content-type") {
			score -= 10
		}
		for _, tag := range deprecatedTags {
			if s.Document.Find(tag).Length() > 0 {
				score -= 10
				break
			}
		}
		insecure := false
		s.Document.Find("script[src], img[src], iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			src, _ := sel.Attr("src")
			if s.Target.IsHTTPS() && strings.HasPrefix(strings.ToLower(src), "http://") {
				insecure = true
				return false
			}
			return true
		})
		if insecure {
			score -= 20
		}
	}
	return clamp(score)
}

func seoScore(s PageSignals) int {
	score := 0
	if s.Navigation == nil || s.Navigation.Status < 400 {
		score += 15
	}
	doc := s.Document
	if doc == nil {
		return score
	}
	if strings.TrimSpace(doc.Find("head > title").First().Text()) != "" {
		score += 25
	}
	if desc, ok := metaContent(doc, "description"); ok && strings.TrimSpace(desc) != "" {
		score += 25
	}
	if _, ok := metaContent(doc, "viewport"); ok {
		score += 15
	}
	if lang, _ := doc.Find("html").Attr("lang"); strings.TrimSpace(lang) != "" {
		score += 10
	}
	if doc.Find("h1").Length() > 0 {
		score += 10
	}
	return clamp(score)
}

func clamp(v int) int {
	return max(0, min(100, v))
}
