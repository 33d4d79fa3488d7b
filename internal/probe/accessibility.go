package probe

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// Accessibility inspects the rendered DOM for structural accessibility signals.
func (p *Probes) Accessibility(ctx context.Context, env Env) audit.Outcome[audit.AccessibilityData] {
	return Run(ctx, env, audit.KindAccessibility, func(ctx context.Context) (audit.AccessibilityData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.AccessibilityData, error) {
			doc, _, err := p.loadDocument(ctx, env, page)
			if err != nil {
				return audit.AccessibilityData{}, err
			}
			return AnalyzeAccessibility(doc), nil
		})
	}, audit.FallbackAccessibility)
}

var landmarkTags = []string{"header", "nav", "main", "aside", "footer"}

var landmarkRoles = map[string]string{
	"banner":        "header",
	"navigation":    "nav",
	"main":          "main",
	"complementary": "aside",
	"contentinfo":   "footer",
	"search":        "search",
	"region":        "region",
}

// AnalyzeAccessibility counts images, headings, landmarks and labelled controls.
func AnalyzeAccessibility(doc *goquery.Document) audit.AccessibilityData {
	data := audit.FallbackAccessibility()

	images := doc.Find("img")
	data.Images.Total = images.Length()
	images.Each(func(_ int, img *goquery.Selection) {
		if _, ok := img.Attr("alt"); ok {
			data.Images.WithAlt++
		}
	})
	data.Images.WithoutAlt = data.Images.Total - data.Images.WithAlt
	if data.Images.Total > 0 {
		data.Images.AltRatio = round2(float64(data.Images.WithAlt) / float64(data.Images.Total))
	}

	data.Headings = analyzeHeadings(doc)

	for _, tag := range landmarkTags {
		data.Landmarks[tag] = doc.Find(tag).Length()
	}
	doc.Find("[role]").Each(func(_ int, sel *goquery.Selection) {
		role, _ := sel.Attr("role")
		if key, ok := landmarkRoles[strings.ToLower(strings.TrimSpace(role))]; ok {
			data.Landmarks[key]++
		}
	})

	data.Labels = analyzeLabels(doc)

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		data.Lang = strings.TrimSpace(lang)
	}
	return data
}

func analyzeHeadings(doc *goquery.Document) audit.HeadingStats {
	stats := audit.HeadingStats{ByLevel: make(map[string]int, 6), SkippedLevels: []string{}}
	for level := 1; level <= 6; level++ {
		stats.ByLevel[fmt.Sprintf("h%d", level)] = 0
	}

	prev := 0
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		name := goquery.NodeName(sel)
		level := int(name[1] - '0')
		stats.ByLevel[name]++
		stats.Total++
		if prev > 0 && level > prev+1 {
			stats.SkippedLevels = append(stats.SkippedLevels, fmt.Sprintf("h%d->h%d", prev, level))
		}
		prev = level
	})
	stats.SingleH1 = stats.ByLevel["h1"] == 1
	return stats
}

var unlabelledInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

func analyzeLabels(doc *goquery.Document) audit.LabelStats {
	var stats audit.LabelStats

	labelFor := make(map[string]bool)
	doc.Find("label[for]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("for")
		labelFor[strings.TrimSpace(id)] = true
	})

	doc.Find("input, select, textarea").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "input" {
			t, _ := sel.Attr("type")
			if unlabelledInputTypes[strings.ToLower(strings.TrimSpace(t))] {
				return
			}
		}
		stats.Controls++
		if hasLabel(sel, labelFor) {
			stats.Labelled++
		}
	})

	stats.Unlabelled = stats.Controls - stats.Labelled
	if stats.Controls > 0 {
		stats.Coverage = round2(float64(stats.Labelled) / float64(stats.Controls))
	}
	return stats
}

func hasLabel(sel *goquery.Selection, labelFor map[string]bool) bool {
	if id, ok := sel.Attr("id"); ok && labelFor[strings.TrimSpace(id)] {
		return true
	}
	if sel.ParentsFiltered("label").Length() > 0 {
		return true
	}
	for _, attr := range []string{"aria-label", "aria-labelledby", "title"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// metaContent returns the content of <meta name=...>, matching name
// case-insensitively.
func metaContent(doc *goquery.Document, name string) (string, bool) {
	var (
		content string
		found   bool
	)
	doc.Find("meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		n, _ := sel.Attr("name")
		if strings.EqualFold(strings.TrimSpace(n), name) {
			content, _ = sel.Attr("content")
			found = true
			return false
		}
		return true
	})
	return content, found
}

func hasHTTPEquiv(doc *goquery.Document, name string) bool {
	found := false
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		v, _ := sel.Attr("http-equiv")
		found = strings.EqualFold(strings.TrimSpace(v), name)
		return !found
	})
	return found
}

// linkHref returns the href of the first <link> whose rel contains rel.
func linkHref(doc *goquery.Document, rel string) (string, bool) {
	var (
		href  string
		found bool
	)
	doc.Find("link[rel]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		r, _ := sel.Attr("rel")
		for _, token := range strings.Fields(strings.ToLower(r)) {
			if token == rel {
				href, _ = sel.Attr("href")
				found = true
				return false
			}
		}
		return true
	})
	return href, found
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
