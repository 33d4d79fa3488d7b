package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// Link is an anchor discovered on the page.
type Link struct {
	URL      string
	Text     string
	Internal bool
}

// LinkResult is the outcome of checking one link. Err is set only when no
// HTTP response was received.
type LinkResult struct {
	Link   Link
	Status int
	Err    error
}

// Broken reports whether the link failed its existence check.
func (r LinkResult) Broken() bool {
	return r.Err != nil || r.Status >= 400
}

// LinkChecker verifies links with HEAD requests under a concurrency cap and a
// shared rate limit.
type LinkChecker struct {
	client    *http.Client
	userAgent string
	workers   int
	limiter   *rate.Limiter
}

// NewLinkChecker creates a checker issuing at most perSecond requests per
// second from at most workers goroutines.
func NewLinkChecker(client *http.Client, userAgent string, workers int, perSecond float64) *LinkChecker {
	if workers < 1 {
		workers = 1
	}
	burst := max(1, int(perSecond))
	return &LinkChecker{
		client:    client,
		userAgent: userAgent,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Check verifies every link. Results keep the input order.
func (c *LinkChecker) Check(ctx context.Context, links []Link) []LinkResult {
	results := make([]LinkResult, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, link := range links {
		g.Go(func() error {
			results[i] = c.checkOne(gctx, link)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *LinkChecker) checkOne(ctx context.Context, link Link) LinkResult {
	res := LinkResult{Link: link}
	if err := c.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	status, err := c.request(ctx, http.MethodHead, link.URL)
	// Some servers reject HEAD; retry those with GET.
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, link.URL)
	}
	res.Status, res.Err = status, err
	return res
}

func (c *LinkChecker) request(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", method, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

// Backlinks checks every anchor of the rendered page.
func (p *Probes) Backlinks(ctx context.Context, env Env) audit.Outcome[audit.BacklinksData] {
	return Run(ctx, env, audit.KindBacklinks, func(ctx context.Context) (audit.BacklinksData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.BacklinksData, error) {
			doc, nav, err := p.loadDocument(ctx, env, page)
			if err != nil {
				return audit.BacklinksData{}, err
			}

			base := env.Target.URL()
			if nav != nil {
				if u, err := url.Parse(nav.URL); err == nil && u.IsAbs() {
					base = u
				}
			}

			links, skipped := CollectLinks(doc, base, env.Target)
			data := audit.FallbackBacklinks()
			data.TotalLinks = len(links) + skipped
			data.Skipped = skipped
			if len(links) > p.cfg.MaxLinks {
				data.Skipped += len(links) - p.cfg.MaxLinks
				links = links[:p.cfg.MaxLinks]
			}

			for _, res := range p.links.Check(ctx, links) {
				data.Checked++
				if res.Link.Internal {
					data.Internal++
				} else {
					data.External++
				}
				env.recorder().RecordLinkCheck(!res.Broken())
				if !res.Broken() {
					data.Healthy++
					continue
				}
				broken := audit.BrokenLink{URL: res.Link.URL, Text: res.Link.Text}
				if res.Err != nil {
					broken.Error = res.Err.Error()
				} else {
					broken.Status = res.Status
				}
				data.Broken = append(data.Broken, broken)
			}

			env.logger().Debug("links checked",
				zap.Int("checked", data.Checked),
				zap.Int("broken", len(data.Broken)))
			return data, nil
		})
	}, audit.FallbackBacklinks)
}

// CollectLinks resolves and deduplicates the anchors of doc. skipped counts
// anchors that cannot be checked over HTTP (mailto:, javascript:, fragments).
func CollectLinks(doc *goquery.Document, base *url.URL, target audit.Target) ([]Link, int) {
	seen := make(map[string]bool)
	links := []Link{}
	skipped := 0

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u := resolveLink(base, href)
		if u == nil {
			skipped++
			return
		}
		key := u.String()
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, Link{
			URL:      key,
			Text:     truncate(strings.Join(strings.Fields(sel.Text()), " "), 120),
			Internal: target.IsFirstParty(u.Host),
		})
	})
	return links, skipped
}

// resolveLink turns href into an absolute http(s) URL without fragment, or
// nil when it does not point at a fetchable document.
func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "javascript:"),
		strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"):
		return nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" || ref.Host == "" {
		return nil
	}
	ref.Fragment = ""
	if ref.Path == "" {
		ref.Path = "/"
	}
	return ref
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
