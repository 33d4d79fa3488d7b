package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

type webManifest struct {
	Name  string            `json:"name"`
	Icons []json.RawMessage `json:"icons"`
}

// PWA checks progressive web app readiness, including whether the page still
// renders with the network switched off.
func (p *Probes) PWA(ctx context.Context, env Env) audit.Outcome[audit.PWAData] {
	return Run(ctx, env, audit.KindPWA, func(ctx context.Context) (audit.PWAData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.PWAData, error) {
			doc, nav, err := p.loadDocument(ctx, env, page)
			if err != nil {
				return audit.PWAData{}, err
			}

			base := env.Target.URL()
			if nav != nil {
				if u, err := url.Parse(nav.URL); err == nil && u.IsAbs() {
					base = u
				}
			}

			data := InspectPWADocument(doc, base)
			data.HTTPS = env.Target.IsHTTPS()

			if data.HasManifest {
				icons, err := p.fetchManifestIcons(ctx, data.ManifestURL)
				if err != nil {
					env.logger().Debug("manifest fetch failed", zap.String("manifest", data.ManifestURL), zap.Error(err))
				}
				data.ManifestIcons = icons
			}

			if data.ServiceWorker, err = page.ServiceWorkerRegistered(ctx); err != nil {
				env.logger().Debug("service worker check failed", zap.Error(err))
			}

			if data.OfflineCapable, err = offlineCapable(ctx, page); err != nil {
				env.logger().Warn("offline check failed", zap.Error(err))
			}

			data.Score = pwaScore(data)
			return data, nil
		})
	}, audit.FallbackPWA)
}

// InspectPWADocument reads the PWA-related tags of a document. base resolves
// a relative manifest href.
func InspectPWADocument(doc *goquery.Document, base *url.URL) audit.PWAData {
	var data audit.PWAData

	if href, ok := linkHref(doc, "manifest"); ok && href != "" {
		data.HasManifest = true
		data.ManifestURL = href
		if ref, err := url.Parse(href); err == nil && base != nil {
			data.ManifestURL = base.ResolveReference(ref).String()
		}
	}
	_, data.AppleTouchIcon = linkHref(doc, "apple-touch-icon")
	_, data.ViewportMeta = metaContent(doc, "viewport")
	_, data.ThemeColorMeta = metaContent(doc, "theme-color")
	return data
}

func (p *Probes) fetchManifestIcons(ctx context.Context, manifestURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("manifest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.ManifestFetchLimitBytes))
	if err != nil {
		return 0, err
	}
	var m webManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return 0, fmt.Errorf("decode manifest: %w", err)
	}
	return len(m.Icons), nil
}

// offlineCapable reloads the page with the network disabled and reports
// whether anything rendered. The network is always re-enabled.
func offlineCapable(ctx context.Context, page browser.Page) (ok bool, err error) {
	defer func() {
		if rerr := page.SetOffline(context.WithoutCancel(ctx), false); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("restore network: %w", rerr))
		}
	}()

	if err := page.SetOffline(ctx, true); err != nil {
		return false, fmt.Errorf("disable network: %w", err)
	}
	if err := page.Reload(ctx); err != nil {
		return false, nil
	}
	n, err := page.BodyTextLength(ctx)
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

func pwaScore(d audit.PWAData) int {
	score := 0
	for _, check := range []struct {
		ok     bool
		points int
	}{
		{d.HTTPS, 20},
		{d.HasManifest, 20},
		{d.ManifestIcons > 0, 10},
		{d.ServiceWorker, 20},
		{d.OfflineCapable, 15},
		{d.ViewportMeta, 5},
		{d.ThemeColorMeta, 5},
		{d.AppleTouchIcon, 5},
	} {
		if check.ok {
			score += check.points
		}
	}
	return score
}
