package interaction

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

// DefaultProbeOrigin is the foreign origin presented in preflight requests.
const DefaultProbeOrigin = "https://cors-probe.seca-web.invalid"

// CORSReport summarizes the CORS headers of one preflight response.
type CORSReport struct {
	AllowOrigin        string
	AllowMethods       string
	AllowHeaders       string
	ExposeHeaders      string
	MaxAge             string
	ResourcePolicy     string
	AllowCredentials   bool
	VaryOrigin         bool
	AllowsAnyOrigin    bool
	MissingAllowOrigin bool
	Issues             []string
}

// AnalyzeCORS inspects CORS headers for insecure defaults (OWASP A5:2021).
// It returns nil when no response is available or nothing stands out.
func AnalyzeCORS(resp *http.Response) *CORSReport {
	if resp == nil {
		return nil
	}
	headers := resp.Header
	report := &CORSReport{
		AllowOrigin:      headers.Get("Access-Control-Allow-Origin"),
		AllowMethods:     headers.Get("Access-Control-Allow-Methods"),
		AllowHeaders:     headers.Get("Access-Control-Allow-Headers"),
		ExposeHeaders:    headers.Get("Access-Control-Expose-Headers"),
		MaxAge:           headers.Get("Access-Control-Max-Age"),
		ResourcePolicy:   headers.Get("Cross-Origin-Resource-Policy"),
		AllowCredentials: headers.Get("Access-Control-Allow-Credentials") == "true",
		VaryOrigin:       varyIncludesOrigin(headers.Values("Vary")),
	}

	switch report.AllowOrigin {
	case "":
		report.MissingAllowOrigin = true
		report.Issues = append(report.Issues, "Access-Control-Allow-Origin header missing")
	case "*":
		report.AllowsAnyOrigin = true
		report.Issues = append(report.Issues, "CORS allows any origin (*)")
		if report.AllowCredentials {
			report.Issues = append(report.Issues, "Credentials allowed with wildcard origin (disallowed by browsers)")
		}
	}

	if strings.Contains(report.AllowHeaders, "*") {
		report.Issues = append(report.Issues, "Access-Control-Allow-Headers allows any header (*)")
	}
	if strings.Contains(report.ExposeHeaders, "*") {
		report.Issues = append(report.Issues, "Access-Control-Expose-Headers exposes all headers (*)")
	}

	// The remaining checks only matter when cross-origin access is granted.
	if !report.MissingAllowOrigin {
		if report.MaxAge == "" {
			report.Issues = append(report.Issues, "Access-Control-Max-Age header missing (preflight responses may not be cached)")
		}
		if report.ResourcePolicy == "" {
			report.Issues = append(report.Issues, "Cross-Origin-Resource-Policy header missing")
		}
		if !report.VaryOrigin && !report.AllowsAnyOrigin {
			report.Issues = append(report.Issues, "Vary: Origin header missing (responses may be cached incorrectly)")
		}
	}

	if len(report.Issues) == 0 {
		return nil
	}
	return report
}

func varyIncludesOrigin(values []string) bool {
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "origin") {
				return true
			}
		}
	}
	return false
}

// CORSProber sends one preflight request per method and records whether the
// target grants that method to a foreign origin.
type CORSProber struct {
	client    *http.Client
	origin    string
	userAgent string
	logger    *zap.Logger
}

// NewCORSProber creates a prober. A nil client gets a client with timeout.
func NewCORSProber(client *http.Client, userAgent string, timeout time.Duration, logger *zap.Logger) *CORSProber {
	if timeout <= 0 {
		timeout = constants.DefaultNavigationTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CORSProber{client: client, origin: DefaultProbeOrigin, userAgent: userAgent, logger: logger}
}

// Probe returns the per-method verdicts for every method in audit.CORSMethods
// and the header issues found on the responses. Connection failures yield false.
func (c *CORSProber) Probe(ctx context.Context, target audit.Target) (map[string]bool, []string) {
	verdicts := make(map[string]bool, len(audit.CORSMethods))
	seen := make(map[string]bool)
	issues := []string{}

	for _, method := range audit.CORSMethods {
		resp, err := c.preflight(ctx, target.String(), method)
		if err != nil {
			c.logger.Debug("cors preflight failed", zap.String("method", method), zap.Error(err))
			verdicts[method] = false
			continue
		}
		verdicts[method] = c.allows(resp, method)
		if report := AnalyzeCORS(resp); report != nil {
			for _, issue := range report.Issues {
				if !seen[issue] {
					seen[issue] = true
					issues = append(issues, issue)
				}
			}
		}
		resp.Body.Close()
	}
	return verdicts, issues
}

func (c *CORSProber) preflight(ctx context.Context, url, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Access-Control-Request-Method", method)
	req.Header.Set("User-Agent", c.userAgent)
	return c.client.Do(req)
}

// allows applies the browser's preflight rules: the origin must be granted and
// non-safelisted methods must be listed (or wildcarded).
func (c *CORSProber) allows(resp *http.Response, method string) bool {
	if resp.StatusCode >= 400 {
		return false
	}
	origin := resp.Header.Get("Access-Control-Allow-Origin")
	if origin != "*" && origin != c.origin {
		return false
	}
	if method == http.MethodGet || method == http.MethodPost || method == http.MethodHead {
		return true
	}
	for _, m := range strings.Split(resp.Header.Get("Access-Control-Allow-Methods"), ",") {
		m = strings.TrimSpace(m)
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
