package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// securityHeaderSpec describes one scored response header.
type securityHeaderSpec struct {
	Name           string
	Priority       string // "high", "medium", "low"
	Weight         int
	CheckFunc      func(value string) []string
	Recommendation string
	// Recommend marks headers whose absence produces a recommendation entry.
	Recommend bool
}

// securityHeaderSpecs lists the scored headers. Weights sum to 100.
var securityHeaderSpecs = []securityHeaderSpec{
	{
		Name:           "Strict-Transport-Security",
		Priority:       "high",
		Weight:         20,
		CheckFunc:      checkHSTS,
		Recommendation: "Add 'Strict-Transport-Security: max-age=31536000; includeSubDomains; preload'",
		Recommend:      true,
	},
	{
		Name:           "Content-Security-Policy",
		Priority:       "high",
		Weight:         25,
		CheckFunc:      checkCSP,
		Recommendation: "Implement a strict Content-Security-Policy appropriate for your application",
		Recommend:      true,
	},
	{
		Name:           "X-Frame-Options",
		Priority:       "medium",
		Weight:         15,
		CheckFunc:      checkXFrameOptions,
		Recommendation: "Add 'X-Frame-Options: DENY' or 'SAMEORIGIN'",
	},
	{
		Name:           "X-Content-Type-Options",
		Priority:       "medium",
		Weight:         15,
		CheckFunc:      checkXContentTypeOptions,
		Recommendation: "Add 'X-Content-Type-Options: nosniff'",
	},
	{
		Name:           "Referrer-Policy",
		Priority:       "medium",
		Weight:         10,
		CheckFunc:      checkReferrerPolicy,
		Recommendation: "Add 'Referrer-Policy: strict-origin-when-cross-origin' or 'no-referrer'",
	},
	{
		Name:           "Permissions-Policy",
		Priority:       "medium",
		Weight:         10,
		CheckFunc:      checkPermissionsPolicy,
		Recommendation: "Add 'Permissions-Policy' to control browser features (e.g., 'geolocation=(), microphone=()')",
	},
	{
		Name:           "X-XSS-Protection",
		Priority:       "low",
		Weight:         5,
		CheckFunc:      checkXSSProtection,
		Recommendation: "Add 'X-XSS-Protection: 0' and rely on Content-Security-Policy",
	},
}

// informationDisclosureHeaders lists headers that should be removed/obfuscated
var informationDisclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// Security fetches the target over HTTP and scores its response headers.
func (p *Probes) Security(ctx context.Context, env Env) audit.Outcome[audit.SecurityData] {
	return Run(ctx, env, audit.KindSecurity, func(ctx context.Context) (audit.SecurityData, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.Target.String(), nil)
		if err != nil {
			return audit.SecurityData{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", p.cfg.UserAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return audit.SecurityData{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

		data := AnalyzeSecurityHeaders(resp.Header)
		data.Cookies = AnalyzeCookies(resp)
		return data, nil
	}, audit.FallbackSecurity)
}

// AnalyzeSecurityHeaders scores header presence and collects quality issues
// for the headers that are present.
func AnalyzeSecurityHeaders(headers http.Header) audit.SecurityData {
	data := audit.SecurityData{
		Headers:         make(map[string]bool, len(securityHeaderSpecs)),
		Values:          make(map[string]string),
		Issues:          make(map[string][]string),
		Recommendations: []audit.Recommendation{},
	}

	for _, spec := range securityHeaderSpecs {
		data.MaxScore += spec.Weight
		value := strings.TrimSpace(headers.Get(spec.Name))
		if value == "" {
			data.Headers[spec.Name] = false
			if spec.Recommend {
				data.Recommendations = append(data.Recommendations, audit.Recommendation{
					Header:   spec.Name,
					Priority: spec.Priority,
					Message:  spec.Recommendation,
				})
			}
			continue
		}

		data.Headers[spec.Name] = true
		data.Values[spec.Name] = value
		data.Score += spec.Weight
		if issues := spec.CheckFunc(value); len(issues) > 0 {
			data.Issues[spec.Name] = issues
		}
	}

	checkDeprecatedHeaders(headers, &data)
	checkInformationDisclosure(headers, &data)

	data.Grade = calculateGrade(data.Score, data.MaxScore)
	return data
}

// checkHSTS validates the Strict-Transport-Security header
func checkHSTS(value string) []string {
	issues := []string{}
	value = strings.ToLower(value)

	if !strings.Contains(value, "max-age=") {
		issues = append(issues, "Missing 'max-age' directive")
	} else if strings.Contains(value, "max-age=0") {
		issues = append(issues, "max-age is set to 0 (HSTS disabled)")
	} else if !strings.Contains(value, "max-age=31536000") && !strings.Contains(value, "max-age=63072000") {
		issues = append(issues, "Consider increasing max-age to at least 31536000 (1 year)")
	}

	if !strings.Contains(value, "includesubdomains") {
		issues = append(issues, "Missing 'includeSubDomains' directive")
	}
	if !strings.Contains(value, "preload") {
		issues = append(issues, "Missing 'preload' directive (optional but recommended)")
	}
	return issues
}

// checkCSP validates the Content-Security-Policy header
func checkCSP(value string) []string {
	issues := []string{}
	value = strings.ToLower(value)
	directives := parseCSPDirectives(value)

	if strings.Contains(value, "'unsafe-inline'") {
		issues = append(issues, "Contains 'unsafe-inline' which weakens CSP protection")
	}
	if strings.Contains(value, "'unsafe-eval'") {
		issues = append(issues, "Contains 'unsafe-eval' which allows eval() and similar functions")
	}
	if strings.Contains(value, "*") {
		issues = append(issues, "Contains wildcard (*) which is too permissive")
	}
	if _, ok := directives["default-src"]; !ok {
		issues = append(issues, "Missing 'default-src' directive (recommended fallback)")
	}
	if _, ok := directives["script-src"]; !ok {
		issues = append(issues, "Consider adding 'script-src' directive for script control")
	}

	for _, token := range directives["script-src"] {
		switch token {
		case "data:":
			issues = append(issues, "Script sources allow data: URIs which can enable CSP bypasses")
		case "blob:":
			issues = append(issues, "Script sources allow blob: URLs which may enable CSP bypasses")
		case "filesystem:":
			issues = append(issues, "Script sources allow filesystem: URLs which may enable CSP bypasses")
		}
		if strings.HasPrefix(token, "http:") {
			issues = append(issues, "Script sources allow insecure http scheme")
		}
	}
	return issues
}

func parseCSPDirectives(value string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(value, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		result[fields[0]] = fields[1:]
	}
	return result
}

// checkXFrameOptions validates the X-Frame-Options header
func checkXFrameOptions(value string) []string {
	value = strings.ToUpper(value)
	switch {
	case value == "DENY" || value == "SAMEORIGIN":
		return nil
	case strings.HasPrefix(value, "ALLOW-FROM"):
		return []string{"ALLOW-FROM is deprecated and not supported by modern browsers"}
	default:
		return []string{"Invalid X-Frame-Options value"}
	}
}

// checkXContentTypeOptions validates the X-Content-Type-Options header
func checkXContentTypeOptions(value string) []string {
	if strings.ToLower(value) == "nosniff" {
		return nil
	}
	return []string{"Invalid value, should be 'nosniff'"}
}

// checkReferrerPolicy validates the Referrer-Policy header
func checkReferrerPolicy(value string) []string {
	value = strings.ToLower(value)
	for _, policy := range []string{"no-referrer", "strict-origin", "same-origin"} {
		if strings.Contains(value, policy) {
			return nil
		}
	}
	if strings.Contains(value, "unsafe-url") || strings.Contains(value, "origin-when-cross-origin") {
		return []string{"Policy may leak sensitive information in referrer"}
	}
	return []string{"Unusual or weak referrer policy"}
}

// checkPermissionsPolicy validates the Permissions-Policy header
func checkPermissionsPolicy(value string) []string {
	if len(value) < 10 {
		return []string{"Permissions-Policy seems minimal, consider adding more restrictions"}
	}
	return nil
}

func checkXSSProtection(value string) []string {
	if strings.TrimSpace(value) == "0" {
		return nil
	}
	return []string{"X-XSS-Protection is deprecated and may introduce vulnerabilities. Set to '0' or remove it."}
}

// checkDeprecatedHeaders checks for deprecated security headers
func checkDeprecatedHeaders(headers http.Header, data *audit.SecurityData) {
	if headers.Get("Expect-CT") != "" {
		data.Warnings = append(data.Warnings, "Expect-CT is deprecated. Remove this header.")
	}
	if headers.Get("Public-Key-Pins") != "" {
		data.Warnings = append(data.Warnings,
			"Public-Key-Pins (HPKP) is deprecated and dangerous. Remove this header immediately.")
	}
}

// checkInformationDisclosure checks for headers that expose sensitive information
func checkInformationDisclosure(headers http.Header, data *audit.SecurityData) {
	for _, name := range informationDisclosureHeaders {
		if value := headers.Get(name); value != "" {
			data.Warnings = append(data.Warnings,
				name+" header exposes server information: '"+value+"'. Consider removing or obfuscating.")
		}
	}
}

// calculateGrade converts a score to a letter grade
func calculateGrade(score, maxScore int) string {
	if maxScore <= 0 {
		return "F"
	}
	percentage := float64(score) / float64(maxScore) * 100

	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	case percentage >= 50:
		return "E"
	default:
		return "F"
	}
}

// AnalyzeCookies inspects Set-Cookie headers for missing Secure/HttpOnly flags.
func AnalyzeCookies(resp *http.Response) []audit.CookieFinding {
	if resp == nil || len(resp.Header["Set-Cookie"]) == 0 {
		return nil
	}

	findings := make([]audit.CookieFinding, 0)
	for _, cookie := range resp.Cookies() {
		finding := audit.CookieFinding{
			Name:            cookie.Name,
			MissingSecure:   !cookie.Secure,
			MissingHTTPOnly: !cookie.HttpOnly,
			SameSite:        sameSiteName(cookie.SameSite),
		}
		if finding.MissingSecure || finding.MissingHTTPOnly {
			findings = append(findings, finding)
		}
	}
	return findings
}

func sameSiteName(mode http.SameSite) string {
	switch mode {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
