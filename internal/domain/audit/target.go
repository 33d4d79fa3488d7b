package audit

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Target is the absolute URL of the page under audit. It is immutable once parsed.
type Target struct {
	raw string
	url url.URL
}

// ParseTarget parses a target string into an absolute http(s) URL.
// This handles various input formats:
//   - example.com
//   - https://example.com
//   - http://example.com:8080/path
//
// Inputs without a scheme are assumed to be served over https.
func ParseTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, sharedErrors.ErrEmptyTarget
	}

	parsed, err := url.Parse(trimmed)

	// A missing scheme, or a "scheme" that is really a host with a port
	// (example.com:8080), means the input was a bare host.
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" && parsed.Opaque != "" {
		parsed, err = url.Parse("https://" + trimmed)
	}
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q: %v", sharedErrors.ErrInvalidTarget, raw, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", sharedErrors.ErrInvalidTarget, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return Target{}, fmt.Errorf("%w: %q has no host", sharedErrors.ErrInvalidTarget, raw)
	}

	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return Target{raw: raw, url: *parsed}, nil
}

// MustParseTarget is ParseTarget for fixed inputs known to be valid.
func MustParseTarget(raw string) Target {
	t, err := ParseTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the normalized URL.
func (t Target) String() string {
	return t.url.String()
}

// Raw returns the string the target was parsed from.
func (t Target) Raw() string {
	return t.raw
}

// URL returns a copy of the parsed URL.
func (t Target) URL() *url.URL {
	u := t.url
	return &u
}

// Host returns the lowercased hostname without port.
func (t Target) Host() string {
	return t.url.Hostname()
}

// IsZero reports whether the target was never parsed.
func (t Target) IsZero() bool {
	return t.url.Host == ""
}

// IsHTTPS reports whether the target is served over TLS.
func (t Target) IsHTTPS() bool {
	return t.url.Scheme == "https"
}

// IsFirstParty reports whether host belongs to the target. Ports are ignored and
// the comparison is case-insensitive.
func (t Target) IsFirstParty(host string) bool {
	if host == "" {
		return false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.EqualFold(strings.TrimSuffix(host, "."), t.Host())
}
