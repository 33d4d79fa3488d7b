package audit

import (
	"sort"
	"strings"
)

// ElementKind is the tag of an interactive element.
type ElementKind string

const (
	ElementButton ElementKind = "button"
	ElementInput  ElementKind = "input"
)

// InteractiveElement is a DOM control discovered on one page load together with
// the outcome of interacting with it. Index is stable only within that load.
type InteractiveElement struct {
	Kind        ElementKind `json:"kind"`
	Index       int         `json:"index"`
	Text        string      `json:"text,omitempty"`
	Type        string      `json:"type,omitempty"`
	Name        string      `json:"name,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Attempted   bool        `json:"attempted"`
	Succeeded   bool        `json:"succeeded"`
	Error       string      `json:"error,omitempty"`
	FillValue   string      `json:"fill_value,omitempty"`
	ValueBefore *string     `json:"value_before,omitempty"`
	ValueAfter  *string     `json:"value_after,omitempty"`
}

// BatchStats records how the sweep was partitioned.
type BatchStats struct {
	ConcurrencyLimit int   `json:"concurrency_limit"`
	ButtonBatches    []int `json:"button_batches"`
	InputBatches     []int `json:"input_batches"`
}

// InteractionData is the result of the interactive-element stress test.
type InteractionData struct {
	Buttons    []InteractiveElement `json:"buttons"`
	Inputs     []InteractiveElement `json:"inputs"`
	CORSProbe  map[string]bool      `json:"cors_probe"`
	CORSIssues []string             `json:"cors_issues,omitempty"`
	Batches    BatchStats           `json:"batches"`
}

// CORSMethods are the methods checked by the cross-origin preflight probe.
var CORSMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// FallbackInteractions returns the payload used when the sweep fails.
func FallbackInteractions() InteractionData {
	cors := make(map[string]bool, len(CORSMethods))
	for _, m := range CORSMethods {
		cors[m] = false
	}
	return InteractionData{
		Buttons:   []InteractiveElement{},
		Inputs:    []InteractiveElement{},
		CORSProbe: cors,
		Batches:   BatchStats{ButtonBatches: []int{}, InputBatches: []int{}},
	}
}

// ServiceCategory classifies a third-party host.
type ServiceCategory string

const (
	CategoryAnalytics   ServiceCategory = "analytics"
	CategorySocial      ServiceCategory = "social"
	CategoryAdvertising ServiceCategory = "advertising"
	CategoryCDN         ServiceCategory = "cdn"
	CategoryUnknown     ServiceCategory = "unknown"
)

// NetworkRequest is one request observed while the page loaded.
type NetworkRequest struct {
	URL          string `json:"url"`
	ResourceType string `json:"resource_type"`
	Method       string `json:"method"`
	Host         string `json:"host"`
}

// Identity is the deduplication key of a request.
func (r NetworkRequest) Identity() string {
	return r.URL + "|" + r.ResourceType + "|" + r.Method
}

// ThirdPartyService aggregates every request sent to one third-party host.
type ThirdPartyService struct {
	Host          string          `json:"host"`
	Category      ServiceCategory `json:"category"`
	RequestCount  int             `json:"request_count"`
	ResourceTypes []string        `json:"resource_types"`
}

// AddResourceType records t, keeping ResourceTypes a sorted set.
func (s *ThirdPartyService) AddResourceType(t string) {
	t = strings.ToLower(t)
	i := sort.SearchStrings(s.ResourceTypes, t)
	if i < len(s.ResourceTypes) && s.ResourceTypes[i] == t {
		return
	}
	s.ResourceTypes = append(s.ResourceTypes, "")
	copy(s.ResourceTypes[i+1:], s.ResourceTypes[i:])
	s.ResourceTypes[i] = t
}

// ThirdPartyData summarizes third-party origins contacted during page load.
type ThirdPartyData struct {
	TotalThirdPartyHosts int                           `json:"total_third_party_hosts"`
	TotalRequests        int                           `json:"total_requests"`
	CategorySummary      map[ServiceCategory]int       `json:"category_summary"`
	Details              map[string]*ThirdPartyService `json:"details"`
}

// FallbackThirdParty returns the payload used when request capture fails.
func FallbackThirdParty() ThirdPartyData {
	return ThirdPartyData{
		CategorySummary: map[ServiceCategory]int{},
		Details:         map[string]*ThirdPartyService{},
	}
}
