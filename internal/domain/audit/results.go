package audit

// Names of the five timing metrics reported by the performance probe.
const (
	MetricFirstContentfulPaint   = "first-contentful-paint"
	MetricLargestContentfulPaint = "largest-contentful-paint"
	MetricTotalBlockingTime      = "total-blocking-time"
	MetricCumulativeLayoutShift  = "cumulative-layout-shift"
	MetricTimeToFirstByte        = "time-to-first-byte"
)

// Names of the category scores reported by the performance probe.
const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
)

// Metric is one measured timing with its normalized 0-100 score.
type Metric struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Score int     `json:"score"`
}

// PerformanceData holds category scores and timing metrics of one page load.
type PerformanceData struct {
	Score      int               `json:"score"`
	Categories map[string]int    `json:"categories"`
	Metrics    map[string]Metric `json:"metrics"`
}

// FallbackPerformance returns the payload used when the performance probe fails.
func FallbackPerformance() PerformanceData {
	return PerformanceData{
		Categories: map[string]int{},
		Metrics:    map[string]Metric{},
	}
}

// Recommendation is a remediation hint for a missing security header.
type Recommendation struct {
	Header   string `json:"header"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

// CookieFinding flags a cookie set without Secure or HttpOnly.
type CookieFinding struct {
	Name            string `json:"name"`
	MissingSecure   bool   `json:"missing_secure"`
	MissingHTTPOnly bool   `json:"missing_httponly"`
	SameSite        string `json:"same_site,omitempty"`
}

// SecurityData is the security-header analysis of the target's main document.
type SecurityData struct {
	Score           int                 `json:"score"`
	MaxScore        int                 `json:"max_score"`
	Grade           string              `json:"grade"`
	Headers         map[string]bool     `json:"headers"`
	Values          map[string]string   `json:"values,omitempty"`
	Issues          map[string][]string `json:"issues,omitempty"`
	Recommendations []Recommendation    `json:"recommendations"`
	Warnings        []string            `json:"warnings,omitempty"`
	Cookies         []CookieFinding     `json:"cookies,omitempty"`
}

// FallbackSecurity returns the payload used when the security probe fails.
func FallbackSecurity() SecurityData {
	return SecurityData{
		MaxScore:        100,
		Grade:           "F",
		Headers:         map[string]bool{},
		Recommendations: []Recommendation{},
	}
}

// ImageStats counts images and their alternative text coverage.
type ImageStats struct {
	Total      int     `json:"total"`
	WithAlt    int     `json:"with_alt"`
	WithoutAlt int     `json:"without_alt"`
	AltRatio   float64 `json:"alt_ratio"`
}

// HeadingStats describes the heading hierarchy of a document.
type HeadingStats struct {
	Total         int            `json:"total"`
	ByLevel       map[string]int `json:"by_level"`
	SingleH1      bool           `json:"single_h1"`
	SkippedLevels []string       `json:"skipped_levels"`
}

// LabelStats counts form controls with and without an accessible label.
type LabelStats struct {
	Controls   int     `json:"controls"`
	Labelled   int     `json:"labelled"`
	Unlabelled int     `json:"unlabelled"`
	Coverage   float64 `json:"coverage"`
}

// AccessibilityData holds structural accessibility counts of the rendered page.
type AccessibilityData struct {
	Images    ImageStats     `json:"images"`
	Headings  HeadingStats   `json:"headings"`
	Landmarks map[string]int `json:"landmarks"`
	Labels    LabelStats     `json:"labels"`
	Lang      string         `json:"lang,omitempty"`
}

// FallbackAccessibility returns the payload used when the accessibility probe fails.
func FallbackAccessibility() AccessibilityData {
	return AccessibilityData{
		Headings:  HeadingStats{ByLevel: map[string]int{}, SkippedLevels: []string{}},
		Landmarks: map[string]int{},
	}
}

// FormField describes one control of a form and its validation attributes.
type FormField struct {
	Name      string `json:"name,omitempty"`
	Tag       string `json:"tag"`
	Type      string `json:"type,omitempty"`
	Required  bool   `json:"required"`
	Pattern   string `json:"pattern,omitempty"`
	Min       string `json:"min,omitempty"`
	Max       string `json:"max,omitempty"`
	MinLength string `json:"minlength,omitempty"`
	MaxLength string `json:"maxlength,omitempty"`
}

// HasValidation reports whether the field declares any client-side constraint.
func (f FormField) HasValidation() bool {
	return f.Required || f.Pattern != "" || f.Min != "" || f.Max != "" || f.MinLength != "" || f.MaxLength != "" ||
		f.Type == "email" || f.Type == "url" || f.Type == "number" || f.Type == "tel"
}

// Form is one <form> element of the page.
type Form struct {
	Index        int         `json:"index"`
	ID           string      `json:"id,omitempty"`
	Action       string      `json:"action,omitempty"`
	Method       string      `json:"method"`
	Fields       []FormField `json:"fields"`
	HasCSRFToken bool        `json:"has_csrf_token"`
	HasSubmit    bool        `json:"has_submit"`
	NoValidate   bool        `json:"novalidate"`
}

// FormsSummary aggregates counts across all forms.
type FormsSummary struct {
	TotalForms           int `json:"total_forms"`
	TotalFields          int `json:"total_fields"`
	FieldsWithValidation int `json:"fields_with_validation"`
	FormsWithCSRFToken   int `json:"forms_with_csrf_token"`
	FormsWithSubmit      int `json:"forms_with_submit"`
}

// FormsData is the form-validation inspection of the page.
type FormsData struct {
	Forms         []Form       `json:"forms"`
	Summary       FormsSummary `json:"summary"`
	MetaCSRFToken bool         `json:"meta_csrf_token"`
}

// FallbackForms returns the payload used when the forms probe fails.
func FallbackForms() FormsData {
	return FormsData{Forms: []Form{}}
}

// PWAData records progressive web app readiness checks.
type PWAData struct {
	Score          int    `json:"score"`
	HTTPS          bool   `json:"https"`
	HasManifest    bool   `json:"has_manifest"`
	ManifestURL    string `json:"manifest_url,omitempty"`
	ManifestIcons  int    `json:"manifest_icons"`
	ServiceWorker  bool   `json:"service_worker"`
	AppleTouchIcon bool   `json:"apple_touch_icon"`
	ViewportMeta   bool   `json:"viewport_meta"`
	ThemeColorMeta bool   `json:"theme_color_meta"`
	OfflineCapable bool   `json:"offline_capable"`
}

// FallbackPWA returns the payload used when the PWA probe fails.
func FallbackPWA() PWAData {
	return PWAData{}
}

// BrokenLink is a link that failed its existence check. Status is set for HTTP
// failures, Error for connection failures.
type BrokenLink struct {
	URL    string `json:"url"`
	Text   string `json:"text,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BacklinksData is the link integrity check of every anchor on the page.
type BacklinksData struct {
	TotalLinks int          `json:"total_links"`
	Checked    int          `json:"checked"`
	Healthy    int          `json:"healthy"`
	Internal   int          `json:"internal"`
	External   int          `json:"external"`
	Skipped    int          `json:"skipped"`
	Broken     []BrokenLink `json:"broken_links"`
}

// FallbackBacklinks returns the payload used when the backlinks probe fails.
func FallbackBacklinks() BacklinksData {
	return BacklinksData{Broken: []BrokenLink{}}
}
