package audit

import (
	"errors"
	"fmt"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Additional groups the probe outcomes serialized under the report's "additional" key.
type Additional struct {
	Forms        Outcome[FormsData]       `json:"forms"`
	PWA          Outcome[PWAData]         `json:"pwa"`
	Backlinks    Outcome[BacklinksData]   `json:"backlinks"`
	Interactions Outcome[InteractionData] `json:"interactions"`
	ThirdParty   Outcome[ThirdPartyData]  `json:"third_party"`
}

// Report is the root aggregate of one audit. The coordinator owns it until Seal;
// after sealing every setter fails with ErrReportSealed.
type Report struct {
	id            string
	target        Target
	timestamp     time.Time
	overallScore  int
	scoreFormula  string
	performance   Outcome[PerformanceData]
	security      Outcome[SecurityData]
	accessibility Outcome[AccessibilityData]
	additional    Additional
	present       map[ProbeKind]bool
	sealed        bool
}

// NewReport creates an empty report for target.
func NewReport(id string, target Target, timestamp time.Time) (*Report, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: report id", sharedErrors.ErrMissingRequired)
	}
	if target.IsZero() {
		return nil, sharedErrors.ErrEmptyTarget
	}

	return &Report{
		id:        id,
		target:    target,
		timestamp: timestamp.UTC(),
		present:   make(map[ProbeKind]bool, len(AllProbeKinds)),
	}, nil
}

// Business methods

func (r *Report) record(kind ProbeKind) error {
	if r.sealed {
		return sharedErrors.ErrReportSealed
	}
	if r.present[kind] {
		return fmt.Errorf("%w: %s recorded twice", sharedErrors.ErrValidation, kind)
	}
	r.present[kind] = true
	return nil
}

// SetPerformance records the performance outcome.
func (r *Report) SetPerformance(o Outcome[PerformanceData]) error {
	if err := r.record(KindPerformance); err != nil {
		return err
	}
	r.performance = o
	return nil
}

// SetSecurity records the security-header outcome.
func (r *Report) SetSecurity(o Outcome[SecurityData]) error {
	if err := r.record(KindSecurity); err != nil {
		return err
	}
	r.security = o
	return nil
}

// SetAccessibility records the accessibility outcome.
func (r *Report) SetAccessibility(o Outcome[AccessibilityData]) error {
	if err := r.record(KindAccessibility); err != nil {
		return err
	}
	r.accessibility = o
	return nil
}

// SetForms records the forms outcome.
func (r *Report) SetForms(o Outcome[FormsData]) error {
	if err := r.record(KindForms); err != nil {
		return err
	}
	r.additional.Forms = o
	return nil
}

// SetPWA records the PWA readiness outcome.
func (r *Report) SetPWA(o Outcome[PWAData]) error {
	if err := r.record(KindPWA); err != nil {
		return err
	}
	r.additional.PWA = o
	return nil
}

// SetBacklinks records the link integrity outcome.
func (r *Report) SetBacklinks(o Outcome[BacklinksData]) error {
	if err := r.record(KindBacklinks); err != nil {
		return err
	}
	r.additional.Backlinks = o
	return nil
}

// SetInteractions records the interaction sweep outcome.
func (r *Report) SetInteractions(o Outcome[InteractionData]) error {
	if err := r.record(KindInteractions); err != nil {
		return err
	}
	r.additional.Interactions = o
	return nil
}

// SetThirdParty records the third-party request outcome.
func (r *Report) SetThirdParty(o Outcome[ThirdPartyData]) error {
	if err := r.record(KindThirdParty); err != nil {
		return err
	}
	r.additional.ThirdParty = o
	return nil
}

// SetOverallScore stores the derived score and the formula that produced it.
func (r *Report) SetOverallScore(score int, formula string) error {
	if r.sealed {
		return sharedErrors.ErrReportSealed
	}
	r.overallScore = score
	r.scoreFormula = formula
	return nil
}

// Validate checks that every declared probe kind was recorded.
func (r *Report) Validate() error {
	var errs []error
	for _, kind := range AllProbeKinds {
		if !r.present[kind] {
			errs = append(errs, fmt.Errorf("%w: %s", sharedErrors.ErrIncompleteReport, kind))
		}
	}
	return errors.Join(errs...)
}

// Seal validates the report and freezes it.
func (r *Report) Seal() error {
	if r.sealed {
		return sharedErrors.ErrReportSealed
	}
	if err := r.Validate(); err != nil {
		return err
	}
	// Detach from payloads the probes may still reference.
	r.performance = cloneOutcome(r.performance, PerformanceData.Clone)
	r.security = cloneOutcome(r.security, SecurityData.Clone)
	r.accessibility = cloneOutcome(r.accessibility, AccessibilityData.Clone)
	r.additional = r.additional.Clone()
	r.sealed = true
	return nil
}

// IsSealed reports whether the report is frozen.
func (r *Report) IsSealed() bool {
	return r.sealed
}

// FailedProbes lists the kinds whose outcome is a fallback.
func (r *Report) FailedProbes() []ProbeKind {
	status := map[ProbeKind]bool{
		KindPerformance:   r.performance.Failed(),
		KindSecurity:      r.security.Failed(),
		KindAccessibility: r.accessibility.Failed(),
		KindForms:         r.additional.Forms.Failed(),
		KindPWA:           r.additional.PWA.Failed(),
		KindBacklinks:     r.additional.Backlinks.Failed(),
		KindInteractions:  r.additional.Interactions.Failed(),
		KindThirdParty:    r.additional.ThirdParty.Failed(),
	}
	failed := make([]ProbeKind, 0)
	for _, kind := range AllProbeKinds {
		if status[kind] {
			failed = append(failed, kind)
		}
	}
	return failed
}

// Getters

func (r *Report) ID() string {
	return r.id
}

func (r *Report) Target() Target {
	return r.target
}

func (r *Report) Timestamp() time.Time {
	return r.timestamp
}

func (r *Report) OverallScore() int {
	return r.overallScore
}

func (r *Report) ScoreFormula() string {
	return r.scoreFormula
}

// Performance, Security, Accessibility and Additional return deep copies;
// mutating them never changes the report.

func (r *Report) Performance() Outcome[PerformanceData] {
	return cloneOutcome(r.performance, PerformanceData.Clone)
}

func (r *Report) Security() Outcome[SecurityData] {
	return cloneOutcome(r.security, SecurityData.Clone)
}

func (r *Report) Accessibility() Outcome[AccessibilityData] {
	return cloneOutcome(r.accessibility, AccessibilityData.Clone)
}

func (r *Report) Additional() Additional {
	return r.additional.Clone()
}

// TimestampISO renders the timestamp as ISO-8601 with millisecond precision.
func (r *Report) TimestampISO() string {
	return r.timestamp.Format("2006-01-02T15:04:05.000Z07:00")
}
