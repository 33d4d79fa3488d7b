package audit

// ProbeKind names one self-contained analysis of an audit.
type ProbeKind string

const (
	KindPerformance   ProbeKind = "performance"
	KindSecurity      ProbeKind = "security"
	KindAccessibility ProbeKind = "accessibility"
	KindForms         ProbeKind = "forms"
	KindPWA           ProbeKind = "pwa"
	KindBacklinks     ProbeKind = "backlinks"
	KindInteractions  ProbeKind = "interactions"
	KindThirdParty    ProbeKind = "third_party"
)

// AllProbeKinds lists every probe a complete report carries, in execution order.
var AllProbeKinds = []ProbeKind{
	KindPerformance,
	KindSecurity,
	KindAccessibility,
	KindForms,
	KindPWA,
	KindBacklinks,
	KindInteractions,
	KindThirdParty,
}

// Valid reports whether k is a declared probe kind.
func (k ProbeKind) Valid() bool {
	for _, known := range AllProbeKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k ProbeKind) String() string {
	return string(k)
}

// Status tells whether an outcome carries real data or a fallback payload.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFallback Status = "fallback"
)

// Outcome is the result of one probe. Data is always a structurally valid payload:
// when the probe failed it holds the kind's fallback value and Error says why.
type Outcome[T any] struct {
	Kind       ProbeKind `json:"kind"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Data       T         `json:"data"`
}

// Succeeded builds an ok outcome.
func Succeeded[T any](kind ProbeKind, data T) Outcome[T] {
	return Outcome[T]{Kind: kind, Status: StatusOK, Data: data}
}

// Fallback builds a fallback outcome carrying the zero-value payload.
func Fallback[T any](kind ProbeKind, data T, err error) Outcome[T] {
	o := Outcome[T]{Kind: kind, Status: StatusFallback, Data: data}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Failed reports whether the payload is a fallback.
func (o Outcome[T]) Failed() bool {
	return o.Status == StatusFallback
}
