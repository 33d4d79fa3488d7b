package audit

import (
	"context"
	"time"
)

// Repository defines the interface for report persistence. Save receives a sealed
// report and returns where it was stored.
type Repository interface {
	// Save persists a sealed audit report
	Save(ctx context.Context, report *Report) (string, error)
}

// Discarder is implemented by repositories that can undo a Save. It lets a
// failed hand-off remove what earlier sinks already stored.
type Discarder interface {
	// Discard removes what Save stored for report; a missing entry is not an error
	Discard(ctx context.Context, report *Report) error
}

// HistoryEntry is one row of the audit history index.
type HistoryEntry struct {
	ReportID     string
	Target       string
	Timestamp    time.Time
	OverallScore int
	Performance  int
	Security     int
	FailedProbes int
	ReportPath   string
}

// HistoryRepository indexes past audits so scores can be compared over time.
type HistoryRepository interface {
	Repository

	// FindByTarget lists audits of target, newest first
	FindByTarget(ctx context.Context, target string, limit int) ([]HistoryEntry, error)

	// FindAll lists all audits, newest first
	FindAll(ctx context.Context, limit int) ([]HistoryEntry, error)
}
