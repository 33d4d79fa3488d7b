// Package sqlite keeps an index of past audits in a SQLite database so scores
// can be compared over time.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS audits (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	host TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	overall_score INTEGER NOT NULL,
	performance INTEGER NOT NULL,
	security INTEGER NOT NULL,
	failed_probes INTEGER NOT NULL,
	report_path TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audits_target ON audits(target);
CREATE INDEX IF NOT EXISTS idx_audits_timestamp ON audits(timestamp);
`

// HistoryRepository implements audit.HistoryRepository on SQLite.
type HistoryRepository struct {
	db     *sql.DB
	dbPath string
	// reportPath resolves where the JSON sink stored a report, if known.
	reportPath func(*audit.Report) string
}

var _ audit.HistoryRepository = (*HistoryRepository)(nil)

// Open opens or creates the history database inside dir.
func Open(dir string) (*HistoryRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: history directory", sharedErrors.ErrMissingRequired)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &HistoryRepository{db: db, dbPath: dbPath}, nil
}

// WithReportPath records fn(report) as the report location of each entry.
func (h *HistoryRepository) WithReportPath(fn func(*audit.Report) string) *HistoryRepository {
	h.reportPath = fn
	return h
}

// Path returns the database file path.
func (h *HistoryRepository) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryRepository) Close() error {
	return h.db.Close()
}

// Save indexes a sealed report and returns the database path.
func (h *HistoryRepository) Save(ctx context.Context, report *audit.Report) (string, error) {
	if !report.IsSealed() {
		return "", sharedErrors.ErrReportNotSealed
	}

	reportPath := ""
	if h.reportPath != nil {
		reportPath = h.reportPath(report)
	}

	_, err := h.db.ExecContext(ctx, `
	INSERT INTO audits (id, target, host, timestamp, overall_score, performance, security, failed_probes, report_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		overall_score = excluded.overall_score,
		performance = excluded.performance,
		security = excluded.security,
		failed_probes = excluded.failed_probes,
		report_path = excluded.report_path
	`,
		report.ID(),
		report.Target().String(),
		report.Target().Host(),
		report.Timestamp().UnixMilli(),
		report.OverallScore(),
		report.Performance().Data.Score,
		report.Security().Data.Score,
		len(report.FailedProbes()),
		reportPath,
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert audit: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return h.dbPath, nil
}

// Discard deletes the entry indexed for report.
func (h *HistoryRepository) Discard(ctx context.Context, report *audit.Report) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, report.ID()); err != nil {
		return fmt.Errorf("%w: delete audit: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return nil
}

// FindByTarget lists audits of target, newest first. target is normalized the
// same way as audit targets.
func (h *HistoryRepository) FindByTarget(ctx context.Context, target string, limit int) ([]audit.HistoryEntry, error) {
	t, err := audit.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	return h.query(ctx, `WHERE target = ?`, limit, t.String())
}

// FindAll lists all audits, newest first.
func (h *HistoryRepository) FindAll(ctx context.Context, limit int) ([]audit.HistoryEntry, error) {
	return h.query(ctx, "", limit)
}

func (h *HistoryRepository) query(ctx context.Context, where string, limit int, args ...any) ([]audit.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT id, target, timestamp, overall_score, performance, security, failed_probes, report_path
	FROM audits ` + where + ` ORDER BY timestamp DESC, id DESC LIMIT ?`

	rows, err := h.db.QueryContext(ctx, q, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("%w: query audits: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer rows.Close()

	var entries []audit.HistoryEntry
	for rows.Next() {
		var (
			e  audit.HistoryEntry
			ms int64
		)
		if err := rows.Scan(&e.ReportID, &e.Target, &ms, &e.OverallScore, &e.Performance, &e.Security, &e.FailedProbes, &e.ReportPath); err != nil {
			return nil, fmt.Errorf("%w: scan audit: %v", sharedErrors.ErrRepositoryOperation, err)
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate audits: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return entries, nil
}
