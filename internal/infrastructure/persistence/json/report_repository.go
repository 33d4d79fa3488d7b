package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/security"
)

// ReportSuffix ends the name of every report file.
const ReportSuffix = "_audit_report.json"

// reportDTO is the on-disk layout of a report
type reportDTO struct {
	ID            string                                 `json:"id"`
	URL           string                                 `json:"url"`
	Timestamp     string                                 `json:"timestamp"`
	OverallScore  int                                    `json:"overall_score"`
	ScoreFormula  string                                 `json:"score_formula"`
	FailedProbes  []audit.ProbeKind                      `json:"failed_probes"`
	Performance   audit.Outcome[audit.PerformanceData]   `json:"performance"`
	Security      audit.Outcome[audit.SecurityData]      `json:"security"`
	Accessibility audit.Outcome[audit.AccessibilityData] `json:"accessibility"`
	Additional    audit.Additional                       `json:"additional"`
}

// ReportRepository writes each sealed report as an indented JSON file.
type ReportRepository struct {
	outputDir string
	mu        sync.Mutex
}

// NewReportRepository creates a repository writing into outputDir, creating it
// if needed.
func NewReportRepository(outputDir string) (*ReportRepository, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory", sharedErrors.ErrMissingRequired)
	}

	// Ensure the output directory exists
	if err := os.MkdirAll(outputDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &ReportRepository{outputDir: outputDir}, nil
}

// FileName builds the report file name from the sanitized target and the
// report timestamp with ':' and '.' replaced by '-'.
func FileName(report *audit.Report) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(report.TimestampISO())
	return security.SanitizeFileComponent(report.Target().String()) + "_" + stamp + ReportSuffix
}

// Save writes the report and returns the file path.
func (r *ReportRepository) Save(ctx context.Context, report *audit.Report) (string, error) {
	if !report.IsSealed() {
		return "", sharedErrors.ErrReportNotSealed
	}

	data, err := json.MarshalIndent(toDTO(report), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	path, err := security.ResolveWithin(r.outputDir, FileName(report))
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.WriteFile(path, data, constants.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// Discard removes the report file written by Save.
func (r *ReportRepository) Discard(ctx context.Context, report *audit.Report) error {
	path, err := security.ResolveWithin(r.outputDir, FileName(report))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove report file: %w", err)
	}
	return nil
}

// Load reads a report file back into its generic JSON form.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return doc, nil
}

func toDTO(r *audit.Report) reportDTO {
	return reportDTO{
		ID:            r.ID(),
		URL:           r.Target().String(),
		Timestamp:     r.TimestampISO(),
		OverallScore:  r.OverallScore(),
		ScoreFormula:  r.ScoreFormula(),
		FailedProbes:  r.FailedProbes(),
		Performance:   r.Performance(),
		Security:      r.Security(),
		Accessibility: r.Accessibility(),
		Additional:    r.Additional(),
	}
}
