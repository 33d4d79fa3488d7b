package json

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

func sealedReport(t *testing.T, rawTarget string) *audit.Report {
	t.Helper()
	r, err := audit.NewReport("rep-1", audit.MustParseTarget(rawTarget), time.Date(2026, 10, 19, 8, 30, 15, 123_000_000, time.UTC))
	if err != nil {
		t.Fatalf("NewReport returned error: %v", err)
	}
	sec := audit.FallbackSecurity()
	sec.Score = 35
	steps := []error{
		r.SetPerformance(audit.Succeeded(audit.KindPerformance, audit.FallbackPerformance())),
		r.SetSecurity(audit.Succeeded(audit.KindSecurity, sec)),
		r.SetAccessibility(audit.Succeeded(audit.KindAccessibility, audit.FallbackAccessibility())),
		r.SetForms(audit.Fallback(audit.KindForms, audit.FallbackForms(), errors.New("page crashed"))),
		r.SetPWA(audit.Succeeded(audit.KindPWA, audit.FallbackPWA())),
		r.SetBacklinks(audit.Succeeded(audit.KindBacklinks, audit.FallbackBacklinks())),
		r.SetInteractions(audit.Succeeded(audit.KindInteractions, audit.FallbackInteractions())),
		r.SetThirdParty(audit.Succeeded(audit.KindThirdParty, audit.FallbackThirdParty())),
		r.SetOverallScore(11, "two-term"),
		r.Seal(),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("step %d returned error: %v", i, err)
		}
	}
	return r
}

func TestFileName(t *testing.T) {
	r := sealedReport(t, "https://Example.com/shop?id=1")
	want := "https___example_com_shop_id_1_2026-10-19T08-30-15-123Z_audit_report.json"
	if got := FileName(r); got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestReportRepository_Save(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewReportRepository(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("NewReportRepository returned error: %v", err)
	}

	path, err := repo.Save(context.Background(), sealedReport(t, "example.com"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "reports") {
		t.Errorf("report written to %s, want it under %s", path, dir)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc["url"] != "https://example.com/" {
		t.Errorf("url = %v", doc["url"])
	}
	if doc["overall_score"] != float64(11) {
		t.Errorf("overall_score = %v, want 11", doc["overall_score"])
	}
	if doc["timestamp"] != "2026-10-19T08:30:15.123Z" {
		t.Errorf("timestamp = %v", doc["timestamp"])
	}

	for _, key := range []string{"performance", "security", "accessibility"} {
		if _, ok := doc[key].(map[string]any); !ok {
			t.Errorf("report is missing %q", key)
		}
	}
	additional, ok := doc["additional"].(map[string]any)
	if !ok {
		t.Fatal("report is missing additional")
	}
	for _, key := range []string{"forms", "pwa", "backlinks", "interactions", "third_party"} {
		if _, ok := additional[key]; !ok {
			t.Errorf("additional is missing %q", key)
		}
	}

	forms := additional["forms"].(map[string]any)
	if forms["status"] != "fallback" || forms["error"] != "page crashed" {
		t.Errorf("forms outcome = %v", forms)
	}
	if data := forms["data"].(map[string]any); data["forms"] == nil {
		t.Error("forms fallback must serialize an empty list, not null")
	}
}

func TestReportRepository_Discard(t *testing.T) {
	repo, err := NewReportRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportRepository returned error: %v", err)
	}
	r := sealedReport(t, "https://example.com")

	path, err := repo.Save(context.Background(), r)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := repo.Discard(context.Background(), r); err != nil {
		t.Fatalf("Discard returned error: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("report file still present: %v", err)
	}

	// Discarding again is a no-op.
	if err := repo.Discard(context.Background(), r); err != nil {
		t.Errorf("second Discard returned error: %v", err)
	}
}

func TestReportRepository_RejectsUnsealed(t *testing.T) {
	repo, err := NewReportRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewReportRepository returned error: %v", err)
	}
	r, _ := audit.NewReport("x", audit.MustParseTarget("example.com"), time.Now())

	if _, err := repo.Save(context.Background(), r); !errors.Is(err, sharedErrors.ErrReportNotSealed) {
		t.Errorf("expected ErrReportNotSealed, got %v", err)
	}
}

func TestNewReportRepository_Validation(t *testing.T) {
	if _, err := NewReportRepository(""); !errors.Is(err, sharedErrors.ErrMissingRequired) {
		t.Errorf("expected ErrMissingRequired, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReportRepository(filepath.Join(file, "sub")); err == nil {
		t.Error("expected error when the output directory cannot be created")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, sharedErrors.ErrDeserializationFailed) {
		t.Errorf("expected ErrDeserializationFailed, got %v", err)
	}
}
