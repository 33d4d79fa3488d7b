package cmd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

func newHeaderServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("X-Frame-Options", "DENY")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAudit_WritesReportsAndSummary(t *testing.T) {
	appCtx := setupTestAppContext(t)
	appCtx.Config.Audit.Markdown = true
	appCtx.Config.Audit.MetricsFile = filepath.Join(t.TempDir(), "seca.prom")
	srv := newHeaderServer(t)

	c, out := newTestCommand(t)
	if err := runAudit(c, []string{srv.URL}); err != nil {
		t.Fatalf("runAudit returned error: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Auditing " + srv.URL,
		"performance",
		"Probes: 8/8",
		"Audit Summary",
		"Overall score",
		"(two-term)",
		"35/100 (grade F)",
		"fell back to empty results",
		"Saved ",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	jsonReports, _ := filepath.Glob(filepath.Join(appCtx.OutputDir, "*_audit_report.json"))
	mdReports, _ := filepath.Glob(filepath.Join(appCtx.OutputDir, "*_audit_report.md"))
	if len(jsonReports) != 1 || len(mdReports) != 1 {
		t.Fatalf("expected one JSON and one Markdown report, got %v %v", jsonReports, mdReports)
	}

	metrics, err := os.ReadFile(appCtx.Config.Audit.MetricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(metrics), `seca_web_audits_total{outcome="success"} 1`) {
		t.Errorf("unexpected metrics:\n%s", metrics)
	}

	// The audit is indexed in history.
	h, hout := newTestCommand(t)
	if err := runHistory(h, []string{srv.URL}); err != nil {
		t.Fatalf("runHistory returned error: %v", err)
	}
	if !strings.Contains(hout.String(), jsonReports[0]) {
		t.Errorf("history does not point at the JSON report:\n%s", hout.String())
	}
}

func TestRunAudit_NoHistoryNoProgress(t *testing.T) {
	appCtx := setupTestAppContext(t)
	appCtx.Config.Audit.History = false
	appCtx.Config.Audit.ProgressEnabled = false
	srv := newHeaderServer(t)

	c, out := newTestCommand(t)
	if err := runAudit(c, []string{srv.URL}); err != nil {
		t.Fatalf("runAudit returned error: %v", err)
	}
	if strings.Contains(out.String(), "Probes:") {
		t.Errorf("progress printed although disabled:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(appCtx.DataDir, "history.db")); !os.IsNotExist(err) {
		t.Errorf("history database created although disabled: %v", err)
	}
}

func TestRunAudit_InvalidTarget(t *testing.T) {
	setupTestAppContext(t)

	c, _ := newTestCommand(t)
	err := runAudit(c, []string{"ftp://example.com"})

	var failed *AuditFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected AuditFailedError, got %v", err)
	}
	if !errors.Is(err, sharedErrors.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if exitCode(err) != exitUsage {
		t.Fatalf("expected usage exit code, got %d", exitCode(err))
	}
}

func TestRunAudit_RejectsInvalidConfig(t *testing.T) {
	appCtx := setupTestAppContext(t)
	appCtx.Config.Audit.Concurrency = 0

	c, _ := newTestCommand(t)
	var flagErr *InvalidFlagError
	if err := runAudit(c, []string{"example.com"}); !errors.As(err, &flagErr) {
		t.Fatalf("expected InvalidFlagError, got %v", err)
	}
}

func TestAuditSettings(t *testing.T) {
	appCtx := setupTestAppContext(t)
	appCtx.Config.Audit.TimeoutSecs = 12
	appCtx.Config.Audit.IdleTimeoutSecs = 3
	appCtx.Config.Audit.ScoreFormula = auditapp.FormulaWeighted3
	appCtx.Config.Audit.ChromePath = "/opt/chrome"

	s := auditSettings(appCtx)
	if s.Browser.NavigationTimeout.Seconds() != 12 || s.Probes.HTTPTimeout.Seconds() != 12 {
		t.Errorf("timeout not propagated: %+v", s)
	}
	if s.Browser.NetworkIdleTimeout.Seconds() != 3 || s.Probes.IdleTimeout.Seconds() != 3 {
		t.Errorf("idle timeout not propagated: %+v", s)
	}
	if s.Browser.ExecPath != "/opt/chrome" || s.ScoreFormula != auditapp.FormulaWeighted3 {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.HistoryDir != appCtx.DataDir || s.OpenSession == nil {
		t.Errorf("expected history and injected session factory: %+v", s)
	}
}
