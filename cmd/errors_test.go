package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

func TestAuditFailedError(t *testing.T) {
	cause := errors.New("boom")
	err := &AuditFailedError{Target: "example.com", Err: cause}
	if err.Error() != "audit of example.com failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected AuditFailedError to unwrap to its cause")
	}
}

func TestInvalidFlagError(t *testing.T) {
	err := &InvalidFlagError{Flag: "concurrency", Value: "0"}
	want := `invalid value "0" for --concurrency`
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}

	err = &InvalidFlagError{Flag: "concurrency", Value: "0", Reason: "must be at least 1"}
	want = `invalid value "0" for --concurrency: must be at least 1`
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "flag", err: &InvalidFlagError{Flag: "timeout"}, want: exitUsage},
		{name: "target", err: &AuditFailedError{Target: "x", Err: fmt.Errorf("parse target: %w", sharedErrors.ErrInvalidTarget)}, want: exitUsage},
		{name: "formula", err: sharedErrors.ErrUnknownFormula, want: exitUsage},
		{name: "launch", err: &AuditFailedError{Err: &browser.LaunchError{Err: errors.New("no chrome")}}, want: exitBrowserStart},
		{name: "other", err: errors.New("disk full"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
