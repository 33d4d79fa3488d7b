package cmd

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func disableColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})
}

func TestFormatStatusWithColor(t *testing.T) {
	disableColor(t)

	tests := []struct {
		name   string
		status string
		want   string
	}{
		{name: "success", status: "OK", want: "OK"},
		{name: "pass synonym", status: "pass", want: "pass"},
		{name: "fallback", status: "fallback", want: "fallback"},
		{name: "failure", status: "FAILED", want: "FAILED"},
		{name: "unknown", status: "pending", want: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatusWithColor(tt.status); got != tt.want {
				t.Fatalf("formatStatusWithColor(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestFormatScoreWithColor(t *testing.T) {
	original := color.NoColor
	t.Cleanup(func() { color.NoColor = original })

	color.NoColor = true
	if got := formatScoreWithColor(73); got != "73" {
		t.Fatalf("expected plain score without color, got %q", got)
	}

	color.NoColor = false
	low := formatScoreWithColor(12)
	high := formatScoreWithColor(95)
	if !strings.Contains(low, "12") || !strings.Contains(high, "95") {
		t.Fatalf("colored output lost the score: %q %q", low, high)
	}
	if !strings.HasPrefix(low, "\x1b[31m") || !strings.HasPrefix(high, "\x1b[32m") {
		t.Fatalf("expected red and green, got %q and %q", low, high)
	}
}
