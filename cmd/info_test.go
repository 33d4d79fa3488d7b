package cmd

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfoCommand(t *testing.T) {
	appCtx := setupTestAppContext(t)

	// Capture output
	var buf bytes.Buffer
	infoCmd.SetOut(&buf)
	infoCmd.SetErr(&buf)
	t.Cleanup(func() {
		infoCmd.SetOut(nil)
		infoCmd.SetErr(nil)
	})

	// Execute command
	if err := infoCmd.RunE(infoCmd, []string{}); err != nil {
		t.Fatalf("info command failed: %v", err)
	}

	output := buf.String()

	// Verify output contains expected sections
	expectedSections := []string{
		"seca-web System Information",
		"Platform:",
		"Data Locations:",
		"Reports Directory:",
		"History Database:",
		"Configuration File:",
		"Audit Settings:",
		"Score Formula:      two-term",
		"Chrome:             auto-detect",
	}

	for _, section := range expectedSections {
		if !strings.Contains(output, section) {
			t.Errorf("Expected output to contain '%s', got:\n%s", section, output)
		}
	}

	// Verify platform info is correct
	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if !strings.Contains(output, expectedPlatform) {
		t.Errorf("Expected platform '%s' in output, got:\n%s", expectedPlatform, output)
	}

	if !strings.Contains(output, appCtx.OutputDir+" ✓ (exists)") {
		t.Errorf("Expected reports directory to be reported as existing, got:\n%s", output)
	}
	if !strings.Contains(output, "history.db ✗ (not created yet)") {
		t.Errorf("Expected history database to be reported as missing, got:\n%s", output)
	}
}
