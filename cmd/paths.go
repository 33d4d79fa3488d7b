package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

// dataDirEnvVar overrides the XDG data directory. xdg resolves its paths once
// at start-up, so tests point this at a temp dir instead.
const dataDirEnvVar = "SECA_WEB_DATA_DIR"

// getDataDir returns the appropriate data directory for the current OS
// following the XDG base directory layout on Linux/Unix:
// ~/.local/share/seca-web, ~/Library/Application Support/seca-web on macOS
// and %LOCALAPPDATA%\seca-web on Windows.
func getDataDir() (string, error) {
	baseDir := os.Getenv(dataDirEnvVar)
	if baseDir == "" {
		baseDir = filepath.Join(xdg.DataHome, appName)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(baseDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getReportsDir returns the default directory for audit reports
func getReportsDir() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}

	reportsDir := filepath.Join(dataDir, "reports")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(reportsDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	return reportsDir, nil
}
