package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/browser/browsertest"
	consts "github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

// setupTestAppContext initializes an AppContext rooted in a temp data dir and
// a browser that fails every navigation.
func setupTestAppContext(t *testing.T) *AppContext {
	t.Helper()

	originalCtx := globalAppContext
	originalFactory := auditSessionFactory
	originalNoColor := color.NoColor
	t.Cleanup(func() {
		globalAppContext = originalCtx
		auditSessionFactory = originalFactory
		color.NoColor = originalNoColor
	})
	color.NoColor = true

	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	outputDir := filepath.Join(dataDir, "reports")
	if err := os.MkdirAll(outputDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create output directory: %v", err)
	}

	auditSessionFactory = func(context.Context) (browser.Session, error) {
		return &browsertest.Session{Page: &browsertest.Page{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}}, nil
	}

	appCtx := &AppContext{
		Logger:    zap.NewNop(),
		Config:    newCLIConfig(),
		OutputDir: outputDir,
		DataDir:   dataDir,
	}
	globalAppContext = appCtx
	return appCtx
}

// newTestCommand returns a command whose output is captured in the buffer.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	c := &cobra.Command{Use: "test"}
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetContext(context.Background())
	return c, &buf
}
