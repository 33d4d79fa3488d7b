package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/sqlite"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system information and data directory paths",
	Long: `Display seca-web configuration information including:
  - Data and report directory locations
  - History database and configuration file
  - Effective audit settings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Audit

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			home, _ := os.UserHomeDir()
			configFile = filepath.Join(home, ".seca-web.yaml")
		}

		chrome := cfg.ChromePath
		if chrome == "" {
			chrome = "auto-detect"
		}

		// Get output writer (for testing support)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "seca-web System Information")
		fmt.Fprintln(out, "===========================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", appCtx.DataDir)
		fmt.Fprintf(out, "  Reports Directory:  %s %s\n", appCtx.OutputDir, existence(appCtx.OutputDir))
		historyDB := filepath.Join(appCtx.DataDir, sqlite.DBFileName)
		fmt.Fprintf(out, "  History Database:   %s %s\n", historyDB, existence(historyDB))
		fmt.Fprintf(out, "  Configuration File: %s %s\n", configFile, existence(configFile))
		fmt.Fprintln(out)
		printAuditSettings(out, cfg, chrome)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Override any setting in the config file under the audit: key, or with")
		fmt.Fprintln(out, "SECA_WEB_AUDIT_<KEY> environment variables (e.g. SECA_WEB_AUDIT_MAX_LINKS=50).")

		return nil
	},
}

func existence(path string) string {
	if _, err := os.Stat(path); err == nil {
		return colorSuccess("✓ (exists)")
	}
	return colorWarn("✗ (not created yet)")
}

func printAuditSettings(out io.Writer, cfg AuditRuntimeConfig, chrome string) {
	fmt.Fprintln(out, "Audit Settings:")
	fmt.Fprintf(out, "  Score Formula:      %s\n", cfg.ScoreFormula)
	fmt.Fprintf(out, "  Concurrency:        %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Timeout:            %ds (network idle %ds)\n", cfg.TimeoutSecs, cfg.IdleTimeoutSecs)
	fmt.Fprintf(out, "  Link Checks:        %d max, %d workers, %.1f/s\n", cfg.MaxLinks, cfg.LinkWorkers, cfg.LinkRateLimit)
	fmt.Fprintf(out, "  Chrome:             %s\n", chrome)
	fmt.Fprintf(out, "  User Agent:         %s\n", cfg.UserAgent)
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
