package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/application"
	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/probe"
)

// auditSessionFactory replaces the Chrome launcher when set.
var auditSessionFactory auditapp.SessionFactory

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Audit a website in a headless browser",
	Long: `Load the page in headless Chrome and run every probe against it:
performance, security headers, accessibility, forms, PWA readiness, broken
links, an interaction sweep and third-party requests.

A probe that fails is recorded with an empty result; the audit still
completes. The JSON report is written to the output directory, optionally with
a Markdown summary, and indexed in the local history database.`,
	Example: `  seca-web audit example.com
  seca-web audit https://example.com/shop --markdown --score-formula weighted-3`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	cfg := appCtx.Config.Audit
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	logger := appCtx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		opts     []auditapp.Option
		progress *progressPrinter
	)
	if cfg.ProgressEnabled {
		progress = newProgressPrinter(out, len(audit.AllProbeKinds), "audit")
		opts = append(opts, auditapp.WithObserver(progress.Observe))
	}

	container, err := application.NewContainer(auditSettings(appCtx), logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("close history database", zap.Error(err))
		}
	}()

	fmt.Fprintf(out, "%s Auditing %s\n", colorInfo("→"), args[0])
	result, runErr := container.Coordinator.Run(ctx, args[0])
	if progress != nil {
		progress.Summary()
	}

	if cfg.MetricsFile != "" {
		if err := container.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s failed to write metrics to %s: %v\n", colorWarn("!"), cfg.MetricsFile, err)
		}
	}

	if runErr != nil {
		return &AuditFailedError{Target: args[0], Err: runErr}
	}

	printAuditSummary(out, result)
	return nil
}

func auditSettings(appCtx *AppContext) application.Settings {
	cfg := appCtx.Config.Audit
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	idle := time.Duration(cfg.IdleTimeoutSecs) * time.Second

	settings := application.Settings{
		OutputDir:    appCtx.OutputDir,
		Markdown:     cfg.Markdown,
		ScoreFormula: cfg.ScoreFormula,
		Browser: browser.Config{
			UserAgent:          cfg.UserAgent,
			NavigationTimeout:  timeout,
			NetworkIdleTimeout: idle,
			ExecPath:           cfg.ChromePath,
		},
		Probes: probe.Config{
			UserAgent:     cfg.UserAgent,
			HTTPTimeout:   timeout,
			IdleTimeout:   idle,
			Concurrency:   cfg.Concurrency,
			LinkWorkers:   cfg.LinkWorkers,
			LinkRateLimit: cfg.LinkRateLimit,
			MaxLinks:      cfg.MaxLinks,
		},
		OpenSession: auditSessionFactory,
	}
	if cfg.History {
		settings.HistoryDir = appCtx.DataDir
	}
	return settings
}

func printAuditSummary(out io.Writer, result *auditapp.Result) {
	report := result.Report
	perf := report.Performance().Data
	sec := report.Security().Data
	access := report.Accessibility().Data

	fmt.Fprintf(out, "\n%s Audit Summary\n", colorInfo("═══"))
	fmt.Fprintln(out, strings.Repeat("═", 60))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", colorBold("URL"), report.Target().String())
	fmt.Fprintf(w, "%s\t%s (%s)\n", colorBold("Overall score"), formatScoreWithColor(report.OverallScore()), report.ScoreFormula())
	fmt.Fprintf(w, "%s\t%s\n", colorBold("Performance"), formatScoreWithColor(perf.Score))
	fmt.Fprintf(w, "%s\t%s/%d (grade %s)\n", colorBold("Security"), formatScoreWithColor(sec.Score), sec.MaxScore, sec.Grade)
	fmt.Fprintf(w, "%s\t%d headings, %d/%d images with alt text\n",
		colorBold("Accessibility"), access.Headings.Total, access.Images.WithAlt, access.Images.Total)
	_ = w.Flush()

	if failed := report.FailedProbes(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, k := range failed {
			names[i] = k.String()
		}
		fmt.Fprintf(out, "%s %d probe(s) fell back to empty results: %s\n", colorWarn("!"), len(failed), strings.Join(names, ", "))
	}

	if len(sec.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for _, rec := range sec.Recommendations {
			fmt.Fprintf(out, "  - [%s] %s\n", rec.Priority, rec.Message)
		}
	}

	fmt.Fprintln(out)
	for _, loc := range result.Locations {
		fmt.Fprintf(out, "%s Saved %s\n", colorSuccess("✓"), loc)
	}
}

func init() {
	flags := auditCmd.Flags()
	auditCfg := &cliConfig.Audit

	flags.IntVar(&auditCfg.Concurrency, "concurrency", auditCfg.Concurrency, "elements clicked or filled at once during the interaction sweep")
	flags.IntVar(&auditCfg.TimeoutSecs, "timeout", auditCfg.TimeoutSecs, "per-operation timeout in seconds")
	flags.IntVar(&auditCfg.IdleTimeoutSecs, "idle-timeout", auditCfg.IdleTimeoutSecs, "seconds to wait for the network to go idle after load")
	flags.StringVar(&auditCfg.UserAgent, "user-agent", auditCfg.UserAgent, "User-Agent sent by the browser and HTTP probes")
	flags.StringVar(&auditCfg.ChromePath, "chrome-path", auditCfg.ChromePath, "path to the Chrome or Chromium executable (default: auto-detect)")
	flags.StringVar(&auditCfg.OutputDir, "output-dir", auditCfg.OutputDir, "directory for reports (default: $XDG_DATA_HOME/seca-web/reports)")
	flags.StringVar(&auditCfg.ScoreFormula, "score-formula", auditCfg.ScoreFormula, "overall score formula: two-term or weighted-3")
	flags.IntVar(&auditCfg.LinkWorkers, "link-workers", auditCfg.LinkWorkers, "concurrent link checks")
	flags.Float64Var(&auditCfg.LinkRateLimit, "link-rate", auditCfg.LinkRateLimit, "link checks per second")
	flags.IntVar(&auditCfg.MaxLinks, "max-links", auditCfg.MaxLinks, "maximum links verified per audit")
	flags.BoolVar(&auditCfg.Markdown, "markdown", auditCfg.Markdown, "also write a Markdown summary")
	flags.BoolVar(&auditCfg.History, "history", auditCfg.History, "index the report in the history database")
	flags.StringVar(&auditCfg.MetricsFile, "metrics-file", auditCfg.MetricsFile, "write Prometheus metrics in text format to this file")
	flags.BoolVar(&auditCfg.ProgressEnabled, "progress", auditCfg.ProgressEnabled, "print a line as each probe finishes")
}
