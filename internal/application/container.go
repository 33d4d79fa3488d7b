package application

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/markdown"
	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/sqlite"
	"github.com/khanhnv2901/seca-webaudit/internal/metrics"
	"github.com/khanhnv2901/seca-webaudit/internal/probe"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Settings selects which sinks are enabled and how the audit runs.
type Settings struct {
	OutputDir string
	// HistoryDir enables the SQLite history index when set.
	HistoryDir   string
	Markdown     bool
	ScoreFormula string
	Browser      browser.Config
	Probes       probe.Config
	// OpenSession replaces the Chrome launcher.
	OpenSession auditapp.SessionFactory
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	ReportRepo  *json.ReportRepository
	SummaryRepo *markdown.SummaryRepository
	HistoryRepo *sqlite.HistoryRepository

	// Services
	Metrics     *metrics.Collector
	Probes      *probe.Probes
	Coordinator *auditapp.Coordinator
}

// NewContainer creates a new application service container. opts are applied
// to the coordinator after the defaults.
func NewContainer(settings Settings, logger *zap.Logger, opts ...auditapp.Option) (*Container, error) {
	if settings.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory", sharedErrors.ErrMissingRequired)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.ScoreFormula == "" {
		settings.ScoreFormula = auditapp.FormulaTwoTerm
	}

	c := &Container{Metrics: metrics.New()}

	// Initialize repositories
	reportRepo, err := json.NewReportRepository(settings.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create report repository: %w", err)
	}
	c.ReportRepo = reportRepo
	sinks := []audit.Repository{reportRepo}

	if settings.Markdown {
		summaryRepo, err := markdown.NewSummaryRepository(settings.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create summary repository: %w", err)
		}
		c.SummaryRepo = summaryRepo
		sinks = append(sinks, summaryRepo)
	}

	if settings.HistoryDir != "" {
		historyRepo, err := sqlite.Open(settings.HistoryDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open history repository: %w", err)
		}
		outputDir := settings.OutputDir
		c.HistoryRepo = historyRepo.WithReportPath(func(r *audit.Report) string {
			return filepath.Join(outputDir, json.FileName(r))
		})
		sinks = append(sinks, c.HistoryRepo)
	}

	// Initialize services
	c.Probes = probe.New(settings.Probes, logger, probe.WithInteractionRecorder(c.Metrics))

	open := settings.OpenSession
	if open == nil {
		browserCfg := settings.Browser
		open = func(ctx context.Context) (browser.Session, error) {
			s, err := browser.Open(ctx, browserCfg, logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	coordOpts := append([]auditapp.Option{
		auditapp.WithSinks(sinks...),
		auditapp.WithScoreFormula(settings.ScoreFormula),
		auditapp.WithRecorder(c.Metrics),
	}, opts...)
	coordinator, err := auditapp.NewCoordinator(open, c.Probes, logger, coordOpts...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Coordinator = coordinator

	return c, nil
}

// Close releases the history database, if open.
func (c *Container) Close() error {
	var err error
	if c.HistoryRepo != nil {
		err = multierr.Append(err, c.HistoryRepo.Close())
	}
	return err
}
