package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("markdown", false, "")

	applied := false
	applyBoolDefault(flags, "markdown", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatal("expected setter to run with true")
	}

	if err := flags.Set("markdown", "false"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "markdown", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestApplyStringDefault_UnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	var applied string
	applyStringDefault(flags, "user-agent", "bot/1.0", func(v string) {
		applied = v
	})
	if applied != "bot/1.0" {
		t.Fatalf("expected config value to apply when the command has no such flag, got %q", applied)
	}

	applyStringDefault(nil, "user-agent", "ignored", func(v string) {
		applied = v
	})
	if applied != "bot/1.0" {
		t.Fatalf("nil flag set must be a no-op, got %q", applied)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Audit.TimeoutSecs != 30 {
		t.Fatalf("unexpected timeout default: %d", cfg.Audit.TimeoutSecs)
	}
	if cfg.Audit.IdleTimeoutSecs != 10 {
		t.Fatalf("unexpected idle timeout default: %d", cfg.Audit.IdleTimeoutSecs)
	}
	if cfg.Audit.Concurrency != constants.DefaultInteractionConcurrency {
		t.Fatalf("unexpected concurrency default: %d", cfg.Audit.Concurrency)
	}
	if cfg.Audit.ScoreFormula != auditapp.FormulaTwoTerm {
		t.Fatalf("unexpected score formula default: %s", cfg.Audit.ScoreFormula)
	}
	if !cfg.Audit.History || cfg.Audit.Markdown {
		t.Fatalf("expected history on and markdown off by default, got %+v", cfg.Audit)
	}
	if err := cfg.Audit.validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadAuditOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("audit.concurrency", 3)
	viper.Set("audit.link_rate_limit", 2.5)
	viper.Set("audit.markdown", true)
	viper.Set("audit.user_agent", "audit-bot/2.0")

	overrides := loadAuditOverrides()

	if overrides.Concurrency == nil || *overrides.Concurrency != 3 {
		t.Fatalf("expected concurrency override 3, got %+v", overrides.Concurrency)
	}
	if overrides.LinkRateLimit == nil || *overrides.LinkRateLimit != 2.5 {
		t.Fatalf("expected link rate override 2.5, got %+v", overrides.LinkRateLimit)
	}
	if overrides.Markdown == nil || !*overrides.Markdown {
		t.Fatalf("expected markdown override true, got %+v", overrides.Markdown)
	}
	if overrides.UserAgent != "audit-bot/2.0" {
		t.Fatalf("expected user agent override, got %q", overrides.UserAgent)
	}
	if overrides.TimeoutSecs != nil || overrides.History != nil {
		t.Fatalf("unset keys must not produce overrides: %+v", overrides)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		*cliConfig = *newCLIConfig()
	})

	*cliConfig = *newCLIConfig()

	viper.Set("audit.timeout_secs", 45)
	viper.Set("audit.concurrency", 9)
	viper.Set("audit.score_formula", auditapp.FormulaWeighted3)
	viper.Set("audit.history", false)

	testCmd := &cobra.Command{Use: "audit"}
	testCmd.Flags().Int("concurrency", 0, "")
	if err := testCmd.Flags().Set("concurrency", "2"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	applyConfigDefaults(testCmd)

	if cliConfig.Audit.TimeoutSecs != 45 {
		t.Fatalf("expected timeout to update to 45, got %d", cliConfig.Audit.TimeoutSecs)
	}
	if cliConfig.Audit.Concurrency != constants.DefaultInteractionConcurrency {
		t.Fatalf("explicit --concurrency must win over config, got %d", cliConfig.Audit.Concurrency)
	}
	if cliConfig.Audit.ScoreFormula != auditapp.FormulaWeighted3 {
		t.Fatalf("expected weighted formula, got %s", cliConfig.Audit.ScoreFormula)
	}
	if cliConfig.Audit.History {
		t.Fatal("expected history to be disabled by config")
	}
}

func TestAuditRuntimeConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AuditRuntimeConfig)
		flag   string
	}{
		{name: "concurrency", mutate: func(c *AuditRuntimeConfig) { c.Concurrency = 0 }, flag: "concurrency"},
		{name: "timeout", mutate: func(c *AuditRuntimeConfig) { c.TimeoutSecs = -1 }, flag: "timeout"},
		{name: "rate", mutate: func(c *AuditRuntimeConfig) { c.LinkRateLimit = 0 }, flag: "link-rate"},
		{name: "formula", mutate: func(c *AuditRuntimeConfig) { c.ScoreFormula = "median" }, flag: "score-formula"},
		{name: "empty formula", mutate: func(c *AuditRuntimeConfig) { c.ScoreFormula = "" }, flag: "score-formula"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newCLIConfig().Audit
			tt.mutate(&cfg)

			var flagErr *InvalidFlagError
			if err := cfg.validate(); !errors.As(err, &flagErr) {
				t.Fatalf("expected InvalidFlagError, got %v", err)
			}
			if flagErr.Flag != tt.flag {
				t.Fatalf("expected flag %s, got %s", tt.flag, flagErr.Flag)
			}
		})
	}
}
