package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
)

var (
	defaultTimeoutSecs     = int(constants.DefaultNavigationTimeout / time.Second)
	defaultIdleTimeoutSecs = int(constants.DefaultNetworkIdleTimeout / time.Second)
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Audit AuditRuntimeConfig
}

// AuditRuntimeConfig consolidates flag-driven settings for the audit command.
type AuditRuntimeConfig struct {
	Concurrency     int
	TimeoutSecs     int
	IdleTimeoutSecs int
	UserAgent       string
	ChromePath      string
	OutputDir       string
	ScoreFormula    string
	LinkWorkers     int
	LinkRateLimit   float64
	MaxLinks        int
	Markdown        bool
	History         bool
	MetricsFile     string
	ProgressEnabled bool
}

// auditOverrides holds the audit.* keys found in the config file or environment.
type auditOverrides struct {
	Concurrency     *int
	TimeoutSecs     *int
	IdleTimeoutSecs *int
	LinkWorkers     *int
	MaxLinks        *int
	LinkRateLimit   *float64
	Markdown        *bool
	History         *bool
	UserAgent       string
	ChromePath      string
	OutputDir       string
	ScoreFormula    string
	MetricsFile     string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Audit: AuditRuntimeConfig{
			Concurrency:     constants.DefaultInteractionConcurrency,
			TimeoutSecs:     defaultTimeoutSecs,
			IdleTimeoutSecs: defaultIdleTimeoutSecs,
			UserAgent:       constants.DefaultUserAgent,
			ScoreFormula:    auditapp.FormulaTwoTerm,
			LinkWorkers:     constants.DefaultLinkWorkers,
			LinkRateLimit:   constants.DefaultLinkRateLimit,
			MaxLinks:        constants.DefaultMaxLinks,
			History:         true,
			ProgressEnabled: true,
		},
	}
}

func intOverride(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetInt(key)
	return &val
}

func boolOverride(key string) *bool {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetBool(key)
	return &val
}

func loadAuditOverrides() auditOverrides {
	overrides := auditOverrides{
		Concurrency:     intOverride("audit.concurrency"),
		TimeoutSecs:     intOverride("audit.timeout_secs"),
		IdleTimeoutSecs: intOverride("audit.idle_timeout_secs"),
		LinkWorkers:     intOverride("audit.link_workers"),
		MaxLinks:        intOverride("audit.max_links"),
		Markdown:        boolOverride("audit.markdown"),
		History:         boolOverride("audit.history"),
		UserAgent:       viper.GetString("audit.user_agent"),
		ChromePath:      viper.GetString("audit.chrome_path"),
		OutputDir:       viper.GetString("audit.output_dir"),
		ScoreFormula:    viper.GetString("audit.score_formula"),
		MetricsFile:     viper.GetString("audit.metrics_file"),
	}

	if viper.IsSet("audit.link_rate_limit") {
		val := viper.GetFloat64("audit.link_rate_limit")
		overrides.LinkRateLimit = &val
	}

	return overrides
}

// applyConfigDefaults merges config file defaults into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadAuditOverrides()
	flags := cmd.Flags()
	auditCfg := &cliConfig.Audit

	if overrides.Concurrency != nil {
		applyIntDefault(flags, "concurrency", *overrides.Concurrency, func(v int) { auditCfg.Concurrency = v })
	}
	if overrides.TimeoutSecs != nil {
		applyIntDefault(flags, "timeout", *overrides.TimeoutSecs, func(v int) { auditCfg.TimeoutSecs = v })
	}
	if overrides.IdleTimeoutSecs != nil {
		applyIntDefault(flags, "idle-timeout", *overrides.IdleTimeoutSecs, func(v int) { auditCfg.IdleTimeoutSecs = v })
	}
	if overrides.LinkWorkers != nil {
		applyIntDefault(flags, "link-workers", *overrides.LinkWorkers, func(v int) { auditCfg.LinkWorkers = v })
	}
	if overrides.MaxLinks != nil {
		applyIntDefault(flags, "max-links", *overrides.MaxLinks, func(v int) { auditCfg.MaxLinks = v })
	}
	if overrides.LinkRateLimit != nil {
		applyFloatDefault(flags, "link-rate", *overrides.LinkRateLimit, func(v float64) { auditCfg.LinkRateLimit = v })
	}
	if overrides.Markdown != nil {
		applyBoolDefault(flags, "markdown", *overrides.Markdown, func(v bool) { auditCfg.Markdown = v })
	}
	if overrides.History != nil {
		applyBoolDefault(flags, "history", *overrides.History, func(v bool) { auditCfg.History = v })
	}

	if overrides.UserAgent != "" {
		applyStringDefault(flags, "user-agent", overrides.UserAgent, func(v string) { auditCfg.UserAgent = v })
	}
	if overrides.ChromePath != "" {
		applyStringDefault(flags, "chrome-path", overrides.ChromePath, func(v string) { auditCfg.ChromePath = v })
	}
	if overrides.OutputDir != "" {
		applyStringDefault(flags, "output-dir", overrides.OutputDir, func(v string) { auditCfg.OutputDir = v })
	}
	if overrides.ScoreFormula != "" {
		applyStringDefault(flags, "score-formula", overrides.ScoreFormula, func(v string) { auditCfg.ScoreFormula = v })
	}
	if overrides.MetricsFile != "" {
		applyStringDefault(flags, "metrics-file", overrides.MetricsFile, func(v string) { auditCfg.MetricsFile = v })
	}
}

// validate rejects settings the audit cannot run with.
func (c AuditRuntimeConfig) validate() error {
	positive := []struct {
		flag  string
		value int
	}{
		{"concurrency", c.Concurrency},
		{"timeout", c.TimeoutSecs},
		{"idle-timeout", c.IdleTimeoutSecs},
		{"link-workers", c.LinkWorkers},
		{"max-links", c.MaxLinks},
	}
	for _, p := range positive {
		if p.value < 1 {
			return &InvalidFlagError{Flag: p.flag, Value: strconv.Itoa(p.value), Reason: "must be at least 1"}
		}
	}
	if c.LinkRateLimit <= 0 {
		return &InvalidFlagError{
			Flag:   "link-rate",
			Value:  strconv.FormatFloat(c.LinkRateLimit, 'f', -1, 64),
			Reason: "must be positive",
		}
	}
	if _, err := auditapp.OverallScore(c.ScoreFormula, 0, 0, 0); err != nil || c.ScoreFormula == "" {
		return &InvalidFlagError{
			Flag:   "score-formula",
			Value:  c.ScoreFormula,
			Reason: "expected " + auditapp.FormulaTwoTerm + " or " + auditapp.FormulaWeighted3,
		}
	}
	return nil
}

func applyDefault[T any](flags *pflag.FlagSet, name string, value T, setter func(T)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	applyDefault(flags, name, value, setter)
}

func applyFloatDefault(flags *pflag.FlagSet, name string, value float64, setter func(float64)) {
	applyDefault(flags, name, value, setter)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	applyDefault(flags, name, value, setter)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	applyDefault(flags, name, value, setter)
}
