package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "seca-web"

var cfgFile string
var verbose bool

// AppContext carries what every subcommand needs once the root command has
// loaded configuration.
type AppContext struct {
	Logger    *zap.Logger
	Config    *CLIConfig
	OutputDir string
	DataDir   string
}

var globalAppContext *AppContext

type appContextKey struct{}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
				return appCtx
			}
		}
	}
	return globalAppContext
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Headless-browser website audits: performance, security headers, accessibility and more",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName("." + appName)
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("SECA_WEB")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		applyConfigDefaults(cmd)

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		dataDir, err := getDataDir()
		if err != nil {
			return err
		}

		outputDir := cliConfig.Audit.OutputDir
		if outputDir == "" {
			if outputDir, err = getReportsDir(); err != nil {
				return err
			}
		}
		// Make final outputDir absolute (for clarity in logs)
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}

		logger.Debug("configuration loaded",
			zap.String("config_file", viper.ConfigFileUsed()),
			zap.String("output_dir", outputDir),
			zap.String("data_dir", dataDir))

		storeAppContext(cmd, &AppContext{
			Logger:    logger,
			Config:    cliConfig,
			OutputDir: outputDir,
			DataDir:   dataDir,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// newLogger returns a development logger when verbose, otherwise a production
// logger that only reports warnings so it does not drown the console summary.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-web.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and detailed output")

	// add subcommands
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
