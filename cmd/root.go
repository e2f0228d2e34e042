// Package cmd provides the command-line interface of Conduit.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"conduit/bootstrap"
	"conduit/config"
	"conduit/generator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
	verbose    bool
)

const (
	defaultTimeout  = 5 * time.Minute  // catalog reads
	generateTimeout = 30 * time.Minute // a full catalog walk with delays
)

// Platform is the admin platform client the commands drive.
type Platform interface {
	generator.Platform
}

// Hooks for tests.
var (
	loadConfig = func(sugar *zap.SugaredLogger) (*config.Config, error) {
		return bootstrap.InitConfig(sugar)
	}
	newPlatform = func(cfg *config.Config, sugar *zap.SugaredLogger) (Platform, error) {
		return bootstrap.NewPlatformClient(cfg, true, sugar)
	}
)

// IsCommand reports whether name is a CLI command rather than a server start.
func IsCommand(name string) bool {
	switch name {
	case "generate", "catalog", "help", "--help", "-h":
		return true
	}
	return false
}

// NewRootCmd creates the conduit command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Integration console backend",
		Long: `Conduit serves the integration console API. Run without arguments to start
the server, or use a command to work with the integration platform directly.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			if configFile != "" {
				viper.SetConfigFile(configFile)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newCatalogCmd())

	return rootCmd
}

// initPlatform loads configuration and creates the admin platform client.
func initPlatform() (*config.Config, Platform, *zap.SugaredLogger, func(), error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, sugar, err := bootstrap.InitLogger(level, "console")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	cleanup := func() {
		if err := logger.Sync(); err != nil {
			sugar.Debugf("Failed to sync logger during cleanup: %v", err)
		}
	}

	cfg, err := loadConfig(sugar)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	client, err := newPlatform(cfg, sugar)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}
	return cfg, client, sugar, cleanup, nil
}

// outputAsJSON writes data as indented JSON.
func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
