package main

import (
	"fmt"
	"os"

	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "decompose",
		Short: "Fit composable Bayesian time-series models from the command line",
		Long: `Fits a component tree (trends, seasonalities, regressors) described in a
YAML or JSON model file to a CSV series and writes predictions as CSV.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Service config file supplying inference defaults")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	rootCmd.AddCommand(fitCmd())
	rootCmd.AddCommand(generateCmd())

	return rootCmd
}

// loadConfig reads the shared config file, falling back to defaults, and
// builds a stderr logger so stdout stays clean for CSV
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	logCfg := cfg.Logging
	logCfg.OutputPath = "stderr"
	logCfg.Format = "console"
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.NewFromConfig(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
