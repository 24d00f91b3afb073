// Package cmd holds the insights-engine subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/config"
	"github.com/cohortlens/insights-engine/pkg/logging"
)

// Options are the persistent root flags shared by every subcommand.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// BindFlags registers the persistent flags on the root command.
func (o *Options) BindFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to config file (default config.yaml)")
	root.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "Verbose logging")
}

func (o *Options) loadConfig(version string) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, version)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// cliLogger keeps one-shot commands quiet unless --verbose is set.
func (o *Options) cliLogger(cfg *config.Config) (*zap.Logger, error) {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	return logging.NewLogger(level, cfg.Env)
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}
