// Package cli wires the automation controller into the toast-automation
// command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/evanramirez88/toast-automation/pkg/config"
	"github.com/evanramirez88/toast-automation/pkg/logging"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "toast-automation",
		Short:         "Automate Toast back-office work across client tenants",
		Long:          "toast-automation drives the Toast restaurant back office through a real browser: one isolated, persistable session per client, self-healing element resolution, and job execution with partial-failure reporting.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ~/.toast-automation/config.yaml)")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(loadConfig),
		newHealthCheckCmd(loadConfig),
		newSessionsCmd(loadConfig),
		newCaptureBaselinesCmd(loadConfig),
	)
	return rootCmd
}

// newLogger builds the per-run file logger for one command invocation.
func newLogger(cfg *config.Config, component string) (*logging.Logger, error) {
	if cfg.LogDir != "" {
		logging.SetLogDirectory(cfg.LogDir)
	}
	return logging.NewLogger(component)
}
