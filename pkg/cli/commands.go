package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evanramirez88/toast-automation/pkg/automation"
	"github.com/evanramirez88/toast-automation/pkg/config"
	"github.com/evanramirez88/toast-automation/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return err
		},
	}
}

func newHealthCheckCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "health-check",
		Short: "Probe a client's back office and report its health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := withController(cmd, loadConfig, "health-check", func(ctrl *automation.Controller) (any, error) {
				return ctrl.RunHealthCheck(cmd.Context(), clientID)
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client tenant id")
	cmd.MarkFlagRequired("client")
	return cmd
}

func newSessionsCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the controller's active sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := withController(cmd, loadConfig, "sessions", func(ctrl *automation.Controller) (any, error) {
				return ctrl.ActiveSessions(), nil
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, sessions)
		},
	}
}

func newCaptureBaselinesCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "capture-baselines",
		Short: "Record fresh golden-copy baselines for a client's pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := withController(cmd, loadConfig, "capture-baselines", func(ctrl *automation.Controller) (any, error) {
				return nil, ctrl.CaptureBaselines(cmd.Context(), clientID)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "baselines captured")
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client tenant id")
	cmd.MarkFlagRequired("client")
	return cmd
}

// withController runs fn inside a fully initialized controller lifecycle.
func withController(cmd *cobra.Command, loadConfig func() (*config.Config, error), component string, fn func(*automation.Controller) (any, error)) (any, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, component)
	if err != nil {
		return nil, err
	}
	defer logger.Close()

	ctrl, err := automation.New(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Initialize(cmd.Context()); err != nil {
		return nil, err
	}
	defer ctrl.Shutdown()

	return fn(ctrl)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
