package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evanramirez88/toast-automation/pkg/automation"
	"github.com/evanramirez88/toast-automation/pkg/config"
)

func newRunCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job.json>",
		Short: "Execute a job file against a client's back office",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "run")
			if err != nil {
				return err
			}
			defer logger.Close()

			ctrl, err := automation.New(cfg, logger, nil)
			if err != nil {
				return err
			}
			if err := ctrl.Initialize(cmd.Context()); err != nil {
				return err
			}
			defer ctrl.Shutdown()

			res := ctrl.ExecuteJob(cmd.Context(), job)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.Status == automation.StatusFailed {
				return fmt.Errorf("job %s failed", res.JobID)
			}
			return nil
		},
	}
}

// loadJob reads and sanity-checks a job file. A missing job id is filled
// in so every execution is traceable.
func loadJob(path string) (*automation.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	var job automation.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if job.ClientID == "" {
		return nil, fmt.Errorf("job file %s has no clientId", path)
	}
	if len(job.Operations) == 0 {
		return nil, fmt.Errorf("job file %s lists no operations", path)
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	return &job, nil
}
