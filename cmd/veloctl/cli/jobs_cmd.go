package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Diony-dev/Veloce/jobs"
)

func newJobsCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}

	var org string
	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a job now",
		Long:      "Tasks: " + strings.Join(jobs.Tasks, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.Tasks,
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID := uuid.Nil
			if strings.TrimSpace(org) != "" {
				parsed, err := uuid.Parse(strings.TrimSpace(org))
				if err != nil {
					return fmt.Errorf("--org: %w", err)
				}
				orgID = parsed
			}
			if _, err := jobs.NewTask(args[0], orgID); err != nil {
				return err
			}
			client, err := openJobs(deps)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), deps.timeout())
			defer cancel()
			info, err := client.Trigger(ctx, args[0], orgID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return err
		},
	}
	trigger.Flags().StringVar(&org, "org", "", "limit the job to one organization")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openJobs(deps)
			if err != nil {
				return err
			}
			defer client.Close()
			out, err := client.InspectQueue()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}

func openJobs(deps Deps) (*JobsCLI, error) {
	if deps.OpenJobs == nil {
		return nil, errors.New("job queue not configured")
	}
	return deps.OpenJobs()
}
