// Package scheduler implements the "scheduler" command: the Scheduler
// alone, the single process responsible for turning due Schedules into
// child Jobs.
package scheduler

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/bootstrap"
	"github.com/jonesrussell/crawljobs/internal/config/commands"
)

// Command builds the "scheduler" command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the schedule-to-job generator alone",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := bootstrap.Start(commands.Scheduler); err != nil {
				return fmt.Errorf("scheduler: %w", err)
			}
			return nil
		},
	}
}
