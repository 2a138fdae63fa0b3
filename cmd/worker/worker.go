// Package worker implements the "worker" command: the Worker Dispatcher
// alone, for a horizontally scaled fleet of crawl workers with no API
// surface.
package worker

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/bootstrap"
	"github.com/jonesrussell/crawljobs/internal/config/commands"
)

// Command builds the "worker" command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the worker dispatcher alone",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := bootstrap.Start(commands.Worker); err != nil {
				return fmt.Errorf("worker: %w", err)
			}
			return nil
		},
	}
}
