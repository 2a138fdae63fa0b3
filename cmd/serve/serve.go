// Package serve implements the "serve" command: the full job management
// subsystem in one process — HTTP API, Worker Dispatcher, Scheduler, and
// Notification Router.
package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/bootstrap"
	"github.com/jonesrussell/crawljobs/internal/config/commands"
)

// Command builds the "serve" command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API alongside the dispatcher and scheduler",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := bootstrap.Start(commands.Serve); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}
