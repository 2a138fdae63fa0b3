// Package jobs implements an operator CLI for inspecting queue contents and
// job history directly against the State Store and Queue Manager, without
// going through the HTTP API.
package jobs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/bootstrap"
	"github.com/jonesrussell/crawljobs/internal/config/commands"
	"github.com/jonesrussell/crawljobs/internal/monitor"
	"github.com/jonesrussell/crawljobs/internal/queue"
)

// deps bundles what every jobs subcommand needs: a connected store, queue,
// and monitoring view.
type deps struct {
	db   *bootstrap.DatabaseComponents
	qm   *queue.Manager
	view *monitor.View
}

func setup() (*deps, error) {
	cmdDeps, err := bootstrap.NewCommandDeps(commands.Jobs)
	if err != nil {
		return nil, fmt.Errorf("bootstrap deps: %w", err)
	}

	db, err := bootstrap.SetupDatabase(cmdDeps.Config)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	rdb, err := bootstrap.CreateRedisClient(cmdDeps.Config)
	if err != nil {
		return nil, fmt.Errorf("setup redis: %w", err)
	}

	qm := queue.New(rdb)
	view := monitor.New(db.Jobs, db.Schedules, qm, nil, nil)

	return &deps{db: db, qm: qm, view: view}, nil
}

// Command builds the "jobs" command and its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect queue contents and job history",
	}

	cmd.AddCommand(queueCommand())
	cmd.AddCommand(historyCommand())

	return cmd
}
