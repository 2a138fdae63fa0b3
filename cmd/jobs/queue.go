package jobs

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/domain"
)

// queueCommand prints per-priority queue depth, mirroring GET /queue/statistics.
func queueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show queue depth per priority",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := setup()
			if err != nil {
				return err
			}

			stats, err := d.qm.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("queue stats: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Priority", "Depth"})
			for _, p := range domain.Priorities() {
				t.AppendRow(table.Row{string(p), stats.PerPriority[p]})
			}
			t.AppendFooter(table.Row{"Total", stats.Total})
			t.Render()
			return nil
		},
	}
}
