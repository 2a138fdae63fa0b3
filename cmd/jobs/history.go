package jobs

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawljobs/internal/output"
	"github.com/jonesrussell/crawljobs/internal/store"
)

const defaultHistoryPageSize = 25

// historyCommand prints a user's jobs newest-first, optionally filtered by
// status, mirroring the Monitoring View's history page.
func historyCommand() *cobra.Command {
	var userID, status string
	var pageSize int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's job history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				output.PrintErrorf("--user is required")
				return fmt.Errorf("--user is required")
			}

			d, err := setup()
			if err != nil {
				return err
			}

			jobs, total, err := d.view.History(cmd.Context(), store.QueryParams{
				UserID:   userID,
				Status:   status,
				PageSize: pageSize,
			})
			if err != nil {
				return fmt.Errorf("job history: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Name", "Status", "Priority", "Progress", "Created At"})
			for _, job := range jobs {
				t.AppendRow(table.Row{
					job.ID, job.Name, string(job.Status), string(job.Priority),
					fmt.Sprintf("%d/%d", job.Current, job.Total),
					job.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			t.AppendFooter(table.Row{"", "", "", "", "Total", total})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to list jobs for (required)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&pageSize, "page-size", defaultHistoryPageSize, "page size")

	return cmd
}
