package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/storewise/storewise/internal/state"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent question traversals from the audit store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AuditPath == "" {
				return fmt.Errorf("no audit store configured (set audit_path)")
			}

			store := state.NewStore(logger)
			if err := store.Open(cfg.AuditPath); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			traversals, err := store.Recent(limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"When", "Question", "Status", "Verdict", "Rows", "Duration"})
			for _, tr := range traversals {
				t.AppendRow(table.Row{
					tr.StartedAt.Local().Format("2006-01-02 15:04"),
					truncate(tr.Question, 60),
					tr.Status,
					tr.VerdictStatus,
					tr.RowCount,
					fmt.Sprintf("%dms", tr.DurationMS),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of traversals to show")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
