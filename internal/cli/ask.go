package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/storewise/storewise/internal/pipeline"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a business question against the warehouse",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			question := strings.Join(args, " ")
			outcome := rt.pipeline.Ask(cmd.Context(), question)
			printOutcome(cmd, outcome)
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, outcome *pipeline.Outcome) {
	out := cmd.OutOrStdout()

	if outcome.Status == pipeline.StatusBlocked {
		if outcome.Error != "" {
			fmt.Fprintf(out, "Blocked: %s\n", outcome.Error)
		}
		if outcome.Validation != nil {
			fmt.Fprintln(out, "Blocked by validation:")
			for _, issue := range outcome.Validation.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
		}
		return
	}

	fmt.Fprintln(out, outcome.Insight.Text)
	fmt.Fprintln(out)

	if outcome.Validation != nil && len(outcome.Validation.Issues) > 0 {
		fmt.Fprintln(out, "Caveats:")
		for _, issue := range outcome.Validation.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
		fmt.Fprintln(out)
	}

	if outcome.Data != nil && !outcome.Data.Empty() {
		t := table.NewWriter()
		t.SetOutputMirror(out)

		header := make(table.Row, 0, len(outcome.Data.Columns))
		for _, col := range outcome.Data.Columns {
			header = append(header, col)
		}
		t.AppendHeader(header)

		for _, row := range outcome.Data.Rows {
			t.AppendRow(table.Row(row))
		}
		t.Render()
		fmt.Fprintf(out, "%d rows\n", outcome.Data.RowCount)
	}
}
