package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/agenthands/leadblitz/internal/core/csvimport"
)

// renderPlan prints the rows an import would accept and a summary.
func renderPlan(out io.Writer, plan *csvimport.Plan) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"#", "Name", "Website", "Email", "Phone", "Status"})
	for i, l := range plan.Leads {
		t.AppendRow(table.Row{i + 1, l.Name, l.Website, l.Email, l.Phone, l.Status})
	}
	s := plan.Summary
	t.AppendFooter(table.Row{"", "rows", s.TotalRows, "accepted", len(plan.Leads), ""})
	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Fprintf(out, "Skipped: %d duplicate, %d without URL, %d invalid\n",
		s.SkippedDuplicate, s.SkippedNoURL, s.SkippedInvalid)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validates a CSV lead file the way the dashboard import does.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows, err := csvimport.Parse(content, filepath.Base(path))
		if err != nil {
			return err
		}
		renderPlan(os.Stdout, csvimport.BuildPlan(rows, nil, math.MaxInt32))
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "leads.csv", "CSV file to check")
	rootCmd.AddCommand(importCmd)
}
