package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/agenthands/leadblitz/internal/crm"
)

var crmCmd = &cobra.Command{
	Use:   "crm",
	Short: "Maintains the JSON outreach CRM.",
}

var crmRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Records a send results file in the CRM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		resultsPath, _ := cmd.Flags().GetString("results")
		crmPath, _ := cmd.Flags().GetString("crm")
		campaign, _ := cmd.Flags().GetString("campaign")
		version, _ := cmd.Flags().GetString("template-version")

		res, err := crm.LoadResults(resultsPath)
		if err != nil {
			return err
		}
		if campaign == "" {
			campaign = res.Campaign
		}
		doc, err := crm.Load(crmPath)
		if err != nil {
			return err
		}
		now := time.Now()
		rep := doc.Record(res, campaign, version, now)
		if err := doc.Save(crmPath, now); err != nil {
			return err
		}
		fmt.Printf("CRM updated: %d new, %d updated, %d failed, %d total\n", rep.New, rep.Updated, rep.Failed, rep.Total)
		for status, n := range rep.Status {
			fmt.Printf("  %s: %d\n", status, n)
		}
		return nil
	},
}

func renderContacts(out io.Writer, contacts []*crm.Contact) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Name", "Email", "City", "Status", "Sent", "Campaign"})
	for _, c := range contacts {
		sent := ""
		if c.Sent != nil {
			sent = *c.Sent
		}
		t.AppendRow(table.Row{c.Name, c.Email, c.City, c.Status, sent, c.Campaign})
	}
	t.AppendFooter(table.Row{"", "", "", "", "total", len(contacts)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var crmListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists CRM contacts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		crmPath, _ := cmd.Flags().GetString("crm")
		status, _ := cmd.Flags().GetString("status")
		doc, err := crm.Load(crmPath)
		if err != nil {
			return err
		}
		renderContacts(os.Stdout, doc.Filter(status))
		return nil
	},
}

func init() {
	crmCmd.PersistentFlags().String("crm", "outreach-crm.json", "CRM file")
	crmRecordCmd.Flags().String("results", "send-results.json", "send results file")
	crmRecordCmd.Flags().String("campaign", "", "campaign name (default: the one in the results file)")
	crmRecordCmd.Flags().String("template-version", "", "template version to note on each contact")
	crmListCmd.Flags().String("status", "", "only list contacts with this status")
	crmCmd.AddCommand(crmRecordCmd, crmListCmd)
	rootCmd.AddCommand(crmCmd)
}
