package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/agenthands/leadblitz/internal/core/outreach"
	"github.com/agenthands/leadblitz/internal/crm"
)

const maxErrorLen = 100

type sendOptions struct {
	Campaign string
	Subject  string
	Body     string
	Delay    time.Duration
}

// truncateError shortens a provider error to maxErrorLen runes.
func truncateError(msg string) string {
	if utf8.RuneCountInString(msg) <= maxErrorLen {
		return msg
	}
	return string([]rune(msg)[:maxErrorLen])
}

// sendAll mails every lead with an address. A failed send is recorded and
// the loop moves on. On cancellation the results so far are returned with
// the error and the summary already filled in.
func sendAll(ctx context.Context, lf *leadFile, sender outreach.EmailSender, opts sendOptions, out io.Writer) (*crm.SendResults, error) {
	res := &crm.SendResults{
		Campaign:      opts.Campaign,
		Timestamp:     time.Now().UTC(),
		SentDetails:   []crm.Recipient{},
		FailedDetails: []crm.Failed{},
	}
	limiter := pacer(opts.Delay)
	entries := lf.all()
	res.Summary.TotalLeads = len(entries)
	for _, e := range entries {
		if city := e.city(); city != "" {
			if res.Summary.Cities == nil {
				res.Summary.Cities = map[string]int{}
			}
			res.Summary.Cities[city]++
		}
	}
	defer func() {
		res.Summary.Sent = len(res.SentDetails)
		res.Summary.Failed = len(res.FailedDetails)
	}()
	for i, e := range entries {
		l := e.lead
		if l.Email == "" {
			fmt.Fprintf(out, "[%d/%d] SKIP %s - no email\n", i+1, len(entries), l.Name)
			res.Summary.Skipped++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		vars := outreach.Variables(e.toLead(), outreach.ChannelEmail)
		subject := outreach.Render(opts.Subject, vars)
		body := outreach.Render(opts.Body, vars)

		fmt.Fprintf(out, "[%d/%d] Sending to %s - %s... ", i+1, len(entries), l.Name, l.Email)
		if err := sender.SendEmail(ctx, l.Email, subject, body); err != nil {
			msg := truncateError(err.Error())
			fmt.Fprintf(out, "failed: %s\n", msg)
			res.FailedDetails = append(res.FailedDetails, crm.Failed{
				ID: l.ID, Name: l.Name, Email: l.Email, City: e.city(), Error: msg,
			})
			continue
		}
		fmt.Fprintln(out, "sent")
		res.SentDetails = append(res.SentDetails, crm.Recipient{
			ID: l.ID, Name: l.Name, Email: l.Email, City: e.city(), Score: l.Score,
		})
	}
	return res, nil
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Mails a scored lead file over SMTP and writes a results file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")
		bodyFile, _ := cmd.Flags().GetString("body-file")
		opts := sendOptions{}
		opts.Subject, _ = cmd.Flags().GetString("subject")
		opts.Campaign, _ = cmd.Flags().GetString("campaign")
		opts.Delay, _ = cmd.Flags().GetDuration("delay")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		body, err := os.ReadFile(bodyFile)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		opts.Body = string(body)
		lf, err := loadLeadFile(in)
		if err != nil {
			return err
		}
		sender, err := outreach.NewSMTPSender(outreach.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			UseTLS:   true,
		})
		if err != nil {
			return err
		}

		res, sendErr := sendAll(cmd.Context(), lf, sender, opts, os.Stdout)
		if err := res.Save(outPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		if sendErr != nil {
			return fmt.Errorf("send stopped after %d emails, partial results saved to %s: %w", res.Summary.Sent, outPath, sendErr)
		}
		s := res.Summary
		fmt.Printf("\nProcessed: %d  Sent: %d  Failed: %d  Skipped (no email): %d\nResults saved to %s\n",
			s.TotalLeads, s.Sent, s.Failed, s.Skipped, outPath)
		return nil
	},
}

func init() {
	sendCmd.Flags().String("in", "scored-leads.json", "scored lead file")
	sendCmd.Flags().String("out", "send-results.json", "where to write the send results")
	sendCmd.Flags().String("subject", "We scored your website, {{business_name}}", "subject template")
	sendCmd.Flags().String("body-file", "", "body template file")
	sendCmd.Flags().String("campaign", "outreach", "campaign name recorded in the results")
	sendCmd.Flags().Duration("delay", 2*time.Second, "pause between emails")
	_ = sendCmd.MarkFlagRequired("body-file")
	rootCmd.AddCommand(sendCmd)
}
