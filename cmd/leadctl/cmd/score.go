package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/agenthands/leadblitz/internal/core/scoring"
)

// checklist scores one website. *scoring.QuickScorer implements it.
type checklist interface {
	Score(ctx context.Context, url string) *scoring.QuickResult
}

// pacer returns a limiter that allows one event per delay.
func pacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

type scoreTotals struct {
	Scored int
	Failed int
}

// scoreLeads runs the checklist over every lead in lf and records the
// outcome on the lead.
func scoreLeads(ctx context.Context, lf *leadFile, q checklist, delay time.Duration, out io.Writer) (scoreTotals, error) {
	var totals scoreTotals
	limiter := pacer(delay)
	entries := lf.all()
	for i, e := range entries {
		l := e.lead
		fmt.Fprintf(out, "[%d/%d] %s: ", i+1, len(entries), l.Name)
		var res *scoring.QuickResult
		if l.Website == "" {
			res = &scoring.QuickResult{
				Score:      35,
				Reasoning:  "Unable to access website for analysis. No website listed",
				Status:     scoring.StatusScoredWithIssues,
				FailReason: "No website listed",
			}
		} else {
			if err := limiter.Wait(ctx); err != nil {
				return totals, err
			}
			res = q.Score(ctx, l.Website)
		}

		score := res.Score
		l.Score = &score
		l.ScoreReasoning = res.Reasoning
		l.ScoreStatus = res.Status
		l.ScoreFailReason = nil
		if res.Status == scoring.StatusScoredWithIssues {
			reason := res.FailReason
			l.ScoreFailReason = &reason
			totals.Failed++
			fmt.Fprintf(out, "failed (%s), assigned %d/100\n", reason, score)
			continue
		}
		totals.Scored++
		fmt.Fprintf(out, "%d/100\n", score)
	}
	return totals, nil
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Scores the websites in a lead file with the quick checklist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")
		delay, _ := cmd.Flags().GetDuration("delay")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lf, err := loadLeadFile(in)
		if err != nil {
			return err
		}
		q := scoring.NewQuickScorer(time.Duration(cfg.Scoring.FetchTimeout)*time.Second, cfg.Scoring.QuickMaxBodySize)
		totals, scoreErr := scoreLeads(cmd.Context(), lf, q, delay, os.Stdout)
		if err := lf.save(outPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		if scoreErr != nil {
			return fmt.Errorf("scoring stopped after %d leads, partial results saved to %s: %w", totals.Scored+totals.Failed, outPath, scoreErr)
		}
		fmt.Printf("\nScored: %d  Failed/inaccessible: %d  Total: %d\nResults saved to %s\n",
			totals.Scored, totals.Failed, totals.Scored+totals.Failed, outPath)
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("in", "leads.json", "lead file to score")
	scoreCmd.Flags().String("out", "scored-leads.json", "where to write the scored leads")
	scoreCmd.Flags().Duration("delay", time.Second, "pause between website fetches")
	rootCmd.AddCommand(scoreCmd)
}
