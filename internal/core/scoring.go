package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/scoring"
)

const (
	reasonBotBlocked   = "Website has advanced security that blocks automated access"
	reasonFetchFailed  = "Could not connect to website (may be down or inaccessible)"
	reasonErrors       = "Website returned errors during analysis"
	reasonUnknown      = "Unable to analyze website content"
	reasonBatchTimeout = "Batch timeout exceeded (5 minutes)"

	failedConfidence   = 0.3
	singleScoreTimeout = 45 * time.Second
)

// FailedLead is a lead whose website could not be scored.
type FailedLead struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Reason  string `json:"reason"`
}

type ScoreReport struct {
	Count          int                 `json:"count"`
	Leads          []*model.Lead       `json:"leads"`
	CreditsUsed    int                 `json:"credits_used"`
	FailedCount    int                 `json:"failed_count"`
	FailedLeads    []FailedLead        `json:"failed_leads"`
	FailureSummary map[string][]string `json:"failure_summary"`
	TimedOutCount  int                 `json:"timed_out_count"`
	TimedOutLeads  []FailedLead        `json:"timed_out_leads"`
}

type SingleScore struct {
	Lead        *model.Lead `json:"lead"`
	Scored      bool        `json:"scored"`
	Reason      string      `json:"reason,omitempty"`
	CreditsUsed int         `json:"credits_used"`
	Failed      bool        `json:"failed"`
}

type outcomeKind int

const (
	outcomeSkipped outcomeKind = iota
	outcomeScored
	outcomeFailed
	outcomeTimedOut
	outcomeNoWebsite
)

type leadOutcome struct {
	kind    outcomeKind
	lead    *model.Lead
	reason  string
	charged int
}

// failureReason explains a failed score to the user.
func failureReason(res *scoring.Result) string {
	switch {
	case res.RenderPathway == model.PathwayBotBlocked:
		return reasonBotBlocked
	case res.RenderPathway == model.PathwayFetchFailed:
		return reasonFetchFailed
	case len(res.Errors) > 0:
		return reasonErrors
	}
	return reasonUnknown
}

// ScoreLeads scores every lead of the active view. First-time scores cost
// one credit each and the balance must cover them all up front. Leads
// without a website get score 0. A per-lead and a whole-batch deadline
// apply; leads cut off by either are reported as timed out.
func (s *LeadBlitz) ScoreLeads(ctx context.Context, userID string) (*ScoreReport, error) {
	leads, _, err := s.activeLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	firstTime := 0
	for _, l := range leads {
		if l.Website != "" && l.LastScoredAt == nil {
			firstTime++
		}
	}
	if firstTime > 0 {
		ok, balance, err := s.credits.Has(ctx, userID, credits.AIScoring, firstTime)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, paymentf("Insufficient credits. Need %d credits to score %d new leads, but only have %d. Please purchase more credits.",
				credits.Cost(credits.AIScoring, firstTime), firstTime, balance)
		}
	}

	batchCtx, cancel := context.WithTimeout(ctx, seconds(s.cfg.Scoring.BatchTimeout))
	defer cancel()

	var (
		outcomes = make([]leadOutcome, len(leads))
		stopped  atomic.Bool
		g        errgroup.Group
	)
	g.SetLimit(max(s.cfg.Concurrency.Scoring, 1))
	for i, l := range leads {
		g.Go(func() error {
			outcomes[i] = s.scoreOne(batchCtx, userID, l, seconds(s.cfg.Scoring.PerLeadTimeout), &stopped)
			return nil
		})
	}
	_ = g.Wait()

	report := &ScoreReport{
		Leads:          []*model.Lead{},
		FailedLeads:    []FailedLead{},
		FailureSummary: map[string][]string{},
		TimedOutLeads:  []FailedLead{},
	}
	for _, o := range outcomes {
		if o.kind == outcomeSkipped {
			continue
		}
		report.CreditsUsed += o.charged
		switch o.kind {
		case outcomeFailed:
			report.FailedLeads = append(report.FailedLeads, FailedLead{Name: o.lead.Name, Website: o.lead.Website, Reason: o.reason})
			report.FailureSummary[o.reason] = append(report.FailureSummary[o.reason], o.lead.Name)
		case outcomeTimedOut:
			report.TimedOutLeads = append(report.TimedOutLeads, FailedLead{Name: o.lead.Name, Website: o.lead.Website, Reason: o.reason})
			if o.reason == reasonBatchTimeout {
				continue
			}
		}
		report.Leads = append(report.Leads, o.lead)
	}
	report.Count = len(report.Leads)
	report.FailedCount = len(report.FailedLeads)
	report.TimedOutCount = len(report.TimedOutLeads)

	s.mirrorLeads(ctx, report.Leads)
	s.logger.Info("batch scoring finished", zap.String("user_id", userID), zap.Int("scored", report.Count),
		zap.Int("failed", report.FailedCount), zap.Int("timed_out", report.TimedOutCount),
		zap.Int("credits_used", report.CreditsUsed))
	return report, nil
}

// scoreOne scores l within the batch. Writes use a context detached from
// the batch deadline so a timed-out lead is still recorded. Once a credit
// debit fails, stopped is set and the remaining leads are skipped.
func (s *LeadBlitz) scoreOne(ctx context.Context, userID string, l *model.Lead, perLead time.Duration, stopped *atomic.Bool) leadOutcome {
	write := context.WithoutCancel(ctx)
	log := s.logger.With(zap.String("lead_id", l.ID), zap.String("website", l.Website))

	if stopped.Load() {
		return leadOutcome{kind: outcomeSkipped}
	}
	if l.Website == "" {
		l.Score = 0
		if err := s.store.UpdateLeadScore(write, l); err != nil {
			log.Error("failed to save lead", zap.Error(err))
		}
		return leadOutcome{kind: outcomeNoWebsite, lead: l}
	}
	if ctx.Err() != nil {
		s.zeroScore(write, l)
		return leadOutcome{kind: outcomeTimedOut, lead: l, reason: reasonBatchTimeout}
	}

	firstTime := l.LastScoredAt == nil
	leadCtx, cancel := context.WithTimeout(ctx, perLead)
	res := s.scorer.Score(leadCtx, l.Website, firstTime)
	timedOut := errors.Is(leadCtx.Err(), context.DeadlineExceeded)
	cancel()
	if timedOut {
		log.Warn("scoring timed out", zap.Duration("timeout", perLead))
		s.zeroScore(write, l)
		if ctx.Err() != nil {
			return leadOutcome{kind: outcomeTimedOut, lead: l, reason: reasonBatchTimeout}
		}
		return leadOutcome{kind: outcomeTimedOut, lead: l, reason: fmt.Sprintf("Scoring timed out after %d seconds", int(perLead.Seconds()))}
	}

	if res.Failed() {
		reason := failureReason(res)
		res.ApplyFailure(l)
		l.ScoreConfidence = failedConfidence
		if err := s.store.UpdateLeadScore(write, l); err != nil {
			log.Error("failed to save lead", zap.Error(err))
		}
		log.Info("scoring failed", zap.String("reason", reason))
		return leadOutcome{kind: outcomeFailed, lead: l, reason: reason}
	}

	charged := 0
	if firstTime {
		if _, err := s.credits.Deduct(write, userID, credits.AIScoring, 1); err != nil {
			stopped.Store(true)
			log.Warn("scoring stopped on credits", zap.Error(err))
			return leadOutcome{kind: outcomeSkipped}
		}
		charged = credits.Cost(credits.AIScoring, 1)
	}
	res.Apply(l)
	if err := s.store.UpdateLeadScore(write, l); err != nil {
		log.Error("failed to save lead", zap.Error(err))
	}
	return leadOutcome{kind: outcomeScored, lead: l, charged: charged}
}

func (s *LeadBlitz) zeroScore(ctx context.Context, l *model.Lead) {
	l.Score = 0
	if err := s.store.UpdateLeadScore(ctx, l); err != nil {
		s.logger.Error("failed to save lead", zap.String("lead_id", l.ID), zap.Error(err))
	}
}

// ScoreLead scores a single lead, used for progressive scoring in the
// dashboard. A timeout is reported in the result rather than as an error.
func (s *LeadBlitz) ScoreLead(ctx context.Context, userID, leadID string) (*SingleScore, error) {
	l, err := s.store.GetLead(ctx, userID, leadID)
	if err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	if l.Website == "" {
		return &SingleScore{Lead: l, Reason: "No website"}, nil
	}
	firstTime := l.LastScoredAt == nil
	if firstTime {
		ok, balance, err := s.credits.Has(ctx, userID, credits.AIScoring, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, paymentf("Insufficient credits. Need 1 credit but only have %d.", balance)
		}
	}

	scoreCtx, cancel := context.WithTimeout(ctx, singleScoreTimeout)
	res := s.scorer.Score(scoreCtx, l.Website, firstTime)
	timedOut := errors.Is(scoreCtx.Err(), context.DeadlineExceeded)
	cancel()
	if timedOut {
		s.logger.Warn("scoring timed out", zap.String("lead_id", l.ID), zap.String("website", l.Website))
		return &SingleScore{Lead: l, Reason: "Scoring timed out", Failed: true}, nil
	}

	out := &SingleScore{Lead: l, Scored: true, Failed: res.Failed()}
	if out.Failed {
		res.ApplyFailure(l)
		l.ScoreConfidence = failedConfidence
	} else {
		if firstTime {
			if _, err := s.credits.Deduct(ctx, userID, credits.AIScoring, 1); err == nil {
				out.CreditsUsed = credits.Cost(credits.AIScoring, 1)
			}
		}
		res.Apply(l)
	}
	if err := s.store.UpdateLeadScore(ctx, l); err != nil {
		return nil, err
	}
	s.mirrorLeads(ctx, []*model.Lead{l})
	return out, nil
}

// autoScore scores freshly found leads in the background. Failed sites are
// recorded with score 0; successes are charged while the balance allows.
func (s *LeadBlitz) autoScore(userID string, leads []*model.Lead) {
	var targets []*model.Lead
	for _, l := range leads {
		if l.Website != "" {
			c := *l
			targets = append(targets, &c)
		}
	}
	if len(targets) == 0 {
		return
	}
	s.background("auto-score", func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, seconds(s.cfg.Scoring.BatchTimeout))
		defer cancel()
		log := s.logger.With(zap.String("user_id", userID))

		var (
			g      errgroup.Group
			scored atomic.Int64
		)
		g.SetLimit(max(s.cfg.Concurrency.Scoring, 1))
		for _, l := range targets {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				leadCtx, cancel := context.WithTimeout(ctx, seconds(s.cfg.Scoring.PerLeadTimeout))
				res := s.scorer.Score(leadCtx, l.Website, true)
				cancel()
				write := context.WithoutCancel(ctx)
				if res.Failed() {
					res.ApplyFailure(l)
					l.ScoreConfidence = failedConfidence
				} else {
					if ok, _, err := s.credits.Has(write, userID, credits.AIScoring, 1); err == nil && ok {
						if _, err := s.credits.Deduct(write, userID, credits.AIScoring, 1); err != nil {
							log.Warn("failed to charge auto-score", zap.String("lead_id", l.ID), zap.Error(err))
						}
					}
					res.Apply(l)
					scored.Add(1)
				}
				if err := s.store.UpdateLeadScore(write, l); err != nil {
					log.Error("failed to save auto-scored lead", zap.String("lead_id", l.ID), zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()
		s.mirrorLeads(context.WithoutCancel(ctx), targets)
		log.Info("auto-scoring finished", zap.Int("leads", len(targets)), zap.Int64("scored", scored.Load()))
	})
}
