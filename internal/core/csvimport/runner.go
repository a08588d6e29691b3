package csvimport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/scoring"
)

// Store is the persistence the runner needs. *store.Store implements it.
type Store interface {
	GetLead(ctx context.Context, userID, id string) (*model.Lead, error)
	UpdateLeadScore(ctx context.Context, l *model.Lead) error
	ListLeads(ctx context.Context, f model.LeadFilter) ([]*model.Lead, error)
	GetImport(ctx context.Context, userID, id string) (*model.CsvImport, error)
	UpdateImport(ctx context.Context, imp *model.CsvImport) error
}

// Scorer rates one website.
type Scorer interface {
	Score(ctx context.Context, url string, useCache bool) *scoring.Result
}

// Charger debits credits for scored leads.
type Charger interface {
	Deduct(ctx context.Context, userID string, op credits.Operation, count int) (int, error)
}

type Runner struct {
	Store          Store
	Scorer         Scorer
	Credits        Charger
	Concurrency    int
	PerLeadTimeout time.Duration
	Logger         *zap.Logger
}

// Run scores the queued leads of an import with bounded concurrency and
// then finalizes the import. Per-lead failures mark the lead unreachable
// and never stop the run.
func (r *Runner) Run(ctx context.Context, userID, importID string, leadIDs []string) error {
	limit := r.Concurrency
	if limit <= 0 {
		limit = 10
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range leadIDs {
		g.Go(func() error {
			r.scoreLead(ctx, userID, id)
			return nil
		})
	}
	_ = g.Wait()

	if _, err := r.Finalize(ctx, userID, importID); err != nil {
		return fmt.Errorf("failed to finalize import %s: %w", importID, err)
	}
	r.logger().Info("csv import scoring complete", zap.String("import_id", importID), zap.Int("leads", len(leadIDs)))
	return nil
}

func (r *Runner) scoreLead(ctx context.Context, userID, id string) {
	log := r.logger().With(zap.String("lead_id", id))
	lead, err := r.Store.GetLead(ctx, userID, id)
	if err != nil {
		log.Warn("import lead not found", zap.Error(err))
		return
	}
	if lead.Website == "" {
		return
	}

	lead.ImportStatus = model.ImportScoring
	if err := r.Store.UpdateLeadScore(ctx, lead); err != nil {
		log.Warn("failed to mark lead scoring", zap.Error(err))
		return
	}

	timeout := r.PerLeadTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	result := r.Scorer.Score(lctx, lead.Website, true)
	timedOut := lctx.Err() != nil
	cancel()

	switch {
	case timedOut:
		lead.Score = 0
		lead.ImportStatus = model.ImportUnreachable
	case result.Failed():
		result.ApplyFailure(lead)
		lead.ImportStatus = model.ImportUnreachable
	default:
		if _, err := r.Credits.Deduct(ctx, userID, credits.AIScoring, 1); err != nil {
			if !credits.IsInsufficient(err) {
				log.Warn("credit deduction failed", zap.Error(err))
			}
			lead.ImportStatus = model.ImportPendingCredits
			break
		}
		result.Apply(lead)
		lead.ImportStatus = model.ImportScored
	}

	if err := r.Store.UpdateLeadScore(ctx, lead); err != nil {
		log.Error("failed to save import lead", zap.Error(err))
	}
}

// Status is the live progress of an import.
type Status struct {
	ImportID       string `json:"import_id"`
	Status         string `json:"status"`
	Total          int    `json:"total"`
	Scored         int    `json:"scored"`
	Unreachable    int    `json:"unreachable"`
	Pending        int    `json:"pending"`
	PendingCredits int    `json:"pending_credits"`
}

func tally(imp *model.CsvImport, leads []*model.Lead) *Status {
	st := &Status{ImportID: imp.ID, Status: imp.Status, Total: imp.ToScore}
	for _, l := range leads {
		switch l.ImportStatus {
		case model.ImportScored:
			st.Scored++
		case model.ImportUnreachable:
			st.Unreachable++
		case model.ImportQueued, model.ImportScoring:
			st.Pending++
		case model.ImportPendingCredits:
			st.PendingCredits++
		}
	}
	return st
}

// Progress reports counts from the import's leads. An in-progress import
// with nothing left pending is finalized on the way.
func (r *Runner) Progress(ctx context.Context, userID, importID string) (*Status, error) {
	imp, err := r.Store.GetImport(ctx, userID, importID)
	if err != nil {
		return nil, err
	}
	leads, err := r.Store.ListLeads(ctx, model.LeadFilter{UserID: userID, ImportID: importID})
	if err != nil {
		return nil, err
	}
	st := tally(imp, leads)
	if st.Pending == 0 && imp.Status == model.ImportInProgress {
		if err := r.finalize(ctx, imp, st); err != nil {
			return nil, err
		}
		st.Status = imp.Status
	}
	return st, nil
}

// Finalize closes the import as completed, or partial when leads still wait
// for credits.
func (r *Runner) Finalize(ctx context.Context, userID, importID string) (*Status, error) {
	imp, err := r.Store.GetImport(ctx, userID, importID)
	if err != nil {
		return nil, err
	}
	leads, err := r.Store.ListLeads(ctx, model.LeadFilter{UserID: userID, ImportID: importID})
	if err != nil {
		return nil, err
	}
	st := tally(imp, leads)
	if err := r.finalize(ctx, imp, st); err != nil {
		return nil, err
	}
	st.Status = imp.Status
	return st, nil
}

func (r *Runner) finalize(ctx context.Context, imp *model.CsvImport, st *Status) error {
	now := time.Now().UTC()
	imp.ScoredCount = st.Scored
	imp.UnreachableCount = st.Unreachable
	imp.PendingCreditsCount = st.PendingCredits
	imp.PendingCount = 0
	imp.CompletedAt = &now
	imp.Status = model.ImportCompleted
	if st.PendingCredits > 0 {
		imp.Status = model.ImportPartial
	}
	return r.Store.UpdateImport(ctx, imp)
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
