package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/model"
)

// TemplateFilename is the attachment name of the CSV template download.
const TemplateFilename = "leadblitz-import-template.csv"

var ErrImportNotFound = &Error{Kind: KindNotFound, Message: "Import not found"}

type ImportResult struct {
	Success  bool              `json:"success"`
	ImportID string            `json:"import_id"`
	Summary  csvimport.Summary `json:"summary"`
	Message  string            `json:"message"`
}

func (s *LeadBlitz) runner() *csvimport.Runner {
	return &csvimport.Runner{
		Store:          s.store,
		Scorer:         s.scorer,
		Credits:        s.credits,
		Concurrency:    s.cfg.Concurrency.Import,
		PerLeadTimeout: seconds(s.cfg.Scoring.ImportTimeout),
		Logger:         s.logger,
	}
}

// ImportCSV stores the accepted rows of an upload as leads and scores the
// ones the balance covers in the background. Rejected uploads return a
// *csvimport.Error.
func (s *LeadBlitz) ImportCSV(ctx context.Context, userID, filename string, content []byte) (*ImportResult, error) {
	rows, err := csvimport.Parse(content, filename)
	if err != nil {
		return nil, err
	}
	websites, err := s.store.LeadWebsites(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(websites))
	for _, w := range websites {
		if d := csvimport.NormalizeDomain(w); d != "" {
			existing[d] = true
		}
	}
	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan := csvimport.BuildPlan(rows, existing, balance)
	importID := csvimport.NewImportID()
	imp := &model.CsvImport{
		ID:                  importID,
		UserID:              userID,
		Filename:            filename,
		TotalRows:           plan.Summary.TotalRows,
		ToScore:             plan.Summary.ToScore,
		PendingCount:        plan.Summary.ToScore,
		PendingCreditsCount: plan.Summary.PendingCredits,
		SkippedDuplicate:    plan.Summary.SkippedDuplicate,
		SkippedNoURL:        plan.Summary.SkippedNoURL,
		SkippedInvalid:      plan.Summary.SkippedInvalid,
		Status:              model.ImportInProgress,
	}
	if err := s.store.CreateImport(ctx, imp); err != nil {
		return nil, err
	}

	leads := make([]*model.Lead, 0, len(plan.Leads))
	var queued []string
	for _, p := range plan.Leads {
		l := p.Lead(userID, importID)
		leads = append(leads, l)
		if l.ImportStatus == model.ImportQueued {
			queued = append(queued, l.ID)
		}
	}
	if err := s.store.InsertLeads(ctx, leads); err != nil {
		return nil, err
	}
	s.mirrorLeads(ctx, leads)

	s.logger.Info("csv import accepted", zap.String("user_id", userID), zap.String("import_id", importID),
		zap.Int("rows", plan.Summary.TotalRows), zap.Int("queued", len(queued)),
		zap.Int("pending_credits", plan.Summary.PendingCredits))

	if len(queued) > 0 {
		s.background("csv-import", func(ctx context.Context) {
			if err := s.runner().Run(ctx, userID, importID, queued); err != nil {
				s.logger.Error("csv import scoring failed", zap.String("import_id", importID), zap.Error(err))
			}
		})
	}
	return &ImportResult{Success: true, ImportID: importID, Summary: plan.Summary, Message: plan.Message}, nil
}

func (s *LeadBlitz) ImportStatus(ctx context.Context, userID, importID string) (*csvimport.Status, error) {
	st, err := s.runner().Progress(ctx, userID, importID)
	if err != nil {
		return nil, lookup(err, ErrImportNotFound)
	}
	return st, nil
}

// CSVTemplate returns the downloadable import template.
func (s *LeadBlitz) CSVTemplate() string {
	return csvimport.Template()
}
