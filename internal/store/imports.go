package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const importColumns = `id, user_id, filename, total_rows, to_score, scored_count, unreachable_count,
	pending_count, pending_credits_count, skipped_duplicate, skipped_no_url, skipped_invalid,
	status, created_at, completed_at`

const importsInsert = `INSERT INTO csv_imports (` + importColumns + `) VALUES (
	:id, :user_id, :filename, :total_rows, :to_score, :scored_count, :unreachable_count,
	:pending_count, :pending_credits_count, :skipped_duplicate, :skipped_no_url, :skipped_invalid,
	:status, :created_at, :completed_at)`

const importsUpdate = `UPDATE csv_imports SET scored_count=:scored_count, unreachable_count=:unreachable_count,
	pending_count=:pending_count, pending_credits_count=:pending_credits_count, status=:status,
	completed_at=:completed_at WHERE id=:id AND user_id=:user_id`

type importRow struct {
	ID                  string `db:"id"`
	UserID              string `db:"user_id"`
	Filename            string `db:"filename"`
	TotalRows           int    `db:"total_rows"`
	ToScore             int    `db:"to_score"`
	ScoredCount         int    `db:"scored_count"`
	UnreachableCount    int    `db:"unreachable_count"`
	PendingCount        int    `db:"pending_count"`
	PendingCreditsCount int    `db:"pending_credits_count"`
	SkippedDuplicate    int    `db:"skipped_duplicate"`
	SkippedNoURL        int    `db:"skipped_no_url"`
	SkippedInvalid      int    `db:"skipped_invalid"`
	Status              string `db:"status"`
	CreatedAt           int64  `db:"created_at"`
	CompletedAt         int64  `db:"completed_at"`
}

func newImportRow(imp *model.CsvImport) importRow {
	return importRow{
		ID:                  imp.ID,
		UserID:              imp.UserID,
		Filename:            imp.Filename,
		TotalRows:           imp.TotalRows,
		ToScore:             imp.ToScore,
		ScoredCount:         imp.ScoredCount,
		UnreachableCount:    imp.UnreachableCount,
		PendingCount:        imp.PendingCount,
		PendingCreditsCount: imp.PendingCreditsCount,
		SkippedDuplicate:    imp.SkippedDuplicate,
		SkippedNoURL:        imp.SkippedNoURL,
		SkippedInvalid:      imp.SkippedInvalid,
		Status:              imp.Status,
		CreatedAt:           unix(imp.CreatedAt),
		CompletedAt:         unixPtr(imp.CompletedAt),
	}
}

func (r *importRow) toModel() *model.CsvImport {
	return &model.CsvImport{
		ID:                  r.ID,
		UserID:              r.UserID,
		Filename:            r.Filename,
		TotalRows:           r.TotalRows,
		ToScore:             r.ToScore,
		ScoredCount:         r.ScoredCount,
		UnreachableCount:    r.UnreachableCount,
		PendingCount:        r.PendingCount,
		PendingCreditsCount: r.PendingCreditsCount,
		SkippedDuplicate:    r.SkippedDuplicate,
		SkippedNoURL:        r.SkippedNoURL,
		SkippedInvalid:      r.SkippedInvalid,
		Status:              r.Status,
		CreatedAt:           fromUnix(r.CreatedAt),
		CompletedAt:         fromUnixPtr(r.CompletedAt),
	}
}

func (s *Store) CreateImport(ctx context.Context, imp *model.CsvImport) error {
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NamedExecContext(ctx, importsInsert, newImportRow(imp)); err != nil {
		return fmt.Errorf("failed to insert import: %w", err)
	}
	return nil
}

func (s *Store) GetImport(ctx context.Context, userID, id string) (*model.CsvImport, error) {
	var row importRow
	q := s.db.Rebind(`SELECT ` + importColumns + ` FROM csv_imports WHERE id = ? AND user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// UpdateImport persists the progress counters and status of imp.
func (s *Store) UpdateImport(ctx context.Context, imp *model.CsvImport) error {
	if _, err := s.db.NamedExecContext(ctx, importsUpdate, newImportRow(imp)); err != nil {
		return fmt.Errorf("failed to update import: %w", err)
	}
	return nil
}
