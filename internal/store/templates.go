package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

type templateRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	Subject   string `db:"subject"`
	Body      string `db:"body"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (s *Store) ListTemplates(ctx context.Context, userID string) ([]*model.EmailTemplate, error) {
	var rows []templateRow
	q := s.db.Rebind(`SELECT id, user_id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE user_id = ? ORDER BY updated_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	out := make([]*model.EmailTemplate, 0, len(rows))
	for _, r := range rows {
		out = append(out, &model.EmailTemplate{
			ID:        r.ID,
			UserID:    r.UserID,
			Name:      r.Name,
			Subject:   r.Subject,
			Body:      r.Body,
			CreatedAt: fromUnix(r.CreatedAt),
			UpdatedAt: fromUnix(r.UpdatedAt),
		})
	}
	return out, nil
}

// SaveTemplate inserts t, or updates it when a template with the same id
// already belongs to the user.
func (s *Store) SaveTemplate(ctx context.Context, t *model.EmailTemplate) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	row := templateRow{
		ID:        t.ID,
		UserID:    t.UserID,
		Name:      t.Name,
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: unix(t.CreatedAt),
		UpdatedAt: unix(t.UpdatedAt),
	}
	res, err := s.db.NamedExecContext(ctx, `UPDATE email_templates SET name=:name, subject=:subject, body=:body,
		updated_at=:updated_at WHERE id=:id AND user_id=:user_id`, row)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO email_templates (id, user_id, name, subject, body, created_at, updated_at)
		VALUES (:id, :user_id, :name, :subject, :body, :created_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM email_templates WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
