package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const campaignsInsert = `INSERT INTO campaigns (id, user_id, name, business_type, location, next_page_token, created_at)
	VALUES (:id, :user_id, :name, :business_type, :location, :next_page_token, :created_at)`

const campaignsSelect = `SELECT c.id, c.user_id, c.name, c.business_type, c.location, c.next_page_token, c.created_at,
	(SELECT COUNT(*) FROM leads l WHERE l.campaign_id = c.id) AS lead_count
	FROM campaigns c`

type campaignRow struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	Name          string `db:"name"`
	BusinessType  string `db:"business_type"`
	Location      string `db:"location"`
	NextPageToken string `db:"next_page_token"`
	CreatedAt     int64  `db:"created_at"`
	LeadCount     int    `db:"lead_count"`
}

func (r *campaignRow) toModel() *model.Campaign {
	return &model.Campaign{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		BusinessType:  r.BusinessType,
		Location:      r.Location,
		NextPageToken: r.NextPageToken,
		LeadCount:     r.LeadCount,
		CreatedAt:     fromUnix(r.CreatedAt),
	}
}

func (s *Store) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := campaignRow{
		ID:            c.ID,
		UserID:        c.UserID,
		Name:          c.Name,
		BusinessType:  c.BusinessType,
		Location:      c.Location,
		NextPageToken: c.NextPageToken,
		CreatedAt:     unix(c.CreatedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, campaignsInsert, row); err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, userID, id string) (*model.Campaign, error) {
	var row campaignRow
	q := s.db.Rebind(campaignsSelect + ` WHERE c.id = ? AND c.user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// FindCampaign looks up a campaign by business type and location, ignoring case.
func (s *Store) FindCampaign(ctx context.Context, userID, businessType, location string) (*model.Campaign, error) {
	var row campaignRow
	q := s.db.Rebind(campaignsSelect + ` WHERE c.user_id = ? AND LOWER(c.business_type) = ? AND LOWER(c.location) = ?
		ORDER BY c.created_at DESC LIMIT 1`)
	err := s.db.GetContext(ctx, &row, q, userID,
		strings.ToLower(strings.TrimSpace(businessType)), strings.ToLower(strings.TrimSpace(location)))
	if err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

// ListCampaigns returns the user's campaigns, newest first.
func (s *Store) ListCampaigns(ctx context.Context, userID string) ([]*model.Campaign, error) {
	var rows []campaignRow
	q := s.db.Rebind(campaignsSelect + ` WHERE c.user_id = ? ORDER BY c.created_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	out := make([]*model.Campaign, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *Store) SetNextPageToken(ctx context.Context, id, token string) error {
	q := s.db.Rebind(`UPDATE campaigns SET next_page_token = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, token, id); err != nil {
		return fmt.Errorf("failed to update page token: %w", err)
	}
	return nil
}

// DeleteCampaign removes the campaign and its leads, and clears it as the
// user's active campaign.
func (s *Store) DeleteCampaign(ctx context.Context, userID, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM campaigns WHERE id = ? AND user_id = ?`), id, userID)
		if err != nil {
			return fmt.Errorf("failed to delete campaign: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM leads WHERE campaign_id = ? AND user_id = ?`), id, userID); err != nil {
			return fmt.Errorf("failed to delete campaign leads: %w", err)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET active_campaign_id = '' WHERE id = ? AND active_campaign_id = ?`), userID, id)
		return err
	})
}
