package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

var ErrDuplicate = errors.New("already exists")

const userColumns = `id, email, password_hash, full_name, is_admin, active_campaign_id, emails_sent, sms_sent, created_at`

const usersInsert = `INSERT INTO users (` + userColumns + `) VALUES
	(:id, :email, :password_hash, :full_name, :is_admin, :active_campaign_id, :emails_sent, :sms_sent, :created_at)`

type userRow struct {
	ID               string `db:"id"`
	Email            string `db:"email"`
	PasswordHash     string `db:"password_hash"`
	FullName         string `db:"full_name"`
	IsAdmin          bool   `db:"is_admin"`
	ActiveCampaignID string `db:"active_campaign_id"`
	EmailsSent       int    `db:"emails_sent"`
	SMSSent          int    `db:"sms_sent"`
	CreatedAt        int64  `db:"created_at"`
}

func (r *userRow) toModel() *model.User {
	return &model.User{
		ID:               r.ID,
		Email:            r.Email,
		PasswordHash:     r.PasswordHash,
		FullName:         r.FullName,
		IsAdmin:          r.IsAdmin,
		ActiveCampaignID: r.ActiveCampaignID,
		EmailsSent:       r.EmailsSent,
		SMSSent:          r.SMSSent,
		CreatedAt:        fromUnix(r.CreatedAt),
	}
}

// CreateUser inserts u. Emails are stored lower-cased; a taken email
// returns ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	row := userRow{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		FullName:         u.FullName,
		IsAdmin:          u.IsAdmin,
		ActiveCampaignID: u.ActiveCampaignID,
		CreatedAt:        unix(u.CreatedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, usersInsert, row); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := s.db.GetContext(ctx, &row, q, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) SetActiveCampaign(ctx context.Context, userID, campaignID string) error {
	q := s.db.Rebind(`UPDATE users SET active_campaign_id = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, campaignID, userID); err != nil {
		return fmt.Errorf("failed to set active campaign: %w", err)
	}
	return nil
}

// IncrementSent bumps the user's outreach counters.
func (s *Store) IncrementSent(ctx context.Context, userID string, emails, sms int) error {
	q := s.db.Rebind(`UPDATE users SET emails_sent = emails_sent + ?, sms_sent = sms_sent + ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, emails, sms, userID); err != nil {
		return fmt.Errorf("failed to update sent counters: %w", err)
	}
	return nil
}
