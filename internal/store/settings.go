package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const settingsUpsert = `INSERT INTO user_settings (user_id, email_provider, smtp_host, smtp_port, smtp_username,
	smtp_password, smtp_from, smtp_use_tls, sendgrid_key, sendgrid_from, twilio_sid, twilio_token,
	twilio_phone, hunter_key, updated_at)
	VALUES (:user_id, :email_provider, :smtp_host, :smtp_port, :smtp_username, :smtp_password, :smtp_from,
	:smtp_use_tls, :sendgrid_key, :sendgrid_from, :twilio_sid, :twilio_token, :twilio_phone, :hunter_key,
	:updated_at)
	ON CONFLICT (user_id) DO UPDATE SET email_provider=excluded.email_provider, smtp_host=excluded.smtp_host,
	smtp_port=excluded.smtp_port, smtp_username=excluded.smtp_username, smtp_password=excluded.smtp_password,
	smtp_from=excluded.smtp_from, smtp_use_tls=excluded.smtp_use_tls, sendgrid_key=excluded.sendgrid_key,
	sendgrid_from=excluded.sendgrid_from, twilio_sid=excluded.twilio_sid, twilio_token=excluded.twilio_token,
	twilio_phone=excluded.twilio_phone, hunter_key=excluded.hunter_key, updated_at=excluded.updated_at`

type settingsRow struct {
	UserID        string `db:"user_id"`
	EmailProvider string `db:"email_provider"`
	SMTPHost      string `db:"smtp_host"`
	SMTPPort      int    `db:"smtp_port"`
	SMTPUsername  string `db:"smtp_username"`
	SMTPPassword  string `db:"smtp_password"`
	SMTPFrom      string `db:"smtp_from"`
	SMTPUseTLS    bool   `db:"smtp_use_tls"`
	SendGridKey   string `db:"sendgrid_key"`
	SendGridFrom  string `db:"sendgrid_from"`
	TwilioSID     string `db:"twilio_sid"`
	TwilioToken   string `db:"twilio_token"`
	TwilioPhone   string `db:"twilio_phone"`
	HunterKey     string `db:"hunter_key"`
	UpdatedAt     int64  `db:"updated_at"`
}

// GetSettings returns the user's settings, or empty settings with provider
// "none" when nothing was saved yet.
func (s *Store) GetSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	var r settingsRow
	q := s.db.Rebind(`SELECT user_id, email_provider, smtp_host, smtp_port, smtp_username, smtp_password,
		smtp_from, smtp_use_tls, sendgrid_key, sendgrid_from, twilio_sid, twilio_token, twilio_phone,
		hunter_key, updated_at FROM user_settings WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &r, q, userID); err != nil {
		if err := notFound(err); errors.Is(err, ErrNotFound) {
			return &model.UserSettings{UserID: userID, EmailProvider: model.ProviderNone, SMTPUseTLS: true}, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &model.UserSettings{
		UserID:        r.UserID,
		EmailProvider: r.EmailProvider,
		SMTPHost:      r.SMTPHost,
		SMTPPort:      r.SMTPPort,
		SMTPUsername:  r.SMTPUsername,
		SMTPPassword:  r.SMTPPassword,
		SMTPFrom:      r.SMTPFrom,
		SMTPUseTLS:    r.SMTPUseTLS,
		SendGridKey:   r.SendGridKey,
		SendGridFrom:  r.SendGridFrom,
		TwilioSID:     r.TwilioSID,
		TwilioToken:   r.TwilioToken,
		TwilioPhone:   r.TwilioPhone,
		HunterKey:     r.HunterKey,
		UpdatedAt:     fromUnix(r.UpdatedAt),
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, st *model.UserSettings) error {
	st.UpdatedAt = time.Now().UTC()
	if st.EmailProvider == "" {
		st.EmailProvider = model.ProviderNone
	}
	row := settingsRow{
		UserID:        st.UserID,
		EmailProvider: st.EmailProvider,
		SMTPHost:      st.SMTPHost,
		SMTPPort:      st.SMTPPort,
		SMTPUsername:  st.SMTPUsername,
		SMTPPassword:  st.SMTPPassword,
		SMTPFrom:      st.SMTPFrom,
		SMTPUseTLS:    st.SMTPUseTLS,
		SendGridKey:   st.SendGridKey,
		SendGridFrom:  st.SendGridFrom,
		TwilioSID:     st.TwilioSID,
		TwilioToken:   st.TwilioToken,
		TwilioPhone:   st.TwilioPhone,
		HunterKey:     st.HunterKey,
		UpdatedAt:     unix(st.UpdatedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, settingsUpsert, row); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
