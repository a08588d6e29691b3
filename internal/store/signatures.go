package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const signatureUpsert = `INSERT INTO email_signatures (user_id, full_name, position, company_name, phone, website,
	logo_url, disclaimer, custom_signature, use_custom, base_pitch, updated_at)
	VALUES (:user_id, :full_name, :position, :company_name, :phone, :website, :logo_url, :disclaimer,
	:custom_signature, :use_custom, :base_pitch, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET full_name=excluded.full_name, position=excluded.position,
	company_name=excluded.company_name, phone=excluded.phone, website=excluded.website,
	logo_url=excluded.logo_url, disclaimer=excluded.disclaimer, custom_signature=excluded.custom_signature,
	use_custom=excluded.use_custom, base_pitch=excluded.base_pitch, updated_at=excluded.updated_at`

type signatureRow struct {
	UserID          string `db:"user_id"`
	FullName        string `db:"full_name"`
	Position        string `db:"position"`
	CompanyName     string `db:"company_name"`
	Phone           string `db:"phone"`
	Website         string `db:"website"`
	LogoURL         string `db:"logo_url"`
	Disclaimer      string `db:"disclaimer"`
	CustomSignature string `db:"custom_signature"`
	UseCustom       bool   `db:"use_custom"`
	BasePitch       string `db:"base_pitch"`
	UpdatedAt       int64  `db:"updated_at"`
}

// GetSignature returns the user's saved signature or ErrNotFound.
func (s *Store) GetSignature(ctx context.Context, userID string) (*model.EmailSignature, error) {
	var r signatureRow
	q := s.db.Rebind(`SELECT user_id, full_name, position, company_name, phone, website, logo_url, disclaimer,
		custom_signature, use_custom, base_pitch, updated_at FROM email_signatures WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &r, q, userID); err != nil {
		return nil, notFound(err)
	}
	return &model.EmailSignature{
		UserID:          r.UserID,
		FullName:        r.FullName,
		Position:        r.Position,
		CompanyName:     r.CompanyName,
		Phone:           r.Phone,
		Website:         r.Website,
		LogoURL:         r.LogoURL,
		Disclaimer:      r.Disclaimer,
		CustomSignature: r.CustomSignature,
		UseCustom:       r.UseCustom,
		BasePitch:       r.BasePitch,
		UpdatedAt:       fromUnix(r.UpdatedAt),
	}, nil
}

func (s *Store) SaveSignature(ctx context.Context, sig *model.EmailSignature) error {
	sig.UpdatedAt = time.Now().UTC()
	row := signatureRow{
		UserID:          sig.UserID,
		FullName:        sig.FullName,
		Position:        sig.Position,
		CompanyName:     sig.CompanyName,
		Phone:           sig.Phone,
		Website:         sig.Website,
		LogoURL:         sig.LogoURL,
		Disclaimer:      sig.Disclaimer,
		CustomSignature: sig.CustomSignature,
		UseCustom:       sig.UseCustom,
		BasePitch:       sig.BasePitch,
		UpdatedAt:       unix(sig.UpdatedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, signatureUpsert, row); err != nil {
		return fmt.Errorf("failed to save signature: %w", err)
	}
	return nil
}
