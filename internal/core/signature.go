package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/outreach"
	"github.com/agenthands/leadblitz/internal/store"
)

// SignatureUpdate changes only the fields that are set.
type SignatureUpdate struct {
	FullName        *string `json:"full_name"`
	Position        *string `json:"position"`
	CompanyName     *string `json:"company_name"`
	Phone           *string `json:"phone"`
	Website         *string `json:"website"`
	LogoURL         *string `json:"logo_url"`
	Disclaimer      *string `json:"disclaimer"`
	CustomSignature *string `json:"custom_signature"`
	UseCustom       *bool   `json:"use_custom"`
	BasePitch       *string `json:"base_pitch"`
}

// EmailSignature returns the saved signature, or one prefilled with the
// user's name when nothing was saved yet.
func (s *LeadBlitz) EmailSignature(ctx context.Context, userID string) (*model.EmailSignature, error) {
	sig, err := s.store.GetSignature(ctx, userID)
	if err == nil {
		return sig, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}
	sig = &model.EmailSignature{UserID: userID}
	u, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		sig.FullName = u.FullName
	case !store.IsNotFound(err):
		return nil, err
	}
	return sig, nil
}

func (s *LeadBlitz) SaveEmailSignature(ctx context.Context, userID string, req SignatureUpdate) (*Ack, error) {
	sig, err := s.EmailSignature(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&sig.FullName, req.FullName)
	set(&sig.Position, req.Position)
	set(&sig.CompanyName, req.CompanyName)
	set(&sig.Phone, req.Phone)
	set(&sig.Website, req.Website)
	set(&sig.LogoURL, req.LogoURL)
	set(&sig.Disclaimer, req.Disclaimer)
	set(&sig.BasePitch, req.BasePitch)
	if req.CustomSignature != nil {
		sig.CustomSignature = *req.CustomSignature
	}
	if req.UseCustom != nil {
		sig.UseCustom = *req.UseCustom
	}
	if err := s.store.SaveSignature(ctx, sig); err != nil {
		return nil, err
	}
	return &Ack{Success: true, Message: "Email signature saved successfully"}, nil
}

// signature renders the block appended to the user's emails. A signature
// that cannot be loaded is logged and left off.
func (s *LeadBlitz) signature(ctx context.Context, userID string) string {
	sig, err := s.store.GetSignature(ctx, userID)
	if err != nil {
		if !store.IsNotFound(err) {
			s.logger.Warn("failed to load email signature", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	return outreach.RenderSignature(sig)
}
