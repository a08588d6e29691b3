package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/model"
)

const defaultSMTPPort = 587

var ErrTemplateNotFound = &Error{Kind: KindNotFound, Message: "Template not found"}

// Ack is the plain success reply of settings and template mutations.
type Ack struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
}

func (s *LeadBlitz) seal(plain string) (string, error) {
	if s.secrets == nil {
		return plain, nil
	}
	return s.secrets.Seal(plain)
}

func (s *LeadBlitz) open(sealed string) (string, error) {
	if s.secrets == nil {
		return sealed, nil
	}
	return s.secrets.Open(sealed)
}

type TemplateList struct {
	Templates []*model.EmailTemplate `json:"templates"`
}

type TemplateRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SavedTemplate struct {
	Success  bool                 `json:"success"`
	Template *model.EmailTemplate `json:"template"`
}

func (s *LeadBlitz) ListTemplates(ctx context.Context, userID string) (*TemplateList, error) {
	ts, err := s.store.ListTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TemplateList{Templates: ts}, nil
}

// SaveTemplate creates a template, or replaces the one named by req.ID.
func (s *LeadBlitz) SaveTemplate(ctx context.Context, userID string, req TemplateRequest) (*SavedTemplate, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidf("Template name is required")
	}
	t := &model.EmailTemplate{ID: req.ID, UserID: userID, Name: req.Name, Subject: req.Subject, Body: req.Body}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	return &SavedTemplate{Success: true, Template: t}, nil
}

func (s *LeadBlitz) DeleteTemplate(ctx context.Context, userID, id string) (*Ack, error) {
	if err := s.store.DeleteTemplate(ctx, userID, id); err != nil {
		return nil, lookup(err, ErrTemplateNotFound)
	}
	return &Ack{Success: true, Message: "Template deleted"}, nil
}

// APIKeys is the masked view of the user's SMS and enrichment credentials.
type APIKeys struct {
	TwilioAccountSID  string `json:"twilio_account_sid"`
	TwilioAuthToken   string `json:"twilio_auth_token"`
	TwilioPhoneNumber string `json:"twilio_phone_number"`
	HunterAPIKey      string `json:"hunter_api_key"`
}

// APIKeysUpdate changes only the fields that are set.
type APIKeysUpdate struct {
	TwilioAccountSID  *string `json:"twilio_account_sid"`
	TwilioAuthToken   *string `json:"twilio_auth_token"`
	TwilioPhoneNumber *string `json:"twilio_phone_number"`
	HunterAPIKey      *string `json:"hunter_api_key"`
}

func (s *LeadBlitz) APIKeys(ctx context.Context, userID string) (*APIKeys, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.open(st.TwilioToken)
	if err != nil {
		return nil, err
	}
	hunter, err := s.open(st.HunterKey)
	if err != nil {
		return nil, err
	}
	return &APIKeys{
		TwilioAccountSID:  st.TwilioSID,
		TwilioAuthToken:   auth.Mask(token),
		TwilioPhoneNumber: st.TwilioPhone,
		HunterAPIKey:      auth.Mask(hunter),
	}, nil
}

func (s *LeadBlitz) UpdateAPIKeys(ctx context.Context, userID string, req APIKeysUpdate) (*Ack, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.TwilioAccountSID != nil {
		st.TwilioSID = strings.TrimSpace(*req.TwilioAccountSID)
	}
	if req.TwilioPhoneNumber != nil {
		st.TwilioPhone = strings.TrimSpace(*req.TwilioPhoneNumber)
	}
	if req.TwilioAuthToken != nil {
		if st.TwilioToken, err = s.seal(strings.TrimSpace(*req.TwilioAuthToken)); err != nil {
			return nil, err
		}
	}
	if req.HunterAPIKey != nil {
		if st.HunterKey, err = s.seal(strings.TrimSpace(*req.HunterAPIKey)); err != nil {
			return nil, err
		}
	}
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	return &Ack{Success: true, Message: "API keys updated successfully"}, nil
}

type SMTPSettings struct {
	Host      string `json:"smtp_host"`
	Port      int    `json:"smtp_port"`
	Username  string `json:"smtp_username"`
	Password  string `json:"smtp_password"`
	FromEmail string `json:"smtp_from_email"`
	UseTLS    *bool  `json:"smtp_use_tls"`
}

type SendGridSettings struct {
	APIKey    string `json:"api_key"`
	FromEmail string `json:"from_email"`
}

// ConfigureSMTP connects an SMTP account. The credentials are stored
// without a live login check; the first send reports bad credentials.
func (s *LeadBlitz) ConfigureSMTP(ctx context.Context, userID string, req SMTPSettings) (*Ack, error) {
	if req.Host == "" || req.Username == "" || req.FromEmail == "" {
		return nil, invalidf("SMTP host, username and from email are required")
	}
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	password, err := s.seal(req.Password)
	if err != nil {
		return nil, err
	}
	st.EmailProvider = model.ProviderSMTP
	st.SMTPHost = req.Host
	st.SMTPPort = req.Port
	if st.SMTPPort <= 0 {
		st.SMTPPort = defaultSMTPPort
	}
	st.SMTPUsername = req.Username
	st.SMTPPassword = password
	st.SMTPFrom = req.FromEmail
	st.SMTPUseTLS = req.UseTLS == nil || *req.UseTLS
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("smtp provider connected", zap.String("user_id", userID), zap.String("host", req.Host))
	return &Ack{Success: true, Provider: model.ProviderSMTP, Message: "SMTP settings configured successfully"}, nil
}

func (s *LeadBlitz) ConfigureSendGrid(ctx context.Context, userID string, req SendGridSettings) (*Ack, error) {
	if req.APIKey == "" || req.FromEmail == "" {
		return nil, invalidf("SendGrid API key and from email are required")
	}
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.SendGridKey, err = s.seal(req.APIKey); err != nil {
		return nil, err
	}
	st.EmailProvider = model.ProviderSendGrid
	st.SendGridFrom = req.FromEmail
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("sendgrid provider connected", zap.String("user_id", userID))
	return &Ack{Success: true, Provider: model.ProviderSendGrid, Message: "SendGrid settings configured successfully"}, nil
}

type EmailStatus struct {
	Configured bool    `json:"configured"`
	Provider   string  `json:"provider"`
	Email      *string `json:"email"`
	SMTPHost   string  `json:"smtp_host,omitempty"`
	SMTPPort   int     `json:"smtp_port,omitempty"`
}

func (s *LeadBlitz) EmailStatus(ctx context.Context, userID string) (*EmailStatus, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch st.EmailProvider {
	case model.ProviderSMTP:
		return &EmailStatus{Configured: true, Provider: st.EmailProvider, Email: optional(st.SMTPFrom),
			SMTPHost: st.SMTPHost, SMTPPort: st.SMTPPort}, nil
	case model.ProviderSendGrid:
		return &EmailStatus{Configured: true, Provider: st.EmailProvider, Email: optional(st.SendGridFrom)}, nil
	}
	return &EmailStatus{Provider: model.ProviderNone}, nil
}

// DisconnectEmail clears the email provider credentials. SMS and Hunter
// keys are kept.
func (s *LeadBlitz) DisconnectEmail(ctx context.Context, userID string) (*Ack, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	var name string
	switch st.EmailProvider {
	case model.ProviderSMTP:
		name = "SMTP"
	case model.ProviderSendGrid:
		name = "SendGrid"
	default:
		return &Ack{Success: true, Message: "No email provider was connected"}, nil
	}
	st.EmailProvider = model.ProviderNone
	st.SMTPHost, st.SMTPPort, st.SMTPUsername, st.SMTPPassword, st.SMTPFrom = "", 0, "", "", ""
	st.SMTPUseTLS = true
	st.SendGridKey, st.SendGridFrom = "", ""
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	return &Ack{Success: true, Message: name + " disconnected successfully"}, nil
}
