package model

import (
	"fmt"
	"strings"
	"time"
)

type Campaign struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	BusinessType  string    `json:"business_type"`
	Location      string    `json:"location"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	LeadCount     int       `json:"lead_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func CampaignName(businessType, location string) string {
	return fmt.Sprintf("%s in %s", strings.TrimSpace(businessType), strings.TrimSpace(location))
}

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FullName         string    `json:"full_name"`
	IsAdmin          bool      `json:"is_admin"`
	ActiveCampaignID string    `json:"active_campaign_id,omitempty"`
	EmailsSent       int       `json:"emails_sent"`
	SMSSent          int       `json:"sms_sent"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	ImportInProgress = "in_progress"
	ImportCompleted  = "completed"
	ImportPartial    = "partial"
)

type CsvImport struct {
	ID                  string     `json:"import_id"`
	UserID              string     `json:"user_id"`
	Filename            string     `json:"filename"`
	TotalRows           int        `json:"total_rows"`
	ToScore             int        `json:"to_score"`
	ScoredCount         int        `json:"scored"`
	UnreachableCount    int        `json:"unreachable"`
	PendingCount        int        `json:"pending"`
	PendingCreditsCount int        `json:"pending_credits"`
	SkippedDuplicate    int        `json:"skipped_duplicate"`
	SkippedNoURL        int        `json:"skipped_no_url"`
	SkippedInvalid      int        `json:"skipped_invalid"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

type CreditAccount struct {
	UserID         string `json:"user_id"`
	Balance        int    `json:"balance"`
	TotalPurchased int    `json:"total_purchased"`
	TotalUsed      int    `json:"total_used"`
}

const (
	TxUsage = "usage"
	TxGrant = "grant"
)

type CreditTransaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Amount       int       `json:"amount"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type EmailTemplate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ProviderNone     = "none"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// UserSettings holds per-user integration credentials. Secret fields are
// stored encrypted and only decrypted right before use.
type UserSettings struct {
	UserID        string    `json:"-"`
	EmailProvider string    `json:"email_provider"`
	SMTPHost      string    `json:"smtp_host"`
	SMTPPort      int       `json:"smtp_port"`
	SMTPUsername  string    `json:"smtp_username"`
	SMTPPassword  string    `json:"-"`
	SMTPFrom      string    `json:"smtp_from_email"`
	SMTPUseTLS    bool      `json:"smtp_use_tls"`
	SendGridKey   string    `json:"-"`
	SendGridFrom  string    `json:"sendgrid_from_email"`
	TwilioSID     string    `json:"twilio_account_sid"`
	TwilioToken   string    `json:"-"`
	TwilioPhone   string    `json:"twilio_phone_number"`
	HunterKey     string    `json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EmailSignature is appended to the user's outgoing emails. With UseCustom
// set, CustomSignature replaces the generated block.
type EmailSignature struct {
	UserID          string    `json:"-"`
	FullName        string    `json:"full_name"`
	Position        string    `json:"position"`
	CompanyName     string    `json:"company_name"`
	Phone           string    `json:"phone"`
	Website         string    `json:"website"`
	LogoURL         string    `json:"logo_url"`
	Disclaimer      string    `json:"disclaimer"`
	CustomSignature string    `json:"custom_signature"`
	UseCustom       bool      `json:"use_custom"`
	BasePitch       string    `json:"base_pitch"`
	UpdatedAt       time.Time `json:"updated_at"`
}
