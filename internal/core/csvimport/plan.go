package csvimport

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/agenthands/leadblitz/internal/core/model"
)

// NewImportID returns "imp_" followed by 12 hex characters.
func NewImportID() string {
	return "imp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func withScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// NormalizeURL trims raw and adds https:// when no scheme is given.
func NormalizeURL(raw string) string {
	return withScheme(strings.TrimSpace(raw))
}

// NormalizeDomain reduces a URL to its lower-cased host without "www.".
func NormalizeDomain(raw string) string {
	s := withScheme(strings.ToLower(strings.TrimSpace(raw)))
	u, err := url.Parse(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	host := u.Host
	if host == "" {
		host = strings.SplitN(u.Path, "/", 2)[0]
	}
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimRight(host, "/")
}

// ValidURL reports whether raw has a host containing a dot.
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(withScheme(raw))
	if err != nil {
		return false
	}
	return u.Host != "" && strings.Contains(u.Host, ".")
}

// PlannedLead is an accepted row with its queue status.
type PlannedLead struct {
	Name    string
	Website string
	Email   string
	Phone   string
	Notes   string
	Status  string
}

// Lead builds the stored lead for this row.
func (p PlannedLead) Lead(userID, importID string) *model.Lead {
	l := &model.Lead{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         p.Name,
		Website:      p.Website,
		Email:        p.Email,
		Phone:        p.Phone,
		Notes:        p.Notes,
		Stage:        model.StageNew,
		Source:       model.SourceImport,
		ImportID:     importID,
		ImportStatus: p.Status,
	}
	if l.Email != "" {
		l.EmailSource = model.EmailSourceImport
	}
	return l
}

// Summary counts what an import will do.
type Summary struct {
	TotalRows        int `json:"total_rows"`
	ToScore          int `json:"to_score"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	SkippedNoURL     int `json:"skipped_no_url"`
	SkippedInvalid   int `json:"skipped_invalid"`
	CreditsAvailable int `json:"credits_available"`
	CreditsToUse     int `json:"credits_to_use"`
	PendingCredits   int `json:"pending_credits"`
}

type Plan struct {
	Summary Summary
	Leads   []PlannedLead
	Message string
}

// BuildPlan filters rows and assigns queue statuses. Rows are skipped when
// the URL is missing or malformed, or when the domain repeats within the
// file or matches existingDomains. The first creditsAvailable accepted rows
// are queued and the rest wait for credits.
func BuildPlan(rows []Row, existingDomains map[string]bool, creditsAvailable int) *Plan {
	p := &Plan{Summary: Summary{TotalRows: len(rows), CreditsAvailable: creditsAvailable}}
	seen := map[string]bool{}

	var accepted []Row
	for _, row := range rows {
		raw := strings.TrimSpace(row[URLColumn])
		switch {
		case raw == "":
			p.Summary.SkippedNoURL++
			continue
		case !ValidURL(raw):
			p.Summary.SkippedInvalid++
			continue
		}
		domain := NormalizeDomain(raw)
		if seen[domain] || existingDomains[domain] {
			p.Summary.SkippedDuplicate++
			continue
		}
		seen[domain] = true
		accepted = append(accepted, row)
	}

	s := &p.Summary
	s.ToScore = len(accepted)
	s.CreditsToUse = min(max(creditsAvailable, 0), s.ToScore)
	s.PendingCredits = s.ToScore - s.CreditsToUse

	for i, row := range accepted {
		website := NormalizeURL(row[URLColumn])
		name := strings.TrimSpace(row["business_name"])
		if name == "" {
			name = NormalizeDomain(website)
		}
		status := model.ImportQueued
		if i >= s.CreditsToUse {
			status = model.ImportPendingCredits
		}
		p.Leads = append(p.Leads, PlannedLead{
			Name:    name,
			Website: website,
			Email:   strings.TrimSpace(row["email"]),
			Phone:   strings.TrimSpace(row["phone"]),
			Notes:   strings.TrimSpace(row["notes"]),
			Status:  status,
		})
	}
	p.Message = s.Message()
	return p
}

// Message renders the summary the way the upload dialog shows it.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d leads imported.", s.ToScore)
	switch {
	case s.CreditsToUse > 0 && s.PendingCredits > 0:
		fmt.Fprintf(&b, " Scoring %d websites (%d paused - upgrade to score remaining).", s.CreditsToUse, s.PendingCredits)
	case s.CreditsToUse > 0:
		fmt.Fprintf(&b, " Scoring %d websites.", s.CreditsToUse)
	case s.PendingCredits > 0:
		fmt.Fprintf(&b, " %d paused - upgrade to score remaining.", s.PendingCredits)
	}

	var parts []string
	if s.SkippedDuplicate > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate%s", s.SkippedDuplicate, pluralS(s.SkippedDuplicate)))
	}
	if s.SkippedNoURL > 0 {
		parts = append(parts, fmt.Sprintf("%d missing URL", s.SkippedNoURL))
	}
	if s.SkippedInvalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid", s.SkippedInvalid))
	}
	if skipped := s.SkippedDuplicate + s.SkippedNoURL + s.SkippedInvalid; skipped > 0 {
		fmt.Fprintf(&b, " %d skipped (%s).", skipped, strings.Join(parts, ", "))
	}
	return b.String()
}
