// Package outreach renders lead templates and delivers them by email or SMS.
package outreach

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/agenthands/leadblitz/internal/core/model"
)

// Footer is appended to every outgoing email.
const Footer = "\n\n---\nIf you'd prefer not to be contacted, reply 'STOP' and you'll be removed."

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Variables returns the placeholder values for l. The city falls back to
// "Unknown" for email and "your area" for SMS when the address has fewer
// than two comma-separated parts.
func Variables(l *model.Lead, ch Channel) map[string]string {
	vars := map[string]string{
		"business_name": l.Name,
		"name":          l.Name,
		"phone":         l.Phone,
		"website":       l.Website,
		"score":         strconv.Itoa(l.Score),
		"city":          City(l.Address, ch),
	}
	if ch == ChannelEmail {
		vars["address"] = l.Address
		vars["email"] = l.Email
		stage := string(l.Stage)
		if stage == "" {
			stage = string(model.StageNew)
		}
		vars["stage"] = stage
	}
	return vars
}

// City is the second-to-last comma-separated part of address.
func City(address string, ch Channel) string {
	parts := strings.Split(address, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[len(parts)-2])
	}
	if ch == ChannelSMS {
		return "your area"
	}
	if p := strings.TrimSpace(address); p != "" {
		return p
	}
	return "Unknown"
}

// Render replaces every {{key}} in tmpl. Unknown placeholders are left as is.
func Render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// HTMLBody escapes body, appends the footer and turns newlines into <br>.
func HTMLBody(body string) string {
	return strings.ReplaceAll(html.EscapeString(body+Footer), "\n", "<br>\n")
}

// ScoreReport formats a lead's score breakdown as plain text for inclusion
// in an email. It is empty when the lead has not been scored.
func ScoreReport(l *model.Lead) string {
	r := l.ScoreReasoning
	if r == nil {
		return ""
	}
	rule := strings.Repeat("=", 50)
	thin := strings.Repeat("-", 50)

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	line("%s", rule)
	line("WEBSITE ANALYSIS REPORT: %s", l.Name)
	line("%s", rule)
	line("Overall Score: %d/100", l.Score)
	line("")

	for _, c := range []struct {
		title string
		max   int
		comp  model.Component
	}{
		{"WEBSITE QUALITY", 30, r.WebsiteQuality},
		{"DIGITAL PRESENCE", 30, r.DigitalPresence},
		{"AUTOMATION OPPORTUNITY", 40, r.AutomationOpportunity},
	} {
		line("%s: %d/%d", c.title, c.comp.Score, c.max)
		if c.comp.Rationale != "" {
			line("  - %s", c.comp.Rationale)
		}
		line("")
	}

	rep := r.PlainEnglishReport
	if len(rep.Strengths)+len(rep.Weaknesses)+len(rep.SalesOpportunities) > 0 {
		line("%s", thin)
		line("SALES INSIGHTS")
		line("%s", thin)
		section := func(title, bullet string, items []string) {
			if len(items) == 0 {
				return
			}
			line("%s", title)
			for _, it := range first(items, 3) {
				line("  %s %s", bullet, it)
			}
			line("")
		}
		section("Strengths:", "+", rep.Strengths)
		section("Areas for Improvement:", "-", rep.Weaknesses)
		section("Opportunities:", "*", rep.SalesOpportunities)
	}
	b.WriteString(rule)
	return b.String()
}

func first(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Preview is a rendered message for one lead.
type Preview struct {
	LeadID   string `json:"lead_id"`
	LeadName string `json:"lead_name"`
	Phone    string `json:"phone,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"body,omitempty"`
	Message  string `json:"message,omitempty"`
}

// PreviewLimit is the number of leads rendered by a preview.
const PreviewLimit = 5

// PreviewEmails renders subject and body for the first five leads.
func PreviewEmails(leads []*model.Lead, subject, body string) []Preview {
	out := []Preview{}
	for _, l := range leads {
		if len(out) == PreviewLimit {
			break
		}
		vars := Variables(l, ChannelEmail)
		out = append(out, Preview{LeadID: l.ID, LeadName: l.Name, Subject: Render(subject, vars), Body: Render(body, vars)})
	}
	return out
}

// PreviewSMS renders message for the first five leads that have a phone.
func PreviewSMS(leads []*model.Lead, message string) []Preview {
	out := []Preview{}
	for _, l := range leads {
		if len(out) == PreviewLimit {
			break
		}
		if strings.TrimSpace(l.Phone) == "" {
			continue
		}
		out = append(out, Preview{LeadID: l.ID, LeadName: l.Name, Phone: l.Phone, Message: Render(message, Variables(l, ChannelSMS))})
	}
	return out
}
