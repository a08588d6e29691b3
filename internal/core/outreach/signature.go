package outreach

import (
	"strings"

	"github.com/agenthands/leadblitz/internal/core/model"
)

// RenderSignature formats sig as the plain-text block appended to emails.
// A custom signature is used verbatim when UseCustom is set. Nil or empty
// signatures render as "".
func RenderSignature(sig *model.EmailSignature) string {
	if sig == nil {
		return ""
	}
	if sig.UseCustom && strings.TrimSpace(sig.CustomSignature) != "" {
		return strings.TrimSpace(sig.CustomSignature)
	}
	var lines []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	add(sig.FullName)
	role := strings.TrimSpace(sig.Position)
	if company := strings.TrimSpace(sig.CompanyName); company != "" {
		if role != "" {
			role += ", "
		}
		role += company
	}
	add(role)
	add(sig.Phone)
	add(sig.Website)
	if len(lines) == 0 && strings.TrimSpace(sig.Disclaimer) == "" {
		return ""
	}
	out := "--\n" + strings.Join(lines, "\n")
	if d := strings.TrimSpace(sig.Disclaimer); d != "" {
		out += "\n\n" + d
	}
	return out
}
