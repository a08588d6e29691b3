// Package contact pulls emails, phones and addresses out of HTML pages.
package contact

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	EmailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	obfuscated = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s*\[\s*at\s*\]\s*([a-z0-9.-]+)\s*\[\s*dot\s*\]\s*([a-z]{2,})`),
		regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s*\(\s*at\s*\)\s*([a-z0-9.-]+)\s*\(\s*dot\s*\)\s*([a-z]{2,})`),
		regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s*@\s*([a-z0-9.-]+)\s*\.\s*([a-z]{2,})`),
		regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s*&#64;\s*([a-z0-9.-]+)\.([a-z]{2,})`),
	}
)

// DecodeObfuscated finds "name [at] host [dot] com" style addresses and
// returns them lower-cased in canonical form.
func DecodeObfuscated(text string) []string {
	var emails []string
	for _, re := range obfuscated {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			emails = append(emails, strings.ToLower(m[1]+"@"+m[2]+"."+m[3]))
		}
	}
	return emails
}

// Mailtos returns the addresses of mailto: links, without query strings.
func Mailtos(doc *goquery.Document) []string {
	var emails []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		addr, _, _ = strings.Cut(addr, "?")
		if strings.Contains(addr, "@") {
			emails = append(emails, strings.TrimSpace(addr))
		}
	})
	return emails
}

// TelLinks returns the href of tel: links.
func TelLinks(doc *goquery.Document) []string {
	var phones []string
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		phones = append(phones, href)
	})
	return phones
}

type Schema struct {
	Emails    []string
	Phones    []string
	Addresses []string
}

// SchemaOrg collects contact details from application/ld+json blocks.
// Malformed blocks are skipped.
func SchemaOrg(doc *goquery.Document) Schema {
	var s Schema
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return
		}
		if list, ok := data.([]interface{}); ok {
			for _, item := range list {
				s.collect(item)
			}
			return
		}
		s.collect(data)
	})
	return s
}

func (s *Schema) collect(v interface{}) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	if email, ok := obj["email"].(string); ok {
		email = strings.TrimPrefix(email, "mailto:")
		if strings.Contains(email, "@") {
			s.Emails = append(s.Emails, email)
		}
	}
	if tel, ok := obj["telephone"].(string); ok {
		s.Phones = append(s.Phones, tel)
	}
	switch cp := obj["contactPoint"].(type) {
	case []interface{}:
		for _, p := range cp {
			s.collect(p)
		}
	case map[string]interface{}:
		s.collect(cp)
	}
	switch addr := obj["address"].(type) {
	case string:
		s.Addresses = append(s.Addresses, addr)
	case map[string]interface{}:
		var parts []string
		for _, k := range []string{"streetAddress", "addressLocality", "postalCode", "addressCountry"} {
			if p, ok := addr[k].(string); ok && p != "" {
				parts = append(parts, p)
			}
		}
		s.Addresses = append(s.Addresses, strings.Join(parts, ", "))
	}
}

// Text returns the whitespace-collapsed text of the document.
func Text(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// VisibleText is Text without script, style and noscript contents.
func VisibleText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, noscript").Remove()
	return Text(clone)
}
