package scoring

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agenthands/leadblitz/internal/core/contact"
	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/core/model"
)

var (
	phoneRegex   = regexp.MustCompile(`\+?\d{1,4}[\s\-]?\(?\d{1,4}\)?[\s\-]?\d{3,4}[\s\-]?\d{3,4}`)
	wordRegex    = regexp.MustCompile(`\b\w+\b`)
	privacyHref  = regexp.MustCompile(`(?i)privacy|cookie|gdpr`)
	privacyText  = regexp.MustCompile(`(?i)privacy policy|cookie policy`)
	addressText  = regexp.MustCompile(`(?i)address|location`)
	mapClass     = regexp.MustCompile(`(?i)map`)
	proofText    = regexp.MustCompile(`(?i)testimonial|review|client|case study|award|certified`)
	ctaKeywords  = []string{"contact", "call", "get quote", "free quote", "request", "enquire", "inquire", "book now", "schedule", "get started", "learn more", "find out", "speak to", "talk to", "reach out", "connect", "start now", "try free", "demo", "consultation"}
	ctaClasses   = []string{"cta", "btn-primary", "btn-cta", "action-btn", "contact-btn"}
	ctaHrefs     = []string{"contact", "quote", "book", "schedule", "enquir"}
	linkKeywords = []string{"contact", "about", "services", "quote", "book", "enquir", "pricing", "get-in-touch", "reach-us", "support", "help"}
)

// HeuristicScores holds the six deterministic categories. Maximums are
// mobile 10, security 10, seo 8, contact 8, content 8, tech 6.
type HeuristicScores struct {
	Mobile   int `json:"mobile"`
	Security int `json:"security"`
	SEO      int `json:"seo"`
	Contact  int `json:"contact"`
	Content  int `json:"content"`
	Tech     int `json:"tech"`
}

func (s HeuristicScores) Total() int {
	return s.Mobile + s.Security + s.SEO + s.Contact + s.Content + s.Tech
}

func (s HeuristicScores) Map() map[string]int {
	return map[string]int{
		"mobile":   s.Mobile,
		"security": s.Security,
		"seo":      s.SEO,
		"contact":  s.Contact,
		"content":  s.Content,
		"tech":     s.Tech,
	}
}

type HeuristicResult struct {
	Scores               HeuristicScores `json:"scores"`
	Total                int             `json:"total_heuristic"`
	Evidence             model.Evidence  `json:"evidence"`
	RenderingLimitations bool            `json:"rendering_limitations"`
}

// Heuristics scores a page from verifiable HTML checks only. The result is
// deterministic for a given input.
func Heuristics(html, finalURL string) *HeuristicResult {
	if len(strings.TrimSpace(html)) < 100 {
		return &HeuristicResult{
			Evidence:             model.Evidence{Errors: []string{"HTML empty or too short"}},
			RenderingLimitations: true,
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &HeuristicResult{
			Evidence:             model.Evidence{Errors: []string{"HTML parse failed: " + err.Error()}},
			RenderingLimitations: true,
		}
	}

	var s HeuristicScores
	var ev model.Evidence
	text := contact.VisibleText(doc)

	// mobile
	if vp := doc.Find(`meta[name="viewport"]`).First(); vp.Length() > 0 {
		s.Mobile += 6
		outer, _ := goquery.OuterHtml(vp)
		ev.Viewport = truncate(outer, 100)
	}
	textLinks := doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.TrimSpace(a.Text()) != ""
	}).Length()
	if doc.Find("button").Length() > 0 || textLinks > 5 {
		s.Mobile += 4
	}

	// security
	if strings.HasPrefix(finalURL, "https://") {
		s.Security += 6
		ev.HTTPS = true
	}
	privacy := doc.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return privacyHref.MatchString(href)
	})
	if privacy.Length() > 0 || privacyText.MatchString(text) {
		s.Security += 4
		privacy.EachWithBreak(func(i int, a *goquery.Selection) bool {
			outer, _ := goquery.OuterHtml(a)
			ev.PrivacyLinks = append(ev.PrivacyLinks, truncate(outer, 80))
			return i < 2
		})
	}

	// seo
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		if n := len([]rune(title)); n >= 10 && n <= 65 {
			s.SEO += 4
		}
		ev.Title = truncate(title, 100)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && desc != "" {
		if n := len([]rune(desc)); n >= 50 && n <= 170 {
			s.SEO += 4
		}
		ev.MetaDescription = truncate(desc, 150)
	}

	// contact
	schema := contact.SchemaOrg(doc)
	tels := contact.TelLinks(doc)
	if len(tels) > 0 || phoneRegex.MatchString(text) {
		s.Contact += 2
		for i, tel := range tels {
			if i == 2 {
				break
			}
			ev.PhonesFound = append(ev.PhonesFound, truncate(tel, 50))
		}
	}
	ev.PhonesFound = append(ev.PhonesFound, schema.Phones...)

	var rawEmails []string
	rawEmails = append(rawEmails, contact.Mailtos(doc)...)
	rawEmails = append(rawEmails, contact.EmailRegex.FindAllString(text, -1)...)
	rawEmails = append(rawEmails, contact.DecodeObfuscated(text)...)
	rawEmails = append(rawEmails, schema.Emails...)
	emails := dedupeEmails(rawEmails)

	var items []string
	if len(emails) > 0 {
		s.Contact += 3
		for i, e := range emails {
			if i == 3 {
				break
			}
			items = append(items, "email: "+e)
		}
		ev.EmailsFound = head(emails, 5)
	}

	forms := ContactForms(doc)
	if len(forms) > 0 {
		s.Contact += 2
		ev.ContactForms = forms
		items = append(items, "forms: "+strings.Join(forms, ", "))
	}

	maps := doc.Find("iframe[class], div[class]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		return mapClass.MatchString(class)
	})
	if addressText.MatchString(text) || maps.Length() > 0 || len(schema.Addresses) > 0 {
		s.Contact++
		ev.Addresses = head(schema.Addresses, 2)
	}

	ctas := CTAs(doc)
	if len(ctas) > 0 {
		ev.CTAButtons = head(ctas, 5)
		ev.CTACount = len(ctas)
	}
	ev.ContactItems = head(items, 8)
	ev.ContactSummary = model.ContactSummary{
		Emails: len(emails),
		Phones: len(ev.PhonesFound),
		Forms:  forms,
		CTAs:   len(ctas),
	}
	if ev.ContactSummary.Forms == nil {
		ev.ContactSummary.Forms = []string{}
	}
	ev.PriorityLinks = fetch.PriorityLinks(doc, finalURL, linkKeywords, 5)

	// content
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		s.Content += 4
		ev.H1 = truncate(h1, 150)
	}
	ev.TextWordCount = len(wordRegex.FindAllString(text, -1))
	if ev.TextWordCount >= 200 {
		s.Content += 4
	}

	// tech
	imgs := doc.Find("img")
	modern := imgs.FilterFunction(func(_ int, img *goquery.Selection) bool {
		loading, _ := img.Attr("loading")
		src, _ := img.Attr("src")
		return loading == "lazy" || strings.HasSuffix(src, ".webp") || strings.HasSuffix(src, ".avif")
	})
	if modern.Length() > 0 {
		s.Tech += 3
		imgs.EachWithBreak(func(i int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			ev.ImagesSample = append(ev.ImagesSample, truncate(src, 60))
			return i < 2
		})
	}
	if proofText.MatchString(text) {
		s.Tech += 3
	}

	return &HeuristicResult{
		Scores:               s,
		Total:                s.Total(),
		Evidence:             ev,
		RenderingLimitations: len(html) < 1000,
	}
}

// ContactForms classifies each form on the page. Forms with an email input
// or textarea count as generic_form unless a contact_form was already seen.
// The result is sorted and free of duplicates.
func ContactForms(doc *goquery.Document) []string {
	seen := map[string]bool{}
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		outer, _ := goquery.OuterHtml(form)
		outer = strings.ToLower(outer)
		text := strings.ToLower(strings.Join(strings.Fields(form.Text()), " "))
		has := func(kws ...string) bool {
			return containsAny(outer, kws...) || containsAny(text, kws...)
		}

		switch {
		case has("contact", "enquir", "inquiry", "message", "get in touch"):
			seen["contact_form"] = true
		case has("quote", "estimate", "pricing"):
			seen["quote_form"] = true
		case has("book", "appointment", "schedule", "reservation"):
			seen["booking_form"] = true
		case has("subscribe", "newsletter", "signup", "sign up"):
			seen["newsletter_form"] = true
		}

		if form.Find(`input[type="email"], textarea`).Length() > 0 && !seen["contact_form"] {
			seen["generic_form"] = true
		}
	})

	forms := make([]string, 0, len(seen))
	for f := range seen {
		forms = append(forms, f)
	}
	sort.Strings(forms)
	return forms
}

// CTAs returns the lower-cased text of call-to-action buttons and links,
// at most ten.
func CTAs(doc *goquery.Document) []string {
	var ctas []string
	doc.Find("button, a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		class, _ := sel.Attr("class")
		class = strings.ToLower(class)
		href, _ := sel.Attr("href")
		href = strings.ToLower(href)

		isCTA := containsAny(text, ctaKeywords...) || containsAny(class, ctaClasses...) || containsAny(href, ctaHrefs...)
		if isCTA && text != "" && len([]rune(text)) < 50 {
			ctas = append(ctas, truncate(text, 40))
		}
	})
	return head(ctas, 10)
}

func dedupeEmails(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range raw {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.Contains(e, "@") || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
