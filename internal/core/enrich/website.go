// Package enrich finds contact emails and phones for leads, either by
// crawling their website or through Hunter.io.
package enrich

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/leadblitz/internal/core/contact"
	"github.com/agenthands/leadblitz/internal/core/fetch"
)

// ContactPaths are fetched next to the homepage.
var ContactPaths = []string{"/contact", "/contact-us", "/about", "/about-us"}

var phoneRegex = regexp.MustCompile(`(?:0\d{2,4}[\s\-]?\d{3,4}[\s\-]?\d{3,4})|` +
	`(?:\+44[\s\-]?\(?\d{1,4}\)?[\s\-]?\d{3,4}[\s\-]?\d{3,4})|` +
	`(?:\+?1?[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4})|` +
	`(?:\+\d{1,3}[\s\-]?\(?\d{1,4}\)?[\s\-]?\d{3,4}[\s\-]?\d{3,4})`)

var nonDigits = regexp.MustCompile(`[^\d+]`)

var (
	noreplyPatterns = []string{"noreply@", "no-reply@", "donotreply@", "do-not-reply@", "mailer-daemon@"}

	placeholderEmails = map[string]bool{
		"example@yourmail.com": true, "test@example.com": true, "email@example.com": true,
		"your@email.com": true, "info@example.com": true, "name@yourmail.com": true,
		"user@example.com": true, "admin@example.com": true, "contact@example.com": true,
		"hello@example.com": true, "support@example.com": true, "sales@example.com": true,
		"name@example.com": true, "your@yourmail.com": true, "mail@example.com": true,
		"yourname@email.com": true, "name@domain.com": true, "email@domain.com": true,
		"user@domain.com": true, "your@domain.com": true, "test@test.com": true,
		"example@example.com": true, "info@yoursite.com": true, "contact@yoursite.com": true,
	}

	invalidDomains = []string{"example.com", "domain.com", "email.com", "yoursite.com", "test.com", "wixpress.com",
		"sentry.io", "sentry-next.wixpress.com", "yourmail.com", "sample.com", "placeholder.com", "tempmail.com",
		"mailinator.com"}

	placeholderKeywords = []string{"example", "test", "placeholder", "yourmail", "sample", "yoursite", "yourdomain",
		"mysite", "fakeemail", "tempmail"}

	assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".js", ".css"}

	genericPrefixes = map[string]bool{
		"info": true, "contact": true, "hello": true, "support": true, "sales": true, "admin": true,
		"enquiries": true, "enquiry": true, "mail": true, "general": true, "office": true,
	}
)

// Findings are the contacts found on one website, sorted.
type Findings struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

type WebsiteEnricher struct {
	fetcher *fetch.Fetcher
}

func NewWebsiteEnricher(f *fetch.Fetcher) *WebsiteEnricher {
	if f == nil {
		f = fetch.New(fetch.Options{Retries: 1})
	}
	return &WebsiteEnricher{fetcher: f}
}

// Extract fetches the homepage and the contact paths in parallel and
// collects every email and phone they expose. Pages that fail are skipped.
func (e *WebsiteEnricher) Extract(ctx context.Context, website string) *Findings {
	out := &Findings{}
	if strings.TrimSpace(website) == "" {
		return out
	}
	base := withScheme(strings.TrimSpace(website))
	pages := []string{base}
	for _, p := range ContactPaths {
		pages = append(pages, resolve(base, p))
	}

	var (
		mu     sync.Mutex
		emails = map[string]bool{}
		phones = map[string]bool{}
	)
	var g errgroup.Group
	g.SetLimit(4)
	for _, u := range pages {
		g.Go(func() error {
			res := e.fetcher.Fetch(ctx, u)
			if res.Status != 200 || res.HTML == "" {
				return nil
			}
			em, ph := scan(res.HTML)
			mu.Lock()
			defer mu.Unlock()
			for _, v := range em {
				emails[v] = true
			}
			for _, v := range ph {
				phones[v] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	for v := range emails {
		out.Emails = append(out.Emails, v)
	}
	out.Emails = FilterEmails(out.Emails)
	for v := range phones {
		out.Phones = append(out.Phones, v)
	}
	sort.Strings(out.Phones)
	return out
}

// scan returns the raw email and phone candidates of one page.
func scan(html string) ([]string, []string) {
	var emails, phones []string
	for _, m := range contact.EmailRegex.FindAllString(html, -1) {
		emails = append(emails, strings.ToLower(strings.TrimSpace(m)))
	}
	emails = append(emails, contact.DecodeObfuscated(html)...)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return emails, phones
	}
	for _, m := range contact.Mailtos(doc) {
		emails = append(emails, strings.ToLower(m))
	}
	schema := contact.SchemaOrg(doc)
	for _, m := range schema.Emails {
		emails = append(emails, strings.ToLower(m))
	}

	for _, m := range phoneRegex.FindAllString(contact.VisibleText(doc), -1) {
		if len(nonDigits.ReplaceAllString(m, "")) >= 10 {
			phones = append(phones, strings.TrimSpace(m))
		}
	}
	for _, tel := range contact.TelLinks(doc) {
		tel = strings.TrimSpace(strings.TrimPrefix(tel, "tel:"))
		if len(nonDigits.ReplaceAllString(tel, "")) >= 10 {
			phones = append(phones, tel)
		}
	}
	phones = append(phones, schema.Phones...)
	return emails, phones
}

// FilterEmails drops placeholder, no-reply, asset-like and test-domain
// addresses and returns the rest sorted and deduplicated.
func FilterEmails(emails []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if !validCandidate(email) || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

func validCandidate(email string) bool {
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return false
	}
	if placeholderEmails[email] {
		return false
	}
	for _, p := range noreplyPatterns {
		if strings.Contains(email, p) {
			return false
		}
	}
	for _, d := range invalidDomains {
		if strings.Contains(email, d) {
			return false
		}
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	for _, k := range placeholderKeywords {
		if strings.Contains(domain, k) {
			return false
		}
	}
	for _, s := range assetSuffixes {
		if strings.HasSuffix(email, s) {
			return false
		}
	}
	return true
}

// IsGeneric reports a role inbox such as info@ or contact@.
func IsGeneric(email string) bool {
	local, _, ok := strings.Cut(strings.ToLower(email), "@")
	return ok && genericPrefixes[local]
}

// ChooseBest picks the outreach address: one on the site's own domain
// first, then a generic inbox, then the first candidate.
func ChooseBest(candidates []string, website string) string {
	if len(candidates) == 0 {
		return ""
	}
	domain := Domain(website)
	var own []string
	for _, c := range candidates {
		if domain != "" && strings.HasSuffix(strings.ToLower(c), "@"+domain) {
			own = append(own, c)
		}
	}
	pool := candidates
	if len(own) > 0 {
		pool = own
	}
	for _, c := range pool {
		if IsGeneric(c) {
			return c
		}
	}
	return pool[0]
}

// Domain returns the host of website without "www.".
func Domain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	u, err := url.Parse(withScheme(website))
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" {
		host = u.Path
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func withScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func resolve(base, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	return u.ResolveReference(&url.URL{Path: path}).String()
}
