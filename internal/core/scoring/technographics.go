package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agenthands/leadblitz/internal/core/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type cmsRule struct {
	name       string
	confidence string
	markers    []string
}

var (
	cmsRules = []cmsRule{
		{"WordPress", "high", []string{"wp-content", "wp-includes"}},
		{"Wix", "high", []string{"wix.com", "wixsite.com", "_wix_browser_sess"}},
		{"Squarespace", "high", []string{"squarespace.com", "squarespace-cdn.com"}},
		{"Shopify", "high", []string{"cdn.shopify.com", "shopify"}},
		{"Webflow", "medium", []string{"webflow.com", "wf-"}},
		{"Joomla", "medium", []string{"/media/jui/", "joomla"}},
		{"Drupal", "medium", []string{"drupal", "/sites/default/files"}},
		{"Ghost", "medium", []string{"ghost.io", "ghost-"}},
		{"Weebly", "high", []string{"weebly.com"}},
		{"GoDaddy", "medium", []string{"godaddy"}},
	}
	generatorCMS = []string{"WordPress", "Joomla", "Drupal", "Wix", "Squarespace"}

	otherAnalytics = []struct {
		name    string
		markers []string
	}{
		{"Hotjar", []string{"hotjar.com"}},
		{"Microsoft Clarity", []string{"clarity.ms"}},
		{"Plausible", []string{"plausible.io"}},
		{"Matomo", []string{"matomo", "piwik"}},
		{"Mixpanel", []string{"mixpanel.com"}},
		{"Segment", []string{"segment.com", "segment.io"}},
	}

	cookieIndicators = []string{"cookie-consent", "cookieconsent", "cookie-notice", "cookie-banner",
		"cookie-popup", "gdpr-consent", "cc-banner", "cc-window", "cookiebot", "osano", "onetrust",
		"termly", "iubenda", "cookie_consent", "accept-cookies", "cookie-law"}

	versionRegex   = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)
	jqueryVersions = []*regexp.Regexp{
		regexp.MustCompile(`jquery[.-](\d+\.\d+(?:\.\d+)?)`),
		regexp.MustCompile(`jquery\.min\.js\?ver=(\d+\.\d+(?:\.\d+)?)`),
		regexp.MustCompile(`jquery\s+v?(\d+\.\d+(?:\.\d+)?)`),
	}
	iconRel = regexp.MustCompile(`(?i)icon|shortcut`)
)

const (
	cmsUnknown = "Unknown"
	cmsCustom  = "Custom/Unknown"
)

func emptyTechnographics() *model.Technographics {
	return &model.Technographics{
		CMS:         model.CMS{Name: cmsUnknown, Confidence: "low"},
		Analytics:   model.Analytics{Other: []string{}},
		SocialLinks: map[string]bool{},
	}
}

// DetectTechnographics reads the technology stack from a page that was
// already fetched. It makes no requests of its own.
func DetectTechnographics(html, finalURL string) *model.Technographics {
	if len(strings.TrimSpace(html)) < 50 {
		return emptyTechnographics()
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return emptyTechnographics()
	}
	lower := strings.ToLower(html)
	generator := strings.TrimSpace(doc.Find(`meta[name="generator"]`).First().AttrOr("content", ""))

	t := &model.Technographics{
		CMS:              detectCMS(lower, generator),
		CMSVersion:       versionRegex.FindString(generator),
		SSL:              strings.HasPrefix(strings.ToLower(finalURL), "https://"),
		MobileResponsive: doc.Find(`meta[name="viewport"]`).Length() > 0,
		Analytics:        detectAnalytics(lower),
		JQuery:           detectJQuery(lower),
		CookieConsent:    containsAny(lower, cookieIndicators...),
		SocialLinks:      detectSocialLinks(doc),
		PageBloat:        detectPageBloat(doc),
		OGTags: model.OGTags{
			HasTitle: doc.Find(`meta[property="og:title"]`).Length() > 0,
			HasImage: doc.Find(`meta[property="og:image"]`).Length() > 0,
		},
		Detected: true,
	}

	t.Favicon = strings.Contains(lower, "favicon") ||
		doc.Find("link[rel]").FilterFunction(func(_ int, l *goquery.Selection) bool {
			return iconRel.MatchString(l.AttrOr("rel", ""))
		}).Length() > 0
	return t
}

func detectCMS(lower, generator string) model.CMS {
	for _, r := range cmsRules {
		if containsAny(lower, r.markers...) {
			return model.CMS{Name: r.name, Confidence: r.confidence}
		}
	}
	gen := strings.ToLower(generator)
	for _, name := range generatorCMS {
		if strings.Contains(gen, strings.ToLower(name)) {
			return model.CMS{Name: name, Confidence: "high"}
		}
	}
	if gen != "" {
		return model.CMS{Name: cases.Title(language.Und).String(gen), Confidence: "medium"}
	}
	return model.CMS{Name: cmsCustom, Confidence: "low"}
}

func detectAnalytics(lower string) model.Analytics {
	a := model.Analytics{
		GoogleAnalytics: containsAny(lower, "gtag(", "googletagmanager.com", "google-analytics.com", "ga("),
		MetaPixel:       containsAny(lower, "connect.facebook.net", "fbq(", "facebook.com/tr"),
		Other:           []string{},
	}
	for _, o := range otherAnalytics {
		if containsAny(lower, o.markers...) {
			a.Other = append(a.Other, o.name)
		}
	}
	return a
}

func detectJQuery(lower string) model.JQuery {
	if !strings.Contains(lower, "jquery") {
		return model.JQuery{}
	}
	j := model.JQuery{Present: true}
	for _, re := range jqueryVersions {
		if m := re.FindStringSubmatch(lower); m != nil {
			j.Version = m[1]
			break
		}
	}
	return j
}

func detectSocialLinks(doc *goquery.Document) map[string]bool {
	social := map[string]bool{
		"facebook":  false,
		"instagram": false,
		"linkedin":  false,
		"twitter":   false,
		"youtube":   false,
		"tiktok":    false,
	}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.ToLower(a.AttrOr("href", ""))
		if strings.Contains(href, "facebook.com") && !strings.Contains(href, "/tr") && !strings.Contains(href, "sharer") {
			social["facebook"] = true
		}
		if strings.Contains(href, "instagram.com") {
			social["instagram"] = true
		}
		if strings.Contains(href, "linkedin.com") && !strings.Contains(href, "share") {
			social["linkedin"] = true
		}
		if strings.Contains(href, "twitter.com") || strings.Contains(href, "x.com/") {
			social["twitter"] = true
		}
		if strings.Contains(href, "youtube.com") {
			social["youtube"] = true
		}
		if strings.Contains(href, "tiktok.com") {
			social["tiktok"] = true
		}
	})
	return social
}

func detectPageBloat(doc *goquery.Document) model.PageBloat {
	external := func(u string) bool {
		return strings.HasPrefix(u, "http") || strings.HasPrefix(u, "//")
	}
	var b model.PageBloat
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if external(s.AttrOr("src", "")) {
			b.ExternalScripts++
		}
	})
	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if external(s.AttrOr("href", "")) {
			b.ExternalStylesheets++
		}
	})
	b.TotalExternal = b.ExternalScripts + b.ExternalStylesheets
	return b
}

func majorVersion(v string) (int, error) {
	major, _, _ := strings.Cut(v, ".")
	return strconv.Atoi(major)
}

// ClassifyTechHealth sorts technographics into green, amber and red items
// for the client report.
func ClassifyTechHealth(t *model.Technographics) model.TechHealth {
	h := model.TechHealth{Green: []model.HealthItem{}, Amber: []model.HealthItem{}, Red: []model.HealthItem{}}
	green := func(label, detail string) { h.Green = append(h.Green, model.HealthItem{Label: label, Detail: detail}) }
	amber := func(label, detail string) { h.Amber = append(h.Amber, model.HealthItem{Label: label, Detail: detail}) }
	red := func(label, detail string) { h.Red = append(h.Red, model.HealthItem{Label: label, Detail: detail}) }

	if t.SSL {
		green("HTTPS", "SSL secured")
	} else {
		red("No SSL", "Not using HTTPS")
	}

	if t.MobileResponsive {
		green("Responsive", "Mobile-friendly viewport")
	} else {
		red("Not Responsive", "No viewport meta tag")
	}

	if name := t.CMS.Name; name != cmsCustom && name != cmsUnknown && name != "" {
		if t.CMSVersion != "" {
			major, err := majorVersion(t.CMSVersion)
			switch {
			case err != nil:
				green(name, "CMS detected")
			case name == "WordPress" && major < 6:
				amber(name+" "+t.CMSVersion, "Older version detected")
			default:
				green(name+" "+t.CMSVersion, "CMS detected")
			}
		} else {
			green(name, "CMS detected")
		}
	}

	var parts []string
	if t.Analytics.GoogleAnalytics {
		parts = append(parts, "GA")
	}
	if t.Analytics.MetaPixel {
		parts = append(parts, "Meta Pixel")
	}
	parts = append(parts, t.Analytics.Other...)
	if len(parts) > 0 {
		green("Analytics", strings.Join(head(parts, 3), ", "))
	} else {
		red("No Analytics", "No tracking detected")
	}

	if t.JQuery.Present {
		major, err := majorVersion(t.JQuery.Version)
		switch {
		case t.JQuery.Version == "" || err != nil:
			amber("jQuery", "Version unknown")
		case major < 3:
			amber("jQuery "+t.JQuery.Version, "Older version")
		default:
			green("jQuery "+t.JQuery.Version, "Current version")
		}
	}

	switch {
	case t.OGTags.HasTitle && t.OGTags.HasImage:
		green("OG Tags", "Social sharing optimised")
	case t.OGTags.HasTitle || t.OGTags.HasImage:
		amber("Partial OG", "Incomplete social tags")
	default:
		amber("No OG Tags", "Poor social sharing")
	}

	if t.Favicon {
		green("Favicon", "Browser icon present")
	} else {
		red("No Favicon", "Missing browser icon")
	}

	if t.CookieConsent {
		green("Cookie Consent", "GDPR compliance")
	}

	active := 0
	for _, on := range t.SocialLinks {
		if on {
			active++
		}
	}
	switch {
	case active >= 3:
		green("Social Links", fmt.Sprintf("%d platforms", active))
	case active >= 1:
		amber("Limited Social", fmt.Sprintf("Only %d platform(s)", active))
	}

	if t.PageBloat.TotalExternal > 30 {
		amber("Page Bloat", fmt.Sprintf("%d external resources", t.PageBloat.TotalExternal))
	}
	return h
}

// TechSection renders technographics as a block of the review prompt.
func TechSection(t *model.Technographics) string {
	if t == nil || !t.Detected {
		return ""
	}
	yesNo := func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	}

	cms := t.CMS.Name
	if t.CMSVersion != "" {
		cms += " version " + t.CMSVersion
	}
	other := "None"
	if len(t.Analytics.Other) > 0 {
		other = strings.Join(t.Analytics.Other, ", ")
	}
	jq := "No"
	if t.JQuery.Present {
		jq = "Yes, version unknown"
		if t.JQuery.Version != "" {
			jq = "Yes, version " + t.JQuery.Version
		}
	}
	var socials []string
	for _, name := range []string{"facebook", "instagram", "linkedin", "twitter", "youtube", "tiktok"} {
		if t.SocialLinks[name] {
			socials = append(socials, name)
		}
	}
	social := "None found"
	if len(socials) > 0 {
		social = strings.Join(socials, ", ")
	}

	var b strings.Builder
	b.WriteString("\nTECHNOLOGY STACK DETECTED:\n")
	fmt.Fprintf(&b, "- CMS: %s\n", cms)
	fmt.Fprintf(&b, "- SSL/HTTPS: %s\n", yesNo(t.SSL))
	fmt.Fprintf(&b, "- Mobile Responsive: %s\n", yesNo(t.MobileResponsive))
	fmt.Fprintf(&b, "- Google Analytics: %s\n", yesNo(t.Analytics.GoogleAnalytics))
	fmt.Fprintf(&b, "- Meta/Facebook Pixel: %s\n", yesNo(t.Analytics.MetaPixel))
	fmt.Fprintf(&b, "- Other Analytics: %s\n", other)
	fmt.Fprintf(&b, "- jQuery: %s\n", jq)
	fmt.Fprintf(&b, "- Cookie Consent: %s\n", yesNo(t.CookieConsent))
	fmt.Fprintf(&b, "- Open Graph Tags: Title=%s, Image=%s\n", yesNo(t.OGTags.HasTitle), yesNo(t.OGTags.HasImage))
	fmt.Fprintf(&b, "- Favicon: %s\n", yesNo(t.Favicon))
	fmt.Fprintf(&b, "- Social Links: %s\n", social)
	fmt.Fprintf(&b, "- External Resources: %d scripts, %d stylesheets\n", t.PageBloat.ExternalScripts, t.PageBloat.ExternalStylesheets)
	return b.String()
}
