package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agenthands/leadblitz/internal/core/contact"
)

var ctaLinkClass = regexp.MustCompile(`(?i)btn|button|cta`)

// SiteContent is the subset of a page sent to the reviewer.
type SiteContent struct {
	Title       string   `json:"title"`
	H1          []string `json:"h1_tags"`
	H2          []string `json:"h2_tags"`
	CTAButtons  []string `json:"cta_buttons"`
	NavLinks    []string `json:"nav_links"`
	ImageAlts   []string `json:"image_alts"`
	TextExcerpt string   `json:"text_excerpt"`
	LinkTexts   []string `json:"link_texts"`
}

func ExtractContent(html string, maxChars int) *SiteContent {
	c := &SiteContent{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return c
	}
	doc.Find("script, style, noscript").Remove()

	c.Title = strings.TrimSpace(doc.Find("title").First().Text())
	c.H1 = texts(doc.Find("h1").Slice(0, min(3, doc.Find("h1").Length())), 0)
	c.H2 = texts(doc.Find("h2").Slice(0, min(5, doc.Find("h2").Length())), 0)

	buttons := doc.Find("button")
	links := doc.Find("a[class]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return ctaLinkClass.MatchString(a.AttrOr("class", ""))
	})
	for _, sel := range []*goquery.Selection{buttons.Slice(0, min(10, buttons.Length())), links.Slice(0, min(10, links.Length()))} {
		sel.Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" && len([]rune(t)) < 50 {
				c.CTAButtons = append(c.CTAButtons, t)
			}
		})
	}
	c.CTAButtons = head(c.CTAButtons, 10)

	nav := doc.Find("nav").First()
	if nav.Length() == 0 {
		nav = doc.Find("header").First()
	}
	c.NavLinks = texts(nav.Find("a"), 15)

	doc.Find("img").EachWithBreak(func(i int, img *goquery.Selection) bool {
		if alt := img.AttrOr("alt", ""); alt != "" {
			c.ImageAlts = append(c.ImageAlts, alt)
		}
		return i < 9
	})

	c.TextExcerpt = truncate(contact.Text(doc), maxChars)
	anchors := doc.Find("a")
	c.LinkTexts = texts(anchors.Slice(0, min(30, anchors.Length())), 0)
	return c
}

// texts returns the non-empty trimmed text of each element, at most limit
// when limit is positive.
func texts(sel *goquery.Selection, limit int) []string {
	var out []string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
		return limit <= 0 || len(out) < limit
	})
	return out
}

// Prompt formats the content for the review prompt.
func (c *SiteContent) Prompt() string {
	list := func(items []string, n int) string {
		if len(items) == 0 {
			return "None found"
		}
		return strings.Join(head(items, n), ", ")
	}
	title := c.Title
	if title == "" {
		title = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "H1 Headlines: %s\n", list(c.H1, 3))
	fmt.Fprintf(&b, "H2 Headings: %s\n", list(c.H2, 5))
	fmt.Fprintf(&b, "CTA Buttons: %s\n", list(c.CTAButtons, 10))
	fmt.Fprintf(&b, "Navigation Links: %s\n", list(c.NavLinks, 15))
	fmt.Fprintf(&b, "Image Alt Texts: %s\n", list(c.ImageAlts, 5))
	fmt.Fprintf(&b, "Link Texts (sample): %s\n", list(c.LinkTexts, 20))
	fmt.Fprintf(&b, "\nText Excerpt (first 2000 chars):\n%s\n", truncate(c.TextExcerpt, 2000))
	return b.String()
}
