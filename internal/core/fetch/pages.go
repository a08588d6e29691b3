package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CrawlKeywords select the internal links worth fetching after the homepage.
var CrawlKeywords = []string{"contact", "quote", "book", "enquir", "pricing", "get-in-touch",
	"reach-us", "schedule", "about", "services"}

type Page struct {
	Name   string
	Result *Result
}

// Site is a homepage plus the subpages fetched alongside it.
type Site struct {
	Pages         []Page
	CombinedHTML  string
	FinalURL      string
	Status        int
	Errors        []string
	PriorityLinks []string
}

func (s *Site) Homepage() *Result {
	if len(s.Pages) == 0 {
		return nil
	}
	return s.Pages[0].Result
}

// FetchPages fetches the homepage and up to maxPages-1 subpages, contact
// pages first, and joins their HTML with page markers. Subpages returning
// 404 are skipped.
func (f *Fetcher) FetchPages(ctx context.Context, baseURL string, maxPages int) *Site {
	home := f.Fetch(ctx, baseURL)
	site := &Site{
		Pages:    []Page{{Name: "homepage", Result: home}},
		FinalURL: home.FinalURL,
		Status:   home.Status,
	}

	var combined strings.Builder
	var links []string
	if home.HTML != "" {
		fmt.Fprintf(&combined, "\n\n<!-- Page: homepage -->\n%s", home.HTML)
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(home.HTML)); err == nil {
			links = PriorityLinks(doc, home.FinalURL, CrawlKeywords, 8)
		}
	}
	for _, e := range home.Errors {
		site.Errors = append(site.Errors, "homepage: "+e)
	}

	ordered := append([]string(nil), links...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return linkPriority(ordered[i]) < linkPriority(ordered[j])
	})

	type target struct{ name, url string }
	var targets []target
	for i, link := range ordered {
		if i == 3 {
			break
		}
		targets = append(targets, target{pageName(link), link})
	}

	fetched := map[string]bool{
		strings.TrimRight(baseURL, "/"):       true,
		strings.TrimRight(home.FinalURL, "/"): true,
	}
	for _, fb := range []target{{"contact", "/contact"}, {"contact-us", "/contact-us"}, {"get-in-touch", "/get-in-touch"}, {"about", "/about"}} {
		if len(targets) >= maxPages-1 {
			break
		}
		u := resolve(baseURL, fb.url)
		if !fetched[strings.TrimRight(u, "/")] {
			targets = append(targets, target{fb.name, u})
		}
	}

	if len(targets) > maxPages-1 {
		targets = targets[:max(maxPages-1, 0)]
	}
	for _, t := range targets {
		key := strings.TrimRight(t.url, "/")
		if fetched[key] || ctx.Err() != nil {
			continue
		}
		res := f.Fetch(ctx, t.url)
		if res.Status == http.StatusNotFound {
			continue
		}
		fetched[key] = true
		site.Pages = append(site.Pages, Page{Name: t.name, Result: res})
		if res.HTML != "" {
			fmt.Fprintf(&combined, "\n\n<!-- Page: %s -->\n%s", t.name, res.HTML)
		}
		for _, e := range res.Errors {
			site.Errors = append(site.Errors, t.name+": "+e)
		}
	}

	site.CombinedHTML = combined.String()
	if site.CombinedHTML == "" {
		site.CombinedHTML = home.HTML
	}
	if len(links) > 5 {
		links = links[:5]
	}
	site.PriorityLinks = links
	return site
}

func linkPriority(link string) int {
	l := strings.ToLower(link)
	switch {
	case strings.Contains(l, "contact") || strings.Contains(l, "get-in-touch") || strings.Contains(l, "reach-us"):
		return 0
	case strings.Contains(l, "quote") || strings.Contains(l, "enquir") || strings.Contains(l, "book"):
		return 1
	case strings.Contains(l, "pricing") || strings.Contains(l, "schedule"):
		return 2
	case strings.Contains(l, "about") || strings.Contains(l, "services"):
		return 3
	}
	return 4
}

func pageName(link string) string {
	l := strings.ToLower(link)
	switch {
	case strings.Contains(l, "contact") || strings.Contains(l, "get-in-touch"):
		return "contact"
	case strings.Contains(l, "quote") || strings.Contains(l, "pricing"):
		return "quote"
	case strings.Contains(l, "about"):
		return "about"
	case strings.Contains(l, "book") || strings.Contains(l, "schedule"):
		return "booking"
	}
	return "priority_link"
}

// PriorityLinks returns same-site links whose href or text contains one of
// the keywords, in document order and without duplicates.
func PriorityLinks(doc *goquery.Document, baseURL string, keywords []string, limit int) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	baseHost := strings.Replace(base.Host, "www.", "", 1)

	var links []string
	seen := map[string]bool{}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		full := base.ResolveReference(ref)
		if strings.Replace(full.Host, "www.", "", 1) != baseHost {
			return true
		}

		hrefLower := strings.ToLower(href)
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		for _, kw := range keywords {
			if strings.Contains(hrefLower, kw) || strings.Contains(text, kw) {
				if u := full.String(); !seen[u] {
					seen[u] = true
					links = append(links, u)
				}
				break
			}
		}
		return limit <= 0 || len(links) < limit
	})
	return links
}

func resolve(baseURL, path string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + path
	}
	return base.ResolveReference(&url.URL{Path: path}).String()
}
