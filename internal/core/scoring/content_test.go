package scoring

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractContent(t *testing.T) {
	c := ExtractContent(plumberHTML, 6000)

	assert.Equal(t, "Acme Plumbing | Emergency plumbers", c.Title)
	assert.Equal(t, []string{"Fast, friendly plumbers in Leeds"}, c.H1)
	assert.Empty(t, c.H2)
	assert.Equal(t, []string{"Send message"}, c.CTAButtons)
	assert.Equal(t, []string{"Home", "About us", "Services", "Contact", "Privacy", "Blog"}, c.NavLinks)
	assert.Equal(t, []string{"Our van"}, c.ImageAlts)
	assert.Len(t, c.LinkTexts, 8)
	assert.Contains(t, c.TextExcerpt, "We fix leaking taps")
	assert.NotContains(t, c.TextExcerpt, "var x")
}

func TestExtractContent_Limits(t *testing.T) {
	c := ExtractContent(plumberHTML, 20)
	assert.LessOrEqual(t, utf8.RuneCountInString(c.TextExcerpt), 20)
}

func TestExtractContent_HeaderFallback(t *testing.T) {
	c := ExtractContent(`<header><a href="/">Home</a><a href="/x"></a></header><a class="cta-link">Book now</a>`, 100)
	assert.Equal(t, []string{"Home"}, c.NavLinks)
	assert.Equal(t, []string{"Book now"}, c.CTAButtons)
}

func TestSiteContent_Prompt(t *testing.T) {
	p := ExtractContent(plumberHTML, 6000).Prompt()
	assert.Contains(t, p, "Title: Acme Plumbing | Emergency plumbers\n")
	assert.Contains(t, p, "H2 Headings: None found\n")
	assert.Contains(t, p, "Image Alt Texts: Our van\n")
	assert.Contains(t, p, "Text Excerpt (first 2000 chars):\n")

	empty := (&SiteContent{}).Prompt()
	assert.Contains(t, empty, "Title: N/A\n")
	assert.Contains(t, empty, "CTA Buttons: None found\n")
}
