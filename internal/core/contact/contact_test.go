package contact

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestDecodeObfuscated(t *testing.T) {
	got := DecodeObfuscated("Write to Info [at] Acme [dot] com or sales (at) acme (dot) co.uk")
	assert.Contains(t, got, "info@acme.com")
	assert.Contains(t, got, "sales@acme.co")
}

func TestMailtosAndTel(t *testing.T) {
	d := doc(t, `<a href="mailto:hello@joes.com?subject=Hi">Mail</a><a href="mailto:">x</a><a href="tel:+441234567890">Call</a>`)
	assert.Equal(t, []string{"hello@joes.com"}, Mailtos(d))
	assert.Equal(t, []string{"tel:+441234567890"}, TelLinks(d))
}

func TestSchemaOrg(t *testing.T) {
	d := doc(t, `<script type="application/ld+json">
		{"@type":"LocalBusiness","email":"mailto:office@joes.com","telephone":"0113 496 0000",
		 "address":{"streetAddress":"1 High St","addressLocality":"Leeds","postalCode":"LS1 1AA"},
		 "contactPoint":[{"email":"support@joes.com"}]}
	</script>
	<script type="application/ld+json">{not json</script>`)

	s := SchemaOrg(d)
	assert.Equal(t, []string{"office@joes.com", "support@joes.com"}, s.Emails)
	assert.Equal(t, []string{"0113 496 0000"}, s.Phones)
	assert.Equal(t, []string{"1 High St, Leeds, LS1 1AA"}, s.Addresses)
}

func TestVisibleText(t *testing.T) {
	d := doc(t, `<body><p>Call  us</p><script>var tel = "0113 000 0000";</script><style>p{}</style><noscript>Enable JS</noscript></body>`)
	assert.Equal(t, "Call us", VisibleText(d))
	assert.Contains(t, Text(d), "0113 000 0000")
}
