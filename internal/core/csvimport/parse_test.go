package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `"Joe's Plumbing, Inc",https://joe.test`, []string{"Joe's Plumbing, Inc", "https://joe.test"}},
		{"empty fields", ",,", []string{"", "", ""}},
		{"unclosed quote", `a,"b,c`, []string{"a", "b,c"}},
		{"empty line", "", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line))
		})
	}
}

func TestParse(t *testing.T) {
	content := "\xef\xbb\xbfBusiness_Name , Website_URL,Email\n" +
		"Acme,acme.test,info@acme.test\n" +
		"\n" +
		`"Bob's Bikes, Ltd",https://bobs.test` + "\n"

	rows, err := Parse([]byte(content), "Leads.CSV")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"business_name": "Acme", "website_url": "acme.test", "email": "info@acme.test"}, rows[0])
	assert.Equal(t, "Bob's Bikes, Ltd", rows[1]["business_name"])
	assert.Equal(t, "", rows[1]["email"])
}

func TestParse_Latin1Fallback(t *testing.T) {
	content := []byte("business_name,website_url\nCaf\xe9 Bleu,cafe.test\n")
	rows, err := Parse(content, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, "Café Bleu", rows[0]["business_name"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		code     string
	}{
		{"not csv", "website_url\na.test", "leads.xlsx", CodeInvalidFormat},
		{"empty", "  \n ", "a.csv", CodeEmptyFile},
		{"header only", "website_url\n", "a.csv", CodeEmptyFile},
		{"no url column", "name,phone\nA,1", "a.csv", CodeNoURLColumn},
		{"too many rows", "website_url\n" + strings.Repeat("a.test\n", MaxRows+1), "a.csv", CodeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), tt.filename)
			e, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %v", err)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestParse_TooLarge(t *testing.T) {
	_, err := Parse(make([]byte, MaxFileSize+1), "a.csv")
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTooLarge, e.Code)
}

func TestParse_MaxRowsAccepted(t *testing.T) {
	rows, err := Parse([]byte("website_url\n"+strings.Repeat("a.test\n", MaxRows)), "a.csv")
	require.NoError(t, err)
	assert.Len(t, rows, MaxRows)
}

func TestPreview(t *testing.T) {
	text := `"Business_Name",website_url
Acme,acme.test
"Bob's, Ltd",bobs.test
Carl,carl.test`

	headers, rows, err := Preview(text, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"business_name", "website_url"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob's, Ltd", rows[1]["business_name"])

	_, _, err = Preview("name\nA", 5)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoURLColumn, e.Code)
}

func TestTemplate(t *testing.T) {
	tpl := Template()
	assert.True(t, strings.HasPrefix(tpl, "business_name,website_url,email,phone,notes\n"))

	rows, err := Parse([]byte(tpl), "template.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://joesplumbing.com", rows[0]["website_url"])
}
