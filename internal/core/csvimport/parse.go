// Package csvimport turns uploaded lead spreadsheets into queued leads and
// scores them in the background.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	MaxFileSize = 10 * 1024 * 1024
	MaxRows     = 1000
	URLColumn   = "website_url"
)

// TemplateHeaders is the column order of the downloadable template.
var TemplateHeaders = []string{"business_name", URLColumn, "email", "phone", "notes"}

const (
	CodeTooLarge      = "too_large"
	CodeInvalidFormat = "invalid_format"
	CodeEmptyFile     = "empty_file"
	CodeNoURLColumn   = "no_url_column"
)

// Error is a rejected upload. Message is safe to show to the user.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	errTooLarge      = &Error{Code: CodeTooLarge, Message: "Maximum 1000 leads per import. Please split your file into smaller batches."}
	errInvalidFormat = &Error{Code: CodeInvalidFormat, Message: "This file doesn't appear to be a valid CSV. Please upload a .csv file."}
	errEmpty         = &Error{Code: CodeEmptyFile, Message: "No data found in CSV"}
	errNoURL         = &Error{Code: CodeNoURLColumn, Message: "We couldn't find a website/URL column. Please make sure your CSV includes website URLs."}
)

// AsError unwraps an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Row is one data row keyed by lower-cased, trimmed header. Values are
// trimmed.
type Row map[string]string

// Parse validates and decodes an upload. Content is read as UTF-8 with an
// optional BOM and falls back to Latin-1 when it is not valid UTF-8.
func Parse(content []byte, filename string) ([]Row, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, errInvalidFormat
	}
	if len(content) > MaxFileSize {
		return nil, errTooLarge
	}

	text := decode(content)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmpty
	}

	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, errEmpty
	}
	if err != nil {
		return nil, errInvalidFormat
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if !contains(header, URLColumn) {
		return nil, errNoURL
	}

	var rows []Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errInvalidFormat
		}
		if blank(record) {
			continue
		}
		if len(rows) == MaxRows {
			return nil, errTooLarge
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errEmpty
	}
	return rows, nil
}

func decode(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if utf8.Valid(content) {
		return string(content)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(out)
}

// ParseLine splits one line on commas outside double quotes. A quote only
// toggles quoting and is dropped. An unclosed quote keeps the rest of the
// line in the last field.
func ParseLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}

// Preview parses the first n data rows the way the upload dialog does,
// splitting on newlines and using ParseLine. It returns the headers and rows
// so a user can check the mapping before uploading.
func Preview(text string, n int) ([]string, []Row, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, nil, errEmpty
	}
	headers := strings.Split(lines[0], ",")
	for i, h := range headers {
		headers[i] = strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
	}
	if !contains(headers, URLColumn) {
		return nil, nil, &Error{Code: CodeNoURLColumn,
			Message: "This doesn't match the LeadBlitz template. Please download the template and use the correct format."}
	}

	var rows []Row
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := ParseLine(line)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(cols) {
				row[h] = strings.TrimSpace(cols[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, errEmpty
	}
	if len(rows) > MaxRows {
		return nil, nil, errTooLarge
	}
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return headers, rows, nil
}

// Template returns the CSV template with one example row.
func Template() string {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write(TemplateHeaders)
	_ = w.Write([]string{"Joe's Plumbing", "https://joesplumbing.com", "joe@joesplumbing.com", "555-1234", "Referred by Mike"})
	w.Flush()
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
