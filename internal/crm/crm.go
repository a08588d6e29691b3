// Package crm keeps the flat JSON outreach log used by the operator CLI.
package crm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	StatusNew        = "new"
	StatusSent       = "sent"
	StatusSendFailed = "send_failed"
	StatusReplied    = "replied"

	dateLayout = "2006-01-02"
)

// Contact is one outreach target. Sent is a YYYY-MM-DD date or nil. Keys
// the struct does not name are kept in Extra and written back after the
// known ones.
type Contact struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	City            string  `json:"city,omitempty"`
	Website         string  `json:"website,omitempty"`
	Sent            *string `json:"sent"`
	Status          string  `json:"status"`
	Reply           *string `json:"reply"`
	Notes           string  `json:"notes"`
	Score           *int    `json:"score,omitempty"`
	LeadID          string  `json:"lead_id,omitempty"`
	Campaign        string  `json:"campaign,omitempty"`
	TemplateVersion string  `json:"template_version,omitempty"`
	Round           int     `json:"round,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// contactFields has Contact's fields without its JSON methods.
type contactFields Contact

var contactKeys = map[string]bool{
	"name": true, "email": true, "city": true, "website": true, "sent": true, "status": true,
	"reply": true, "notes": true, "score": true, "lead_id": true, "campaign": true,
	"template_version": true, "round": true,
}

func (c *Contact) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*contactFields)(c)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	c.Extra = nil
	for k, v := range all {
		if contactKeys[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = map[string]json.RawMessage{}
		}
		c.Extra[k] = v
	}
	return nil
}

func (c Contact) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(contactFields(c))
	if err != nil || len(c.Extra) == 0 {
		return data, err
	}
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		if !contactKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.WriteByte(',')
		b.Write(name)
		b.WriteByte(':')
		b.Write(c.Extra[k])
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Document is the whole CRM file. Meta and Stats keep keys this package
// does not know about.
type Document struct {
	Contacts []*Contact             `json:"contacts"`
	Meta     map[string]interface{} `json:"meta"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
}

// Load reads path. A missing file is an empty document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Document{Contacts: []*Contact{}, Meta: map[string]interface{}{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CRM file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse CRM file %s: %w", path, err)
	}
	if doc.Contacts == nil {
		doc.Contacts = []*Contact{}
	}
	if doc.Meta == nil {
		doc.Meta = map[string]interface{}{}
	}
	return &doc, nil
}

// Save stamps meta.last_updated and writes the document with two-space
// indentation through a temp file and rename. An existing file keeps its
// permissions; a new one is 0644.
func (d *Document) Save(path string, now time.Time) error {
	if d.Meta == nil {
		d.Meta = map[string]interface{}{}
	}
	d.Meta["last_updated"] = now.UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode CRM: %w", err)
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".crm-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set CRM permissions: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CRM: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write CRM: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace CRM file: %w", err)
	}
	return nil
}

func (d *Document) find(email string) int {
	email = strings.ToLower(strings.TrimSpace(email))
	for i, c := range d.Contacts {
		if strings.ToLower(strings.TrimSpace(c.Email)) == email {
			return i
		}
	}
	return -1
}

// Get returns the contact with email, or nil.
func (d *Document) Get(email string) *Contact {
	if i := d.find(email); i >= 0 {
		return d.Contacts[i]
	}
	return nil
}

// RecordSent upserts a delivered contact by email. An existing contact has
// the sent fields replaced and a note of the update appended; everything
// else it carries is kept. The returned bool is true when the contact was
// new.
func (d *Document) RecordSent(r Recipient, campaign, templateVersion string, now time.Time) bool {
	today := now.Format(dateLayout)
	c := &Contact{
		Name:            r.Name,
		Email:           r.Email,
		City:            r.City,
		Sent:            &today,
		Status:          StatusSent,
		Notes:           fmt.Sprintf("%s campaign - Score: %s", campaign, scoreText(r.Score)),
		Score:           r.Score,
		LeadID:          r.ID,
		Campaign:        campaign,
		TemplateVersion: templateVersion,
	}
	i := d.find(r.Email)
	if i < 0 {
		d.Contacts = append(d.Contacts, c)
		return true
	}
	prev := d.Contacts[i]
	c.Reply = prev.Reply
	c.Website = prev.Website
	c.Round = prev.Round
	c.Extra = prev.Extra
	if c.City == "" {
		c.City = prev.City
	}
	if c.Score == nil {
		c.Score = prev.Score
	}
	if c.LeadID == "" {
		c.LeadID = prev.LeadID
	}
	c.Notes += fmt.Sprintf(" | Updated %s: %s", campaign, today)
	d.Contacts[i] = c
	return false
}

// RecordFailed adds a failed contact unless the email is already present.
func (d *Document) RecordFailed(f Failed, campaign, templateVersion string) bool {
	if d.find(f.Email) >= 0 {
		return false
	}
	d.Contacts = append(d.Contacts, &Contact{
		Name:            f.Name,
		Email:           f.Email,
		City:            f.City,
		Status:          StatusSendFailed,
		Notes:           fmt.Sprintf("%s send failed: %s", campaign, f.Error),
		LeadID:          f.ID,
		Campaign:        campaign,
		TemplateVersion: templateVersion,
	})
	return true
}

// Sort orders contacts by sent date, newest first, with unsent last.
func (d *Document) Sort() {
	sort.SliceStable(d.Contacts, func(i, j int) bool {
		a, b := d.Contacts[i].Sent, d.Contacts[j].Sent
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a > *b
	})
}

// StatusCounts tallies contacts per status.
func (d *Document) StatusCounts() map[string]int {
	out := map[string]int{}
	for _, c := range d.Contacts {
		out[c.Status]++
	}
	return out
}

// Filter returns the contacts with status, or all when status is empty.
func (d *Document) Filter(status string) []*Contact {
	if status == "" {
		return d.Contacts
	}
	var out []*Contact
	for _, c := range d.Contacts {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// Report summarizes a Record call.
type Report struct {
	New     int            `json:"new"`
	Updated int            `json:"updated"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
	Status  map[string]int `json:"status"`
}

// Record applies a whole send run: sent recipients are upserted, failures
// are added when unknown, then contacts are sorted.
func (d *Document) Record(res *SendResults, campaign, templateVersion string, now time.Time) Report {
	var rep Report
	for _, r := range res.SentDetails {
		if d.RecordSent(r, campaign, templateVersion, now) {
			rep.New++
		} else {
			rep.Updated++
		}
	}
	for _, f := range res.FailedDetails {
		d.RecordFailed(f, campaign, templateVersion)
		rep.Failed++
	}
	d.Sort()
	rep.Total = len(d.Contacts)
	rep.Status = d.StatusCounts()
	return rep
}

func scoreText(score *int) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d/100", *score)
}
