package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/agenthands/leadblitz/internal/core/model"
)

// fileLead is one lead in a JSON lead file.
type fileLead struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"name"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Website         string  `json:"website,omitempty"`
	Address         string  `json:"address,omitempty"`
	City            string  `json:"city,omitempty"`
	Score           *int    `json:"score,omitempty"`
	ScoreReasoning  string  `json:"score_reasoning,omitempty"`
	ScoreStatus     string  `json:"score_status,omitempty"`
	ScoreFailReason *string `json:"score_fail_reason"`
}

// leadFile is either a flat JSON array of leads or an object of named
// groups (usually cities). Saving keeps the shape that was loaded.
type leadFile struct {
	groups map[string][]*fileLead
	flat   []*fileLead
}

func parseLeadFile(data []byte) (*leadFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var flat []*fileLead
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, err
		}
		return &leadFile{flat: flat}, nil
	}
	var groups map[string][]*fileLead
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	return &leadFile{groups: groups}, nil
}

func loadLeadFile(path string) (*leadFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads: %w", err)
	}
	lf, err := parseLeadFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse leads %s: %w", path, err)
	}
	return lf, nil
}

func (lf *leadFile) save(path string) error {
	var v interface{} = lf.flat
	if lf.groups != nil {
		v = lf.groups
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// entry is a lead with the group it was listed under.
type entry struct {
	group string
	lead  *fileLead
}

// city is the lead's own city, or its group name.
func (e entry) city() string {
	if e.lead.City != "" {
		return e.lead.City
	}
	return e.group
}

// all returns every lead, groups in name order.
func (lf *leadFile) all() []entry {
	var out []entry
	if lf.groups == nil {
		for _, l := range lf.flat {
			out = append(out, entry{lead: l})
		}
		return out
	}
	names := make([]string, 0, len(lf.groups))
	for name := range lf.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, l := range lf.groups[name] {
			out = append(out, entry{group: name, lead: l})
		}
	}
	return out
}

// toLead converts e for template rendering.
func (e entry) toLead() *model.Lead {
	f := e.lead
	l := &model.Lead{ID: f.ID, Name: f.Name, Email: f.Email, Phone: f.Phone, Website: f.Website, Address: f.Address}
	if l.Address == "" && e.city() != "" {
		// outreach.City takes the second-to-last part of an address.
		l.Address = e.city() + ","
	}
	if f.Score != nil {
		l.Score = *f.Score
	}
	return l
}
