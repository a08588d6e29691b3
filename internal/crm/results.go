package crm

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Recipient is a lead that was sent to.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	City  string `json:"city,omitempty"`
	Score *int   `json:"score,omitempty"`
}

// Failed is a lead whose send failed.
type Failed struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	City  string `json:"city,omitempty"`
	Error string `json:"error"`
}

// Summary totals a send run. Cities counts the leads per city or group.
type Summary struct {
	TotalLeads int            `json:"total_leads"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Cities     map[string]int `json:"cities,omitempty"`
}

// SendResults is the file written by a send run and read back when
// recording it.
type SendResults struct {
	Campaign      string      `json:"campaign"`
	Timestamp     time.Time   `json:"timestamp"`
	Summary       Summary     `json:"summary"`
	SentDetails   []Recipient `json:"sent_details"`
	FailedDetails []Failed    `json:"failed_details"`
}

func LoadResults(path string) (*SendResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var res SendResults
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return &res, nil
}

func (r *SendResults) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
