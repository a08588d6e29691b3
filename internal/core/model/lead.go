package model

import (
	"fmt"
	"strings"
	"time"
)

type Stage string

const (
	StageNew        Stage = "New"
	StageContacted  Stage = "Contacted"
	StageReplied    Stage = "Replied"
	StageMeeting    Stage = "Meeting"
	StageClosedWon  Stage = "Closed Won"
	StageClosedLost Stage = "Closed Lost"
)

var Stages = []Stage{StageNew, StageContacted, StageReplied, StageMeeting, StageClosedWon, StageClosedLost}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid stage: %q", s)
}

const (
	SourceSearch = "search"
	SourceImport = "import"
)

// Import statuses for leads created from a CSV upload.
const (
	ImportQueued         = "queued"
	ImportScoring        = "scoring"
	ImportScored         = "scored"
	ImportUnreachable    = "unreachable"
	ImportPendingCredits = "pending_credits"
)

const (
	EmailSourceWebsite = "website"
	EmailSourceHunter  = "hunter"
	EmailSourceManual  = "manual"
	EmailSourceImport  = "import"
)

type Lead struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CampaignID      string          `json:"campaign_id,omitempty"`
	Name            string          `json:"name"`
	ContactName     string          `json:"contact_name,omitempty"`
	Address         string          `json:"address"`
	Phone           string          `json:"phone"`
	Website         string          `json:"website"`
	Email           string          `json:"email"`
	Score           int             `json:"score"`
	ScoreReasoning  *ScoreReasoning `json:"score_reasoning"`
	Stage           Stage           `json:"stage"`
	Notes           string          `json:"notes"`
	Rating          float64         `json:"rating"`
	ReviewCount     int             `json:"review_count"`
	EmailSource     string          `json:"email_source,omitempty"`
	EmailConfidence float64         `json:"email_confidence,omitempty"`
	EmailCandidates []string        `json:"email_candidates,omitempty"`
	HeuristicScore  int             `json:"heuristic_score"`
	AIScore         int             `json:"ai_score"`
	ScoreConfidence float64         `json:"score_confidence"`
	LastScoredAt    *time.Time      `json:"last_scored_at"`
	Technographics  *Technographics `json:"technographics,omitempty"`
	Source          string          `json:"source"`
	ImportID        string          `json:"import_id,omitempty"`
	ImportStatus    string          `json:"import_status,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsScored reports whether the lead carries a successful score.
func (l *Lead) IsScored() bool {
	return l.Score > 0 && (l.LastScoredAt != nil || l.ScoreReasoning != nil)
}

func (l *Lead) HasEmail() bool {
	return l.Email != "" && strings.Contains(l.Email, "@")
}

// LeadUpdate carries a partial update; nil fields are left unchanged.
type LeadUpdate struct {
	Name        *string  `json:"name"`
	ContactName *string  `json:"contact_name"`
	Address     *string  `json:"address"`
	Phone       *string  `json:"phone"`
	Website     *string  `json:"website"`
	Email       *string  `json:"email"`
	EmailSource *string  `json:"email_source"`
	Stage       *string  `json:"stage"`
	Notes       *string  `json:"notes"`
	Score       *int     `json:"score"`
	Rating      *float64 `json:"rating"`
}

type LeadView string

const (
	ViewActive LeadView = "active"
	ViewAll    LeadView = "all"
	ViewStrong LeadView = "strong"
)

type LeadFilter struct {
	UserID     string
	CampaignID string
	ImportID   string
	IDs        []string
}
