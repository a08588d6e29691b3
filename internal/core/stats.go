package core

import (
	"context"
	"math"

	"github.com/agenthands/leadblitz/internal/core/model"
)

type Stats struct {
	TotalLeads int            `json:"total_leads"`
	ByStage    map[string]int `json:"by_stage"`
	AvgScore   float64        `json:"avg_score"`
	EmailsSent int            `json:"emails_sent"`
	SMSSent    int            `json:"sms_sent"`
}

type Analytics struct {
	Stats
	TotalCampaigns       int `json:"total_campaigns"`
	LastSevenDaysSent    int `json:"last_7_days_sent"`
	HighOpportunityLeads int `json:"high_opportunity_leads"`
	DealsInProgress      int `json:"deals_in_progress"`
}

// summarize counts stages and averages the successfully scored leads to
// one decimal. It also returns how many scored leads sit under 30.
func summarize(leads []*model.Lead) (Stats, int) {
	st := Stats{TotalLeads: len(leads), ByStage: map[string]int{}}
	total, scored, weak := 0, 0, 0
	for _, l := range leads {
		st.ByStage[string(l.Stage)]++
		if !l.IsScored() {
			continue
		}
		total += l.Score
		scored++
		if l.Score < 30 {
			weak++
		}
	}
	if scored > 0 {
		st.AvgScore = math.Round(float64(total)/float64(scored)*10) / 10
	}
	return st, weak
}

func (s *LeadBlitz) Stats(ctx context.Context, userID string) (*Stats, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	st, _ := summarize(leads)
	st.EmailsSent = user.EmailsSent
	st.SMSSent = user.SMSSent
	return &st, nil
}

// Analytics extends Stats with campaign and pipeline counts. Weakly scored
// leads are the high-opportunity ones; deals in progress are leads at the
// Meeting or Replied stage.
func (s *LeadBlitz) Analytics(ctx context.Context, userID string) (*Analytics, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	campaigns, err := s.store.ListCampaigns(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, weak := summarize(leads)
	st.EmailsSent = user.EmailsSent
	st.SMSSent = user.SMSSent
	return &Analytics{
		Stats:                st,
		TotalCampaigns:       len(campaigns),
		LastSevenDaysSent:    user.EmailsSent,
		HighOpportunityLeads: weak,
		DealsInProgress:      st.ByStage[string(model.StageMeeting)] + st.ByStage[string(model.StageReplied)],
	}, nil
}
