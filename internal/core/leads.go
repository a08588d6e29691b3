package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/dedupe"
	"github.com/agenthands/leadblitz/internal/core/model"
)

type LeadList struct {
	Count            int             `json:"count"`
	Leads            []*model.Lead   `json:"leads"`
	ActiveCampaignID *string         `json:"active_campaign_id"`
	View             *model.LeadView `json:"view"`
}

type ScoreBreakdown struct {
	LeadID    string                `json:"lead_id"`
	LeadName  string                `json:"lead_name"`
	Score     int                   `json:"score"`
	Reasoning *model.ScoreReasoning `json:"reasoning"`
}

type DuplicateReport struct {
	Count  int            `json:"count"`
	Groups []dedupe.Group `json:"groups"`
	// Source is "graph" when domain and phone groups came from the mirror.
	Source string `json:"source"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// activeLeads returns the leads of the active campaign, or every lead when
// no campaign is active.
func (s *LeadBlitz) activeLeads(ctx context.Context, userID string) ([]*model.Lead, string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID, CampaignID: user.ActiveCampaignID})
	if err != nil {
		return nil, "", err
	}
	return leads, user.ActiveCampaignID, nil
}

// ListLeads returns leads for a view. campaignID wins over view; "strong"
// keeps scored leads under 30, the best prospects for a pitch.
func (s *LeadBlitz) ListLeads(ctx context.Context, userID, view, campaignID string) (*LeadList, error) {
	out := &LeadList{}
	if view != "" {
		v := model.LeadView(view)
		out.View = &v
	}
	var (
		leads []*model.Lead
		err   error
	)
	switch {
	case campaignID != "":
		leads, err = s.store.ListLeads(ctx, model.LeadFilter{UserID: userID, CampaignID: campaignID})
		out.ActiveCampaignID = &campaignID
	case view == string(model.ViewAll):
		leads, err = s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	case view == string(model.ViewStrong):
		var all []*model.Lead
		all, err = s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
		for _, l := range all {
			if l.Score > 0 && l.Score < 30 {
				leads = append(leads, l)
			}
		}
	default:
		var active string
		leads, active, err = s.activeLeads(ctx, userID)
		out.ActiveCampaignID = optional(active)
	}
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []*model.Lead{}
	}
	out.Leads = leads
	out.Count = len(leads)
	return out, nil
}

// UpdateLead applies a partial update. Setting an email without a source
// marks it as manually entered.
func (s *LeadBlitz) UpdateLead(ctx context.Context, userID, leadID string, u model.LeadUpdate) (*model.Lead, error) {
	l, err := s.store.GetLead(ctx, userID, leadID)
	if err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	if u.Stage != nil {
		stage, err := model.ParseStage(*u.Stage)
		if err != nil {
			return nil, invalidf("Invalid stage: %s", *u.Stage)
		}
		l.Stage = stage
	}
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.ContactName != nil {
		l.ContactName = *u.ContactName
	}
	if u.Address != nil {
		l.Address = *u.Address
	}
	if u.Phone != nil {
		l.Phone = *u.Phone
	}
	if u.Website != nil {
		l.Website = *u.Website
	}
	if u.Email != nil {
		l.Email = strings.TrimSpace(*u.Email)
		if u.EmailSource == nil {
			l.EmailSource = model.EmailSourceManual
		}
	}
	if u.EmailSource != nil {
		l.EmailSource = *u.EmailSource
	}
	if u.Notes != nil {
		l.Notes = *u.Notes
	}
	if u.Score != nil {
		l.Score = *u.Score
	}
	if u.Rating != nil {
		l.Rating = *u.Rating
	}
	if err := s.store.UpdateLead(ctx, l); err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	s.mirrorLeads(ctx, []*model.Lead{l})
	return l, nil
}

func (s *LeadBlitz) DeleteLead(ctx context.Context, userID, leadID string) error {
	if err := s.store.DeleteLead(ctx, userID, leadID); err != nil {
		return lookup(err, ErrLeadNotFound)
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteLead(ctx, userID, leadID); err != nil {
			s.logger.Warn("failed to mirror lead deletion", zap.String("lead_id", leadID), zap.Error(err))
		}
	}
	return nil
}

func (s *LeadBlitz) ScoreBreakdown(ctx context.Context, userID, leadID string) (*ScoreBreakdown, error) {
	l, err := s.store.GetLead(ctx, userID, leadID)
	if err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	if l.ScoreReasoning == nil {
		return nil, notFound("No score breakdown available for this lead")
	}
	return &ScoreBreakdown{LeadID: l.ID, LeadName: l.Name, Score: l.Score, Reasoning: l.ScoreReasoning}, nil
}

// Duplicates groups the user's leads that share a website domain or phone
// number, plus near-identical names in the same city. Domain and phone
// groups come from the graph mirror when one is wired and reachable.
func (s *LeadBlitz) Duplicates(ctx context.Context, userID string) (*DuplicateReport, error) {
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	report := &DuplicateReport{Source: "store"}
	if s.mirror != nil {
		groups, err := s.mirror.Duplicates(ctx, userID)
		if err == nil {
			report.Groups = append(groups, dedupe.SimilarNames(leads)...)
			report.Source = "graph"
		} else {
			s.logger.Warn("graph duplicates unavailable", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if report.Source == "store" {
		report.Groups = dedupe.Find(leads)
	}
	if report.Groups == nil {
		report.Groups = []dedupe.Group{}
	}
	report.Count = len(report.Groups)
	return report, nil
}
