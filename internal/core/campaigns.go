package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/model"
)

type CampaignList struct {
	Campaigns        []*model.Campaign `json:"campaigns"`
	ActiveCampaignID *string           `json:"active_campaign_id"`
}

type ActiveCampaign struct {
	Campaign *model.Campaign `json:"campaign"`
	Leads    []*model.Lead   `json:"leads"`
}

type AllLeads struct {
	ActiveCampaignID *string       `json:"active_campaign_id"`
	Leads            []*model.Lead `json:"leads"`
}

func (s *LeadBlitz) ListCampaigns(ctx context.Context, userID string) (*CampaignList, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.store.ListCampaigns(ctx, userID)
	if err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []*model.Campaign{}
	}
	return &CampaignList{Campaigns: campaigns, ActiveCampaignID: optional(user.ActiveCampaignID)}, nil
}

func (s *LeadBlitz) GetCampaign(ctx context.Context, userID, campaignID string) (*model.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, lookup(err, ErrCampaignNotFound)
	}
	return c, nil
}

// ActivateCampaign makes campaignID the user's working set.
func (s *LeadBlitz) ActivateCampaign(ctx context.Context, userID, campaignID string) (*ActiveCampaign, error) {
	c, err := s.GetCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetActiveCampaign(ctx, userID, c.ID); err != nil {
		return nil, err
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID, CampaignID: c.ID})
	if err != nil {
		return nil, err
	}
	return &ActiveCampaign{Campaign: c, Leads: leads}, nil
}

// DeleteCampaign removes the campaign with its leads.
func (s *LeadBlitz) DeleteCampaign(ctx context.Context, userID, campaignID string) error {
	if err := s.store.DeleteCampaign(ctx, userID, campaignID); err != nil {
		return lookup(err, ErrCampaignNotFound)
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteCampaign(ctx, userID, campaignID); err != nil {
			s.logger.Warn("failed to mirror campaign deletion", zap.String("campaign_id", campaignID), zap.Error(err))
		}
	}
	return nil
}

// ViewAll clears the active campaign and returns every lead.
func (s *LeadBlitz) ViewAll(ctx context.Context, userID string) (*AllLeads, error) {
	if err := s.store.SetActiveCampaign(ctx, userID, ""); err != nil {
		return nil, err
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return &AllLeads{Leads: leads}, nil
}
