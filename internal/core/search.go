package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/places"
	"github.com/agenthands/leadblitz/internal/store"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
	searchTimeout      = 45 * time.Second
)

type SearchRequest struct {
	BusinessType string `json:"business_type"`
	Location     string `json:"location"`
	Limit        int    `json:"limit"`
	AutoScore    bool   `json:"auto_score"`
}

type SearchResult struct {
	Count    int             `json:"count"`
	Leads    []*model.Lead   `json:"leads"`
	Campaign *model.Campaign `json:"campaign"`
	Cached   bool            `json:"cached"`
}

// ClampLimit bounds a requested search size to 1..50, defaulting to 20.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultSearchLimit
	case n > MaxSearchLimit:
		return MaxSearchLimit
	}
	return n
}

// Search finds businesses for a user. A campaign with the same business
// type and location (case-insensitive) is reused and made active instead of
// calling Places again.
func (s *LeadBlitz) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResult, error) {
	req.BusinessType = strings.TrimSpace(req.BusinessType)
	req.Location = strings.TrimSpace(req.Location)
	if req.BusinessType == "" || req.Location == "" {
		return nil, invalidf("Business type and location are required")
	}
	limit := ClampLimit(req.Limit)
	log := s.logger.With(zap.String("user_id", userID), zap.String("business_type", req.BusinessType),
		zap.String("location", req.Location))

	existing, err := s.store.FindCampaign(ctx, userID, req.BusinessType, req.Location)
	switch {
	case err == nil:
		if err := s.store.SetActiveCampaign(ctx, userID, existing.ID); err != nil {
			return nil, err
		}
		leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID, CampaignID: existing.ID})
		if err != nil {
			return nil, err
		}
		log.Info("search served from campaign", zap.String("campaign_id", existing.ID))
		return &SearchResult{Count: len(leads), Leads: leads, Campaign: existing, Cached: true}, nil
	case !store.IsNotFound(err):
		return nil, err
	}

	ok, balance, err := s.credits.Has(ctx, userID, credits.LeadSearch, limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, paymentf("Insufficient credits. Searching for up to %d leads costs %d credits, but you only have %d. Please reduce the limit or purchase more credits.",
			limit, credits.Cost(credits.LeadSearch, limit), balance)
	}

	campaign := &model.Campaign{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         model.CampaignName(req.BusinessType, req.Location),
		BusinessType: req.BusinessType,
		Location:     req.Location,
	}
	if err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}
	if err := s.store.SetActiveCampaign(ctx, userID, campaign.ID); err != nil {
		return nil, err
	}

	page, err := s.searchPlaces(ctx, req.BusinessType, req.Location, limit, "")
	if err == nil && len(page.Places) == 0 {
		err = ErrNoResults
	}
	if err != nil {
		if derr := s.store.DeleteCampaign(ctx, userID, campaign.ID); derr != nil {
			log.Error("failed to drop empty campaign", zap.String("campaign_id", campaign.ID), zap.Error(derr))
		}
		return nil, err
	}

	if page.NextPageToken != "" {
		if err := s.store.SetNextPageToken(ctx, campaign.ID, page.NextPageToken); err != nil {
			return nil, err
		}
	}
	leads := leadsFromPlaces(userID, campaign.ID, page.Places)
	if err := s.store.InsertLeads(ctx, leads); err != nil {
		return nil, err
	}
	if _, err := s.credits.Deduct(ctx, userID, credits.LeadSearch, len(leads)); err != nil {
		log.Warn("failed to charge search", zap.Error(err))
	}

	updated, err := s.store.GetCampaign(ctx, userID, campaign.ID)
	if err != nil {
		return nil, err
	}
	s.mirrorCampaign(ctx, updated)
	s.mirrorLeads(ctx, leads)
	log.Info("search complete", zap.String("campaign_id", campaign.ID), zap.Int("leads", len(leads)))

	if req.AutoScore {
		s.autoScore(userID, leads)
	}
	return &SearchResult{Count: len(leads), Leads: leads, Campaign: updated}, nil
}

// LoadMore fetches the next Places page for the active campaign.
func (s *LeadBlitz) LoadMore(ctx context.Context, userID string) (*SearchResult, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ActiveCampaignID == "" {
		return nil, ErrNoActiveCampaign
	}
	campaign, err := s.store.GetCampaign(ctx, userID, user.ActiveCampaignID)
	if err != nil {
		return nil, lookup(err, ErrNoMoreLeads)
	}
	if campaign.NextPageToken == "" {
		return nil, ErrNoMoreLeads
	}

	page, err := s.searchPlaces(ctx, campaign.BusinessType, campaign.Location, DefaultSearchLimit, campaign.NextPageToken)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetNextPageToken(ctx, campaign.ID, page.NextPageToken); err != nil {
		return nil, err
	}
	leads := leadsFromPlaces(userID, campaign.ID, page.Places)
	if err := s.store.InsertLeads(ctx, leads); err != nil {
		return nil, err
	}
	updated, err := s.store.GetCampaign(ctx, userID, campaign.ID)
	if err != nil {
		return nil, err
	}
	s.mirrorLeads(ctx, leads)
	return &SearchResult{Count: len(leads), Leads: leads, Campaign: updated}, nil
}

func (s *LeadBlitz) searchPlaces(ctx context.Context, businessType, location string, limit int, pageToken string) (*places.Page, error) {
	if s.places == nil {
		return nil, &places.Error{Kind: places.KindNotConfigured, Message: "GOOGLE_MAPS_API_KEY not configured. Please add it to your environment."}
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()
	page, err := s.places.Search(ctx, businessType, location, limit, pageToken)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("places search: %w", err)
	}
	return page, nil
}

func leadsFromPlaces(userID, campaignID string, found []places.Place) []*model.Lead {
	leads := make([]*model.Lead, 0, len(found))
	for _, p := range found {
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		leads = append(leads, &model.Lead{
			ID:          uuid.New().String(),
			UserID:      userID,
			CampaignID:  campaignID,
			Name:        name,
			Address:     p.Address,
			Phone:       p.Phone,
			Website:     p.Website,
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
			Stage:       model.StageNew,
			Source:      model.SourceSearch,
		})
	}
	return leads
}
