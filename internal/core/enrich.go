package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/enrich"
	"github.com/agenthands/leadblitz/internal/core/model"
)

const (
	websiteEnrichTimeout = 60 * time.Second
	websiteConfidence    = 0.7
	DefaultPerDomain     = 3
	MaxPerDomain         = 20
)

var ErrHunterNotConfigured = &Error{Kind: KindInvalid, Message: "Hunter.io API key not configured. Please add your Hunter.io API key in Settings."}

type Enrichment struct {
	Updated     int           `json:"updated"`
	Leads       []*model.Lead `json:"leads"`
	CreditsUsed *int          `json:"credits_used,omitempty"`
}

// enrichTargets returns the requested leads, or every lead with a website
// and no email when ids is empty. Unknown ids are ignored.
func (s *LeadBlitz) enrichTargets(ctx context.Context, userID string, ids []string) ([]*model.Lead, error) {
	if len(ids) > 0 {
		return s.store.ListLeads(ctx, model.LeadFilter{UserID: userID, IDs: ids})
	}
	all, err := s.allLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []*model.Lead
	for _, l := range all {
		if l.Website != "" && l.Email == "" {
			out = append(out, l)
		}
	}
	return out, nil
}

func mergeCandidates(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, e := range existing {
		seen[e] = true
	}
	for _, e := range found {
		if e != "" && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// EnrichFromWebsite scrapes emails and phones from lead websites with a
// bounded worker pool. Only missing fields are filled in. Leads still
// running when the overall deadline passes are left untouched.
func (s *LeadBlitz) EnrichFromWebsite(ctx context.Context, userID string, ids []string) (*Enrichment, error) {
	if s.enricher == nil {
		return nil, &Error{Kind: KindUnavailable, Message: "Website enrichment is not available"}
	}
	targets, err := s.enrichTargets(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, websiteEnrichTimeout)
	defer cancel()
	var (
		mu  sync.Mutex
		out = &Enrichment{Leads: []*model.Lead{}}
		g   errgroup.Group
	)
	g.SetLimit(max(s.cfg.Concurrency.Enrichment, 1))
	for _, l := range targets {
		needsEmail, needsPhone := l.Email == "", l.Phone == ""
		if l.Website == "" || !needsEmail && !needsPhone {
			continue
		}
		g.Go(func() error {
			found := s.enricher.Extract(ctx, l.Website)
			if ctx.Err() != nil {
				return nil
			}
			changed := false
			if needsEmail && len(found.Emails) > 0 {
				if best := enrich.ChooseBest(found.Emails, l.Website); best != "" {
					l.Email = best
					l.EmailSource = model.EmailSourceWebsite
					l.EmailConfidence = websiteConfidence
					l.EmailCandidates = mergeCandidates(l.EmailCandidates, found.Emails)
					changed = true
				}
			}
			if needsPhone && len(found.Phones) > 0 {
				l.Phone = found.Phones[0]
				changed = true
			}
			if !changed {
				return nil
			}
			if err := s.store.UpdateLeadContact(ctx, l); err != nil {
				s.logger.Warn("failed to save enriched lead", zap.String("lead_id", l.ID), zap.Error(err))
				return nil
			}
			mu.Lock()
			out.Updated++
			out.Leads = append(out.Leads, l)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	s.mirrorLeads(context.WithoutCancel(ctx), out.Leads)
	s.logger.Info("website enrichment finished", zap.String("user_id", userID),
		zap.Int("candidates", len(targets)), zap.Int("updated", out.Updated))
	return out, nil
}

// hunterKey prefers the user's own key over the server's.
func (s *LeadBlitz) hunterKey(ctx context.Context, userID string) (string, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	key, err := s.open(st.HunterKey)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = s.cfg.Hunter.APIKey
	}
	return key, nil
}

// EnrichFromHunter looks up emails for leads without one. The balance must
// cover every eligible lead up front; each lookup is charged before it is
// made and the run stops when a charge fails. Failed lookups are skipped.
func (s *LeadBlitz) EnrichFromHunter(ctx context.Context, userID string, ids []string, perDomain int) (*Enrichment, error) {
	key, err := s.hunterKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if key == "" || s.hunter == nil {
		return nil, ErrHunterNotConfigured
	}
	if perDomain <= 0 {
		perDomain = DefaultPerDomain
	}
	perDomain = min(perDomain, MaxPerDomain)

	targets, err := s.enrichTargets(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	var eligible []*model.Lead
	for _, l := range targets {
		if l.Website != "" && l.Email == "" && enrich.Domain(l.Website) != "" {
			eligible = append(eligible, l)
		}
	}
	cost := credits.Cost(credits.HunterEnrichment, len(eligible))
	if cost > 0 {
		balance, err := s.credits.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		if balance < cost {
			return nil, paymentf("Insufficient credits. Hunter enrichment costs %d credits per lead. You need %d credits but only have %d.",
				credits.Cost(credits.HunterEnrichment, 1), cost, balance)
		}
	}

	used := 0
	out := &Enrichment{Leads: []*model.Lead{}, CreditsUsed: &used}
	log := s.logger.With(zap.String("user_id", userID))
	for _, l := range eligible {
		if _, err := s.credits.Deduct(ctx, userID, credits.HunterEnrichment, 1); err != nil {
			log.Warn("hunter enrichment stopped on credits", zap.Error(err))
			break
		}
		used += credits.Cost(credits.HunterEnrichment, 1)

		domain := enrich.Domain(l.Website)
		emails, err := s.hunter.DomainSearch(ctx, key, domain, perDomain)
		if err != nil {
			log.Info("hunter lookup failed", zap.String("domain", domain), zap.Error(err))
			continue
		}
		if len(emails) == 0 {
			continue
		}
		found := make([]string, 0, len(emails))
		for _, e := range emails {
			found = append(found, e.Email)
		}
		l.Email = emails[0].Email
		l.EmailSource = model.EmailSourceHunter
		l.EmailConfidence = emails[0].Confidence
		l.EmailCandidates = mergeCandidates(l.EmailCandidates, found)
		if err := s.store.UpdateLeadContact(ctx, l); err != nil {
			log.Warn("failed to save enriched lead", zap.String("lead_id", l.ID), zap.Error(err))
			continue
		}
		out.Updated++
		out.Leads = append(out.Leads, l)
	}
	s.mirrorLeads(ctx, out.Leads)
	return out, nil
}
