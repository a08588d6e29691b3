// Package graph mirrors leads into Memgraph so duplicate businesses can be
// found through shared Domain and Phone nodes.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/dedupe"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/driver"
)

type Mirror struct {
	Driver driver.GraphDriver
	logger *zap.Logger
}

func NewMirror(d driver.GraphDriver, logger *zap.Logger) *Mirror {
	return &Mirror{Driver: d, logger: logger}
}

func (m *Mirror) BuildIndices(ctx context.Context) error {
	return m.Driver.BuildIndices(ctx)
}

func (m *Mirror) SaveCampaign(ctx context.Context, c *model.Campaign) error {
	params := map[string]interface{}{
		"id":            c.ID,
		"user_id":       c.UserID,
		"name":          c.Name,
		"business_type": c.BusinessType,
		"location":      c.Location,
		"created_at":    c.CreatedAt.UTC(),
	}
	if _, err := m.Driver.ExecuteQuery(ctx, driver.MergeCampaignQuery, params); err != nil {
		return fmt.Errorf("failed to save campaign %s: %w", c.ID, err)
	}
	return nil
}

// SaveLeads upserts each lead and relinks it to its campaign, domain and
// phone. The campaign node must already exist.
func (m *Mirror) SaveLeads(ctx context.Context, leads []*model.Lead) error {
	for _, l := range leads {
		if err := m.saveLead(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) saveLead(ctx context.Context, l *model.Lead) error {
	params := map[string]interface{}{
		"id":      l.ID,
		"user_id": l.UserID,
		"name":    l.Name,
		"address": l.Address,
		"city":    dedupe.City(l.Address),
		"website": l.Website,
		"phone":   l.Phone,
		"score":   int64(l.Score),
		"stage":   string(l.Stage),
	}
	if _, err := m.Driver.ExecuteQuery(ctx, driver.MergeLeadQuery, params); err != nil {
		return fmt.Errorf("failed to save lead %s: %w", l.ID, err)
	}

	if l.CampaignID != "" {
		if _, err := m.Driver.ExecuteQuery(ctx, driver.LinkCampaignQuery, map[string]interface{}{
			"lead_id": l.ID, "campaign_id": l.CampaignID,
		}); err != nil {
			return fmt.Errorf("failed to link lead %s to campaign: %w", l.ID, err)
		}
	}
	if domain := dedupe.DomainOf(l); domain != "" {
		if _, err := m.Driver.ExecuteQuery(ctx, driver.LinkDomainQuery, map[string]interface{}{
			"lead_id": l.ID, "domain": domain,
		}); err != nil {
			return fmt.Errorf("failed to link lead %s to domain: %w", l.ID, err)
		}
	}
	if phone := dedupe.NormalizePhone(l.Phone); phone != "" {
		if _, err := m.Driver.ExecuteQuery(ctx, driver.LinkPhoneQuery, map[string]interface{}{
			"lead_id": l.ID, "number": phone,
		}); err != nil {
			return fmt.Errorf("failed to link lead %s to phone: %w", l.ID, err)
		}
	}
	return nil
}

func (m *Mirror) DeleteLead(ctx context.Context, userID, id string) error {
	if _, err := m.Driver.ExecuteQuery(ctx, driver.DeleteLeadQuery, map[string]interface{}{
		"id": id, "user_id": userID,
	}); err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return m.prune(ctx)
}

// DeleteCampaign removes the campaign node and every lead in it.
func (m *Mirror) DeleteCampaign(ctx context.Context, userID, id string) error {
	if _, err := m.Driver.ExecuteQuery(ctx, driver.DeleteCampaignQuery, map[string]interface{}{
		"id": id, "user_id": userID,
	}); err != nil {
		return fmt.Errorf("failed to delete campaign %s: %w", id, err)
	}
	return m.prune(ctx)
}

func (m *Mirror) prune(ctx context.Context) error {
	if _, err := m.Driver.ExecuteQuery(ctx, driver.PruneOrphansQuery, nil); err != nil {
		m.logger.Warn("failed to prune orphan nodes", zap.Error(err))
	}
	return nil
}

// Duplicates returns the user's leads that share a Domain or Phone node.
func (m *Mirror) Duplicates(ctx context.Context, userID string) ([]dedupe.Group, error) {
	params := map[string]interface{}{"user_id": userID}
	var out []dedupe.Group
	for _, q := range []struct {
		kind, query string
	}{
		{dedupe.KindDomain, driver.DuplicateDomainsQuery},
		{dedupe.KindPhone, driver.DuplicatePhonesQuery},
	} {
		res, err := m.Driver.ExecuteQuery(ctx, q.query, params)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s duplicates: %w", q.kind, err)
		}
		for _, rec := range res.Records {
			g, ok := toGroup(q.kind, rec)
			if !ok {
				m.logger.Warn("skipping malformed duplicate record", zap.Strings("keys", rec.Keys))
				continue
			}
			out = append(out, g)
		}
	}
	return out, nil
}

func toGroup(kind string, rec *neo4j.Record) (dedupe.Group, bool) {
	key, ok := rec.Get("key")
	if !ok {
		return dedupe.Group{}, false
	}
	k, ok := key.(string)
	if !ok {
		return dedupe.Group{}, false
	}
	raw, ok := rec.Get("ids")
	if !ok {
		return dedupe.Group{}, false
	}
	list, ok := raw.([]interface{})
	if !ok {
		return dedupe.Group{}, false
	}
	g := dedupe.Group{Kind: kind, Key: k}
	for _, v := range list {
		if id, ok := v.(string); ok {
			g.LeadIDs = append(g.LeadIDs, id)
		}
	}
	return g, len(g.LeadIDs) > 1
}
