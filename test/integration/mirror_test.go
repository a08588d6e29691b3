//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/dedupe"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/driver"
	"github.com/agenthands/leadblitz/internal/graph"
)

func memgraphMirror(t *testing.T) *graph.Mirror {
	t.Helper()
	_ = godotenv.Load("../../.env")
	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })

	m := graph.NewMirror(d, zap.NewNop())
	require.NoError(t, m.BuildIndices(ctx))
	return m
}

func TestMirror_Duplicates(t *testing.T) {
	m := memgraphMirror(t)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()
	c1 := &model.Campaign{ID: uuid.NewString(), UserID: userID, Name: "plumbers in Leeds", CreatedAt: time.Now()}
	c2 := &model.Campaign{ID: uuid.NewString(), UserID: userID, Name: "builders in Leeds", CreatedAt: time.Now()}
	require.NoError(t, m.SaveCampaign(ctx, c1))
	require.NoError(t, m.SaveCampaign(ctx, c2))

	leads := []*model.Lead{
		{ID: uuid.NewString(), UserID: userID, CampaignID: c1.ID, Name: "Acme Plumbing", Website: "https://www.acme.test/", Phone: "+44 113 234 5678", Stage: model.StageNew},
		{ID: uuid.NewString(), UserID: userID, CampaignID: c2.ID, Name: "Acme Building", Website: "http://acme.test/contact", Stage: model.StageNew},
		{ID: uuid.NewString(), UserID: userID, CampaignID: c2.ID, Name: "Other", Phone: "0113 234 5678", Stage: model.StageNew},
	}
	require.NoError(t, m.SaveLeads(ctx, leads))
	t.Cleanup(func() {
		_ = m.DeleteCampaign(context.Background(), userID, c1.ID)
		_ = m.DeleteCampaign(context.Background(), userID, c2.ID)
	})

	groups, err := m.Duplicates(ctx, userID)
	require.NoError(t, err)
	var domain *dedupe.Group
	for i := range groups {
		if groups[i].Kind == dedupe.KindDomain {
			domain = &groups[i]
		}
	}
	require.NotNil(t, domain, "expected a domain group in %+v", groups)
	assert.ElementsMatch(t, []string{leads[0].ID, leads[1].ID}, domain.LeadIDs)

	require.NoError(t, m.DeleteLead(ctx, userID, leads[1].ID))
	groups, err = m.Duplicates(ctx, userID)
	require.NoError(t, err)
	for _, g := range groups {
		assert.NotEqual(t, dedupe.KindDomain, g.Kind)
	}
}

func TestMirror_UserIsolation(t *testing.T) {
	m := memgraphMirror(t)
	ctx := context.Background()
	a, b := "it-"+uuid.NewString(), "it-"+uuid.NewString()
	ca := &model.Campaign{ID: uuid.NewString(), UserID: a, Name: "a"}
	cb := &model.Campaign{ID: uuid.NewString(), UserID: b, Name: "b"}
	require.NoError(t, m.SaveCampaign(ctx, ca))
	require.NoError(t, m.SaveCampaign(ctx, cb))
	require.NoError(t, m.SaveLeads(ctx, []*model.Lead{
		{ID: uuid.NewString(), UserID: a, CampaignID: ca.ID, Name: "Shared", Website: "https://shared.test"},
		{ID: uuid.NewString(), UserID: b, CampaignID: cb.ID, Name: "Shared", Website: "https://shared.test"},
	}))
	t.Cleanup(func() {
		_ = m.DeleteCampaign(context.Background(), a, ca.ID)
		_ = m.DeleteCampaign(context.Background(), b, cb.ID)
	})

	groups, err := m.Duplicates(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
