package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/places"
)

func TestSearch_CreatesCampaignThenReuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.places.Page = &places.Page{
		Places: []places.Place{
			{PlaceID: "p1", Name: "Acme Plumbing", Address: "1 Main St, Austin, TX", Website: "https://acme.test"},
			{PlaceID: "p2", Name: "", Phone: "555-0100"},
		},
		NextPageToken: "next-1",
	}

	res, err := f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "plumber", Location: "Austin, TX"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "plumber in Austin, TX", res.Campaign.Name)
	assert.Equal(t, 2, res.Campaign.LeadCount)
	assert.Equal(t, "next-1", res.Campaign.NextPageToken)
	assert.Equal(t, "Unknown", res.Leads[1].Name)
	assert.Equal(t, model.StageNew, res.Leads[0].Stage)

	user, err := f.store.GetUser(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, res.Campaign.ID, user.ActiveCampaignID)

	again, err := f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: " PLUMBER", Location: "austin, tx "})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Campaign.ID, again.Campaign.ID)
	assert.Equal(t, 2, again.Count)
	assert.Equal(t, 1, f.places.Calls)
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Search(context.Background(), f.userID, SearchRequest{BusinessType: "  ", Location: "Austin"})
	assert.Equal(t, KindInvalid, kindOf(err))
	assert.Zero(t, f.places.Calls)
}

func TestSearch_NoResultsDropsCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "yeti tamers", Location: "Nowhere"})
	assert.ErrorIs(t, err, ErrNoResults)

	list, err := f.svc.ListCampaigns(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, list.Campaigns)
}

func TestSearch_PlacesErrorKeepsKind(t *testing.T) {
	f := newFixture(t)
	f.places.Err = &places.Error{Kind: places.KindQuota, Message: "quota"}

	_, err := f.svc.Search(context.Background(), f.userID, SearchRequest{BusinessType: "cafe", Location: "Paris"})
	var pe *places.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, places.KindQuota, pe.Kind)
}

func TestSearch_NotConfigured(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Places = nil })
	_, err := f.svc.Search(context.Background(), f.userID, SearchRequest{BusinessType: "cafe", Location: "Paris"})
	var pe *places.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, places.KindNotConfigured, pe.Kind)
}

func TestLoadMore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LoadMore(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoActiveCampaign)

	f.places.Page = &places.Page{Places: []places.Place{{Name: "First"}}, NextPageToken: "tok"}
	_, err = f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "bakery", Location: "Lyon"})
	require.NoError(t, err)

	f.places.Page = &places.Page{Places: []places.Place{{Name: "Second"}}}
	more, err := f.svc.LoadMore(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "tok", f.places.Token)
	assert.Equal(t, 1, more.Count)
	assert.Equal(t, 2, more.Campaign.LeadCount)
	assert.Empty(t, more.Campaign.NextPageToken)

	_, err = f.svc.LoadMore(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoMoreLeads)
}

func TestSearch_AutoScoreRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	f := newFixture(t)
	ctx := context.Background()
	f.places.Page = &places.Page{Places: []places.Place{
		{Name: "Acme", Website: "https://acme.test"},
		{Name: "No Site"},
	}}

	res, err := f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "plumber", Location: "Austin", AutoScore: true})
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(shutdownCtx))

	scored := f.lead(t, res.Leads[0].ID)
	assert.Equal(t, 40, scored.Score)
	assert.NotNil(t, scored.LastScoredAt)
	assert.Equal(t, 9, f.balance(t))
	assert.Equal(t, int32(1), f.scorer.Calls.Load())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, ClampLimit(0))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxSearchLimit, ClampLimit(500))
}
