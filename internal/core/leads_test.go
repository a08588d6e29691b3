package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agenthands/leadblitz/internal/core/dedupe"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/places"
)

func strPtr(s string) *string { return &s }

func TestUpdateLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t, &model.Lead{ID: "l1", Name: "Acme"})

	l, err := f.svc.UpdateLead(ctx, f.userID, "l1", model.LeadUpdate{
		Email: strPtr(" owner@acme.test "),
		Stage: strPtr("Meeting"),
		Notes: strPtr("call back"),
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", l.Email)
	assert.Equal(t, model.EmailSourceManual, l.EmailSource)
	assert.Equal(t, model.StageMeeting, l.Stage)

	stored := f.lead(t, "l1")
	assert.Equal(t, "call back", stored.Notes)

	l, err = f.svc.UpdateLead(ctx, f.userID, "l1", model.LeadUpdate{Email: strPtr("x@acme.test"), EmailSource: strPtr("hunter")})
	require.NoError(t, err)
	assert.Equal(t, "hunter", l.EmailSource)

	_, err = f.svc.UpdateLead(ctx, f.userID, "l1", model.LeadUpdate{Stage: strPtr("Lost in space")})
	assert.Equal(t, KindInvalid, kindOf(err))
	assert.Equal(t, "Invalid stage: Lost in space", err.Error())

	_, err = f.svc.UpdateLead(ctx, f.userID, "missing", model.LeadUpdate{})
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestDeleteLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t, &model.Lead{ID: "l1", Name: "Acme"})

	require.NoError(t, f.svc.DeleteLead(ctx, f.userID, "l1"))
	assert.ErrorIs(t, f.svc.DeleteLead(ctx, f.userID, "l1"), ErrLeadNotFound)
}

func TestListLeads_Views(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	f.insert(t,
		&model.Lead{ID: "l1", Name: "Weak", Score: 20, LastScoredAt: &now},
		&model.Lead{ID: "l2", Name: "Strong", Score: 80, LastScoredAt: &now},
		&model.Lead{ID: "l3", Name: "Unscored"},
	)

	all, err := f.svc.ListLeads(ctx, f.userID, "all", "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Count)

	strong, err := f.svc.ListLeads(ctx, f.userID, "strong", "")
	require.NoError(t, err)
	require.Equal(t, 1, strong.Count)
	assert.Equal(t, "Weak", strong.Leads[0].Name)

	active, err := f.svc.ListLeads(ctx, f.userID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, active.Count)
	assert.Nil(t, active.ActiveCampaignID)
}

func TestCampaigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.places.Page = &places.Page{Places: []places.Place{{Name: "A"}}}
	first, err := f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "cafe", Location: "Rome"})
	require.NoError(t, err)
	_, err = f.svc.Search(ctx, f.userID, SearchRequest{BusinessType: "bar", Location: "Rome"})
	require.NoError(t, err)

	list, err := f.svc.ListCampaigns(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, list.Campaigns, 2)
	require.NotNil(t, list.ActiveCampaignID)

	active, err := f.svc.ActivateCampaign(ctx, f.userID, first.Campaign.ID)
	require.NoError(t, err)
	assert.Len(t, active.Leads, 1)
	leads, err := f.svc.ListLeads(ctx, f.userID, "", "")
	require.NoError(t, err)
	assert.Equal(t, first.Campaign.ID, *leads.ActiveCampaignID)

	all, err := f.svc.ViewAll(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, all.Leads, 2)
	assert.Nil(t, all.ActiveCampaignID)

	require.NoError(t, f.svc.DeleteCampaign(ctx, f.userID, first.Campaign.ID))
	_, err = f.svc.GetCampaign(ctx, f.userID, first.Campaign.ID)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
	all, err = f.svc.ViewAll(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, all.Leads, 1)
}

func TestStatsAndAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	f.insert(t,
		&model.Lead{ID: "l1", Name: "A", Score: 20, LastScoredAt: &now, Stage: model.StageMeeting},
		&model.Lead{ID: "l2", Name: "B", Score: 65, LastScoredAt: &now, Stage: model.StageReplied},
		&model.Lead{ID: "l3", Name: "C", Score: 50},
		&model.Lead{ID: "l4", Name: "D"},
	)
	require.NoError(t, f.store.IncrementSent(ctx, f.userID, 4, 1))

	st, err := f.svc.Stats(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalLeads)
	assert.Equal(t, 42.5, st.AvgScore)
	assert.Equal(t, 2, st.ByStage["New"])
	assert.Equal(t, 4, st.EmailsSent)
	assert.Equal(t, 1, st.SMSSent)

	an, err := f.svc.Analytics(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, an.HighOpportunityLeads)
	assert.Equal(t, 2, an.DealsInProgress)
	assert.Equal(t, 4, an.LastSevenDaysSent)
	assert.Zero(t, an.TotalCampaigns)
}

func exportLead() *model.Lead {
	return &model.Lead{
		ID: "l1", Name: "Acme", Website: "https://acme.test", Score: 40, Stage: model.StageNew,
		ScoreReasoning: &model.ScoreReasoning{
			TotalScore:            40,
			WebsiteQuality:        model.Component{Score: 15},
			DigitalPresence:       model.Component{Score: 25},
			AutomationOpportunity: model.Component{Score: 0},
		},
	}
}

func TestExportRow(t *testing.T) {
	row := ExportRow(exportLead())
	require.Len(t, row, len(ExportHeaders))
	assert.Equal(t, "'15/30", row[7])
	assert.Equal(t, "'25/30", row[8])
	assert.Equal(t, "", row[9])

	plain := ExportRow(&model.Lead{ID: "l2"})
	assert.Equal(t, "0", plain[6])
	assert.Equal(t, "", plain[7])
}

func TestExport_CSV(t *testing.T) {
	f := newFixture(t)
	f.insert(t, exportLead())

	var buf bytes.Buffer
	ct, name, err := f.svc.Export(context.Background(), f.userID, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)
	assert.Equal(t, "leads.csv", name)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ExportHeaders, records[0])
	assert.Equal(t, "Acme", records[1][1])
}

func TestExport_XLSX(t *testing.T) {
	f := newFixture(t)
	f.insert(t, exportLead())

	var buf bytes.Buffer
	_, name, err := f.svc.Export(context.Background(), f.userID, FormatXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, "leads.xlsx", name)

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	header, err := book.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "id", header)
	score, err := book.GetCellValue(exportSheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "40", score)
}

func TestExport_BadFormat(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Export(context.Background(), f.userID, "pdf", &bytes.Buffer{})
	assert.Equal(t, KindInvalid, kindOf(err))
}

func TestDuplicates_FromStore(t *testing.T) {
	f := newFixture(t)
	f.insert(t,
		&model.Lead{ID: "l1", Name: "Acme Plumbing", Website: "https://www.acme.test/"},
		&model.Lead{ID: "l2", Name: "Acme Plumbing Austin", Website: "http://acme.test/contact"},
		&model.Lead{ID: "l3", Name: "Other", Website: "https://other.test"},
	)

	report, err := f.svc.Duplicates(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "store", report.Source)
	require.NotEmpty(t, report.Groups)
	assert.Equal(t, dedupe.KindDomain, report.Groups[0].Kind)
	assert.ElementsMatch(t, []string{"l1", "l2"}, report.Groups[0].LeadIDs)
}
