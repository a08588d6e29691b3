package csvimport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/scoring"
	"github.com/agenthands/leadblitz/internal/store"
)

type MockScorer struct {
	mu      sync.Mutex
	Results map[string]*scoring.Result
	Calls   []string
}

func (m *MockScorer) Score(ctx context.Context, url string, useCache bool) *scoring.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, url)
	if r, ok := m.Results[url]; ok {
		return r
	}
	return &scoring.Result{URL: url, RenderPathway: model.PathwayFetchFailed}
}

func goodResult() *scoring.Result {
	return &scoring.Result{
		FinalScore:     40,
		HeuristicScore: 40,
		Confidence:     0.75,
		Heuristic: &scoring.HeuristicResult{
			Scores: scoring.HeuristicScores{Mobile: 10, Security: 10, SEO: 8, Contact: 7, Content: 5},
			Total:  40,
		},
		RenderPathway: model.PathwayStatic,
		ScoredAt:      time.Now(),
	}
}

type fixture struct {
	store   *store.Store
	credits *credits.Service
	runner  *Runner
	scorer  *MockScorer
}

func setup(t *testing.T, balance int) *fixture {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := credits.NewService(s, balance)
	require.NoError(t, svc.Open(context.Background(), "u1"))

	scorer := &MockScorer{Results: map[string]*scoring.Result{}}
	return &fixture{
		store:   s,
		credits: svc,
		scorer:  scorer,
		runner:  &Runner{Store: s, Scorer: scorer, Credits: svc, Concurrency: 2, PerLeadTimeout: time.Second},
	}
}

func (f *fixture) importPlan(t *testing.T, plan *Plan) (*model.CsvImport, []string) {
	t.Helper()
	ctx := context.Background()
	imp := &model.CsvImport{
		ID: NewImportID(), UserID: "u1", Filename: "leads.csv",
		TotalRows: plan.Summary.TotalRows, ToScore: plan.Summary.ToScore, PendingCount: plan.Summary.ToScore,
		PendingCreditsCount: plan.Summary.PendingCredits, Status: model.ImportInProgress,
	}
	require.NoError(t, f.store.CreateImport(ctx, imp))

	var leads []*model.Lead
	var queued []string
	for _, pl := range plan.Leads {
		l := pl.Lead("u1", imp.ID)
		leads = append(leads, l)
		if pl.Status == model.ImportQueued {
			queued = append(queued, l.ID)
		}
	}
	require.NoError(t, f.store.InsertLeads(ctx, leads))
	return imp, queued
}

func TestRunner_Run(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	f := setup(t, 2)
	ctx := context.Background()
	f.scorer.Results["https://good.test"] = goodResult()

	plan := BuildPlan([]Row{
		{"business_name": "Good", "website_url": "good.test"},
		{"business_name": "Down", "website_url": "down.test"},
		{"business_name": "Later", "website_url": "later.test"},
	}, nil, 2)
	imp, queued := f.importPlan(t, plan)
	require.Len(t, queued, 2)

	before, err := f.runner.Progress(ctx, "u1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, before.Pending)
	assert.Equal(t, model.ImportInProgress, before.Status)

	require.NoError(t, f.runner.Run(ctx, "u1", imp.ID, queued))

	st, err := f.runner.Progress(ctx, "u1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, &Status{ImportID: imp.ID, Status: model.ImportPartial, Total: 3, Scored: 1, Unreachable: 1, PendingCredits: 1}, st)

	leads, err := f.store.ListLeads(ctx, model.LeadFilter{UserID: "u1", ImportID: imp.ID})
	require.NoError(t, err)
	byName := map[string]*model.Lead{}
	for _, l := range leads {
		byName[l.Name] = l
	}
	assert.Equal(t, 40, byName["Good"].Score)
	assert.Equal(t, model.ImportScored, byName["Good"].ImportStatus)
	assert.NotNil(t, byName["Good"].LastScoredAt)
	assert.Zero(t, byName["Down"].Score)
	assert.Equal(t, model.ImportUnreachable, byName["Down"].ImportStatus)

	balance, err := f.credits.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	saved, err := f.store.GetImport(ctx, "u1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportPartial, saved.Status)
	assert.NotNil(t, saved.CompletedAt)
}

func TestRunner_CreditsRunOut(t *testing.T) {
	f := setup(t, 0)
	ctx := context.Background()
	f.scorer.Results["https://good.test"] = goodResult()

	plan := BuildPlan([]Row{{"website_url": "good.test"}}, nil, 1)
	imp, queued := f.importPlan(t, plan)

	require.NoError(t, f.runner.Run(ctx, "u1", imp.ID, queued))

	st, err := f.runner.Progress(ctx, "u1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PendingCredits)
	assert.Equal(t, model.ImportPartial, st.Status)
}

func TestRunner_AllScoredCompletes(t *testing.T) {
	f := setup(t, 5)
	ctx := context.Background()
	f.scorer.Results["https://good.test"] = goodResult()

	plan := BuildPlan([]Row{{"website_url": "good.test"}}, nil, 5)
	imp, queued := f.importPlan(t, plan)
	require.NoError(t, f.runner.Run(ctx, "u1", imp.ID, queued))

	st, err := f.runner.Progress(ctx, "u1", imp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportCompleted, st.Status)
	assert.Equal(t, []string{"https://good.test"}, f.scorer.Calls)
}
