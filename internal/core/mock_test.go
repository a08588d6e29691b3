package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/enrich"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/places"
	"github.com/agenthands/leadblitz/internal/core/scoring"
	"github.com/agenthands/leadblitz/internal/store"
)

type MockPlaces struct {
	mu    sync.Mutex
	Page  *places.Page
	Err   error
	Calls int
	Token string
}

func (m *MockPlaces) Configured() bool { return true }

func (m *MockPlaces) Search(ctx context.Context, businessType, location string, limit int, pageToken string) (*places.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Token = pageToken
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Page, nil
}

// MockScorer returns a canned result per URL, or Default. URLs in Hang
// block until the context ends. During runs before the result is returned.
type MockScorer struct {
	Results map[string]*scoring.Result
	Default *scoring.Result
	Hang    map[string]bool
	During  func(url string)
	Calls   atomic.Int32
}

func (m *MockScorer) Score(ctx context.Context, url string, useCache bool) *scoring.Result {
	m.Calls.Add(1)
	if m.During != nil {
		m.During(url)
	}
	if m.Hang[url] {
		<-ctx.Done()
		return &scoring.Result{URL: url, RenderPathway: model.PathwayFetchFailed}
	}
	if r, ok := m.Results[url]; ok {
		c := *r
		return &c
	}
	if m.Default != nil {
		c := *m.Default
		return &c
	}
	return goodResult()
}

// goodResult scores 40: 15 quality, 15 presence, 10 automation.
func goodResult() *scoring.Result {
	return &scoring.Result{
		FinalScore:     40,
		Confidence:     0.8,
		HeuristicScore: 20,
		AIScore:        20,
		Heuristic: &scoring.HeuristicResult{
			Scores: scoring.HeuristicScores{Mobile: 5, SEO: 5, Security: 5, Content: 5},
			Total:  20,
		},
		AI: &scoring.AIReview{Scores: scoring.AIScores{Visual: 5, Brand: 5, Conversion: 5, Trust: 5}},
	}
}

func blockedResult() *scoring.Result {
	return &scoring.Result{RenderPathway: model.PathwayBotBlocked, BotBlocked: true}
}

type MockExtractor struct {
	Findings map[string]*enrich.Findings
}

func (m *MockExtractor) Extract(ctx context.Context, website string) *enrich.Findings {
	if f, ok := m.Findings[website]; ok {
		return f
	}
	return &enrich.Findings{}
}

type MockHunter struct {
	mu      sync.Mutex
	Emails  map[string][]enrich.HunterEmail
	Err     error
	Domains []string
}

func (m *MockHunter) DomainSearch(ctx context.Context, apiKey, domain string, max int) ([]enrich.HunterEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Domains = append(m.Domains, domain)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Emails[domain], nil
}

type fixture struct {
	svc     *LeadBlitz
	store   *store.Store
	credits *credits.Service
	places  *MockPlaces
	scorer  *MockScorer
	cfg     *config.Config
	userID  string
}

// newFixture wires the service over an in-memory store with one user who
// holds the default signup credits.
func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.Outreach.Delay = 0
	cs := credits.NewService(st, cfg.Auth.SignupCredits)
	f := &fixture{
		store:   st,
		credits: cs,
		places:  &MockPlaces{Page: &places.Page{}},
		scorer:  &MockScorer{},
		cfg:     cfg,
		userID:  "u1",
	}
	require.NoError(t, st.CreateUser(ctx, &model.User{ID: f.userID, Email: "owner@leadblitz.test", PasswordHash: "x"}))
	require.NoError(t, cs.Open(ctx, f.userID))

	d := Deps{Store: st, Credits: cs, Places: f.places, Scorer: f.scorer, Config: cfg}
	for _, o := range opts {
		o(&d)
	}
	f.svc = New(d)
	t.Cleanup(func() { _ = f.svc.Shutdown(context.Background()) })
	return f
}

func (f *fixture) insert(t *testing.T, leads ...*model.Lead) {
	t.Helper()
	for _, l := range leads {
		l.UserID = f.userID
		if l.Stage == "" {
			l.Stage = model.StageNew
		}
	}
	require.NoError(t, f.store.InsertLeads(context.Background(), leads))
}

func (f *fixture) lead(t *testing.T, id string) *model.Lead {
	t.Helper()
	l, err := f.store.GetLead(context.Background(), f.userID, id)
	require.NoError(t, err)
	return l
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	b, err := f.credits.Balance(context.Background(), f.userID)
	require.NoError(t, err)
	return b
}

func kindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}
