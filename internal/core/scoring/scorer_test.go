package scoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spaShell = `<!DOCTYPE html><html><head><script src="/static/js/main.4f1a2b.js"></script></head>
<body><noscript>You need to enable JavaScript to run this app.</noscript><div id="root"></div></body></html>`

func siteServer(t *testing.T, status int, home string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(home))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{Timeout: 2 * time.Second, Retries: 1})
}

func mockReview() *MockReviewer {
	return &MockReviewer{Review_: &AIReview{
		Scores:         AIScores{Brand: 10, Visual: 8, Conversion: 9, Trust: 7, A11y: 4},
		Justifications: map[string]string{"conversion": "Add online booking"},
		Report:         model.SalesReport{Strengths: []string{"Clear phone number"}},
		Confidence:     0.8,
	}}
}

func TestScorer_StaticSite(t *testing.T) {
	srv, _ := siteServer(t, http.StatusOK, plumberHTML)
	reviewer := mockReview()
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Reviewer: reviewer})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayStatic, r.RenderPathway)
	require.NotNil(t, r.Heuristic)
	assert.Equal(t, 4, r.Heuristic.Scores.Security)
	assert.Equal(t, r.Heuristic.Total, r.HeuristicScore)
	assert.Equal(t, 38, r.AIScore)
	assert.Equal(t, r.HeuristicScore+38, r.FinalScore)
	assert.Equal(t, 0.85, r.Confidence)
	assert.False(t, r.Cached)
	assert.False(t, r.BotBlocked)
	assert.Equal(t, []string{"Clear phone number"}, r.Report.Strengths)

	require.Len(t, reviewer.Inputs, 1)
	in := reviewer.Inputs[0]
	assert.False(t, in.RenderingLimitations)
	assert.Equal(t, "Acme Plumbing | Emergency plumbers", in.Content.Title)
	assert.NotNil(t, in.Technographics)

	reasoning := BuildReasoning(r)
	assert.Equal(t, "Add online booking", reasoning.TopRecommendation)
}

func TestScorer_UsesCache(t *testing.T) {
	srv, hits := siteServer(t, http.StatusOK, plumberHTML)
	c := NewMemoryCache()
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Reviewer: mockReview(), Cache: c})

	first := s.Score(context.Background(), srv.URL, true)
	second := s.Score(context.Background(), srv.URL, true)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.FinalScore, second.FinalScore)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	third := s.Score(context.Background(), srv.URL, false)
	assert.False(t, third.Cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestScorer_BotBlocked(t *testing.T) {
	srv, _ := siteServer(t, http.StatusForbidden, "")
	reviewer := mockReview()
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Reviewer: reviewer})

	r := s.Score(context.Background(), srv.URL, false)

	assert.True(t, r.Unreachable())
	assert.Equal(t, model.PathwayBotBlocked, r.RenderPathway)
	assert.True(t, r.BotBlocked)
	assert.Zero(t, r.FinalScore)
	assert.Equal(t, 0.3, r.Confidence)
	assert.Equal(t, SophisticationMessage, r.SophisticationMessage)
	assert.NotEmpty(t, r.Report.SalesOpportunities)
	assert.Contains(t, r.Errors, "render unavailable: no browser configured")
	assert.Empty(t, reviewer.Inputs)
}

func TestScorer_RenderedChallengePageStaysBlocked(t *testing.T) {
	srv, _ := siteServer(t, http.StatusForbidden, "")
	renderer := &MockRenderer{HTML: "<html><title>Attention Required! | Cloudflare</title><body>Ray ID: 1234</body></html>"}
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Renderer: renderer, Reviewer: mockReview()})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayBotBlocked, r.RenderPathway)
	assert.Len(t, renderer.URLs, 1)
}

func TestScorer_RenderRecoversBlockedFetch(t *testing.T) {
	srv, _ := siteServer(t, http.StatusForbidden, "")
	renderer := &MockRenderer{HTML: plumberHTML}
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Renderer: renderer, Reviewer: mockReview()})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayRendered, r.RenderPathway)
	assert.False(t, r.BotBlocked)
	assert.Equal(t, r.HeuristicScore+38, r.FinalScore)
}

func TestScorer_FetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Reviewer: mockReview()})
	r := s.Score(context.Background(), url, false)

	assert.Equal(t, model.PathwayFetchFailed, r.RenderPathway)
	assert.False(t, r.BotBlocked)
	assert.Empty(t, r.SophisticationMessage)
	assert.Zero(t, r.FinalScore)
	assert.NotEmpty(t, r.Errors)
}

func TestScorer_JSHeavyRendered(t *testing.T) {
	srv, _ := siteServer(t, http.StatusOK, spaShell)
	renderer := &MockRenderer{HTML: plumberHTML}
	reviewer := mockReview()
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Renderer: renderer, Reviewer: reviewer})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayRendered, r.RenderPathway)
	require.NotNil(t, r.Detection)
	assert.True(t, r.Detection.JSHeavy)
	assert.Len(t, renderer.URLs, 1)
	require.Len(t, reviewer.Inputs, 1)
	assert.Equal(t, "Acme Plumbing | Emergency plumbers", reviewer.Inputs[0].Content.Title)
}

func TestScorer_JSHeavyRenderFailed(t *testing.T) {
	srv, _ := siteServer(t, http.StatusOK, spaShell)
	renderer := &MockRenderer{Err: errors.New("chrome crashed")}
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Renderer: renderer, Reviewer: mockReview()})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayRenderFailed, r.RenderPathway)
	assert.True(t, r.RenderingLimitations)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], "chrome crashed")
}

func TestScorer_EscalatesThinContactEvidence(t *testing.T) {
	thin := "<html><body><p>" + strings.Repeat("word ", 150) + "</p></body></html>"
	srv, _ := siteServer(t, http.StatusOK, thin)
	renderer := &MockRenderer{HTML: plumberHTML}
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Renderer: renderer, Reviewer: mockReview()})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Equal(t, model.PathwayEscalatedRender, r.RenderPathway)
	require.NotNil(t, r.Heuristic)
	assert.Equal(t, []string{"info@acme.test"}, r.Heuristic.Evidence.EmailsFound)
}

func TestScorer_NoLLMFallsBackToHeuristics(t *testing.T) {
	srv, _ := siteServer(t, http.StatusOK, plumberHTML)
	s := NewScorer(ScorerConfig{Fetcher: testFetcher()})

	r := s.Score(context.Background(), srv.URL, false)

	assert.Zero(t, r.AIScore)
	assert.Equal(t, r.HeuristicScore, r.FinalScore)
	assert.Equal(t, 0.75, r.Confidence)
	require.NotNil(t, r.AI)
	assert.Contains(t, r.AI.Justifications["error"], "no LLM configured")
}

func TestResult_ApplyAndFailed(t *testing.T) {
	srv, _ := siteServer(t, http.StatusOK, plumberHTML)
	s := NewScorer(ScorerConfig{Fetcher: testFetcher(), Reviewer: mockReview()})
	r := s.Score(context.Background(), srv.URL, false)
	require.False(t, r.Failed())

	lead := &model.Lead{Name: "Acme"}
	r.Apply(lead)
	require.NotNil(t, lead.ScoreReasoning)
	assert.Equal(t, lead.ScoreReasoning.TotalScore, lead.Score)
	assert.Equal(t, 38, lead.AIScore)
	assert.True(t, lead.IsScored())

	blocked := &Result{RenderPathway: model.PathwayBotBlocked, BotBlocked: true}
	assert.True(t, blocked.Failed())
	blocked.ApplyFailure(lead)
	assert.Zero(t, lead.Score)
	assert.True(t, lead.ScoreReasoning.BotBlocked)
}
