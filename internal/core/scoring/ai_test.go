package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewInput() ReviewInput {
	h := Heuristics(plumberHTML, "https://acme.test/")
	return ReviewInput{
		URL:            "https://acme.test/",
		Content:        ExtractContent(plumberHTML, 6000),
		Evidence:       h.Evidence,
		Technographics: DetectTechnographics(wordpressHTML, "https://acme.test/"),
	}
}

func TestAIReviewer_ClampsScores(t *testing.T) {
	mock := &MockLLMClient{Response: "```json\n" + `{
		"category_scores": {"brand": 15, "visual": 8, "conversion": -2, "trust": 7.6, "a11y": 4},
		"justifications": {"brand": "Clear headline"},
		"plain_english_report": {"strengths": ["Fast site"], "sales_opportunities": ["Add booking"]},
		"insufficient_evidence": false
	}` + "\n```"}
	reviewer := NewAIReviewer(mock, config.DefaultPrompts())

	review := reviewer.Review(context.Background(), reviewInput())

	assert.Equal(t, AIScores{Brand: 12, Visual: 8, Conversion: 0, Trust: 7, A11y: 4}, review.Scores)
	assert.Equal(t, 0.7, review.Confidence)
	assert.Equal(t, "Clear headline", review.Justifications["brand"])
	assert.Equal(t, []string{"Fast site"}, review.Report.Strengths)

	require.Len(t, mock.Requests, 1)
	req := mock.Requests[0]
	assert.Equal(t, float32(0.3), req.Temperature)
	assert.Equal(t, config.DefaultPrompts().ReviewSystem, req.System)
	assert.Contains(t, req.Prompt, "URL: https://acme.test/")
	assert.Contains(t, req.Prompt, "Rendering limitations: No")
	assert.Contains(t, req.Prompt, "Title: Acme Plumbing | Emergency plumbers")
	assert.Contains(t, req.Prompt, `"emails_found": [`)
	assert.Contains(t, req.Prompt, "TECHNOLOGY STACK DETECTED:")
	assert.NotContains(t, req.Prompt, "%!")
}

func TestAIReviewer_BumpsInsufficientEvidence(t *testing.T) {
	mock := &MockLLMClient{Response: `{"category_scores": {"brand": 2, "visual": 2, "conversion": 2, "trust": 2, "a11y": 2},
		"insufficient_evidence": true, "confidence": 0.4}`}
	in := reviewInput()
	in.Evidence.TextWordCount = 300

	review := NewAIReviewer(mock, config.DefaultPrompts()).Review(context.Background(), in)
	assert.Equal(t, AIScores{Brand: 4, Visual: 4, Conversion: 4, Trust: 4, A11y: 4}, review.Scores)
	assert.Equal(t, 0.4, review.Confidence)
	assert.True(t, review.Insufficient)
}

func TestAIReviewer_NoBumpForSparsePages(t *testing.T) {
	mock := &MockLLMClient{Response: `{"category_scores": {"brand": 2, "visual": 2, "conversion": 2, "trust": 2, "a11y": 2},
		"insufficient_evidence": true, "confidence": 1.7}`}
	in := reviewInput()
	in.Evidence.TextWordCount = 100

	review := NewAIReviewer(mock, config.DefaultPrompts()).Review(context.Background(), in)
	assert.Equal(t, 10, review.Scores.Total())
	assert.Equal(t, 1.0, review.Confidence)
}

func TestAIReviewer_InvalidJSON(t *testing.T) {
	mock := &MockLLMClient{Response: "I cannot review this site."}
	review := NewAIReviewer(mock, config.DefaultPrompts()).Review(context.Background(), reviewInput())

	assert.Zero(t, review.Scores.Total())
	assert.Zero(t, review.Confidence)
	assert.True(t, review.Insufficient)
	assert.True(t, strings.HasPrefix(review.Justifications["error"], "AI response was not valid JSON:"))
}

func TestAIReviewer_ProviderError(t *testing.T) {
	mock := &MockLLMClient{Err: errors.New("rate limited")}
	review := NewAIReviewer(mock, config.DefaultPrompts()).Review(context.Background(), reviewInput())

	assert.Zero(t, review.Scores.Total())
	assert.Equal(t, "AI scoring failed: rate limited", review.Justifications["error"])
}

func TestCombine(t *testing.T) {
	h := &HeuristicResult{Total: 40, Evidence: model.Evidence{TextWordCount: 300}}
	ai := &AIReview{Scores: AIScores{Brand: 12, Visual: 10, Conversion: 12, Trust: 10, A11y: 12}, Confidence: 0.8}

	r := Combine(h, ai)
	assert.Equal(t, 50, r.AIScore)
	assert.Equal(t, 90, r.FinalScore)
	assert.Equal(t, 0.85, r.Confidence)

	h.Evidence.TextWordCount = 10
	assert.Equal(t, 0.7, Combine(h, ai).Confidence)
}

func TestBuildReasoning_ComponentsSumToTotal(t *testing.T) {
	h := Heuristics(plumberHTML, "https://acme.test/")
	ai := &AIReview{
		Scores:         AIScores{Brand: 9, Visual: 7, Conversion: 10, Trust: 6, A11y: 3},
		Justifications: map[string]string{"visual": "Clean layout", "brand": "Clear offer"},
		Confidence:     0.8,
	}
	r := Combine(h, ai)
	r.RenderPathway = model.PathwayStatic

	reasoning := BuildReasoning(r)
	sum := reasoning.WebsiteQuality.Score + reasoning.DigitalPresence.Score + reasoning.AutomationOpportunity.Score
	assert.Equal(t, reasoning.TotalScore, sum)
	assert.Equal(t, 10+8+7, reasoning.WebsiteQuality.Score)
	assert.Equal(t, 10+8+9, reasoning.DigitalPresence.Score)
	assert.Equal(t, 7+6+10+6, reasoning.AutomationOpportunity.Score)
	assert.Equal(t, "Clean layout", reasoning.WebsiteQuality.Rationale)
	assert.Equal(t, "Improve website conversion elements", reasoning.TopRecommendation)
	assert.Equal(t, "Hybrid score: 49/50 technical + 35/50 UX/brand = 81/100", reasoning.Summary)
	assert.Equal(t, model.ModeHybrid, reasoning.Mode)
	require.NotNil(t, reasoning.HybridBreakdown)
	assert.Equal(t, 3, reasoning.HybridBreakdown.AICategories["a11y"])
	require.NotNil(t, reasoning.Evidence)
	assert.Equal(t, h.Evidence.TextWordCount, reasoning.Evidence.TextWordCount)
}
