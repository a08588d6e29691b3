package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenthands/leadblitz/internal/config"
	"github.com/agenthands/leadblitz/internal/core/common"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/llm"
)

// AIScores holds the reviewer categories. Maximums are brand 12, visual 10,
// conversion 12, trust 10, a11y 6.
type AIScores struct {
	Brand      int `json:"brand"`
	Visual     int `json:"visual"`
	Conversion int `json:"conversion"`
	Trust      int `json:"trust"`
	A11y       int `json:"a11y"`
}

func (s AIScores) Total() int {
	return s.Brand + s.Visual + s.Conversion + s.Trust + s.A11y
}

func (s AIScores) Map() map[string]int {
	return map[string]int{
		"brand":      s.Brand,
		"visual":     s.Visual,
		"conversion": s.Conversion,
		"trust":      s.Trust,
		"a11y":       s.A11y,
	}
}

type AIReview struct {
	Scores         AIScores          `json:"category_scores"`
	Justifications map[string]string `json:"justifications"`
	Report         model.SalesReport `json:"plain_english_report"`
	Insufficient   bool              `json:"insufficient_evidence"`
	Confidence     float64           `json:"confidence"`
}

type reviewResponse struct {
	CategoryScores struct {
		Brand      float64 `json:"brand"`
		Visual     float64 `json:"visual"`
		Conversion float64 `json:"conversion"`
		Trust      float64 `json:"trust"`
		A11y       float64 `json:"a11y"`
	} `json:"category_scores"`
	Justifications       map[string]string `json:"justifications"`
	PlainEnglishReport   model.SalesReport `json:"plain_english_report"`
	InsufficientEvidence bool              `json:"insufficient_evidence"`
	Confidence           *float64          `json:"confidence"`
}

// Reviewer scores the qualitative side of a site.
type Reviewer interface {
	Review(ctx context.Context, in ReviewInput) *AIReview
}

type ReviewInput struct {
	URL                  string
	Content              *SiteContent
	Evidence             model.Evidence
	RenderingLimitations bool
	Technographics       *model.Technographics
}

type AIReviewer struct {
	LLM     llm.LLMClient
	Prompts config.PromptConfig
}

func NewAIReviewer(client llm.LLMClient, prompts config.PromptConfig) *AIReviewer {
	return &AIReviewer{LLM: client, Prompts: prompts}
}

// Review asks the LLM for category scores. Failures never return an error:
// they produce zero scores with confidence 0 and the reason under
// justifications["error"].
func (r *AIReviewer) Review(ctx context.Context, in ReviewInput) *AIReview {
	limitations := "No"
	if in.RenderingLimitations {
		limitations = "Yes - content may be incomplete due to JavaScript"
	}
	evidence, err := json.MarshalIndent(in.Evidence, "", "  ")
	if err != nil {
		return failedReview(fmt.Sprintf("AI scoring failed: %v", err))
	}
	content := ""
	if in.Content != nil {
		content = in.Content.Prompt()
	}
	prompt := fmt.Sprintf(r.Prompts.Review, in.URL, limitations, content, evidence, TechSection(in.Technographics))

	response, err := r.LLM.Generate(ctx, llm.Request{
		System:      r.Prompts.ReviewSystem,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return failedReview(fmt.Sprintf("AI scoring failed: %v", err))
	}

	parsed, err := common.ParseJSON[reviewResponse](response)
	if err != nil {
		return failedReview(fmt.Sprintf("AI response was not valid JSON: %v", err))
	}

	cs := parsed.CategoryScores
	review := &AIReview{
		Scores: AIScores{
			Brand:      clamp(int(cs.Brand), 0, 12),
			Visual:     clamp(int(cs.Visual), 0, 10),
			Conversion: clamp(int(cs.Conversion), 0, 12),
			Trust:      clamp(int(cs.Trust), 0, 10),
			A11y:       clamp(int(cs.A11y), 0, 6),
		},
		Justifications: parsed.Justifications,
		Report:         parsed.PlainEnglishReport,
		Insufficient:   parsed.InsufficientEvidence,
		Confidence:     0.7,
	}
	if parsed.Confidence != nil {
		review.Confidence = *parsed.Confidence
	}
	review.Confidence = clampFloat(review.Confidence, 0, 1)

	// thin reviews of wordy pages are lifted toward 20
	if total := review.Scores.Total(); review.Insufficient && total < 20 && in.Evidence.TextWordCount > 150 {
		adj := float64(20-total) / 5
		s := &review.Scores
		s.Brand = int(float64(s.Brand) + adj)
		s.Visual = int(float64(s.Visual) + adj)
		s.Conversion = int(float64(s.Conversion) + adj)
		s.Trust = int(float64(s.Trust) + adj)
		s.A11y = int(float64(s.A11y) + adj)
	}
	return review
}

func failedReview(reason string) *AIReview {
	return &AIReview{
		Justifications: map[string]string{"error": reason},
		Insufficient:   true,
		Confidence:     0,
	}
}

// noReview stands in when no LLM is configured.
type noReview struct{}

func (noReview) Review(context.Context, ReviewInput) *AIReview {
	return &AIReview{
		Justifications: map[string]string{"error": "AI review disabled: no LLM configured"},
		Insufficient:   true,
		Confidence:     0.6,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
