package scoring

import (
	"fmt"
	"time"

	"github.com/agenthands/leadblitz/internal/core/model"
)

// Result is a complete hybrid score for one website. It is what the score
// cache stores.
type Result struct {
	URL                   string                `json:"url"`
	FinalURL              string                `json:"final_url"`
	FinalScore            int                   `json:"final_score"`
	Confidence            float64               `json:"confidence"`
	HeuristicScore        int                   `json:"heuristic_score"`
	AIScore               int                   `json:"ai_score"`
	Heuristic             *HeuristicResult      `json:"heuristic,omitempty"`
	AI                    *AIReview             `json:"ai_review,omitempty"`
	RenderPathway         string                `json:"render_pathway"`
	RenderingLimitations  bool                  `json:"rendering_limitations"`
	Detection             *FrameworkDetection   `json:"detection,omitempty"`
	Technographics        *model.Technographics `json:"technographics,omitempty"`
	BotBlocked            bool                  `json:"bot_blocked"`
	SophisticationMessage string                `json:"sophistication_message,omitempty"`
	Report                model.SalesReport     `json:"plain_english_report"`
	Errors                []string              `json:"errors,omitempty"`
	Quick                 *QuickResult          `json:"quick,omitempty"`
	Cached                bool                  `json:"cached"`
	ScoredAt              time.Time             `json:"scored_at"`
}

// Unreachable reports a site that could not be fetched or rendered.
func (r *Result) Unreachable() bool {
	return r.RenderPathway == model.PathwayBotBlocked || r.RenderPathway == model.PathwayFetchFailed
}

// Failed reports a result that must not be charged or shown as a score.
func (r *Result) Failed() bool {
	return r.Unreachable() || (r.FinalScore == 0 && (len(r.Errors) > 0 || r.Heuristic == nil))
}

// Apply copies a successful result onto the lead. The lead score is the
// reasoning total so the three components always add up to it.
func (r *Result) Apply(l *model.Lead) {
	reasoning := BuildReasoning(r)
	scoredAt := r.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now()
	}
	l.Score = reasoning.TotalScore
	l.ScoreReasoning = reasoning
	l.HeuristicScore = r.HeuristicScore
	l.AIScore = r.AIScore
	l.ScoreConfidence = r.Confidence
	l.Technographics = r.Technographics
	l.LastScoredAt = &scoredAt
}

// ApplyFailure records an unreachable result: score 0 with the reasoning
// kept so the dashboard can explain it.
func (r *Result) ApplyFailure(l *model.Lead) {
	l.Score = 0
	l.HeuristicScore = 0
	l.AIScore = 0
	l.ScoreReasoning = BuildReasoning(r)
}

// Combine adds the heuristic and AI halves. The AI half is capped at 50.
func Combine(h *HeuristicResult, ai *AIReview) *Result {
	aiTotal := clamp(ai.Scores.Total(), 0, 50)
	hConf := 0.6
	if h.Evidence.TextWordCount > 150 {
		hConf = 0.9
	}
	return &Result{
		FinalScore:           h.Total + aiTotal,
		Confidence:           round2((hConf + ai.Confidence) / 2),
		HeuristicScore:       h.Total,
		AIScore:              aiTotal,
		Heuristic:            h,
		AI:                   ai,
		Report:               ai.Report,
		RenderingLimitations: h.RenderingLimitations,
	}
}

// BuildReasoning maps a result onto the three legacy components. The
// components always sum to TotalScore.
func BuildReasoning(r *Result) *model.ScoreReasoning {
	if r.Quick != nil {
		return r.Quick.ScoreReasoning()
	}
	var hs HeuristicScores
	var as AIScores
	var evidence *model.Evidence
	justifications := map[string]string{}
	if r.Heuristic != nil {
		hs = r.Heuristic.Scores
		ev := r.Heuristic.Evidence
		evidence = &ev
	}
	if r.AI != nil {
		as = r.AI.Scores
		if r.AI.Justifications != nil {
			justifications = r.AI.Justifications
		}
	}

	quality := hs.Mobile + hs.SEO + as.Visual
	presence := hs.Security + hs.Content + as.Brand
	automation := hs.Contact + hs.Tech + as.Conversion + as.Trust
	total := quality + presence + automation

	recommendation := justifications["conversion"]
	if recommendation == "" {
		recommendation = "Improve website conversion elements"
	}

	reasoning := &model.ScoreReasoning{
		Mode:                  model.ModeHybrid,
		TotalScore:            total,
		Confidence:            r.Confidence,
		WebsiteQuality:        model.Component{Score: quality, Rationale: justifications["visual"]},
		DigitalPresence:       model.Component{Score: presence, Rationale: justifications["brand"]},
		AutomationOpportunity: model.Component{Score: automation, Rationale: justifications["conversion"]},
		HybridBreakdown: &model.HybridBreakdown{
			HeuristicScore:      r.HeuristicScore,
			AIScore:             r.AIScore,
			HeuristicCategories: hs.Map(),
			AICategories:        as.Map(),
		},
		Evidence:              evidence,
		AIJustifications:      justifications,
		PlainEnglishReport:    r.Report,
		Summary:               fmt.Sprintf("Hybrid score: %d/50 technical + %d/50 UX/brand = %d/100", r.HeuristicScore, r.AIScore, total),
		TopRecommendation:     recommendation,
		RenderingLimitations:  r.RenderingLimitations,
		RenderPathway:         r.RenderPathway,
		Cached:                r.Cached,
		BotBlocked:            r.BotBlocked,
		SophisticationMessage: r.SophisticationMessage,
		Technographics:        r.Technographics,
		Errors:                r.Errors,
	}
	if reasoning.RenderPathway == "" {
		reasoning.RenderPathway = model.PathwayStatic
	}
	if d := r.Detection; d != nil {
		reasoning.JSDetected = d.JSHeavy
		reasoning.JSConfidence = d.Confidence
		reasoning.FrameworkHints = d.Frameworks
		reasoning.DetectionSignals = d.Signals
	}
	return reasoning
}
