package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/core/model"
)

const (
	quickBase      = 50
	quickMin       = 15
	quickMax       = 95
	quickEmpty     = 25
	quickUnreached = 35

	// QuickMaxBody is the default body cap for checklist fetches.
	QuickMaxBody = 100 * 1024
)

// Score statuses set by the quick checklist loop.
const (
	StatusScored           = "scored"
	StatusScoredWithIssues = "scored_with_issues"
)

// QuickScore runs the fixed checklist over a page. Reasons are returned in the
// order the rules are checked.
func QuickScore(html, url string) (int, []string) {
	if html == "" {
		return quickEmpty, []string{"Website inaccessible or no content found"}
	}

	score := quickBase
	var reasons []string
	lower := strings.ToLower(html)

	if strings.HasPrefix(url, "https://") {
		score += 10
		reasons = append(reasons, "SSL certificate active (+10)")
	} else {
		score -= 10
		reasons = append(reasons, "No SSL certificate (-10)")
	}

	if containsAny(lower, "viewport", "responsive", "@media") {
		score += 8
		reasons = append(reasons, "Mobile responsive design indicators (+8)")
	}

	if containsAny(lower, "react", "vue", "angular", "bootstrap") {
		score += 5
		reasons = append(reasons, "Modern web technologies detected (+5)")
	}

	if strings.Contains(lower, "<title>") && !strings.Contains(lower, "<title></title>") {
		score += 3
		reasons = append(reasons, "Title tag present")
	}
	if strings.Contains(lower, `meta name="description"`) {
		score += 3
		reasons = append(reasons, "Meta description present")
	}
	if strings.Contains(lower, "<h1>") {
		score += 3
		reasons = append(reasons, "H1 headings present")
	}

	if containsAny(lower, "contact", "email", "@") {
		score += 5
		reasons = append(reasons, "Contact information visible (+5)")
	}

	if containsAny(lower, "facebook", "twitter", "linkedin", "instagram") {
		score += 3
		reasons = append(reasons, "Social media presence (+3)")
	}

	if containsAny(lower, "portfolio", "work", "projects", "case stud") {
		score += 8
		reasons = append(reasons, "Portfolio/work examples visible (+8)")
	}

	if len(html) > 200000 {
		score -= 5
		reasons = append(reasons, "Large page size may affect load times (-5)")
	}

	if strings.Contains(lower, "jquery") {
		score += 2
		reasons = append(reasons, "jQuery library detected (+2)")
	}

	return clamp(score, quickMin, quickMax), reasons
}

// QuickReasoning renders the checklist result as prose.
func QuickReasoning(score int, reasons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website scored %d/100. ", score)
	switch {
	case score >= 80:
		b.WriteString("Excellent website with strong technical foundation. ")
	case score >= 65:
		b.WriteString("Good website with solid fundamentals. ")
	case score >= 50:
		b.WriteString("Decent website with room for improvement. ")
	case score >= 35:
		b.WriteString("Basic website with several areas needing attention. ")
	default:
		b.WriteString("Website needs significant improvements. ")
	}
	b.WriteString("Key findings: ")
	b.WriteString(strings.Join(reasons, ", "))
	b.WriteString(".")
	return b.String()
}

// QuickResult is the checklist outcome for one website.
type QuickResult struct {
	Score      int
	Reasoning  string
	Reasons    []string
	Status     string
	FailReason string
}

// QuickScorer fetches a single page and applies the checklist. It never
// calls an LLM. Any response is scored, error pages included; only a
// transport failure falls back to the unreachable score.
type QuickScorer struct {
	fetcher *fetch.Fetcher
}

func NewQuickScorer(timeout time.Duration, maxBody int) *QuickScorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBody <= 0 {
		maxBody = QuickMaxBody
	}
	return &QuickScorer{fetcher: fetch.New(fetch.Options{Timeout: timeout, Retries: 1, MaxBodySize: maxBody, KeepErrorBodies: true})}
}

func (q *QuickScorer) Score(ctx context.Context, url string) *QuickResult {
	res := q.fetcher.Fetch(ctx, url)
	if res.Status == 0 {
		reason := "no response"
		if len(res.Errors) > 0 {
			reason = res.Errors[len(res.Errors)-1]
		}
		return &QuickResult{
			Score:      quickUnreached,
			Reasoning:  "Unable to access website for analysis. " + reason,
			Status:     StatusScoredWithIssues,
			FailReason: reason,
		}
	}
	score, reasons := QuickScore(res.HTML, url)
	return &QuickResult{
		Score:     score,
		Reasoning: QuickReasoning(score, reasons),
		Reasons:   reasons,
		Status:    StatusScored,
	}
}

// QuickPipeline serves the checklist wherever a hybrid scorer is expected.
type QuickPipeline struct {
	Quick *QuickScorer
}

func (p QuickPipeline) Score(ctx context.Context, url string, _ bool) *Result {
	res := p.Quick.Score(ctx, url)
	r := &Result{
		URL:            url,
		FinalURL:       url,
		FinalScore:     res.Score,
		Confidence:     0.5,
		HeuristicScore: res.Score,
		RenderPathway:  model.PathwayQuick,
		Quick:          res,
		ScoredAt:       time.Now(),
	}
	if res.FailReason != "" {
		r.Errors = []string{res.FailReason}
		r.RenderingLimitations = true
	}
	return r
}

// ScoreReasoning converts a checklist result into the structured form stored on
// leads. Components are split 30/30/40 so they still sum to the total.
func (r *QuickResult) ScoreReasoning() *model.ScoreReasoning {
	quality := r.Score * 30 / 100
	presence := r.Score * 30 / 100
	return &model.ScoreReasoning{
		Mode:                  model.ModeQuick,
		TotalScore:            r.Score,
		Confidence:            0.5,
		WebsiteQuality:        model.Component{Score: quality, Rationale: "Quick checklist"},
		DigitalPresence:       model.Component{Score: presence, Rationale: "Quick checklist"},
		AutomationOpportunity: model.Component{Score: r.Score - quality - presence, Rationale: "Quick checklist"},
		Summary:               r.Reasoning,
		Findings:              r.Reasons,
		RenderPathway:         model.PathwayQuick,
		RenderingLimitations:  r.Status != StatusScored,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
