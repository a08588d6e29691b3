// Package scoring rates lead websites out of 100, either with a fixed
// checklist or with deterministic heuristics plus an LLM review.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agenthands/leadblitz/internal/core/cache"
	"github.com/agenthands/leadblitz/internal/core/fetch"
	"github.com/agenthands/leadblitz/internal/core/model"
	"go.uber.org/zap"
)

const contentChars = 6000

var blockIndicators = []string{"403 - forbidden", "403 forbidden", "access denied", "access to this page is forbidden",
	"blocked", "captcha", "cloudflare", "challenge-platform", "ray id"}

// SophisticationMessage explains a bot-blocked result to the user.
const SophisticationMessage = "ADVANCED SECURITY DETECTED: This website uses enterprise-grade bot protection " +
	"(likely Cloudflare, Akamai, or similar). This usually indicates a well-funded organization " +
	"with strong cybersecurity practices. We cannot automatically score this site, but advanced " +
	"security suggests professional IT infrastructure and an existing modern web architecture, so it " +
	"may not be an ideal target for basic web services. Recommendation: review this website manually."

// ScorerConfig wires a Scorer. Renderer, Reviewer and Cache are optional.
type ScorerConfig struct {
	Fetcher  *fetch.Fetcher
	Renderer fetch.Renderer
	Reviewer Reviewer
	Cache    cache.Cache
	MaxPages int
	Logger   *zap.Logger
}

// Scorer runs the hybrid pipeline: fetch, optional render, heuristics,
// review and combine.
type Scorer struct {
	fetcher  *fetch.Fetcher
	renderer fetch.Renderer
	reviewer Reviewer
	cache    cache.Cache
	maxPages int
	logger   *zap.Logger
	now      func() time.Time
}

func NewScorer(cfg ScorerConfig) *Scorer {
	s := &Scorer{
		fetcher:  cfg.Fetcher,
		renderer: cfg.Renderer,
		reviewer: cfg.Reviewer,
		cache:    cfg.Cache,
		maxPages: cfg.MaxPages,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.Options{})
	}
	if s.reviewer == nil {
		s.reviewer = noReview{}
	}
	if s.maxPages <= 0 {
		s.maxPages = 3
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Score rates one website. It never fails: unreachable sites come back with
// a zero score and a bot_blocked or fetch_failed pathway.
func (s *Scorer) Score(ctx context.Context, url string, useCache bool) *Result {
	log := s.logger.With(zap.String("url", url))

	if useCache && s.cache != nil {
		var cached Result
		err := s.cache.Get(ctx, url, &cached)
		switch {
		case err == nil:
			cached.Cached = true
			log.Debug("score cache hit")
			return &cached
		case !errors.Is(err, cache.ErrMiss):
			log.Warn("score cache read failed", zap.Error(err))
		}
	}

	site := s.fetcher.FetchPages(ctx, url, s.maxPages)
	finalURL := site.FinalURL
	if finalURL == "" {
		finalURL = url
	}
	html := site.CombinedHTML
	blocked := site.Status == http.StatusForbidden || site.Status == http.StatusUnauthorized || site.Status == http.StatusTooManyRequests
	rendered := false
	var errs []string

	if html == "" || blocked || site.Status == http.StatusAccepted {
		log.Info("static fetch failed, trying render", zap.Int("status", site.Status))
		if res, err := s.render(ctx, finalURL); err != nil {
			errs = append(errs, err.Error())
		} else if res.HTML != "" {
			if isBlockPage(res.HTML) {
				blocked = true
			} else {
				html = res.HTML
				rendered = true
				blocked = false
			}
		}
		if html == "" || blocked {
			return s.unreachable(url, finalURL, blocked, append(site.Errors, errs...))
		}
	}

	detection := DetectFramework(html)
	pathway := model.PathwayStatic
	if rendered {
		pathway = model.PathwayRendered
	} else if detection.JSHeavy {
		res, err := s.render(ctx, finalURL)
		switch {
		case err != nil:
			pathway = model.PathwayRenderFailed
			errs = append(errs, err.Error())
		case res.HTML != "":
			html = res.HTML
			pathway = model.PathwayRendered
		}
	}

	heuristic := Heuristics(html, finalURL)

	if pathway != model.PathwayRendered && s.shouldEscalate(heuristic) {
		if escalated := s.escalate(ctx, finalURL, heuristic, site); len(escalated) > len(html) {
			log.Info("escalated render improved content")
			html = escalated
			pathway = model.PathwayEscalatedRender
			heuristic = Heuristics(html, finalURL)
		}
	}

	content := ExtractContent(html, contentChars)
	tech := DetectTechnographics(html, finalURL)
	limited := heuristic.RenderingLimitations || (detection.JSHeavy && pathway != model.PathwayRendered)

	review := s.reviewer.Review(ctx, ReviewInput{
		URL:                  finalURL,
		Content:              content,
		Evidence:             heuristic.Evidence,
		RenderingLimitations: limited,
		Technographics:       tech,
	})

	result := Combine(heuristic, review)
	result.URL = url
	result.FinalURL = finalURL
	result.RenderPathway = pathway
	result.RenderingLimitations = limited
	result.Detection = detection
	result.Technographics = tech
	result.Errors = errs
	result.ScoredAt = s.now()

	log.Info("website scored",
		zap.Int("score", result.FinalScore),
		zap.Int("heuristic", result.HeuristicScore),
		zap.Int("ai", result.AIScore),
		zap.String("pathway", pathway))

	if useCache && s.cache != nil {
		if err := s.cache.Set(ctx, url, result); err != nil {
			log.Warn("score cache write failed", zap.Error(err))
		}
	}
	return result
}

func (s *Scorer) render(ctx context.Context, url string) (*fetch.Result, error) {
	if s.renderer == nil {
		return nil, errors.New("render unavailable: no browser configured")
	}
	res, err := s.renderer.Render(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return res, nil
}

func (s *Scorer) shouldEscalate(h *HeuristicResult) bool {
	if s.renderer == nil {
		return false
	}
	words := h.Evidence.TextWordCount
	sum := h.Evidence.ContactSummary
	return (h.Scores.Contact < 3 && words > 200) || (sum.Emails == 0 && len(sum.Forms) == 0 && words > 100)
}

// escalate renders the homepage and up to two contact-like pages and joins
// them with markers.
func (s *Scorer) escalate(ctx context.Context, finalURL string, h *HeuristicResult, site *fetch.Site) string {
	seen := map[string]bool{}
	var links []string
	for _, l := range append(append([]string{}, h.Evidence.PriorityLinks...), site.PriorityLinks...) {
		if !seen[l] {
			seen[l] = true
			links = append(links, l)
		}
	}

	pages := []string{finalURL}
	for _, l := range head(links, 2) {
		if containsAny(strings.ToLower(l), "contact", "quote", "enquir") {
			pages = append(pages, l)
		}
	}

	var b strings.Builder
	for _, u := range pages {
		res, err := s.render(ctx, u)
		if err != nil || res.HTML == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n<!-- Rendered: %s -->\n%s", u, res.HTML)
	}
	return b.String()
}

func (s *Scorer) unreachable(url, finalURL string, blocked bool, errs []string) *Result {
	r := &Result{
		URL:                  url,
		FinalURL:             finalURL,
		Confidence:           0.3,
		RenderingLimitations: true,
		RenderPathway:        model.PathwayFetchFailed,
		Errors:               errs,
		ScoredAt:             s.now(),
	}
	if blocked {
		r.RenderPathway = model.PathwayBotBlocked
		r.BotBlocked = true
		r.SophisticationMessage = SophisticationMessage
		r.Report = model.SalesReport{
			Strengths:              []string{"Website has enterprise-grade security measures"},
			Weaknesses:             []string{},
			TechnologyObservations: SophisticationMessage,
			SalesOpportunities:     []string{"May not be an ideal prospect - sophisticated IT already in place"},
		}
	}
	s.logger.Info("website unreachable", zap.String("url", url), zap.String("pathway", r.RenderPathway), zap.Strings("errors", errs))
	return r
}

// isBlockPage reports a short page that looks like a bot challenge.
func isBlockPage(html string) bool {
	return len(html) < 20000 && containsAny(strings.ToLower(html), blockIndicators...)
}
