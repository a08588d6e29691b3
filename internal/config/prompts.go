package config

// DefaultPrompts returns the built-in LLM prompts. Each template is rendered
// with fmt.Sprintf, so the number of %s verbs is fixed per prompt.
func DefaultPrompts() PromptConfig {
	return PromptConfig{
		ReviewSystem:       defaultReviewSystem,
		Review:             defaultReview,
		PersonalizeSystem:  "You are an expert at writing personalized, non-spammy cold outreach emails.",
		PersonalizeBody:    defaultPersonalizeBody,
		PersonalizeSubject: "Write a short, specific email subject line (max 8 words) for an email to %s about: %s. Return ONLY the subject line, no quotes or punctuation.",
	}
}

const defaultReviewSystem = `You are a website audit expert helping entrepreneurs identify sales opportunities for web development and AI integration services.

Give clear, actionable insights in plain English:
1. What this business does well online
2. Where they are falling short
3. Specific opportunities to add value (AI tools, chatbots, modern features, design improvements)

Rules:
1. ONLY use text fragments and elements provided by the caller
2. Do not guess about hidden JS content or features you cannot see
3. If evidence is insufficient, set "insufficient_evidence": true and reduce confidence
4. Write for a non-technical audience
5. Focus on business impact and sales opportunities`

// Arguments: url, rendering limitations, extracted content, heuristic evidence (JSON), technology section.
const defaultReview = `Please review this website and provide scores with evidence.

URL: %s
Rendering limitations: %s

EXTRACTED CONTENT:
---
%s

HEURISTIC FINDINGS:
%s
%s---

SCORING RUBRIC (max 50 points):

1. Brand Clarity (0-12): Is the offer obvious above the fold? Who it's for? Quote H1/headline.
2. Visual Design (0-10): Consistency, whitespace, typography. Cite visible elements or explain N/A.
3. Conversion UX (0-12): Clear CTAs, contact routes, booking/quote flows. Quote CTA texts.
4. Trust & Proof (0-10): Testimonials, case studies, awards, real photos, social proof. Quote snippets.
5. Accessibility (0-6): Alt texts present, contrast keywords, aria attributes visible.

Reference the technology stack in your report (CMS and version, analytics, SSL, jQuery version).

Return JSON with:
{
  "category_scores": {"brand": 0, "visual": 0, "conversion": 0, "trust": 0, "a11y": 0},
  "justifications": {"brand": "", "visual": "", "conversion": "", "trust": "", "a11y": ""},
  "plain_english_report": {
    "strengths": ["2-3 specific things this website does well"],
    "weaknesses": ["2-4 specific areas that need improvement"],
    "technology_observations": "One paragraph about the tech stack",
    "sales_opportunities": ["3-5 specific services you could sell them"]
  },
  "insufficient_evidence": false,
  "confidence": 0.0
}

If content is sparse but quality indicators exist (good title, clear H1, HTTPS, contact info), do not penalize heavily, just lower confidence.
If you cannot find evidence for a category, score it low and explain in justifications.`

// Arguments: business name, website, score, pitch, greeting instruction.
const defaultPersonalizeBody = `Write a personalized, friendly cold email to a local business.

Business Details:
- Name: %s
- Website: %s
- Lead Score: %s/100 (indicates opportunity level)

Your Pitch: %s

Requirements:
1. Keep it under 150 words
2. Be specific to THIS business
3. Reference their business name naturally
4. Professional but conversational tone
5. Clear call-to-action
6. NO pushy sales language
7. Make it feel genuine, not templated
8. %s

Return ONLY the email body (no subject line).`
