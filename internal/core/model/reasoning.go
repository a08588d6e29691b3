package model

const (
	ModeHybrid = "hybrid"
	ModeQuick  = "quick"
)

// Render pathways recorded on a score.
const (
	PathwayStatic          = "static"
	PathwayRendered        = "rendered"
	PathwayRenderFailed    = "render_failed"
	PathwayEscalatedRender = "escalated_render"
	PathwayBotBlocked      = "bot_blocked"
	PathwayFetchFailed     = "fetch_failed"
	PathwayQuick           = "quick"
)

type Component struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

type HybridBreakdown struct {
	HeuristicScore      int            `json:"heuristic_score"`
	AIScore             int            `json:"ai_score"`
	HeuristicCategories map[string]int `json:"heuristic_categories"`
	AICategories        map[string]int `json:"ai_categories"`
}

type SalesReport struct {
	Strengths              []string `json:"strengths,omitempty"`
	Weaknesses             []string `json:"weaknesses,omitempty"`
	TechnologyObservations string   `json:"technology_observations,omitempty"`
	SalesOpportunities     []string `json:"sales_opportunities,omitempty"`
}

type ContactSummary struct {
	Emails int      `json:"emails"`
	Phones int      `json:"phones"`
	Forms  []string `json:"forms"`
	CTAs   int      `json:"ctas"`
}

type Evidence struct {
	Viewport        string         `json:"viewport,omitempty"`
	HTTPS           bool           `json:"https,omitempty"`
	PrivacyLinks    []string       `json:"privacy_links,omitempty"`
	Title           string         `json:"title,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	EmailsFound     []string       `json:"emails_found,omitempty"`
	PhonesFound     []string       `json:"phones_found,omitempty"`
	ContactForms    []string       `json:"contact_forms,omitempty"`
	Addresses       []string       `json:"addresses,omitempty"`
	CTAButtons      []string       `json:"cta_buttons,omitempty"`
	CTACount        int            `json:"cta_count,omitempty"`
	ContactItems    []string       `json:"contact_items,omitempty"`
	ContactSummary  ContactSummary `json:"contact_detection_summary"`
	PriorityLinks   []string       `json:"priority_links,omitempty"`
	H1              string         `json:"h1,omitempty"`
	TextWordCount   int            `json:"text_word_count"`
	ImagesSample    []string       `json:"images_sample,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
}

// ScoreReasoning explains a lead score. The three legacy components always
// sum to TotalScore for hybrid scores.
type ScoreReasoning struct {
	Mode                  string            `json:"mode"`
	TotalScore            int               `json:"total_score"`
	Confidence            float64           `json:"confidence"`
	WebsiteQuality        Component         `json:"website_quality"`
	DigitalPresence       Component         `json:"digital_presence"`
	AutomationOpportunity Component         `json:"automation_opportunity"`
	HybridBreakdown       *HybridBreakdown  `json:"hybrid_breakdown,omitempty"`
	Evidence              *Evidence         `json:"evidence,omitempty"`
	AIJustifications      map[string]string `json:"ai_justifications,omitempty"`
	PlainEnglishReport    SalesReport       `json:"plain_english_report"`
	Summary               string            `json:"summary"`
	TopRecommendation     string            `json:"top_recommendation,omitempty"`
	Findings              []string          `json:"findings,omitempty"`
	RenderingLimitations  bool              `json:"rendering_limitations"`
	RenderPathway         string            `json:"render_pathway"`
	JSDetected            bool              `json:"js_detected"`
	JSConfidence          float64           `json:"js_confidence"`
	FrameworkHints        []string          `json:"framework_hints,omitempty"`
	DetectionSignals      []string          `json:"detection_signals,omitempty"`
	Cached                bool              `json:"cached"`
	BotBlocked            bool              `json:"bot_blocked"`
	SophisticationMessage string            `json:"sophistication_message,omitempty"`
	Technographics        *Technographics   `json:"technographics,omitempty"`
	Errors                []string          `json:"errors,omitempty"`
}

type CMS struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

type Analytics struct {
	GoogleAnalytics bool     `json:"google_analytics"`
	MetaPixel       bool     `json:"meta_pixel"`
	Other           []string `json:"other"`
}

type JQuery struct {
	Present bool   `json:"present"`
	Version string `json:"version,omitempty"`
}

type PageBloat struct {
	ExternalScripts     int `json:"external_scripts"`
	ExternalStylesheets int `json:"external_stylesheets"`
	TotalExternal       int `json:"total_external"`
}

type OGTags struct {
	HasTitle bool `json:"has_og_title"`
	HasImage bool `json:"has_og_image"`
}

type Technographics struct {
	CMS              CMS             `json:"cms"`
	CMSVersion       string          `json:"cms_version,omitempty"`
	SSL              bool            `json:"ssl"`
	MobileResponsive bool            `json:"mobile_responsive"`
	Analytics        Analytics       `json:"analytics"`
	JQuery           JQuery          `json:"jquery"`
	CookieConsent    bool            `json:"cookie_consent"`
	SocialLinks      map[string]bool `json:"social_links"`
	PageBloat        PageBloat       `json:"page_bloat"`
	OGTags           OGTags          `json:"og_tags"`
	Favicon          bool            `json:"favicon"`
	Detected         bool            `json:"detected"`
}

type HealthItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

type TechHealth struct {
	Green []HealthItem `json:"green"`
	Amber []HealthItem `json:"amber"`
	Red   []HealthItem `json:"red"`
}
