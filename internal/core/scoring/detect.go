package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type signature struct {
	framework string
	markers   []string
}

var (
	frameworkSignatures = []signature{
		{"React", []string{"data-reactroot", "data-reactid", `id="root"`, `id="__next"`, "_next/static", "react-dom", "React.createElement"}},
		{"Vue", []string{"data-v-", `id="app"`, "vue.js", "vuejs", "__NUXT__"}},
		{"Angular", []string{"ng-app", "ng-version", "[ng-", "angular.min.js", "data-ng-"}},
		{"Svelte", []string{"svelte", "_svelte"}},
		{"Gatsby", []string{"gatsby", "___gatsby", "gatsby-react-router"}},
	}

	buildPatterns = []*regexp.Regexp{
		regexp.MustCompile(`webpack`),
		regexp.MustCompile(`vite`),
		regexp.MustCompile(`\.chunk\.js`),
		regexp.MustCompile(`bundle\.js`),
		regexp.MustCompile(`app\.[a-z0-9]+\.js`),
		regexp.MustCompile(`main\.[a-z0-9]+\.js`),
		regexp.MustCompile(`vendor\.[a-z0-9]+\.js`),
	}

	hydrationMarkers = []string{"data-reactroot", "data-server-rendered", "dehydrated", "hydrate", "__INITIAL_STATE__", "__PRELOADED_STATE__"}

	rootContainer = regexp.MustCompile(`^(root|app|__next|___gatsby)$`)
)

// FrameworkDetection says whether a page is a client-rendered shell that
// needs a browser to show its content.
type FrameworkDetection struct {
	JSHeavy     bool     `json:"is_js_heavy"`
	Confidence  float64  `json:"confidence"`
	Signals     []string `json:"signals"`
	Frameworks  []string `json:"framework_hints"`
	WordCount   int      `json:"text_word_count"`
	ScriptCount int      `json:"script_count"`
	ScriptRatio float64  `json:"script_ratio"`
}

func DetectFramework(html string) *FrameworkDetection {
	d := &FrameworkDetection{}
	lower := strings.ToLower(html)
	conf := 0.0

	for _, sig := range frameworkSignatures {
		for _, m := range sig.markers {
			if strings.Contains(lower, strings.ToLower(m)) {
				d.Frameworks = append(d.Frameworks, sig.framework)
				d.Signals = append(d.Signals, fmt.Sprintf("Framework signature: %s (%s)", sig.framework, m))
				conf += 0.15
				break
			}
		}
	}

	for _, p := range buildPatterns {
		if p.MatchString(lower) {
			d.Signals = append(d.Signals, "Build artifact detected: "+p.String())
			conf += 0.1
			break
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		d.Confidence = round2(math.Min(conf, 1))
		d.JSHeavy = d.Confidence >= 0.5
		return d
	}

	stripped := goquery.CloneDocument(doc)
	stripped.Find("script, style, noscript").Remove()
	d.WordCount = len(strings.Fields(stripped.Text()))

	scripts := doc.Find("script")
	d.ScriptCount = scripts.Length()
	scriptSize := 0
	scripts.Each(func(_ int, s *goquery.Selection) {
		scriptSize += len(s.Text())
	})
	if len(html) > 0 {
		d.ScriptRatio = float64(scriptSize) / float64(len(html))
	}

	for _, m := range hydrationMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			d.Signals = append(d.Signals, "Hydration marker: "+m)
			conf += 0.1
		}
	}

	if d.WordCount < 120 {
		d.Signals = append(d.Signals, fmt.Sprintf("Low text content: %d words", d.WordCount))
		conf += 0.2
	}
	if d.WordCount < 50 {
		d.Signals = append(d.Signals, "Very sparse HTML - likely SPA shell")
		conf += 0.3
	}

	if d.ScriptRatio > 0.4 {
		d.Signals = append(d.Signals, fmt.Sprintf("High script ratio: %.1f%%", d.ScriptRatio*100))
		conf += 0.15
	}
	if d.ScriptRatio > 0.6 {
		d.Signals = append(d.Signals, "Extremely high script ratio")
		conf += 0.15
	}

	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if rootContainer.MatchString(id) && len(strings.TrimSpace(s.Text())) < 50 {
			d.Signals = append(d.Signals, "Empty root container: "+id)
			conf += 0.2
		}
	})

	doc.Find("noscript").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if containsAny(strings.ToLower(s.Text()), "javascript", "enable", "required", "need") {
			d.Signals = append(d.Signals, "Noscript warning detected")
			conf += 0.15
			return false
		}
		return true
	})

	d.Confidence = round2(math.Min(conf, 1))
	d.ScriptRatio = math.Round(d.ScriptRatio*1000) / 1000
	d.JSHeavy = conf >= 0.5 || (d.WordCount < 100 && d.ScriptRatio > 0.3)
	return d
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
