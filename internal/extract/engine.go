// Package extract turns raw search-result markup into candidate auction
// items. It tries structured selectors first and falls back to scanning
// hyperlinks; pages that carry only template or placeholder content yield
// nothing. The heuristics are tailored to one site and are best-effort.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

// Candidate is a possible auction listing extracted from a page,
// pre-deduplication. EndTime and ImageURL are best-effort and may be empty.
type Candidate struct {
	Title       string
	URL         string
	Price       string
	Description string
	EndTime     string
	ImageURL    string
}

// cardSelectors are tried in priority order; the first one that yields any
// matches wins.
var cardSelectors = []string{
	`[data-testid*="lot"]`,
	`[data-testid*="item"]`,
	`.lot-item`,
	`.auction-item`,
	`.item-card`,
	`[class*="lot-"]`,
	`[class*="item-"]`,
	`.card`,
	`.listing`,
}

// templatePhrases mark a fetched page as placeholder content.
var templatePhrases = []string{
	"no lots found",
	"no auctions found",
	"coming soon",
	"page not found",
	"javascript:void(0)",
}

// navBlocklist holds navigation/UI link texts. Matching is exact and
// case-insensitive, not substring.
var navBlocklist = map[string]struct{}{
	"login":     {},
	"register":  {},
	"sign in":   {},
	"sign up":   {},
	"quick bid": {},
	"bid now":   {},
	"place bid": {},
	"home":      {},
	"about":     {},
	"contact":   {},
	"help":      {},
	"browse":    {},
	"search":    {},
	"filter":    {},
}

// itemPathIndicators mark an href as pointing at a listing.
var itemPathIndicators = []string{"/lot/", "/lots/", "/item/", "/auction/"}

var pricePatterns = []string{"price", "bid", "amount", "cost", "value"}

var whitespaceRe = regexp.MustCompile(`\s+`)

type Engine struct {
	baseURL string
	logger  *observability.Logger
}

func NewEngine(baseURL string, logger *observability.Logger) *Engine {
	return &Engine{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Extract parses markup fetched from sourceURL and returns at most limit
// candidates. A template page or unparseable markup yields an empty slice.
func (e *Engine) Extract(html, sourceURL string, limit int) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("Failed to parse HTML", "source_url", sourceURL, "error", err.Error())
		return nil
	}

	if e.isTemplatePage(doc) {
		e.logger.Debug("Template page detected", "source_url", sourceURL)
		return nil
	}

	candidates := e.extractStructured(doc)
	if len(candidates) == 0 {
		e.logger.Debug("No structured elements found, trying link fallback", "source_url", sourceURL)
		candidates = e.extractFromLinks(doc)
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// isTemplatePage reports whether the page carries only placeholder content:
// almost no visible text, or one of the known "no results" phrases.
func (e *Engine) isTemplatePage(doc *goquery.Document) bool {
	clone := doc.Selection.Clone()
	clone.Find("script, style").Remove()
	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(clone.Text(), " "))

	if len(text) < 100 {
		return true
	}

	lower := strings.ToLower(text)
	for _, phrase := range templatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (e *Engine) extractStructured(doc *goquery.Document) []Candidate {
	var elements *goquery.Selection
	for _, selector := range cardSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			e.logger.Debug("Selector matched", "selector", selector, "count", found.Length())
			elements = found
			break
		}
	}
	if elements == nil {
		return nil
	}

	var candidates []Candidate
	elements.Each(func(_ int, sel *goquery.Selection) {
		if c, ok := e.candidateFromElement(sel); ok {
			candidates = append(candidates, c)
		}
	})
	return candidates
}

func (e *Engine) candidateFromElement(sel *goquery.Selection) (Candidate, bool) {
	title := extractTitle(sel)
	if title == "" || isSyntheticTitle(title) || isNavPhrase(title) {
		return Candidate{}, false
	}

	href := extractHref(sel)
	if href == "" || strings.Contains(href, "javascript:void(0)") {
		return Candidate{}, false
	}

	return Candidate{
		Title:       title,
		URL:         e.resolveURL(href),
		Price:       extractPrice(sel),
		Description: truncate(strings.TrimSpace(sel.Text()), 200),
	}, true
}

// extractFromLinks is the fallback pass: every hyperlink whose href looks
// like a listing path and whose text is a plausible title.
func (e *Engine) extractFromLinks(doc *goquery.Document) []Candidate {
	var candidates []Candidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())

		if !looksLikeItemLink(href, text) {
			return
		}
		if isSyntheticTitle(text) {
			return
		}

		candidates = append(candidates, Candidate{
			Title:       truncate(text, 100),
			URL:         e.resolveURL(href),
			Description: text,
		})
	})
	return candidates
}

func looksLikeItemLink(href, text string) bool {
	if strings.Contains(href, "javascript:void(0)") {
		return false
	}
	if len(text) <= 5 || isNavPhrase(text) {
		return false
	}
	for _, indicator := range itemPathIndicators {
		if strings.Contains(href, indicator) {
			return true
		}
	}
	return false
}

func extractTitle(sel *goquery.Selection) string {
	cascade := []string{
		"h1, h2, h3, h4, h5, h6",
		`[class*="title"]`,
		"strong, b",
		"span",
	}
	for _, selector := range cascade {
		title := strings.TrimSpace(sel.Find(selector).First().Text())
		if len(title) > 3 {
			return title
		}
	}
	if goquery.NodeName(sel) == "a" {
		title := strings.TrimSpace(sel.Text())
		if len(title) > 3 {
			return title
		}
	}
	return ""
}

func extractHref(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "a" {
		href, _ := sel.Attr("href")
		return href
	}
	href, _ := sel.Find("a[href]").First().Attr("href")
	return href
}

func extractPrice(sel *goquery.Selection) string {
	for _, pattern := range pricePatterns {
		text := strings.TrimSpace(sel.Find(`[class*="` + pattern + `"]`).First().Text())
		if text != "" && strings.ContainsAny(text, "0123456789") {
			return text
		}
	}
	return ""
}

// isSyntheticTitle drops titles that are obviously fake or injected by
// test fixtures on the site.
func isSyntheticTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "mock") || strings.Contains(lower, "test")
}

func isNavPhrase(text string) bool {
	_, ok := navBlocklist[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// resolveURL makes an href absolute against the site base. Root-relative
// paths join directly; bare paths get a separating slash.
func (e *Engine) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return e.baseURL + href
	}
	return e.baseURL + "/" + href
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
