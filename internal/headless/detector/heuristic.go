// Package detector decides when a page needs a headless re-fetch.
package detector

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/TheoCtla/SmartQA/internal/crawler"
)

const (
	defaultBodyThreshold = 2048
	minVisibleTextRunes  = 200
	scriptCoveragePct    = 25
)

var (
	mountPoints = `#root, #app, #__next, #__nuxt, [data-reactroot], [ng-app], [data-server-rendered]`

	noscriptHints = []string{"enable javascript", "activer javascript", "activez javascript"}
)

// Heuristic flags JavaScript shells: empty documents, SPA mount points with
// little server-rendered text, and small documents dominated by scripts.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}

	if len(body) < h.BodyLengthThreshold && scriptCoverage(doc)*100 >= scriptCoveragePct*len(body) {
		return true
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	for _, hint := range noscriptHints {
		if strings.Contains(noscript, hint) {
			return true
		}
	}

	hasMount := doc.Find(mountPoints).Length() > 0
	doc.Find("script, style, noscript, template").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	return hasMount && utf8.RuneCountInString(text) < minVisibleTextRunes
}

// scriptCoverage is the number of markup bytes spent in script elements.
func scriptCoverage(doc *goquery.Document) int {
	total := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		html, err := goquery.OuterHtml(s)
		if err == nil {
			total += len(html)
		}
	})
	return total
}
