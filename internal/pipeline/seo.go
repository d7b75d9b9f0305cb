package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/TheoCtla/SmartQA/internal/crawler"
)

// Meta length bounds, in characters.
const (
	TitleMinLength       = 15
	TitleMaxLength       = 70
	DescriptionMinLength = 50
	DescriptionMaxLength = 170
)

// Alert texts added by the code-side SEO checks.
const (
	alertTitleEmpty           = "Title vide"
	alertDescriptionEmpty     = "Description vide"
	alertTitleDuplicate       = "Title dupliqué"
	alertDescriptionDuplicate = "Description dupliquée"
	alertTitleTooShort        = "Title trop court (%d caractères, minimum %d)"
	alertTitleTooLong         = "Title trop long (%d caractères, maximum %d)"
	alertDescriptionTooShort  = "Description trop courte (%d caractères, minimum %d)"
	alertDescriptionTooLong   = "Description trop longue (%d caractères, maximum %d)"
)

// applySEOChecks aligns the oracle verdict with the crawled metas. Findings
// for URLs that were not crawled are dropped, crawled pages the oracle
// skipped are added, and length and duplicate checks are enforced.
func applySEOChecks(result Stage5Result, metas []crawler.Meta) Stage5Result {
	byURL := make(map[string]MetaFinding, len(result.Metas))
	for _, f := range result.Metas {
		if _, seen := byURL[f.URL]; !seen {
			byURL[f.URL] = f
		}
	}

	titles := duplicateTitles(metas, result.Duplicates.Titles)
	descriptions := duplicateDescriptions(metas, result.Duplicates.Descriptions)
	dupTitle := make(map[string]bool)
	for _, d := range titles {
		for _, u := range d.URLs {
			dupTitle[u] = true
		}
	}
	dupDescription := make(map[string]bool)
	for _, d := range descriptions {
		for _, u := range d.URLs {
			dupDescription[u] = true
		}
	}

	findings := make([]MetaFinding, 0, len(metas))
	seen := make(map[string]bool, len(metas))
	for _, meta := range metas {
		if seen[meta.URL] {
			continue
		}
		seen[meta.URL] = true
		f, ok := byURL[meta.URL]
		if !ok {
			f = MetaFinding{URL: meta.URL, TitleValid: true, DescriptionValid: true}
		}
		f.Title = meta.Title
		f.Description = meta.Description
		if f.Alerts == nil {
			f.Alerts = []string{}
		}
		f = checkLengths(f)
		if dupTitle[meta.URL] {
			f.Alerts = addAlert(f.Alerts, alertTitleDuplicate)
		}
		if dupDescription[meta.URL] {
			f.Alerts = addAlert(f.Alerts, alertDescriptionDuplicate)
		}
		findings = append(findings, f)
	}

	return Stage5Result{
		Metas:      findings,
		Duplicates: Duplicates{Titles: titles, Descriptions: descriptions},
	}
}

func checkLengths(f MetaFinding) MetaFinding {
	title := strings.TrimSpace(f.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		f.TitleValid = false
		f.Alerts = addAlert(f.Alerts, alertTitleEmpty)
	case n < TitleMinLength:
		f.Alerts = addAlert(f.Alerts, fmt.Sprintf(alertTitleTooShort, n, TitleMinLength))
	case n > TitleMaxLength:
		f.Alerts = addAlert(f.Alerts, fmt.Sprintf(alertTitleTooLong, n, TitleMaxLength))
	}
	description := strings.TrimSpace(f.Description)
	switch n := utf8.RuneCountInString(description); {
	case n == 0:
		f.DescriptionValid = false
		f.Alerts = addAlert(f.Alerts, alertDescriptionEmpty)
	case n < DescriptionMinLength:
		f.Alerts = addAlert(f.Alerts, fmt.Sprintf(alertDescriptionTooShort, n, DescriptionMinLength))
	case n > DescriptionMaxLength:
		f.Alerts = addAlert(f.Alerts, fmt.Sprintf(alertDescriptionTooLong, n, DescriptionMaxLength))
	}
	return f
}

func addAlert(alerts []string, alert string) []string {
	if slices.Contains(alerts, alert) {
		return alerts
	}
	return append(alerts, alert)
}

// group is an ordered multimap from a meta value to the URLs carrying it.
type group struct {
	keys []string
	urls map[string][]string
}

func newGroup() *group { return &group{urls: make(map[string][]string)} }

func (g *group) add(key string, urls ...string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	if _, ok := g.urls[key]; !ok {
		g.keys = append(g.keys, key)
	}
	for _, u := range urls {
		if u != "" && !slices.Contains(g.urls[key], u) {
			g.urls[key] = append(g.urls[key], u)
		}
	}
}

// each visits every key shared by at least two URLs, in first-seen order.
func (g *group) each(fn func(key string, urls []string)) {
	for _, k := range g.keys {
		if len(g.urls[k]) > 1 {
			fn(k, g.urls[k])
		}
	}
}

func duplicateTitles(metas []crawler.Meta, fromOracle []DuplicateTitle) []DuplicateTitle {
	g := newGroup()
	for _, m := range metas {
		g.add(m.Title, m.URL)
	}
	for _, d := range fromOracle {
		g.add(d.Title, d.URLs...)
	}
	out := []DuplicateTitle{}
	g.each(func(key string, urls []string) {
		out = append(out, DuplicateTitle{Title: key, URLs: urls})
	})
	return out
}

func duplicateDescriptions(metas []crawler.Meta, fromOracle []DuplicateDescription) []DuplicateDescription {
	g := newGroup()
	for _, m := range metas {
		g.add(m.Description, m.URL)
	}
	for _, d := range fromOracle {
		g.add(d.Description, d.URLs...)
	}
	out := []DuplicateDescription{}
	g.each(func(key string, urls []string) {
		out = append(out, DuplicateDescription{Description: key, URLs: urls})
	})
	return out
}
