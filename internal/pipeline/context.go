package pipeline

import (
	"net/url"
	"strings"
	"time"
)

// ReferenceDateLayout formats the reference date given to prompts.
const ReferenceDateLayout = "2006-01-02"

// AnalysisContext is what the requester declares about the audited business.
// Expected values are optional; empty means unknown.
type AnalysisContext struct {
	URL             string   `json:"url"`
	Company         string   `json:"entreprise"`
	Activity        string   `json:"activite"`
	ExpectedPhone   string   `json:"telephone_attendu,omitempty"`
	ExpectedManager string   `json:"gerant_attendu,omitempty"`
	ExpectedCity    string   `json:"ville_attendue,omitempty"`
	ExpectedAddress string   `json:"adresse_attendue,omitempty"`
	ExpectedSIRET   string   `json:"siret_attendu,omitempty"`
	ExpectedEmail   string   `json:"email_attendu,omitempty"`
	ExpectedDomains []string `json:"domaines_attendus,omitempty"`
	OfferKeywords   string   `json:"mots_cles_offre,omitempty"`
	Details         string   `json:"details,omitempty"`
	MaxPages        int      `json:"max_pages,omitempty"`
}

// pageTheme derives the theme of a page from the last path segment.
// The home page has no theme.
func pageTheme(rawURL string) (theme string, home bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", true
	}
	path := u.Path
	if path == "" || path == "/" {
		return "", true
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return "", true
	}
	last := segments[len(segments)-1]
	return strings.NewReplacer("-", " ", "_", " ").Replace(last), false
}

func pagePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func referenceDate(now time.Time) string {
	return now.Format(ReferenceDateLayout)
}

// truncateRunes keeps at most limit runes of s. A non-positive limit keeps everything.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
