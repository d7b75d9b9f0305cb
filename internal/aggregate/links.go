package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

// Link is one link after oracle and HTTP verdicts are reconciled.
type Link struct {
	URL        string               `json:"url"`
	Type       extractor.LinkType   `json:"type,omitempty"`
	Text       string               `json:"texte,omitempty"`
	Verdict    pipeline.LinkVerdict `json:"statut"`
	Reason     string               `json:"raison"`
	Pages      []string             `json:"pages"`
	HTTPStatus linkcheck.Status     `json:"httpStatus,omitempty"`
	HTTPCode   string               `json:"httpCode,omitempty"`
}

// verdictRank orders oracle verdicts from least to most alarming.
func verdictRank(v pipeline.LinkVerdict) int {
	switch v {
	case pipeline.LinkSuspect:
		return 2
	case pipeline.LinkToCheck:
		return 1
	default:
		return 0
	}
}

func failed(s linkcheck.Status) bool {
	return s == linkcheck.StatusBroken || s == linkcheck.StatusError
}

// brokenReason is the raison of a link the prober found broken.
func brokenReason(code string) string {
	return fmt.Sprintf("Lien cassé (%s)", code)
}

// ReconcileLinks joins the stage 4 verdicts on external links with the probe
// results by URL. Tel, mailto and internal findings stay in the stage 4 output.
// A broken or erroring probe wins over the oracle: the link becomes suspect
// and its raison names the HTTP failure. Failed probes the oracle never
// mentioned are added, so no broken link is dropped. The output is sorted by
// URL and does not depend on input order.
func ReconcileLinks(oracleLinks []pipeline.Stage4Result, probed []linkcheck.Probed) []Link {
	byURL := make(map[string]*Link)
	get := func(rawURL string) *Link {
		key := strings.TrimSpace(rawURL)
		l, ok := byURL[key]
		if !ok {
			l = &Link{URL: key, Verdict: pipeline.LinkValid, Pages: []string{}}
			byURL[key] = l
		}
		return l
	}

	for _, page := range oracleLinks {
		path := linkcheck.PagePath(page.PageURL)
		for _, finding := range page.Links {
			if finding.Type != extractor.LinkExternal || strings.TrimSpace(finding.URL) == "" {
				continue
			}
			l := get(finding.URL)
			l.Pages = addPage(l.Pages, path)
			l.Type = pickString(l.Type, finding.Type)
			l.Text = pickString(l.Text, finding.Text)
			mergeVerdict(l, finding.Verdict, finding.Reason)
		}
	}

	for _, p := range probed {
		rawURL := p.Result.URL
		if rawURL == "" {
			rawURL = p.Link.URL
		}
		if strings.TrimSpace(rawURL) == "" {
			continue
		}
		_, known := byURL[strings.TrimSpace(rawURL)]
		if !known && !failed(p.Result.Status) {
			continue
		}
		l := get(rawURL)
		l.Pages = mergePages(l.Pages, p.Link.Pages...)
		l.Text = pickString(l.Text, p.Link.Text)
		if !known {
			l.Type = extractor.LinkExternal
		}
		mergeProbe(l, p.Result)
	}

	out := make([]Link, 0, len(byURL))
	for _, l := range byURL {
		sort.Strings(l.Pages)
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// mergeVerdict keeps the most alarming verdict. Ties keep the smallest
// non-empty reason so the result is order independent.
func mergeVerdict(l *Link, verdict pipeline.LinkVerdict, reason string) {
	switch cur, next := verdictRank(l.Verdict), verdictRank(verdict); {
	case next > cur:
		l.Verdict, l.Reason = verdict, reason
	case next == cur:
		l.Reason = pickString(l.Reason, reason)
	}
}

// mergeProbe records the most severe probe result, then lets a failure
// override the oracle verdict.
func mergeProbe(l *Link, result linkcheck.Result) {
	if l.HTTPStatus == "" || probeWorse(result, l.HTTPStatus, l.HTTPCode) {
		l.HTTPStatus, l.HTTPCode = result.Status, result.Code
	}
	if failed(l.HTTPStatus) {
		l.Verdict = pipeline.LinkSuspect
		l.Reason = brokenReason(l.HTTPCode)
	}
}

func probeWorse(result linkcheck.Result, status linkcheck.Status, code string) bool {
	if failed(result.Status) != failed(status) {
		return failed(result.Status)
	}
	return result.Code < code
}

// pickString returns the smaller of two values, ignoring empty ones.
func pickString[S ~string](cur, next S) S {
	switch {
	case cur == "":
		return next
	case next == "" || cur <= next:
		return cur
	default:
		return next
	}
}
