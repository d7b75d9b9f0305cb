package pipeline

import (
	"net/url"
	"strings"

	"github.com/TheoCtla/SmartQA/internal/extractor"
)

// DefaultTrustedDomain is the audit tool's own domain.
const DefaultTrustedDomain = "tarmaac.io"

// trustedReason is recorded when a link is forced valid.
const trustedReason = "Domaine de confiance"

// finalizeLinks forces links to the trusted domain to valid and recomputes
// the summary from the final list.
func finalizeLinks(result Stage4Result, trustedDomain string) Stage4Result {
	for i, link := range result.Links {
		if isTrusted(link.URL, trustedDomain) && link.Verdict != LinkValid {
			result.Links[i].Verdict = LinkValid
			result.Links[i].Reason = trustedReason
		}
	}
	result.Summary = summarizeLinks(result.Links)
	return result
}

func summarizeLinks(links []LinkFinding) LinkSummary {
	summary := LinkSummary{Total: len(links)}
	for _, link := range links {
		switch link.Verdict {
		case LinkValid:
			summary.Valid++
		case LinkSuspect:
			summary.Suspect++
		case LinkToCheck:
			summary.ToCheck++
		}
	}
	return summary
}

func isTrusted(rawURL, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// capLinks keeps the first limit links of a page.
func capLinks(links []extractor.Link, limit int) []extractor.Link {
	if limit > 0 && len(links) > limit {
		return links[:limit]
	}
	if links == nil {
		return []extractor.Link{}
	}
	return links
}
