package extractor

import (
	"net/url"
	"strings"
)

// ClassifyPageType maps a URL to a PageType using substrings of its lowercased path.
func ClassifyPageType(rawURL string) PageType {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return PageOther
	}
	path := strings.ToLower(u.Path)
	switch {
	case path == "/" || path == "":
		return PageHome
	case containsAny(path, "mentions-legales", "mentions_legales", "legal"):
		return PageLegal
	case containsAny(path, "politique-de-confidentialite", "privacy", "confidentialite"):
		return PagePrivacy
	case strings.Contains(path, "cookie"):
		return PageCookies
	case containsAny(path, "cgu", "cgv", "conditions-generales", "terms"):
		return PageTerms
	default:
		return PageInternal
	}
}

// IsLegalPage reports whether t is one of the legal page types.
func IsLegalPage(t PageType) bool {
	return t.IsLegal()
}

// ClassifyLinkType classifies href relative to the audited hostname.
// The first matching rule wins.
func ClassifyLinkType(href, baseHostname string) LinkType {
	if href == "" {
		return LinkUnknown
	}
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "tel:"):
		return LinkTel
	case strings.HasPrefix(lower, "mailto:"):
		return LinkMailto
	case strings.HasPrefix(lower, "#"):
		return LinkAnchor
	case strings.HasPrefix(lower, "javascript:"):
		return LinkJSRedirect
	case containsAny(lower, "google.com/maps", "maps.google", "goo.gl/maps"):
		return LinkMaps
	}

	if u, err := url.Parse(href); err == nil && (u.Scheme != "" || u.Host != "") {
		if SameSite(u.Hostname(), baseHostname) {
			return LinkInternal
		}
		return LinkExternal
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") {
		return LinkInternal
	}
	return LinkUnknown
}

// SameSite compares two hostnames ignoring case and a leading "www.".
func SameSite(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return stripWWW(a) == stripWWW(b)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
