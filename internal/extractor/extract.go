package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	maxLinkTextRunes = 100
	maxZoneDepth     = 10
	minTextRunes     = 3

	// DefaultOutlineLimit caps the markdown outline in runes.
	DefaultOutlineLimit = 6000
)

var (
	nonContentSelector = "script, style, noscript, iframe, svg"

	reviewSelectors = []string{
		`[class*="avis"], [class*="review"], [class*="reviews"]`,
		`[class*="testimonial"], [class*="testimonials"], [class*="temoignage"], [class*="temoignages"]`,
		`[class*="feedback"], [class*="rating"], [class*="ratings"]`,
		`[class*="customer-comment"], [class*="client-comment"], [class*="user-comment"]`,
		`[class*="opinion"], [class*="recommandation"], [class*="recommendation"]`,
		`[id*="avis"], [id*="review"], [id*="reviews"]`,
		`[id*="testimonial"], [id*="testimonials"], [id*="temoignage"], [id*="temoignages"]`,
		`[id*="feedback"], [id*="rating"], [id*="ratings"]`,
		`[data-section*="avis"], [data-section*="review"], [data-section*="testimonial"]`,
		`.elfsight-app-widget, .trustpilot-widget, .google-reviews, .yotpo-widget`,
		`[class*="widget-avis"], [class*="widget-review"], [class*="widget-rating"]`,
		`.reviews-widget, .avis-verifies, .societe-des-avis-garantis`,
	}

	textSelectors = []string{
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "span", "li", "a", "button", "label",
		"td", "th", "caption", "figcaption", "blockquote",
		"article", "section", "div",
	}

	hiddenStyles = []string{"display:none", "display: none", "visibility:hidden", "visibility: hidden"}
)

// Options configures an Extractor.
type Options struct {
	OutlineLimit int
	Logger       *zap.Logger
}

// Extractor parses HTML into Page values. It is safe for concurrent use.
type Extractor struct {
	outlineLimit int
	converter    *md.Converter
	logger       *zap.Logger
}

// New builds an Extractor.
func New(opts Options) *Extractor {
	if opts.OutlineLimit <= 0 {
		opts.OutlineLimit = DefaultOutlineLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Extractor{
		outlineLimit: opts.OutlineLimit,
		converter:    md.NewConverter("", true, nil),
		logger:       opts.Logger,
	}
}

// Extract parses markup with default options.
func Extract(markup []byte, pageURL, baseHostname string) (Page, error) {
	return New(Options{}).Extract(markup, pageURL, baseHostname)
}

// Extract parses markup fetched from pageURL. Links and metas are read from
// the full document; text and outline are read after noise removal.
func (e *Extractor) Extract(markup []byte, pageURL, baseHostname string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)

	page := Page{
		URL:             pageURL,
		RawHTML:         string(markup),
		Type:            ClassifyPageType(pageURL),
		MetaTitle:       strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		TelLinks:        telLinks(doc),
		MailtoLinks:     mailtoLinks(doc),
		Links:           visibleLinks(doc, base, baseHostname),
	}
	page.InternalLinks = internalLinks(page.Links)

	removeNoise(doc)
	page.Text = collectText(doc)
	page.Outline = e.outline(doc, pageURL)
	return page, nil
}

func telLinks(doc *goquery.Document) []TelLink {
	out := []TelLink{}
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		out = append(out, TelLink{
			Number: strings.TrimSpace(strings.Replace(href, "tel:", "", 1)),
			Text:   strings.TrimSpace(s.Text()),
			Href:   href,
		})
	})
	return out
}

func mailtoLinks(doc *goquery.Document) []MailtoLink {
	out := []MailtoLink{}
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		email := strings.Replace(href, "mailto:", "", 1)
		if i := strings.IndexByte(email, '?'); i >= 0 {
			email = email[:i]
		}
		out = append(out, MailtoLink{
			Email: strings.TrimSpace(email),
			Text:  strings.TrimSpace(s.Text()),
			Href:  href,
		})
	})
	return out
}

func visibleLinks(doc *goquery.Document, base *url.URL, baseHostname string) []Link {
	out := []Link{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if href == "" || href == "#" || isHidden(s) {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = s.AttrOr("title", "")
		}
		out = append(out, Link{
			URL:     resolve(base, href),
			Type:    ClassifyLinkType(href, baseHostname),
			Text:    truncateRunes(text, maxLinkTextRunes),
			FoundIn: DetectZone(s),
		})
	})
	return out
}

// isHidden checks the anchor and its immediate parent only.
func isHidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if hasHiddenStyle(s.AttrOr("style", "")) {
		return true
	}
	return hasHiddenStyle(s.Parent().AttrOr("style", ""))
}

func hasHiddenStyle(style string) bool {
	if style == "" {
		return false
	}
	return containsAny(style, hiddenStyles...)
}

// DetectZone walks up to ten ancestors looking for header, nav or footer markers.
func DetectZone(s *goquery.Selection) Zone {
	current := s
	for i := 0; i < maxZoneDepth; i++ {
		parent := current.Parent()
		if parent.Length() == 0 {
			break
		}
		tag := strings.ToLower(goquery.NodeName(parent))
		class := strings.ToLower(parent.AttrOr("class", ""))
		id := strings.ToLower(parent.AttrOr("id", ""))

		if tag == "header" || tag == "nav" || strings.Contains(class, "header") ||
			strings.Contains(class, "nav") || strings.Contains(id, "header") {
			return ZoneHeader
		}
		if tag == "footer" || strings.Contains(class, "footer") || strings.Contains(id, "footer") {
			return ZoneFooter
		}
		current = parent
	}
	return ZoneMain
}

func resolve(base *url.URL, href string) string {
	lower := strings.ToLower(href)
	if base == nil || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func internalLinks(links []Link) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, l := range links {
		if l.Type != LinkInternal {
			continue
		}
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""
		u.RawFragment = ""
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func removeNoise(doc *goquery.Document) {
	doc.Find(nonContentSelector).Remove()
	for _, sel := range reviewSelectors {
		doc.Find(sel).Remove()
	}
}

// collectText gathers element text selector by selector, keeping the first
// occurrence of each distinct string.
func collectText(doc *goquery.Document) string {
	seen := make(map[string]struct{})
	var texts []string
	for _, sel := range textSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if utf8.RuneCountInString(text) <= minTextRunes {
				return
			}
			if _, ok := seen[text]; ok {
				return
			}
			seen[text] = struct{}{}
			texts = append(texts, text)
		})
	}
	return strings.Join(strings.Fields(strings.Join(texts, "\n")), " ")
}

func (e *Extractor) outline(doc *goquery.Document, pageURL string) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	markup, err := goquery.OuterHtml(body)
	if err != nil {
		e.logger.Debug("outline html failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	markdown, err := e.converter.ConvertString(markup)
	if err != nil {
		e.logger.Debug("outline conversion failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	return truncateRunes(strings.TrimSpace(markdown), e.outlineLimit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
