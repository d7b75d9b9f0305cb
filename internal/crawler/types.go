package crawler

import "github.com/TheoCtla/SmartQA/internal/extractor"

// Meta is the title and description of one crawled page.
type Meta struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SourcedLink is a link together with the page it was found on.
type SourcedLink struct {
	extractor.Link
	PageURL string `json:"page_url"`
}

// SiteSnapshot is everything the crawl produced, pages in crawl order.
type SiteSnapshot struct {
	BaseURL      string           `json:"base_url"`
	BaseHostname string           `json:"base_hostname"`
	Pages        []extractor.Page `json:"pages"`
	Metas        []Meta           `json:"all_metas"`
	Links        []SourcedLink    `json:"all_liens"`
}

// ExternalLinks returns the aggregated links of type external.
func (s SiteSnapshot) ExternalLinks() []SourcedLink {
	var out []SourcedLink
	for _, l := range s.Links {
		if l.Type == extractor.LinkExternal {
			out = append(out, l)
		}
	}
	return out
}

func (s *SiteSnapshot) add(page extractor.Page) {
	s.Pages = append(s.Pages, page)
	s.Metas = append(s.Metas, Meta{URL: page.URL, Title: page.MetaTitle, Description: page.MetaDescription})
	for _, l := range page.Links {
		s.Links = append(s.Links, SourcedLink{Link: l, PageURL: page.URL})
	}
}
