package extractor

// PageType classifies a page from its URL path.
type PageType string

// Page types recognised by ClassifyPageType.
const (
	PageHome     PageType = "home"
	PageInternal PageType = "interne"
	PageLegal    PageType = "legal"
	PagePrivacy  PageType = "privacy"
	PageCookies  PageType = "cookies"
	PageTerms    PageType = "cgu"
	PageOther    PageType = "autre"
)

// IsLegal reports whether the page goes through the legal compliance stage.
func (t PageType) IsLegal() bool {
	switch t {
	case PageLegal, PagePrivacy, PageCookies, PageTerms:
		return true
	default:
		return false
	}
}

// LinkType classifies an anchor href.
type LinkType string

// Link types recognised by ClassifyLinkType.
const (
	LinkInternal   LinkType = "internal"
	LinkExternal   LinkType = "external"
	LinkTel        LinkType = "tel"
	LinkMailto     LinkType = "mailto"
	LinkMaps       LinkType = "maps"
	LinkAnchor     LinkType = "anchor"
	LinkJSRedirect LinkType = "js_redirect"
	LinkUnknown    LinkType = "unknown"
)

// Zone is the page region a link was found in.
type Zone string

// Zones returned by DetectZone.
const (
	ZoneHeader Zone = "header"
	ZoneFooter Zone = "footer"
	ZoneMain   Zone = "main"
)

// Link is one visible anchor on a page.
type Link struct {
	URL     string   `json:"url"`
	Type    LinkType `json:"type"`
	Text    string   `json:"texte"`
	FoundIn Zone     `json:"found_in"`
}

// TelLink is an anchor whose href uses the tel: scheme.
type TelLink struct {
	Number string `json:"numero"`
	Text   string `json:"texte"`
	Href   string `json:"href"`
}

// MailtoLink is an anchor whose href uses the mailto: scheme.
type MailtoLink struct {
	Email string `json:"email"`
	Text  string `json:"texte"`
	Href  string `json:"href"`
}

// Page is the extracted content of one fetched page.
type Page struct {
	URL             string       `json:"page_url"`
	RawHTML         string       `json:"-"`
	Type            PageType     `json:"type_page"`
	MetaTitle       string       `json:"meta_title"`
	MetaDescription string       `json:"meta_description"`
	Text            string       `json:"texte_nettoye"`
	Outline         string       `json:"-"`
	TelLinks        []TelLink    `json:"tel_links"`
	MailtoLinks     []MailtoLink `json:"mailto_links"`
	Links           []Link       `json:"liens"`
	// InternalLinks are absolute same-site URLs without fragment, deduplicated.
	InternalLinks []string `json:"-"`
}
