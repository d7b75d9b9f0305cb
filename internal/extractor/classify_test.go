package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyPageType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want PageType
	}{
		{"https://example.com/", PageHome},
		{"https://example.com", PageHome},
		{"https://example.com/mentions-legales", PageLegal},
		{"https://example.com/Mentions_Legales/", PageLegal},
		{"https://example.com/legal-notice", PageLegal},
		{"https://example.com/politique-de-confidentialite", PagePrivacy},
		{"https://example.com/privacy", PagePrivacy},
		{"https://example.com/gestion-des-cookies", PageCookies},
		{"https://example.com/cgv", PageTerms},
		{"https://example.com/conditions-generales-de-vente", PageTerms},
		{"https://example.com/terms", PageTerms},
		{"https://example.com/services/plomberie", PageInternal},
		{"not a url", PageOther},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ClassifyPageType(tt.url))
		})
	}
}

func TestIsLegalPage(t *testing.T) {
	t.Parallel()

	for _, typ := range []PageType{PageLegal, PagePrivacy, PageCookies, PageTerms} {
		require.True(t, IsLegalPage(typ), typ)
	}
	for _, typ := range []PageType{PageHome, PageInternal, PageOther} {
		require.False(t, IsLegalPage(typ), typ)
	}
}

func TestClassifyLinkType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		href string
		want LinkType
	}{
		{"tel", "tel:+33123456789", LinkTel},
		{"tel upper", "TEL:0123", LinkTel},
		{"mailto", "mailto:contact@example.com", LinkMailto},
		{"anchor", "#contact", LinkAnchor},
		{"javascript", "javascript:void(0)", LinkJSRedirect},
		{"maps", "https://www.google.com/maps/place/Paris", LinkMaps},
		{"short maps", "https://goo.gl/maps/abc", LinkMaps},
		{"same host", "https://example.com/contact", LinkInternal},
		{"www on link", "https://www.example.com/contact", LinkInternal},
		{"other host", "https://facebook.com/example", LinkExternal},
		{"subdomain", "https://blog.example.com/", LinkExternal},
		{"root relative", "/services", LinkInternal},
		{"dot relative", "./services", LinkInternal},
		{"parent relative", "../services", LinkInternal},
		{"bare relative", "services.html", LinkUnknown},
		{"empty", "", LinkUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ClassifyLinkType(tt.href, "example.com"))
		})
	}
}

func TestClassifyLinkTypeWWWBase(t *testing.T) {
	t.Parallel()

	require.Equal(t, LinkInternal, ClassifyLinkType("https://example.com/a", "www.example.com"))
	require.Equal(t, LinkInternal, ClassifyLinkType("https://WWW.Example.com/a", "www.example.com"))
}

func TestSameSite(t *testing.T) {
	t.Parallel()

	require.True(t, SameSite("www.example.com", "example.com"))
	require.False(t, SameSite("", "example.com"))
	require.False(t, SameSite("example.org", "example.com"))
}
