package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title> Plomberie Dupont | Paris </title>
  <meta name="description" content=" Dépannage plomberie 24h/24 à Paris. ">
  <script>var tracking = "ignored text";</script>
</head>
<body>
  <header>
    <nav><a href="/services">Nos services</a></nav>
    <a href="tel:01 23 45 67 89">Appelez-nous</a>
  </header>
  <main>
    <h1>Bienvenue chez Dupont</h1>
    <p>Intervention rapide dans tout Paris.</p>
    <p>Intervention rapide dans tout Paris.</p>
    <a href="https://partenaire.fr/page" title="Partenaire"></a>
    <a href="/contact#form">Contact</a>
    <a href="/contact">Contact direct</a>
    <a href="#">Top</a>
    <a href="/cache" style="display: none">Caché</a>
    <div style="visibility:hidden"><a href="/parent-cache">Parent caché</a></div>
    <a href="/attr" hidden>Attribut</a>
    <a href="mailto:info@dupont.fr?subject=Devis">Écrire</a>
    <section class="customer-reviews"><p>Super travail, merci beaucoup!</p></section>
    <div id="temoignages"><p>Très satisfait du service rendu.</p></div>
    <div class="trustpilot-widget">Trustpilot 4.8</div>
  </main>
  <footer><a href="https://facebook.com/dupont">Facebook</a></footer>
</body>
</html>`

func TestExtractMetasAndContactLinks(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)

	require.Equal(t, PageHome, page.Type)
	require.Equal(t, samplePage, page.RawHTML)
	require.Equal(t, "Plomberie Dupont | Paris", page.MetaTitle)
	require.Equal(t, "Dépannage plomberie 24h/24 à Paris.", page.MetaDescription)

	require.Equal(t, []TelLink{{Number: "01 23 45 67 89", Text: "Appelez-nous", Href: "tel:01 23 45 67 89"}}, page.TelLinks)
	require.Len(t, page.MailtoLinks, 1)
	require.Equal(t, "info@dupont.fr", page.MailtoLinks[0].Email)
}

func TestExtractLinksSkipHiddenAndResolve(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)

	byURL := make(map[string]Link)
	for _, l := range page.Links {
		byURL[l.URL] = l
	}

	require.Contains(t, byURL, "https://www.dupont.fr/services")
	require.Equal(t, ZoneHeader, byURL["https://www.dupont.fr/services"].FoundIn)
	require.Equal(t, LinkInternal, byURL["https://www.dupont.fr/services"].Type)

	partner := byURL["https://partenaire.fr/page"]
	require.Equal(t, LinkExternal, partner.Type)
	require.Equal(t, "Partenaire", partner.Text)
	require.Equal(t, ZoneMain, partner.FoundIn)

	require.Equal(t, ZoneFooter, byURL["https://facebook.com/dupont"].FoundIn)
	require.Equal(t, LinkTel, byURL["tel:01 23 45 67 89"].Type)

	for _, hidden := range []string{"/cache", "/parent-cache", "/attr"} {
		require.NotContains(t, byURL, "https://www.dupont.fr"+hidden)
	}
	for _, l := range page.Links {
		require.NotEqual(t, "#", l.URL)
	}
}

func TestExtractInternalLinksStripFragments(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://www.dupont.fr/services",
		"https://www.dupont.fr/contact",
	}, page.InternalLinks)
}

func TestExtractTextRemovesNoise(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)

	require.Contains(t, page.Text, "Bienvenue chez Dupont")
	require.Equal(t, 1, strings.Count(page.Text, "Intervention rapide dans tout Paris."),
		"identical blocks are kept once")
	require.NotContains(t, page.Text, "ignored text")
	require.NotContains(t, page.Text, "Super travail")
	require.NotContains(t, page.Text, "Très satisfait")
	require.NotContains(t, page.Text, "Trustpilot")
	require.NotContains(t, page.Text, "  ")
	require.NotContains(t, page.Text, "\n")
}

func TestExtractOutline(t *testing.T) {
	t.Parallel()

	page, err := Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)
	require.Contains(t, page.Outline, "# Bienvenue chez Dupont")
	require.NotContains(t, page.Outline, "Super travail")

	small := New(Options{OutlineLimit: 10})
	page, err = small.Extract([]byte(samplePage), "https://www.dupont.fr/", "www.dupont.fr")
	require.NoError(t, err)
	require.LessOrEqual(t, len([]rune(page.Outline)), 10)
}

func TestExtractEmptyDocument(t *testing.T) {
	t.Parallel()

	page, err := Extract(nil, "https://example.com/mentions-legales", "example.com")
	require.NoError(t, err)
	require.Equal(t, PageLegal, page.Type)
	require.Empty(t, page.Links)
	require.Empty(t, page.Text)
	require.Empty(t, page.InternalLinks)
}

func TestDetectZoneDepthLimit(t *testing.T) {
	t.Parallel()

	markup := "<footer>" + strings.Repeat("<div>", 12) + `<a href="/deep">Deep</a>` +
		strings.Repeat("</div>", 12) + "</footer>"
	page, err := Extract([]byte(markup), "https://example.com/", "example.com")
	require.NoError(t, err)
	require.Len(t, page.Links, 1)
	require.Equal(t, ZoneMain, page.Links[0].FoundIn)
}
