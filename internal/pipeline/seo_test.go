package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/extractor"
)

func TestApplySEOChecks(t *testing.T) {
	t.Parallel()

	longDescription := strings.Repeat("a", 60)
	metas := []crawler.Meta{
		{URL: "https://example.com/", Title: "Plomberie Dupont à Rennes", Description: longDescription},
		{URL: "https://example.com/contact", Title: "Plomberie Dupont à Rennes", Description: ""},
		{URL: "https://example.com/devis", Title: "Devis", Description: strings.Repeat("b", 200)},
	}
	fromOracle := Stage5Result{
		Metas: []MetaFinding{
			{URL: "https://example.com/", TitleValid: true, DescriptionValid: true},
			{URL: "https://invented.example/", TitleValid: true},
		},
		Duplicates: Duplicates{
			Titles:       []DuplicateTitle{{Title: "", URLs: []string{}}},
			Descriptions: []DuplicateDescription{},
		},
	}

	got := applySEOChecks(fromOracle, metas)

	require.Len(t, got.Metas, 3)
	urls := []string{got.Metas[0].URL, got.Metas[1].URL, got.Metas[2].URL}
	require.Equal(t, []string{"https://example.com/", "https://example.com/contact", "https://example.com/devis"}, urls)

	require.Equal(t, []string{alertTitleDuplicate}, got.Metas[0].Alerts)

	contact := got.Metas[1]
	require.False(t, contact.DescriptionValid)
	require.Contains(t, contact.Alerts, alertDescriptionEmpty)
	require.Contains(t, contact.Alerts, alertTitleDuplicate)

	devis := got.Metas[2]
	require.Contains(t, devis.Alerts, "Title trop court (5 caractères, minimum 15)")
	require.Contains(t, devis.Alerts, "Description trop longue (200 caractères, maximum 170)")

	require.Equal(t, []DuplicateTitle{{
		Title: "Plomberie Dupont à Rennes",
		URLs:  []string{"https://example.com/", "https://example.com/contact"},
	}}, got.Duplicates.Titles)
	require.Empty(t, got.Duplicates.Descriptions)
}

func TestApplySEOChecks_MergesOracleDuplicates(t *testing.T) {
	t.Parallel()

	metas := []crawler.Meta{
		{URL: "https://example.com/a", Title: "Titre A suffisamment long", Description: "Desc"},
		{URL: "https://example.com/b", Title: "Titre B suffisamment long", Description: "Desc"},
	}
	fromOracle := Stage5Result{Duplicates: Duplicates{
		Titles: []DuplicateTitle{{
			Title: "Titre A suffisamment long",
			URLs:  []string{"https://example.com/a", "https://example.com/b"},
		}},
	}}

	got := applySEOChecks(fromOracle, metas)
	require.Len(t, got.Duplicates.Titles, 1)
	require.Len(t, got.Duplicates.Descriptions, 1)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, got.Duplicates.Descriptions[0].URLs)
	require.Contains(t, got.Metas[1].Alerts, alertTitleDuplicate)
	require.Contains(t, got.Metas[1].Alerts, alertDescriptionDuplicate)
}

func TestFinalizeLinks(t *testing.T) {
	t.Parallel()

	in := Stage4Result{
		PageURL: "https://example.com/",
		Links: []LinkFinding{
			{URL: "https://www.tarmaac.io/credits", Verdict: LinkSuspect, Reason: "domaine inconnu"},
			{URL: "https://tarmaac.io", Verdict: LinkToCheck},
			{URL: "https://facebook.com/dupont", Verdict: LinkSuspect},
			{URL: "tel:0299999999", Type: extractor.LinkTel, Verdict: LinkValid},
			{URL: "https://nottarmaac.io", Verdict: LinkToCheck},
		},
		Summary: LinkSummary{Total: 99},
	}

	got := finalizeLinks(in, DefaultTrustedDomain)
	require.Equal(t, LinkValid, got.Links[0].Verdict)
	require.Equal(t, trustedReason, got.Links[0].Reason)
	require.Equal(t, LinkValid, got.Links[1].Verdict)
	require.Equal(t, LinkToCheck, got.Links[4].Verdict)
	require.Equal(t, LinkSummary{Total: 5, Valid: 3, Suspect: 1, ToCheck: 1}, got.Summary)
}

func TestPageTheme(t *testing.T) {
	t.Parallel()

	theme, home := pageTheme("https://example.com/produits/lit-coffre_140/")
	require.False(t, home)
	require.Equal(t, "lit coffre 140", theme)

	_, home = pageTheme("https://example.com")
	require.True(t, home)
	_, home = pageTheme("https://example.com/")
	require.True(t, home)
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "éàü", truncateRunes("éàüö", 3))
	require.Equal(t, "abc", truncateRunes("abc", 10))
	require.Equal(t, "abc", truncateRunes("abc", 0))
}
