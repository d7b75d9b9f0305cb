package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

func TestRollupPriorities(t *testing.T) {
	t.Parallel()

	got := RollupPriorities(pipeline.Stage6Result{
		Priorities: pipeline.Priorities{
			P0: []pipeline.Priority{
				{Source: "etape_1", PageURL: "https://site.fr/", Summary: "Téléphone erroné"},
				{Source: "etape_1", PageURL: "https://site.fr/contact", Summary: "téléphone  erroné"},
			},
			P1: []pipeline.Priority{
				{Source: "etape_1", PageURL: "https://site.fr/devis", Summary: "Téléphone erroné"},
				{Source: "etape_5", PageURL: "", Summary: "Metas dupliquées"},
				{Source: "etape_5", PageURL: "https://site.fr/", Summary: "Metas dupliquées"},
				{Source: "etape_3", Summary: "  "},
			},
		},
	})

	require.Equal(t, Priorities{
		P0: []Priority{{Source: "etape_1", Summary: "Téléphone erroné", Pages: []string{"https://site.fr/", "https://site.fr/contact"}}},
		P1: []Priority{{Source: "etape_5", Summary: "Metas dupliquées", Pages: []string{"https://site.fr/"}}},
		P2: []Priority{},
	}, got)
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.December, 29, 10, 30, 0, 0, time.UTC)
	snapshot := crawler.SiteSnapshot{
		BaseURL: "https://site.fr",
		Pages: []extractor.Page{
			{URL: "https://site.fr/", Type: extractor.PageHome, MetaTitle: "Accueil", MetaDescription: "Bienvenue"},
			{URL: "https://site.fr/mentions-legales", Type: extractor.PageLegal, MetaTitle: "Mentions"},
		},
	}
	results := pipeline.Results{
		Stage1: []pipeline.Stage1Result{{
			PageURL:    "https://site.fr/",
			Spelling:   []pipeline.SpellingFinding{{Error: "acceuil", Correction: "accueil", Severity: pipeline.SeverityMinor}},
			Extraction: pipeline.Extraction{Phones: []string{"01 23 45 67 89"}, Names: []string{}},
		}},
		Stage4: oracleFixture(),
		Stage6: pipeline.Stage6Result{Decision: pipeline.DecisionGo},
	}

	report := BuildReport(Input{
		AuditID: "0190",
		Context: pipeline.AnalysisContext{
			URL: "https://site.fr", Company: "Site", Activity: "Plomberie", ExpectedPhone: "0123456789",
		},
		Snapshot: snapshot,
		Results:  results,
		Probed:   probedFixture(),
		Now:      now,
	})

	require.Equal(t, Meta{
		AuditID: "0190", AuditedURL: "https://site.fr", Company: "Site", Activity: "Plomberie",
		PagesAnalyzed: 2, AuditDate: now,
	}, report.Meta)
	require.Equal(t, []PageSummary{
		{URL: "https://site.fr/", Type: extractor.PageHome, MetaTitle: "Accueil", MetaDescription: "Bienvenue"},
		{URL: "https://site.fr/mentions-legales", Type: extractor.PageLegal, MetaTitle: "Mentions"},
	}, report.Pages)
	require.Len(t, report.Consolidated.Links, 3)
	require.Len(t, report.Consolidated.Spelling, 1)
	require.True(t, report.Consolidated.PhoneCoherence.Valid)
	require.Equal(t, pipeline.CoherenceUnverifiable, report.Consolidated.NameCoherence.Status)
	require.Equal(t, pipeline.DecisionGo, report.Stage6.Decision)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{
		"meta", "etape1_orthographe", "etape2_legal", "etape3_coherence", "etape4_liens",
		"etape5_seo", "etape6_synthese", "pages_scrapees", "synthese_consolidee",
	} {
		require.Contains(t, decoded, key)
	}
	meta := decoded["meta"].(map[string]any)
	require.Equal(t, "2025-12-29T10:30:00Z", meta["date_audit"])
}
