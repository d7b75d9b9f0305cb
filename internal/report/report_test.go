package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

func sampleReport() aggregate.Report {
	return aggregate.Report{
		Meta: aggregate.Meta{
			AuditID:       "0190c2a4-1111-7000-8000-000000000001",
			AuditedURL:    "https://example.fr",
			Company:       "Boulangerie Martin",
			Activity:      "boulangerie",
			PagesAnalyzed: 2,
			AuditDate:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Stage2: []pipeline.Stage2Result{{
			PageURL:   "https://example.fr/mentions-legales",
			Compliant: false,
			Issues:    []pipeline.LegalIssue{{Type: pipeline.LegalMissing, Reason: "SIRET absent"}},
		}},
		Stage6: pipeline.Stage6Result{
			Decision:  pipeline.DecisionNoGo,
			Summary:   "Mentions légales incomplètes",
			Checklist: []string{"Ajouter le SIRET"},
		},
		Pages: []aggregate.PageSummary{
			{URL: "https://example.fr/", Type: extractor.PageHome, MetaTitle: "Accueil"},
			{URL: "https://example.fr/mentions-legales", Type: extractor.PageLegal, MetaTitle: "Mentions"},
		},
		Consolidated: aggregate.Consolidated{
			Links: []aggregate.Link{
				{URL: "https://ok.example", Verdict: pipeline.LinkValid},
				{URL: "https://dead.example", Verdict: pipeline.LinkSuspect, Reason: "Lien cassé (404)", HTTPCode: "404"},
			},
			Spelling: []aggregate.Spelling{
				{Error: "boulangeri", Correction: "boulangerie", Severity: pipeline.SeverityMajor, Pages: []string{"/"}},
			},
			PhoneCoherence: aggregate.Coherence{Declared: "0102030405", Found: []string{"0102030405"}, Valid: true, Status: pipeline.CoherenceOK},
			NameCoherence:  aggregate.Coherence{Status: pipeline.CoherenceUnverifiable},
			Priorities: aggregate.Priorities{
				P0: []aggregate.Priority{{Source: "legal", Summary: "SIRET manquant", Pages: []string{"/mentions-legales"}}},
			},
		},
	}
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleReport()))
	out := buf.String()

	require.Contains(t, out, "# Audit SmartQA: Boulangerie Martin")
	require.Contains(t, out, "NO GO")
	require.Contains(t, out, "Mentions légales incomplètes")
	require.Contains(t, out, "Ajouter le SIRET")
	require.Contains(t, out, "SIRET manquant")
	require.Contains(t, out, "boulangeri")
	require.Contains(t, out, "https://dead.example")
	require.NotContains(t, out, "https://ok.example", "valid links are not listed")
	require.Contains(t, out, "Gérant")
}

func TestWriteMarkdownEmptySections(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Consolidated.Spelling = nil
	r.Consolidated.Priorities = aggregate.Priorities{}
	r.Consolidated.Links = []aggregate.Link{{URL: "https://ok.example", Verdict: pipeline.LinkValid}}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	out := buf.String()
	require.Contains(t, out, "Aucune faute détectée.")
	require.Contains(t, out, "Aucune priorité remontée.")
	require.Contains(t, out, "1 liens vérifiés, aucun problème.")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))
	require.True(t, strings.HasPrefix(buf.String(), "{\n  \"meta\""))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Contains(t, decoded, "etape6_synthese")
	require.Contains(t, decoded, "synthese_consolidee")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "court", truncate("court"))
	long := strings.Repeat("é", cellLimit+5)
	got := truncate(long)
	require.Len(t, []rune(got), cellLimit)
	require.True(t, strings.HasSuffix(got, "…"))
}
