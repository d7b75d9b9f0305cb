package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

const (
	cellLimit = 80
	empty     = "-"
)

var decisionLabels = map[pipeline.Decision]string{
	pipeline.DecisionGo:             "✅ GO",
	pipeline.DecisionGoWithReserves: "⚠️ GO avec réserves",
	pipeline.DecisionNoGo:           "❌ NO GO",
}

// WriteMarkdown renders r as a Markdown document in French.
func WriteMarkdown(w io.Writer, r aggregate.Report) error {
	md := markdown.NewMarkdown(w)

	writeHeader(md, r)
	writeDecision(md, r.Stage6)
	writePriorities(md, r.Consolidated.Priorities)
	writeSpelling(md, r.Consolidated.Spelling)
	writeCoherence(md, r.Consolidated)
	writeLegal(md, r.Stage2)
	writeContent(md, r.Stage3)
	writeLinks(md, r.Consolidated.Links)
	writeSEO(md, r.Stage5)
	writePages(md, r.Pages)

	return md.Build()
}

func writeHeader(md *markdown.Markdown, r aggregate.Report) {
	md.H1("Audit SmartQA: " + r.Meta.Company)
	md.PlainText("")
	rows := [][]string{
		{"Site audité", r.Meta.AuditedURL},
		{"Activité", r.Meta.Activity},
		{"Pages analysées", strconv.Itoa(r.Meta.PagesAnalyzed)},
		{"Date", r.Meta.AuditDate.Format("2006-01-02 15:04 MST")},
	}
	if r.Meta.AuditID != "" {
		rows = append(rows, []string{"Identifiant", "`" + r.Meta.AuditID + "`"})
	}
	md.Table(markdown.TableSet{Header: []string{"Propriété", "Valeur"}, Rows: rows})
	md.PlainText("")
}

func writeDecision(md *markdown.Markdown, s pipeline.Stage6Result) {
	md.H2("Décision")
	md.PlainText("")
	label, ok := decisionLabels[s.Decision]
	if !ok {
		label = string(s.Decision)
	}
	switch s.Decision {
	case pipeline.DecisionNoGo:
		md.Cautionf("%s: %s", label, s.Summary)
	case pipeline.DecisionGoWithReserves:
		md.Warningf("%s: %s", label, s.Summary)
	default:
		md.Tip(label + ": " + s.Summary)
	}
	md.PlainText("")
	if len(s.Checklist) > 0 {
		md.H3("Checklist")
		md.PlainText("")
		md.BulletList(s.Checklist...)
		md.PlainText("")
	}
}

func writePriorities(md *markdown.Markdown, p aggregate.Priorities) {
	md.H2("Priorités")
	md.PlainText("")
	buckets := []struct {
		label string
		items []aggregate.Priority
	}{
		{"P0 (bloquant)", p.P0},
		{"P1 (important)", p.P1},
		{"P2 (amélioration)", p.P2},
	}
	rows := [][]string{}
	for _, b := range buckets {
		for _, item := range b.items {
			rows = append(rows, []string{b.label, item.Source, truncate(item.Summary), joinPages(item.Pages)})
		}
	}
	if len(rows) == 0 {
		md.PlainText("Aucune priorité remontée.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{Header: []string{"Niveau", "Source", "Résumé", "Pages"}, Rows: rows})
	md.PlainText("")
}

func writeSpelling(md *markdown.Markdown, items []aggregate.Spelling) {
	md.H2("Orthographe")
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText("Aucune faute détectée.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, []string{s.Error, s.Correction, string(s.Severity), joinPages(s.Pages)})
	}
	md.Table(markdown.TableSet{Header: []string{"Erreur", "Correction", "Gravité", "Pages"}, Rows: rows})
	md.PlainText("")
}

func writeCoherence(md *markdown.Markdown, c aggregate.Consolidated) {
	md.H2("Cohérence des informations")
	md.PlainText("")
	rows := [][]string{
		coherenceRow("Téléphone", c.PhoneCoherence),
		coherenceRow("Gérant", c.NameCoherence),
	}
	md.Table(markdown.TableSet{Header: []string{"Champ", "Déclaré", "Trouvé", "Statut"}, Rows: rows})
	md.PlainText("")
}

func coherenceRow(label string, c aggregate.Coherence) []string {
	declared := c.Declared
	if declared == "" {
		declared = empty
	}
	found := empty
	if len(c.Found) > 0 {
		found = strings.Join(c.Found, ", ")
	}
	return []string{label, declared, found, string(c.Status)}
}

func writeLegal(md *markdown.Markdown, results []pipeline.Stage2Result) {
	if len(results) == 0 {
		return
	}
	md.H2("Conformité légale")
	md.PlainText("")
	rows := [][]string{}
	for _, r := range results {
		if len(r.Issues) == 0 {
			rows = append(rows, []string{r.PageURL, compliance(r.Compliant), empty, empty})
			continue
		}
		for _, issue := range r.Issues {
			rows = append(rows, []string{r.PageURL, compliance(r.Compliant), string(issue.Type), truncate(issue.Reason)})
		}
	}
	md.Table(markdown.TableSet{Header: []string{"Page", "Conforme", "Type", "Raison"}, Rows: rows})
	md.PlainText("")
}

func compliance(ok bool) string {
	if ok {
		return "oui"
	}
	return "non"
}

func writeContent(md *markdown.Markdown, results []pipeline.Stage3Result) {
	rows := [][]string{}
	for _, r := range results {
		for _, issue := range r.Issues {
			rows = append(rows, []string{r.PageURL, string(issue.Type), string(issue.Severity), truncate(issue.Reason)})
		}
	}
	if len(rows) == 0 {
		return
	}
	md.H2("Contenu")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Page", "Type", "Gravité", "Raison"}, Rows: rows})
	md.PlainText("")
}

func writeLinks(md *markdown.Markdown, links []aggregate.Link) {
	md.H2("Liens externes")
	md.PlainText("")
	rows := [][]string{}
	for _, l := range links {
		if l.Verdict == pipeline.LinkValid {
			continue
		}
		httpCode := l.HTTPCode
		if httpCode == "" {
			httpCode = empty
		}
		rows = append(rows, []string{truncate(l.URL), string(l.Verdict), httpCode, truncate(l.Reason)})
	}
	if len(rows) == 0 {
		md.PlainTextf("%d liens vérifiés, aucun problème.", len(links))
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{Header: []string{"URL", "Statut", "HTTP", "Raison"}, Rows: rows})
	md.PlainText("")
}

func writeSEO(md *markdown.Markdown, s pipeline.Stage5Result) {
	rows := [][]string{}
	for _, m := range s.Metas {
		if len(m.Alerts) == 0 {
			continue
		}
		rows = append(rows, []string{m.URL, truncate(strings.Join(m.Alerts, "; "))})
	}
	if len(rows) == 0 && len(s.Duplicates.Titles) == 0 && len(s.Duplicates.Descriptions) == 0 {
		return
	}
	md.H2("SEO")
	md.PlainText("")
	if len(rows) > 0 {
		md.Table(markdown.TableSet{Header: []string{"Page", "Alertes"}, Rows: rows})
		md.PlainText("")
	}
	for _, d := range s.Duplicates.Titles {
		md.Details("Title dupliqué: "+d.Title, strings.Join(d.URLs, "\n"))
	}
	for _, d := range s.Duplicates.Descriptions {
		md.Details("Description dupliquée: "+truncate(d.Description), strings.Join(d.URLs, "\n"))
	}
	md.PlainText("")
}

func writePages(md *markdown.Markdown, pages []aggregate.PageSummary) {
	md.H2("Pages analysées")
	md.PlainText("")
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{p.URL, string(p.Type), truncate(p.MetaTitle)})
	}
	md.Table(markdown.TableSet{Header: []string{"URL", "Type", "Title"}, Rows: rows})
	md.PlainText("")
}

func joinPages(pages []string) string {
	if len(pages) == 0 {
		return empty
	}
	return strings.Join(pages, ", ")
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= cellLimit {
		return s
	}
	return string(runes[:cellLimit-1]) + "…"
}
