package aggregate

import (
	"time"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

// Meta identifies the audit.
type Meta struct {
	AuditID       string    `json:"audit_id,omitempty"`
	AuditedURL    string    `json:"url_auditee"`
	Company       string    `json:"entreprise"`
	Activity      string    `json:"activite"`
	PagesAnalyzed int       `json:"pages_analysees"`
	AuditDate     time.Time `json:"date_audit"`
}

// PageSummary is one entry of the page inventory.
type PageSummary struct {
	URL             string             `json:"url"`
	Type            extractor.PageType `json:"type"`
	MetaTitle       string             `json:"meta_title"`
	MetaDescription string             `json:"meta_description"`
}

// Consolidated holds the code-side merges computed over all stages.
type Consolidated struct {
	Links          []Link      `json:"liens"`
	Spelling       []Spelling  `json:"orthographe"`
	Extractions    Extractions `json:"extractions"`
	PhoneCoherence Coherence   `json:"coherence_telephone"`
	NameCoherence  Coherence   `json:"coherence_nom"`
	Priorities     Priorities  `json:"priorites"`
}

// Report is the final output of an audit.
type Report struct {
	Meta         Meta                    `json:"meta"`
	Stage1       []pipeline.Stage1Result `json:"etape1_orthographe"`
	Stage2       []pipeline.Stage2Result `json:"etape2_legal"`
	Stage3       []pipeline.Stage3Result `json:"etape3_coherence"`
	Stage4       []pipeline.Stage4Result `json:"etape4_liens"`
	Stage5       pipeline.Stage5Result   `json:"etape5_seo"`
	Stage6       pipeline.Stage6Result   `json:"etape6_synthese"`
	Pages        []PageSummary           `json:"pages_scrapees"`
	Consolidated Consolidated            `json:"synthese_consolidee"`
}

// Input gathers everything BuildReport needs.
type Input struct {
	AuditID  string
	Context  pipeline.AnalysisContext
	Snapshot crawler.SiteSnapshot
	Results  pipeline.Results
	Probed   []linkcheck.Probed
	Now      time.Time
}

// BuildReport assembles the final report.
func BuildReport(in Input) Report {
	pages := make([]PageSummary, 0, len(in.Snapshot.Pages))
	for _, p := range in.Snapshot.Pages {
		pages = append(pages, PageSummary{
			URL:             p.URL,
			Type:            p.Type,
			MetaTitle:       p.MetaTitle,
			MetaDescription: p.MetaDescription,
		})
	}

	extractions := DedupExtractions(in.Results.Stage1)
	return Report{
		Meta: Meta{
			AuditID:       in.AuditID,
			AuditedURL:    in.Context.URL,
			Company:       in.Context.Company,
			Activity:      in.Context.Activity,
			PagesAnalyzed: len(in.Snapshot.Pages),
			AuditDate:     in.Now.UTC(),
		},
		Stage1: in.Results.Stage1,
		Stage2: in.Results.Stage2,
		Stage3: in.Results.Stage3,
		Stage4: in.Results.Stage4,
		Stage5: in.Results.Stage5,
		Stage6: in.Results.Stage6,
		Pages:  pages,
		Consolidated: Consolidated{
			Links:          ReconcileLinks(in.Results.Stage4, in.Probed),
			Spelling:       DedupSpelling(in.Results.Stage1),
			Extractions:    extractions,
			PhoneCoherence: PhoneCoherent(in.Context.ExpectedPhone, sightingValues(extractions.Phones)),
			NameCoherence:  NameCoherent(in.Context.ExpectedManager, sightingValues(extractions.Names)),
			Priorities:     RollupPriorities(in.Results.Stage6),
		},
	}
}
