package pipeline

import (
	"errors"
	"fmt"

	"github.com/TheoCtla/SmartQA/internal/extractor"
)

// Severity grades a finding.
type Severity string

// Severities.
const (
	SeverityMinor Severity = "mineure"
	SeverityMajor Severity = "importante"
)

func (s Severity) valid() bool { return s == SeverityMinor || s == SeverityMajor }

// CoherenceStatus compares a found value to the declared one.
type CoherenceStatus string

// Coherence statuses.
const (
	CoherenceOK           CoherenceStatus = "ok"
	CoherenceDifferent    CoherenceStatus = "different"
	CoherenceNotFound     CoherenceStatus = "non_trouve"
	CoherenceUnverifiable CoherenceStatus = "non_verifiable"
)

func (s CoherenceStatus) valid() bool {
	switch s {
	case CoherenceOK, CoherenceDifferent, CoherenceNotFound, CoherenceUnverifiable:
		return true
	}
	return false
}

// LegalIssueType classifies a stage 2 finding.
type LegalIssueType string

// Legal issue types.
const (
	LegalMissing    LegalIssueType = "manquant"
	LegalCopyPaste  LegalIssueType = "copier_coller"
	LegalIncoherent LegalIssueType = "incoherent"
	LegalSuspicion  LegalIssueType = "suspicion"
)

// ContentIssueType classifies a stage 3 finding.
type ContentIssueType string

// Content issue types.
const (
	ContentOffTopic       ContentIssueType = "hors_sujet"
	ContentCopyPaste      ContentIssueType = "copier_coller"
	ContentContradiction  ContentIssueType = "contradiction"
	ContentPromoExpired   ContentIssueType = "promo_expiree"
	ContentPromoAmbiguous ContentIssueType = "promo_date_ambigue"
	ContentSuspicion      ContentIssueType = "suspicion"
)

func (t ContentIssueType) isPromo() bool {
	return t == ContentPromoExpired || t == ContentPromoAmbiguous
}

// LinkVerdict is the stage 4 judgement on a link.
type LinkVerdict string

// Link verdicts.
const (
	LinkValid   LinkVerdict = "valide"
	LinkSuspect LinkVerdict = "suspect"
	LinkToCheck LinkVerdict = "a_verifier"
)

// Decision is the stage 6 go / no-go outcome.
type Decision string

// Decisions.
const (
	DecisionGo             Decision = "go"
	DecisionNoGo           Decision = "no_go"
	DecisionGoWithReserves Decision = "go_avec_reserves"
)

// SpellingFinding is one spelling or grammar error.
type SpellingFinding struct {
	Error      string   `json:"erreur"`
	Correction string   `json:"correction"`
	Context    string   `json:"contexte"`
	Severity   Severity `json:"gravite"`
}

// Extraction lists the phones and names found on a page.
type Extraction struct {
	Phones []string `json:"telephones_trouves"`
	Names  []string `json:"noms_trouves"`
}

// Coherence is the oracle's comparison of found and declared values.
type Coherence struct {
	PhoneFound  *string         `json:"telephone_trouve"`
	NameFound   *string         `json:"nom_trouve"`
	PhoneStatus CoherenceStatus `json:"telephone_statut"`
	NameStatus  CoherenceStatus `json:"nom_statut"`
	Note        string          `json:"note"`
}

// Stage1Result is the spelling, extraction and coherence verdict for one page.
type Stage1Result struct {
	PageURL    string            `json:"page_url"`
	Spelling   []SpellingFinding `json:"orthographe"`
	Extraction Extraction        `json:"extraction"`
	Coherence  Coherence         `json:"coherence"`
}

// LegalIssue is one stage 2 finding.
type LegalIssue struct {
	Text     string         `json:"texte"`
	Reason   string         `json:"raison"`
	Type     LegalIssueType `json:"type"`
	Severity Severity       `json:"gravite"`
}

// Stage2Result is the compliance verdict for one legal page.
type Stage2Result struct {
	PageURL   string             `json:"page_url"`
	LegalType extractor.PageType `json:"type_page_legale"`
	Compliant bool               `json:"conforme"`
	Issues    []LegalIssue       `json:"issues"`
}

// Promo describes the end date of a promotion.
type Promo struct {
	EndText        string `json:"date_fin_texte"`
	YearPresent    bool   `json:"annee_presente"`
	InterpretedEnd string `json:"date_fin_interpretee,omitempty"`
}

// ContentIssue is one stage 3 finding.
type ContentIssue struct {
	Text     string           `json:"texte"`
	Reason   string           `json:"raison"`
	Type     ContentIssueType `json:"type"`
	Severity Severity         `json:"gravite"`
	Promo    *Promo           `json:"promo,omitempty"`
}

// CopywritingIssue is a weak or vague formulation.
type CopywritingIssue struct {
	Text       string `json:"texte"`
	Reason     string `json:"raison"`
	Suggestion string `json:"suggestion"`
}

// Stage3Result is the content coherence verdict for one non-legal page.
type Stage3Result struct {
	PageURL     string             `json:"page_url"`
	Coherent    bool               `json:"coherent"`
	Issues      []ContentIssue     `json:"issues"`
	Copywriting []CopywritingIssue `json:"copywriting_issues"`
}

// LinkFinding is the verdict on one clickable link.
type LinkFinding struct {
	URL     string             `json:"url"`
	Type    extractor.LinkType `json:"type"`
	Text    string             `json:"texte"`
	Verdict LinkVerdict        `json:"statut"`
	Reason  string             `json:"raison"`
}

// LinkSummary counts link verdicts.
type LinkSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valides"`
	Suspect int `json:"suspects"`
	ToCheck int `json:"a_verifier"`
}

// Stage4Result is the link verdict for one page.
type Stage4Result struct {
	PageURL string        `json:"page_url"`
	Links   []LinkFinding `json:"liens"`
	Summary LinkSummary   `json:"resume"`
}

// MetaFinding is the SEO verdict for one page's metas.
type MetaFinding struct {
	URL                  string   `json:"url"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	TitleValid           bool     `json:"title_valide"`
	DescriptionValid     bool     `json:"description_valide"`
	Alerts               []string `json:"alertes"`
	Comment              string   `json:"commentaire"`
	SuggestedTitle       *string  `json:"suggestion_title"`
	SuggestedDescription *string  `json:"suggestion_description"`
}

// DuplicateTitle groups the pages sharing one title.
type DuplicateTitle struct {
	Title string   `json:"title"`
	URLs  []string `json:"urls"`
}

// DuplicateDescription groups the pages sharing one description.
type DuplicateDescription struct {
	Description string   `json:"description"`
	URLs        []string `json:"urls"`
}

// Duplicates lists identical metas across the site.
type Duplicates struct {
	Titles       []DuplicateTitle       `json:"titles_identiques"`
	Descriptions []DuplicateDescription `json:"descriptions_identiques"`
}

// Stage5Result is the site-wide SEO verdict.
type Stage5Result struct {
	Metas      []MetaFinding `json:"metas"`
	Duplicates Duplicates    `json:"doublons"`
}

// Priority is one item of the final action plan.
type Priority struct {
	Source  string `json:"source"`
	PageURL string `json:"page_url"`
	Summary string `json:"resume"`
}

// Priorities buckets the action plan by urgency.
type Priorities struct {
	P0 []Priority `json:"P0"`
	P1 []Priority `json:"P1"`
	P2 []Priority `json:"P2"`
}

// Stage6Result is the go / no-go synthesis.
type Stage6Result struct {
	Decision   Decision   `json:"decision"`
	Priorities Priorities `json:"priorites"`
	Summary    string     `json:"resume"`
	Checklist  []string   `json:"checklist"`
}

// Results collects every stage output of one audit.
type Results struct {
	Stage1 []Stage1Result `json:"etape1"`
	Stage2 []Stage2Result `json:"etape2"`
	Stage3 []Stage3Result `json:"etape3"`
	Stage4 []Stage4Result `json:"etape4"`
	Stage5 Stage5Result   `json:"etape5"`
	Stage6 Stage6Result   `json:"etape6"`
}

// FallbackSummary is the stage 6 resume used when synthesis fails.
const FallbackSummary = "Erreur lors de la génération du rapport"

func fallbackStage1(pageURL string) Stage1Result {
	return Stage1Result{
		PageURL:    pageURL,
		Spelling:   []SpellingFinding{},
		Extraction: Extraction{Phones: []string{}, Names: []string{}},
		Coherence:  Coherence{PhoneStatus: CoherenceUnverifiable, NameStatus: CoherenceUnverifiable},
	}
}

func fallbackStage2(pageURL string, legalType extractor.PageType) Stage2Result {
	return Stage2Result{PageURL: pageURL, LegalType: legalType, Compliant: true, Issues: []LegalIssue{}}
}

func fallbackStage3(pageURL string) Stage3Result {
	return Stage3Result{
		PageURL:     pageURL,
		Coherent:    true,
		Issues:      []ContentIssue{},
		Copywriting: []CopywritingIssue{},
	}
}

func fallbackStage4(pageURL string) Stage4Result {
	return Stage4Result{PageURL: pageURL, Links: []LinkFinding{}}
}

func fallbackStage5() Stage5Result {
	return Stage5Result{
		Metas: []MetaFinding{},
		Duplicates: Duplicates{
			Titles:       []DuplicateTitle{},
			Descriptions: []DuplicateDescription{},
		},
	}
}

func fallbackStage6() Stage6Result {
	return Stage6Result{
		Decision:   DecisionGoWithReserves,
		Priorities: Priorities{P0: []Priority{}, P1: []Priority{}, P2: []Priority{}},
		Summary:    FallbackSummary,
		Checklist:  []string{},
	}
}

var errSchema = errors.New("schema mismatch")

func schemaErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errSchema, fmt.Sprintf(format, args...))
}

// normalize fills nil slices and defaults missing statuses, then checks enums.
func (r *Stage1Result) normalize() error {
	if r.Spelling == nil {
		r.Spelling = []SpellingFinding{}
	}
	if r.Extraction.Phones == nil {
		r.Extraction.Phones = []string{}
	}
	if r.Extraction.Names == nil {
		r.Extraction.Names = []string{}
	}
	if r.Coherence.PhoneStatus == "" {
		r.Coherence.PhoneStatus = CoherenceUnverifiable
	}
	if r.Coherence.NameStatus == "" {
		r.Coherence.NameStatus = CoherenceUnverifiable
	}
	if !r.Coherence.PhoneStatus.valid() {
		return schemaErr("telephone_statut %q", r.Coherence.PhoneStatus)
	}
	if !r.Coherence.NameStatus.valid() {
		return schemaErr("nom_statut %q", r.Coherence.NameStatus)
	}
	for i, f := range r.Spelling {
		if !f.Severity.valid() {
			return schemaErr("orthographe[%d].gravite %q", i, f.Severity)
		}
	}
	return nil
}

func (r *Stage2Result) normalize() error {
	if r.Issues == nil {
		r.Issues = []LegalIssue{}
	}
	for i, issue := range r.Issues {
		switch issue.Type {
		case LegalMissing, LegalCopyPaste, LegalIncoherent, LegalSuspicion:
		default:
			return schemaErr("issues[%d].type %q", i, issue.Type)
		}
		if !issue.Severity.valid() {
			return schemaErr("issues[%d].gravite %q", i, issue.Severity)
		}
	}
	return nil
}

func (r *Stage3Result) normalize() error {
	if r.Issues == nil {
		r.Issues = []ContentIssue{}
	}
	if r.Copywriting == nil {
		r.Copywriting = []CopywritingIssue{}
	}
	for i, issue := range r.Issues {
		switch issue.Type {
		case ContentOffTopic, ContentCopyPaste, ContentContradiction,
			ContentPromoExpired, ContentPromoAmbiguous, ContentSuspicion:
		default:
			return schemaErr("issues[%d].type %q", i, issue.Type)
		}
		if !issue.Severity.valid() {
			return schemaErr("issues[%d].gravite %q", i, issue.Severity)
		}
	}
	return nil
}

func (r *Stage4Result) normalize() error {
	if r.Links == nil {
		r.Links = []LinkFinding{}
	}
	for i, link := range r.Links {
		if link.URL == "" {
			return schemaErr("liens[%d].url is empty", i)
		}
		switch link.Verdict {
		case LinkValid, LinkSuspect, LinkToCheck:
		default:
			return schemaErr("liens[%d].statut %q", i, link.Verdict)
		}
	}
	return nil
}

func (r *Stage5Result) normalize() error {
	if r.Metas == nil {
		r.Metas = []MetaFinding{}
	}
	if r.Duplicates.Titles == nil {
		r.Duplicates.Titles = []DuplicateTitle{}
	}
	if r.Duplicates.Descriptions == nil {
		r.Duplicates.Descriptions = []DuplicateDescription{}
	}
	for i := range r.Metas {
		if r.Metas[i].URL == "" {
			return schemaErr("metas[%d].url is empty", i)
		}
		if r.Metas[i].Alerts == nil {
			r.Metas[i].Alerts = []string{}
		}
	}
	return nil
}

func (r *Stage6Result) normalize() error {
	switch r.Decision {
	case DecisionGo, DecisionNoGo, DecisionGoWithReserves:
	default:
		return schemaErr("decision %q", r.Decision)
	}
	if r.Priorities.P0 == nil {
		r.Priorities.P0 = []Priority{}
	}
	if r.Priorities.P1 == nil {
		r.Priorities.P1 = []Priority{}
	}
	if r.Priorities.P2 == nil {
		r.Priorities.P2 = []Priority{}
	}
	if r.Checklist == nil {
		r.Checklist = []string{}
	}
	return nil
}
