package audit

import (
	"net/url"
	"strings"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

// Request is one audit request.
type Request = pipeline.AnalysisContext

// Validation messages returned to callers.
const (
	MsgURLRequired      = "L'URL est requise"
	MsgCompanyRequired  = "Le nom de l'entreprise est requis"
	MsgActivityRequired = "L'activité est requise pour l'analyse de cohérence"
	MsgURLInvalid       = "L'URL est invalide"
)

// ValidationError reports a request rejected before any work starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Normalize validates req and fills its defaults: max_pages falls back to
// the crawler default and domaines_attendus to the audited host.
func Normalize(req Request) (Request, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Company = strings.TrimSpace(req.Company)
	req.Activity = strings.TrimSpace(req.Activity)
	switch {
	case req.URL == "":
		return req, &ValidationError{Field: "url", Message: MsgURLRequired}
	case req.Company == "":
		return req, &ValidationError{Field: "entreprise", Message: MsgCompanyRequired}
	case req.Activity == "":
		return req, &ValidationError{Field: "activite", Message: MsgActivityRequired}
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return req, &ValidationError{Field: "url", Message: MsgURLInvalid}
	}
	if req.MaxPages <= 0 {
		req.MaxPages = crawler.DefaultMaxPages
	}
	if len(req.ExpectedDomains) == 0 {
		req.ExpectedDomains = []string{u.Hostname()}
	}
	return req, nil
}
