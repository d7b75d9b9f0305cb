package aggregate

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

// Spelling is one spelling finding merged across pages.
type Spelling struct {
	Error      string            `json:"erreur"`
	Correction string            `json:"correction"`
	Context    string            `json:"contexte"`
	Severity   pipeline.Severity `json:"gravite"`
	Pages      []string          `json:"pages"`
}

type spellingEntry struct {
	Spelling
	order      int
	error      string
	correction string
}

// DedupSpelling merges stage 1 findings keyed on the folded (erreur,
// correction) pair. A finding whose folded erreur and correction are both
// contained in another's is folded into it. The most severe grade wins and
// source pages accumulate. Output keeps first-seen order.
func DedupSpelling(stage1 []pipeline.Stage1Result) []Spelling {
	byKey := make(map[[2]string]*spellingEntry)
	var entries []*spellingEntry
	for _, page := range stage1 {
		path := linkcheck.PagePath(page.PageURL)
		for _, f := range page.Spelling {
			key := [2]string{foldText(f.Error), foldText(f.Correction)}
			if key[0] == "" {
				continue
			}
			e, ok := byKey[key]
			if !ok {
				e = &spellingEntry{
					Spelling: Spelling{
						Error:      strings.TrimSpace(f.Error),
						Correction: strings.TrimSpace(f.Correction),
						Context:    f.Context,
						Severity:   f.Severity,
						Pages:      []string{},
					},
					order:      len(entries),
					error:      key[0],
					correction: key[1],
				}
				byKey[key] = e
				entries = append(entries, e)
			}
			e.Pages = addPage(e.Pages, path)
			e.Severity = maxSeverity(e.Severity, f.Severity)
		}
	}

	// Longest first so containers are kept before what they contain.
	bySize := append([]*spellingEntry(nil), entries...)
	sort.SliceStable(bySize, func(i, j int) bool {
		return utf8.RuneCountInString(bySize[i].error) > utf8.RuneCountInString(bySize[j].error)
	})
	var kept []*spellingEntry
	for _, e := range bySize {
		if host := container(kept, e); host != nil {
			host.Pages = mergePages(host.Pages, e.Pages...)
			host.Severity = maxSeverity(host.Severity, e.Severity)
			host.order = min(host.order, e.order)
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].order < kept[j].order })

	out := make([]Spelling, 0, len(kept))
	for _, e := range kept {
		out = append(out, e.Spelling)
	}
	return out
}

func container(kept []*spellingEntry, e *spellingEntry) *spellingEntry {
	for _, k := range kept {
		if strings.Contains(k.error, e.error) && strings.Contains(k.correction, e.correction) {
			return k
		}
	}
	return nil
}

func maxSeverity(a, b pipeline.Severity) pipeline.Severity {
	if a == pipeline.SeverityMajor || b == pipeline.SeverityMajor {
		return pipeline.SeverityMajor
	}
	if a == "" {
		return b
	}
	return a
}
