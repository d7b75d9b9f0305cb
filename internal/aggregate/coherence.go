package aggregate

import (
	"strings"
	"unicode/utf8"

	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

// Coherence compares a declared value with the values found on the site.
type Coherence struct {
	Declared string                   `json:"declare"`
	Found    []string                 `json:"trouves"`
	Valid    bool                     `json:"valide"`
	Status   pipeline.CoherenceStatus `json:"statut"`
}

// Sighting is one extracted value and the pages it was seen on.
type Sighting struct {
	Value string   `json:"valeur"`
	Pages []string `json:"pages"`
}

// Extractions lists the phones and names found across the site.
type Extractions struct {
	Phones []Sighting `json:"telephones"`
	Names  []Sighting `json:"noms"`
}

var phoneSeparators = strings.NewReplacer(" ", "", "\t", "", ".", "", "-", "", "(", "", ")", "", "/", "")

// NormalizePhone strips separators and rewrites a French international
// prefix (+33 or 0033) to a leading 0.
func NormalizePhone(phone string) string {
	p := phoneSeparators.Replace(strings.Join(strings.Fields(phone), ""))
	switch {
	case strings.HasPrefix(p, "+33"):
		p = "0" + strings.TrimPrefix(p[3:], "0")
	case strings.HasPrefix(p, "0033"):
		p = "0" + strings.TrimPrefix(p[4:], "0")
	}
	return p
}

// NormalizeName case-folds and collapses whitespace.
func NormalizeName(name string) string {
	return foldText(name)
}

// Shortest normalized value allowed to match by containment. A French
// number without its trunk zero has 9 digits.
const (
	minPhoneMatch = 9
	minNameMatch  = 4
)

// PhoneCoherent checks the declared phone against the extracted ones.
func PhoneCoherent(declared string, extracted []string) Coherence {
	return coherent(declared, extracted, NormalizePhone, minPhoneMatch)
}

// NameCoherent checks the declared manager name against the extracted ones.
func NameCoherent(declared string, extracted []string) Coherence {
	return coherent(declared, extracted, NormalizeName, minNameMatch)
}

// coherent matches by containment in either direction once both sides are
// normalized, as long as the contained side has at least minMatch runes.
// Values that normalize to nothing are ignored.
func coherent(declared string, extracted []string, normalize func(string) string, minMatch int) Coherence {
	c := Coherence{Declared: strings.TrimSpace(declared), Found: []string{}}
	var found []string
	for _, v := range extracted {
		if n := normalize(v); n != "" {
			c.Found = append(c.Found, strings.TrimSpace(v))
			found = append(found, n)
		}
	}
	want := normalize(declared)
	switch {
	case want == "":
		c.Status = pipeline.CoherenceUnverifiable
	case len(found) == 0:
		c.Status = pipeline.CoherenceNotFound
	default:
		c.Status = pipeline.CoherenceDifferent
		for _, f := range found {
			if matches(want, f, minMatch) {
				c.Status = pipeline.CoherenceOK
				c.Valid = true
				break
			}
		}
	}
	return c
}

func matches(a, b string, minMatch int) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) > utf8.RuneCountInString(b) {
		a, b = b, a
	}
	return utf8.RuneCountInString(a) >= minMatch && strings.Contains(b, a)
}

// DedupExtractions maps every phone and name found in stage 1 to the pages
// it was seen on. Values are keyed on their normalized form.
func DedupExtractions(stage1 []pipeline.Stage1Result) Extractions {
	phones := newSightings(NormalizePhone)
	names := newSightings(NormalizeName)
	for _, page := range stage1 {
		path := linkcheck.PagePath(page.PageURL)
		for _, p := range page.Extraction.Phones {
			phones.add(p, path)
		}
		for _, n := range page.Extraction.Names {
			names.add(n, path)
		}
	}
	return Extractions{Phones: phones.list(), Names: names.list()}
}

type sightings struct {
	normalize func(string) string
	index     map[string]int
	items     []Sighting
}

func newSightings(normalize func(string) string) *sightings {
	return &sightings{normalize: normalize, index: make(map[string]int)}
}

func (s *sightings) add(value, page string) {
	key := s.normalize(value)
	if key == "" {
		return
	}
	i, ok := s.index[key]
	if !ok {
		i = len(s.items)
		s.index[key] = i
		s.items = append(s.items, Sighting{Value: strings.TrimSpace(value), Pages: []string{}})
	}
	s.items[i].Pages = addPage(s.items[i].Pages, page)
}

func (s *sightings) list() []Sighting {
	if s.items == nil {
		return []Sighting{}
	}
	return s.items
}

func sightingValues(list []Sighting) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.Value)
	}
	return out
}
