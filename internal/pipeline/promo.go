package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

var (
	wordDate = regexp.MustCompile(
		`(?i)\b(\d{1,2})(?:er)?\s+(janvier|f[ée]vrier|mars|avril|mai|juin|juillet|ao[uû]t|septembre|octobre|novembre|d[ée]cembre)(?:\s+(\d{4}))?`)
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})(?:[/.-](\d{4}|\d{2}))?\b`)
	// endAnchor matches the words that introduce an end date, right before it.
	endAnchor = regexp.MustCompile(`(?i)\b(?:jusqu['’]?\s*(?:au|à)|au|fin|finit|termine|expire|avant|le)(?:\s+le)?\s*$`)
)

const anchorWindow = 24

// PromoVerdict is the outcome of the promo date policy for one phrase.
type PromoVerdict struct {
	// Finding is false when the promotion is still valid.
	Finding  bool
	Type     ContentIssueType
	Severity Severity
	Promo    Promo
}

type promoDate struct {
	pos      int
	text     string
	anchored bool
	day      int
	month    time.Month
	year     int
	hasYear  bool
}

// ClassifyPromo applies the promo date policy to a French end-date phrase
// such as "jusqu'au 31 décembre" or "fin le 15/11/2024". When several dates
// appear the last one introduced by an end word ("jusqu'au", "au", "fin")
// is the end date, else the last one. A numeric date without a year counts
// only when such a word introduces it, so "2-3 jours" or "24/7" are not
// dates. ok is false when no date is found.
//
// With an explicit year, a past date is an expired promotion and a future
// one is no finding. Without a year the date is ambiguous, and its severity
// depends on whether the day and month are already past in ref's year.
func ClassifyPromo(text string, ref time.Time) (PromoVerdict, bool) {
	date, ok := lastPromoDate(text)
	if !ok {
		return PromoVerdict{}, false
	}
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	year := date.year
	if !date.hasYear {
		year = ref.Year()
	}
	end := time.Date(year, date.month, date.day, 0, 0, 0, 0, time.UTC)
	promo := Promo{
		EndText:        date.text,
		YearPresent:    date.hasYear,
		InterpretedEnd: end.Format(ReferenceDateLayout),
	}
	if date.hasYear {
		if end.Before(refDay) {
			return PromoVerdict{Finding: true, Type: ContentPromoExpired, Severity: SeverityMajor, Promo: promo}, true
		}
		return PromoVerdict{Promo: promo}, true
	}
	severity := SeverityMinor
	if end.Before(refDay) {
		severity = SeverityMajor
	}
	return PromoVerdict{Finding: true, Type: ContentPromoAmbiguous, Severity: severity, Promo: promo}, true
}

func lastPromoDate(text string) (promoDate, bool) {
	var found []promoDate
	for _, m := range wordDate.FindAllStringSubmatchIndex(text, -1) {
		month := frenchMonths[strings.ToLower(text[m[4]:m[5]])]
		d, ok := buildPromoDate(text, m, month)
		if ok {
			found = append(found, d)
		}
	}
	for _, m := range numericDate.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[4]:m[5]])
		if err != nil || n < 1 || n > 12 {
			continue
		}
		d, ok := buildPromoDate(text, m, time.Month(n))
		if ok && (d.hasYear || d.anchored) {
			found = append(found, d)
		}
	}
	var best promoDate
	ok := false
	for _, d := range found {
		switch {
		case !ok:
		case d.anchored != best.anchored:
			if !d.anchored {
				continue
			}
		case d.pos < best.pos:
			continue
		}
		best, ok = d, true
	}
	return best, ok
}

func anchoredAt(text string, pos int) bool {
	start := max(0, pos-anchorWindow)
	return endAnchor.MatchString(text[start:pos])
}

// buildPromoDate reads the day and optional year groups of a match.
func buildPromoDate(text string, m []int, month time.Month) (promoDate, bool) {
	if month == 0 {
		return promoDate{}, false
	}
	day, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil {
		return promoDate{}, false
	}
	d := promoDate{pos: m[0], text: text[m[0]:m[1]], day: day, month: month, anchored: anchoredAt(text, m[0])}
	if m[6] >= 0 {
		year, err := strconv.Atoi(text[m[6]:m[7]])
		if err != nil {
			return promoDate{}, false
		}
		if year < 100 {
			year += 2000
		}
		d.year = year
		d.hasYear = true
	}
	// Leap day is checked against a leap year when the year is unknown.
	checkYear := d.year
	if !d.hasYear {
		checkYear = 2024
	}
	probe := time.Date(checkYear, month, day, 0, 0, 0, 0, time.UTC)
	if day < 1 || probe.Month() != month || probe.Day() != day {
		return promoDate{}, false
	}
	return d, true
}

// reclassifyPromos rewrites promo issues with the deterministic date policy.
// Issues about a promotion that is still valid are dropped.
func reclassifyPromos(issues []ContentIssue, ref time.Time) []ContentIssue {
	kept := make([]ContentIssue, 0, len(issues))
	for _, issue := range issues {
		if !issue.Type.isPromo() {
			kept = append(kept, issue)
			continue
		}
		phrase := issue.Text
		if issue.Promo != nil && issue.Promo.EndText != "" {
			phrase = issue.Promo.EndText
		}
		verdict, ok := ClassifyPromo(phrase, ref)
		if !ok && phrase != issue.Text {
			verdict, ok = ClassifyPromo(issue.Text, ref)
		}
		if !ok {
			kept = append(kept, issue)
			continue
		}
		if !verdict.Finding {
			continue
		}
		promo := verdict.Promo
		issue.Type = verdict.Type
		issue.Severity = verdict.Severity
		issue.Promo = &promo
		kept = append(kept, issue)
	}
	return kept
}
