package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanJSONResponse strips the markdown code fences oracles wrap JSON in.
func CleanJSONResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = cleaned[len("```json"):]
	case strings.HasPrefix(cleaned, "```"):
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// decodeInto cleans text and decodes it into v.
func decodeInto(text string, v any) error {
	cleaned := CleanJSONResponse(text)
	if cleaned == "" {
		return schemaErr("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("decode oracle json: %w", err)
	}
	return nil
}

var (
	invisibleRunes = strings.NewReplacer(
		"\u200b", " ", "\u200c", " ", "\u200d", " ", "\ufeff", " ", "\u00a0", " ",
	)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// normalizeForCompare folds a spelling token so that visually identical
// strings compare equal.
func normalizeForCompare(s string) string {
	s = norm.NFC.String(s)
	s = invisibleRunes.Replace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// filterSpelling drops findings with an empty error or where the correction
// is the error itself.
func filterSpelling(findings []SpellingFinding) []SpellingFinding {
	kept := make([]SpellingFinding, 0, len(findings))
	for _, f := range findings {
		errText := normalizeForCompare(f.Error)
		if errText == "" || errText == normalizeForCompare(f.Correction) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
