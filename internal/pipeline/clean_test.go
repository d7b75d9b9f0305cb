package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"plain":          {in: `{"a":1}`, want: `{"a":1}`},
		"json fence":     {in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		"bare fence":     {in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		"surrounding ws": {in: "  \n```json {\"a\":1} ```  \n", want: `{"a":1}`},
		"no closing":     {in: "```json\n{\"a\":1}", want: `{"a":1}`},
		"empty":          {in: "   ", want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CleanJSONResponse(tt.in))
		})
	}
}

func TestFilterSpelling(t *testing.T) {
	t.Parallel()

	in := []SpellingFinding{
		{Error: "ortographe", Correction: "orthographe", Severity: SeverityMinor},
		{Error: "Cafe\u0301", Correction: "café", Severity: SeverityMinor},
		{Error: "\u00a0Bonjour\u200b", Correction: "bonjour", Severity: SeverityMinor},
		{Error: "  ", Correction: "x", Severity: SeverityMinor},
		{Error: "à  bientôt", Correction: "À bientôt", Severity: SeverityMinor},
	}
	got := filterSpelling(in)
	require.Len(t, got, 1)
	require.Equal(t, "ortographe", got[0].Error)
}

func TestNormalizeForCompare(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bonjour le monde", normalizeForCompare("\ufeffBonjour  le\u200dmonde "))
	require.Equal(t, normalizeForCompare("\u00e9"), normalizeForCompare("e\u0301"))
}
