package aggregate

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// foldText trims, collapses whitespace and case-folds s.
func foldText(s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}

// addPage appends page to pages unless it is empty or already present.
func addPage(pages []string, page string) []string {
	if page == "" || slices.Contains(pages, page) {
		return pages
	}
	return append(pages, page)
}

func mergePages(dst []string, src ...string) []string {
	for _, p := range src {
		dst = addPage(dst, p)
	}
	return dst
}
