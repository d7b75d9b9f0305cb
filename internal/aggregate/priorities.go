package aggregate

import "github.com/TheoCtla/SmartQA/internal/pipeline"

// Priority is one action item merged across pages.
type Priority struct {
	Source  string   `json:"source"`
	Summary string   `json:"resume"`
	Pages   []string `json:"pages"`
}

// Priorities is the deduplicated action plan.
type Priorities struct {
	P0 []Priority `json:"P0"`
	P1 []Priority `json:"P1"`
	P2 []Priority `json:"P2"`
}

// RollupPriorities deduplicates each bucket by folded resume, accumulating
// the page URLs that raised the same item. An item already present in a more
// urgent bucket is dropped from the less urgent one.
func RollupPriorities(stage6 pipeline.Stage6Result) Priorities {
	seen := make(map[string]bool)
	roll := func(items []pipeline.Priority) []Priority {
		index := make(map[string]int)
		out := []Priority{}
		for _, item := range items {
			key := foldText(item.Summary)
			if key == "" || seen[key] {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, Priority{Source: item.Source, Summary: item.Summary, Pages: []string{}})
			}
			out[i].Pages = addPage(out[i].Pages, item.PageURL)
		}
		for key := range index {
			seen[key] = true
		}
		return out
	}
	return Priorities{
		P0: roll(stage6.Priorities.P0),
		P1: roll(stage6.Priorities.P1),
		P2: roll(stage6.Priorities.P2),
	}
}
