package logic

import (
	"sort"

	"github.com/hbollon/go-edlib"
	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/surgebase/porter2"
)

// suggestRemovals ranks the tags present in tags, other than the
// conflicting ones, by how closely each resembles a conflicting tag,
// stemming both sides with porter2 and then scoring the stemmed forms
// with edlib's Jaro-Winkler similarity, and returns at most the three
// best names. Used to populate ConflictInfo.Suggestions.
func (e *Engine) suggestRemovals(tags *tagid.Set, conflicting []tagid.ID) []string {
	conflictSet := make(map[tagid.ID]bool, len(conflicting))
	for _, c := range conflicting {
		conflictSet[c] = true
	}

	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	for _, present := range tags.Items() {
		if conflictSet[present] {
			continue
		}
		candidates = append(candidates, scored{name: e.Registry.Name(present)})
	}

	for _, cid := range conflicting {
		stemmedTarget := porter2.Stem(e.Registry.Name(cid))
		for i := range candidates {
			stemmedOther := porter2.Stem(candidates[i].name)
			sim, err := edlib.StringsSimilarity(stemmedTarget, stemmedOther, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if float64(sim) > candidates[i].score {
				candidates[i].score = float64(sim)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var out []string
	for _, c := range candidates {
		if len(out) >= 3 {
			break
		}
		out = append(out, c.name)
	}
	return out
}

// SuggestTagName returns the closest registered tag name to query by
// Jaro-Winkler similarity (edlib.FuzzySearch), useful for "did you mean" diagnostics on unknown tag
// arguments. Returns "" if the registry has nothing registered yet.
func SuggestTagName(reg *tagid.Registry, query string) string {
	all := reg.All()
	if len(all) == 0 {
		return ""
	}
	best, err := edlib.FuzzySearch(query, all, edlib.JaroWinkler)
	if err != nil {
		return ""
	}
	return best
}
