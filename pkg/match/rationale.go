package match

import (
	"sort"
	"strings"
)

const maxRationaleSpans = 3

// sentenceSpans splits text into sentence-bounded verbatim substrings.
// Spans are trimmed slices of the original text, never rewritten, so a
// reader can locate each one in the source document.
func sentenceSpans(text string) []string {
	var spans []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?', '\n':
			span := strings.TrimSpace(text[start : i+1])
			if span != "" {
				spans = append(spans, span)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		spans = append(spans, tail)
	}
	return spans
}

// rationaleSpans picks up to three of the shortest sentences containing the
// highest-weight matched terms. Terms are visited by descending weight with
// an alphabetical tie-break so repeated runs choose identical spans. When no
// sentence contains a matched term the result is empty: a rationale is never
// fabricated.
func rationaleSpans(text string, docTokens map[string]struct{}, terms []weightedTerm) []string {
	matched := make([]weightedTerm, 0, len(terms))
	for _, t := range terms {
		if _, ok := docTokens[t.term]; ok {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].weight != matched[j].weight {
			return matched[i].weight > matched[j].weight
		}
		return matched[i].term < matched[j].term
	})

	spans := sentenceSpans(text)
	if len(spans) == 0 {
		return nil
	}

	used := make(map[string]struct{}, maxRationaleSpans)
	var out []string
	for _, term := range matched {
		if len(out) >= maxRationaleSpans {
			break
		}
		best := ""
		for _, span := range spans {
			if _, dup := used[span]; dup {
				continue
			}
			if !spanContainsTerm(span, term.term) {
				continue
			}
			if best == "" || len(span) < len(best) {
				best = span
			}
		}
		if best != "" {
			used[best] = struct{}{}
			out = append(out, best)
		}
	}
	return out
}

// spanContainsTerm reports whether any token of the span stems to the term.
func spanContainsTerm(span, term string) bool {
	for _, tok := range tokenize(span) {
		if tok == term {
			return true
		}
	}
	return false
}
