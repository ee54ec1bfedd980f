package match

import (
	"strings"
	"unicode"

	"github.com/accredmap/backend/pkg/common"
)

// stopwords excluded from lexical scoring. Institutional prose is dense with
// these and they carry no evidentiary signal.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"their": {}, "this": {}, "to": {}, "was": {}, "were": {}, "which": {},
	"will": {}, "with": {}, "through": {}, "these": {}, "those": {}, "such": {},
	"including": {}, "institution": {}, "institutions": {},
}

// tokenize lowercases text and splits it into stopword-filtered word tokens.
// Light stemming folds plural/verbal suffixes so "assesses" matches
// "assessment of" prose without a full stemmer.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// stem applies a few cheap suffix folds. It is intentionally crude: both
// sides of a comparison go through it, so only consistency matters.
func stem(word string) string {
	for _, suffix := range []string{"ments", "ment", "ing", "es", "ed", "s"} {
		if trimmed, ok := strings.CutSuffix(word, suffix); ok && len(trimmed) >= 3 {
			return trimmed
		}
	}
	return word
}

// weightedTerm is a standard-side token with the weight of the corpus node
// it came from. Indicator tokens carry the indicator weight; title and
// clause tokens carry weight 1.
type weightedTerm struct {
	term   string
	weight float64
}

// standardTerms extracts the weighted token vocabulary of a standard from
// its title, description, clause text, and indicator text. When a term
// appears at multiple levels the highest weight wins.
func standardTerms(std *common.Standard) []weightedTerm {
	weights := make(map[string]float64)
	add := func(text string, weight float64) {
		for _, tok := range tokenize(text) {
			if weight > weights[tok] {
				weights[tok] = weight
			}
		}
	}

	add(std.Title, 1.0)
	add(std.Description, 0.8)
	for _, clause := range std.Clauses {
		add(clause.Text, 1.0)
		for _, ind := range clause.Indicators {
			w := ind.Weight
			if w <= 0 {
				w = 0.5
			}
			add(ind.Text, w)
		}
	}

	terms := make([]weightedTerm, 0, len(weights))
	for term, weight := range weights {
		terms = append(terms, weightedTerm{term: term, weight: weight})
	}
	return terms
}

// lexicalScore is the weighted keyword coverage of the standard's
// vocabulary by the document's token set, in [0,1].
func lexicalScore(docTokens map[string]struct{}, terms []weightedTerm) float64 {
	if len(terms) == 0 {
		return 0
	}
	var covered, total float64
	for _, t := range terms {
		total += t.weight
		if _, ok := docTokens[t.term]; ok {
			covered += t.weight
		}
	}
	if total == 0 {
		return 0
	}
	return covered / total
}

// textOverlap is the unweighted token coverage of one corpus text by the
// document, used for clause-level structural hits and indicator matches.
func textOverlap(docTokens map[string]struct{}, text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	hits := 0
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := docTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}
