package match

import (
	"reflect"
	"testing"

	"github.com/accredmap/backend/pkg/common"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "stopwords and short tokens dropped",
			text: "The institution is committed to a culture of assessment",
			want: []string{"committ", "culture", "assess"},
		},
		{
			name: "punctuation splits",
			text: "outcomes, goals; results.",
			want: []string{"outcom", "goal", "result"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tokenize(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestStem(t *testing.T) {
	cases := []struct {
		word string
		want string
	}{
		{"assessment", "assess"},
		{"assessments", "assess"},
		{"learning", "learn"},
		{"reviewed", "review"},
		{"outcomes", "outcom"},
		{"goals", "goal"},
		{"mission", "mission"},
		{"its", "its"}, // too short to trim
	}

	for _, tc := range cases {
		if got := stem(tc.word); got != tc.want {
			t.Errorf("stem(%q): expected %q, got %q", tc.word, tc.want, got)
		}
	}
}

func TestLexicalScore(t *testing.T) {
	terms := []weightedTerm{
		{term: "assess", weight: 1.0},
		{term: "outcom", weight: 1.0},
		{term: "audit", weight: 0.5},
	}

	cases := []struct {
		name string
		doc  string
		want float64
	}{
		{"full coverage", "assessment of outcomes and audits", 1.0},
		{"partial coverage", "assessment only", 0.4},
		{"no coverage", "entirely unrelated prose", 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := lexicalScore(tokenSet(tc.doc), terms)
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if got := lexicalScore(tokenSet("anything"), nil); got != 0 {
		t.Errorf("expected 0 for empty terms, got %v", got)
	}
}

func TestTextOverlap(t *testing.T) {
	doc := tokenSet("the program publishes learning outcomes for students")

	if got := textOverlap(doc, "learning outcomes"); got != 1.0 {
		t.Errorf("expected full overlap, got %v", got)
	}
	if got := textOverlap(doc, "financial audits"); got != 0.0 {
		t.Errorf("expected zero overlap, got %v", got)
	}
	if got := textOverlap(doc, ""); got != 0.0 {
		t.Errorf("expected 0 for empty text, got %v", got)
	}
}

func TestStandardTermsHighestWeightWins(t *testing.T) {
	std := &common.Standard{
		ID:    "TSTA.1",
		Title: "Assessment",
		Clauses: []common.Clause{
			{
				ID:   "TSTA.1.A",
				Text: "Ongoing assessment of results.",
				Indicators: []common.Indicator{
					{ID: "TSTA.1.A.1", Text: "Assessment cycle documented.", Weight: 0.3},
				},
			},
		},
	}

	terms := standardTerms(std)
	weights := make(map[string]float64, len(terms))
	for _, term := range terms {
		weights[term.term] = term.weight
	}

	// "assess" appears in title (1.0), clause (1.0), and indicator (0.3).
	if weights["assess"] != 1.0 {
		t.Errorf("expected weight 1.0 for assess, got %v", weights["assess"])
	}
	// "cycle" appears only in the indicator.
	if weights["cycle"] != 0.3 {
		t.Errorf("expected weight 0.3 for cycle, got %v", weights["cycle"])
	}
}
