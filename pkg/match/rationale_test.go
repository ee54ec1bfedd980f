package match

import (
	"reflect"
	"testing"
)

func TestSentenceSpans(t *testing.T) {
	text := "First sentence. Second one!\nThird without terminator"
	want := []string{"First sentence.", "Second one!", "Third without terminator"}

	got := sentenceSpans(text)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRationaleSpansVerbatim(t *testing.T) {
	text := "The program assesses student work. Results are reviewed annually. Nothing else here."
	terms := []weightedTerm{
		{term: "assess", weight: 1.0},
		{term: "review", weight: 0.5},
	}

	spans := rationaleSpans(text, tokenSet(text), terms)
	want := []string{
		"The program assesses student work.",
		"Results are reviewed annually.",
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("expected %v, got %v", want, spans)
	}
}

func TestRationaleSpansEmptyWhenNoMatch(t *testing.T) {
	text := "Completely unrelated prose about weather patterns."
	terms := []weightedTerm{{term: "assess", weight: 1.0}}

	if spans := rationaleSpans(text, tokenSet(text), terms); len(spans) != 0 {
		t.Errorf("expected no spans, got %v", spans)
	}
}

func TestRationaleSpansCapped(t *testing.T) {
	text := "Alpha assessment here. Beta review there. Gamma outcomes exist. Delta goals too."
	terms := []weightedTerm{
		{term: "assess", weight: 1.0},
		{term: "review", weight: 0.9},
		{term: "outcom", weight: 0.8},
		{term: "goal", weight: 0.7},
	}

	spans := rationaleSpans(text, tokenSet(text), terms)
	if len(spans) != maxRationaleSpans {
		t.Errorf("expected %d spans, got %d: %v", maxRationaleSpans, len(spans), spans)
	}
}
