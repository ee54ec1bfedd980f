package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
code: AAAA
name: Alpha Accreditor
corpus_version: "2025.1"
standards:
  - id: AAAA.1
    title: Governance
    description: Governing structures are documented.
    clauses:
      - id: AAAA.1.A
        text: A governing board oversees institutional policy.
        indicators:
          - id: AAAA.1.A.1
            text: Board meeting minutes are published.
          - id: AAAA.1.A.2
            text: Board membership is disclosed.
`

const validJSON = `{
  "code": "BBBB",
  "name": "Beta Accreditor",
  "standards": [
    {
      "id": "BBBB.1",
      "title": "Finance",
      "clauses": [
        {
          "id": "BBBB.1.A",
          "text": "Financial statements are audited annually.",
          "indicators": [
            {"id": "BBBB.1.A.1", "text": "An independent auditor signs off.", "weight": 0.7}
          ]
        }
      ]
    }
  ]
}`

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadValidAndMalformed(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "AAAA.yaml", validYAML)
	writeCorpusFile(t, dir, "BBBB.json", validJSON)
	writeCorpusFile(t, dir, "BAD1.yaml", "code: [unterminated")
	writeCorpusFile(t, dir, "BAD2.yaml", `
code: CCCC
name: Gamma Accreditor
standards:
  - id: WRONG.1
    title: Misnamed
`)
	writeCorpusFile(t, dir, "notes.txt", "not a corpus file")

	result, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(result.Accreditors) != 2 {
		t.Fatalf("expected 2 accreditors, got %d", len(result.Accreditors))
	}
	if result.Accreditors[0].Code != "AAAA" || result.Accreditors[1].Code != "BBBB" {
		t.Errorf("expected sorted codes [AAAA BBBB], got [%s %s]",
			result.Accreditors[0].Code, result.Accreditors[1].Code)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 load errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	result, err := Load(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Accreditors) != 0 {
		t.Errorf("expected no accreditors, got %d", len(result.Accreditors))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error entry, got %d", len(result.Errors))
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	result, err := Load(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Accreditors) != 0 || len(result.Errors) != 1 {
		t.Errorf("expected empty result with one error, got %d accreditors, %d errors",
			len(result.Accreditors), len(result.Errors))
	}
}

func TestIndicatorWeightDefault(t *testing.T) {
	acc, err := (yamlParser{}).Parse([]byte(validYAML), "AAAA.yaml")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	indicators := acc.Standards[0].Clauses[0].Indicators
	if len(indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %d", len(indicators))
	}
	for _, ind := range indicators {
		if ind.Weight != 0.5 {
			t.Errorf("indicator %s: expected default weight 0.5, got %v", ind.ID, ind.Weight)
		}
	}
}

func TestIndicatorWeightExplicit(t *testing.T) {
	acc, err := (jsonParser{}).Parse([]byte(validJSON), "BBBB.json")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	got := acc.Standards[0].Clauses[0].Indicators[0].Weight
	if got != 0.7 {
		t.Errorf("expected explicit weight 0.7, got %v", got)
	}
}

func TestValidateRejectsBadStructure(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "standard id not namespaced",
			yaml: `
code: XXXX
name: Test
standards:
  - id: YYYY.1
    title: Wrong namespace
`,
		},
		{
			name: "duplicate standard id",
			yaml: `
code: XXXX
name: Test
standards:
  - id: XXXX.1
    title: First
  - id: XXXX.1
    title: Second
`,
		},
		{
			name: "clause does not extend standard id",
			yaml: `
code: XXXX
name: Test
standards:
  - id: XXXX.1
    title: Standard
    clauses:
      - id: XXXX.2.A
        text: Wrong parent.
`,
		},
		{
			name: "indicator weight out of range",
			yaml: `
code: XXXX
name: Test
standards:
  - id: XXXX.1
    title: Standard
    clauses:
      - id: XXXX.1.A
        text: Clause text.
        indicators:
          - id: XXXX.1.A.1
            text: Indicator text.
            weight: 1.5
`,
		},
		{
			name: "lowercase accreditor code",
			yaml: `
code: xxxx
name: Test
standards:
  - id: xxxx.1
    title: Lowercase code
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc, err := (yamlParser{}).Parse([]byte(tc.yaml), "XXXX.yaml")
			if err == nil {
				err = Validate(acc)
			}
			if err == nil {
				t.Errorf("expected validation error, got nil")
			}
		})
	}
}

func TestSeed(t *testing.T) {
	accreditors, err := Seed()
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if len(accreditors) != 2 {
		t.Fatalf("expected 2 seed accreditors, got %d", len(accreditors))
	}
	if accreditors[0].Code != "HLCA" || accreditors[1].Code != "PCAS" {
		t.Errorf("expected seed codes [HLCA PCAS], got [%s %s]",
			accreditors[0].Code, accreditors[1].Code)
	}
	for _, acc := range accreditors {
		if len(acc.Standards) == 0 {
			t.Errorf("seed accreditor %s has no standards", acc.Code)
		}
	}
}
