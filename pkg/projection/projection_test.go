package projection

import (
	"math"
	"testing"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/standards"
)

func testGeneration(t *testing.T) *standards.Generation {
	t.Helper()
	gen, err := standards.Build([]common.Accreditor{
		{
			Code: "TSTA",
			Name: "Test Accreditor A",
			Standards: []common.Standard{
				{
					ID:         "TSTA.1",
					Accreditor: "TSTA",
					Title:      "Governance",
					CrossRefs:  []string{"TSTB.1"},
					Clauses: []common.Clause{
						{
							ID:   "TSTA.1.A",
							Text: "A governing board oversees policy.",
							Indicators: []common.Indicator{
								{ID: "TSTA.1.A.1", Text: "Minutes are published.", Weight: 1},
							},
						},
					},
				},
				{ID: "TSTA.2", Accreditor: "TSTA", Title: "Finance"},
			},
		},
		{
			Code: "TSTB",
			Name: "Test Accreditor B",
			Standards: []common.Standard{
				{ID: "TSTB.1", Accreditor: "TSTB", Title: "Audit"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return gen
}

func edgeCount(proj common.GraphProjection, relation string) int {
	n := 0
	for _, e := range proj.Edges {
		if e.Relation == relation {
			n++
		}
	}
	return n
}

func TestProjectFullGraph(t *testing.T) {
	gen := testGeneration(t)
	mapped := IDSet([]string{"TSTA.1", "TSTB.1"})

	proj := Project(gen, mapped, Options{})

	// 2 accreditors + 3 standards, no clause nodes by default.
	if len(proj.Nodes) != 5 {
		t.Errorf("expected 5 nodes, got %d", len(proj.Nodes))
	}
	if got := edgeCount(proj, common.EdgeRelationContains); got != 3 {
		t.Errorf("expected 3 contains edges, got %d", got)
	}
	if got := edgeCount(proj, common.EdgeRelationReferences); got != 1 {
		t.Errorf("expected 1 references edge, got %d", got)
	}
	if proj.TotalStandards != 3 {
		t.Errorf("expected 3 standards, got %d", proj.TotalStandards)
	}
	want := 2.0 / 3.0 * 100
	if math.Abs(proj.CoveragePercentage-want) > 1e-9 {
		t.Errorf("expected coverage %v, got %v", want, proj.CoveragePercentage)
	}
	if len(proj.AvailableAccreditors) != 2 || proj.AvailableAccreditors[0] != "TSTA" {
		t.Errorf("unexpected available accreditors: %v", proj.AvailableAccreditors)
	}
}

func TestProjectSingleAccreditor(t *testing.T) {
	gen := testGeneration(t)
	proj := Project(gen, IDSet([]string{"TSTA.1"}), Options{AccreditorCode: "TSTA"})

	if proj.TotalStandards != 2 {
		t.Errorf("expected 2 standards in scope, got %d", proj.TotalStandards)
	}
	// The cross-reference target TSTB.1 is outside the projection, so no
	// dangling references edge is emitted.
	if got := edgeCount(proj, common.EdgeRelationReferences); got != 0 {
		t.Errorf("expected no references edges, got %d", got)
	}
	if proj.CoveragePercentage != 50 {
		t.Errorf("expected 50%% coverage, got %v", proj.CoveragePercentage)
	}
	// Available accreditors always lists the whole generation.
	if len(proj.AvailableAccreditors) != 2 {
		t.Errorf("expected 2 available accreditors, got %v", proj.AvailableAccreditors)
	}
}

func TestProjectIncludeClauses(t *testing.T) {
	gen := testGeneration(t)
	proj := Project(gen, nil, Options{AccreditorCode: "TSTA", IncludeClauses: true})

	// 1 accreditor + 2 standards + 1 clause + 1 indicator.
	if len(proj.Nodes) != 5 {
		t.Errorf("expected 5 nodes with clauses, got %d", len(proj.Nodes))
	}
	if got := edgeCount(proj, common.EdgeRelationContains); got != 4 {
		t.Errorf("expected 4 contains edges, got %d", got)
	}
	if proj.CoveragePercentage != 0 {
		t.Errorf("expected zero coverage with no mappings, got %v", proj.CoveragePercentage)
	}
}

func TestProjectUnknownAccreditor(t *testing.T) {
	gen := testGeneration(t)
	proj := Project(gen, nil, Options{AccreditorCode: "NOPE"})

	if len(proj.Nodes) != 0 || len(proj.Edges) != 0 || proj.TotalStandards != 0 {
		t.Errorf("expected empty projection for unknown accreditor, got %+v", proj)
	}
}

func TestProjectNilGeneration(t *testing.T) {
	proj := Project(nil, nil, Options{})
	if len(proj.Nodes) != 0 || len(proj.Edges) != 0 || len(proj.AvailableAccreditors) != 0 {
		t.Errorf("expected empty projection for nil generation, got %+v", proj)
	}
}
