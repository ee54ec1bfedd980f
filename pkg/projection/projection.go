// Package projection renders visualization-ready subgraphs of a standards
// generation together with evidence-coverage metrics.
package projection

import (
	"sort"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/standards"
)

// Options narrows a projection. The zero value projects every accreditor
// down to the standard level.
type Options struct {
	// AccreditorCode restricts the projection to one accreditor. Empty means
	// all. An unknown code yields an empty projection, not an error.
	AccreditorCode string

	// IncludeClauses adds clause and indicator nodes beneath each standard.
	IncludeClauses bool
}

// Project builds a projection of the generation. mapped holds the ids of
// standards with at least one persisted mapping and drives the coverage
// percentage. Cross-reference edges are emitted only when both endpoints are
// inside the projection, so a single-accreditor view never dangles.
func Project(gen *standards.Generation, mapped map[string]struct{}, opts Options) common.GraphProjection {
	proj := common.GraphProjection{
		Nodes:                []common.ProjectionNode{},
		Edges:                []common.ProjectionEdge{},
		AvailableAccreditors: []string{},
	}
	if gen == nil {
		return proj
	}

	for _, acc := range gen.Accreditors() {
		proj.AvailableAccreditors = append(proj.AvailableAccreditors, acc.Code)
	}
	sort.Strings(proj.AvailableAccreditors)

	var scoped []common.Accreditor
	for _, acc := range gen.Accreditors() {
		if opts.AccreditorCode == "" || acc.Code == opts.AccreditorCode {
			scoped = append(scoped, acc)
		}
	}

	included := make(map[string]struct{})
	coveredInScope := 0

	for _, acc := range scoped {
		proj.Nodes = append(proj.Nodes, common.ProjectionNode{
			ID:    acc.Code,
			Kind:  common.NodeKindAccreditor,
			Label: acc.Name,
		})

		for _, std := range gen.StandardsFor(acc.Code) {
			proj.TotalStandards++
			if _, ok := mapped[std.ID]; ok {
				coveredInScope++
			}
			included[std.ID] = struct{}{}

			proj.Nodes = append(proj.Nodes, common.ProjectionNode{
				ID:    std.ID,
				Kind:  common.NodeKindStandard,
				Label: std.Title,
			})
			proj.Edges = append(proj.Edges, common.ProjectionEdge{
				Source:   acc.Code,
				Target:   std.ID,
				Relation: common.EdgeRelationContains,
			})

			if opts.IncludeClauses {
				appendClauseNodes(&proj, std)
			}
		}
	}

	for _, acc := range scoped {
		for _, std := range gen.StandardsFor(acc.Code) {
			for _, ref := range std.CrossRefs {
				if _, ok := included[ref]; !ok {
					continue
				}
				proj.Edges = append(proj.Edges, common.ProjectionEdge{
					Source:   std.ID,
					Target:   ref,
					Relation: common.EdgeRelationReferences,
				})
			}
		}
	}

	if proj.TotalStandards > 0 {
		proj.CoveragePercentage = float64(coveredInScope) / float64(proj.TotalStandards) * 100
	}
	return proj
}

func appendClauseNodes(proj *common.GraphProjection, std *common.Standard) {
	for _, clause := range std.Clauses {
		proj.Nodes = append(proj.Nodes, common.ProjectionNode{
			ID:    clause.ID,
			Kind:  common.NodeKindClause,
			Label: clause.ID,
		})
		proj.Edges = append(proj.Edges, common.ProjectionEdge{
			Source:   std.ID,
			Target:   clause.ID,
			Relation: common.EdgeRelationContains,
		})
		for _, ind := range clause.Indicators {
			proj.Nodes = append(proj.Nodes, common.ProjectionNode{
				ID:    ind.ID,
				Kind:  common.NodeKindIndicator,
				Label: ind.ID,
			})
			proj.Edges = append(proj.Edges, common.ProjectionEdge{
				Source:   clause.ID,
				Target:   ind.ID,
				Relation: common.EdgeRelationContains,
			})
		}
	}
}

// IDSet converts a list of standard ids to the set form Project consumes.
func IDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
