package standards

import (
	"fmt"
	"time"

	"github.com/accredmap/backend/pkg/common"
)

// Node is a single addressable element of a standards graph generation:
// an accreditor, standard, clause, or indicator.
type Node struct {
	ID       string
	Kind     string
	Label    string
	Text     string
	ParentID string
	ChildIDs []string

	// Standard is set for standard nodes and points into the generation's
	// accreditor data.
	Standard *common.Standard
}

// Generation is an immutable snapshot of the whole corpus at a point in
// time. All query methods read only; a generation is never mutated after
// Build returns it, so it is safe to share across goroutines without locks.
type Generation struct {
	id      int64
	builtAt time.Time

	accreditors []common.Accreditor
	nodes       map[string]*Node
	standards   map[string][]*common.Standard
}

// ID returns the generation counter assigned when the snapshot was
// published. It is zero for generations that were built but never swapped in.
func (g *Generation) ID() int64 { return g.id }

// BuiltAt returns the time the snapshot was constructed.
func (g *Generation) BuiltAt() time.Time { return g.builtAt }

// Build constructs the node and edge indices for a set of validated
// accreditors. It is O(N) in the total node count and fails atomically:
// an error means no generation was produced, never a partial one.
func Build(accreditors []common.Accreditor) (*Generation, error) {
	if len(accreditors) == 0 {
		return nil, fmt.Errorf("cannot build a generation with zero accreditors")
	}

	gen := &Generation{
		builtAt:     time.Now().UTC(),
		accreditors: accreditors,
		nodes:       make(map[string]*Node),
		standards:   make(map[string][]*common.Standard, len(accreditors)),
	}

	for ai := range accreditors {
		acc := &gen.accreditors[ai]
		if _, dup := gen.nodes[acc.Code]; dup {
			return nil, fmt.Errorf("duplicate accreditor code %q", acc.Code)
		}
		accNode := &Node{
			ID:    acc.Code,
			Kind:  common.NodeKindAccreditor,
			Label: acc.Name,
		}
		gen.nodes[acc.Code] = accNode

		for si := range acc.Standards {
			std := &acc.Standards[si]
			if _, dup := gen.nodes[std.ID]; dup {
				return nil, fmt.Errorf("duplicate node id %q", std.ID)
			}
			stdNode := &Node{
				ID:       std.ID,
				Kind:     common.NodeKindStandard,
				Label:    std.Title,
				Text:     std.Description,
				ParentID: acc.Code,
				Standard: std,
			}
			gen.nodes[std.ID] = stdNode
			accNode.ChildIDs = append(accNode.ChildIDs, std.ID)
			gen.standards[acc.Code] = append(gen.standards[acc.Code], std)

			for ci := range std.Clauses {
				clause := &std.Clauses[ci]
				if _, dup := gen.nodes[clause.ID]; dup {
					return nil, fmt.Errorf("duplicate node id %q", clause.ID)
				}
				clauseNode := &Node{
					ID:       clause.ID,
					Kind:     common.NodeKindClause,
					Label:    clause.ID,
					Text:     clause.Text,
					ParentID: std.ID,
				}
				gen.nodes[clause.ID] = clauseNode
				stdNode.ChildIDs = append(stdNode.ChildIDs, clause.ID)

				for ii := range clause.Indicators {
					ind := &clause.Indicators[ii]
					if _, dup := gen.nodes[ind.ID]; dup {
						return nil, fmt.Errorf("duplicate node id %q", ind.ID)
					}
					gen.nodes[ind.ID] = &Node{
						ID:       ind.ID,
						Kind:     common.NodeKindIndicator,
						Label:    ind.ID,
						Text:     ind.Text,
						ParentID: clause.ID,
					}
					clauseNode.ChildIDs = append(clauseNode.ChildIDs, ind.ID)
				}
			}
		}
	}

	return gen, nil
}

// Get returns the node with the given id, or ok=false when no such node
// exists in this generation.
func (g *Generation) Get(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Neighbors returns the parent (if any) followed by the children of the
// node with the given id. O(degree).
func (g *Generation) Neighbors(id string) []*Node {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	neighbors := make([]*Node, 0, len(node.ChildIDs)+1)
	if node.ParentID != "" {
		if parent, ok := g.nodes[node.ParentID]; ok {
			neighbors = append(neighbors, parent)
		}
	}
	for _, childID := range node.ChildIDs {
		if child, ok := g.nodes[childID]; ok {
			neighbors = append(neighbors, child)
		}
	}
	return neighbors
}

// StandardsFor returns the standards of one accreditor in corpus order.
// The returned slice must not be modified.
func (g *Generation) StandardsFor(accreditorCode string) []*common.Standard {
	return g.standards[accreditorCode]
}

// Accreditors returns every accreditor in this generation, sorted by code.
// The returned slice must not be modified.
func (g *Generation) Accreditors() []common.Accreditor {
	return g.accreditors
}

// TotalStandards returns the number of standards across all accreditors.
func (g *Generation) TotalStandards() int {
	total := 0
	for _, stds := range g.standards {
		total += len(stds)
	}
	return total
}
