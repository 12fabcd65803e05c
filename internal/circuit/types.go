package circuit

import "fmt"

// State tracks the lifecycle of a circuit or subsystem.
type State int

const (
	// Unconfigured: constructed but configure has not run yet.
	Unconfigured State = iota
	// Configured: operators and subsystems are consistent.
	Configured
	// OutOfSync: a structural broadcast invalidated this node; it must be
	// rebuilt before serving operators.
	OutOfSync
	// Rebuilding guards against re-entrant configure calls.
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "UNCONFIGURED"
	case Configured:
		return "CONFIGURED"
	case OutOfSync:
		return "OUT_OF_SYNC"
	case Rebuilding:
		return "REBUILDING"
	}
	return "UNKNOWN"
}

// ExtBasis selects the local basis for extended variables.
type ExtBasis string

const (
	BasisDiscretized ExtBasis = "discretized"
	BasisHarmonic    ExtBasis = "harmonic"
)

// HierarchyNode is one entry of a system hierarchy: either a flat list of
// variable indices, or a nested hierarchy of its own.
type HierarchyNode struct {
	Indices []int       `msgpack:"indices,omitempty"`
	Nested  []HierarchyNode `msgpack:"nested,omitempty"`
}

// Flat reports whether the node is a flat index list.
func (n HierarchyNode) Flat() bool { return len(n.Nested) == 0 }

// AllIndices flattens the node into its full index set.
func (n HierarchyNode) AllIndices() []int {
	if n.Flat() {
		return append([]int(nil), n.Indices...)
	}
	var out []int
	for _, child := range n.Nested {
		out = append(out, child.AllIndices()...)
	}
	return out
}

// Hierarchy partitions a system's variable indices into subsystems.
type Hierarchy []HierarchyNode

// FlatNode builds a flat hierarchy entry.
func FlatNode(indices ...int) HierarchyNode {
	return HierarchyNode{Indices: indices}
}

// NestedNode builds a nested hierarchy entry.
func NestedNode(children ...HierarchyNode) HierarchyNode {
	return HierarchyNode{Nested: children}
}

// TruncationNode is the truncation spec matching one hierarchy node: a plain
// dimension for a flat entry, or a combined dimension plus a nested spec for
// a nested entry.
type TruncationNode struct {
	Dim    int              `msgpack:"dim"`
	Nested []TruncationNode `msgpack:"nested,omitempty"`
}

// TruncationSpec matches a Hierarchy shape node for node.
type TruncationSpec []TruncationNode

// TruncDim builds a flat truncation entry.
func TruncDim(dim int) TruncationNode {
	return TruncationNode{Dim: dim}
}

// TruncNested builds a nested truncation entry with a combined dimension.
func TruncNested(combined int, children ...TruncationNode) TruncationNode {
	return TruncationNode{Dim: combined, Nested: children}
}

// checkShape verifies that hierarchy and truncation spec share an identical
// nested shape; a mismatch is fatal.
func checkShape(hierarchy Hierarchy, trunc TruncationSpec) error {
	if len(hierarchy) != len(trunc) {
		return configErrorf("system hierarchy has %d entries but truncation spec has %d",
			len(hierarchy), len(trunc))
	}
	for i, node := range hierarchy {
		tn := trunc[i]
		if node.Flat() != (len(tn.Nested) == 0) {
			return configErrorf("hierarchy entry %d and truncation entry %d disagree on nesting", i, i)
		}
		if tn.Dim < 1 {
			return configErrorf("truncation entry %d has non-positive dimension %d", i, tn.Dim)
		}
		if !node.Flat() {
			if err := checkShape(Hierarchy(node.Nested), TruncationSpec(tn.Nested)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClosureBranch identifies a circuit branch that carries an external flux
// variable for its loop.
type ClosureBranch struct {
	NodeA      int    `msgpack:"node_a"`
	NodeB      int    `msgpack:"node_b"`
	BranchType string `msgpack:"branch_type"`
	FluxSymbol string `msgpack:"flux_symbol"`
}

func (b ClosureBranch) String() string {
	return fmt.Sprintf("%s(%d,%d)->%s", b.BranchType, b.NodeA, b.NodeB, b.FluxSymbol)
}
