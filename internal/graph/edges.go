package graph

import (
	"fmt"
	"slices"

	"github.com/mcgtools/mcg/internal/mcg"
)

// edgeIndex holds the forward relation and its inverse, both as sets of
// ids sorted ascending.
type edgeIndex struct {
	callees [][]NodeID
	callers [][]NodeID
	edges   int
}

// buildEdgeIndex resolves every record's callee references. A reference
// resolves to the earliest inserted node carrying it; for name-keyed
// documents the reference is the function name, so this is lookupFirst.
func buildEdgeIndex(table *nodeTable) (*edgeIndex, error) {
	n := table.len()
	refs := make(map[string]NodeID, n)
	for i := 0; i < n; i++ {
		ref := table.record(NodeID(i)).Ref
		if _, seen := refs[ref]; !seen {
			refs[ref] = NodeID(i)
		}
	}

	idx := &edgeIndex{
		callees: make([][]NodeID, n),
		callers: make([][]NodeID, n),
	}
	for i := 0; i < n; i++ {
		record := table.record(NodeID(i))
		out := make([]NodeID, 0, len(record.Callees))
		for _, ref := range record.Callees {
			target, ok := refs[ref]
			if !ok {
				return nil, &mcg.FormatError{
					Field: mcg.Path(mcg.KeyPath(mcg.CallgraphField, record.Ref), "callees"),
					Msg:   fmt.Sprintf("callee %q is not a declared node", ref),
				}
			}
			out = append(out, target)
		}
		idx.callees[i] = dedupeAndSort(out)
	}

	for caller, targets := range idx.callees {
		for _, callee := range targets {
			idx.callers[callee] = append(idx.callers[callee], NodeID(caller))
		}
		idx.edges += len(targets)
	}
	// Callers are appended while walking callers in ascending order, so
	// each inverse list is already sorted and free of repeats.
	return idx, nil
}

func dedupeAndSort(ids []NodeID) []NodeID {
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
