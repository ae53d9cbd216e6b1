package graph

import "github.com/mcgtools/mcg/internal/mcg"

// NodeID is the identity of a node within one Callgraph. Ids are dense and
// follow insertion order.
type NodeID int

// nodeTable is the arena of decoded records plus the name index.
type nodeTable struct {
	records []mcg.Record
	byName  map[string][]NodeID
}

func newNodeTable(capacity int) *nodeTable {
	return &nodeTable{
		records: make([]mcg.Record, 0, capacity),
		byName:  make(map[string][]NodeID, capacity),
	}
}

func (t *nodeTable) insert(record mcg.Record) NodeID {
	id := NodeID(len(t.records))
	t.records = append(t.records, record)
	t.byName[record.Name] = append(t.byName[record.Name], id)
	return id
}

func (t *nodeTable) len() int { return len(t.records) }

func (t *nodeTable) record(id NodeID) *mcg.Record { return &t.records[id] }

func (t *nodeTable) lookupAll(name string) []NodeID {
	return append([]NodeID(nil), t.byName[name]...)
}

func (t *nodeTable) lookupFirst(name string) (NodeID, error) {
	ids := t.byName[name]
	if len(ids) == 0 {
		return 0, &NotFoundError{Name: name}
	}
	return ids[0], nil
}

func (t *nodeTable) lookupSingle(name string) (NodeID, error) {
	ids := t.byName[name]
	switch len(ids) {
	case 0:
		return 0, &NotFoundError{Name: name}
	case 1:
		return ids[0], nil
	default:
		return 0, &AmbiguousNameError{Name: name, Count: len(ids)}
	}
}

func (t *nodeTable) contains(name string) bool {
	return len(t.byName[name]) > 0
}

// duplicates returns the names carried by more than one node, in order of
// first insertion.
func (t *nodeTable) duplicates() []string {
	var names []string
	for i, record := range t.records {
		ids := t.byName[record.Name]
		if len(ids) > 1 && ids[0] == NodeID(i) {
			names = append(names, record.Name)
		}
	}
	return names
}
