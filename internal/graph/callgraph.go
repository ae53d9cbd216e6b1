package graph

import (
	"iter"
	"os"

	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/metadata"
)

// Callgraph is an immutable call graph built from one document. All
// methods are safe for concurrent use.
type Callgraph struct {
	table *nodeTable
	edges *edgeIndex
	meta  *metadataStore
	nodes []*Node
}

// Node is one function occurrence. Nodes are compared by pointer: two
// nodes are the same only if they are the same occurrence.
type Node struct {
	g  *Callgraph
	id NodeID
}

// FromDocument builds a graph from decoded records. On error no graph is
// returned.
func FromDocument(doc mcg.Document) (*Callgraph, error) {
	table := newNodeTable(len(doc.Records))
	store := newMetadataStore(len(doc.Records))
	for _, record := range doc.Records {
		entries := record.Metadata
		record = record.Clone()
		record.Metadata = nil
		id := table.insert(record)
		for _, entry := range entries {
			store.attach(id, entry.Key, entry.Data)
		}
	}

	edges, err := buildEdgeIndex(table)
	if err != nil {
		if fe, ok := err.(*mcg.FormatError); ok && fe.Version == "" {
			fe.Version = doc.Version
		}
		return nil, err
	}

	g := &Callgraph{table: table, edges: edges, meta: store}
	g.nodes = make([]*Node, table.len())
	for i := range g.nodes {
		g.nodes[i] = &Node{g: g, id: NodeID(i)}
	}
	return g, nil
}

// Reader decodes documents with a fixed set of schema versions.
type Reader struct {
	Registry *mcg.Registry
}

func (r Reader) registry() *mcg.Registry {
	if r.Registry == nil {
		return mcg.DefaultRegistry()
	}
	return r.Registry
}

func (r Reader) Read(data []byte) (*Callgraph, error) {
	doc, err := r.registry().Read(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

func (r Reader) ReadFile(path string) (*Callgraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return r.Read(data)
}

// Read decodes data with every supported schema version.
func Read(data []byte) (*Callgraph, error) {
	return Reader{}.Read(data)
}

// ReadFile reads and decodes the document at path.
func ReadFile(path string) (*Callgraph, error) {
	return Reader{}.ReadFile(path)
}

// Len is the total number of nodes.
func (g *Callgraph) Len() int { return len(g.nodes) }

// Contains reports whether at least one node carries name.
func (g *Callgraph) Contains(name string) bool { return g.table.contains(name) }

// All yields every node in insertion order. The sequence can be ranged
// over any number of times.
func (g *Callgraph) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, node := range g.nodes {
			if !yield(node) {
				return
			}
		}
	}
}

// Nodes returns every node in insertion order.
func (g *Callgraph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Node returns the node with the given id.
func (g *Callgraph) Node(id NodeID) (*Node, bool) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// Lookup is exact access by name: it succeeds only if exactly one node
// carries name.
func (g *Callgraph) Lookup(name string) (*Node, error) {
	return g.SingleNode(name)
}

// FirstNode returns the earliest inserted node carrying name.
func (g *Callgraph) FirstNode(name string) (*Node, error) {
	id, err := g.table.lookupFirst(name)
	if err != nil {
		return nil, err
	}
	return g.nodes[id], nil
}

// SingleNode returns the only node carrying name, or a *NotFoundError or
// *AmbiguousNameError.
func (g *Callgraph) SingleNode(name string) (*Node, error) {
	id, err := g.table.lookupSingle(name)
	if err != nil {
		return nil, err
	}
	return g.nodes[id], nil
}

// NodesNamed returns every node carrying name in insertion order.
func (g *Callgraph) NodesNamed(name string) []*Node {
	ids := g.table.lookupAll(name)
	return g.resolve(ids)
}

// EdgeCount is the number of distinct caller/callee pairs.
func (g *Callgraph) EdgeCount() int { return g.edges.edges }

func (g *Callgraph) HasDuplicateNames() bool {
	return len(g.table.duplicates()) > 0
}

// DuplicateNames lists names carried by more than one node.
func (g *Callgraph) DuplicateNames() []string {
	return g.table.duplicates()
}

func (g *Callgraph) resolve(ids []NodeID) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

func (n *Node) ID() NodeID { return n.id }

func (n *Node) record() *mcg.Record { return n.g.table.record(n.id) }

func (n *Node) FunctionName() string { return n.record().Name }

// Callees returns the distinct nodes n calls, ordered by id.
func (n *Node) Callees() []*Node { return n.g.resolve(n.g.edges.callees[n.id]) }

// Callers returns the distinct nodes calling n, ordered by id.
func (n *Node) Callers() []*Node { return n.g.resolve(n.g.edges.callers[n.id]) }

// Calls reports whether n has an edge to other.
func (n *Node) Calls(other *Node) bool {
	for _, id := range n.g.edges.callees[n.id] {
		if id == other.id && other.g == n.g {
			return true
		}
	}
	return false
}

// MetaData returns a copy of the node's entries keyed by entry key. Nodes
// without metadata return an empty map.
func (n *Node) MetaData() map[string]metadata.Entry { return n.g.meta.get(n.id) }

// Meta returns the value stored under key.
func (n *Node) Meta(key string) (metadata.Value, bool) { return n.g.meta.lookup(n.id, key) }

func (n *Node) HasBody() bool      { return n.record().HasBody }
func (n *Node) IsVirtual() bool    { return n.record().IsVirtual }
func (n *Node) DoesOverride() bool { return n.record().DoesOverride }
func (n *Node) NumStatements() int { return n.record().NumStatements }
func (n *Node) Origin() string     { return n.record().Origin }

func (n *Node) OverriddenBy() []string {
	return append([]string(nil), n.record().OverriddenBy...)
}

func (n *Node) OverriddenFunctions() []string {
	return append([]string(nil), n.record().OverriddenFunctions...)
}

func (n *Node) String() string { return n.FunctionName() }
