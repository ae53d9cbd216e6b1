package graph

import (
	"strconv"

	"github.com/mcgtools/mcg/internal/mcg"
)

// Records re-expresses the graph as intermediate records. References are
// node ids, so records of duplicate names stay distinct.
func (g *Callgraph) Records() []mcg.Record {
	records := make([]mcg.Record, 0, len(g.nodes))
	for _, node := range g.nodes {
		record := node.record().Clone()
		record.Ref = strconv.Itoa(int(node.id))
		record.Callees = make([]string, 0, len(g.edges.callees[node.id]))
		for _, callee := range g.edges.callees[node.id] {
			record.Callees = append(record.Callees, strconv.Itoa(int(callee)))
		}
		record.Metadata = g.meta.ordered(node.id)
		records = append(records, record)
	}
	return records
}

// Document wraps Records for encoding under version.
func (g *Callgraph) Document(version string) mcg.Document {
	return mcg.Document{Version: version, Records: g.Records()}
}
