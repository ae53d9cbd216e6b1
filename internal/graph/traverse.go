package graph

// ShortestPath returns the fewest-hop call chain from one node to another,
// both ends included. It is nil when to is unreachable.
func (g *Callgraph) ShortestPath(from, to *Node) []*Node {
	if from.id == to.id {
		return []*Node{from}
	}

	queue := []NodeID{from.id}
	visited := map[NodeID]bool{from.id: true}
	parent := map[NodeID]NodeID{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.edges.callees[current] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current
			if next == to.id {
				return g.resolve(reconstructPath(parent, from.id, to.id))
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstructPath(parent map[NodeID]NodeID, from, to NodeID) []NodeID {
	out := []NodeID{to}
	for current := to; current != from; {
		prev, ok := parent[current]
		if !ok {
			return nil
		}
		out = append(out, prev)
		current = prev
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Step is a node reached while tracing, with its distance in calls.
type Step struct {
	Node  *Node
	Depth int
}

// Trace walks callees breadth-first up to depth calls away, excluding the
// start node. Each node is reported once, at its smallest depth.
func (g *Callgraph) Trace(from *Node, depth int) []Step {
	if depth < 1 {
		return nil
	}
	visited := map[NodeID]bool{from.id: true}
	frontier := []NodeID{from.id}
	var out []Step
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []NodeID
		for _, id := range frontier {
			for _, callee := range g.edges.callees[id] {
				if visited[callee] {
					continue
				}
				visited[callee] = true
				next = append(next, callee)
				out = append(out, Step{Node: g.nodes[callee], Depth: d})
			}
		}
		frontier = next
	}
	return out
}
