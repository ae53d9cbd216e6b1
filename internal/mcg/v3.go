package mcg

import (
	"encoding/json"
)

// V3 lists nodes and edges as separate arrays. Nodes are `[id, node]`
// pairs, edges are `[[callerId, calleeId], meta]` pairs. Edge metadata is
// accepted and discarded.
type V3 struct{}

func (V3) Version() string   { return "3.0" }
func (V3) Accepts() []string { return []string{"3", "3.0"} }

func (V3) Decode(cg json.RawMessage) ([]Record, error) {
	top, err := DecodeObject(cg, CallgraphField)
	if err != nil {
		return nil, err
	}
	nodesField := Path(CallgraphField, "nodes")
	edgesField := Path(CallgraphField, "edges")
	rawNodes, _ := top.Get("nodes")
	nodes, err := DecodeArray(rawNodes, nodesField)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(nodes))
	pending := make([]pendingOverrides, 0, len(nodes))
	positions := make(map[string]int, len(nodes))
	for i, rawNode := range nodes {
		field := IndexPath(nodesField, i)
		pair, err := DecodeArray(rawNode, field)
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, formatErrorf(field, "expected an [id, node] pair")
		}
		id, err := decodeID(pair[0], IndexPath(field, 0))
		if err != nil {
			return nil, err
		}
		if _, dup := positions[id]; dup {
			return nil, duplicateIDError(IndexPath(field, 0), id)
		}
		nodeField := IndexPath(field, 1)
		node, err := DecodeObject(pair[1], nodeField)
		if err != nil {
			return nil, err
		}
		record := Record{Ref: id, HasBody: true}
		overrides, err := readIDNode(&record, node, nodeField)
		if err != nil {
			return nil, err
		}
		positions[id] = len(records)
		records = append(records, record)
		pending = append(pending, overrides)
	}

	rawEdges, _ := top.Get("edges")
	edges, err := DecodeArray(rawEdges, edgesField)
	if err != nil {
		return nil, err
	}
	for i, rawEdge := range edges {
		field := IndexPath(edgesField, i)
		pair, err := DecodeArray(rawEdge, field)
		if err != nil {
			return nil, err
		}
		if len(pair) == 0 || len(pair) > 2 {
			return nil, formatErrorf(field, "expected a [[caller, callee], meta] pair")
		}
		endpointsField := IndexPath(field, 0)
		endpoints, err := DecodeArray(pair[0], endpointsField)
		if err != nil {
			return nil, err
		}
		if len(endpoints) != 2 {
			return nil, formatErrorf(endpointsField, "expected a [caller, callee] pair")
		}
		from, err := decodeID(endpoints[0], IndexPath(endpointsField, 0))
		if err != nil {
			return nil, err
		}
		to, err := decodeID(endpoints[1], IndexPath(endpointsField, 1))
		if err != nil {
			return nil, err
		}
		caller, ok := positions[from]
		if !ok {
			return nil, formatErrorf(IndexPath(endpointsField, 0), "caller %q is not a declared node", from)
		}
		records[caller].Callees = append(records[caller].Callees, to)
	}

	if err := resolveOverrides(records, pending); err != nil {
		return nil, err
	}
	return records, nil
}

type v3Node struct {
	FunctionName string  `json:"functionName"`
	Origin       *string `json:"origin"`
	HasBody      bool    `json:"hasBody"`
	Meta         Object  `json:"meta"`
}

func (V3) Encode(records []Record, opts EncodeOptions) (json.RawMessage, error) {
	ids := uniqueIDs(records)
	index := RefIndex(records)
	names := NameIndex(records)

	nodes := make([]json.RawMessage, 0, len(records))
	var edges []json.RawMessage
	for _, i := range order(ids, opts.Sorted) {
		record := records[i]
		meta, err := idMeta(records, i, ids, names)
		if err != nil {
			return nil, err
		}
		node, err := json.Marshal(v3Node{
			FunctionName: record.Name,
			Origin:       optional(record.Origin),
			HasBody:      record.HasBody,
			Meta:         meta,
		})
		if err != nil {
			return nil, err
		}
		pair, err := json.Marshal([]json.RawMessage{jsonID(ids[i]), node})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, pair)

		callees, err := calleeKeys(records, index, ids, i, opts.Sorted)
		if err != nil {
			return nil, err
		}
		for _, callee := range callees {
			edge, err := json.Marshal([]any{[]json.RawMessage{jsonID(ids[i]), jsonID(callee)}, nil})
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
	}
	if edges == nil {
		edges = []json.RawMessage{}
	}

	var cg Object
	if err := cg.Add("nodes", nodes); err != nil {
		return nil, err
	}
	if err := cg.Add("edges", edges); err != nil {
		return nil, err
	}
	return json.Marshal(cg)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
