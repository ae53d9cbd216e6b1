package mcg

import (
	"encoding/json"
)

// V4 keys nodes by id; each node carries its callees as an object mapping
// callee id to edge metadata.
type V4 struct{}

func (V4) Version() string   { return "4.0" }
func (V4) Accepts() []string { return []string{"4", "4.0"} }

func (V4) Decode(cg json.RawMessage) ([]Record, error) {
	members, err := DecodeObject(cg, CallgraphField)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(members))
	pending := make([]pendingOverrides, 0, len(members))
	positions := make(map[string]int, len(members))
	for _, member := range members {
		field := KeyPath(CallgraphField, member.Key)
		if _, dup := positions[member.Key]; dup {
			return nil, duplicateIDError(field, member.Key)
		}
		node, err := DecodeObject(member.Value, field)
		if err != nil {
			return nil, err
		}
		record := Record{Ref: member.Key, HasBody: true}
		overrides, err := readIDNode(&record, node, field)
		if err != nil {
			return nil, err
		}
		if rawCallees, ok := node.Get("callees"); ok && !IsNull(rawCallees) {
			callees, err := DecodeObject(rawCallees, Path(field, "callees"))
			if err != nil {
				return nil, err
			}
			for _, callee := range callees {
				record.Callees = append(record.Callees, callee.Key)
			}
		}
		positions[member.Key] = len(records)
		records = append(records, record)
		pending = append(pending, overrides)
	}
	if err := resolveOverrides(records, pending); err != nil {
		return nil, err
	}
	return records, nil
}

type v4Node struct {
	FunctionName string  `json:"functionName"`
	Origin       *string `json:"origin"`
	HasBody      bool    `json:"hasBody"`
	Callees      Object  `json:"callees"`
	Meta         Object  `json:"meta"`
}

func (V4) Encode(records []Record, opts EncodeOptions) (json.RawMessage, error) {
	ids := uniqueIDs(records)
	index := RefIndex(records)
	names := NameIndex(records)

	cg := make(Object, 0, len(records))
	for _, i := range order(ids, opts.Sorted) {
		record := records[i]
		meta, err := idMeta(records, i, ids, names)
		if err != nil {
			return nil, err
		}
		calleeIDs, err := calleeKeys(records, index, ids, i, opts.Sorted)
		if err != nil {
			return nil, err
		}
		callees := make(Object, 0, len(calleeIDs))
		for _, id := range calleeIDs {
			callees = append(callees, Member{Key: id, Value: json.RawMessage("null")})
		}
		node := v4Node{
			FunctionName: record.Name,
			Origin:       optional(record.Origin),
			HasBody:      record.HasBody,
			Callees:      callees,
			Meta:         meta,
		}
		if err := cg.Add(ids[i], node); err != nil {
			return nil, err
		}
	}
	return json.Marshal(cg)
}
