package mcg

import (
	"encoding/json"
)

// nodeReader fills a record from one node object of a name-keyed schema.
type nodeReader func(record *Record, node Object, field string) error

// decodeNameKeyed reads a `_CG` object keyed by function name. A repeated
// key replaces the earlier node but keeps its position.
func decodeNameKeyed(cg json.RawMessage, read nodeReader) ([]Record, error) {
	members, err := DecodeObject(cg, CallgraphField)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(members))
	positions := make(map[string]int, len(members))
	for _, member := range members {
		field := KeyPath(CallgraphField, member.Key)
		node, err := DecodeObject(member.Value, field)
		if err != nil {
			return nil, err
		}
		record := NewRecord(member.Key)
		if err := read(&record, node, field); err != nil {
			return nil, err
		}
		if i, seen := positions[member.Key]; seen {
			records[i] = record
			continue
		}
		positions[member.Key] = len(records)
		records = append(records, record)
	}
	return records, nil
}

// readFlags reads the fields shared by the name-keyed schemas.
func readFlags(record *Record, node Object, field string) error {
	var err error
	if record.Callees, err = node.Strings("callees", field); err != nil {
		return err
	}
	if record.IsVirtual, err = node.Bool("isVirtual", field, false); err != nil {
		return err
	}
	if record.DoesOverride, err = node.Bool("doesOverride", field, false); err != nil {
		return err
	}
	if record.HasBody, err = node.Bool("hasBody", field, true); err != nil {
		return err
	}
	if record.OverriddenBy, err = node.Strings("overriddenBy", field); err != nil {
		return err
	}
	if record.Origin, err = node.String("origin", field); err != nil {
		return err
	}
	if record.Metadata, err = node.Meta("meta", field); err != nil {
		return err
	}
	return nil
}

// V1 is the legacy IPCG schema: callers are written as `parents` and the
// statement count is a node field.
type V1 struct{}

func (V1) Version() string   { return "1.0" }
func (V1) Accepts() []string { return []string{"1", "1.0"} }

func (V1) Decode(cg json.RawMessage) ([]Record, error) {
	return decodeNameKeyed(cg, func(record *Record, node Object, field string) error {
		if err := readFlags(record, node, field); err != nil {
			return err
		}
		var err error
		if record.OverriddenFunctions, err = node.Strings("overriddenFunctions", field); err != nil {
			return err
		}
		if node.Has("numStatements") {
			record.NumStatements, err = node.Int("numStatements", field, 0)
			return err
		}
		applyStatementMeta(record)
		return nil
	})
}

type v1Node struct {
	Callees             []string `json:"callees"`
	DoesOverride        bool     `json:"doesOverride"`
	HasBody             bool     `json:"hasBody"`
	IsVirtual           bool     `json:"isVirtual"`
	NumStatements       int      `json:"numStatements"`
	OverriddenBy        []string `json:"overriddenBy"`
	OverriddenFunctions []string `json:"overriddenFunctions"`
	Parents             []string `json:"parents"`
	Origin              string   `json:"origin,omitempty"`
	Meta                Object   `json:"meta,omitempty"`
}

func (V1) Encode(records []Record, opts EncodeOptions) (json.RawMessage, error) {
	keys := uniqueNames(records)
	index := RefIndex(records)
	callers, err := Callers(records)
	if err != nil {
		return nil, err
	}

	cg := make(Object, 0, len(records))
	for _, i := range order(keys, opts.Sorted) {
		record := records[i]
		callees, err := calleeKeys(records, index, keys, i, opts.Sorted)
		if err != nil {
			return nil, err
		}
		meta, err := EncodeMeta(record.Metadata)
		if err != nil {
			return nil, err
		}
		node := v1Node{
			Callees:             callees,
			DoesOverride:        record.DoesOverride,
			HasBody:             record.HasBody,
			IsVirtual:           record.IsVirtual,
			NumStatements:       record.NumStatements,
			OverriddenBy:        orEmpty(record.OverriddenBy, opts.Sorted),
			OverriddenFunctions: orEmpty(record.OverriddenFunctions, opts.Sorted),
			Parents:             keysOf(callers[i], keys, opts.Sorted),
			Origin:              record.Origin,
			Meta:                meta,
		}
		if err := cg.Add(keys[i], node); err != nil {
			return nil, err
		}
	}
	return json.Marshal(cg)
}
