package mcg

import (
	"encoding/json"
)

// V2 is the name-keyed schema written by the per-file collector; callers
// are written as `callers` and the statement count lives in meta.
type V2 struct{}

func (V2) Version() string   { return "2.0" }
func (V2) Accepts() []string { return []string{"2", "2.0"} }

func (V2) Decode(cg json.RawMessage) ([]Record, error) {
	return decodeNameKeyed(cg, func(record *Record, node Object, field string) error {
		if err := readFlags(record, node, field); err != nil {
			return err
		}
		var err error
		if record.OverriddenFunctions, err = node.Strings("overrides", field); err != nil {
			return err
		}
		applyStatementMeta(record)
		return nil
	})
}

type v2Node struct {
	Callees      []string `json:"callees"`
	Callers      []string `json:"callers"`
	DoesOverride bool     `json:"doesOverride"`
	HasBody      bool     `json:"hasBody"`
	IsVirtual    bool     `json:"isVirtual"`
	OverriddenBy []string `json:"overriddenBy"`
	Overrides    []string `json:"overrides"`
	Origin       string   `json:"origin,omitempty"`
	Meta         Object   `json:"meta"`
}

func (V2) Encode(records []Record, opts EncodeOptions) (json.RawMessage, error) {
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
		meta, err := EncodeMeta(statementMeta(record))
		if err != nil {
			return nil, err
		}
		node := v2Node{
			Callees:      callees,
			Callers:      keysOf(callers[i], keys, opts.Sorted),
			DoesOverride: record.DoesOverride,
			HasBody:      record.HasBody,
			IsVirtual:    record.IsVirtual,
			OverriddenBy: orEmpty(record.OverriddenBy, opts.Sorted),
			Overrides:    orEmpty(record.OverriddenFunctions, opts.Sorted),
			Origin:       record.Origin,
			Meta:         meta,
		}
		if err := cg.Add(keys[i], node); err != nil {
			return nil, err
		}
	}
	return json.Marshal(cg)
}
