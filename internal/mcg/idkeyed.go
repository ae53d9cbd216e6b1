package mcg

import (
	"encoding/json"
	"strconv"

	"github.com/mcgtools/mcg/internal/metadata"
)

// pendingOverrides holds override ids until every node of a document is
// known and the ids can be turned into names.
type pendingOverrides struct {
	overrides    []string
	overriddenBy []string
}

// readIDNode fills a record from a node of an id-keyed schema.
func readIDNode(record *Record, node Object, field string) (pendingOverrides, error) {
	var pending pendingOverrides
	rawName, ok := node.Get("functionName")
	if !ok || IsNull(rawName) {
		return pending, formatErrorf(Path(field, "functionName"), "missing function name")
	}
	var err error
	if record.Name, err = node.String("functionName", field); err != nil {
		return pending, err
	}
	if record.Origin, err = node.String("origin", field); err != nil {
		return pending, err
	}
	if record.HasBody, err = node.Bool("hasBody", field, true); err != nil {
		return pending, err
	}
	if record.Metadata, err = node.Meta("meta", field); err != nil {
		return pending, err
	}
	applyStatementMeta(record)

	value, ok := record.MetaValue(metadata.KeyOverride)
	if !ok {
		return pending, nil
	}
	overrideField := Path(Path(field, "meta"), metadata.KeyOverride)
	if value.Kind() != metadata.KindMap {
		return pending, formatErrorf(overrideField, "expected an object, got %s", value.Kind())
	}
	if pending.overrides, err = idList(value, "overrides", overrideField); err != nil {
		return pending, err
	}
	if pending.overriddenBy, err = idList(value, "overriddenBy", overrideField); err != nil {
		return pending, err
	}
	record.IsVirtual = true
	record.DoesOverride = len(pending.overrides) > 0
	return pending, nil
}

func idList(value metadata.Value, key, field string) ([]string, error) {
	list, ok := value.Field(key)
	if !ok {
		return nil, nil
	}
	items, ok := list.AsList()
	if !ok {
		return nil, formatErrorf(Path(field, key), "expected a list of ids, got %s", list.Kind())
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id, err := idFromValue(item, IndexPath(Path(field, key), i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func idFromValue(value metadata.Value, field string) (string, error) {
	if n, ok := value.AsInt(); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if s, ok := value.AsString(); ok {
		return s, nil
	}
	return "", formatErrorf(field, "expected a node id, got %s", value.Kind())
}

// decodeID accepts a node id written as a JSON string or integer.
func decodeID(raw json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return n.String(), nil
		}
	}
	return "", formatErrorf(field, "expected a node id, got %s", describe(raw))
}

// resolveOverrides turns pending override ids into function names.
func resolveOverrides(records []Record, pending []pendingOverrides) error {
	index := RefIndex(records)
	names := func(ids []string, i int, key string) ([]string, error) {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			j, ok := index[id]
			if !ok {
				field := Path(Path(Path(KeyPath(CallgraphField, records[i].Ref), "meta"), metadata.KeyOverride), key)
				return nil, formatErrorf(field, "node id %q is not declared", id)
			}
			out = append(out, records[j].Name)
		}
		return out, nil
	}
	for i := range records {
		var err error
		if len(pending[i].overrides) > 0 {
			if records[i].OverriddenFunctions, err = names(pending[i].overrides, i, "overrides"); err != nil {
				return err
			}
		}
		if len(pending[i].overriddenBy) > 0 {
			if records[i].OverriddenBy, err = names(pending[i].overriddenBy, i, "overriddenBy"); err != nil {
				return err
			}
		}
	}
	return nil
}

// idMeta returns the metadata written for a record in an id-keyed schema:
// the statement count and override relation are carried as entries.
func idMeta(records []Record, i int, ids []string, names map[string]int) (Object, error) {
	record := records[i]
	entries := statementMeta(record)
	overrides := record.IsVirtual || record.DoesOverride || len(record.OverriddenBy) > 0 || len(record.OverriddenFunctions) > 0
	if overrides {
		entries = append(withoutKey(entries, metadata.KeyOverride), metadata.NewEntry(metadata.KeyOverride, metadata.Map(map[string]metadata.Value{
			"overrides":    idValues(record.OverriddenFunctions, ids, names),
			"overriddenBy": idValues(record.OverriddenBy, ids, names),
		})))
	}
	return EncodeMeta(entries)
}

func idValues(functionNames []string, ids []string, names map[string]int) metadata.Value {
	items := make([]metadata.Value, 0, len(functionNames))
	for _, name := range functionNames {
		j, ok := names[name]
		if !ok {
			continue
		}
		items = append(items, idValue(ids[j]))
	}
	return metadata.List(items...)
}

func idValue(id string) metadata.Value {
	if n, ok := numericID(id); ok {
		return metadata.Int(n)
	}
	return metadata.String(id)
}

func jsonID(id string) json.RawMessage {
	if _, ok := numericID(id); ok {
		return json.RawMessage(id)
	}
	raw, _ := json.Marshal(id)
	return raw
}

// numericID reports ids that are written as JSON integers.
func numericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != id {
		return 0, false
	}
	return n, true
}
