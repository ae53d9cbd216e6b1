package mcg

import (
	"sort"
	"strconv"

	"github.com/mcgtools/mcg/internal/metadata"
)

// RefIndex maps each reference to the earliest record carrying it.
func RefIndex(records []Record) map[string]int {
	index := make(map[string]int, len(records))
	for i, record := range records {
		if _, seen := index[record.Ref]; !seen {
			index[record.Ref] = i
		}
	}
	return index
}

// NameIndex maps each function name to the earliest record carrying it.
func NameIndex(records []Record) map[string]int {
	index := make(map[string]int, len(records))
	for i, record := range records {
		if _, seen := index[record.Name]; !seen {
			index[record.Name] = i
		}
	}
	return index
}

// Callers inverts the callee relation: result[i] lists, in record order and
// without repeats, the records that call record i. A callee reference that
// matches no record is a FormatError.
func Callers(records []Record) ([][]int, error) {
	index := RefIndex(records)
	callers := make([][]int, len(records))
	seen := make(map[[2]int]struct{})
	for i, record := range records {
		for _, ref := range record.Callees {
			j, ok := index[ref]
			if !ok {
				return nil, danglingError(record, ref)
			}
			edge := [2]int{i, j}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			callers[j] = append(callers[j], i)
		}
	}
	return callers, nil
}

func danglingError(record Record, ref string) error {
	return formatErrorf(Path(KeyPath(CallgraphField, record.Ref), "callees"), "callee %q is not a declared node", ref)
}

// uniqueNames gives each record a distinct key for name-keyed schemas.
// Repeated names become name#k where k counts occurrences of that name.
func uniqueNames(records []Record) []string {
	count := make(map[string]int, len(records))
	for _, record := range records {
		count[record.Name]++
	}
	keys := make([]string, len(records))
	taken := make(map[string]int, len(records))
	for i, record := range records {
		if count[record.Name] == 1 {
			keys[i] = record.Name
			continue
		}
		keys[i] = record.Name + "#" + strconv.Itoa(taken[record.Name])
		taken[record.Name]++
	}
	return keys
}

// uniqueIDs keeps the records' own references when they are already usable
// as ids, and falls back to positions otherwise.
func uniqueIDs(records []Record) []string {
	ids := make([]string, len(records))
	seen := make(map[string]struct{}, len(records))
	reuse := true
	for i, record := range records {
		if _, dup := seen[record.Ref]; dup || record.Ref == "" {
			reuse = false
			break
		}
		seen[record.Ref] = struct{}{}
		ids[i] = record.Ref
	}
	if !reuse {
		for i := range records {
			ids[i] = strconv.Itoa(i)
		}
	}
	return ids
}

// calleeKeys translates a record's callee references to the keys assigned
// by keys, dropping repeats.
func calleeKeys(records []Record, index map[string]int, keys []string, i int, sorted bool) ([]string, error) {
	out := make([]string, 0, len(records[i].Callees))
	seen := make(map[string]struct{}, len(records[i].Callees))
	for _, ref := range records[i].Callees {
		j, ok := index[ref]
		if !ok {
			return nil, danglingError(records[i], ref)
		}
		if _, dup := seen[keys[j]]; dup {
			continue
		}
		seen[keys[j]] = struct{}{}
		out = append(out, keys[j])
	}
	if sorted {
		sort.Strings(out)
	}
	return out, nil
}

func keysOf(indices []int, keys []string, sorted bool) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, keys[i])
	}
	if sorted {
		sort.Strings(out)
	}
	return out
}

func orEmpty(values []string, sorted bool) []string {
	out := append([]string{}, values...)
	if sorted {
		sort.Strings(out)
	}
	return out
}

// order returns record positions, alphabetically by key when sorted.
func order(keys []string, sorted bool) []int {
	positions := make([]int, len(keys))
	for i := range positions {
		positions[i] = i
	}
	if sorted {
		sort.SliceStable(positions, func(a, b int) bool { return keys[positions[a]] < keys[positions[b]] })
	}
	return positions
}

// statementMeta returns the record's metadata with numStatements carried
// as an entry, for schemas that have no dedicated field. A count read from
// the 1.0 node field therefore becomes a metadata entry once the record is
// written as 2.0 or later, and reads back as one.
func statementMeta(record Record) []metadata.Entry {
	entries := append([]metadata.Entry(nil), record.Metadata...)
	if record.NumStatements == 0 {
		return entries
	}
	for i := range entries {
		if entries[i].Key == metadata.KeyNumStatements {
			entries[i].Data = metadata.Int(int64(record.NumStatements))
			return entries
		}
	}
	return append(entries, metadata.NewEntry(metadata.KeyNumStatements, metadata.Int(int64(record.NumStatements))))
}

// applyStatementMeta fills NumStatements from an integer numStatements
// entry. An entry of any other kind stays as declared and the count stays 0.
func applyStatementMeta(record *Record) {
	value, ok := record.MetaValue(metadata.KeyNumStatements)
	if !ok {
		return
	}
	if n, ok := value.AsInt(); ok {
		record.NumStatements = int(n)
	}
}

func withoutKey(entries []metadata.Entry, key string) []metadata.Entry {
	out := make([]metadata.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Key != key {
			out = append(out, entry)
		}
	}
	return out
}

func duplicateIDError(field, id string) error {
	return formatErrorf(field, "duplicate node id %q", id)
}
