// Package merge folds per-translation-unit fragments into one
// whole-program document.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcgtools/mcg/internal/mcg"
)

// Skipped records a fragment that could not be used.
type Skipped struct {
	Path string
	Err  error
}

// Result is the outcome of merging fragment files.
type Result struct {
	Document mcg.Document
	Merged   []string
	Skipped  []Skipped
}

// Merger reads fragments and folds them. The zero value is usable.
type Merger struct {
	Registry *mcg.Registry
	Logger   *slog.Logger
	// Version of the produced document, 2.0 when empty.
	Version string
}

func (m *Merger) registry() *mcg.Registry {
	if m.Registry == nil {
		return mcg.DefaultRegistry()
	}
	return m.Registry
}

func (m *Merger) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}

// MergeFiles reads every path and merges the fragments that decode. A
// fragment that is missing or malformed is skipped, never fatal.
func (m *Merger) MergeFiles(ctx context.Context, paths []string) (Result, error) {
	var result Result
	docs := make([]mcg.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := os.ReadFile(path)
		if err == nil {
			var doc mcg.Document
			if doc, err = m.registry().Read(data); err == nil {
				docs = append(docs, doc)
				result.Merged = append(result.Merged, path)
				continue
			}
		}
		m.logger().Warn("skipping fragment", "path", path, "error", err)
		result.Skipped = append(result.Skipped, Skipped{Path: path, Err: err})
	}
	result.Document = m.Merge(docs...)
	m.logger().Info("merged fragments", "merged", len(result.Merged), "skipped", len(result.Skipped), "functions", len(result.Document.Records))
	return result, nil
}

// WriteFile encodes doc to path.
func (m *Merger) WriteFile(path string, doc mcg.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := m.registry().Encode(f, doc, mcg.EncodeOptions{Indent: "  "}); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Merge folds docs by function name in order.
func (m *Merger) Merge(docs ...mcg.Document) mcg.Document {
	version := m.Version
	if version == "" {
		version = mcg.V2{}.Version()
	}
	f := newFold()
	for _, doc := range docs {
		for _, record := range byName(doc.Records) {
			f.add(record)
		}
	}
	return mcg.Document{Version: version, Records: f.finish()}
}

// Merge folds docs with a zero Merger.
func Merge(docs ...mcg.Document) mcg.Document {
	var m Merger
	return m.Merge(docs...)
}

// byName rewrites a fragment's references to function names, the only
// key fragments share. References that name no record are kept as is.
func byName(records []mcg.Record) []mcg.Record {
	index := mcg.RefIndex(records)
	out := make([]mcg.Record, 0, len(records))
	for _, record := range records {
		record = record.Clone()
		for i, ref := range record.Callees {
			if j, ok := index[ref]; ok {
				record.Callees[i] = records[j].Name
			}
		}
		record.Ref = record.Name
		out = append(out, record)
	}
	return out
}

type fold struct {
	records []mcg.Record
	index   map[string]int
}

func newFold() *fold {
	return &fold{index: make(map[string]int)}
}

func (f *fold) add(incoming mcg.Record) {
	i, ok := f.index[incoming.Name]
	if !ok {
		incoming.Callees = union(nil, incoming.Callees)
		f.index[incoming.Name] = len(f.records)
		f.records = append(f.records, incoming)
		return
	}
	existing := &f.records[i]
	switch {
	case existing.HasBody && incoming.HasBody:
		existing.Callees = union(existing.Callees, incoming.Callees)
		existing.OverriddenFunctions = union(existing.OverriddenFunctions, incoming.OverriddenFunctions)
		existing.IsVirtual = incoming.IsVirtual
		existing.DoesOverride = incoming.DoesOverride
		if existing.NumStatements != incoming.NumStatements {
			existing.NumStatements += incoming.NumStatements
		}
		for _, entry := range incoming.Metadata {
			if _, present := existing.MetaValue(entry.Key); !present {
				existing.SetMeta(entry.Key, entry.Data)
			}
		}
	case incoming.HasBody:
		existing.Callees = union(existing.Callees, incoming.Callees)
		existing.OverriddenFunctions = union(existing.OverriddenFunctions, incoming.OverriddenFunctions)
		existing.IsVirtual = incoming.IsVirtual
		existing.DoesOverride = incoming.DoesOverride
		existing.HasBody = true
		existing.NumStatements = incoming.NumStatements
		if incoming.Origin != "" {
			existing.Origin = incoming.Origin
		}
		for _, entry := range incoming.Metadata {
			existing.SetMeta(entry.Key, entry.Data)
		}
	}
	existing.OverriddenBy = union(existing.OverriddenBy, incoming.OverriddenBy)
}

// finish adds body-less records for callees nobody declared.
func (f *fold) finish() []mcg.Record {
	n := len(f.records)
	for i := 0; i < n; i++ {
		for _, callee := range f.records[i].Callees {
			if _, ok := f.index[callee]; ok {
				continue
			}
			stub := mcg.NewRecord(callee)
			stub.HasBody = false
			f.index[callee] = len(f.records)
			f.records = append(f.records, stub)
		}
	}
	return f.records
}

func union(into, values []string) []string {
	seen := make(map[string]struct{}, len(into)+len(values))
	out := make([]string, 0, len(into)+len(values))
	for _, list := range [][]string{into, values} {
		for _, value := range list {
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}
