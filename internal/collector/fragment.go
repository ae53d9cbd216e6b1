package collector

import (
	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/metadata"
)

// FragmentVersion is the schema per-file fragments are written in.
const FragmentVersion = "2.0"

// Generator stamps fragments written by the builtin collector.
var Generator = mcg.Generator{Name: "mcg-collect", Version: "0.1"}

// Fragment turns a unit into a name-keyed document. Names that are called
// but never declared in the unit get body-less records after the rest.
func Fragment(unit *Unit) mcg.Document {
	doc := mcg.Document{Version: FragmentVersion, Generator: Generator}
	known := make(map[string]bool, len(unit.Functions))
	for _, fn := range unit.Functions {
		known[fn.Name] = true
	}

	for _, fn := range unit.Functions {
		record := mcg.NewRecord(fn.Name)
		record.HasBody = fn.HasBody
		record.Origin = unit.Path
		record.Callees = append([]string(nil), fn.Calls...)
		if fn.HasBody {
			record.NumStatements = fn.NumStatements
			record.SetMeta(metadata.KeyFileProperties, metadata.Map(map[string]metadata.Value{
				"origin":        metadata.String(unit.Path),
				"systemInclude": metadata.Bool(false),
			}))
		}
		doc.Records = append(doc.Records, record)
	}

	for _, fn := range unit.Functions {
		for _, call := range fn.Calls {
			if known[call] {
				continue
			}
			known[call] = true
			stub := mcg.NewRecord(call)
			stub.HasBody = false
			doc.Records = append(doc.Records, stub)
		}
	}
	return doc
}
