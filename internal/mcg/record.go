package mcg

import "github.com/mcgtools/mcg/internal/metadata"

// Field names of the document envelope.
const (
	MetaInfoField  = "_MetaCG"
	CallgraphField = "_CG"
)

// Record is the version-independent shape of one declared function
// occurrence. Every decoder produces records; every encoder consumes them.
type Record struct {
	// Ref is the document-local reference other records use in Callees:
	// the function name for name-keyed schemas, the node id otherwise.
	Ref  string
	Name string

	// Origin is the translation unit the function came from, when known.
	Origin string

	Callees []string

	DoesOverride        bool
	HasBody             bool
	IsVirtual           bool
	NumStatements       int
	OverriddenBy        []string
	OverriddenFunctions []string

	Metadata []metadata.Entry
}

// NewRecord returns a record with the documented defaults applied.
func NewRecord(name string) Record {
	return Record{Ref: name, Name: name, HasBody: true}
}

// MetaValue returns the metadata value stored under key.
func (r Record) MetaValue(key string) (metadata.Value, bool) {
	for _, entry := range r.Metadata {
		if entry.Key == key {
			return entry.Data, true
		}
	}
	return metadata.Value{}, false
}

// SetMeta replaces or appends a metadata entry.
func (r *Record) SetMeta(key string, value metadata.Value) {
	for i := range r.Metadata {
		if r.Metadata[i].Key == key {
			r.Metadata[i].Data = value
			return
		}
	}
	r.Metadata = append(r.Metadata, metadata.NewEntry(key, value))
}

// Clone deep-copies the slices of r.
func (r Record) Clone() Record {
	out := r
	out.Callees = append([]string(nil), r.Callees...)
	out.OverriddenBy = append([]string(nil), r.OverriddenBy...)
	out.OverriddenFunctions = append([]string(nil), r.OverriddenFunctions...)
	out.Metadata = append([]metadata.Entry(nil), r.Metadata...)
	return out
}

// Generator identifies the tool that wrote a document.
type Generator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	SHA     string `json:"sha,omitempty"`
}

// Document is a decoded interchange document.
type Document struct {
	// Version is the canonical version of the codec that decoded the
	// document, or that should encode it.
	Version   string
	Generator Generator
	Records   []Record
}
