package graph

import "github.com/mcgtools/mcg/internal/metadata"

// metadataStore keeps per-node entries. Keys are exactly those attached;
// nothing is defaulted.
type metadataStore struct {
	entries [][]metadata.Entry
}

func newMetadataStore(n int) *metadataStore {
	return &metadataStore{entries: make([][]metadata.Entry, n)}
}

// attach sets key on id, replacing an earlier value for the same key.
func (s *metadataStore) attach(id NodeID, key string, value metadata.Value) {
	entries := s.entries[id]
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Data = value
			return
		}
	}
	s.entries[id] = append(entries, metadata.NewEntry(key, value))
}

func (s *metadataStore) get(id NodeID) map[string]metadata.Entry {
	out := make(map[string]metadata.Entry, len(s.entries[id]))
	for _, entry := range s.entries[id] {
		out[entry.Key] = entry
	}
	return out
}

func (s *metadataStore) lookup(id NodeID, key string) (metadata.Value, bool) {
	for _, entry := range s.entries[id] {
		if entry.Key == key {
			return entry.Data, true
		}
	}
	return metadata.Value{}, false
}

// ordered returns the entries of id in attach order.
func (s *metadataStore) ordered(id NodeID) []metadata.Entry {
	return append([]metadata.Entry(nil), s.entries[id]...)
}
