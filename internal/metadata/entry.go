package metadata

// Well-known keys written by the collectors. The mcg codecs map
// numStatements and overrideMD onto record fields; the graph stores every
// entry as declared.
const (
	KeyNumStatements  = "numStatements"
	KeyFileProperties = "fileProperties"
	KeyOverride       = "overrideMD"
)

// Entry is one keyed annotation of a node.
type Entry struct {
	Key  string `json:"key"`
	Data Value  `json:"data"`
}

func NewEntry(key string, data Value) Entry {
	return Entry{Key: key, Data: data}
}

// Equal compares key and data.
func (e Entry) Equal(other Entry) bool {
	return e.Key == other.Key && e.Data.Equal(other.Data)
}
