package mcg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Codec reads and writes the `_CG` collection of one schema version.
type Codec interface {
	// Version is the canonical version string written on encode.
	Version() string
	// Accepts lists every discriminator value this codec decodes.
	Accepts() []string
	Decode(cg json.RawMessage) ([]Record, error)
	Encode(records []Record, opts EncodeOptions) (json.RawMessage, error)
}

// EncodeOptions control the shape of written documents.
type EncodeOptions struct {
	// Sorted orders keys and reference lists so output is stable across runs.
	Sorted bool
	Indent string
}

// DefaultGenerator is written into documents produced by this module.
var DefaultGenerator = Generator{Name: "mcg", Version: "0.1"}

// Registry maps exact version strings to codecs.
type Registry struct {
	byVersion map[string]Codec
	codecs    []Codec
}

func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{byVersion: make(map[string]Codec)}
	for _, codec := range codecs {
		if err := r.Register(codec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry knows versions 1.0 through 4.0.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(V1{}, V2{}, V3{}, V4{})
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(codec Codec) error {
	for _, version := range codec.Accepts() {
		if _, exists := r.byVersion[version]; exists {
			return fmt.Errorf("version %q already registered", version)
		}
	}
	for _, version := range codec.Accepts() {
		r.byVersion[version] = codec
	}
	r.codecs = append(r.codecs, codec)
	return nil
}

// Supported returns the canonical versions in sorted order.
func (r *Registry) Supported() []string {
	versions := make([]string, 0, len(r.codecs))
	for _, codec := range r.codecs {
		versions = append(versions, codec.Version())
	}
	sort.Strings(versions)
	return versions
}

// Lookup finds the codec registered for exactly version.
func (r *Registry) Lookup(version string) (Codec, bool) {
	codec, ok := r.byVersion[version]
	return codec, ok
}

type metaInfo struct {
	Version   string    `json:"version"`
	Generator Generator `json:"generator"`
}

// Read decodes a whole document and dispatches on `_MetaCG.version`.
func (r *Registry) Read(data []byte) (Document, error) {
	top, err := DecodeObject(data, "")
	if err != nil {
		return Document{}, err
	}

	rawInfo, ok := top.Get(MetaInfoField)
	if !ok || IsNull(rawInfo) {
		return Document{}, formatErrorf(MetaInfoField, "missing version information")
	}
	info, err := DecodeObject(rawInfo, MetaInfoField)
	if err != nil {
		return Document{}, err
	}
	versionField := Path(MetaInfoField, "version")
	rawVersion, ok := info.Get("version")
	if !ok || IsNull(rawVersion) {
		return Document{}, formatErrorf(versionField, "missing schema version")
	}
	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return Document{}, formatErrorf(versionField, "expected a string, got %s", describe(rawVersion))
	}

	codec, ok := r.Lookup(version)
	if !ok {
		return Document{}, &FormatError{
			Field:   versionField,
			Version: version,
			Msg:     fmt.Sprintf("unsupported schema version %q (supported: %v)", version, r.Supported()),
		}
	}

	doc := Document{Version: codec.Version()}
	if rawGen, ok := info.Get("generator"); ok && !IsNull(rawGen) {
		if err := json.Unmarshal(rawGen, &doc.Generator); err != nil {
			return Document{}, &FormatError{Field: Path(MetaInfoField, "generator"), Version: version, Msg: "malformed generator", Err: err}
		}
	}

	rawCG, ok := top.Get(CallgraphField)
	if !ok {
		return Document{}, &FormatError{Field: CallgraphField, Version: version, Msg: "missing call graph"}
	}
	if IsNull(rawCG) {
		return doc, nil
	}
	records, err := codec.Decode(rawCG)
	if err != nil {
		return Document{}, withVersion(err, codec.Version())
	}
	doc.Records = records
	return doc, nil
}

// ReadFrom reads all of src and decodes it.
func (r *Registry) ReadFrom(src io.Reader) (Document, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return Document{}, err
	}
	return r.Read(data)
}

// Marshal encodes doc with the codec for doc.Version.
func (r *Registry) Marshal(doc Document, opts EncodeOptions) ([]byte, error) {
	codec, ok := r.Lookup(doc.Version)
	if !ok {
		return nil, &FormatError{Field: Path(MetaInfoField, "version"), Version: doc.Version, Msg: "unsupported schema version"}
	}
	cg, err := codec.Encode(doc.Records, opts)
	if err != nil {
		return nil, fmt.Errorf("encode version %s: %w", codec.Version(), err)
	}

	generator := doc.Generator
	if generator.Name == "" {
		generator = DefaultGenerator
	}
	var out Object
	if err := out.Add(MetaInfoField, metaInfo{Version: codec.Version(), Generator: generator}); err != nil {
		return nil, err
	}
	out = append(out, Member{Key: CallgraphField, Value: cg})

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if opts.Indent == "" {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", opts.Indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes doc followed by a newline.
func (r *Registry) Encode(w io.Writer, doc Document, opts EncodeOptions) error {
	data, err := r.Marshal(doc, opts)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

var defaultRegistry = DefaultRegistry()

// Read decodes data with the default registry.
func Read(data []byte) (Document, error) {
	return defaultRegistry.Read(data)
}

// Marshal encodes doc with the default registry.
func Marshal(doc Document, opts EncodeOptions) ([]byte, error) {
	return defaultRegistry.Marshal(doc, opts)
}

// Supported lists the versions of the default registry.
func Supported() []string {
	return defaultRegistry.Supported()
}
