package mcg

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcgtools/mcg/internal/metadata"
)

func TestReadRejectsMissingOrUnknownVersion(t *testing.T) {
	cases := map[string]string{
		"no header":       `{"_CG": {}}`,
		"no version":      `{"_MetaCG": {"generator": {"name": "x", "version": "1"}}, "_CG": {}}`,
		"unknown version": `{"_MetaCG": {"version": "5.0"}, "_CG": {}}`,
		"near version":    `{"_MetaCG": {"version": "2.1"}, "_CG": {}}`,
		"numeric version": `{"_MetaCG": {"version": 2}, "_CG": {}}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))
		})
	}

	_, err := Read([]byte(`{"_MetaCG": {"version": "5.0"}, "_CG": {}}`))
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "5.0", formatErr.Version)
	assert.Equal(t, "_MetaCG.version", formatErr.Field)
}

func TestReadAcceptsShortAndLongVersionStrings(t *testing.T) {
	for _, version := range []string{"1", "1.0", "2", "2.0", "3", "3.0", "4", "4.0"} {
		var cg string
		switch version[0] {
		case '3':
			cg = `{"nodes": [], "edges": []}`
		default:
			cg = `{}`
		}
		doc, err := Read([]byte(`{"_MetaCG": {"version": "` + version + `"}, "_CG": ` + cg + `}`))
		require.NoError(t, err, version)
		assert.Empty(t, doc.Records)
		assert.Equal(t, version[:1]+".0", doc.Version)
	}
}

func TestV2DefaultsForMissingFields(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "2.0", "generator": {"name": "CGCollector", "version": "0.7"}}, "_CG": {"main": {}}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)

	record := doc.Records[0]
	assert.Equal(t, "main", record.Name)
	assert.Equal(t, "main", record.Ref)
	assert.Empty(t, record.Callees)
	assert.True(t, record.HasBody)
	assert.False(t, record.IsVirtual)
	assert.False(t, record.DoesOverride)
	assert.Zero(t, record.NumStatements)
	assert.Empty(t, record.Metadata)
	assert.Equal(t, "CGCollector", doc.Generator.Name)
}

func TestV2ReadsStatementsFromMeta(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "2.0"}, "_CG": {
		"main": {"callees": ["foo"], "hasBody": true, "meta": {"numStatements": 42, "custom": {"key1": "s", "key2": 7}}},
		"foo": {"callees": null, "hasBody": false, "meta": null}
	}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 2)

	main := doc.Records[0]
	assert.Equal(t, 42, main.NumStatements)
	require.Len(t, main.Metadata, 2)
	assert.Equal(t, "numStatements", main.Metadata[0].Key)
	assert.True(t, main.Metadata[0].Data.Equal(metadata.Int(42)))
	assert.Equal(t, "custom", main.Metadata[1].Key)
	assert.True(t, main.Metadata[1].Data.Equal(metadata.Map(map[string]metadata.Value{
		"key1": metadata.String("s"),
		"key2": metadata.Int(7),
	})))

	foo := doc.Records[1]
	assert.False(t, foo.HasBody)
	assert.Empty(t, foo.Callees)
	assert.Empty(t, foo.Metadata)
}

func TestMalformedFieldNamesTheField(t *testing.T) {
	_, err := Read([]byte(`{"_MetaCG": {"version": "2.0"}, "_CG": {"main": {"hasBody": "yes"}}}`))
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, `_CG["main"].hasBody`, formatErr.Field)
	assert.Equal(t, "2.0", formatErr.Version)

	_, err = Read([]byte(`{"_MetaCG": {"version": "2.0"}, "_CG": {"main": {"meta": {"ratio": 0.5}}}}`))
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, `_CG["main"].meta["ratio"]`, formatErr.Field)

	_, err = Read([]byte(`{"_MetaCG": {"version": "2.0"}, "_CG": []}`))
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "_CG", formatErr.Field)
}

func TestReadRejectsTrailingData(t *testing.T) {
	inputs := []string{
		`{"_MetaCG": {"version": "2.0"}, "_CG": {"f": {}}} {"garbage": true} ]]]`,
		`{"_MetaCG": {"version": "2.0"}, "_CG": {"f": {}}} x`,
		`{"_MetaCG": {"version": "2.0"}, "_CG": {"f": {}}}}`,
	}
	for _, input := range inputs {
		_, err := Read([]byte(input))
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, input)
		assert.True(t, errors.Is(err, ErrFormat))
	}

	doc, err := Read([]byte("{\"_MetaCG\": {\"version\": \"2.0\"}, \"_CG\": {\"f\": {}}}\n\n"))
	require.NoError(t, err)
	assert.Len(t, doc.Records, 1)
}

func TestStatementMetaKeepsNonIntegerValue(t *testing.T) {
	inputs := map[string]string{
		"2.0": `{"_MetaCG": {"version": "2.0"}, "_CG": {"f": {"meta": {"numStatements": "many"}}}}`,
		"3.0": `{"_MetaCG": {"version": "3.0"}, "_CG": {"nodes": [[0, {"functionName": "f", "meta": {"numStatements": "many"}}]], "edges": []}}`,
		"4.0": `{"_MetaCG": {"version": "4.0"}, "_CG": {"0": {"functionName": "f", "callees": {}, "meta": {"numStatements": "many"}}}}`,
	}
	for version, input := range inputs {
		t.Run(version, func(t *testing.T) {
			doc, err := Read([]byte(input))
			require.NoError(t, err)
			require.Len(t, doc.Records, 1)
			assert.Zero(t, doc.Records[0].NumStatements)
			value, ok := doc.Records[0].MetaValue(metadata.KeyNumStatements)
			require.True(t, ok)
			assert.True(t, value.Equal(metadata.String("many")))

			data, err := Marshal(doc, EncodeOptions{})
			require.NoError(t, err)
			again, err := Read(data)
			require.NoError(t, err)
			value, ok = again.Records[0].MetaValue(metadata.KeyNumStatements)
			require.True(t, ok)
			assert.True(t, value.Equal(metadata.String("many")))
		})
	}
}

func TestV1StatementCountBecomesMetadataInLaterSchemas(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "1.0"}, "_CG": {"f": {"numStatements": 3}}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, 3, doc.Records[0].NumStatements)
	assert.Empty(t, doc.Records[0].Metadata)

	doc.Version = "2.0"
	data, err := Marshal(doc, EncodeOptions{})
	require.NoError(t, err)
	again, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Records[0].NumStatements)
	value, ok := again.Records[0].MetaValue(metadata.KeyNumStatements)
	require.True(t, ok)
	assert.True(t, value.Equal(metadata.Int(3)))
}

func TestNameKeyedDuplicateKeyOverwritesInPlace(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "1.0"}, "_CG": {
		"foo": {"numStatements": 1},
		"bar": {},
		"foo": {"numStatements": 2, "parents": ["ignored"]}
	}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "foo", doc.Records[0].Name)
	assert.Equal(t, 2, doc.Records[0].NumStatements)
	assert.Equal(t, "bar", doc.Records[1].Name)
}

func TestV3NodesAndEdges(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "3.0"}, "_CG": {
		"nodes": [
			[1, {"functionName": "foo", "origin": "a.cpp", "hasBody": true, "meta": {"numStatements": 3}}],
			[2, {"functionName": "foo", "origin": "b.cpp", "hasBody": true, "meta": null}],
			[3, {"functionName": "main", "hasBody": true, "meta": {}}]
		],
		"edges": [[[3, 1], null], [[3, 2], {"weight": 1}]]
	}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, "1", doc.Records[0].Ref)
	assert.Equal(t, "a.cpp", doc.Records[0].Origin)
	assert.Equal(t, 3, doc.Records[0].NumStatements)
	assert.Equal(t, []string{"1", "2"}, doc.Records[2].Callees)

	_, err = Read([]byte(`{"_MetaCG": {"version": "3.0"}, "_CG": {"nodes": [
		[1, {"functionName": "a"}], [1, {"functionName": "b"}]
	], "edges": []}}`))
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestV4OverrideMetadata(t *testing.T) {
	doc, err := Read([]byte(`{"_MetaCG": {"version": "4.0"}, "_CG": {
		"0": {"functionName": "Base::f", "origin": null, "hasBody": true, "callees": {}, "meta": {"overrideMD": {"overrides": [], "overriddenBy": [1]}}},
		"1": {"functionName": "Derived::f", "origin": null, "hasBody": true, "callees": {"0": null}, "meta": {"overrideMD": {"overrides": [0], "overriddenBy": []}}}
	}}`))
	require.NoError(t, err)
	require.Len(t, doc.Records, 2)

	base, derived := doc.Records[0], doc.Records[1]
	assert.True(t, base.IsVirtual)
	assert.False(t, base.DoesOverride)
	assert.Equal(t, []string{"Derived::f"}, base.OverriddenBy)
	assert.True(t, derived.DoesOverride)
	assert.Equal(t, []string{"Base::f"}, derived.OverriddenFunctions)
	assert.Equal(t, []string{"0"}, derived.Callees)
}

func TestV1EncodeWritesParents(t *testing.T) {
	records := []Record{
		{Ref: "a", Name: "a", Callees: []string{"b", "c"}, HasBody: true},
		{Ref: "b", Name: "b", Callees: []string{"c", "c"}, HasBody: true},
		{Ref: "c", Name: "c", HasBody: false},
	}
	data, err := Marshal(Document{Version: "1.0", Records: records}, EncodeOptions{})
	require.NoError(t, err)

	var out struct {
		CG map[string]struct {
			Callees []string `json:"callees"`
			Parents []string `json:"parents"`
			HasBody bool     `json:"hasBody"`
		} `json:"_CG"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []string{}, out.CG["a"].Parents)
	assert.Equal(t, []string{"a"}, out.CG["b"].Parents)
	assert.Equal(t, []string{"a", "b"}, out.CG["c"].Parents)
	assert.Equal(t, []string{"c"}, out.CG["b"].Callees)
	assert.False(t, out.CG["c"].HasBody)
}

func TestEncodeDisambiguatesDuplicateNames(t *testing.T) {
	records := []Record{
		{Ref: "0", Name: "foo", HasBody: true},
		{Ref: "1", Name: "foo", HasBody: true},
		{Ref: "2", Name: "main", Callees: []string{"1"}, HasBody: true},
	}
	data, err := Marshal(Document{Version: "2.0", Records: records}, EncodeOptions{})
	require.NoError(t, err)

	doc, err := Read(data)
	require.NoError(t, err)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, "foo#0", doc.Records[0].Name)
	assert.Equal(t, "foo#1", doc.Records[1].Name)
	assert.Equal(t, []string{"foo#1"}, doc.Records[2].Callees)
}

func TestEncodeRoundTripAcrossVersions(t *testing.T) {
	records := []Record{
		{Ref: "main", Name: "main", Callees: []string{"foo", "bar"}, HasBody: true, NumStatements: 4},
		{Ref: "foo", Name: "foo", Callees: []string{"bar"}, HasBody: true},
		{Ref: "bar", Name: "bar", Callees: []string{"bar"}, HasBody: true,
			Metadata: []metadata.Entry{metadata.NewEntry("custom", metadata.List(metadata.Bool(true)))}},
	}
	for _, version := range Supported() {
		t.Run(version, func(t *testing.T) {
			data, err := Marshal(Document{Version: version, Records: records}, EncodeOptions{Indent: "  "})
			require.NoError(t, err)
			doc, err := Read(data)
			require.NoError(t, err)
			assert.Equal(t, version, doc.Version)
			require.Len(t, doc.Records, 3)

			names := make(map[string]string)
			for _, record := range doc.Records {
				names[record.Ref] = record.Name
			}
			for i, record := range doc.Records {
				assert.Equal(t, records[i].Name, record.Name)
				var callees []string
				for _, ref := range record.Callees {
					callees = append(callees, names[ref])
				}
				assert.Equal(t, records[i].Callees, callees)
			}
			assert.Equal(t, 4, doc.Records[0].NumStatements)
			value, ok := doc.Records[2].MetaValue("custom")
			require.True(t, ok)
			assert.True(t, value.Equal(metadata.List(metadata.Bool(true))))
		})
	}
}

func TestEncodeRejectsDanglingCallee(t *testing.T) {
	_, err := Marshal(Document{Version: "2.0", Records: []Record{
		{Ref: "main", Name: "main", Callees: []string{"missing"}, HasBody: true},
	}}, EncodeOptions{})
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestRegistryRejectsDuplicateVersions(t *testing.T) {
	_, err := NewRegistry(V2{}, V2{})
	assert.Error(t, err)

	r, err := NewRegistry(V2{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0"}, r.Supported())
	_, err = r.Read([]byte(`{"_MetaCG": {"version": "1.0"}, "_CG": {}}`))
	assert.True(t, errors.Is(err, ErrFormat))
}
