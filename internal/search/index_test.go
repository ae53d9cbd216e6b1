package search

import (
	"reflect"
	"testing"

	"github.com/mcgtools/mcg/internal/graph"
)

const sampleGraph = `{"_MetaCG": {"version": "3.0"}, "_CG": {
	"nodes": [
		[1, {"functionName": "parseDirectory", "origin": "src/fs/walk.c", "hasBody": true, "meta": null}],
		[2, {"functionName": "resolve_imports", "origin": "src/mod.c", "hasBody": true, "meta": null}],
		[3, {"functionName": "ns::Widget::draw", "origin": "ui/widget.cpp", "hasBody": true, "meta": null}]
	],
	"edges": [[[1, 2], null]]
}}`

func sample(t *testing.T) (*graph.Callgraph, *Index) {
	t.Helper()
	g, err := graph.Read([]byte(sampleGraph))
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	return g, Build(g)
}

func nodeID(t *testing.T, g *graph.Callgraph, name string) graph.NodeID {
	t.Helper()
	node, err := g.Lookup(name)
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return node.ID()
}

func TestSearchRanksFunctionNameMatches(t *testing.T) {
	g, index := sample(t)
	results := Search(index, "parse directory", 5)
	if len(results) == 0 {
		t.Fatalf("expected results for split identifier query")
	}
	if results[0].ID != nodeID(t, g, "parseDirectory") {
		t.Fatalf("expected parseDirectory to rank first, got %#v", results)
	}

	results = Search(index, "imports", 5)
	if len(results) != 1 || results[0].ID != nodeID(t, g, "resolve_imports") {
		t.Fatalf("expected underscore part to match, got %#v", results)
	}
}

func TestSearchMatchesOrigin(t *testing.T) {
	g, index := sample(t)
	results := Search(index, "widget.cpp", 5)
	if len(results) == 0 || results[0].ID != nodeID(t, g, "ns::Widget::draw") {
		t.Fatalf("expected origin match, got %#v", results)
	}
}

func TestSearchTypoFallback(t *testing.T) {
	g, index := sample(t)
	results := Search(index, "drwa", 3)
	if len(results) != 1 || results[0].ID != nodeID(t, g, "ns::Widget::draw") {
		t.Fatalf("expected typo fallback to pick ns::Widget::draw, got %#v", results)
	}
}

func TestSearchDeterministicOrdering(t *testing.T) {
	index := &Index{
		DocumentCount: 2,
		AvgDocLength:  1,
		DocFreq:       map[string]int{"alpha": 2},
		Documents: []Document{
			{ID: 1, Length: 1, Terms: map[string]int{"alpha": 1}},
			{ID: 0, Length: 1, Terms: map[string]int{"alpha": 1}},
		},
	}

	results := Search(index, "alpha", 2)
	if len(results) != 2 {
		t.Fatalf("expected two results, got %d", len(results))
	}
	if results[0].ID != 0 || results[1].ID != 1 {
		t.Fatalf("expected stable tie-break by id, got %#v", results)
	}
}

func TestSplitIdentifier(t *testing.T) {
	cases := map[string][]string{
		"parseDirectory":  {"parse", "directory"},
		"HTTPServer":      {"http", "server"},
		"resolve_imports": {"resolve", "imports"},
		"main":            {"main"},
	}
	for word, want := range cases {
		if got := splitIdentifier(word); !reflect.DeepEqual(got, want) {
			t.Fatalf("splitIdentifier(%q) = %v, want %v", word, got, want)
		}
	}
}
