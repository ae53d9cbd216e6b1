package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcgtools/mcg/internal/fileutil"
	"github.com/mcgtools/mcg/internal/graph"
	"github.com/mcgtools/mcg/internal/mcg"
	"github.com/mcgtools/mcg/internal/metadata"
)

// NodeRecord is the JSON form of a node.
type NodeRecord struct {
	ID            int                       `json:"id"`
	Name          string                    `json:"name"`
	Origin        string                    `json:"origin,omitempty"`
	HasBody       bool                      `json:"has_body"`
	IsVirtual     bool                      `json:"is_virtual"`
	DoesOverride  bool                      `json:"does_override"`
	NumStatements int                       `json:"num_statements"`
	Callees       []string                  `json:"callees,omitempty"`
	Callers       []string                  `json:"callers,omitempty"`
	Meta          map[string]metadata.Value `json:"meta,omitempty"`
}

func NodeRecordFromNode(n *graph.Node, withEdges bool) NodeRecord {
	record := NodeRecord{
		ID:            int(n.ID()),
		Name:          n.FunctionName(),
		Origin:        n.Origin(),
		HasBody:       n.HasBody(),
		IsVirtual:     n.IsVirtual(),
		DoesOverride:  n.DoesOverride(),
		NumStatements: n.NumStatements(),
	}
	if withEdges {
		record.Callees = nodeNames(n.Callees())
		record.Callers = nodeNames(n.Callers())
		md := n.MetaData()
		if len(md) > 0 {
			record.Meta = make(map[string]metadata.Value, len(md))
			for key, entry := range md {
				record.Meta[key] = entry.Data
			}
		}
	}
	return record
}

// loadGraph reads path and builds its graph, keeping the decoded document
// for its version and generator.
func loadGraph(path string) (*graph.Callgraph, mcg.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mcg.Document{}, &graph.IOError{Path: path, Err: err}
	}
	doc, err := mcg.Read(data)
	if err != nil {
		return nil, mcg.Document{}, err
	}
	g, err := graph.FromDocument(doc)
	if err != nil {
		return nil, mcg.Document{}, err
	}
	return g, doc, nil
}

// resolveNode finds name, failing on ambiguity unless --first is set.
func resolveNode(cmd *cobra.Command, g *graph.Callgraph, name string) (*graph.Node, error) {
	first, err := OptionalBoolFlag(cmd, "first", false)
	if err != nil {
		return nil, err
	}
	if first {
		return g.FirstNode(name)
	}
	return g.Lookup(name)
}

func RunInfo(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, doc, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	withBody := 0
	for n := range g.All() {
		if n.HasBody() {
			withBody++
		}
	}

	summary := InfoSummary{
		File:           args[0],
		Version:        doc.Version,
		Generator:      doc.Generator.Name,
		Functions:      g.Len(),
		WithBody:       withBody,
		Edges:          g.EdgeCount(),
		DuplicateNames: g.DuplicateNames(),
	}
	return PrintInfoSummary(cmd.OutOrStdout(), summary, asJSON)
}

func RunNodes(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		records := make([]NodeRecord, 0, g.Len())
		for n := range g.All() {
			records = append(records, NodeRecordFromNode(n, false))
		}
		return fileutil.PrintJSON(out, map[string]any{"nodes": records})
	}
	for n := range g.All() {
		printNodeLine(out, n)
	}
	return nil
}

func RunNode(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	n, err := resolveNode(cmd, g, args[1])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	record := NodeRecordFromNode(n, true)
	if asJSON {
		return fileutil.PrintJSON(out, record)
	}

	fmt.Fprintf(out, "%s (#%d)\n", record.Name, record.ID)
	if record.Origin != "" {
		fmt.Fprintf(out, "origin: %s\n", record.Origin)
	}
	fmt.Fprintf(out, "has_body=%t virtual=%t overrides=%t statements=%d\n",
		record.HasBody, record.IsVirtual, record.DoesOverride, record.NumStatements)
	fmt.Fprintf(out, "callees (%d): %s\n", len(record.Callees), SummarizePaths(record.Callees, 8))
	fmt.Fprintf(out, "callers (%d): %s\n", len(record.Callers), SummarizePaths(record.Callers, 8))
	keys := make([]string, 0, len(record.Meta))
	for key := range record.Meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(out, "meta %s: %s\n", key, record.Meta[key])
	}
	return nil
}

func RunCallers(cmd *cobra.Command, args []string) error {
	return runRelation(cmd, args, "callers", (*graph.Node).Callers)
}

func RunCallees(cmd *cobra.Command, args []string) error {
	return runRelation(cmd, args, "callees", (*graph.Node).Callees)
}

func runRelation(cmd *cobra.Command, args []string, label string, related func(*graph.Node) []*graph.Node) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	n, err := resolveNode(cmd, g, args[1])
	if err != nil {
		return err
	}
	nodes := related(n)
	out := cmd.OutOrStdout()
	if asJSON {
		records := make([]NodeRecord, 0, len(nodes))
		for _, other := range nodes {
			records = append(records, NodeRecordFromNode(other, false))
		}
		return fileutil.PrintJSON(out, map[string]any{
			"query": args[1],
			"node":  NodeRecordFromNode(n, false),
			label:   records,
		})
	}

	fmt.Fprintf(out, "%s for %s (%d)\n", label, n.FunctionName(), len(nodes))
	if len(nodes) == 0 {
		fmt.Fprintf(out, "no %s found\n", label)
		return nil
	}
	for _, other := range nodes {
		fmt.Fprint(out, "- ")
		printNodeLine(out, other)
	}
	return nil
}

func RunTrace(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	depth, err := OptionalIntFlag(cmd, "depth", 2)
	if err != nil {
		return err
	}
	if depth < 1 {
		return fmt.Errorf("--depth must be >= 1")
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	n, err := resolveNode(cmd, g, args[1])
	if err != nil {
		return err
	}
	steps := g.Trace(n, depth)
	out := cmd.OutOrStdout()
	if asJSON {
		type traceStep struct {
			Depth int        `json:"depth"`
			Node  NodeRecord `json:"node"`
		}
		records := make([]traceStep, 0, len(steps))
		for _, step := range steps {
			records = append(records, traceStep{Depth: step.Depth, Node: NodeRecordFromNode(step.Node, false)})
		}
		return fileutil.PrintJSON(out, map[string]any{
			"query": args[1],
			"depth": depth,
			"node":  NodeRecordFromNode(n, false),
			"steps": records,
		})
	}

	fmt.Fprintf(out, "trace from %s (depth=%d, reached=%d)\n", n.FunctionName(), depth, len(steps))
	for _, step := range steps {
		fmt.Fprintf(out, "%s- ", strings.Repeat("  ", step.Depth-1))
		printNodeLine(out, step.Node)
	}
	return nil
}

func RunPath(cmd *cobra.Command, args []string) error {
	asJSON, err := OptionalBoolFlag(cmd, "json", false)
	if err != nil {
		return err
	}
	g, _, err := loadGraph(args[0])
	if err != nil {
		return err
	}
	from, err := resolveNode(cmd, g, args[1])
	if err != nil {
		return err
	}
	to, err := resolveNode(cmd, g, args[2])
	if err != nil {
		return err
	}
	path := nodeNames(g.ShortestPath(from, to))
	out := cmd.OutOrStdout()
	if asJSON {
		return fileutil.PrintJSON(out, map[string]any{
			"from":  args[1],
			"to":    args[2],
			"found": len(path) > 0,
			"path":  path,
		})
	}
	if len(path) == 0 {
		fmt.Fprintf(out, "no call path from %s to %s\n", args[1], args[2])
		return nil
	}
	fmt.Fprintln(out, strings.Join(path, " -> "))
	return nil
}

func printNodeLine(w io.Writer, n *graph.Node) {
	fmt.Fprintf(w, "%s", n.FunctionName())
	if n.Origin() != "" {
		fmt.Fprintf(w, " %s", n.Origin())
	}
	if !n.HasBody() {
		fmt.Fprint(w, " (declaration)")
	}
	fmt.Fprintln(w)
}

func nodeNames(nodes []*graph.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.FunctionName()
	}
	return names
}
