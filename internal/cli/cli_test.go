package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcgtools/mcg/internal/cmake"
	"github.com/mcgtools/mcg/internal/graph"
)

const sampleV2 = `{
	"_MetaCG": {"version": "2.0", "generator": {"name": "test", "version": "1"}},
	"_CG": {
		"main": {"callees": ["foo", "bar"], "hasBody": true, "meta": {"numStatements": 3}},
		"foo": {"callees": ["bar"], "hasBody": true},
		"bar": {"callees": [], "hasBody": false}
	}
}`

const sampleDuplicates = `{"_MetaCG": {"version": "3.0"}, "_CG": {
	"nodes": [
		[1, {"functionName": "foo", "origin": "a.c", "hasBody": true, "meta": null}],
		[2, {"functionName": "foo", "origin": "b.c", "hasBody": true, "meta": null}],
		[3, {"functionName": "main", "origin": "a.c", "hasBody": true, "meta": null}]
	],
	"edges": [[[3, 1], null]]
}}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestInfoCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.ipcg")
	mustWriteFile(t, path, sampleV2)

	out, err := runCLI(t, "info", path)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if !strings.Contains(out, "version=2.0 generator=test") || !strings.Contains(out, "functions: 3 (with body 2)") || !strings.Contains(out, "edges: 3") {
		t.Fatalf("unexpected info output:\n%s", out)
	}

	out, err = runCLI(t, "info", "--json", path)
	if err != nil {
		t.Fatalf("info --json failed: %v", err)
	}
	var summary InfoSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if summary.Functions != 3 || summary.Edges != 3 || summary.Version != "2.0" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestInfoMissingFile(t *testing.T) {
	_, err := runCLI(t, "info", filepath.Join(t.TempDir(), "missing.ipcg"))
	var ioErr *graph.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestNodeAndRelations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.ipcg")
	mustWriteFile(t, path, sampleV2)

	out, err := runCLI(t, "callers", path, "bar")
	if err != nil {
		t.Fatalf("callers failed: %v", err)
	}
	if !strings.Contains(out, "callers for bar (2)") || !strings.Contains(out, "- foo") || !strings.Contains(out, "- main") {
		t.Fatalf("unexpected callers output:\n%s", out)
	}

	out, err = runCLI(t, "callees", "--json", path, "main")
	if err != nil {
		t.Fatalf("callees failed: %v", err)
	}
	var payload struct {
		Callees []NodeRecord `json:"callees"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(payload.Callees) != 2 {
		t.Fatalf("expected 2 callees, got %+v", payload.Callees)
	}

	out, err = runCLI(t, "node", "--json", path, "main")
	if err != nil {
		t.Fatalf("node failed: %v", err)
	}
	var record NodeRecord
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if record.NumStatements != 3 || !record.HasBody || len(record.Callers) != 0 {
		t.Fatalf("unexpected node %+v", record)
	}

	if _, err := runCLI(t, "node", path, "nope"); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAmbiguousNameNeedsFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.ipcg")
	mustWriteFile(t, path, sampleDuplicates)

	if _, err := runCLI(t, "callers", path, "foo"); !errors.Is(err, graph.ErrAmbiguousName) {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	out, err := runCLI(t, "callers", "--first", path, "foo")
	if err != nil {
		t.Fatalf("callers --first failed: %v", err)
	}
	if !strings.Contains(out, "- main a.c") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.ipcg")
	output := filepath.Join(dir, "out.mcg")
	mustWriteFile(t, input, sampleDuplicates)

	if _, err := runCLI(t, "convert", "--to", "1.0", input, output); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	g, err := graph.ReadFile(output)
	if err != nil {
		t.Fatalf("converted file unreadable: %v", err)
	}
	if g.Len() != 3 || g.EdgeCount() != 1 {
		t.Fatalf("unexpected converted graph: %d nodes, %d edges", g.Len(), g.EdgeCount())
	}

	if _, err := runCLI(t, "convert", "--to", "9.0", input); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestPhasarCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "phasar.txt")
	output := filepath.Join(dir, "cg.ipcg")
	mustWriteFile(t, input, "some log output\n"+`{"CallGraph": {"a": ["b", "c"], "b": ["c"]}}`+"\n")

	if _, err := runCLI(t, "phasar", "-i", input, "-o", output); err != nil {
		t.Fatalf("phasar failed: %v", err)
	}
	g, err := graph.ReadFile(output)
	if err != nil {
		t.Fatalf("phasar output unreadable: %v", err)
	}
	c, err := g.Lookup("c")
	if err != nil {
		t.Fatalf("lookup c: %v", err)
	}
	if len(c.Callers()) != 2 {
		t.Fatalf("expected c to have 2 callers, got %v", c.Callers())
	}
}

func TestPhasarCommandUsesStdinAndStdout(t *testing.T) {
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("analysis done\n" + `{"CallGraph": {"main": ["helper"]}}` + "\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"phasar"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("phasar failed: %v", err)
	}

	g, err := graph.Read(out.Bytes())
	if err != nil {
		t.Fatalf("stdout is not a call graph: %v\n%s", err, out.String())
	}
	main, err := g.Lookup("main")
	if err != nil {
		t.Fatalf("lookup main: %v", err)
	}
	if len(main.Callees()) != 1 || !g.Contains("helper") {
		t.Fatalf("expected main -> helper, got %v", main.Callees())
	}
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ipcg")
	b := filepath.Join(dir, "b.ipcg")
	bad := filepath.Join(dir, "bad.ipcg")
	output := filepath.Join(dir, "whole.ipcg")
	mustWriteFile(t, a, `{"_MetaCG": {"version": "2.0"}, "_CG": {"main": {"callees": ["util"]}, "util": {"callees": [], "hasBody": false}}}`)
	mustWriteFile(t, b, `{"_MetaCG": {"version": "2.0"}, "_CG": {"util": {"callees": []}}}`)
	mustWriteFile(t, bad, `{"_MetaCG": {"version": "7"}, "_CG": {}}`)

	out, err := runCLI(t, "merge", "--json", output, a, b, bad)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if summary.Merged != 2 || summary.Skipped != 1 || summary.Functions != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	g, err := graph.ReadFile(output)
	if err != nil {
		t.Fatalf("merged file unreadable: %v", err)
	}
	util, err := g.Lookup("util")
	if err != nil || !util.HasBody() {
		t.Fatalf("expected util with body, got %v %v", util, err)
	}
}

func TestSnapshotCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "db")
	path := filepath.Join(dir, "cg.ipcg")
	mustWriteFile(t, path, sampleV2)

	out, err := runCLI(t, "snapshot", "save", "--db", db, "--label", "first", "--json", path)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	var meta struct {
		ID        string `json:"id"`
		NodeCount int    `json:"node_count"`
	}
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if meta.ID == "" || meta.NodeCount != 3 {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	out, err = runCLI(t, "snapshot", "list", "--db", db)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, meta.ID) || !strings.Contains(out, `"first"`) {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	exported := filepath.Join(dir, "exported.ipcg")
	if _, err := runCLI(t, "snapshot", "export", "--db", db, "--to", "2.0", meta.ID, exported); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	g, err := graph.ReadFile(exported)
	if err != nil {
		t.Fatalf("exported file unreadable: %v", err)
	}
	if g.Len() != 3 || g.EdgeCount() != 3 {
		t.Fatalf("unexpected exported graph: %d nodes, %d edges", g.Len(), g.EdgeCount())
	}

	if _, err := runCLI(t, "snapshot", "delete", "--db", db, meta.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	out, err = runCLI(t, "snapshot", "list", "--db", db)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "no snapshots") {
		t.Fatalf("expected empty list, got:\n%s", out)
	}
}

func TestCollectCommandFlagsOverrideConfig(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	build := filepath.Join(root, "build")
	mustWriteFile(t, filepath.Join(src, "main.c"), "void util(void);\nint main(void) { util(); return 0; }\n")
	mustWriteFile(t, filepath.Join(src, "util.c"), "void util(void) { }\n")
	mustWriteFile(t, filepath.Join(cmake.ReplyDir(build), "target-app-Debug-1.json"),
		`{"name": "app", "sources": [{"path": "main.c"}, {"path": "util.c"}]}`)
	mustWriteFile(t, filepath.Join(root, "mcg.yaml"), fmt.Sprintf(`collect:
  generate: graph
  build_dir: %s
  source_dir: %s
  target: app
  output: from-config.ipcg
log:
  level: error
`, build, src))
	t.Chdir(root)

	output := filepath.Join(root, "from-flag.ipcg")
	out, err := runCLI(t, "collect", "-o", output, "-j", "2", "--json")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if summary.Succeeded != 2 || summary.Merged != 2 || summary.Functions != 2 || summary.Output != output {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(root, "from-config.ipcg")); !os.IsNotExist(err) {
		t.Fatalf("expected the flag to override the configured output")
	}
	g, err := graph.ReadFile(output)
	if err != nil {
		t.Fatalf("collected graph unreadable: %v", err)
	}
	main, err := g.Lookup("main")
	if err != nil {
		t.Fatalf("lookup main: %v", err)
	}
	if len(main.Callees()) != 1 || main.Callees()[0].FunctionName() != "util" {
		t.Fatalf("expected main -> util, got %v", main.Callees())
	}
}

func TestCollectIncrementalAndExclude(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	build := filepath.Join(root, "build")
	mustWriteFile(t, filepath.Join(src, "main.c"), "int main(void) { return 0; }\n")
	mustWriteFile(t, filepath.Join(src, "gen", "table.c"), "int table(void) { return 1; }\n")
	mustWriteFile(t, filepath.Join(cmake.ReplyDir(build), "target-app-Debug-1.json"),
		`{"name": "app", "sources": [{"path": "main.c"}, {"path": "gen/table.c"}]}`)
	t.Chdir(root)

	args := []string{"collect", "-g", "graph", "-b", build, "-s", src, "-t", "app",
		"-o", filepath.Join(root, "out.ipcg"), "--exclude", "gen/", "--incremental", "--json"}
	decode := func(out string) RunSummary {
		t.Helper()
		var summary RunSummary
		if err := json.Unmarshal([]byte(out), &summary); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		return summary
	}

	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("first collect failed: %v", err)
	}
	first := decode(out)
	if first.Succeeded != 1 || first.Excluded != 1 || first.Reused != 0 {
		t.Fatalf("unexpected first summary %+v", first)
	}

	out, err = runCLI(t, args...)
	if err != nil {
		t.Fatalf("second collect failed: %v", err)
	}
	second := decode(out)
	if second.Succeeded != 0 || second.Reused != 1 || second.Merged != 1 {
		t.Fatalf("unexpected second summary %+v", second)
	}
}

func TestSearchCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.ipcg")
	mustWriteFile(t, path, sampleV2)

	out, err := runCLI(t, "search", path, "foo", "--json")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var payload struct {
		Query   string      `json:"query"`
		Results []SearchHit `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if payload.Query != "foo" || len(payload.Results) != 1 || payload.Results[0].Node.Name != "foo" {
		t.Fatalf("unexpected search results %+v", payload)
	}

	out, err = runCLI(t, "search", path, "nothing", "here")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, `no functions match "nothing here"`) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := runCLI(t, "search", path, "foo", "--limit", "0"); err == nil {
		t.Fatalf("expected error for --limit 0")
	}
}

func TestDoctorCommand(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	build := filepath.Join(root, "build")
	t.Chdir(root)
	base := []string{"-g", "graph", "-b", build, "-s", src, "-t", "app", "--json"}
	doctor := func() DoctorSummary {
		t.Helper()
		out, err := runCLI(t, append([]string{"doctor"}, base...)...)
		if err != nil {
			t.Fatalf("doctor failed: %v", err)
		}
		var summary DoctorSummary
		if err := json.Unmarshal([]byte(out), &summary); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		return summary
	}

	summary := doctor()
	if summary.Healthy || summary.Reply {
		t.Fatalf("expected missing reply to be reported, got %+v", summary)
	}

	mustWriteFile(t, filepath.Join(src, "main.c"), "int main(void) { return 0; }\n")
	mustWriteFile(t, filepath.Join(cmake.ReplyDir(build), "target-app-Debug-1.json"),
		`{"name": "app", "sources": [{"path": "main.c"}]}`)
	summary = doctor()
	if !summary.Healthy || summary.Clean || summary.State == nil || summary.State.Changed != 1 {
		t.Fatalf("expected healthy but unclean state, got %+v", summary)
	}

	collectArgs := append([]string{"collect", "--incremental", "-o", filepath.Join(root, "out.ipcg")}, base...)
	if _, err := runCLI(t, collectArgs...); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	summary = doctor()
	if !summary.Healthy || !summary.Clean || summary.State.Tracked != 1 {
		t.Fatalf("expected clean state after collect, got %+v", summary)
	}
}

func TestBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ipcg")
	mustWriteFile(t, path, sampleV2)
	if _, err := runCLI(t, "merge", "--log-level", "loud", filepath.Join(dir, "out.ipcg"), path); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "mcg test") || !strings.Contains(out, "4.0") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestTraceAndPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cg.ipcg")
	mustWriteFile(t, path, sampleV2)

	out, err := runCLI(t, "path", path, "main", "bar")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if strings.TrimSpace(out) != "main -> bar" {
		t.Fatalf("unexpected path output %q", out)
	}
	out, err = runCLI(t, "path", path, "bar", "main")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if !strings.Contains(out, "no call path from bar to main") {
		t.Fatalf("unexpected path output %q", out)
	}

	out, err = runCLI(t, "trace", "--depth", "1", path, "foo")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if !strings.Contains(out, "reached=1") || !strings.Contains(out, "- bar (declaration)") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
	if _, err := runCLI(t, "trace", "--depth", "0", path, "foo"); err == nil {
		t.Fatalf("expected error for depth 0")
	}
}
