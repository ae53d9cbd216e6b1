package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFreshTracksSourceCollectorAndFragment(t *testing.T) {
	dir := t.TempDir()
	fragment := filepath.Join(dir, "main.ipcg")
	writeFile(t, fragment, `{"_MetaCG": {"version": "2.0"}, "_CG": {}}`)

	s := NewState()
	if s.Fresh("main.c", "h1", "builtin") {
		t.Fatalf("unknown source must not be fresh")
	}
	if err := s.Record("main.c", "h1", fragment, "builtin"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !s.Fresh("main.c", "h1", "builtin") {
		t.Fatalf("expected main.c to be fresh")
	}
	if s.Fresh("main.c", "h2", "builtin") {
		t.Fatalf("changed source hash must not be fresh")
	}
	if s.Fresh("main.c", "h1", "cgcollector") {
		t.Fatalf("changed collector must not be fresh")
	}

	writeFile(t, fragment, `{"_MetaCG": {"version": "2.0"}, "_CG": {"x": {}}}`)
	if s.Fresh("main.c", "h1", "builtin") {
		t.Fatalf("edited fragment must not be fresh")
	}
	if err := os.Remove(fragment); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Fresh("main.c", "h1", "builtin") {
		t.Fatalf("missing fragment must not be fresh")
	}
}

func TestSaveLoadAndPrune(t *testing.T) {
	dir := t.TempDir()
	fragment := filepath.Join(dir, "a.ipcg")
	writeFile(t, fragment, "{}")

	s := NewState()
	for _, source := range []string{"a.c", "b.c", "c.c"} {
		if err := s.Record(source, source+"-hash", fragment, "builtin"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	removed := s.Prune(map[string]bool{"b.c": true})
	if !reflect.DeepEqual(removed, []string{"a.c", "c.c"}) {
		t.Fatalf("unexpected pruned sources %v", removed)
	}
	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Sources) != 1 || loaded.Sources["b.c"].Hash != "b.c-hash" {
		t.Fatalf("unexpected loaded state %+v", loaded.Sources)
	}
}

func TestLoadMissingAndUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil || len(s.Sources) != 0 {
		t.Fatalf("expected empty state, got %+v %v", s, err)
	}

	writeFile(t, filepath.Join(dir, StateFile), `{"version": "99", "sources": {"a.c": {"hash": "x"}}}`)
	s, err = Load(dir)
	if err != nil || len(s.Sources) != 0 {
		t.Fatalf("expected unknown version to reset state, got %+v %v", s, err)
	}

	writeFile(t, filepath.Join(dir, StateFile), `{not json`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for corrupt state")
	}
}
