package hooks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOrder_respectsAfter(t *testing.T) {
	t.Parallel()

	hs := []Hook{
		{Name: "c", After: []string{"b"}},
		{Name: "a"},
		{Name: "b", After: []string{"a"}},
	}
	ordered, err := Order(hs)
	if err != nil {
		t.Fatalf("Order() error: %v", err)
	}
	pos := map[string]int{}
	for i, h := range ordered {
		pos[h.Name] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Fatalf("Order() = %v, want a before b before c", names(ordered))
	}
}

func TestOrder_circularAfterErrors(t *testing.T) {
	t.Parallel()

	hs := []Hook{
		{Name: "a", After: []string{"b"}},
		{Name: "b", After: []string{"a"}},
	}
	if _, err := Order(hs); err == nil {
		t.Fatal("Order() with circular after should error")
	}
}

func TestMaterialize_writesExecutableWrapper(t *testing.T) {
	orig := WrapperRoot
	WrapperRoot = t.TempDir()
	defer func() { WrapperRoot = orig }()

	h := Hook{Name: "myhook", Path: "/usr/local/bin/myhook"}
	ctx := Context{IfName: "eth0", Index: 7, NetNS: "", Action: ActionStart, Args: map[string]string{"X": "1"}}

	path, err := Materialize(h, ctx)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	if filepath.Base(path) != "wrapper.sh" {
		t.Fatalf("Materialize() path = %s, want .../wrapper.sh", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat wrapper: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Fatalf("wrapper mode = %v, want 0700", info.Mode().Perm())
	}
}

func names(hs []Hook) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Name
	}
	return out
}
