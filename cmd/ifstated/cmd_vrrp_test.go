package main

import (
	"testing"

	"github.com/liske/ifstated/internal/model"
)

func TestParseVrrpArgs_valid(t *testing.T) {
	t.Parallel()

	sel, err := parseVrrpArgs([]string{"instance", "VI_1", "master"})
	if err != nil {
		t.Fatalf("parseVrrpArgs() error = %v", err)
	}
	if sel.Type != model.VrrpInstance || sel.Name != "VI_1" || sel.State != model.VrrpMaster {
		t.Fatalf("parseVrrpArgs() = %+v, want instance/VI_1/master", sel)
	}
}

func TestParseVrrpArgs_unknownType(t *testing.T) {
	t.Parallel()

	if _, err := parseVrrpArgs([]string{"bogus", "VI_1", "master"}); err == nil {
		t.Fatal("parseVrrpArgs() = nil error, want a failure for an unknown TYPE")
	}
}

func TestParseVrrpArgs_unknownState(t *testing.T) {
	t.Parallel()

	if _, err := parseVrrpArgs([]string{"group", "VG_1", "confused"}); err == nil {
		t.Fatal("parseVrrpArgs() = nil error, want a failure for an unknown STATE")
	}
}
