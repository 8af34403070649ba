package model

import (
	"sort"
	"testing"
)

func TestLinkRefLess_rootNamespaceFirst(t *testing.T) {
	t.Parallel()

	root := LinkRef{IfName: "eth0", NS: RootNS}
	other := LinkRef{IfName: "eth0", NS: "app"}

	if !LinkRefLess(root, other) {
		t.Fatal("root namespace link should sort before a non-root namespace link")
	}
	if LinkRefLess(other, root) {
		t.Fatal("non-root namespace link should not sort before root")
	}
}

func TestLinkRefLess_loFirstWithinNamespace(t *testing.T) {
	t.Parallel()

	lo := LinkRef{IfName: "lo", NS: RootNS}
	eth0 := LinkRef{IfName: "eth0", NS: RootNS}

	if !LinkRefLess(lo, eth0) {
		t.Fatal("lo should sort first within a namespace")
	}
}

func TestLinkRefLess_lexicographicOtherwise(t *testing.T) {
	t.Parallel()

	refs := []LinkRef{
		{IfName: "zeta", NS: RootNS},
		{IfName: "lo", NS: RootNS},
		{IfName: "alpha", NS: RootNS},
		{IfName: "eth0", NS: "zns"},
		{IfName: "eth0", NS: "ans"},
	}
	sort.Slice(refs, func(i, j int) bool { return LinkRefLess(refs[i], refs[j]) })

	want := []LinkRef{
		{IfName: "lo", NS: RootNS},
		{IfName: "alpha", NS: RootNS},
		{IfName: "zeta", NS: RootNS},
		{IfName: "eth0", NS: "ans"},
		{IfName: "eth0", NS: "zns"},
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, refs[i], want[i])
		}
	}
}
