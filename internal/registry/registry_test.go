package registry

import (
	"testing"

	"github.com/liske/ifstated/internal/model"
)

func TestGetLinkOne_indexAndNetnsUnique(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddLink(&model.LinkRegistryItem{Index: 3, NS: "app", IfName: "eth0", Kind: model.KindPhysical})
	r.AddLink(&model.LinkRegistryItem{Index: 3, NS: model.RootNS, IfName: "eth0", Kind: model.KindPhysical})

	got := r.GetLink(model.LinkFilter{Index: 3, NS: "app", NSSet: true})
	if len(got) != 1 {
		t.Fatalf("GetLink(index=3, netns=app) returned %d items, want 1", len(got))
	}
	if got[0].NS != "app" {
		t.Fatalf("matched item netns = %q, want app", got[0].NS)
	}
}

func TestMoveNetns_updatesIndexAndClearsOld(t *testing.T) {
	t.Parallel()

	r := New()
	item := &model.LinkRegistryItem{Index: 7, NS: model.RootNS, IfName: "veth0", Kind: model.KindVeth}
	r.AddLink(item)

	r.MoveNetns(item, "app")

	if item.NS != "app" {
		t.Fatalf("item.NS = %q, want app", item.NS)
	}
	if got := r.GetLink(model.LinkFilter{Index: 7, NS: model.RootNS, NSSet: true}); len(got) != 0 {
		t.Fatalf("old-namespace entry still present: %+v", got)
	}
	if got := r.GetLink(model.LinkFilter{Index: 7, NS: "app", NSSet: true}); len(got) != 1 {
		t.Fatalf("new-namespace entry missing, got %d matches", len(got))
	}
}

func TestGenUniqueIfname_neverCollides(t *testing.T) {
	t.Parallel()

	r := New()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name, err := r.GenUniqueIfname()
		if err != nil {
			t.Fatalf("GenUniqueIfname() error: %v", err)
		}
		if seen[name] {
			t.Fatalf("GenUniqueIfname() produced a duplicate: %s", name)
		}
		seen[name] = true
		r.AddLink(&model.LinkRegistryItem{Index: i + 1, NS: model.RootNS, IfName: name, Kind: model.KindDummy})
	}
}

func TestMatchModel_identityPriority(t *testing.T) {
	t.Parallel()

	r := New()
	// Two candidates: one matches by businfo only, one by ifname only.
	// The businfo match must win per the declining-priority order in §3.
	byBusInfo := &model.LinkRegistryItem{Index: 1, NS: model.RootNS, IfName: "eth9", Kind: model.KindPhysical, BusInfo: "0000:01:00.0"}
	byName := &model.LinkRegistryItem{Index: 2, NS: model.RootNS, IfName: "eth0", Kind: model.KindPhysical}
	r.AddLink(byBusInfo)
	r.AddLink(byName)

	lm := &model.LinkModel{IfName: "eth0", NS: model.RootNS, Kind: model.KindPhysical, BusInfo: "0000:01:00.0"}
	got := r.MatchModel(lm)
	if got != byBusInfo {
		t.Fatalf("MatchModel did not prefer businfo match: got index %d", got.Index)
	}
}

func TestOrphanPhysical_rebindsOnReconfigure(t *testing.T) {
	t.Parallel()

	r := New()
	item := &model.LinkRegistryItem{Index: 4, NS: model.RootNS, IfName: "eth1", Kind: model.KindPhysical, State: model.StateDown, Orphan: true}
	r.AddLink(item)

	lm := &model.LinkModel{IfName: "eth1", NS: model.RootNS, Kind: model.KindPhysical}
	got := r.MatchModel(lm)
	if got == nil {
		t.Fatal("expected orphaned physical link to be found by identity filters")
	}
	if got.Index != 4 {
		t.Fatalf("rebind produced a different registry entry: index %d, want 4 (no new index)", got.Index)
	}
}
