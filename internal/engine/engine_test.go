package engine

import (
	"net"
	"regexp"
	"testing"

	"github.com/liske/ifstated/internal/defaults"
	"github.com/liske/ifstated/internal/model"
)

func TestVrrpApplies(t *testing.T) {
	t.Parallel()

	untagged := &model.LinkModel{IfName: "eth0"}
	tagged := &model.LinkModel{IfName: "eth1", Vrrp: &model.VrrpTag{Type: model.VrrpInstance, Name: "VI_1"}}

	if !vrrpApplies(untagged, nil) {
		t.Fatal("outside VRRP mode every link should apply")
	}
	if vrrpApplies(tagged, nil) {
		t.Fatal("outside VRRP mode a tagged link must be skipped")
	}
	if vrrpApplies(untagged, &VrrpSelector{Type: model.VrrpInstance, Name: "VI_1"}) {
		t.Fatal("in VRRP mode an untagged link must be skipped")
	}
	if !vrrpApplies(tagged, &VrrpSelector{Type: model.VrrpInstance, Name: "VI_1"}) {
		t.Fatal("a matching tagged link must apply")
	}
	if vrrpApplies(tagged, &VrrpSelector{Type: model.VrrpInstance, Name: "VI_2"}) {
		t.Fatal("a non-matching tag must be skipped")
	}
}

func TestVrrpRouteApplies(t *testing.T) {
	t.Parallel()

	tag := &model.VrrpTag{
		Type:   model.VrrpGroup,
		Name:   "VG_1",
		States: map[model.VrrpState]bool{model.VrrpMaster: true},
	}

	if !vrrpRouteApplies(tag, nil) {
		t.Fatal("outside VRRP mode a tagged route always applies")
	}
	if !vrrpRouteApplies(tag, &VrrpSelector{Type: model.VrrpGroup, Name: "VG_1", State: model.VrrpMaster}) {
		t.Fatal("matching tag+accepted state should apply")
	}
	if vrrpRouteApplies(tag, &VrrpSelector{Type: model.VrrpGroup, Name: "VG_1", State: model.VrrpBackup}) {
		t.Fatal("matching tag with a non-accepted state should not apply")
	}
}

func TestMasterNS_fallsBackToLinkNS(t *testing.T) {
	t.Parallel()

	lm := &model.LinkModel{NS: "vrf-a", Master: "vrf0"}
	if got := masterNS(lm); got != "vrf-a" {
		t.Fatalf("masterNS() = %q, want vrf-a", got)
	}
	lm.MasterNS = "vrf-b"
	if got := masterNS(lm); got != "vrf-b" {
		t.Fatalf("masterNS() = %q, want vrf-b", got)
	}
}

func TestHwString(t *testing.T) {
	t.Parallel()

	if hwString(nil) != "" {
		t.Fatal("nil hardware address should stringify to empty")
	}
	addr, _ := net.ParseMAC("00:11:22:33:44:55")
	if got := hwString(addr); got != "00:11:22:33:44:55" {
		t.Fatalf("hwString() = %q", got)
	}
}

func TestApplyDefaults_mergesFirstMatchBeforeDiffing(t *testing.T) {
	t.Parallel()

	matcher := defaults.New([]defaults.Profile{
		{
			Name:  "wan",
			Match: []defaults.PredicateGroup{{{Option: "ifname", Regex: regexp.MustCompile(`^wan\d+$`)}}},
			Link:  defaults.LinkOverrides{MTU: 1400},
		},
	})
	e := &Engine{Matcher: matcher}

	plan := model.NewPlan()
	plan.NS[model.RootNS].Links["wan0"] = &model.LinkModel{IfName: "wan0", Kind: model.KindPhysical, MTU: 1500}
	plan.NS[model.RootNS].Links["eth0"] = &model.LinkModel{IfName: "eth0", Kind: model.KindPhysical, MTU: 1500}

	e.applyDefaults(plan)

	if got := plan.NS[model.RootNS].Links["wan0"].MTU; got != 1400 {
		t.Fatalf("wan0 MTU = %d, want 1400 from matched profile", got)
	}
	if got := plan.NS[model.RootNS].Links["eth0"].MTU; got != 1500 {
		t.Fatalf("eth0 MTU = %d, want unchanged 1500", got)
	}
}

func TestCollectHelpers_filterByIfname(t *testing.T) {
	t.Parallel()

	ns := model.NewNS("")
	ns.Sysctl[model.SysctlKey{IfName: "eth0", Family: "ipv4", Key: "forwarding"}] = model.SysctlSetting{Value: "1"}
	ns.Sysctl[model.SysctlKey{IfName: "eth1", Family: "ipv4", Key: "forwarding"}] = model.SysctlSetting{Value: "0"}
	ns.FDB[model.FDBKey{IfName: "vxlan0", Mac: "aa:bb"}] = model.FDBEntry{}
	ns.Neigh[model.NeighKey{IfName: "eth0", IP: "10.0.0.1"}] = model.Neighbour{}

	if set, ok := collectLinkSysctl(ns, "eth0"); !ok || len(set) != 1 {
		t.Fatalf("collectLinkSysctl(eth0) = %v, ok=%v, want exactly one entry", set, ok)
	}
	if _, ok := collectLinkSysctl(ns, "eth2"); ok {
		t.Fatal("collectLinkSysctl(eth2) should report no entries")
	}
	if fdbs := collectFDB(ns, "vxlan0"); len(fdbs) != 1 {
		t.Fatalf("collectFDB(vxlan0) = %v, want one entry", fdbs)
	}
	if neighs := collectNeigh(ns, "eth0"); len(neighs) != 1 {
		t.Fatalf("collectNeigh(eth0) = %v, want one entry", neighs)
	}
}
