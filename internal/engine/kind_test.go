package engine

import (
	"net"
	"testing"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
)

func TestCapabilityFor_knownKindBuildsTypedLink(t *testing.T) {
	t.Parallel()

	lm := &model.LinkModel{IfName: "br0", Kind: model.KindBridge, MTU: 1400}
	kcap := capabilityFor(model.KindBridge)
	if !kcap.CanCreate {
		t.Fatal("bridge kind should be creatable")
	}
	link := kcap.Build(lm)
	br, ok := link.(*netlink.Bridge)
	if !ok {
		t.Fatalf("Build() = %T, want *netlink.Bridge", link)
	}
	if br.Name != "br0" || br.MTU != 1400 {
		t.Fatalf("Build() attrs = %+v, want name=br0 mtu=1400", br.LinkAttrs)
	}
}

func TestCapabilityFor_unknownKindIsGeneric(t *testing.T) {
	t.Parallel()

	kcap := capabilityFor(model.KindXfrm)
	if kcap.CanCreate || kcap.CanEthtool {
		t.Fatalf("unlisted kind should fall back to the generic entry, got %+v", kcap)
	}
}

func TestCapabilityFor_vethExposesPeerName(t *testing.T) {
	t.Parallel()

	lm := &model.LinkModel{IfName: "veth0", Kind: model.KindVeth, Peer: "veth1"}
	kcap := capabilityFor(model.KindVeth)
	link := kcap.Build(lm)
	if got := kcap.PeerIfName(link); got != "veth1" {
		t.Fatalf("PeerIfName() = %q, want veth1", got)
	}
	if kcap.PeerIfName(&netlink.Dummy{}) != "" {
		t.Fatal("PeerIfName() on a non-veth link should return empty string")
	}
}

func TestCapabilityFor_physicalCannotCreate(t *testing.T) {
	t.Parallel()

	kcap := capabilityFor(model.KindPhysical)
	if kcap.CanCreate {
		t.Fatal("physical links cannot be created")
	}
	if !kcap.CanEthtool {
		t.Fatal("physical links should support ethtool")
	}
}

func TestTunnelHelpers_nilTunnel(t *testing.T) {
	t.Parallel()

	lm := &model.LinkModel{IfName: "gre0", Kind: model.KindGRE}
	if tunnelLocal(lm) != nil || tunnelRemote(lm) != nil || tunnelTTL(lm) != 0 {
		t.Fatal("tunnel helpers should return zero values when Tunnel is nil")
	}

	lm.Tunnel = &model.TunnelSettings{Local: net.ParseIP("10.0.0.1"), Remote: net.ParseIP("10.0.0.2"), TTL: 64}
	if tunnelTTL(lm) != 64 {
		t.Fatalf("tunnelTTL() = %d, want 64", tunnelTTL(lm))
	}
}
