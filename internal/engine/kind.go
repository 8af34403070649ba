// kind.go implements the tagged-variant capability table from spec.md §9
// ("Dynamic dispatch by kind... should become a tagged variant LinkKind
// {Generic, Physical, Veth, Tun, Vlan, Dsa, ...} with a small capability
// table per variant"). model.LinkKind is the tag; this file supplies the
// per-kind behavior the engine needs: whether the kind can be created at
// all, whether it can be driven by ethtool, how to build the
// netlink.Link value to create, and how to read back a kind-specific
// attribute like veth's peer ifname (§9 "Subclass hooks for
// get_if_attr('peer')... become explicit per-kind hooks on the LinkKind
// variant").
package engine

import (
	"net"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
)

// KindCapability is the per-variant table entry (§9).
type KindCapability struct {
	CanCreate  bool
	CanEthtool bool

	// Build returns the netlink.Link value to pass to LinkAdd for lm.
	Build func(lm *model.LinkModel) netlink.Link

	// PeerIfName reports a veth-like kind's peer ifname, when the live
	// link exposes one directly (veth). Other kinds return "".
	PeerIfName func(link netlink.Link) string
}

func baseAttrs(lm *model.LinkModel) netlink.LinkAttrs {
	attrs := netlink.NewLinkAttrs()
	attrs.Name = lm.IfName
	if lm.MTU != 0 {
		attrs.MTU = lm.MTU
	}
	if len(lm.HWAddr) != 0 {
		attrs.HardwareAddr = lm.HWAddr
	}
	if lm.Group >= 0 {
		attrs.Group = uint32(lm.Group)
	}
	return attrs
}

// capabilities is the §9 capability table, keyed by model.LinkKind. Kinds
// not present here fall back to the generic entry via capabilityFor.
var capabilities = map[model.LinkKind]KindCapability{
	model.KindPhysical: {CanCreate: false, CanEthtool: true},

	model.KindBridge: {
		CanCreate: true, CanEthtool: true,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Bridge{LinkAttrs: baseAttrs(lm)}
		},
	},

	model.KindDummy: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Dummy{LinkAttrs: baseAttrs(lm)}
		},
	},

	model.KindVeth: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Veth{LinkAttrs: baseAttrs(lm), PeerName: lm.Peer}
		},
		PeerIfName: func(link netlink.Link) string {
			if v, ok := link.(*netlink.Veth); ok {
				return v.PeerName
			}
			return ""
		},
	},

	model.KindVlan: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			attrs := baseAttrs(lm)
			v := &netlink.Vlan{LinkAttrs: attrs}
			if lm.Vlan != nil {
				v.VlanId = lm.Vlan.ID
				v.VlanProtocol = netlink.VlanProtocol(lm.Vlan.Protocol)
			}
			return v
		},
	},

	model.KindVxlan: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			attrs := baseAttrs(lm)
			v := &netlink.Vxlan{LinkAttrs: attrs}
			if lm.Vxlan != nil {
				v.VxlanId = lm.Vxlan.ID
				v.SrcAddr = lm.Vxlan.Local
				v.Group = lm.Vxlan.Remote
				if lm.Vxlan.Port != 0 {
					v.Port = lm.Vxlan.Port
				}
				v.Learning = lm.Vxlan.Learning
			}
			return v
		},
	},

	model.KindBond: {
		CanCreate: true, CanEthtool: true,
		Build: func(lm *model.LinkModel) netlink.Link {
			attrs := baseAttrs(lm)
			b := netlink.NewLinkBond(attrs)
			if lm.Bond != nil {
				b.Mode = netlink.BondMode(lm.Bond.Mode)
				b.ArpValidate = netlink.BondArpValidate(lm.Bond.ArpValidate)
				b.ArpAllTargets = netlink.BondArpAllTargets(lm.Bond.ArpAllTargets)
				b.PrimaryReselect = netlink.BondPrimaryReselect(lm.Bond.PrimaryReselect)
				b.FailOverMac = netlink.BondFailOverMac(lm.Bond.FailOverMac)
				b.XmitHashPolicy = netlink.BondXmitHashPolicy(lm.Bond.XmitHashPolicy)
				b.AdLacpRate = netlink.BondLacpRate(lm.Bond.AdLacpRate)
				b.AdSelect = netlink.BondAdSelect(lm.Bond.AdSelect)
				if lm.Bond.MiiMon != 0 {
					b.Miimon = lm.Bond.MiiMon
				}
			}
			return b
		},
	},

	model.KindGeneve: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			attrs := baseAttrs(lm)
			g := &netlink.Geneve{LinkAttrs: attrs}
			if lm.Tunnel != nil {
				g.Remote = lm.Tunnel.Remote
				g.ID = uint32(lm.Tunnel.VNI)
			}
			return g
		},
	},

	model.KindIPIP: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Iptun{LinkAttrs: baseAttrs(lm), Local: tunnelLocal(lm), Remote: tunnelRemote(lm), Ttl: tunnelTTL(lm)}
		},
	},

	model.KindGRE: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Gretun{LinkAttrs: baseAttrs(lm), Local: tunnelLocal(lm), Remote: tunnelRemote(lm), Ttl: tunnelTTL(lm)}
		},
	},

	model.KindIP6Tnl: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Ip6tnl{LinkAttrs: baseAttrs(lm), Local: tunnelLocal(lm), Remote: tunnelRemote(lm)}
		},
	},

	model.KindVTI: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Vti{LinkAttrs: baseAttrs(lm), Local: tunnelLocal(lm), Remote: tunnelRemote(lm)}
		},
	},

	model.KindWireGuard: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Wireguard{LinkAttrs: baseAttrs(lm)}
		},
	},

	model.KindMacvlan: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.Macvlan{LinkAttrs: baseAttrs(lm)}
		},
	},

	model.KindIPVlan: {
		CanCreate: true, CanEthtool: false,
		Build: func(lm *model.LinkModel) netlink.Link {
			return &netlink.IPVlan{LinkAttrs: baseAttrs(lm)}
		},
	},
}

func tunnelLocal(lm *model.LinkModel) net.IP {
	if lm.Tunnel == nil {
		return nil
	}
	return lm.Tunnel.Local
}

func tunnelRemote(lm *model.LinkModel) net.IP {
	if lm.Tunnel == nil {
		return nil
	}
	return lm.Tunnel.Remote
}

func tunnelTTL(lm *model.LinkModel) uint8 {
	if lm.Tunnel == nil {
		return 0
	}
	return uint8(lm.Tunnel.TTL)
}

// capabilityFor returns kind's capability table entry, falling back to
// the "Generic" variant (§9) for any kind this table doesn't special-case
// — e.g. dsa, xfrm, tun, ip6gre, ip6gretap, gretap: generic links can
// still be enumerated, renamed, and have attributes set, just not created
// from scratch.
func capabilityFor(kind model.LinkKind) KindCapability {
	if c, ok := capabilities[kind]; ok {
		return c
	}
	return KindCapability{CanCreate: false, CanEthtool: false}
}
