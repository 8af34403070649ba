package model

import "net"

// LinkRegistryItem is an observed live link bound to a namespace (§3).
type LinkRegistryItem struct {
	Index    int
	NS       string
	IfName   string
	Kind     LinkKind // linkinfo kind, or KindPhysical if absent
	State    LinkState
	Address  net.HardwareAddr
	BusInfo  string
	PermAddr net.HardwareAddr

	Master int // ifindex of master, 0 if none
	Lower  int // ifindex of lower link, 0 if none

	// Model is a back-pointer to the LinkModel that matched this item, or
	// nil if the item is an orphan.
	Model *LinkModel

	// Orphan is set by LinkRegistry.FreeItem for physical links so a later
	// configuration can still bind to this exact registry entry by ifname
	// (§3, §4.3 free_item, §4.7 built-in profile).
	Orphan bool

	// BindMount is the mount-identity blob (readlink of /proc/<pid>/ns/net
	// at creation time) recorded for bind_netns-created links, used to
	// recognize whether the link is still physically in its creation
	// namespace across reconciliation cycles (§3 NS, §9 bind-namespace).
	BindMount string
}

// LinkFilter is a conjunction of identity predicates consumed by
// LinkRegistry.GetLink (§4.3).
type LinkFilter struct {
	Index    int // 0 means unset
	IfName   string
	Address  net.HardwareAddr
	Kind     LinkKind
	BusInfo  string
	PermAddr net.HardwareAddr
	NS       string
	NSSet    bool
	Orphan   bool
	OrphanSet bool
}

// Match reports whether item satisfies every set predicate in f.
func (f LinkFilter) Match(item *LinkRegistryItem) bool {
	if f.Index != 0 && item.Index != f.Index {
		return false
	}
	if f.IfName != "" && item.IfName != f.IfName {
		return false
	}
	if len(f.Address) != 0 && item.Address.String() != f.Address.String() {
		return false
	}
	if f.Kind != "" && item.Kind != f.Kind {
		return false
	}
	if f.BusInfo != "" && item.BusInfo != f.BusInfo {
		return false
	}
	if len(f.PermAddr) != 0 && item.PermAddr.String() != f.PermAddr.String() {
		return false
	}
	if f.NSSet && item.NS != f.NS {
		return false
	}
	if f.OrphanSet && item.Orphan != f.Orphan {
		return false
	}
	return true
}

// IdentityFilters returns the LinkFilter chain to try, in the declining
// priority order from §3: (kind, businfo), (kind, permaddr),
// (kind, address, ns), (kind, ifname, ns), and for kind=physical also
// (kind=physical, ifname, orphan=true).
func (lm *LinkModel) IdentityFilters() []LinkFilter {
	var out []LinkFilter
	if lm.BusInfo != "" {
		out = append(out, LinkFilter{Kind: lm.Kind, BusInfo: lm.BusInfo})
	}
	if len(lm.PermAddr) != 0 {
		out = append(out, LinkFilter{Kind: lm.Kind, PermAddr: lm.PermAddr})
	}
	if len(lm.Address) != 0 {
		out = append(out, LinkFilter{Kind: lm.Kind, Address: lm.Address, NS: lm.NS, NSSet: true})
	}
	out = append(out, LinkFilter{Kind: lm.Kind, IfName: lm.IfName, NS: lm.NS, NSSet: true})
	if lm.Kind == KindPhysical {
		out = append(out, LinkFilter{Kind: KindPhysical, IfName: lm.IfName, Orphan: true, OrphanSet: true})
	}
	return out
}
