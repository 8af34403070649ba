// Package model holds the engine's in-memory data model: namespaces, link
// identity, the desired per-interface state, and the indexed collections
// (addresses, routes, rules, fdb, neighbours, tc, sysctl, wireguard, xdp)
// that make up one reconciliation plan.
package model

import "sort"

// RootNS is the name used for the caller's initial namespace.
const RootNS = ""

// NS is a configured or discovered network namespace and everything the
// plan wants reconciled inside it.
type NS struct {
	Name string

	Links   map[string]*LinkModel // keyed by ifname
	Addrs   AddressSet
	Routes  RouteTableSet
	Rules   RuleSet
	FDB     FDBSet
	Neigh   NeighbourSet
	TC      TCSet
	Sysctl  SysctlSet
	WG      WireGuardSet
	XDP     XDPSet
	GlobalSysctl SysctlSet
}

// NewNS returns an empty NS named name.
func NewNS(name string) *NS {
	return &NS{
		Name:   name,
		Links:  make(map[string]*LinkModel),
		Addrs:  make(AddressSet),
		Routes: make(RouteTableSet),
		Rules:  make(RuleSet),
		FDB:    make(FDBSet),
		Neigh:  make(NeighbourSet),
		TC:     make(TCSet),
		Sysctl: make(SysctlSet),
		WG:     make(WireGuardSet),
		XDP:    make(XDPSet),
		GlobalSysctl: make(SysctlSet),
	}
}

// Plan is the complete set of namespaces the configuration describes, plus
// the namespaces the engine must manage the existence of.
type Plan struct {
	// Namespaces is nil when the configuration omits the `namespaces` key —
	// per §4.6 step 1 and the open question in §9, the orphan sweep then
	// leaves any extra kernel namespaces untouched.
	Namespaces []string

	NS map[string]*NS // keyed by namespace name, RootNS always present
}

// NewPlan returns a Plan containing only the root namespace.
func NewPlan() *Plan {
	p := &Plan{NS: make(map[string]*NS)}
	p.NS[RootNS] = NewNS(RootNS)
	return p
}

// NSOf returns the namespace named name, creating it if absent.
func (p *Plan) NSOf(name string) *NS {
	if ns, ok := p.NS[name]; ok {
		return ns
	}
	ns := NewNS(name)
	p.NS[name] = ns
	return ns
}

// Clone returns a deep copy of the plan's data, sharing no mutable state
// with the receiver. Per SPEC_FULL.md / spec.md §9, only the plan (pure
// data) is ever cloned — the runtime NamespaceContext (netlink sockets) is
// never part of this struct and so is never accidentally shared or copied.
func (p *Plan) Clone() *Plan {
	out := &Plan{
		Namespaces: append([]string(nil), p.Namespaces...),
		NS:         make(map[string]*NS, len(p.NS)),
	}
	for name, ns := range p.NS {
		out.NS[name] = ns.clone()
	}
	return out
}

func (ns *NS) clone() *NS {
	out := NewNS(ns.Name)
	for ifname, lm := range ns.Links {
		clone := *lm
		out.Links[ifname] = &clone
	}
	for k, v := range ns.Addrs {
		out.Addrs[k] = v
	}
	for k, v := range ns.Routes {
		tbl := make(map[RouteKey]Route, len(v))
		for rk, r := range v {
			tbl[rk] = r
		}
		out.Routes[k] = tbl
	}
	for k, v := range ns.Rules {
		out.Rules[k] = v
	}
	for k, v := range ns.FDB {
		out.FDB[k] = v
	}
	for k, v := range ns.Neigh {
		out.Neigh[k] = v
	}
	for k, v := range ns.TC {
		out.TC[k] = v
	}
	for k, v := range ns.Sysctl {
		out.Sysctl[k] = v
	}
	for k, v := range ns.WG {
		out.WG[k] = v
	}
	for k, v := range ns.XDP {
		out.XDP[k] = v
	}
	for k, v := range ns.GlobalSysctl {
		out.GlobalSysctl[k] = v
	}
	return out
}

// SortedNSNames returns the plan's namespace names with the root namespace
// first and the rest sorted lexicographically, matching LinkRef's total
// order (§3 "Total order: root namespace first...").
func (p *Plan) SortedNSNames() []string {
	names := make([]string, 0, len(p.NS))
	for name := range p.NS {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return LinkRefLess(LinkRef{NS: names[i]}, LinkRef{NS: names[j]})
	})
	return names
}
