// Package route implements the route reconciler from spec.md §4.4:
// routes are grouped per table, matched first by (dst, priority, proto),
// then compared on the rest of their attributes.
package route

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// DefaultPriorityV4, DefaultPriorityV6 are the defaults applied at load
// time when priority is absent (§4.4 Routes, §8 property 5).
const (
	DefaultPriorityV4 = 0
	DefaultPriorityV6 = 1024
)

// ignoreProtos are kernel-managed route protocols never touched by the
// reconciler (§8 property 14).
var ignoreProtos = map[int]bool{
	1: true, 2: true,
	8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true,
	18: true, 42: true,
	186: true, 187: true, 188: true, 189: true,
	192: true,
}

var ignoredPrefix = func() *net.IPNet {
	_, n, _ := net.ParseCIDR("ff00::/8")
	return n
}()

// ResolveOIF resolves an oif ifname to an ifindex, honoring <attr>_netns
// via the registry (injected by the engine). It returns ok=false when the
// oif does not resolve (§4.4 "An oif that does not resolve...").
type ResolveOIF func(ifname, ns string) (ifindex int, ok bool)

// Options carries the per-table reconciliation knobs not represented in
// the Route value itself.
type Options struct {
	Table    int
	Family   int
	DryRun   bool
	Resolve  ResolveOIF
}

// Reconcile diffs desired routes in one table against the kernel's live
// routes in that table and applies the difference (§4.4 Routes). Table
// model.LocalTable (255) is always a no-op per "The live kernel's local
// table is never touched".
func Reconcile(nc *nsctx.NamespaceContext, desired map[model.RouteKey]model.Route, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	if opts.Table == model.LocalTable {
		return nil
	}

	live, err := nc.EnumerateRoutes(opts.Family)
	if err != nil {
		return fmt.Errorf("enumerating routes: %w", err)
	}

	liveByKey := make(map[model.RouteKey]netlink.Route)
	for _, r := range live {
		if r.Table != opts.Table {
			continue
		}
		if ignoreProtos[int(r.Protocol)] {
			continue
		}
		if r.Dst != nil && ignoredPrefix.Contains(r.Dst.IP) {
			continue
		}
		key := routeKey(r)
		liveByKey[key] = r
	}

	for key, want := range desired {
		live, exists := liveByKey[key]
		if exists && sameRoute(live, want) {
			rep.Line(report.OK, "route", "dst", key.Dst, "table", opts.Table)
			delete(liveByKey, key)
			continue
		}

		want2 := want
		if opts.Resolve != nil && want.OIF != "" {
			if _, ok := opts.Resolve(want.OIF, want.OIFNS); !ok {
				if want.Gateway != nil {
					want2.State = model.StateDown
				} else {
					rep.Line(report.Warn, "route", "dst", key.Dst, "error", "oif does not resolve")
					continue
				}
			}
		}
		nr := toNetlinkRoute(key, want2, opts)

		if exists {
			rep.Line(report.Change, "route", "dst", key.Dst, "table", opts.Table)
			if !opts.DryRun {
				if err := nc.RouteReplace(nr); err != nil {
					coll.Add("route_replace", err, map[string]any{"dst": key.Dst})
					rep.Line(report.Warn, "route", "dst", key.Dst, "error", err.Error())
				}
			}
		} else {
			rep.Line(report.Add, "route", "dst", key.Dst, "table", opts.Table)
			if !opts.DryRun {
				if err := nc.RouteAdd(nr); err != nil {
					coll.Add("route_add", err, map[string]any{"dst": key.Dst})
					rep.Line(report.Warn, "route", "dst", key.Dst, "error", err.Error())
				}
			}
		}
		delete(liveByKey, key)
	}

	for key, r := range liveByKey {
		rep.Line(report.Del, "route", "dst", key.Dst, "table", opts.Table)
		if opts.DryRun {
			continue
		}
		rr := r
		if err := nc.RouteDel(&rr); err != nil {
			coll.Add("route_del", err, map[string]any{"dst": key.Dst})
			rep.Line(report.Warn, "route", "dst", key.Dst, "error", err.Error())
		}
	}

	return nil
}

func routeKey(r netlink.Route) model.RouteKey {
	dst := ""
	if r.Dst != nil {
		dst = r.Dst.String()
	}
	return model.RouteKey{Dst: dst, Priority: r.Priority, Table: r.Table, Tos: r.Tos, Proto: int(r.Protocol)}
}

func sameRoute(live netlink.Route, want model.Route) bool {
	if want.Gateway != nil && !want.Gateway.Equal(live.Gw) {
		return false
	}
	if want.PrefSrc != nil && !want.PrefSrc.Equal(live.Src) {
		return false
	}
	if want.Scope != 0 && int(live.Scope) != want.Scope {
		return false
	}
	if want.Type != 0 && live.Type != want.Type {
		return false
	}
	return true
}

// toNetlinkRoute builds the netlink.Route value for key/want, emitting an
// RTA_VIA nexthop when want.Via's family differs from dst's family (§4.4
// "if the family differs from dst, emit an RTA_VIA family-qualified
// nexthop", §8 property 6).
func toNetlinkRoute(key model.RouteKey, want model.Route, opts Options) *netlink.Route {
	r := &netlink.Route{
		Table:    opts.Table,
		Priority: key.Priority,
		Tos:      key.Tos,
		Protocol: netlink.RouteProtocol(key.Proto),
		Gw:       want.Gateway,
		Src:      want.PrefSrc,
		Scope:    netlink.Scope(want.Scope),
		Type:     want.Type,
	}
	if key.Dst != "" {
		_, dst, err := net.ParseCIDR(key.Dst)
		if err == nil {
			r.Dst = dst
		}
	}
	if want.Via != nil && want.ViaFamily != 0 {
		r.Via = &netlink.Via{AddrFamily: want.ViaFamily, Addr: want.Via}
	}
	if want.State == model.StateDown {
		r.Flags = int(unix.RTNH_F_LINKDOWN)
	}
	return r
}

// ViaFamilyFor returns the family to tag a Via nexthop with, or 0 when
// via's family matches dst's and no RTA_VIA is needed (§4.4, §8 property
// 6). Called at load time by the config layer.
func ViaFamilyFor(dst, via net.IP) int {
	dstV4, viaV4 := dst.To4() != nil, via.To4() != nil
	if dstV4 == viaV4 {
		return 0
	}
	if viaV4 {
		return unix.AF_INET
	}
	return unix.AF_INET6
}
