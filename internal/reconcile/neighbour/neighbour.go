// Package neighbour implements the neighbour-table reconciler from
// spec.md §4.4: only NUD_PERMANENT entries are considered.
package neighbour

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

type Options struct {
	Family int
	DryRun bool
}

// Reconcile diffs desired neighbour entries against the kernel's live
// permanent neighbours on link (§4.4 Neighbours).
func Reconcile(nc *nsctx.NamespaceContext, link netlink.Link, desired map[model.NeighKey]model.Neighbour, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := nc.EnumerateNeighbours(link.Attrs().Index, opts.Family, nsctx.NudPermanent)
	if err != nil {
		return fmt.Errorf("enumerating neighbours on %s: %w", link.Attrs().Name, err)
	}

	liveByKey := make(map[model.NeighKey]netlink.Neigh, len(live))
	for _, n := range live {
		ip := ""
		if n.IP != nil {
			ip = n.IP.String()
		}
		liveByKey[model.NeighKey{IfName: link.Attrs().Name, IP: ip}] = n
	}

	for key, want := range desired {
		if live, ok := liveByKey[key]; ok && live.HardwareAddr.String() == want.LLAddr.String() {
			rep.Line(report.OK, "neighbour", "ip", key.IP)
			delete(liveByKey, key)
			continue
		}
		rep.Line(report.Add, "neighbour", "ip", key.IP)
		delete(liveByKey, key)
		if opts.DryRun {
			continue
		}
		n := &netlink.Neigh{
			LinkIndex:    link.Attrs().Index,
			Family:       opts.Family,
			IP:           net.ParseIP(key.IP),
			HardwareAddr: want.LLAddr,
		}
		if err := nc.NeighReplace(n); err != nil {
			coll.Add("neigh_replace", err, map[string]any{"ip": key.IP})
			rep.Line(report.Warn, "neighbour", "ip", key.IP, "error", err.Error())
		}
	}

	for key, n := range liveByKey {
		rep.Line(report.Del, "neighbour", "ip", key.IP)
		if opts.DryRun {
			continue
		}
		entry := n
		if err := nc.NeighDel(&entry); err != nil {
			coll.Add("neigh_del", err, map[string]any{"ip": key.IP})
			rep.Line(report.Warn, "neighbour", "ip", key.IP, "error", err.Error())
		}
	}

	return nil
}
