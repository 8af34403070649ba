// Package fdb implements the forwarding-database reconciler from
// spec.md §4.4: permanent/static entries only, default port 8472, vxlan
// links default to NUD_NOARP state.
package fdb

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// DefaultPort is the vxlan UDP port used when the fdb entry omits one
// (§4.4 FDB: "Default port is 8472 when omitted").
const DefaultPort = 8472

type Options struct {
	IsVxlan bool
	DryRun  bool
}

// Reconcile diffs desired FDB entries against the live entries on link
// (§4.4 FDB, §8 scenario S3).
func Reconcile(nc *nsctx.NamespaceContext, link netlink.Link, desired map[model.FDBKey]model.FDBEntry, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := nc.EnumerateFDB(link.Attrs().Index)
	if err != nil {
		return fmt.Errorf("enumerating fdb on %s: %w", link.Attrs().Name, err)
	}

	state := nsctx.NudPermanent
	if opts.IsVxlan {
		state |= nsctx.NudNoArp
	}
	liveByKey := make(map[model.FDBKey]netlink.Neigh, len(live))
	for _, n := range live {
		if n.State&(nsctx.NudNoArp|nsctx.NudPermanent) == 0 {
			continue
		}
		dst := ""
		if n.IP != nil {
			dst = n.IP.String()
		}
		liveByKey[model.FDBKey{IfName: link.Attrs().Name, Mac: n.HardwareAddr.String(), Dst: dst}] = n
	}

	ownAddr := link.Attrs().HardwareAddr.String()

	for key, want := range desired {
		if _, ok := liveByKey[key]; ok {
			rep.Line(report.OK, "fdb", "mac", key.Mac, "dst", key.Dst)
			delete(liveByKey, key)
			continue
		}
		rep.Line(report.Add, "fdb", "mac", key.Mac, "dst", key.Dst)
		if opts.DryRun {
			continue
		}
		port := want.Port
		if port == 0 {
			port = DefaultPort
		}
		flags := want.Flags
		if flags == 0 {
			flags = nsctx.NtfSelf
		}
		mac, _ := net.ParseMAC(key.Mac)
		n := &netlink.Neigh{
			LinkIndex:    link.Attrs().Index,
			Family:       netlink.FAMILY_BRIDGE,
			HardwareAddr: mac,
			IP:           net.ParseIP(key.Dst),
			State:        state,
			Flags:        flags,
			Port:         port,
		}
		if err := nc.FdbAppend(n); err != nil {
			coll.Add("fdb_append", err, map[string]any{"mac": key.Mac})
			rep.Line(report.Warn, "fdb", "mac", key.Mac, "error", err.Error())
		}
	}

	for key, n := range liveByKey {
		if key.Mac == ownAddr {
			continue // never delete the link's own entry
		}
		rep.Line(report.Del, "fdb", "mac", key.Mac, "dst", key.Dst)
		if opts.DryRun {
			continue
		}
		entry := n
		if err := nc.FdbDel(&entry); err != nil {
			coll.Add("fdb_del", err, map[string]any{"mac": key.Mac})
			rep.Line(report.Warn, "fdb", "mac", key.Mac, "error", err.Error())
		}
	}

	return nil
}
