// Package address implements the address reconciler from spec.md §4.4:
// diff the configured address set against the kernel's live addresses on
// a link and apply the difference.
package address

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// IfaceAddrFlagPermanent mirrors IFA_F_PERMANENT, used to optionally
// restrict deletion to addresses the kernel marked permanent (§4.4
// "config knob ipaddr_dynamic").
const IfaceAddrFlagPermanent = 0x80

// Options configures behavior the general contract in §4.4 leaves to
// configuration:
//
//	IgnoreNetworks: live addresses inside any of these networks are never
//	deleted, even if absent from the desired set.
//	DynamicOnly: when true, only delete live addresses carrying the
//	PERMANENT flag (config knob ipaddr_dynamic).
type Options struct {
	IgnoreNetworks []*net.IPNet
	DynamicOnly    bool
	DryRun         bool
}

// Reconcile diffs desired (keyed by AddrKey) against the kernel's live
// addresses on link and applies add/delete operations (§4.4 Addresses).
func Reconcile(nc *nsctx.NamespaceContext, link netlink.Link, ifindex int, desired map[model.AddrKey]model.Address, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := nc.EnumerateAddresses(ifindex)
	if err != nil {
		return fmt.Errorf("enumerating addresses: %w", err)
	}

	liveByKey := make(map[model.AddrKey]netlink.Addr, len(live))
	for _, a := range live {
		if a.IPNet == nil {
			continue
		}
		ones, _ := a.IPNet.Mask.Size()
		liveByKey[model.AddrKey{IfName: link.Attrs().Name, IP: a.IPNet.IP.String(), Prefix: ones}] = a
	}

	for key := range desired {
		if _, ok := liveByKey[key]; ok {
			rep.Line(report.OK, "address", "addr", key.IP, "prefix", key.Prefix)
			continue
		}
		rep.Line(report.Add, "address", "addr", key.IP, "prefix", key.Prefix)
		if opts.DryRun {
			continue
		}
		ipnet := &net.IPNet{IP: net.ParseIP(key.IP), Mask: net.CIDRMask(key.Prefix, addrBits(key.IP))}
		if err := nc.AddrAdd(link, &netlink.Addr{IPNet: ipnet}); err != nil {
			coll.Add("addr_add", err, map[string]any{"addr": key.IP, "prefix": key.Prefix})
			rep.Line(report.Warn, "address", "addr", key.IP, "error", err.Error())
		}
	}

	for key, a := range liveByKey {
		if _, wanted := desired[key]; wanted {
			continue
		}
		if ignoredNetwork(a.IPNet, opts.IgnoreNetworks) {
			continue
		}
		if opts.DynamicOnly && a.Flags&IfaceAddrFlagPermanent == 0 {
			continue
		}
		rep.Line(report.Del, "address", "addr", key.IP, "prefix", key.Prefix)
		if opts.DryRun {
			continue
		}
		addr := a
		if err := nc.AddrDel(link, &addr); err != nil {
			coll.Add("addr_del", err, map[string]any{"addr": key.IP, "prefix": key.Prefix})
			rep.Line(report.Warn, "address", "addr", key.IP, "error", err.Error())
		}
	}

	return nil
}

func addrBits(ip string) int {
	if net.ParseIP(ip).To4() != nil {
		return 32
	}
	return 128
}

func ignoredNetwork(addr *net.IPNet, ignore []*net.IPNet) bool {
	if addr == nil {
		return false
	}
	for _, n := range ignore {
		if n.Contains(addr.IP) {
			return true
		}
	}
	return false
}
