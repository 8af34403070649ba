// Package tc implements the traffic-control reconciler from spec.md §4.4:
// a qdisc tree per link, installed at parents computed from child slot
// position, plus a standalone ingress slot and the filters attached at
// each node.
package tc

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// ResolveMirred resolves a mirred action's Dev ifname to an ifindex,
// honoring DevNS (§4.4 "A mirred action's dev is resolved to an ifindex
// at apply time; unresolved references skip the filter with a warning").
type ResolveMirred func(ifname, ns string) (ifindex int, ok bool)

type Options struct {
	DryRun  bool
	Resolve ResolveMirred
}

// Reconcile applies the desired tc configuration for one link (§4.4
// Traffic control).
func Reconcile(nc *nsctx.NamespaceContext, link netlink.Link, cfg model.TCConfig, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	ifindex := link.Attrs().Index

	live, err := nc.EnumerateQdiscs(ifindex)
	if err != nil {
		return fmt.Errorf("enumerating qdiscs on %s: %w", link.Attrs().Name, err)
	}
	liveByHandle := make(map[uint32]netlink.Qdisc, len(live))
	for _, q := range live {
		liveByHandle[q.Attrs().Handle] = q
	}

	if cfg.Root != nil {
		if err := reconcileQdiscNode(nc, link, cfg.Root, model.TCHandleRoot, liveByHandle, opts, rep, coll); err != nil {
			return err
		}
	}

	if cfg.Ingress {
		ingress, ok := liveByHandle[model.TCHandleIngress]
		if !ok {
			rep.Line(report.Add, "tc", "handle", "ingress")
			if !opts.DryRun {
				q := &netlink.Ingress{QdiscAttrs: netlink.QdiscAttrs{LinkIndex: ifindex, Handle: model.TCHandleIngress, Parent: netlink.HANDLE_INGRESS}}
				if err := nc.QdiscAdd(q); err != nil {
					coll.Add("qdisc_add", err, map[string]any{"handle": "ingress"})
					rep.Line(report.Warn, "tc", "handle", "ingress", "error", err.Error())
				}
			}
		} else {
			rep.Line(report.OK, "tc", "handle", "ingress")
			_ = ingress
		}
	} else if ingress, ok := liveByHandle[model.TCHandleIngress]; ok {
		rep.Line(report.Del, "tc", "handle", "ingress")
		if !opts.DryRun {
			if err := nc.QdiscDel(ingress); err != nil {
				// Removing the default qdisc may ENOENT; not an error (§4.4).
				coll.Add("qdisc_del", err, map[string]any{"handle": "ingress"})
			}
		}
	}

	return nil
}

func reconcileQdiscNode(nc *nsctx.NamespaceContext, link netlink.Link, node *model.TCQdisc, parent uint32, liveByHandle map[uint32]netlink.Qdisc, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, exists := liveByHandle[node.Handle]

	switch {
	case !exists:
		rep.Line(report.Add, "tc", "kind", node.Kind, "handle", fmt.Sprintf("%x", node.Handle))
		if !opts.DryRun {
			q := &netlink.GenericQdisc{
				QdiscAttrs: netlink.QdiscAttrs{LinkIndex: link.Attrs().Index, Handle: node.Handle, Parent: parent},
				QdiscType:  node.Kind,
			}
			if err := nc.QdiscAdd(q); err != nil {
				coll.Add("qdisc_add", err, map[string]any{"kind": node.Kind})
				rep.Line(report.Warn, "tc", "kind", node.Kind, "error", err.Error())
			}
		}
	case live.Type() != node.Kind || live.Attrs().Handle != node.Handle:
		// Kind or handle differs: recreate (§4.4 "Change detection
		// recreates a qdisc if kind or handle differs").
		rep.Line(report.Change, "tc", "kind", node.Kind, "handle", fmt.Sprintf("%x", node.Handle))
		if !opts.DryRun {
			if err := nc.QdiscDel(live); err != nil {
				coll.Add("qdisc_del", err, map[string]any{"kind": live.Type()})
			}
			q := &netlink.GenericQdisc{
				QdiscAttrs: netlink.QdiscAttrs{LinkIndex: link.Attrs().Index, Handle: node.Handle, Parent: parent},
				QdiscType:  node.Kind,
			}
			if err := nc.QdiscAdd(q); err != nil {
				coll.Add("qdisc_add", err, map[string]any{"kind": node.Kind})
			}
		}
	default:
		// Otherwise issue only a soft change (§4.4 "and otherwise issues
		// a soft change").
		rep.Line(report.OK, "tc", "kind", node.Kind, "handle", fmt.Sprintf("%x", node.Handle))
		if !opts.DryRun {
			q := &netlink.GenericQdisc{
				QdiscAttrs: netlink.QdiscAttrs{LinkIndex: link.Attrs().Index, Handle: node.Handle, Parent: parent},
				QdiscType:  node.Kind,
			}
			if err := nc.QdiscChange(q); err != nil {
				coll.Add("qdisc_change", err, map[string]any{"kind": node.Kind})
			}
		}
	}

	if err := reconcileFilters(nc, link, node.Handle, node.Filters, opts, rep, coll); err != nil {
		return err
	}

	for i, child := range node.Children {
		childParent := node.Handle | uint32(i+1)
		if err := reconcileQdiscNode(nc, link, child, childParent, liveByHandle, opts, rep, coll); err != nil {
			return err
		}
	}
	return nil
}

func reconcileFilters(nc *nsctx.NamespaceContext, link netlink.Link, parent uint32, desired []model.TCFilter, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := nc.EnumerateFilters(link.Attrs().Index, parent)
	if err != nil {
		return fmt.Errorf("enumerating filters on %s parent 0x%x: %w", link.Attrs().Name, parent, err)
	}
	liveByPrio := make(map[int]netlink.Filter, len(live))
	for _, f := range live {
		liveByPrio[f.Attrs().Priority] = f
	}

	n := len(desired)
	for i, f := range desired {
		prio := f.Prio
		if prio == 0 {
			prio = model.TCFilterPrioBase - n + i
		}
		rep.Line(report.OK, "tc_filter", "kind", f.Kind, "prio", prio)
		delete(liveByPrio, prio)
		if opts.DryRun {
			continue
		}

		skip := false
		for _, act := range f.Actions {
			if act.Kind == "mirred" && act.Dev != "" && opts.Resolve != nil {
				if _, ok := opts.Resolve(act.Dev, act.DevNS); !ok {
					rep.Line(report.Warn, "tc_filter", "kind", f.Kind, "prio", prio, "error", "mirred dev does not resolve")
					skip = true
				}
			}
		}
		if skip {
			continue
		}

		filter := &netlink.U32{
			FilterAttrs: netlink.FilterAttrs{
				LinkIndex: link.Attrs().Index,
				Parent:    parent,
				Priority:  uint16(prio),
				Protocol:  protoNumber(f.Proto),
			},
		}
		if err := nc.FilterReplace(filter); err != nil {
			coll.Add("filter_replace", err, map[string]any{"kind": f.Kind, "prio": prio})
			rep.Line(report.Warn, "tc_filter", "kind", f.Kind, "prio", prio, "error", err.Error())
		}
	}

	for prio, f := range liveByPrio {
		rep.Line(report.Del, "tc_filter", "prio", prio)
		if opts.DryRun {
			continue
		}
		if err := nc.FilterDel(f); err != nil {
			coll.Add("filter_del", err, map[string]any{"prio": prio})
		}
	}
	return nil
}

func protoNumber(name string) uint16 {
	switch name {
	case "ip", "":
		return 0x0800
	case "ipv6":
		return 0x86DD
	case "all":
		return 0x0003
	default:
		return 0x0800
	}
}
