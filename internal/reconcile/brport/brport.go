// Package brport implements the bridge-port reconciler from spec.md
// §3/§4.4: bridge-port protinfo knobs (IFLA_BRPORT_*) attached to a link
// that is a bridge member.
//
// Per the design decision in internal/nsctx/links.go, this reconciler
// calls the namespace's vishvananda/netlink handle directly with its
// typed per-knob setters rather than going through a generic
// configurator closure.
package brport

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

type Options struct {
	DryRun bool
}

// knobSetter applies one bool-valued brport knob.
type knobSetter func(h *netlink.Handle, link netlink.Link, v bool) error

var boolKnobs = map[string]knobSetter{
	"hairpin":    (*netlink.Handle).LinkSetHairpin,
	"guard":      (*netlink.Handle).LinkSetGuard,
	"fastleave":  (*netlink.Handle).LinkSetFastLeave,
	"learning":   (*netlink.Handle).LinkSetLearning,
	"root_block": (*netlink.Handle).LinkSetRootBlock,
	"flood":      (*netlink.Handle).LinkSetFlood,
	"proxy_arp":  (*netlink.Handle).LinkSetBrProxyArp,
}

// Reconcile applies the bool-valued brport knobs in desired to link
// (§3 "brport knobs", §4.4 general contract). Non-bool knobs (e.g.
// "backup_port", consumed instead by internal/graph for dependency
// edges) are ignored here.
func Reconcile(nc *nsctx.NamespaceContext, link netlink.Link, desired model.BrportSettings, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	for name, setter := range boolKnobs {
		raw, ok := desired[name]
		if !ok {
			continue
		}
		want, ok := raw.(bool)
		if !ok {
			continue
		}
		rep.Line(report.OK, "brport", "knob", name, "value", want)
		if opts.DryRun {
			continue
		}
		if err := setter(nc.Handle(), link, want); err != nil {
			coll.Add("brport_set", fmt.Errorf("setting brport %s=%v on %s: %w", name, want, link.Attrs().Name, err), map[string]any{"knob": name})
			rep.Line(report.Warn, "brport", "knob", name, "error", err.Error())
		}
	}
	return nil
}
