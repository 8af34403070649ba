// Package engine implements C6, the Engine: orchestration of C1-C5,
// check-vs-apply mode, VRRP selection, and the orphan sweep (spec.md
// §4.6).
package engine

import (
	"fmt"
	"net"
	"time"

	"github.com/vishvananda/netlink"
	"golang.org/x/time/rate"
	"golang.zx2c4.com/wireguard/wgctrl"

	"github.com/liske/ifstated/internal/defaults"
	"github.com/liske/ifstated/internal/graph"
	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/reconcile/address"
	"github.com/liske/ifstated/internal/reconcile/brport"
	"github.com/liske/ifstated/internal/reconcile/ethtool"
	"github.com/liske/ifstated/internal/reconcile/fdb"
	"github.com/liske/ifstated/internal/reconcile/neighbour"
	"github.com/liske/ifstated/internal/reconcile/route"
	"github.com/liske/ifstated/internal/reconcile/rule"
	"github.com/liske/ifstated/internal/reconcile/sysctl"
	"github.com/liske/ifstated/internal/reconcile/tc"
	"github.com/liske/ifstated/internal/reconcile/wireguard"
	"github.com/liske/ifstated/internal/reconcile/xdp"
	"github.com/liske/ifstated/internal/registry"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// Mode is check vs apply (§4.6 "mode ∈ {check, apply}").
type Mode int

const (
	Check Mode = iota
	Apply
)

// VrrpSelector is the "by_vrrp" tuple (§4.6 "optional VRRP tuple
// (type, name, state), all three set together").
type VrrpSelector struct {
	Type  model.VrrpType
	Name  string
	State model.VrrpState
}

// IgnoreMatcher decides whether an orphan's ifname should be left alone
// during the sweep (§4.6 step 3 "if its ifname matches no ignore-regex").
type IgnoreMatcher func(ifname string) bool

// Engine bundles the per-namespace runtime (NamespaceContext) and the
// cross-cutting collaborators the reconciliation pass needs. The plan
// (pure data) is passed into Reconcile rather than stored here, so VRRP
// mode can clone and mutate a plan copy without touching the engine's
// runtime handles (§9 "Deep-copy of the plan for VRRP").
type Engine struct {
	Contexts map[string]*nsctx.NamespaceContext
	Registry *registry.Registry
	Matcher  *defaults.Matcher
	RTTables *model.RTTables
	Report   *report.Reporter
	WG       *wgctrl.Client
	Ignore   IgnoreMatcher

	// AddrIgnore lists networks whose live addresses are never deleted
	// even when absent from the desired set (§4.4 Addresses "ignore
	// network set"). Set by the caller after New; nil means none.
	AddrIgnore []*net.IPNet

	// DynamicOnly restricts address deletion to PERMANENT-flagged live
	// addresses (§4.4 Addresses, config knob "ipaddr_dynamic").
	DynamicOnly bool

	// recreateLimiters bounds how often a given link may go through the
	// retry-then-recreate path (§4.8/§7): a link whose settings never
	// settle (e.g. a kernel rejecting every update with EEXIST) would
	// otherwise be deleted and rebuilt on every single pass.
	recreateLimiters map[model.LinkRef]*rate.Limiter
}

// New returns an Engine. contexts must contain at least the root
// namespace; the caller owns their lifecycle (nsctx.Open/Close).
func New(contexts map[string]*nsctx.NamespaceContext, matcher *defaults.Matcher, rt *model.RTTables, rep *report.Reporter, wg *wgctrl.Client) *Engine {
	return &Engine{
		Contexts:         contexts,
		Registry:         registry.New(),
		Matcher:          matcher,
		RTTables:         rt,
		Report:           rep,
		WG:               wg,
		Ignore:           func(string) bool { return false },
		recreateLimiters: make(map[model.LinkRef]*rate.Limiter),
	}
}

// recreateLimiter returns the rate limiter bounding recreate attempts for
// ref, creating one (at most one recreate per 30s, per link) on first use.
func (e *Engine) recreateLimiter(ref model.LinkRef) *rate.Limiter {
	if l, ok := e.recreateLimiters[ref]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(30*time.Second), 1)
	e.recreateLimiters[ref] = l
	return l
}

// Reconcile runs one full pass per §4.6's order of operations. When vrrp
// is non-nil, namespace preparation and the orphan sweep are skipped
// (§4.6 steps 1 and 3: "Not performed in VRRP mode").
func (e *Engine) Reconcile(plan *model.Plan, mode Mode, vrrp *VrrpSelector) error {
	dryRun := mode == Check

	if err := e.Registry.Enumerate(e.Contexts); err != nil {
		return fmt.Errorf("enumerating live link inventory: %w", err)
	}

	if vrrp == nil {
		if err := e.prepareNamespaces(plan, dryRun); err != nil {
			return err
		}
		e.orphanSweep(plan, dryRun)
	}

	e.applyDefaults(plan)

	g := graph.BuildFromPlan(plan)
	stages, cycleErr := g.Stages()
	if cycleErr != nil {
		if mode == Apply {
			return fmt.Errorf("link dependency graph: %w", cycleErr)
		}
		// Lenient (check) mode: log and use the partial stages (§4.5, §8
		// property 8).
		e.Report.Line(report.Warn, "graph", "error", cycleErr.Error())
	}

	e.loadBPF(plan, dryRun)
	e.reconcileGlobalSysctl(plan, dryRun)

	for _, stage := range stages {
		for _, ref := range stage {
			ns, ok := plan.NS[ref.NS]
			if !ok {
				continue
			}
			lm, ok := ns.Links[ref.IfName]
			if !ok {
				continue
			}
			if !vrrpApplies(lm, vrrp) {
				continue
			}
			e.reconcileOneLink(ns, lm, vrrp, dryRun)
		}
	}

	for _, nsName := range plan.SortedNSNames() {
		e.reconcileRouting(plan.NS[nsName], nsName, vrrp, dryRun)
	}

	return nil
}

// vrrpApplies implements §4.6 step 5's skip rule: outside VRRP mode a
// tagged link is skipped; in VRRP mode an untagged link is skipped (§8
// property 12) and a tagged link is driven only when its (type, name)
// matches the selector.
func vrrpApplies(lm *model.LinkModel, vrrp *VrrpSelector) bool {
	if vrrp == nil {
		return lm.Vrrp == nil
	}
	return lm.Vrrp.Matches(vrrp.Type, vrrp.Name)
}

func (e *Engine) prepareNamespaces(plan *model.Plan, dryRun bool) error {
	if plan.Namespaces == nil {
		return nil // §9 open question: extra kernel namespaces are left untouched
	}
	for _, name := range plan.Namespaces {
		if _, ok := e.Contexts[name]; ok {
			continue
		}
		e.Report.Line(report.Add, "namespace", "name", name)
		if dryRun {
			continue
		}
		nc, err := nsctx.Open(name)
		if err != nil {
			return fmt.Errorf("preparing namespace %s: %w", name, err)
		}
		e.Contexts[name] = nc
	}
	return nil
}

func (e *Engine) orphanSweep(plan *model.Plan, dryRun bool) {
	managesNamespaces := plan.Namespaces != nil
	for _, item := range e.Registry.Orphans() {
		if e.Ignore(item.IfName) {
			continue
		}
		if !managesNamespaces && item.NS != model.RootNS {
			continue
		}
		nc, ok := e.Contexts[item.NS]
		if !ok {
			continue
		}
		e.Report.Line(report.Del, "orphan", "iface", item.IfName, "netns", item.NS)
		if err := e.Registry.FreeItem(nc, item, dryRun); err != nil {
			e.Report.Line(report.Warn, "orphan", "iface", item.IfName, "error", err.Error())
		}
	}
}

func (e *Engine) loadBPF(plan *model.Plan, dryRun bool) {
	for _, nsName := range plan.SortedNSNames() {
		ns := plan.NS[nsName]
		for ifname, prog := range ns.XDP {
			item := e.Registry.GetLinkOne(model.LinkFilter{IfName: ifname, NS: nsName, NSSet: true})
			rep := e.Report.For(ifname, nsName)
			if item == nil {
				rep.Line(report.Warn, "xdp", "error", "link not present")
				continue
			}
			coll := xcpt.New(false)
			if err := xdp.Reconcile(item.Index, prog, xdp.Options{DryRun: dryRun}, rep, coll); err != nil {
				rep.Line(report.Warn, "xdp", "error", err.Error())
			}
		}
	}
}

// applyDefaults merges the first matching default profile into every
// configured link before the graph sees it (§4.7 get_defaults, "merged
// into the model" before diffing). The built-in orphan profile is never
// consulted here — it applies only to unmatched registry items, which
// orphanSweep/free_item already handles directly.
func (e *Engine) applyDefaults(plan *model.Plan) {
	if e.Matcher == nil {
		return
	}
	for _, ns := range plan.NS {
		for _, lm := range ns.Links {
			p := e.Matcher.GetDefaults(defaults.Query{IfName: lm.IfName, Kind: lm.Kind})
			defaults.Apply(lm, p)
		}
	}
}

func (e *Engine) reconcileGlobalSysctl(plan *model.Plan, dryRun bool) {
	for _, nsName := range plan.SortedNSNames() {
		ns := plan.NS[nsName]
		nc, ok := e.Contexts[nsName]
		if !ok || len(ns.GlobalSysctl) == 0 {
			continue
		}
		rep := e.Report.For("", nsName)
		coll := xcpt.New(false)
		if err := sysctl.ReconcileGlobal(nc, ns.GlobalSysctl, sysctl.Options{DryRun: dryRun}, rep, coll); err != nil {
			rep.Line(report.Warn, "sysctl_global", "error", err.Error())
		}
	}
}

// reconcileOneLink resolves or creates lm's live link, then drives every
// per-interface reconciler named in §4.4, in the order the reconciliation
// loop visits them: sysctl, ethtool, brport, tc, addresses, fdb,
// neighbours, wireguard. When the exception collector signals a retry
// condition afterwards (§4.8/§7 EEXIST-triggered retry-then-recreate), the
// link is deleted and rebuilt once.
func (e *Engine) reconcileOneLink(ns *model.NS, lm *model.LinkModel, vrrp *VrrpSelector, dryRun bool) {
	rep := e.Report.For(lm.IfName, lm.NS)
	coll := xcpt.New(false)
	nc, ok := e.Contexts[lm.NS]
	if !ok {
		rep.Line(report.Warn, "link", "error", "namespace not prepared")
		return
	}

	state := lm.State
	if vrrp != nil && lm.Vrrp.Matches(vrrp.Type, vrrp.Name) && !lm.Vrrp.HasState(vrrp.State) {
		// Tag matches but the reported state isn't in the accepted set:
		// force the link down, every other setting is still reconciled
		// (§4.6 step 5, §8 property 11).
		state = model.StateDown
	}

	link, err := e.resolveOrCreate(nc, lm, state, dryRun, rep, coll)
	if err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
		return
	}
	if link == nil {
		return // physical link not present yet, or created during a dry run
	}

	if sysSet, ok := collectLinkSysctl(ns, lm.IfName); ok {
		if err := sysctl.ReconcileLink(nc, lm.IfName, sysSet, sysctl.Options{DryRun: dryRun}, rep, coll); err != nil {
			rep.Line(report.Warn, "sysctl", "error", err.Error())
		}
	}

	kcap := capabilityFor(lm.Kind)
	if kcap.CanEthtool && lm.Ethtool != nil {
		key := ethtool.IdentityKey(hwString(lm.PermAddr), lm.BusInfo, link.Attrs().Index)
		if err := nc.EnterScoped(func() error {
			return ethtool.Reconcile(lm.IfName, key, lm.Ethtool, ethtool.Options{DryRun: dryRun}, rep, coll)
		}); err != nil {
			rep.Line(report.Warn, "ethtool", "error", err.Error())
		}
	}

	if lm.Brport != nil {
		if err := brport.Reconcile(nc, link, lm.Brport, brport.Options{DryRun: dryRun}, rep, coll); err != nil {
			rep.Line(report.Warn, "brport", "error", err.Error())
		}
	}

	if tcCfg, ok := ns.TC[model.TCKey{IfName: lm.IfName, Subsystem: "qdisc"}]; ok && !lm.ClearTC {
		if err := tc.Reconcile(nc, link, tcCfg, tc.Options{DryRun: dryRun, Resolve: e.resolveIfname(lm.NS)}, rep, coll); err != nil {
			rep.Line(report.Warn, "tc", "error", err.Error())
		}
	}

	if addrs, ok := ns.Addrs[lm.IfName]; ok && !lm.ClearAddresses {
		addrOpts := address.Options{IgnoreNetworks: e.AddrIgnore, DynamicOnly: e.DynamicOnly, DryRun: dryRun}
		if err := address.Reconcile(nc, link, link.Attrs().Index, addrs, addrOpts, rep, coll); err != nil {
			rep.Line(report.Warn, "address", "error", err.Error())
		}
	}

	if !lm.ClearFDB {
		wanted := collectFDB(ns, lm.IfName)
		if len(wanted) > 0 || lm.Kind == model.KindVxlan {
			if err := fdb.Reconcile(nc, link, wanted, fdb.Options{IsVxlan: lm.Kind == model.KindVxlan, DryRun: dryRun}, rep, coll); err != nil {
				rep.Line(report.Warn, "fdb", "error", err.Error())
			}
		}
	}

	if !lm.ClearNeighbours {
		wanted := collectNeigh(ns, lm.IfName)
		if len(wanted) > 0 {
			if err := neighbour.Reconcile(nc, link, wanted, neighbour.Options{Family: 0, DryRun: dryRun}, rep, coll); err != nil {
				rep.Line(report.Warn, "neighbour", "error", err.Error())
			}
		}
	}

	if lm.WireGuard != nil && e.WG != nil {
		if err := wireguard.Reconcile(e.WG, lm.IfName, lm.WireGuard, wireguard.Options{DryRun: dryRun}, rep, coll); err != nil {
			rep.Line(report.Warn, "wireguard", "error", err.Error())
		}
	}

	if coll.ShouldRetry(false) && !dryRun {
		ref := model.LinkRef{IfName: lm.IfName, NS: lm.NS}
		if !e.recreateLimiter(ref).Allow() {
			rep.Line(report.Warn, "link", "option", "recreate", "error", "rate limited, settings not converging")
		} else {
			e.retryRecreate(nc, lm, state, rep)
		}
	}
}

// resolveOrCreate matches lm against the live registry via its identity
// filters (§3), creating and binding a new link when no match exists and
// the kind allows it, and applying the rename/mtu/master/state deltas
// (§4.6 step 5).
func (e *Engine) resolveOrCreate(nc *nsctx.NamespaceContext, lm *model.LinkModel, state model.LinkState, dryRun bool, rep *report.Reporter, coll *xcpt.Collector) (netlink.Link, error) {
	item := e.Registry.MatchModel(lm)
	kcap := capabilityFor(lm.Kind)

	if item == nil {
		if !kcap.CanCreate {
			rep.Line(report.Warn, "link", "error", "no matching live link and kind cannot be created")
			return nil, nil
		}
		rep.Line(report.Add, "link", "kind", string(lm.Kind))
		if dryRun {
			return nil, nil
		}

		createNC := nc
		bindNS := ""
		if lm.BindNetns != "" && lm.BindNetns != lm.NS && model.BindableKinds[string(lm.Kind)] {
			bnc, ok := e.Contexts[lm.BindNetns]
			if !ok {
				return nil, fmt.Errorf("bind_netns %s for link %s is not prepared", nsDisplay(lm.BindNetns), lm.IfName)
			}
			createNC, bindNS = bnc, lm.BindNetns
		}

		built := kcap.Build(lm)
		if err := createNC.LinkAdd(built); err != nil {
			coll.Add("link_add", err, map[string]any{"ifname": lm.IfName})
			return nil, fmt.Errorf("creating link %s: %w", lm.IfName, err)
		}
		live, err := createNC.GetLink(0, lm.IfName)
		if err != nil {
			return nil, fmt.Errorf("resolving newly created link %s: %w", lm.IfName, err)
		}

		if lm.Kind == model.KindVeth && lm.Peer != "" && lm.PeerNS != "" {
			if err := e.movePeer(createNC, lm, coll); err != nil {
				return nil, err
			}
		}

		if bindNS != "" {
			if err := e.recordBindMount(createNC, lm.NS, live.Attrs().Index); err != nil {
				rep.Line(report.Warn, "link", "error", err.Error())
			}
			if err := createNC.LinkSetNsFd(live, nc.FD()); err != nil {
				coll.Add("link_set_netns", err, map[string]any{"ifname": lm.IfName})
				return nil, fmt.Errorf("moving link %s from bind namespace %s to %s: %w", lm.IfName, nsDisplay(bindNS), nsDisplay(lm.NS), err)
			}
			live, err = nc.GetLink(0, lm.IfName)
			if err != nil {
				return nil, fmt.Errorf("resolving link %s after bind_netns move: %w", lm.IfName, err)
			}
		}

		newItem := &model.LinkRegistryItem{Index: live.Attrs().Index, NS: lm.NS, IfName: lm.IfName, Kind: lm.Kind}
		e.Registry.AddLink(newItem)
		e.Registry.Bind(newItem, lm)
		item = newItem
	} else {
		e.Registry.Bind(item, lm)
		if item.NS != lm.NS {
			rep.Line(report.Change, "link", "option", "netns", "from", nsDisplay(item.NS), "to", nsDisplay(lm.NS))
			if dryRun {
				return nil, nil
			}
			if err := e.migrateNetns(item, lm, nc, coll); err != nil {
				return nil, err
			}
		}

		if lm.BindNetns != "" && model.BindableKinds[string(lm.Kind)] {
			drifted, err := e.bindNetnsDrifted(lm, item.Index)
			if err != nil {
				rep.Line(report.Warn, "link", "error", err.Error())
			} else if drifted {
				rep.Line(report.Change, "link", "option", "bind_netns", "value", lm.BindNetns)
				if dryRun {
					return nil, nil
				}
				if err := e.recreateInBindNetns(item, lm, nc, rep, coll); err != nil {
					return nil, err
				}
			}
		}
	}

	if dryRun && item.Index == 0 {
		return nil, nil
	}
	link, err := nc.GetLink(item.Index, "")
	if err != nil {
		return nil, fmt.Errorf("resolving link %s (index %d): %w", lm.IfName, item.Index, err)
	}

	if link.Attrs().Name != lm.IfName {
		rep.Line(report.Change, "link", "option", "name", "from", link.Attrs().Name, "to", lm.IfName)
		if !dryRun {
			// Drop an altname equal to the rename target from whichever link
			// holds it, so the rename does not collide (§4.6).
			if others, err := nc.EnumerateLinks(); err == nil {
				for _, other := range others {
					for _, alt := range nsctx.AltNames(other) {
						if alt == lm.IfName {
							if err := nc.PropertyDelAltName(other, alt); err != nil {
								coll.Add("property_del_altname", err, nil)
							}
						}
					}
				}
			}
			if err := nc.LinkSetName(link, lm.IfName); err != nil {
				coll.Add("link_set_name", err, nil)
			}
		}
	}

	if lm.MTU != 0 && link.Attrs().MTU != lm.MTU {
		rep.Line(report.Change, "link", "option", "mtu", "value", lm.MTU)
		if !dryRun {
			if err := nc.LinkSetMTU(link, lm.MTU); err != nil {
				coll.Add("link_set_mtu", err, nil)
			}
		}
	}

	if lm.Master != "" {
		masterItem := e.Registry.GetLinkOne(model.LinkFilter{IfName: lm.Master, NS: masterNS(lm), NSSet: true})
		if masterItem != nil && masterItem.Index != item.Master {
			if masterNC, ok := e.Contexts[masterNS(lm)]; ok {
				if masterLink, mErr := masterNC.GetLink(masterItem.Index, ""); mErr == nil {
					rep.Line(report.Change, "link", "option", "master", "value", lm.Master)
					if !dryRun {
						if err := nc.LinkSetMaster(link, masterLink); err != nil {
							coll.Add("link_set_master", err, nil)
						}
					}
				}
			}
		}
	}

	wantUp := state == model.StateUp
	isUp := link.Attrs().Flags&netlink.FlagUp != 0
	if wantUp != isUp {
		rep.Line(report.Change, "link", "option", "state", "value", string(state))
		if !dryRun {
			if wantUp {
				err = nc.LinkSetUp(link)
			} else {
				err = nc.LinkSetDown(link)
			}
			if err != nil {
				coll.Add("link_set_state", err, nil)
			}
		}
	} else {
		rep.Line(report.OK, "link", "option", "state")
	}

	return link, nil
}

func masterNS(lm *model.LinkModel) string {
	if lm.MasterNS != "" {
		return lm.MasterNS
	}
	return lm.NS
}

func nsDisplay(name string) string {
	if name == model.RootNS {
		return "(root)"
	}
	return name
}

// migrateNetns moves an existing link matched in the wrong namespace into
// lm.NS (§4.6 step 5 "If found in a different namespace than desired,
// issue link set netns=..."). The registry's identity filters are
// NS-independent, so MatchModel can return an item living anywhere; this
// issues the actual netlink move and updates the registry's namespace
// bookkeeping to match (§8 property 2), so every call after this one
// resolves the link through nc, the destination namespace context.
func (e *Engine) migrateNetns(item *model.LinkRegistryItem, lm *model.LinkModel, nc *nsctx.NamespaceContext, coll *xcpt.Collector) error {
	srcNC, ok := e.Contexts[item.NS]
	if !ok {
		return fmt.Errorf("namespace %s holding link %s is not prepared", nsDisplay(item.NS), lm.IfName)
	}
	srcLink, err := srcNC.GetLink(item.Index, "")
	if err != nil {
		return fmt.Errorf("resolving link %s in namespace %s for move: %w", lm.IfName, nsDisplay(item.NS), err)
	}
	if err := srcNC.LinkSetNsFd(srcLink, nc.FD()); err != nil {
		coll.Add("link_set_netns", err, map[string]any{"ifname": lm.IfName})
		return fmt.Errorf("moving link %s to namespace %s: %w", lm.IfName, nsDisplay(lm.NS), err)
	}
	e.Registry.MoveNetns(item, lm.NS)
	return nil
}

// retryRecreate implements the §7/§4.8 retry-then-recreate policy: an
// update that failed with EEXIST, or left a settings diff after apply, is
// handled by deleting the live link and creating it fresh once.
func (e *Engine) retryRecreate(nc *nsctx.NamespaceContext, lm *model.LinkModel, state model.LinkState, rep *report.Reporter) {
	item := e.Registry.MatchModel(lm)
	if item == nil {
		return
	}
	kcap := capabilityFor(lm.Kind)
	if !kcap.CanCreate {
		return
	}
	rep.Line(report.Change, "link", "option", "recreate")
	live, err := nc.GetLink(item.Index, "")
	if err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
		return
	}
	if err := nc.LinkDel(live); err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
		return
	}
	built := kcap.Build(lm)
	if err := nc.LinkAdd(built); err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
		return
	}
	recreated, err := nc.GetLink(0, lm.IfName)
	if err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
		return
	}
	item.Index = recreated.Attrs().Index
	if state == model.StateUp {
		_ = nc.LinkSetUp(recreated)
	}
}

func (e *Engine) resolveIfname(ns string) func(ifname, targetNS string) (int, bool) {
	return func(ifname, targetNS string) (int, bool) {
		if targetNS == "" {
			targetNS = ns
		}
		item := e.Registry.GetLinkOne(model.LinkFilter{IfName: ifname, NS: targetNS, NSSet: true})
		if item == nil {
			return 0, false
		}
		return item.Index, true
	}
}

func (e *Engine) reconcileRouting(ns *model.NS, nsName string, vrrp *VrrpSelector, dryRun bool) {
	nc, ok := e.Contexts[nsName]
	if !ok {
		return
	}
	rep := e.Report.For("", nsName)

	for table, routes := range ns.Routes {
		selected := make(map[model.RouteKey]model.Route)
		for k, r := range routes {
			if r.Vrrp != nil && !vrrpRouteApplies(r.Vrrp, vrrp) {
				continue
			}
			selected[k] = r
		}
		if len(selected) == 0 {
			continue
		}
		coll := xcpt.New(false)
		opts := route.Options{Table: table, Family: 0, DryRun: dryRun, Resolve: route.ResolveOIF(e.resolveIfname(nsName))}
		if err := route.Reconcile(nc, selected, opts, rep, coll); err != nil {
			rep.Line(report.Warn, "route", "error", err.Error())
		}
	}

	selectedRules := make(map[model.RuleKey]model.Rule)
	for k, r := range ns.Rules {
		if r.Vrrp != nil && !vrrpRouteApplies(r.Vrrp, vrrp) {
			continue
		}
		selectedRules[k] = r
	}
	if len(selectedRules) > 0 {
		coll := xcpt.New(false)
		if err := rule.Reconcile(nc, selectedRules, rule.Options{DryRun: dryRun}, rep, coll); err != nil {
			rep.Line(report.Warn, "rule", "error", err.Error())
		}
	}
}

func vrrpRouteApplies(tag *model.VrrpTag, vrrp *VrrpSelector) bool {
	if vrrp == nil {
		return true
	}
	return tag.Matches(vrrp.Type, vrrp.Name) && tag.HasState(vrrp.State)
}

func hwString(addr net.HardwareAddr) string {
	if len(addr) == 0 {
		return ""
	}
	return addr.String()
}

func collectLinkSysctl(ns *model.NS, ifname string) (map[model.SysctlKey]model.SysctlSetting, bool) {
	out := make(map[model.SysctlKey]model.SysctlSetting)
	for k, v := range ns.Sysctl {
		if k.IfName == ifname {
			out[k] = v
		}
	}
	return out, len(out) > 0
}

func collectFDB(ns *model.NS, ifname string) map[model.FDBKey]model.FDBEntry {
	out := make(map[model.FDBKey]model.FDBEntry)
	for k, v := range ns.FDB {
		if k.IfName == ifname {
			out[k] = v
		}
	}
	return out
}

func collectNeigh(ns *model.NS, ifname string) map[model.NeighKey]model.Neighbour {
	out := make(map[model.NeighKey]model.Neighbour)
	for k, v := range ns.Neigh {
		if k.IfName == ifname {
			out[k] = v
		}
	}
	return out
}
