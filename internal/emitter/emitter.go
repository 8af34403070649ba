// Package emitter implements C10, the Emitter: the inverse path that
// reads live kernel state and produces a configuration document shaped
// like the one the engine consumes (spec.md §4.10).
package emitter

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/reconcile/address"
	"github.com/liske/ifstated/internal/registry"
)

// defaultMTU is suppressed on every interface except lo or one that
// differs from it (§4.10 "mtu (suppress 1500/65536 unless lo or
// non-default)").
const defaultMTU = 1500

// loopbackDefaultMTU is lo's own well-known default.
const loopbackDefaultMTU = 65536

// Options controls what the Emitter includes (§4.10 "showall").
type Options struct {
	ShowAll bool
	Ignore  []*regexp.Regexp
}

func (o Options) ignored(ifname string) bool {
	for _, re := range o.Ignore {
		if re.MatchString(ifname) {
			return true
		}
	}
	return false
}

// Document is the emitted configuration tree, keyed the way the YAML
// config loader expects so a captured document can be fed straight back
// in as a starting configuration.
type Document struct {
	Interfaces map[string]InterfaceDoc `yaml:"interfaces"`
	Routing    *RoutingDoc             `yaml:"routing,omitempty"`
}

// InterfaceDoc is one emitted interface entry.
type InterfaceDoc struct {
	NetNS     string         `yaml:"netns,omitempty"`
	Kind      string         `yaml:"kind,omitempty"`
	State     string         `yaml:"state,omitempty"`
	MTU       int            `yaml:"mtu,omitempty"`
	Master    string         `yaml:"link,omitempty"`
	Lower     string         `yaml:"lower,omitempty"`
	Addresses []string       `yaml:"addresses,omitempty"`
	Brport    map[string]any `yaml:"brport,omitempty"`
}

// RoutingDoc groups the emitted route tables and rules.
type RoutingDoc struct {
	Routes map[string][]RouteDoc `yaml:"routes,omitempty"`
	Rules  []RuleDoc             `yaml:"rules,omitempty"`
}

type RouteDoc struct {
	To       string `yaml:"to,omitempty"`
	Gateway  string `yaml:"gateway,omitempty"`
	OIF      string `yaml:"oif,omitempty"`
	Priority int    `yaml:"metric,omitempty"`
}

type RuleDoc struct {
	Priority int    `yaml:"priority"`
	IIF      string `yaml:"iif,omitempty"`
	OIF      string `yaml:"oif,omitempty"`
	To       string `yaml:"to,omitempty"`
	Table    string `yaml:"table,omitempty"`
}

// builtinIgnoreRouteProtos mirrors the reconciler's own ignore set so a
// captured document doesn't regurgitate kernel- and RA-managed routes
// (§4.4 property 14, reused here per §4.10 "filtered against built-in
// ignore lists").
var builtinIgnoreRouteProtos = map[int]bool{
	1: true, 2: true,
	8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true,
	18: true, 42: true,
	186: true, 187: true, 188: true, 189: true,
	192: true,
}

// Emit walks every tracked namespace's live state and builds a Document
// (§4.10).
func Emit(contexts map[string]*nsctx.NamespaceContext, reg *registry.Registry, rt *model.RTTables, opts Options) (*Document, error) {
	doc := &Document{Interfaces: make(map[string]InterfaceDoc)}
	routing := &RoutingDoc{Routes: make(map[string][]RouteDoc)}

	for nsName, nc := range contexts {
		links, err := nc.EnumerateLinks()
		if err != nil {
			return nil, fmt.Errorf("enumerating links in namespace %q: %w", nsName, err)
		}
		for _, link := range links {
			attrs := link.Attrs()
			if opts.ignored(attrs.Name) {
				continue
			}
			iface, skip, err := emitInterface(nc, reg, link, nsName, opts)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			doc.Interfaces[attrs.Name] = iface
		}

		if err := emitRouting(nc, routing, rt, opts); err != nil {
			return nil, err
		}
	}

	if len(routing.Routes) > 0 || len(routing.Rules) > 0 {
		doc.Routing = routing
	}
	return doc, nil
}

func emitInterface(nc *nsctx.NamespaceContext, reg *registry.Registry, link netlink.Link, nsName string, opts Options) (InterfaceDoc, bool, error) {
	attrs := link.Attrs()
	kind := model.LinkKind(link.Type())
	if kind == "" || kind == "device" {
		kind = model.KindPhysical
	}

	iface := InterfaceDoc{
		Kind:  string(kind),
		State: string(model.StateDown),
	}
	if nsName != model.RootNS {
		iface.NetNS = nsName
	}
	if attrs.Flags&netlink.FlagUp != 0 {
		iface.State = string(model.StateUp)
	}

	if attrs.Name == "lo" {
		if !opts.ShowAll && attrs.MTU == loopbackDefaultMTU && iface.State == string(model.StateUp) {
			// A canonical default loopback: hide it entirely (§4.10).
			return InterfaceDoc{}, true, nil
		}
		if attrs.MTU != loopbackDefaultMTU {
			iface.MTU = attrs.MTU
		}
	} else if attrs.MTU != defaultMTU {
		iface.MTU = attrs.MTU
	}

	if attrs.MasterIndex != 0 {
		if item := reg.GetLinkOne(model.LinkFilter{Index: attrs.MasterIndex, NS: nsName, NSSet: true}); item != nil {
			iface.Master = item.IfName
		}
	}
	if attrs.ParentIndex != 0 {
		if item := reg.GetLinkOne(model.LinkFilter{Index: attrs.ParentIndex, NS: nsName, NSSet: true}); item != nil {
			iface.Lower = item.IfName
		}
	}

	addrs, err := nc.EnumerateAddresses(attrs.Index)
	if err != nil {
		return InterfaceDoc{}, false, fmt.Errorf("enumerating addresses on %s: %w", attrs.Name, err)
	}
	for _, a := range addrs {
		if !opts.ShowAll && a.Flags&address.IfaceAddrFlagPermanent == 0 {
			continue
		}
		if a.IPNet == nil {
			continue
		}
		prefix, _ := a.IPNet.Mask.Size()
		iface.Addresses = append(iface.Addresses, fmt.Sprintf("%s/%d", a.IPNet.IP.String(), prefix))
	}
	sort.Strings(iface.Addresses)

	if attrs.MasterIndex != 0 {
		if pi, err := nc.Handle().LinkGetProtinfo(link); err == nil {
			iface.Brport = emitBrport(pi, opts.ShowAll)
		}
	}

	return iface, false, nil
}

// brportDefaults names the kernel's own default for each protinfo knob, so
// only the non-default ones are emitted unless showall (§4.10).
var brportDefaults = map[string]bool{
	"hairpin":   false,
	"guard":     false,
	"fastleave": false,
	"learning":  true,
	"root_block": false,
	"flood":     true,
	"proxy_arp": false,
}

func emitBrport(pi netlink.Protinfo, showAll bool) map[string]any {
	values := map[string]bool{
		"hairpin":    pi.Hairpin,
		"guard":      pi.Guard,
		"fastleave":  pi.FastLeave,
		"learning":   pi.Learning,
		"root_block": pi.RootBlock,
		"flood":      pi.Flood,
		"proxy_arp":  pi.ProxyArp,
	}
	out := make(map[string]any)
	for k, v := range values {
		if showAll || v != brportDefaults[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func emitRouting(nc *nsctx.NamespaceContext, routing *RoutingDoc, rt *model.RTTables, opts Options) error {
	routes, err := nc.EnumerateRoutes(0)
	if err != nil {
		return fmt.Errorf("enumerating routes: %w", err)
	}
	for _, r := range routes {
		if builtinIgnoreRouteProtos[int(r.Protocol)] {
			continue
		}
		table := r.Table
		if table == 0 {
			table = model.TableMain
		}
		if table == model.LocalTable {
			continue
		}
		rd := RouteDoc{Priority: r.Priority}
		if r.Dst != nil {
			rd.To = r.Dst.String()
		} else {
			rd.To = "default"
		}
		if r.Gw != nil {
			rd.Gateway = r.Gw.String()
		}
		if r.LinkIndex != 0 {
			if link, err := nc.GetLink(r.LinkIndex, ""); err == nil {
				rd.OIF = link.Attrs().Name
			}
		}
		key := rt.Tables.Emit(table)
		routing.Routes[key] = append(routing.Routes[key], rd)
	}

	rules, err := nc.EnumerateRules(0)
	if err != nil {
		return fmt.Errorf("enumerating rules: %w", err)
	}
	for _, r := range rules {
		if r.Priority == 0 || r.Priority == 32766 || r.Priority == 32767 {
			continue // built-in kernel default rules, never emitted
		}
		rd := RuleDoc{Priority: r.Priority, IIF: r.IifName, OIF: r.OifName}
		if r.Dst != nil {
			rd.To = r.Dst.String()
		}
		if r.Table != 0 {
			rd.Table = rt.Tables.Emit(r.Table)
		}
		routing.Rules = append(routing.Rules, rd)
	}
	return nil
}
