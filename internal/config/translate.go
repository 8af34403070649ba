package config

import (
	"fmt"
	"log/slog"
	"net"
	"regexp"

	"github.com/liske/ifstated/internal/defaults"
	"github.com/liske/ifstated/internal/hooks"
	"github.com/liske/ifstated/internal/model"
	reconroute "github.com/liske/ifstated/internal/reconcile/route"
)

// Resolved is everything a Document translates into: the per-namespace
// plan C3-C5 build on, the default-profile matcher C7 consults, the
// ordered hook list C9 materializes wrappers for, and the two ignore sets
// the orphan sweep and address reconciler need (§4.6 step 3, §4.4
// Addresses).
type Resolved struct {
	Plan           *model.Plan
	Matcher        *defaults.Matcher
	Hooks          []hooks.Hook
	IgnoreIfName   []*regexp.Regexp
	IgnoreNetworks []*net.IPNet
	AddrDynamicOnly bool
}

// Resolve translates a validated Document into the engine's runtime
// types, applying the §4.2 enum-translation tables via rt.
func Resolve(doc *Document, rt *model.RTTables) (*Resolved, error) {
	plan := model.NewPlan()
	plan.Namespaces = append([]string(nil), doc.Namespaces...)
	for _, ns := range doc.Namespaces {
		plan.NSOf(ns)
	}

	for ifname, iface := range doc.Interfaces {
		lm, err := translateIface(ifname, iface, rt)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", ifname, err)
		}
		ns := plan.NSOf(lm.NS)
		ns.Links[ifname] = lm

		if len(iface.Addresses) > 0 {
			set := make(map[model.AddrKey]model.Address, len(iface.Addresses))
			for _, cidr := range iface.Addresses {
				ip, ipnet, err := net.ParseCIDR(cidr)
				if err != nil {
					return nil, fmt.Errorf("interface %q: address %q: %w", ifname, cidr, err)
				}
				ones, _ := ipnet.Mask.Size()
				key := model.AddrKey{IfName: ifname, IP: ip.String(), Prefix: ones}
				set[key] = model.Address{Key: key}
			}
			ns.Addrs[ifname] = set
		}

		if len(iface.FDB) > 0 {
			for _, f := range iface.FDB {
				port := f.Port
				if port == 0 {
					port = 8472 // default VXLAN FDB port (§4.4 FDB)
				}
				key := model.FDBKey{IfName: ifname, Mac: f.Mac, Dst: f.Dst}
				ns.FDB[key] = model.FDBEntry{Key: key, Port: port}
			}
		}

		if len(iface.Neigh) > 0 {
			for _, n := range iface.Neigh {
				hw, err := net.ParseMAC(n.LLAddr)
				if err != nil {
					return nil, fmt.Errorf("interface %q: neighbour %q: %w", ifname, n.LLAddr, err)
				}
				key := model.NeighKey{IfName: ifname, IP: n.IP}
				ns.Neigh[key] = model.Neighbour{Key: key, LLAddr: hw}
			}
		}

		if len(iface.Sysctl) > 0 {
			for family, kv := range iface.Sysctl {
				for k, v := range kv {
					key := model.SysctlKey{IfName: ifname, Family: family, Key: k}
					ns.Sysctl[key] = model.SysctlSetting{Key: key, Value: v}
				}
			}
		}

		if iface.WireGuard != nil {
			ns.WG[ifname] = lm.WireGuard
		}

		if iface.XDP != nil {
			ns.XDP[ifname] = model.XDPProgram{
				IfName:  ifname,
				Name:    iface.XDP.Name,
				Object:  iface.XDP.Object,
				Section: iface.XDP.Section,
				Mode:    xdpMode(iface.XDP.Mode),
				Maps:    append([]string(nil), iface.XDP.Maps...),
			}
		}

		if iface.TC != nil {
			if iface.TC.Root != nil {
				ns.TC[model.TCKey{IfName: ifname, Subsystem: "qdisc"}] = model.TCConfig{
					Root:    translateQdisc(iface.TC.Root),
					Ingress: iface.TC.Ingress,
				}
			} else if iface.TC.Ingress {
				ns.TC[model.TCKey{IfName: ifname, Subsystem: "ingress"}] = model.TCConfig{Ingress: true}
			}
		}
	}

	if err := translateRouting(doc.Routing, plan, rt); err != nil {
		return nil, err
	}

	matcher, err := translateDefaults(doc.Defaults)
	if err != nil {
		return nil, err
	}

	hookList, err := translateHooks(doc.Hooks)
	if err != nil {
		return nil, err
	}

	ifnameRe, err := compileAll(doc.Ignore.IfName)
	if err != nil {
		return nil, fmt.Errorf("ignore.ifname: %w", err)
	}

	var nets []*net.IPNet
	for _, cidr := range doc.Ignore.Addresses {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("ignore.addresses: %q: %w", cidr, err)
		}
		nets = append(nets, ipnet)
	}

	return &Resolved{
		Plan:            plan,
		Matcher:         matcher,
		Hooks:           hookList,
		IgnoreIfName:    ifnameRe,
		IgnoreNetworks:  nets,
		AddrDynamicOnly: doc.Ignore.DynamicOnly,
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func translateIface(ifname string, iface IfaceDoc, rt *model.RTTables) (*model.LinkModel, error) {
	lm := &model.LinkModel{
		IfName:    ifname,
		NS:        iface.NetNS,
		Kind:      model.LinkKind(iface.Kind),
		State:     model.LinkState(iface.State),
		MTU:       iface.MTU,
		Master:    iface.Link,
		MasterNS:  iface.LinkNS,
		Lower:     iface.Lower,
		LowerNS:   iface.LowerNS,
		Peer:      iface.Peer,
		PeerNS:    iface.PeerNS,
		BusInfo:   iface.BusInfo,
		BindNetns: iface.BindNetns,
		Group:     -1,

		ClearAddresses:  iface.ClearAddresses,
		ClearFDB:        iface.ClearFDB,
		ClearNeighbours: iface.ClearNeighbours,
		ClearTC:         iface.ClearTC,
	}
	if lm.Kind == "" {
		lm.Kind = model.KindPhysical
	}
	if lm.State == "" {
		lm.State = model.StateUp
	}

	if iface.HWAddr != "" {
		hw, err := net.ParseMAC(iface.HWAddr)
		if err != nil {
			return nil, fmt.Errorf("hwaddr %q: %w", iface.HWAddr, err)
		}
		lm.Address = hw
		if lm.Kind == model.KindPhysical {
			lm.HWAddr = hw
		}
	}
	if iface.PermAddr != "" {
		hw, err := net.ParseMAC(iface.PermAddr)
		if err != nil {
			return nil, fmt.Errorf("permaddr %q: %w", iface.PermAddr, err)
		}
		lm.PermAddr = hw
	}
	if iface.Group != "" {
		if g, ok := rt.ParseGroup(iface.Group); ok {
			lm.Group = g
		} else {
			// Unknown group names are dropped with a warning (§4.2); Group
			// stays unset (-1).
			slog.Warn("dropping unknown netdev group", "iface", ifname, "group", iface.Group)
		}
	}

	if iface.Bond != nil {
		lm.Bond = translateBond(iface.Bond)
	}
	if iface.Vlan != nil {
		proto, _ := model.VlanProtocol.Parse(iface.Vlan.Protocol)
		if proto == 0 {
			proto = 0x8100 // 802.1q default
		}
		lm.Vlan = &model.VlanSettings{ID: iface.Vlan.ID, Protocol: proto}
	}
	if iface.Vxlan != nil {
		v := &model.VxlanSettings{
			ID:     iface.Vxlan.ID,
			Link:   iface.Vxlan.Link,
			LinkNS: iface.Vxlan.LinkNS,
			Port:   iface.Vxlan.Port,
		}
		if iface.Vxlan.Local != "" {
			v.Local = net.ParseIP(iface.Vxlan.Local)
		}
		if iface.Vxlan.Remote != "" {
			v.Remote = net.ParseIP(iface.Vxlan.Remote)
		}
		if iface.Vxlan.Learning != nil {
			v.Learning = *iface.Vxlan.Learning
		} else {
			v.Learning = true
		}
		lm.Vxlan = v
	}
	if iface.Tunnel != nil {
		t := &model.TunnelSettings{
			Link:   iface.Tunnel.Link,
			LinkNS: iface.Tunnel.LinkNS,
			TTL:    iface.Tunnel.TTL,
			Key:    iface.Tunnel.Key,
			VNI:    iface.Tunnel.VNI,
		}
		if iface.Tunnel.Local != "" {
			t.Local = net.ParseIP(iface.Tunnel.Local)
		}
		if iface.Tunnel.Remote != "" {
			t.Remote = net.ParseIP(iface.Tunnel.Remote)
		}
		lm.Tunnel = t
	}
	if iface.WireGuard != nil {
		lm.WireGuard = translateWireGuard(iface.WireGuard)
	}
	if len(iface.Ethtool) > 0 {
		lm.Ethtool = translateEthtool(iface.Ethtool)
	}
	if len(iface.Brport) > 0 {
		lm.Brport = model.BrportSettings(iface.Brport)
	}
	if iface.Vrrp != nil {
		tag, err := translateVrrp(iface.Vrrp)
		if err != nil {
			return nil, err
		}
		lm.Vrrp = tag
	}

	return lm, nil
}

func translateBond(b *BondDoc) *model.BondSettings {
	out := &model.BondSettings{
		Slaves:  append([]string(nil), b.Slaves...),
		Primary: b.Primary,
		MiiMon:  b.MiiMon,
	}
	out.Mode, _ = model.BondMode.Parse(b.Mode)
	out.ArpValidate, _ = model.BondArpValidate.Parse(b.ArpValidate)
	out.ArpAllTargets, _ = model.BondArpAllTargets.Parse(b.ArpAllTargets)
	out.PrimaryReselect, _ = model.BondPrimaryReselect.Parse(b.PrimaryReselect)
	out.FailOverMac, _ = model.BondFailOverMac.Parse(b.FailOverMac)
	out.XmitHashPolicy, _ = model.BondXmitHashPolicy.Parse(b.XmitHashPolicy)
	out.AdLacpRate, _ = model.BondAdLacpRate.Parse(b.AdLacpRate)
	out.AdSelect, _ = model.BondAdSelect.Parse(b.AdSelect)
	return out
}

func translateWireGuard(w *WireGuardDoc) *model.WireGuardIfaceSettings {
	out := &model.WireGuardIfaceSettings{
		PrivateKey: w.PrivateKey,
		ListenPort: w.ListenPort,
		FwMark:     w.FwMark,
	}
	for _, p := range w.Peers {
		out.Peers = append(out.Peers, model.WireGuardPeer{
			PublicKey:           p.PublicKey,
			PresharedKey:        p.PresharedKey,
			Endpoint:            p.Endpoint,
			PersistentKeepalive: p.PersistentKeepalive,
			AllowedIPs:          append([]string(nil), p.AllowedIPs...),
		})
	}
	return out
}

// translateEthtool flattens the document's nested knob-group map into the
// model's per-group string maps; unrecognized group names are dropped
// (the ethtool reconciler only consults the named groups).
func translateEthtool(groups map[string]map[string]string) *model.EthtoolSettings {
	out := &model.EthtoolSettings{}
	for group, kv := range groups {
		switch group {
		case "change":
			out.Change = kv
		case "coalesce":
			out.Coalesce = kv
		case "pause":
			out.Pause = kv
		case "nfc":
			out.NFC = kv
		case "ring":
			out.Ring = kv
		case "rxfh":
			out.RXFH = kv
		case "features":
			feats := make(map[string]bool, len(kv))
			for k, v := range kv {
				feats[k] = v == "on" || v == "true" || v == "1"
			}
			out.Features = feats
		}
	}
	return out
}

func xdpMode(s string) model.XDPMode {
	switch model.XDPMode(s) {
	case model.XDPDrv, model.XDPGeneric, model.XDPOffload:
		return model.XDPMode(s)
	default:
		return model.XDPAuto
	}
}

func translateQdisc(q *TCQdiscDoc) *model.TCQdisc {
	if q == nil {
		return nil
	}
	out := &model.TCQdisc{Kind: q.Kind, Opts: q.Opts}
	for _, f := range q.Filters {
		out.Filters = append(out.Filters, translateFilter(f))
	}
	for _, c := range q.Children {
		out.Children = append(out.Children, translateQdisc(c))
	}
	return out
}

func translateFilter(f TCFilterDoc) model.TCFilter {
	out := model.TCFilter{Prio: f.Prio, Proto: f.Proto, Kind: f.Kind, Match: f.Match}
	for _, a := range f.Actions {
		out.Actions = append(out.Actions, model.TCAction{Kind: a.Kind, Dev: a.Dev, DevNS: a.DevNS, Opts: a.Opts})
	}
	return out
}

func translateVrrp(v *VrrpDoc) (*model.VrrpTag, error) {
	typ := model.VrrpType(v.Type)
	if typ != model.VrrpGroup && typ != model.VrrpInstance {
		return nil, fmt.Errorf("vrrp: unknown type %q, want group or instance", v.Type)
	}
	tag := &model.VrrpTag{Type: typ, Name: v.Name, States: make(map[model.VrrpState]bool, len(v.States))}
	for _, s := range v.States {
		tag.States[model.VrrpState(s)] = true
	}
	return tag, nil
}

func translateRouting(doc RoutingDocument, plan *model.Plan, rt *model.RTTables) error {
	for tableName, routes := range doc.Routes {
		tableID, ok := rt.Tables.Parse(tableName)
		if !ok {
			return fmt.Errorf("routing: unknown table %q", tableName)
		}
		if tableID == model.LocalTable {
			continue // never touched (§4.4 Routes)
		}
		for _, r := range routes {
			route, ns, err := translateRoute(r, tableID)
			if err != nil {
				return fmt.Errorf("routing.routes[%s]: %w", tableName, err)
			}
			tbl := plan.NSOf(ns).Routes
			if tbl[tableID] == nil {
				tbl[tableID] = make(map[model.RouteKey]model.Route)
			}
			tbl[tableID][route.Key] = route
		}
	}

	for _, r := range doc.Rules {
		rule, ns, err := translateRule(r, rt)
		if err != nil {
			return fmt.Errorf("routing.rules: %w", err)
		}
		plan.NSOf(ns).Rules[rule.Key] = rule
	}
	return nil
}

func translateRoute(r RouteDoc, table int) (model.Route, string, error) {
	key := model.RouteKey{Priority: r.Priority, Table: table, Tos: r.Tos, Proto: r.Proto}
	if r.To != "" && r.To != "default" {
		_, ipnet, err := net.ParseCIDR(r.To)
		if err != nil {
			return model.Route{}, "", fmt.Errorf("to %q: %w", r.To, err)
		}
		key.Dst = ipnet.String()
		if r.Priority == 0 && ipnet.IP.To4() == nil {
			key.Priority = reconroute.DefaultPriorityV6
		}
	}

	route := model.Route{Key: key, OIF: r.OIF, OIFNS: r.OIFNS}
	if r.Gateway != "" {
		route.Gateway = net.ParseIP(r.Gateway)
	}
	if r.Via != "" {
		via := net.ParseIP(r.Via)
		route.Via = via
		dstIP := net.IPv4zero
		if _, dst, err := net.ParseCIDR(key.Dst); err == nil {
			dstIP = dst.IP
		}
		route.ViaFamily = reconroute.ViaFamilyFor(dstIP, via)
		if route.ViaFamily == 0 && route.Gateway == nil {
			route.Gateway = via
		}
	}
	if r.PrefSrc != "" {
		route.PrefSrc = net.ParseIP(r.PrefSrc)
	}
	if r.Vrrp != nil {
		tag, err := translateVrrp(r.Vrrp)
		if err != nil {
			return model.Route{}, "", err
		}
		route.Vrrp = tag
	}
	route.State = model.StateUp
	return route, r.OIFNS, nil
}

func translateRule(r RuleDoc, rt *model.RTTables) (model.Rule, string, error) {
	family := 2 // AF_INET default
	if r.Family == "inet6" {
		family = 10
	}
	key := model.RuleKey{Priority: r.Priority, Family: family, IIF: r.IIF, OIF: r.OIF, Dst: r.To, Metric: r.Metric}
	rule := model.Rule{Key: key}
	if r.Table != "" {
		id, ok := rt.Tables.Parse(r.Table)
		if !ok {
			return model.Rule{}, "", fmt.Errorf("unknown table %q", r.Table)
		}
		rule.Table = id
	}
	if r.Action != "" {
		action, ok := model.RuleAction.Parse(r.Action)
		if !ok {
			return model.Rule{}, "", fmt.Errorf("unknown action %q", r.Action)
		}
		rule.Action = action
	}
	if r.Vrrp != nil {
		tag, err := translateVrrp(r.Vrrp)
		if err != nil {
			return model.Rule{}, "", err
		}
		rule.Vrrp = tag
	}
	return rule, "", nil
}

func translateDefaults(docs []DefaultProfileDoc) (*defaults.Matcher, error) {
	profiles := make([]defaults.Profile, 0, len(docs))
	for _, d := range docs {
		p := defaults.Profile{
			Name:            d.Name,
			ClearAddresses:  d.ClearAddresses,
			ClearFDB:        d.ClearFDB,
			ClearNeighbours: d.ClearNeighbours,
			ClearTC:         d.ClearTC,
		}
		if d.Link.State != "" {
			p.Link.State = model.LinkState(d.Link.State)
		}
		if d.Link.Clear {
			empty := ""
			p.Link.Master = &empty
		} else if d.Link.Master != "" {
			master := d.Link.Master
			p.Link.Master = &master
		}
		p.Link.MTU = d.Link.MTU
		if len(d.Ethtool) > 0 {
			p.Ethtool = translateEthtool(d.Ethtool)
		}
		for _, predDict := range d.Match {
			group := make(defaults.PredicateGroup, 0, len(predDict))
			for option, pattern := range predDict {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("defaults[%s].match: %q: %w", d.Name, pattern, err)
				}
				group = append(group, defaults.Predicate{Option: option, Regex: re})
			}
			p.Match = append(p.Match, group)
		}
		profiles = append(profiles, p)
	}
	return defaults.New(profiles), nil
}

func translateHooks(docs []HookDoc) ([]hooks.Hook, error) {
	out := make([]hooks.Hook, 0, len(docs))
	for _, h := range docs {
		if h.Name == "" {
			return nil, fmt.Errorf("hooks: a hook must have a name")
		}
		path := h.Path
		if path == "" {
			path = h.Name
		}
		out = append(out, hooks.Hook{
			Name:     h.Name,
			Path:     path,
			Provides: append([]string(nil), h.Provides...),
			After:    append([]string(nil), h.After...),
			Args:     h.Args,
		})
	}
	return hooks.Order(out)
}
