// Package config defines the typed, validated configuration value the
// engine consumes (spec.md §1: "the core consumes an already-validated
// configuration value"). The YAML reader and its `!include` expansion and
// JSON-schema validation are explicitly external-collaborator territory
// per spec.md; Document is the Go-native analogue of libifstate's
// in-memory config tree after that collaborator has finished merging
// includes, plus a minimal single-file loader for local testing and
// tooling.
//
// Struct-tag and DefaultConfig()/Validate() shape grounded on
// internal/config/config.go's own Config/DefaultConfig/applyDefaults
// pattern, tags swapped toml -> yaml per SPEC_FULL.md.
package config

import (
	"errors"
	"fmt"
)

// Document is the top-level configuration tree.
type Document struct {
	Namespaces []string               `yaml:"namespaces,omitempty"`
	Ignore     IgnoreDocument         `yaml:"ignore,omitempty"`
	Defaults   []DefaultProfileDoc    `yaml:"defaults,omitempty"`
	Interfaces map[string]IfaceDoc    `yaml:"interfaces,omitempty"`
	Routing    RoutingDocument        `yaml:"routing,omitempty"`
	Hooks      []HookDoc              `yaml:"hooks,omitempty"`
}

// IgnoreDocument names the regex/network ignore sets consulted by the
// orphan sweep (§4.6 step 3) and the address reconciler's ignore-network
// set (§4.4 Addresses).
type IgnoreDocument struct {
	IfName    []string `yaml:"ifname,omitempty"`
	Addresses []string `yaml:"addresses,omitempty"`

	// DynamicOnly further restricts address deletion to live addresses
	// bearing the PERMANENT flag (§4.4 Addresses, config knob
	// "ipaddr_dynamic").
	DynamicOnly bool `yaml:"ipaddr_dynamic,omitempty"`
}

// DefaultProfileDoc is one ordered default profile (§4.7).
type DefaultProfileDoc struct {
	Name  string              `yaml:"name"`
	Match []map[string]string `yaml:"match"`

	Link struct {
		State  string `yaml:"state,omitempty"`
		Master string `yaml:"link,omitempty"`
		Clear  bool   `yaml:"clear_link,omitempty"` // true clears master explicitly
		MTU    int    `yaml:"mtu,omitempty"`
	} `yaml:"link,omitempty"`
	Ethtool         map[string]map[string]string `yaml:"ethtool,omitempty"`
	ClearAddresses  bool                          `yaml:"clear_addresses,omitempty"`
	ClearFDB        bool                          `yaml:"clear_fdb,omitempty"`
	ClearNeighbours bool                          `yaml:"clear_neighbours,omitempty"`
	ClearTC         bool                          `yaml:"clear_tc,omitempty"`
}

// IfaceDoc is one configured interface (§3 LinkModel).
type IfaceDoc struct {
	NetNS     string   `yaml:"netns,omitempty"`
	Kind      string   `yaml:"kind,omitempty"`
	State     string   `yaml:"state,omitempty"`
	MTU       int      `yaml:"mtu,omitempty"`
	Link      string   `yaml:"link,omitempty"` // master ifname
	LinkNS    string   `yaml:"link_netns,omitempty"`
	Lower     string   `yaml:"lower,omitempty"`
	LowerNS   string   `yaml:"lower_netns,omitempty"`
	Peer      string   `yaml:"peer,omitempty"`
	PeerNS    string   `yaml:"peer_netns,omitempty"`
	HWAddr    string   `yaml:"hwaddr,omitempty"`
	BusInfo   string   `yaml:"businfo,omitempty"`
	PermAddr  string   `yaml:"permaddr,omitempty"`
	BindNetns string   `yaml:"bind_netns,omitempty"`
	Group     string   `yaml:"group,omitempty"`
	Addresses []string `yaml:"addresses,omitempty"`

	Bond      *BondDoc      `yaml:"bond,omitempty"`
	Vlan      *VlanDoc      `yaml:"vlan,omitempty"`
	Vxlan     *VxlanDoc     `yaml:"vxlan,omitempty"`
	Tunnel    *TunnelDoc    `yaml:"tunnel,omitempty"`
	WireGuard *WireGuardDoc `yaml:"wireguard,omitempty"`

	Ethtool map[string]map[string]string `yaml:"ethtool,omitempty"`
	Brport  map[string]any               `yaml:"brport,omitempty"`
	TC      *TCDoc                       `yaml:"tc,omitempty"`
	FDB     []FDBDoc                     `yaml:"fdb,omitempty"`
	Neigh   []NeighDoc                   `yaml:"neighbours,omitempty"`
	Sysctl  map[string]map[string]string `yaml:"sysctl,omitempty"`
	XDP     *XDPDoc                      `yaml:"xdp,omitempty"`
	Vrrp    *VrrpDoc                     `yaml:"vrrp,omitempty"`

	ClearAddresses  bool `yaml:"clear_addresses,omitempty"`
	ClearFDB        bool `yaml:"clear_fdb,omitempty"`
	ClearNeighbours bool `yaml:"clear_neighbours,omitempty"`
	ClearTC         bool `yaml:"clear_tc,omitempty"`
}

type BondDoc struct {
	Mode            string   `yaml:"mode,omitempty"`
	ArpValidate     string   `yaml:"arp_validate,omitempty"`
	ArpAllTargets   string   `yaml:"arp_all_targets,omitempty"`
	PrimaryReselect string   `yaml:"primary_reselect,omitempty"`
	FailOverMac     string   `yaml:"fail_over_mac,omitempty"`
	XmitHashPolicy  string   `yaml:"xmit_hash_policy,omitempty"`
	AdLacpRate      string   `yaml:"ad_lacp_rate,omitempty"`
	AdSelect        string   `yaml:"ad_select,omitempty"`
	Slaves          []string `yaml:"slaves,omitempty"`
	Primary         string   `yaml:"primary,omitempty"`
	MiiMon          int      `yaml:"miimon,omitempty"`
}

type VlanDoc struct {
	ID       int    `yaml:"id"`
	Protocol string `yaml:"protocol,omitempty"`
}

type VxlanDoc struct {
	ID       int    `yaml:"id"`
	Link     string `yaml:"vxlan_link,omitempty"`
	LinkNS   string `yaml:"vxlan_link_netns,omitempty"`
	Local    string `yaml:"local,omitempty"`
	Remote   string `yaml:"remote,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Learning *bool  `yaml:"learning,omitempty"`
}

// TunnelDoc covers the shared underlay attributes for ip6tnl/ipip/gre/
// gretap/ip6gre/ip6gretap/vti/vti6/geneve (§3 bind set).
type TunnelDoc struct {
	Link   string `yaml:"link,omitempty"`
	LinkNS string `yaml:"link_netns,omitempty"`
	Local  string `yaml:"local,omitempty"`
	Remote string `yaml:"remote,omitempty"`
	TTL    int    `yaml:"ttl,omitempty"`
	Key    uint32 `yaml:"key,omitempty"`
	VNI    int    `yaml:"vni,omitempty"`
}

type WireGuardDoc struct {
	PrivateKey string          `yaml:"private_key,omitempty"`
	ListenPort int             `yaml:"listen_port,omitempty"`
	FwMark     int             `yaml:"fwmark,omitempty"`
	Peers      []WGPeerDoc     `yaml:"peers,omitempty"`
}

type WGPeerDoc struct {
	PublicKey           string   `yaml:"public_key"`
	PresharedKey        string   `yaml:"preshared_key,omitempty"`
	Endpoint             string  `yaml:"endpoint,omitempty"`
	PersistentKeepalive int      `yaml:"persistent_keepalive,omitempty"`
	AllowedIPs           []string `yaml:"allowed_ips,omitempty"`
}

type TCDoc struct {
	Root    *TCQdiscDoc `yaml:"qdisc,omitempty"`
	Ingress bool        `yaml:"ingress,omitempty"`
}

type TCQdiscDoc struct {
	Kind     string                 `yaml:"kind"`
	Handle   string                 `yaml:"handle,omitempty"`
	Children []*TCQdiscDoc          `yaml:"children,omitempty"`
	Filters  []TCFilterDoc          `yaml:"filters,omitempty"`
	Opts     map[string]any         `yaml:"opts,omitempty"`
}

type TCFilterDoc struct {
	Prio    int               `yaml:"prio,omitempty"`
	Proto   string            `yaml:"protocol,omitempty"`
	Kind    string            `yaml:"kind"`
	Actions []TCActionDoc     `yaml:"actions,omitempty"`
	Match   map[string]any    `yaml:"match,omitempty"`
}

type TCActionDoc struct {
	Kind   string         `yaml:"kind"`
	Dev    string         `yaml:"dev,omitempty"`
	DevNS  string         `yaml:"dev_netns,omitempty"`
	Opts   map[string]any `yaml:"opts,omitempty"`
}

type FDBDoc struct {
	Mac   string `yaml:"mac"`
	Dst   string `yaml:"dst,omitempty"`
	Port  int    `yaml:"port,omitempty"`
}

type NeighDoc struct {
	IP     string `yaml:"ip"`
	LLAddr string `yaml:"lladdr"`
}

type XDPDoc struct {
	Name    string   `yaml:"name"`
	Object  string   `yaml:"object"`
	Section string   `yaml:"section,omitempty"`
	Mode    string   `yaml:"mode,omitempty"`
	Maps    []string `yaml:"maps,omitempty"`
}

// VrrpDoc tags an interface (or route/rule) with a VRRP condition
// (§3 "vrrp").
type VrrpDoc struct {
	Type   string   `yaml:"type"`
	Name   string   `yaml:"name"`
	States []string `yaml:"states"`
}

// RoutingDocument groups the routes-by-table and rule lists (§4.4 Routes/Rules).
type RoutingDocument struct {
	Routes map[string][]RouteDoc `yaml:"routes,omitempty"`
	Rules  []RuleDoc             `yaml:"rules,omitempty"`
}

type RouteDoc struct {
	To       string   `yaml:"to,omitempty"`
	Via      string   `yaml:"via,omitempty"`
	Gateway  string   `yaml:"gateway,omitempty"`
	OIF      string   `yaml:"oif,omitempty"`
	OIFNS    string   `yaml:"oif_netns,omitempty"`
	Scope    string   `yaml:"scope,omitempty"`
	Realm    string   `yaml:"realm,omitempty"`
	PrefSrc  string   `yaml:"prefsrc,omitempty"`
	Priority int      `yaml:"metric,omitempty"`
	Tos      int      `yaml:"tos,omitempty"`
	Proto    int      `yaml:"proto,omitempty"`
	Vrrp     *VrrpDoc `yaml:"vrrp,omitempty"`
}

type RuleDoc struct {
	Priority int      `yaml:"priority"`
	Family   string   `yaml:"family,omitempty"`
	IIF      string   `yaml:"iif,omitempty"`
	OIF      string   `yaml:"oif,omitempty"`
	To       string   `yaml:"to,omitempty"`
	Metric   int      `yaml:"metric,omitempty"`
	Protocol string   `yaml:"protocol,omitempty"`
	Action   string   `yaml:"action,omitempty"`
	Table    string   `yaml:"table,omitempty"`
	Vrrp     *VrrpDoc `yaml:"vrrp,omitempty"`
}

// HookDoc names a hook script and its ordering hints (§4.9).
type HookDoc struct {
	Name     string            `yaml:"name"`
	Path     string            `yaml:"path,omitempty"`
	Provides []string          `yaml:"provides,omitempty"`
	After    []string          `yaml:"after,omitempty"`
	Args     map[string]string `yaml:"args,omitempty"`
}

// DefaultDocument returns an empty but well-formed Document, the YAML
// analogue of DefaultConfig().
func DefaultDocument() *Document {
	return &Document{
		Interfaces: make(map[string]IfaceDoc),
	}
}

// ErrNoInterfaces is returned by Validate when a document declares no
// interfaces, no routes and no rules — almost certainly a malformed or empty configuration.
var ErrNoInterfaces = errors.New("config: no interfaces declared")

// Validate performs the structural checks that belong to the core's
// typed value rather than to the external JSON-schema validator (§7
// "schema validation" remains the config collaborator's job; this is a
// narrower sanity check over the already-parsed tree).
func (d *Document) Validate() error {
	if len(d.Interfaces) == 0 && d.Routing.Routes == nil && d.Routing.Rules == nil {
		return ErrNoInterfaces
	}
	for ifname, iface := range d.Interfaces {
		if iface.Kind == "vlan" && iface.Vlan == nil {
			return fmt.Errorf("config: interface %q is kind=vlan without a vlan block", ifname)
		}
		if iface.Kind == "vxlan" && iface.Vxlan == nil {
			return fmt.Errorf("config: interface %q is kind=vxlan without a vxlan block", ifname)
		}
		if iface.Kind == "wireguard" && iface.WireGuard == nil {
			return fmt.Errorf("config: interface %q is kind=wireguard without a wireguard block", ifname)
		}
	}
	for _, p := range d.Defaults {
		if p.Name == "" {
			return errors.New("config: a default profile must have a name")
		}
	}
	return nil
}
