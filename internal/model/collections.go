package model

import "net"

// Each IndexedCollection in §3 is a Go map keyed by the entity's natural
// identifier. Keys must be comparable (no slices/maps) so plain Go maps
// give us the invariant "within one configuration, keys are unique" for
// free — a duplicate key silently overwrites during load, which the
// config loader's validation step (external collaborator) is expected to
// reject before the engine ever sees it.

// --- Addresses ---

// AddrKey is "ip/prefixlen" per link (§4.4 Addresses).
type AddrKey struct {
	IfName string
	IP     string // net.IP.String()
	Prefix int
}

type Address struct {
	Key       AddrKey
	Permanent bool // PERMANENT flag, relevant to ipaddr_dynamic (§4.4)
}

// AddressSet is keyed by ifname; all addresses intended for that link.
type AddressSet map[string]map[AddrKey]Address

// --- Routes ---

// RouteKey is dst+priority+table+tos+proto (§3 IndexedCollection routes).
type RouteKey struct {
	Dst      string // CIDR string, "" for default
	Priority int
	Table    int
	Tos      int
	Proto    int
}

type Route struct {
	Key      RouteKey
	Gateway  net.IP
	Via      net.IP
	ViaFamily int // unix.AF_INET or unix.AF_INET6, set only when Via's family != Dst's
	OIF      string
	OIFNS    string
	Scope    int
	Realm    int
	PrefSrc  net.IP
	Type     int
	State    LinkState // down when oif doesn't resolve and a gateway is present (§4.4 Routes)
	Vrrp     *VrrpTag
}

// RouteTableSet is keyed by table id (§4.4 "Grouped per table").
type RouteTableSet map[int]map[RouteKey]Route

// LocalTable is the kernel's local table id, never touched by the engine
// (§4.4 Routes: "The live kernel's local table (id 255) is never touched").
const LocalTable = 255

// --- Rules ---

// RuleKey is priority+family+selectors (§3).
type RuleKey struct {
	Priority int
	Family   int
	IIF      string
	OIF      string
	Dst      string
	Metric   int
	Protocol int
}

type Rule struct {
	Key    RuleKey
	Action int // RuleAction-translated
	Table  int
	Vrrp   *VrrpTag
}

type RuleSet map[RuleKey]Rule

// --- FDB ---

// FDBKey is mac+dst (§3).
type FDBKey struct {
	IfName string
	Mac    string
	Dst    string
}

type FDBEntry struct {
	Key   FDBKey
	Port  int // default 8472 when omitted (§4.4 FDB)
	Flags int // default NTF_SELF
	State int // NUD_NOARP|NUD_PERMANENT; vxlan adds NUD_NOARP by default
}

type FDBSet map[FDBKey]FDBEntry

// --- Neighbours ---

// NeighKey is ip (§3).
type NeighKey struct {
	IfName string
	IP     string
}

type Neighbour struct {
	Key     NeighKey
	LLAddr  net.HardwareAddr
	State   int // always NUD_PERMANENT (§4.4 Neighbours)
}

type NeighbourSet map[NeighKey]Neighbour

// --- Traffic control ---

// Well-known qdisc/filter handles (§4.4 Traffic control).
const (
	TCHandleRoot          = 0xFFFFFFFF
	TCHandleIngress       = 0xFFFF0000
	TCParentIngress       = 0xFFFFFFF1
	TCFilterPrioBase      = 0xc001
)

// TCKey is (ifname, subsystem) (§3); subsystem distinguishes the root
// qdisc tree from the standalone ingress slot.
type TCKey struct {
	IfName    string
	Subsystem string // "qdisc" or "ingress"
}

// TCQdisc is one node of the qdisc tree (§4.4: "a root qdisc with an
// optional children list").
type TCQdisc struct {
	Kind     string
	Handle   uint32
	Parent   uint32
	Children []*TCQdisc
	Filters  []TCFilter
	Opts     map[string]any
}

// TCFilter is one classifier attached at (parent, prio) (§4.4: "filters
// are keyed by (parent, prio)").
type TCFilter struct {
	Parent  uint32
	Prio    int // explicit, else 0xc001 - n + i (computed by the tc reconciler)
	Proto   string
	Kind    string // e.g. "u32", "flower", "bpf"
	Actions []TCAction
	Match   map[string]any
}

// TCAction is one filter action; Mirred actions carry a Dev ifname that's
// resolved to an ifindex at apply time (§4.4: "A mirred action's dev is
// resolved to an ifindex at apply time").
type TCAction struct {
	Kind string // e.g. "mirred", "drop", "pass"
	Dev  string // mirred redirect target ifname
	DevNS string
	Opts map[string]any
}

type TCConfig struct {
	Root    *TCQdisc
	Ingress bool
}

type TCSet map[TCKey]TCConfig

// --- Sysctl ---

// SysctlKey is (family, key) for per-interface sysctl, or just (proto,
// key) for the global collection (§3, §4.4 Sysctl).
type SysctlKey struct {
	IfName string // "" for global
	Family string // ipv4, ipv6, mpls, ...
	Key    string
}

type SysctlSetting struct {
	Key   SysctlKey
	Value string
}

type SysctlSet map[SysctlKey]SysctlSetting

// --- WireGuard ---

type WireGuardSet map[string]*WireGuardIfaceSettings // keyed by ifname

// --- XDP/BPF ---

// XDPMode selects which attach flags to use (§4.4 XDP/BPF).
type XDPMode string

const (
	XDPDrv     XDPMode = "xdp"
	XDPGeneric XDPMode = "xdpgeneric"
	XDPOffload XDPMode = "xdpoffload"
	XDPAuto    XDPMode = "auto"
)

type XDPProgram struct {
	IfName  string
	Name    string
	Object  string // path to the compiled BPF object file
	Section string
	Mode    XDPMode
	Maps    []string
}

type XDPSet map[string]XDPProgram // keyed by ifname
