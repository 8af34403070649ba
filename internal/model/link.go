package model

import "net"

// LinkKind is the tagged-variant replacement for the source's dynamic
// dispatch by kind (§9 "Dynamic dispatch by kind"). Reconcilers and the
// engine switch on Kind to find the variant-specific capability table in
// internal/engine/kind.go; the model package itself only names the kind.
type LinkKind string

const (
	KindPhysical  LinkKind = "physical"
	KindBridge    LinkKind = "bridge"
	KindBond      LinkKind = "bond"
	KindVeth      LinkKind = "veth"
	KindVlan      LinkKind = "vlan"
	KindVxlan     LinkKind = "vxlan"
	KindDummy     LinkKind = "dummy"
	KindIPIP      LinkKind = "ipip"
	KindGRE       LinkKind = "gre"
	KindGRETap    LinkKind = "gretap"
	KindIP6GRE    LinkKind = "ip6gre"
	KindIP6GRETap LinkKind = "ip6gretap"
	KindIP6Tnl    LinkKind = "ip6tnl"
	KindVTI       LinkKind = "vti"
	KindVTI6      LinkKind = "vti6"
	KindGeneve    LinkKind = "geneve"
	KindTun       LinkKind = "tun"
	KindWireGuard LinkKind = "wireguard"
	KindXfrm      LinkKind = "xfrm"
	KindDSA       LinkKind = "dsa"
	KindMacvlan   LinkKind = "macvlan"
	KindIPVlan    LinkKind = "ipvlan"
)

// LinkState is the desired administrative state of a link.
type LinkState string

const (
	StateUp   LinkState = "up"
	StateDown LinkState = "down"
)

// VrrpType distinguishes keepalived's two tag namespaces (§3 LinkModel.vrrp).
type VrrpType string

const (
	VrrpGroup    VrrpType = "group"
	VrrpInstance VrrpType = "instance"
)

// VrrpState is one of keepalived's reported states.
type VrrpState string

const (
	VrrpUnknown VrrpState = "unknown"
	VrrpFault   VrrpState = "fault"
	VrrpBackup  VrrpState = "backup"
	VrrpMaster  VrrpState = "master"
)

// VrrpTag conditions a LinkModel (or a Route/Rule, see routing.go) on an
// externally reported VRRP transition (§3, §4.6 step 5).
type VrrpTag struct {
	Type   VrrpType
	Name   string
	States map[VrrpState]bool
}

// Matches reports whether this tag's (type, name) identifies the same VRRP
// instance/group as the given selector.
func (t *VrrpTag) Matches(typ VrrpType, name string) bool {
	return t != nil && t.Type == typ && t.Name == name
}

// HasState reports whether state is one of the tag's accepted states.
func (t *VrrpTag) HasState(state VrrpState) bool {
	return t != nil && t.States[state]
}

// EthtoolSettings groups the optional ethtool knob groups (§3).
type EthtoolSettings struct {
	Change   map[string]string
	Coalesce map[string]string
	Features map[string]bool
	Pause    map[string]string
	NFC      map[string]string
	Ring     map[string]string
	RXFH     map[string]string
}

// BrportSettings holds bridge-port protinfo knobs (§3, §4.4 brport is
// reconciled per internal/reconcile/brport).
type BrportSettings map[string]any

// LinkModel is the desired state for one configured interface (§3).
type LinkModel struct {
	IfName string
	NS     string
	Kind   LinkKind

	State      LinkState
	Master     string // ifname of the master link, if any
	MasterNS   string
	Lower      string // lower/parent link ifname (vlan/macvlan/ipvlan link, bond slave's actual phys link is Master)
	LowerNS    string
	Peer       string // veth peer ifname
	PeerNS     string
	MTU        int
	HWAddr     net.HardwareAddr

	// Identity hints, declining priority (§3 "identity keys").
	BusInfo  string
	PermAddr net.HardwareAddr
	Address  net.HardwareAddr // configured hwaddr used as identity for kind=physical

	// bind_netns: namespace the link must be created in before being moved
	// to NS. Meaningful only for kinds in BindableKinds.
	BindNetns string

	// Orphan is true only for the synthetic built-in profile match used to
	// re-bind a physical orphan by ifname (§3 identity keys, §4.7).
	Orphan bool

	// Kind-specific attribute bags, normalized via the enum maps in
	// enums.go at load time. Integer-coded attributes are stored already
	// translated; raw/unknown symbolic values pass through as strings in
	// Extra.
	Bond      *BondSettings
	Vlan      *VlanSettings
	Vxlan     *VxlanSettings
	Tun       *TunSettings
	Tunnel    *TunnelSettings // generic ip/gre/vti/geneve underlay attributes
	WireGuard *WireGuardIfaceSettings

	Group int // netdev group, resolved via the RT "group" map; -1 if unset

	Ethtool *EthtoolSettings
	Brport  BrportSettings
	Vrrp    *VrrpTag

	// clear_* booleans from a matched default profile (§4.7), applied by
	// the engine before diffing.
	ClearAddresses  bool
	ClearFDB        bool
	ClearNeighbours bool
	ClearTC         bool
}

// BondSettings holds bond_* attributes, already enum-translated.
type BondSettings struct {
	Mode             int
	ArpValidate      int
	ArpAllTargets    int
	PrimaryReselect  int
	FailOverMac      int
	XmitHashPolicy   int
	AdLacpRate       int
	AdSelect         int
	Slaves           []string
	Primary          string
	MiiMon           int
}

// VlanSettings holds vlan attributes.
type VlanSettings struct {
	ID       int
	Protocol int // 802.1q / 802.1ad, numeric
}

// VxlanSettings holds vxlan attributes.
type VxlanSettings struct {
	ID       int
	Link     string // underlay ifname (vxlan_link)
	LinkNS   string
	Local    net.IP
	Remote   net.IP
	Port     int
	Learning bool
}

// TunSettings holds tun/tap attributes.
type TunSettings struct {
	Type  int // TunType-translated
	Owner int
	Group int
}

// TunnelSettings holds the shared underlay attributes for ip6tnl/ipip/gre/
// gretap/ip6gre/ip6gretap/vti/vti6/geneve (§3 bind set).
type TunnelSettings struct {
	Link    string // underlay device ifname, resolved via the registry
	LinkNS  string
	Local   net.IP
	Remote  net.IP
	TTL     int
	Key     uint32
	VNI     int // geneve
}

// WireGuardIfaceSettings mirrors the base-interface attributes compared by
// the wireguard reconciler (§4.4 WireGuard).
type WireGuardIfaceSettings struct {
	PrivateKey string // base64, via config.Key
	ListenPort int
	FwMark     int
	Peers      []WireGuardPeer
}

// WireGuardPeer is one configured WireGuard peer, keyed by PublicKey.
type WireGuardPeer struct {
	PublicKey           string
	PresharedKey        string
	Endpoint            string
	PersistentKeepalive int
	AllowedIPs          []string
}
