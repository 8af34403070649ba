package model

// Symbolic-to-numeric maps from spec.md §4.2, applied at load time and
// reversed by the Emitter (§4.10). Unknown values pass through unchanged
// per §4.2, so every lookup here returns (value, ok) rather than erroring.

// EnumMap is a bidirectional symbolic<->numeric translation table.
type EnumMap struct {
	byName  map[string]int
	byValue map[int]string
}

func newEnumMap(pairs ...struct {
	Name  string
	Value int
}) *EnumMap {
	m := &EnumMap{
		byName:  make(map[string]int, len(pairs)),
		byValue: make(map[int]string, len(pairs)),
	}
	for _, p := range pairs {
		m.byName[p.Name] = p.Value
		m.byValue[p.Value] = p.Name
	}
	return m
}

// Parse translates a symbolic name to its numeric value. If name is not
// found, it reports ok=false and the caller passes the value through
// unchanged (unknown values pass through per §4.2).
func (m *EnumMap) Parse(name string) (int, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// Emit translates a numeric value back to its symbolic name.
func (m *EnumMap) Emit(value int) (string, bool) {
	n, ok := m.byValue[value]
	return n, ok
}

func pair(name string, value int) struct {
	Name  string
	Value int
} {
	return struct {
		Name  string
		Value int
	}{name, value}
}

var (
	BondMode = newEnumMap(
		pair("balance-rr", 0),
		pair("active-backup", 1),
		pair("balance-xor", 2),
		pair("broadcast", 3),
		pair("802.3ad", 4),
		pair("balance-tlb", 5),
		pair("balance-alb", 6),
	)

	BondArpValidate = newEnumMap(
		pair("none", 0),
		pair("active", 1),
		pair("backup", 2),
		pair("all", 3),
		pair("filter", 4),
		pair("filter_active", 5),
		pair("filter_backup", 6),
	)

	BondArpAllTargets = newEnumMap(
		pair("any", 0),
		pair("all", 1),
	)

	BondPrimaryReselect = newEnumMap(
		pair("always", 0),
		pair("better", 1),
		pair("failure", 2),
	)

	BondFailOverMac = newEnumMap(
		pair("none", 0),
		pair("active", 1),
		pair("follow", 2),
	)

	BondXmitHashPolicy = newEnumMap(
		pair("layer2", 0),
		pair("layer3+4", 1),
		pair("layer2+3", 2),
		pair("encap2+3", 3),
		pair("encap3+4", 4),
		pair("vlan+srcmac", 5),
	)

	BondAdLacpRate = newEnumMap(
		pair("slow", 0),
		pair("fast", 1),
	)

	BondAdSelect = newEnumMap(
		pair("stable", 0),
		pair("bandwidth", 1),
		pair("count", 2),
	)

	TunType = newEnumMap(
		pair("tun", 1),
		pair("tap", 2),
	)

	VlanProtocol = newEnumMap(
		pair("802.1ad", 0x88a8),
		pair("802.1q", 0x8100),
	)

	// RuleAction maps symbolic <-> numeric routing-rule actions (§4.4 Rules).
	RuleAction = newEnumMap(
		pair("to_tbl", 1),   // FR_ACT_TO_TBL
		pair("unicast", 1),  // alias: default rule action
		pair("blackhole", 6),
		pair("unreachable", 7),
		pair("prohibit", 8),
		pair("nat", 9),
	)
)

// BindableKinds is the explicit set of link kinds for which bind_netns is
// meaningful (§3 LinkModel.bind_netns).
var BindableKinds = map[string]bool{
	"ip6tnl":    true,
	"tun":       true,
	"veth":      true,
	"vti":       true,
	"vti6":      true,
	"vxlan":     true,
	"ipip":      true,
	"gre":       true,
	"gretap":    true,
	"ip6gre":    true,
	"ip6gretap": true,
	"geneve":    true,
	"wireguard": true,
	"xfrm":      true,
}
