package config

import (
	"net"
	"testing"

	"github.com/liske/ifstated/internal/defaults"
	"github.com/liske/ifstated/internal/model"
)

func TestResolve_basicInterfaceAndAddress(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{
		State:     "up",
		MTU:       1400,
		Addresses: []string{"192.0.2.1/24"},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	lm := resolved.Plan.NS[model.RootNS].Links["eth0"]
	if lm == nil {
		t.Fatal("resolved plan missing eth0")
	}
	if lm.MTU != 1400 {
		t.Fatalf("eth0.MTU = %d, want 1400", lm.MTU)
	}
	if lm.State != model.StateUp {
		t.Fatalf("eth0.State = %q, want up", lm.State)
	}
	if lm.Kind != model.KindPhysical {
		t.Fatalf("eth0.Kind = %q, want physical (default)", lm.Kind)
	}

	addrs := resolved.Plan.NS[model.RootNS].Addrs["eth0"]
	if len(addrs) != 1 {
		t.Fatalf("eth0 addresses = %d, want 1", len(addrs))
	}
}

func TestResolve_invalidCIDRFails(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{Addresses: []string{"not-a-cidr"}}

	if _, err := Resolve(doc, rt); err == nil {
		t.Fatal("Resolve() = nil error, want a CIDR parse failure")
	}
}

func TestResolve_fdbDefaultsVxlanPort(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["vxlan0"] = IfaceDoc{
		FDB: []FDBDoc{{Mac: "00:11:22:33:44:55", Dst: "203.0.113.1"}},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for _, entry := range resolved.Plan.NS[model.RootNS].FDB {
		if entry.Port != 8472 {
			t.Fatalf("fdb entry port = %d, want default 8472", entry.Port)
		}
	}
}

func TestResolve_routingSkipsLocalTable(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Routing.Routes = map[string][]RouteDoc{
		"local": {{To: "default"}},
		"main":  {{To: "default", Gateway: "192.0.2.254"}},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := resolved.Plan.NS[model.RootNS].Routes[model.LocalTable]; ok {
		t.Fatal("local table routes were translated, want skipped (§4.4 Routes)")
	}
	if _, ok := resolved.Plan.NS[model.RootNS].Routes[model.TableMain]; !ok {
		t.Fatal("main table routes were not translated")
	}
}

func TestResolve_unknownTableNameFails(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Routing.Routes = map[string][]RouteDoc{"does-not-exist": {{To: "default"}}}

	if _, err := Resolve(doc, rt); err == nil {
		t.Fatal("Resolve() = nil error, want an unknown-table failure")
	}
}

func TestResolve_defaultsConjunctiveMatchGroup(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Defaults = []DefaultProfileDoc{
		{
			Name: "wan",
			Match: []map[string]string{
				{"ifname": `^eth\d+$`, "kind": "^physical$"},
			},
			Link: struct {
				State  string `yaml:"state,omitempty"`
				Master string `yaml:"link,omitempty"`
				Clear  bool   `yaml:"clear_link,omitempty"`
				MTU    int    `yaml:"mtu,omitempty"`
			}{MTU: 1400},
		},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	p := resolved.Matcher.GetDefaults(defaults.Query{IfName: "eth0", Kind: model.KindPhysical})
	if p == nil {
		t.Fatal("GetDefaults() = nil, want the wan profile to match")
	}
	if p.Link.MTU != 1400 {
		t.Fatalf("matched profile MTU = %d, want 1400", p.Link.MTU)
	}

	if got := resolved.Matcher.GetDefaults(defaults.Query{IfName: "wlan0", Kind: model.KindPhysical}); got != nil {
		t.Fatal("GetDefaults() matched an interface whose name fails the ifname predicate")
	}
}

func TestResolve_hookOrderingAppliesAfter(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Hooks = []HookDoc{
		{Name: "second", After: []string{"routing"}},
		{Name: "first", Provides: []string{"routing"}},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved.Hooks) != 2 {
		t.Fatalf("hooks = %d, want 2", len(resolved.Hooks))
	}
	if resolved.Hooks[0].Name != "first" || resolved.Hooks[1].Name != "second" {
		t.Fatalf("hook order = %v, want [first second]", resolved.Hooks)
	}
}

func TestResolve_ignoreSetsCompiled(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Ignore.IfName = []string{`^veth`}
	doc.Ignore.Addresses = []string{"169.254.0.0/16"}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved.IgnoreIfName) != 1 || !resolved.IgnoreIfName[0].MatchString("veth123") {
		t.Fatal("ignore.ifname pattern did not compile/match as expected")
	}
	if len(resolved.IgnoreNetworks) != 1 {
		t.Fatalf("ignore.addresses = %d nets, want 1", len(resolved.IgnoreNetworks))
	}
	if !resolved.IgnoreNetworks[0].Contains(net.ParseIP("169.254.1.1")) {
		t.Fatal("ignore.addresses network does not contain the expected IP")
	}
}

func TestResolve_ipaddrDynamicKnobPassesThrough(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["eth0"] = IfaceDoc{}
	doc.Ignore.DynamicOnly = true

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resolved.AddrDynamicOnly {
		t.Fatal("ignore.ipaddr_dynamic = true was not carried into Resolved.AddrDynamicOnly")
	}
}

func TestResolve_vlanUnknownProtocolDefaults8021q(t *testing.T) {
	t.Parallel()

	rt := model.LoadRTTables()
	doc := DefaultDocument()
	doc.Interfaces["vlan100"] = IfaceDoc{
		Kind: "vlan",
		Link: "eth0",
		Vlan: &VlanDoc{ID: 100, Protocol: "not-a-real-protocol"},
	}

	resolved, err := Resolve(doc, rt)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	lm := resolved.Plan.NS[model.RootNS].Links["vlan100"]
	if lm.Vlan == nil {
		t.Fatal("vlan100 has no Vlan settings")
	}
	if lm.Vlan.Protocol != 0x8100 {
		t.Fatalf("vlan100 protocol = %#x, want 802.1q default 0x8100", lm.Vlan.Protocol)
	}
}
