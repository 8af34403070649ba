package config

import "testing"

func TestDefaultDocument_hasInterfaceMap(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	if d.Interfaces == nil {
		t.Fatal("DefaultDocument().Interfaces is nil, want an initialized map")
	}
	if len(d.Interfaces) != 0 {
		t.Fatalf("DefaultDocument().Interfaces has %d entries, want 0", len(d.Interfaces))
	}
}

func TestValidate_emptyDocumentRejected(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	if err := d.Validate(); err != ErrNoInterfaces {
		t.Fatalf("Validate() = %v, want ErrNoInterfaces", err)
	}
}

func TestValidate_routesAloneSatisfy(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Routing.Routes = map[string][]RouteDoc{"main": {{To: "default"}}}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_vlanRequiresBlock(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Interfaces["vlan100"] = IfaceDoc{Kind: "vlan"}
	if err := d.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for vlan without a vlan block")
	}
}

func TestValidate_vlanWithBlockAccepted(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Interfaces["vlan100"] = IfaceDoc{Kind: "vlan", Vlan: &VlanDoc{ID: 100}}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_vxlanRequiresBlock(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Interfaces["vxlan0"] = IfaceDoc{Kind: "vxlan"}
	if err := d.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for vxlan without a vxlan block")
	}
}

func TestValidate_wireguardRequiresBlock(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Interfaces["wg0"] = IfaceDoc{Kind: "wireguard"}
	if err := d.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for wireguard without a wireguard block")
	}
}

func TestValidate_defaultProfileRequiresName(t *testing.T) {
	t.Parallel()

	d := DefaultDocument()
	d.Interfaces["eth0"] = IfaceDoc{}
	d.Defaults = []DefaultProfileDoc{{}}
	if err := d.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for an unnamed default profile")
	}
}
