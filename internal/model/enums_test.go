package model

import "testing"

func TestEnumMap_roundTrip(t *testing.T) {
	t.Parallel()

	maps := []*EnumMap{
		BondMode, BondArpValidate, BondArpAllTargets, BondPrimaryReselect,
		BondFailOverMac, BondXmitHashPolicy, BondAdLacpRate, BondAdSelect,
		TunType, VlanProtocol,
	}

	for _, m := range maps {
		for name, value := range m.byName {
			got, ok := m.Parse(name)
			if !ok || got != value {
				t.Errorf("Parse(%q) = (%d, %v), want (%d, true)", name, got, ok, value)
			}
			emitted, ok := m.Emit(value)
			if !ok || emitted != name {
				t.Errorf("Emit(%d) = (%q, %v), want (%q, true)", value, emitted, ok, name)
			}
		}
	}
}

func TestEnumMap_unknownPassesThrough(t *testing.T) {
	t.Parallel()

	if _, ok := BondMode.Parse("not-a-real-mode"); ok {
		t.Fatal("Parse() of unknown symbolic name should report ok=false")
	}
}

func TestBondMode_values(t *testing.T) {
	t.Parallel()

	want := map[string]int{
		"balance-rr":    0,
		"active-backup": 1,
		"balance-xor":   2,
		"broadcast":     3,
		"802.3ad":       4,
		"balance-tlb":   5,
		"balance-alb":   6,
	}
	for name, value := range want {
		got, ok := BondMode.Parse(name)
		if !ok || got != value {
			t.Errorf("BondMode.Parse(%q) = (%d, %v), want %d", name, got, ok, value)
		}
	}
}

func TestVlanProtocol_values(t *testing.T) {
	t.Parallel()

	if v, ok := VlanProtocol.Parse("802.1q"); !ok || v != 0x8100 {
		t.Errorf("VlanProtocol.Parse(802.1q) = (0x%x, %v), want 0x8100", v, ok)
	}
	if v, ok := VlanProtocol.Parse("802.1ad"); !ok || v != 0x88a8 {
		t.Errorf("VlanProtocol.Parse(802.1ad) = (0x%x, %v), want 0x88a8", v, ok)
	}
}
