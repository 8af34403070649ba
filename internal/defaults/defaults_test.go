package defaults

import (
	"regexp"
	"testing"

	"github.com/liske/ifstated/internal/model"
)

func TestGetDefaults_firstMatchWins(t *testing.T) {
	t.Parallel()

	m := New([]Profile{
		{Name: "wan", Match: []PredicateGroup{{{Option: "ifname", Regex: regexp.MustCompile(`^wan\d+$`)}}}, Link: LinkOverrides{MTU: 1400}},
		{Name: "any-eth", Match: []PredicateGroup{{{Option: "ifname", Regex: regexp.MustCompile(`^(eth|wan)\d+$`)}}}, Link: LinkOverrides{MTU: 9000}},
	})

	got := m.GetDefaults(Query{IfName: "wan0", Kind: model.KindPhysical})
	if got == nil || got.Name != "wan" {
		t.Fatalf("GetDefaults(wan0) = %v, want wan profile", got)
	}

	got = m.GetDefaults(Query{IfName: "eth0", Kind: model.KindPhysical})
	if got == nil || got.Name != "any-eth" {
		t.Fatalf("GetDefaults(eth0) = %v, want any-eth profile", got)
	}

	if m.GetDefaults(Query{IfName: "br0", Kind: model.KindBridge}) != nil {
		t.Fatal("GetDefaults(br0) should match no profile")
	}
}

func TestGetDefaults_groupIsConjunctive(t *testing.T) {
	t.Parallel()

	m := New([]Profile{
		{
			Name: "bonded-eth",
			Match: []PredicateGroup{{
				{Option: "ifname", Regex: regexp.MustCompile(`^eth\d+$`)},
				{Option: "kind", Regex: regexp.MustCompile(`^bond$`)},
			}},
		},
	})

	if m.GetDefaults(Query{IfName: "eth0", Kind: model.KindPhysical}) != nil {
		t.Fatal("predicate group should require every pair to match, not just one")
	}
	if got := m.GetDefaults(Query{IfName: "eth0", Kind: model.KindBond}); got == nil {
		t.Fatal("predicate group should match when every pair matches")
	}
}

func TestApply_builtinOrphanClearsEverything(t *testing.T) {
	t.Parallel()

	lm := &model.LinkModel{IfName: "eth0", State: model.StateUp, Master: "br0"}
	builtin := Builtin()
	Apply(lm, &builtin)

	if lm.State != model.StateDown {
		t.Fatalf("State = %v, want down", lm.State)
	}
	if lm.Master != "" {
		t.Fatalf("Master = %q, want cleared", lm.Master)
	}
	if !lm.ClearAddresses || !lm.ClearFDB || !lm.ClearNeighbours || !lm.ClearTC {
		t.Fatal("builtin profile should clear every collection")
	}
}
