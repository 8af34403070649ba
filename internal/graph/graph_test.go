package graph

import (
	"errors"
	"testing"

	"github.com/liske/ifstated/internal/model"
)

func stageIndex(stages []Stage, ref model.LinkRef) int {
	for i, s := range stages {
		for _, r := range s {
			if r == ref {
				return i
			}
		}
	}
	return -1
}

func TestStages_edgesRespectOrder(t *testing.T) {
	t.Parallel()

	g := New()
	a := model.LinkRef{IfName: "eth0", NS: model.RootNS}
	b := model.LinkRef{IfName: "br0", NS: model.RootNS}
	c := model.LinkRef{IfName: "vlan10", NS: model.RootNS}
	g.AddEdge(a, b) // eth0 depends on br0 (its master)
	g.AddEdge(c, a) // vlan10 depends on eth0 (its lower link)

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error: %v", err)
	}

	ia, ib, ic := stageIndex(stages, a), stageIndex(stages, b), stageIndex(stages, c)
	if ia < 0 || ib < 0 || ic < 0 {
		t.Fatalf("not all nodes present in stages: a=%d b=%d c=%d", ia, ib, ic)
	}
	if ib > ia {
		t.Fatalf("b (dependency of a) should not be in a later stage: stage(b)=%d stage(a)=%d", ib, ia)
	}
	if ia > ic {
		t.Fatalf("a (dependency of c) should not be in a later stage: stage(a)=%d stage(c)=%d", ia, ic)
	}
}

func TestStages_cycleStrictVsLenient(t *testing.T) {
	t.Parallel()

	g := New()
	a := model.LinkRef{IfName: "a", NS: model.RootNS}
	b := model.LinkRef{IfName: "b", NS: model.RootNS}
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	stages, err := g.Stages()
	var circ *CircularError
	if !errors.As(err, &circ) {
		t.Fatalf("Stages() error = %v, want *CircularError", err)
	}
	if len(circ.Remaining) != 2 {
		t.Fatalf("CircularError.Remaining = %v, want both a and b", circ.Remaining)
	}
	for _, s := range stages {
		for _, r := range s {
			if r == a || r == b {
				t.Fatalf("lenient-mode stages must not contain cyclic nodes, found %v", r)
			}
		}
	}
}

func TestStages_deterministicOrder(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode(model.LinkRef{IfName: "zeta", NS: model.RootNS})
	g.AddNode(model.LinkRef{IfName: "lo", NS: model.RootNS})
	g.AddNode(model.LinkRef{IfName: "alpha", NS: model.RootNS})

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error: %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("expected a single stage for independent nodes, got %d", len(stages))
	}
	want := []string{"lo", "alpha", "zeta"}
	for i, ifname := range want {
		if stages[0][i].IfName != ifname {
			t.Fatalf("stage order[%d] = %s, want %s", i, stages[0][i].IfName, ifname)
		}
	}
}

func TestStages_noEdgesNodeIsValid(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode(model.LinkRef{IfName: "lo", NS: model.RootNS})

	stages, err := g.Stages()
	if err != nil {
		t.Fatalf("Stages() error: %v", err)
	}
	if len(stages) != 1 || len(stages[0]) != 1 {
		t.Fatalf("expected one stage with one node, got %v", stages)
	}
}
