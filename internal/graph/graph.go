// Package graph implements C5, the DependencyGraph: cross-namespace
// dependency edges between configured links and the topological layering
// that produces ordered apply stages (spec.md §3 "Dependency graph",
// §4.5).
package graph

import (
	"fmt"

	"github.com/liske/ifstated/internal/model"
)

// Edge is "link depends on dep" (§3).
type Edge struct {
	From model.LinkRef
	To   model.LinkRef
}

// Graph is a directed graph over LinkRef, represented as an adjacency
// list plus the full node set (so nodes without edges are still valid
// per §3).
type Graph struct {
	Nodes map[model.LinkRef]bool
	deps  map[model.LinkRef]map[model.LinkRef]bool // node -> set of dependencies
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: make(map[model.LinkRef]bool),
		deps:  make(map[model.LinkRef]map[model.LinkRef]bool),
	}
}

// AddNode registers ref even if it has no edges.
func (g *Graph) AddNode(ref model.LinkRef) {
	g.Nodes[ref] = true
	if g.deps[ref] == nil {
		g.deps[ref] = make(map[model.LinkRef]bool)
	}
}

// AddEdge records that from depends on to, registering both endpoints as
// nodes.
func (g *Graph) AddEdge(from, to model.LinkRef) {
	g.AddNode(from)
	g.AddNode(to)
	g.deps[from][to] = true
}

// CircularError reports the nodes left over after a lenient-mode layering
// pass stalls on a cycle (§4.5, §7 LinkCircularLinked).
type CircularError struct {
	Remaining []model.LinkRef
}

func (e *CircularError) Error() string {
	return fmt.Sprintf("circular link dependency involving %d link(s): %v", len(e.Remaining), e.Remaining)
}

// BuildFromPlan adds the edges named in §4.5: link -> master, link ->
// lower-link, link -> tunnel-underlay, link -> tc.filter[*].action[kind=
// mirred].dev, link -> brport.backup_port. Each edge preserves the
// target namespace if the attribute specifies one, else the same
// namespace as the link itself.
func BuildFromPlan(plan *model.Plan) *Graph {
	g := New()

	for _, nsName := range plan.SortedNSNames() {
		ns := plan.NS[nsName]
		for ifname, lm := range ns.Links {
			ref := model.LinkRef{IfName: ifname, NS: nsName}
			g.AddNode(ref)

			if lm.Master != "" {
				ns2 := lm.MasterNS
				if ns2 == "" {
					ns2 = nsName
				}
				g.AddEdge(ref, model.LinkRef{IfName: lm.Master, NS: ns2})
			}
			if lm.Lower != "" {
				ns2 := lm.LowerNS
				if ns2 == "" {
					ns2 = nsName
				}
				g.AddEdge(ref, model.LinkRef{IfName: lm.Lower, NS: ns2})
			}
			if lm.Tunnel != nil && lm.Tunnel.Link != "" {
				ns2 := lm.Tunnel.LinkNS
				if ns2 == "" {
					ns2 = nsName
				}
				g.AddEdge(ref, model.LinkRef{IfName: lm.Tunnel.Link, NS: ns2})
			}
			if lm.Vxlan != nil && lm.Vxlan.Link != "" {
				ns2 := lm.Vxlan.LinkNS
				if ns2 == "" {
					ns2 = nsName
				}
				g.AddEdge(ref, model.LinkRef{IfName: lm.Vxlan.Link, NS: ns2})
			}
			if backup, ok := lm.Brport["backup_port"].(string); ok && backup != "" {
				g.AddEdge(ref, model.LinkRef{IfName: backup, NS: nsName})
			}
		}

		for key, tc := range ns.TC {
			ref := model.LinkRef{IfName: key.IfName, NS: nsName}
			if tc.Root != nil {
				addMirredEdges(g, ref, nsName, tc.Root)
			}
		}
	}

	return g
}

func addMirredEdges(g *Graph, ref model.LinkRef, nsName string, q *model.TCQdisc) {
	for _, f := range q.Filters {
		for _, act := range f.Actions {
			if act.Kind == "mirred" && act.Dev != "" {
				ns2 := act.DevNS
				if ns2 == "" {
					ns2 = nsName
				}
				g.AddEdge(ref, model.LinkRef{IfName: act.Dev, NS: ns2})
			}
		}
	}
	for _, child := range q.Children {
		addMirredEdges(g, ref, nsName, child)
	}
}

// Stage is one topological layer: every link in a stage has all of its
// dependencies already emitted in an earlier stage (§4.5).
type Stage []model.LinkRef

// Stages computes the topological layering from §4.5: repeatedly emit the
// set of nodes whose remaining dependencies are all already emitted, or
// that have no dependencies, then remove them. When a pass stalls on a
// cycle, Stages always returns the stages produced so far alongside a
// *CircularError describing the leftover nodes — it is the caller's job
// to apply the §4.5 mode policy: in strict (apply) mode the error is
// fatal (§7 LinkCircularLinked); in lenient (check) mode the error is
// logged and the partial stages are used as-is (§8 property 8).
func (g *Graph) Stages() ([]Stage, error) {
	remaining := make(map[model.LinkRef]map[model.LinkRef]bool, len(g.deps))
	for node, deps := range g.deps {
		remaining[node] = make(map[model.LinkRef]bool, len(deps))
		for d := range deps {
			// A dependency that isn't itself a tracked node (e.g. an
			// underlay link outside the configuration) can never block
			// emission.
			if g.Nodes[d] {
				remaining[node][d] = true
			}
		}
	}

	var stages []Stage
	for len(remaining) > 0 {
		var ready []model.LinkRef
		for node, deps := range remaining {
			if len(deps) == 0 {
				ready = append(ready, node)
			}
		}

		if len(ready) == 0 {
			var left []model.LinkRef
			for node := range remaining {
				left = append(left, node)
			}
			sortRefs(left)
			return stages, &CircularError{Remaining: left}
		}

		sortRefs(ready)
		stages = append(stages, Stage(ready))

		for _, node := range ready {
			delete(remaining, node)
		}
		for node, deps := range remaining {
			for _, done := range ready {
				delete(deps, done)
			}
			remaining[node] = deps
		}
	}

	return stages, nil
}

func sortRefs(refs []model.LinkRef) {
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && model.LinkRefLess(refs[j], refs[j-1]); j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
}
