// Package registry implements C2, the LinkRegistry: the cross-namespace
// inventory of every live link, matched against configured LinkModels by
// stable identity rather than only ifname (spec.md §3, §4.3).
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
)

// Registry is the live inventory, built by enumerating every tracked
// namespace (§4.3 "Populated by enumerating each tracked namespace via
// C1").
type Registry struct {
	items []*model.LinkRegistryItem
	// byNS indexes item positions for fast ifindex lookups during
	// enumeration and master/lower resolution.
	byNS map[string]map[int]*model.LinkRegistryItem
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byNS: make(map[string]map[int]*model.LinkRegistryItem)}
}

// Enumerate populates the registry from the live kernel state of every
// namespace in contexts, keyed by namespace name (§4.3).
func (r *Registry) Enumerate(contexts map[string]*nsctx.NamespaceContext) error {
	r.items = nil
	r.byNS = make(map[string]map[int]*model.LinkRegistryItem)

	for nsName, nc := range contexts {
		links, err := nc.EnumerateLinks()
		if err != nil {
			return fmt.Errorf("enumerating namespace %q: %w", nsName, err)
		}
		for _, l := range links {
			item := fromNetlinkLink(nsName, l)
			permaddr, err := nsctx.PermAddr(item.IfName)
			if err == nil {
				item.PermAddr = permaddr
			}
			businfo, err := nsctx.BusInfo(item.IfName)
			if err == nil {
				item.BusInfo = businfo
			}
			r.AddLink(item)
		}
	}
	return nil
}

func fromNetlinkLink(nsName string, l netlink.Link) *model.LinkRegistryItem {
	attrs := l.Attrs()
	kind := model.LinkKind(l.Type())
	if kind == "" || kind == "device" {
		kind = model.KindPhysical
	}

	state := model.StateDown
	if attrs.Flags&netlink.FlagUp != 0 || attrs.OperState == netlink.OperUp {
		state = model.StateUp
	}

	item := &model.LinkRegistryItem{
		Index:   attrs.Index,
		NS:      nsName,
		IfName:  attrs.Name,
		Kind:    kind,
		State:   state,
		Address: attrs.HardwareAddr,
	}
	if attrs.MasterIndex != 0 {
		item.Master = attrs.MasterIndex
	}
	if attrs.ParentIndex != 0 {
		item.Lower = attrs.ParentIndex
	}
	return item
}

// AddLink appends observed to the registry (§4.3 add_link).
func (r *Registry) AddLink(observed *model.LinkRegistryItem) {
	r.items = append(r.items, observed)
	if r.byNS[observed.NS] == nil {
		r.byNS[observed.NS] = make(map[int]*model.LinkRegistryItem)
	}
	r.byNS[observed.NS][observed.Index] = observed
}

// removeIndex drops the item at position i from r.items, preserving order
// of the rest (order doesn't matter for identity matching, but keeping it
// stable makes registry dumps reproducible in tests).
func (r *Registry) removeIndex(i int) {
	item := r.items[i]
	delete(r.byNS[item.NS], item.Index)
	r.items = append(r.items[:i:i], r.items[i+1:]...)
}

// GetLink returns every item matching every set predicate in f (§4.3
// "matches by any conjunction of {index, ifname, address, kind, businfo,
// permaddr, netns, orphan}").
func (r *Registry) GetLink(f model.LinkFilter) []*model.LinkRegistryItem {
	var out []*model.LinkRegistryItem
	for _, item := range r.items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

// GetLinkOne returns the single item matching f, or nil. Per §8 property 1
// ("For any live link L in namespace N, get_link(index=L.index, netns=N)
// returns exactly one item"), callers that expect uniqueness should use
// this rather than GetLink when the filter includes index+netns.
func (r *Registry) GetLinkOne(f model.LinkFilter) *model.LinkRegistryItem {
	matches := r.GetLink(f)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// MatchModel searches the registry with lm's identity filters in
// declining priority (§3 "identity keys") and returns the first match.
func (r *Registry) MatchModel(lm *model.LinkModel) *model.LinkRegistryItem {
	for _, f := range lm.IdentityFilters() {
		if item := r.GetLinkOne(f); item != nil {
			return item
		}
	}
	return nil
}

// Bind records that model now owns item, the inverse of FreeItem.
func (r *Registry) Bind(item *model.LinkRegistryItem, lm *model.LinkModel) {
	item.Model = lm
	item.Orphan = false
}

// MoveNetns updates item's namespace bookkeeping after a successful
// link-set-netns operation (§8 property 2: "After add_link followed by
// move_netns(M), the item's netns equals M and its old-namespace entry is
// gone").
func (r *Registry) MoveNetns(item *model.LinkRegistryItem, newNS string) {
	delete(r.byNS[item.NS], item.Index)
	item.NS = newNS
	if r.byNS[newNS] == nil {
		r.byNS[newNS] = make(map[int]*model.LinkRegistryItem)
	}
	r.byNS[newNS][item.Index] = item
}

// Orphans returns every item with no bound model.
func (r *Registry) Orphans() []*model.LinkRegistryItem {
	var out []*model.LinkRegistryItem
	for _, item := range r.items {
		if item.Model == nil {
			out = append(out, item)
		}
	}
	return out
}

// All returns every registry item, for the Emitter's inverse pass.
func (r *Registry) All() []*model.LinkRegistryItem {
	return append([]*model.LinkRegistryItem(nil), r.items...)
}

// GenUniqueIfname returns "ifs.tmp.<6-hex-chars>" guaranteed not to
// collide across all tracked namespaces (§4.3, §8 property 3).
func (r *Registry) GenUniqueIfname() (string, error) {
	for attempt := 0; attempt < 64; attempt++ {
		buf := make([]byte, 3)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating random ifname suffix: %w", err)
		}
		name := "ifs.tmp." + hex.EncodeToString(buf)
		if len(r.GetLink(model.LinkFilter{IfName: name})) == 0 {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique temporary ifname after 64 attempts")
}
