package nsctx

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// NUD/NTF flags named in §6.
const (
	NudNoArp     = 0x40
	NudPermanent = 0x80
	NtfSelf      = 0x02
)

// EnumerateNeighbours lists neighbour entries on ifindex matching family
// and stateMask (§4.1 enumerate_neighbours).
func (nc *NamespaceContext) EnumerateNeighbours(ifindex, family, stateMask int) ([]netlink.Neigh, error) {
	all, err := nc.handle.NeighList(ifindex, family)
	if err != nil {
		return nil, fmt.Errorf("listing neighbours on ifindex %d: %w", ifindex, err)
	}
	if stateMask == 0 {
		return all, nil
	}
	out := all[:0]
	for _, n := range all {
		if n.State&stateMask != 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

// NeighReplace adds/updates a permanent neighbour entry (§4.1 neigh_replace,
// §4.4 Neighbours: "Add/replace with state=PERMANENT").
func (nc *NamespaceContext) NeighReplace(n *netlink.Neigh) error {
	n.State = NudPermanent
	if err := nc.handle.NeighSet(n); err != nil {
		return fmt.Errorf("replacing neighbour %s: %w", n.IP, err)
	}
	return nil
}

func (nc *NamespaceContext) NeighDel(n *netlink.Neigh) error {
	if err := nc.handle.NeighDel(n); err != nil {
		return fmt.Errorf("deleting neighbour %s: %w", n.IP, err)
	}
	return nil
}

// EnumerateFDB lists FDB entries on ifindex (§4.1 enumerate_fdb).
func (nc *NamespaceContext) EnumerateFDB(ifindex int) ([]netlink.Neigh, error) {
	// FDB entries are NDA family AF_BRIDGE neighbour entries.
	entries, err := nc.handle.NeighList(ifindex, netlink.FAMILY_BRIDGE)
	if err != nil {
		return nil, fmt.Errorf("listing fdb on ifindex %d: %w", ifindex, err)
	}
	return entries, nil
}

// FdbAppend adds an FDB entry (§4.1 fdb_append).
func (nc *NamespaceContext) FdbAppend(n *netlink.Neigh) error {
	if err := nc.handle.NeighAppend(n); err != nil {
		return fmt.Errorf("appending fdb entry %s: %w", n.HardwareAddr, err)
	}
	return nil
}

func (nc *NamespaceContext) FdbDel(n *netlink.Neigh) error {
	if err := nc.handle.NeighDel(n); err != nil {
		return fmt.Errorf("deleting fdb entry %s: %w", n.HardwareAddr, err)
	}
	return nil
}
