package nsctx

import (
	"fmt"

	"github.com/vishvananda/netns"
	"github.com/vishvananda/netlink"
)

// UnassignedNsid is the reserved value indicating no nsid has been
// allocated yet for a peer namespace (§4.1, §6).
const UnassignedNsid = 0xFFFFFFFF

// GetNetnsID returns the local nsid this namespace has allocated for
// peerNS, allocating one on demand if it is currently unassigned (§4.1
// "The namespace-id lookup allocates a local nsid for a peer namespace on
// demand").
func (nc *NamespaceContext) GetNetnsID(peerNS string) (uint32, error) {
	nc.mu.Lock()
	if id, ok := nc.nsidByPeer[peerNS]; ok {
		nc.mu.Unlock()
		return id, nil
	}
	nc.mu.Unlock()

	peerHandle, err := netns.GetFromName(peerNS)
	if err != nil {
		return 0, fmt.Errorf("opening peer namespace %q: %w", peerNS, err)
	}
	defer peerHandle.Close()

	id, err := netlink.GetNetNsIdByFd(int(nc.nsHandle), int(peerHandle))
	if err != nil {
		return 0, fmt.Errorf("reading nsid for %q: %w", peerNS, err)
	}

	if id < 0 || uint32(id) == UnassignedNsid {
		// Re-read after allocating, per §4.1: "call set_netnsid(pid=...,
		// nsid=auto) and re-read".
		if err := netlink.SetNetNsIdByFd(int(nc.nsHandle), int(peerHandle), -1); err != nil {
			return 0, fmt.Errorf("allocating nsid for %q: %w", peerNS, err)
		}
		id, err = netlink.GetNetNsIdByFd(int(nc.nsHandle), int(peerHandle))
		if err != nil {
			return 0, fmt.Errorf("re-reading nsid for %q after allocation: %w", peerNS, err)
		}
	}

	nc.mu.Lock()
	nc.nsidByPeer[peerNS] = uint32(id)
	nc.mu.Unlock()

	return uint32(id), nil
}
