package nsctx

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// LinkAttrs is the minimal set of link attributes the engine needs to
// create or modify a link; kind-specific attributes are carried by the
// netlink.Link value itself (built by internal/engine/kind.go's capability
// table per variant, per spec.md §9 "Dynamic dispatch by kind").
type LinkAttrs struct {
	Name   string
	MTU    int
	HWAddr []byte
	Up     bool
	Master int // ifindex, 0 for none
	Group  int
}

// EnumerateLinks lists every link currently present in this namespace
// (§4.1 enumerate_links).
func (nc *NamespaceContext) EnumerateLinks() ([]netlink.Link, error) {
	links, err := nc.handle.LinkList()
	if err != nil {
		return nil, fmt.Errorf("listing links in %q: %w", nsDisplay(nc.Name), err)
	}
	return links, nil
}

// GetLink resolves a single link by index or name (§4.1 get_link).
func (nc *NamespaceContext) GetLink(index int, ifname string) (netlink.Link, error) {
	if index > 0 {
		return nc.handle.LinkByIndex(index)
	}
	return nc.handle.LinkByName(ifname)
}

// LinkAdd creates link (§4.1 link_add).
func (nc *NamespaceContext) LinkAdd(link netlink.Link) error {
	if err := nc.handle.LinkAdd(link); err != nil {
		return fmt.Errorf("adding link %s: %w", link.Attrs().Name, err)
	}
	return nil
}

// LinkDel destroys link (§4.1 link_del).
func (nc *NamespaceContext) LinkDel(link netlink.Link) error {
	if err := nc.handle.LinkDel(link); err != nil {
		return fmt.Errorf("deleting link %s: %w", link.Attrs().Name, err)
	}
	return nil
}

// LinkSetUp/LinkSetDown implement the "state=up/down" half of link_set.
func (nc *NamespaceContext) LinkSetUp(link netlink.Link) error {
	if err := nc.handle.LinkSetUp(link); err != nil {
		return fmt.Errorf("setting %s up: %w", link.Attrs().Name, err)
	}
	return nil
}

func (nc *NamespaceContext) LinkSetDown(link netlink.Link) error {
	if err := nc.handle.LinkSetDown(link); err != nil {
		return fmt.Errorf("setting %s down: %w", link.Attrs().Name, err)
	}
	return nil
}

// LinkSetMaster implements the "master=..." half of link_set.
func (nc *NamespaceContext) LinkSetMaster(link, master netlink.Link) error {
	if master == nil {
		if err := nc.handle.LinkSetNoMaster(link); err != nil {
			return fmt.Errorf("clearing master of %s: %w", link.Attrs().Name, err)
		}
		return nil
	}
	if err := nc.handle.LinkSetMaster(link, master); err != nil {
		return fmt.Errorf("setting master of %s to %s: %w", link.Attrs().Name, master.Attrs().Name, err)
	}
	return nil
}

// LinkSetMTU, LinkSetHardwareAddr implement the remaining link_set knobs
// the engine issues per-attribute (§4.4 general contract: "any remaining
// mismatch produces a replace/change").
func (nc *NamespaceContext) LinkSetMTU(link netlink.Link, mtu int) error {
	if err := nc.handle.LinkSetMTU(link, mtu); err != nil {
		return fmt.Errorf("setting MTU of %s to %d: %w", link.Attrs().Name, mtu, err)
	}
	return nil
}

func (nc *NamespaceContext) LinkSetHardwareAddr(link netlink.Link, addr []byte) error {
	if err := nc.handle.LinkSetHardwareAddr(link, addr); err != nil {
		return fmt.Errorf("setting hwaddr of %s: %w", link.Attrs().Name, err)
	}
	return nil
}

func (nc *NamespaceContext) LinkSetName(link netlink.Link, name string) error {
	if err := nc.handle.LinkSetName(link, name); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", link.Attrs().Name, name, err)
	}
	return nil
}

func (nc *NamespaceContext) LinkSetGroup(link netlink.Link, group int) error {
	if err := nc.handle.LinkSetGroup(link, group); err != nil {
		return fmt.Errorf("setting group of %s to %d: %w", link.Attrs().Name, group, err)
	}
	return nil
}

// LinkSetNsFd moves link into the namespace identified by fd, implementing
// the netns-migration half of link_set (§4.6 "issue link set netns=...").
func (nc *NamespaceContext) LinkSetNsFd(link netlink.Link, fd int) error {
	if err := nc.handle.LinkSetNsFd(link, fd); err != nil {
		return fmt.Errorf("moving %s to namespace fd %d: %w", link.Attrs().Name, fd, err)
	}
	return nil
}

// AltNames returns the link's IFLA_PROP_LIST alternative names, used by
// altname conflict prevention (§4.6).
func AltNames(link netlink.Link) []string {
	return link.Attrs().AltNames
}

// PropertyDelAltName removes an alternative name from link, used right
// before a rename that would otherwise collide with it (§4.6 "Altname
// conflict prevention").
func (nc *NamespaceContext) PropertyDelAltName(link netlink.Link, altName string) error {
	if err := nc.handle.LinkDelAltName(link.Attrs().Name, altName); err != nil {
		return fmt.Errorf("removing altname %s from %s: %w", altName, link.Attrs().Name, err)
	}
	return nil
}
