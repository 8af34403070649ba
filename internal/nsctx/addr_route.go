package nsctx

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// EnumerateAddresses lists every address on ifindex (§4.1 enumerate_addresses).
func (nc *NamespaceContext) EnumerateAddresses(ifindex int) ([]netlink.Addr, error) {
	link, err := nc.handle.LinkByIndex(ifindex)
	if err != nil {
		return nil, fmt.Errorf("resolving ifindex %d: %w", ifindex, err)
	}
	addrs, err := nc.handle.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("listing addresses on %s: %w", link.Attrs().Name, err)
	}
	return addrs, nil
}

func (nc *NamespaceContext) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	if err := nc.handle.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("adding address %s to %s: %w", addr.IPNet, link.Attrs().Name, err)
	}
	return nil
}

func (nc *NamespaceContext) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	if err := nc.handle.AddrDel(link, addr); err != nil {
		return fmt.Errorf("removing address %s from %s: %w", addr.IPNet, link.Attrs().Name, err)
	}
	return nil
}

// EnumerateRoutes lists every route in family across all tables (§4.1
// enumerate_routes). The route reconciler (internal/reconcile/route)
// groups the result per table itself, per §4.4 "Routes: Grouped per table".
func (nc *NamespaceContext) EnumerateRoutes(family int) ([]netlink.Route, error) {
	routes, err := nc.handle.RouteListFiltered(family, &netlink.Route{}, 0)
	if err != nil {
		return nil, fmt.Errorf("listing routes (family %d) in %q: %w", family, nsDisplay(nc.Name), err)
	}
	return routes, nil
}

func (nc *NamespaceContext) RouteAdd(route *netlink.Route) error {
	if err := nc.handle.RouteAdd(route); err != nil {
		return fmt.Errorf("adding route %s: %w", route.Dst, err)
	}
	return nil
}

func (nc *NamespaceContext) RouteReplace(route *netlink.Route) error {
	if err := nc.handle.RouteReplace(route); err != nil {
		return fmt.Errorf("replacing route %s: %w", route.Dst, err)
	}
	return nil
}

func (nc *NamespaceContext) RouteDel(route *netlink.Route) error {
	if err := nc.handle.RouteDel(route); err != nil {
		return fmt.Errorf("deleting route %s: %w", route.Dst, err)
	}
	return nil
}
