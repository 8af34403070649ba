package nsctx

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// EnumerateRules lists routing-policy rules for family (§4.1 enumerate_rules).
func (nc *NamespaceContext) EnumerateRules(family int) ([]netlink.Rule, error) {
	rules, err := nc.handle.RuleList(family)
	if err != nil {
		return nil, fmt.Errorf("listing rules (family %d) in %q: %w", family, nsDisplay(nc.Name), err)
	}
	return rules, nil
}

func (nc *NamespaceContext) RuleAdd(rule *netlink.Rule) error {
	if err := nc.handle.RuleAdd(rule); err != nil {
		return fmt.Errorf("adding rule priority %d: %w", rule.Priority, err)
	}
	return nil
}

func (nc *NamespaceContext) RuleDel(rule *netlink.Rule) error {
	if err := nc.handle.RuleDel(rule); err != nil {
		return fmt.Errorf("deleting rule priority %d: %w", rule.Priority, err)
	}
	return nil
}

// EnumerateQdiscs lists qdiscs on ifindex (§4.1 enumerate_qdiscs).
func (nc *NamespaceContext) EnumerateQdiscs(ifindex int) ([]netlink.Qdisc, error) {
	link, err := nc.handle.LinkByIndex(ifindex)
	if err != nil {
		return nil, fmt.Errorf("resolving ifindex %d: %w", ifindex, err)
	}
	qdiscs, err := nc.handle.QdiscList(link)
	if err != nil {
		return nil, fmt.Errorf("listing qdiscs on %s: %w", link.Attrs().Name, err)
	}
	return qdiscs, nil
}

// EnumerateFilters lists filters at (ifindex, parent) (§4.1 enumerate_filters).
func (nc *NamespaceContext) EnumerateFilters(ifindex int, parent uint32) ([]netlink.Filter, error) {
	link, err := nc.handle.LinkByIndex(ifindex)
	if err != nil {
		return nil, fmt.Errorf("resolving ifindex %d: %w", ifindex, err)
	}
	filters, err := nc.handle.FilterList(link, parent)
	if err != nil {
		return nil, fmt.Errorf("listing filters on %s parent 0x%x: %w", link.Attrs().Name, parent, err)
	}
	return filters, nil
}

func (nc *NamespaceContext) QdiscAdd(q netlink.Qdisc) error {
	if err := nc.handle.QdiscAdd(q); err != nil {
		return fmt.Errorf("adding qdisc %s: %w", q.Type(), err)
	}
	return nil
}

func (nc *NamespaceContext) QdiscChange(q netlink.Qdisc) error {
	if err := nc.handle.QdiscChange(q); err != nil {
		return fmt.Errorf("changing qdisc %s: %w", q.Type(), err)
	}
	return nil
}

func (nc *NamespaceContext) QdiscDel(q netlink.Qdisc) error {
	if err := nc.handle.QdiscDel(q); err != nil {
		return fmt.Errorf("deleting qdisc %s: %w", q.Type(), err)
	}
	return nil
}

func (nc *NamespaceContext) FilterReplace(f netlink.Filter) error {
	if err := nc.handle.FilterReplace(f); err != nil {
		return fmt.Errorf("replacing filter: %w", err)
	}
	return nil
}

// FilterDel deletes a filter identified by (index, info, parent), matching
// §6 "RTM_DELTFILTER by (index, info, parent)".
func (nc *NamespaceContext) FilterDel(f netlink.Filter) error {
	if err := nc.handle.FilterDel(f); err != nil {
		return fmt.Errorf("deleting filter: %w", err)
	}
	return nil
}
