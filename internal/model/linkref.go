package model

// LinkRef is the pair (ifname, ns_name) used as the node identifier in the
// dependency graph (§3 "LinkRef").
type LinkRef struct {
	IfName string
	NS     string
}

// LinkRefLess implements the LinkRef total order from §3: the root
// namespace (empty name) sorts first; within a namespace `lo` sorts
// first, then lexicographic by ifname; namespaces otherwise sort
// lexicographically.
func LinkRefLess(a, b LinkRef) bool {
	if a.NS != b.NS {
		if a.NS == RootNS {
			return true
		}
		if b.NS == RootNS {
			return false
		}
		return a.NS < b.NS
	}
	if a.IfName == b.IfName {
		return false
	}
	if a.IfName == "lo" {
		return true
	}
	if b.IfName == "lo" {
		return false
	}
	return a.IfName < b.IfName
}
