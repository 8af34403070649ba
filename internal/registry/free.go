package registry

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
)

// FreeItem is invoked by the orphan sweep (§4.6 step 3) on a registry item
// with no bound model. Virtual links (kind != physical) are brought down
// and deleted; physical links are brought down (idempotent) and marked
// orphan=true so a later model may still bind them by
// (kind=physical, ifname, orphan=true) — e.g. a physical interface renamed
// into the configured name (§4.3 free_item, §8 property 16).
func (r *Registry) FreeItem(nc *nsctx.NamespaceContext, item *model.LinkRegistryItem, dryRun bool) error {
	link, err := nc.GetLink(item.Index, "")
	if err != nil {
		return fmt.Errorf("resolving orphan %s (index %d): %w", item.IfName, item.Index, err)
	}

	if item.Kind != model.KindPhysical {
		if dryRun {
			return nil
		}
		if err := nc.LinkSetDown(link); err != nil {
			return fmt.Errorf("bringing down orphan %s before delete: %w", item.IfName, err)
		}
		if err := nc.LinkDel(link); err != nil {
			return fmt.Errorf("deleting orphan %s: %w", item.IfName, err)
		}
		for i, it := range r.items {
			if it == item {
				r.removeIndex(i)
				break
			}
		}
		return nil
	}

	if !dryRun {
		if err := downIdempotent(nc, link); err != nil {
			return fmt.Errorf("bringing down orphan physical link %s: %w", item.IfName, err)
		}
	}
	item.Orphan = true
	item.Model = nil
	return nil
}

func downIdempotent(nc *nsctx.NamespaceContext, link netlink.Link) error {
	if link.Attrs().Flags&netlink.FlagUp == 0 {
		return nil
	}
	return nc.LinkSetDown(link)
}
