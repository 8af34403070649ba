package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// bindMountPath is the on-disk location of a link's bind-namespace mount
// identity (§3 bind_netns, §9 "/run/libifstate/bind/<ifindex>.mount" plus
// the per-namespace variant for non-root owning namespaces).
func bindMountPath(owningNS string, ifindex int) string {
	if owningNS == model.RootNS {
		return fmt.Sprintf("/run/libifstate/bind/%d.mount", ifindex)
	}
	return fmt.Sprintf("/run/libifstate/netns/%s/bind/%d.mount", owningNS, ifindex)
}

// recordBindMount captures bindNC's current mount identity and persists it
// against the link's final ifindex in its owning namespace, so a later pass
// can detect that bind_netns has since changed out from under it.
func (e *Engine) recordBindMount(bindNC *nsctx.NamespaceContext, owningNS string, ifindex int) error {
	var mountID string
	err := bindNC.EnterScoped(func() error {
		id, err := nsctx.SelfMountID()
		if err != nil {
			return err
		}
		mountID = id
		return nil
	})
	if err != nil {
		return fmt.Errorf("capturing bind mount identity: %w", err)
	}

	path := bindMountPath(owningNS, ifindex)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("preparing bind mount record directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(mountID), 0o644); err != nil {
		return fmt.Errorf("writing bind mount record: %w", err)
	}
	return nil
}

// bindNetnsDrifted reports whether lm's current bind_netns no longer
// matches the mount identity recorded the last time this link was created
// or recreated (§4.6 step 5 "if bind_netns differs from the stored bind
// mount, schedule recreate"). Absence of a prior record is not drift: the
// link predates bind-mount tracking, or was never created through this
// path, and is left alone rather than churned.
func (e *Engine) bindNetnsDrifted(lm *model.LinkModel, ifindex int) (bool, error) {
	stored, err := os.ReadFile(bindMountPath(lm.NS, ifindex))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading bind mount record for %s: %w", lm.IfName, err)
	}

	bindNC, ok := e.Contexts[lm.BindNetns]
	if !ok {
		return false, fmt.Errorf("bind_netns %s for link %s is not prepared", nsDisplay(lm.BindNetns), lm.IfName)
	}
	var current string
	err = bindNC.EnterScoped(func() error {
		id, err := nsctx.SelfMountID()
		if err != nil {
			return err
		}
		current = id
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("capturing bind mount identity of %s: %w", nsDisplay(lm.BindNetns), err)
	}

	return string(stored) != current, nil
}

// recreateInBindNetns implements the destroy-then-recreate-in-bind_netns
// half of the drift response: the live link is deleted from its owning
// namespace, rebuilt in bind_netns, and moved back.
func (e *Engine) recreateInBindNetns(item *model.LinkRegistryItem, lm *model.LinkModel, nc *nsctx.NamespaceContext, rep *report.Reporter, coll *xcpt.Collector) error {
	kcap := capabilityFor(lm.Kind)
	if !kcap.CanCreate {
		return nil
	}

	live, err := nc.GetLink(item.Index, "")
	if err != nil {
		return fmt.Errorf("resolving link %s for bind_netns recreate: %w", lm.IfName, err)
	}
	if err := nc.LinkDel(live); err != nil {
		return fmt.Errorf("deleting link %s for bind_netns recreate: %w", lm.IfName, err)
	}

	bindNC, ok := e.Contexts[lm.BindNetns]
	if !ok {
		return fmt.Errorf("bind_netns %s for link %s is not prepared", nsDisplay(lm.BindNetns), lm.IfName)
	}
	built := kcap.Build(lm)
	if err := bindNC.LinkAdd(built); err != nil {
		coll.Add("link_add", err, map[string]any{"ifname": lm.IfName})
		return fmt.Errorf("recreating link %s in bind namespace %s: %w", lm.IfName, nsDisplay(lm.BindNetns), err)
	}
	recreated, err := bindNC.GetLink(0, lm.IfName)
	if err != nil {
		return fmt.Errorf("resolving recreated link %s: %w", lm.IfName, err)
	}

	if err := e.recordBindMount(bindNC, lm.NS, recreated.Attrs().Index); err != nil {
		rep.Line(report.Warn, "link", "error", err.Error())
	}

	if err := bindNC.LinkSetNsFd(recreated, nc.FD()); err != nil {
		coll.Add("link_set_netns", err, map[string]any{"ifname": lm.IfName})
		return fmt.Errorf("moving recreated link %s to %s: %w", lm.IfName, nsDisplay(lm.NS), err)
	}
	final, err := nc.GetLink(0, lm.IfName)
	if err != nil {
		return fmt.Errorf("resolving link %s after bind_netns recreate: %w", lm.IfName, err)
	}
	item.Index = final.Attrs().Index
	return nil
}

// movePeer relocates a freshly created veth's peer end into its configured
// peer_netns (§3 PeerNS, Scenario S2: "link add veth0 type veth peer name
// veth1 in root, then link set veth1 netns app").
func (e *Engine) movePeer(createNC *nsctx.NamespaceContext, lm *model.LinkModel, coll *xcpt.Collector) error {
	peerNC, ok := e.Contexts[lm.PeerNS]
	if !ok {
		return fmt.Errorf("peer_netns %s for link %s peer %s is not prepared", nsDisplay(lm.PeerNS), lm.IfName, lm.Peer)
	}
	peer, err := createNC.GetLink(0, lm.Peer)
	if err != nil {
		return fmt.Errorf("resolving peer %s of link %s for move: %w", lm.Peer, lm.IfName, err)
	}
	if err := createNC.LinkSetNsFd(peer, peerNC.FD()); err != nil {
		coll.Add("link_set_netns", err, map[string]any{"ifname": lm.Peer})
		return fmt.Errorf("moving peer %s to namespace %s: %w", lm.Peer, nsDisplay(lm.PeerNS), err)
	}
	return nil
}
