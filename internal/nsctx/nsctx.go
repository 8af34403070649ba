// Package nsctx implements C1, the NamespaceContext: the per-namespace
// handle bundle spec.md §4.1 describes — a netlink socket, a sysctl root,
// and the small per-namespace caches (permaddr, businfo) the registry owns
// lazily (§4.6 "Shared resource policy").
//
// The netlink wire encoding itself is explicitly out of the core's scope
// (spec.md §1: "treated as an opaque netlink collaborator providing typed
// operations listed in §6"). That collaborator is implemented here on top
// of github.com/vishvananda/netlink and github.com/vishvananda/netns, the
// libraries _examples/other_examples/manifests/jy-tan-manta and
// .../annis-souames-atomicni both depend on directly for exactly this job.
package nsctx

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// NamespaceContext bundles one namespace's netlink handle with the caches
// the registry and reconcilers share (§4.1, §4.6).
type NamespaceContext struct {
	Name string

	handle *netlink.Handle
	nsHandle netns.NsHandle

	mu          sync.Mutex
	permAddr    map[string]string // ifname -> permanent hw address, lazily populated
	busInfo     map[string]string // ifname -> bus-info, lazily populated
	nsidByPeer  map[string]uint32 // peer namespace name -> locally-allocated nsid
}

// Open returns a NamespaceContext bound to the named namespace. name ==
// model.RootNS opens the caller's initial namespace.
func Open(name string) (*NamespaceContext, error) {
	var nsh netns.NsHandle
	var err error

	if name == "" {
		nsh, err = netns.Get()
	} else {
		nsh, err = netns.GetFromName(name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening namespace %q: %w", nsDisplay(name), err)
	}

	h, err := netlink.NewHandleAt(nsh)
	if err != nil {
		nsh.Close()
		return nil, fmt.Errorf("opening netlink handle in namespace %q: %w", nsDisplay(name), err)
	}

	return &NamespaceContext{
		Name:       name,
		handle:     h,
		nsHandle:   nsh,
		permAddr:   make(map[string]string),
		busInfo:    make(map[string]string),
		nsidByPeer: make(map[string]uint32),
	}, nil
}

func nsDisplay(name string) string {
	if name == "" {
		return "(root)"
	}
	return name
}

// Close releases the underlying netlink socket and namespace handle.
func (nc *NamespaceContext) Close() {
	nc.handle.Close()
	nc.nsHandle.Close()
}

// Handle returns the raw vishvananda/netlink handle for operations not yet
// wrapped by a typed method below.
func (nc *NamespaceContext) Handle() *netlink.Handle {
	return nc.handle
}

// FD returns this namespace's file descriptor, the handle LinkSetNsFd
// needs to move a link into it (§4.6 step 5).
func (nc *NamespaceContext) FD() int {
	return int(nc.nsHandle)
}

// EnterScoped enters this namespace for the current OS thread for the
// duration of fn, and guarantees restoration to the original namespace on
// every exit path (§4.1 "Scoped acquisition", §5 "scoped-acquisition of
// the target namespace with guaranteed restoration on all exit paths").
//
// Used for operations that are not netlink round-trips: /proc/sys reads
// and writes, the ethtool binary, and the bind-namespace mount identity.
func (nc *NamespaceContext) EnterScoped(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return fmt.Errorf("capturing original namespace: %w", err)
	}
	defer orig.Close()

	if err := netns.Set(nc.nsHandle); err != nil {
		return fmt.Errorf("entering namespace %q: %w", nsDisplay(nc.Name), err)
	}
	defer func() {
		_ = netns.Set(orig) // best effort restore; the caller's thread is pinned either way
	}()

	return fn()
}

// MountID returns the mount-identity blob used to recognize whether a
// link claiming to live in this namespace is still physically in it
// across reconciliation cycles (§3 NS, §9 "bind-namespace mount identity").
// It is the target of /proc/<pid>/ns/net, matching the original's
// os.readlink-based identity check.
func MountID(pid int) (string, error) {
	path := fmt.Sprintf("/proc/%d/ns/net", pid)
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("reading mount identity of pid %d: %w", pid, err)
	}
	return target, nil
}

// SelfMountID is MountID for the calling process, used right after a
// link_add into a bind_netns to record the creation namespace's identity.
func SelfMountID() (string, error) {
	return MountID(os.Getpid())
}
