// Package sysctl implements the sysctl reconciler from spec.md §4.4: for
// each (family, key, value), read /proc/sys/net/<family>/conf/<ifname>/
// <key>, and write the new value in apply mode if it differs. Reads and
// writes happen while the namespace is entered (§4.4, §5).
package sysctl

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

// perLinkPath builds /proc/sys/net/<family>/conf/<ifname>/<key> (§6).
func perLinkPath(family, ifname, key string) string {
	return path.Join("/proc/sys/net", family, "conf", ifname, key)
}

// globalPath builds /proc/sys/net/<proto>/<key> (§6).
func globalPath(proto, key string) string {
	return path.Join("/proc/sys/net", proto, key)
}

type Options struct {
	DryRun bool
}

// ReconcileLink reconciles the per-interface sysctl settings for one
// link, including the "all" and "default" pseudo-interfaces which are
// reconciled once per namespace before per-link settings (§4.4 Sysctl).
func ReconcileLink(nc *nsctx.NamespaceContext, ifname string, desired map[model.SysctlKey]model.SysctlSetting, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	return nc.EnterScoped(func() error {
		for key, setting := range desired {
			p := perLinkPath(key.Family, ifname, key.Key)
			if err := writeIfDiffers(p, setting.Value, opts.DryRun, rep, coll, "sysctl"); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReconcileGlobal reconciles the namespace-wide (non-per-interface)
// sysctl collection, once per namespace (§4.4 Sysctl "Global").
func ReconcileGlobal(nc *nsctx.NamespaceContext, desired map[model.SysctlKey]model.SysctlSetting, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	return nc.EnterScoped(func() error {
		for key, setting := range desired {
			p := globalPath(key.Family, key.Key)
			if err := writeIfDiffers(p, setting.Value, opts.DryRun, rep, coll, "sysctl_global"); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReconcilePseudo reconciles the "all" and "default" pseudo-interfaces in
// ns before per-link sysctls are applied (§4.4: "Separate 'all' and
// 'default' pseudo-interfaces are reconciled once per namespace before
// per-link settings").
func ReconcilePseudo(nc *nsctx.NamespaceContext, all, def map[model.SysctlKey]model.SysctlSetting, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	if err := ReconcileLink(nc, "all", all, opts, rep, coll); err != nil {
		return err
	}
	return ReconcileLink(nc, "default", def, opts, rep, coll)
}

func writeIfDiffers(p, want string, dryRun bool, rep *report.Reporter, coll *xcpt.Collector, op string) error {
	cur, err := readSysctl(p)
	if err != nil {
		rep.Line(report.Warn, op, "path", p, "error", err.Error())
		coll.Add(op, err, map[string]any{"path": p})
		return nil // IoTransient: logged as warning, rest of pass continues (§7)
	}

	if cur == want {
		rep.Line(report.OK, op, "path", p)
		return nil
	}

	rep.Line(report.Change, op, "path", p, "from", cur, "to", want)
	if dryRun {
		return nil
	}
	if err := os.WriteFile(p, []byte(want), 0o644); err != nil {
		rep.Line(report.Warn, op, "path", p, "error", err.Error())
		coll.Add(op, err, map[string]any{"path": p})
	}
	return nil
}

func readSysctl(p string) (string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}
	return strings.TrimSpace(string(b)), nil
}
