// Package rule implements the policy-rule reconciler from spec.md §4.4:
// rules matched by (priority, iif, oif, dst, metric, protocol), actions
// translated symbolic<->numeric via model.RuleAction.
package rule

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

type Options struct {
	Family int
	DryRun bool
}

// Reconcile diffs desired rules against the kernel's live rules in
// family and applies the difference (§4.4 Rules).
func Reconcile(nc *nsctx.NamespaceContext, desired map[model.RuleKey]model.Rule, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := nc.EnumerateRules(opts.Family)
	if err != nil {
		return fmt.Errorf("enumerating rules: %w", err)
	}

	liveByKey := make(map[model.RuleKey]netlink.Rule, len(live))
	for _, r := range live {
		liveByKey[ruleKey(r)] = r
	}

	for key, want := range desired {
		if live, ok := liveByKey[key]; ok {
			if sameRule(live, want) {
				rep.Line(report.OK, "rule", "priority", key.Priority)
				delete(liveByKey, key)
				continue
			}
			// Rules have no in-place update; replace by delete+add.
			rep.Line(report.Change, "rule", "priority", key.Priority)
			if !opts.DryRun {
				old := live
				if err := nc.RuleDel(&old); err != nil {
					coll.Add("rule_del", err, map[string]any{"priority": key.Priority})
				}
			}
			delete(liveByKey, key)
		} else {
			rep.Line(report.Add, "rule", "priority", key.Priority)
		}
		if opts.DryRun {
			continue
		}
		nr := toNetlinkRule(key, want)
		if err := nc.RuleAdd(nr); err != nil {
			coll.Add("rule_add", err, map[string]any{"priority": key.Priority})
			rep.Line(report.Warn, "rule", "priority", key.Priority, "error", err.Error())
		}
	}

	for key, r := range liveByKey {
		rep.Line(report.Del, "rule", "priority", key.Priority)
		if opts.DryRun {
			continue
		}
		rr := r
		if err := nc.RuleDel(&rr); err != nil {
			coll.Add("rule_del", err, map[string]any{"priority": key.Priority})
			rep.Line(report.Warn, "rule", "priority", key.Priority, "error", err.Error())
		}
	}

	return nil
}

func ruleKey(r netlink.Rule) model.RuleKey {
	dst := ""
	if r.Dst != nil {
		dst = r.Dst.String()
	}
	return model.RuleKey{
		Priority: r.Priority,
		Family:   r.Family,
		IIF:      r.IifName,
		OIF:      r.OifName,
		Dst:      dst,
		Metric:   derefInt(r.Goto),
		Protocol: 0,
	}
}

func derefInt(v int) int { return v }

func sameRule(live netlink.Rule, want model.Rule) bool {
	if want.Table != 0 && live.Table != want.Table {
		return false
	}
	return true
}

func toNetlinkRule(key model.RuleKey, want model.Rule) *netlink.Rule {
	r := netlink.NewRule()
	r.Priority = key.Priority
	r.Family = key.Family
	r.IifName = key.IIF
	r.OifName = key.OIF
	r.Table = want.Table
	if key.Dst != "" {
		if _, dst, err := net.ParseCIDR(key.Dst); err == nil {
			r.Dst = dst
		}
	}
	return r
}
