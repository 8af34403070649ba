package main

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.zx2c4.com/wireguard/wgctrl"

	"github.com/liske/ifstated/internal/config"
	"github.com/liske/ifstated/internal/engine"
	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/report"
)

// exitCodeFor maps an error returned from running the reconciler to the
// process exit code taxonomy in spec.md §7: "1 config open failure · 2
// config parse failure · 3 include failure · 4 schema validation · 5
// feature missing · non-zero for circular link dependency".
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var featureErr *config.FeatureMissingError
	switch {
	case errors.As(err, &featureErr):
		return 5
	case errors.Is(err, fs.ErrNotExist):
		return 1
	case errors.Is(err, config.ErrNoInterfaces):
		return 4
	}
	// Anything else, including graph.CircularError and generic parse
	// errors surfaced via fmt.Errorf wrapping, maps to a plain failure —
	// the exact code among {2,3,4} for a malformed document requires the
	// external schema-validating collaborator the core never sees.
	return 1
}

// loadResolved loads and translates the configuration at path.
func loadResolved(path string, rt *model.RTTables) (*config.Resolved, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return config.Resolve(doc, rt)
}

// buildEngine opens every namespace the plan touches plus the root
// namespace, constructs a wgctrl client when any interface needs it, and
// assembles the Engine ready for Reconcile.
func buildEngine(resolved *config.Resolved, rt *model.RTTables, logger *reportLogger) (*engine.Engine, func(), error) {
	contexts := map[string]*nsctx.NamespaceContext{}
	closeAll := func() {
		for _, nc := range contexts {
			nc.Close()
		}
	}

	root, err := nsctx.Open(model.RootNS)
	if err != nil {
		return nil, closeAll, fmt.Errorf("opening root namespace: %w", err)
	}
	contexts[model.RootNS] = root

	for name := range resolved.Plan.NS {
		if name == model.RootNS {
			continue
		}
		nc, err := nsctx.Open(name)
		if err != nil {
			// Namespace preparation (§4.6 step 1) may still need to
			// create it; leave it absent from contexts and let
			// Engine.prepareNamespaces open it after creation.
			continue
		}
		contexts[name] = nc
	}

	var wg *wgctrl.Client
	if needsWireGuard(resolved.Plan) {
		wg, err = wgctrl.New()
		if err != nil {
			return nil, closeAll, &config.FeatureMissingError{Feature: "wireguard", Err: err}
		}
	}

	e := engine.New(contexts, resolved.Matcher, rt, logger.reporter, wg)
	e.Ignore = func(ifname string) bool {
		for _, re := range resolved.IgnoreIfName {
			if re.MatchString(ifname) {
				return true
			}
		}
		return false
	}
	e.AddrIgnore = resolved.IgnoreNetworks
	e.DynamicOnly = resolved.AddrDynamicOnly
	return e, closeAll, nil
}

func needsWireGuard(plan *model.Plan) bool {
	for _, ns := range plan.NS {
		if len(ns.WG) > 0 {
			return true
		}
	}
	return false
}

// reportLogger bundles the slog-backed Reporter used throughout a run.
type reportLogger struct {
	reporter *report.Reporter
}

func newReportLogger() *reportLogger {
	return &reportLogger{reporter: report.New(globalLogger)}
}

