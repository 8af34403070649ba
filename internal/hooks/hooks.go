// Package hooks implements C9, the HookRunner: resolving, ordering, and
// materializing wrapper scripts for external hook invocations per
// interface lifecycle event (spec.md §4.9). Invocation itself is deferred
// to the hook subsystem; this package only discovers hooks, orders them,
// and writes the wrapper.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// HookDir is the default hook script directory (§4.9).
var HookDir = "/etc/ifstate/hook.d"

// WrapperRoot is the runtime wrapper materialization root (§6). A var, not
// a const, so tests can redirect it into a temp directory.
var WrapperRoot = "/run/libifstate/hooks"

// Action is the action a wrapper is materialized for (§4.9).
type Action string

const (
	ActionCheck Action = "check"
	ActionStart Action = "start"
)

// Hook names a script under HookDir, or an absolute path, plus its
// ordering hints (§4.9 "optional provides and after lists").
type Hook struct {
	Name     string
	Path     string // absolute, or resolved against HookDir
	Provides []string
	After    []string
	Args     map[string]string
}

// Resolve returns the hook's script path, resolving a bare name against
// HookDir (§4.9 "named scripts under /etc/ifstate/hook.d/ (or absolute
// paths)").
func (h Hook) Resolve() string {
	if filepath.IsAbs(h.Path) {
		return h.Path
	}
	return filepath.Join(HookDir, h.Path)
}

// Order performs a topological ordering of hooks using their provides/
// after lists (§4.9), reusing the same Kahn's-algorithm shape as
// internal/graph.
func Order(hooks []Hook) ([]Hook, error) {
	byProvides := make(map[string][]int)
	for i, h := range hooks {
		for _, p := range h.Provides {
			byProvides[p] = append(byProvides[p], i)
		}
		byProvides[h.Name] = append(byProvides[h.Name], i)
	}

	remaining := make([]map[int]bool, len(hooks))
	for i, h := range hooks {
		deps := make(map[int]bool)
		for _, after := range h.After {
			for _, j := range byProvides[after] {
				if j != i {
					deps[j] = true
				}
			}
		}
		remaining[i] = deps
	}

	done := make(map[int]bool, len(hooks))
	var ordered []Hook
	for len(done) < len(hooks) {
		var ready []int
		for i := range hooks {
			if done[i] {
				continue
			}
			blocked := false
			for dep := range remaining[i] {
				if !done[dep] {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			return ordered, fmt.Errorf("hook ordering stalled: circular after-dependency among remaining hooks")
		}
		sort.Slice(ready, func(a, b int) bool { return hooks[ready[a]].Name < hooks[ready[b]].Name })
		for _, i := range ready {
			ordered = append(ordered, hooks[i])
			done[i] = true
		}
	}
	return ordered, nil
}

// Context is the per-invocation data substituted into the wrapper
// template (§4.9).
type Context struct {
	IfName string
	Index  int
	NetNS  string
	VRF    string // derived from IFLA_INFO_SLAVE_KIND=vrf
	Action Action
	Args   map[string]string
}

const wrapperTemplate = `#!/bin/sh
# materialized by ifstated, do not edit
export IFS_IFNAME={{.IfName}}
export IFS_INDEX={{.Index}}
export IFS_NETNS={{.NetNS}}
export IFS_VRF={{.VRF}}
export IFS_ACTION={{.Action}}
{{range $k, $v := .Args}}export IFS_ARGS_{{$k}}={{$v}}
{{end}}
exec "{{.ScriptPath}}"
`

type wrapperData struct {
	Context
	ScriptPath string
}

var tmpl = template.Must(template.New("wrapper").Parse(wrapperTemplate))

// fallbackID is used when no stable ifindex exists yet (a pre-create dry
// run), so the wrapper directory still has a unique, collision-free name
// (grounded on bamgate's transitive google/uuid dependency, promoted to
// direct use here).
func fallbackID() string {
	return uuid.NewString()[:8]
}

// Materialize writes the wrapper script for one (hook, context)
// invocation and returns its path (§4.9 "materializes a wrapper script in
// /run/libifstate/hooks/<ifindex>/<hook>/wrapper.sh... mode 0700").
func Materialize(h Hook, ctx Context) (string, error) {
	idDir := fmt.Sprintf("%d", ctx.Index)
	if ctx.Index == 0 {
		idDir = fallbackID()
	}
	dir := filepath.Join(WrapperRoot, idDir, h.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating hook wrapper dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, "wrapper.sh")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o700)
	if err != nil {
		return "", fmt.Errorf("creating hook wrapper %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, wrapperData{Context: ctx, ScriptPath: h.Resolve()}); err != nil {
		return "", fmt.Errorf("materializing hook wrapper %s: %w", path, err)
	}
	return path, nil
}

// VRFOf derives the vrf name from a link's IFLA_INFO_SLAVE_KIND when it
// equals "vrf" (§4.9).
func VRFOf(slaveKind, masterName string) string {
	if strings.EqualFold(slaveKind, "vrf") {
		return masterName
	}
	return ""
}

// Discover walks dir for hook scripts, used by the CLI/config collaborator
// to build the []Hook passed to Order; the core itself never calls this —
// it only consumes the resolved list (§4.9 "the core specifies only the
// discovery, ordering, and wrapper materialization" — discovery here
// means resolving the named/absolute script, not directory scanning,
// which remains config-collaborator territory. Kept for symmetry with
// Order/Materialize.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing hook directory %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
