// Package report implements the user-visible output contract from
// spec.md §7: structured log lines with a style tag (ok, add, change,
// del, warn, err), an optional interface/netns prefix, and an option
// name, so the output stays greppable and colorable.
package report

import "log/slog"

// Style is one of the §7 style tags.
type Style string

const (
	OK     Style = "ok"
	Add    Style = "add"
	Change Style = "change"
	Del    Style = "del"
	Warn   Style = "warn"
	Err    Style = "err"
)

// Reporter wraps a *slog.Logger with the style/prefix/option shape every
// reconciler emits lines in. Grounded on cmd/bamgate/main.go's slog
// construction and the internal/agent/internal/bridge "logger.With"
// component-scoping pattern.
type Reporter struct {
	log *slog.Logger
}

// New returns a Reporter writing through log.
func New(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

// For scopes a Reporter to one interface within one namespace, the
// "interface/netns prefix" of §7.
func (r *Reporter) For(ifname, ns string) *Reporter {
	return &Reporter{log: r.log.With("iface", ifname, "netns", displayNS(ns))}
}

func displayNS(ns string) string {
	if ns == "" {
		return "(root)"
	}
	return ns
}

// Line emits one style-tagged, option-named output line (§7).
func (r *Reporter) Line(style Style, option string, args ...any) {
	attrs := append([]any{"style", string(style), "option", option}, args...)
	switch style {
	case Warn:
		r.log.Warn(option, attrs...)
	case Err:
		r.log.Error(option, attrs...)
	default:
		r.log.Info(option, attrs...)
	}
}
