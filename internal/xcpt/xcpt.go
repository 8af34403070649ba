// Package xcpt implements C8, the ExceptionCollector: per-link error
// aggregation that controls whether the engine retries or recreates a
// link (spec.md §4.8, §7).
package xcpt

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Entry is one {op, error, args} triple recorded against a link (§4.8).
type Entry struct {
	Op    string
	Err   error
	Args  map[string]any
}

// Collector aggregates Entry values for a single link across one
// reconciliation pass.
type Collector struct {
	entries []Entry
	quiet   bool
}

// New returns an empty Collector. quiet marks the collector as belonging
// to a quiet pass (§4.8 "quiet mode"); the Collector only stores the flag
// and reports it through Quiet(), it does not filter or suppress entries.
func New(quiet bool) *Collector {
	return &Collector{quiet: quiet}
}

// Add records one error against op.
func (c *Collector) Add(op string, err error, args map[string]any) {
	c.entries = append(c.entries, Entry{Op: op, Err: err, Args: args})
}

// Quiet reports whether this collector is in quiet mode.
func (c *Collector) Quiet() bool {
	return c.quiet
}

// Entries returns every recorded entry.
func (c *Collector) Entries() []Entry {
	return c.entries
}

// Empty reports whether no errors were recorded.
func (c *Collector) Empty() bool {
	return len(c.entries) == 0
}

// HasOp reports whether any entry was recorded for op.
func (c *Collector) HasOp(op string) bool {
	for _, e := range c.entries {
		if e.Op == op {
			return true
		}
	}
	return false
}

// HasErrno reports whether any entry's error unwraps to the given errno.
// code==17 (EEXIST) is the one that triggers a retry per §4.8/§7.
func (c *Collector) HasErrno(code unix.Errno) bool {
	for _, e := range c.entries {
		var errno unix.Errno
		if errors.As(e.Err, &errno) && errno == code {
			return true
		}
	}
	return false
}

// ShouldRetry implements the §7/§4.8 policy: retry-then-recreate is
// triggered when an update returned EEXIST, or (by the caller passing
// settingsUnchanged) when a settings diff remained after apply.
func (c *Collector) ShouldRetry(settingsUnchanged bool) bool {
	return c.HasErrno(unix.EEXIST) || settingsUnchanged
}
