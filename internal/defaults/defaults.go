// Package defaults implements C7, the Defaults/Matcher: interface default
// profiles matched by regex against ifname/kind and merged into a
// LinkModel before the dependency graph and reconcilers see it
// (spec.md §4.7).
package defaults

import (
	"regexp"
	"sync"

	"github.com/liske/ifstated/internal/model"
)

// Predicate is one (option, regex) pair a profile's match array entry
// tests against the corresponding attribute of the query (§4.7).
type Predicate struct {
	Option string
	Regex  *regexp.Regexp
}

// PredicateGroup is one predicate dict: it matches a query only if every
// (option, regex) pair in it regex-matches (§4.7 "a predicate matches if
// every... pair regex-matches").
type PredicateGroup []Predicate

func (g PredicateGroup) matches(q Query) bool {
	for _, pred := range g {
		if !pred.matches(q) {
			return false
		}
	}
	return len(g) > 0
}

// Profile is one ordered default profile. Match is an array of predicate
// dicts; the profile itself matches if any predicate dict in Match
// matches ("the first profile whose any predicate matches wins").
type Profile struct {
	Name  string
	Match []PredicateGroup

	// Fields merged into the model when this profile wins (§4.7 "Profile
	// fields merged into the model").
	Link            LinkOverrides
	Ethtool         *model.EthtoolSettings
	ClearAddresses  bool
	ClearFDB        bool
	ClearNeighbours bool
	ClearTC         bool
}

// LinkOverrides mirrors the subset of LinkModel a profile may set
// ("link.*" in §4.7). Zero values mean "don't override".
type LinkOverrides struct {
	State  model.LinkState
	Master *string // pointer so a profile can explicitly clear master to ""
	MTU    int
}

// Query is what get_defaults matches against (§4.7 "get_defaults(ifname, kind)").
type Query struct {
	IfName string
	Kind   model.LinkKind
}

func attr(q Query, option string) string {
	switch option {
	case "ifname":
		return q.IfName
	case "kind":
		return string(q.Kind)
	default:
		return ""
	}
}

// matches reports whether p's regex matches the query attribute named by p.Option.
func (p Predicate) matches(q Query) bool {
	return p.Regex.MatchString(attr(q, p.Option))
}

func (pf Profile) matches(q Query) bool {
	for _, group := range pf.Match {
		if group.matches(q) {
			return true
		}
	}
	return false
}

// Matcher holds the ordered list of configured default profiles (§4.7).
type Matcher struct {
	mu       sync.RWMutex
	profiles []Profile
}

// New returns a Matcher over the given ordered profiles. The builtin orphan
// profile is not part of it; Builtin() returns that profile separately.
func New(profiles []Profile) *Matcher {
	return &Matcher{profiles: profiles}
}

// GetDefaults walks the ordered profile list and returns the first
// profile whose match predicate matches q, or nil (§4.7 get_defaults).
func (m *Matcher) GetDefaults(q Query) *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.profiles {
		if m.profiles[i].matches(q) {
			return &m.profiles[i]
		}
	}
	return nil
}

// Builtin returns the built-in profile applied to orphans, never to
// configured links (§4.7: "ifname "" -> drop to state=down, master=null,
// clear everything (applied to orphans, not to configured links)").
func Builtin() Profile {
	empty := ""
	return Profile{
		Name: "builtin-orphan",
		Link: LinkOverrides{
			State:  model.StateDown,
			Master: &empty,
		},
		ClearAddresses:  true,
		ClearFDB:        true,
		ClearNeighbours: true,
		ClearTC:         true,
	}
}

// Apply merges a matched profile's fields into lm, implementing §4.7
// "Profile fields merged into the model".
func Apply(lm *model.LinkModel, p *Profile) {
	if p == nil {
		return
	}
	if p.Link.State != "" {
		lm.State = p.Link.State
	}
	if p.Link.Master != nil {
		lm.Master = *p.Link.Master
	}
	if p.Link.MTU != 0 {
		lm.MTU = p.Link.MTU
	}
	if p.Ethtool != nil {
		lm.Ethtool = p.Ethtool
	}
	if p.ClearAddresses {
		lm.ClearAddresses = true
	}
	if p.ClearFDB {
		lm.ClearFDB = true
	}
	if p.ClearNeighbours {
		lm.ClearNeighbours = true
	}
	if p.ClearTC {
		lm.ClearTC = true
	}
}
