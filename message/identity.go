package message

import (
	"sort"
	"strings"
)

// KindSet is an unordered set of message kinds.
type KindSet map[Kind]struct{}

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

// Kinds returns the members in sorted order.
func (s KindSet) Kinds() []Kind {
	out := make([]Kind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s KindSet) String() string {
	kinds := s.Kinds()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

// AgentIdentity names an agent and declares what it can produce and
// consume. Identities are immutable for the process lifetime once
// registered; re-registration replaces the whole identity.
type AgentIdentity struct {
	Name     string
	Produces KindSet
	Consumes KindSet
}

// CanProduce reports whether the agent declared k as an output kind.
func (a AgentIdentity) CanProduce(k Kind) bool { return a.Produces.Has(k) }

// CanConsume reports whether the agent declared k as an input kind.
func (a AgentIdentity) CanConsume(k Kind) bool { return a.Consumes.Has(k) }
