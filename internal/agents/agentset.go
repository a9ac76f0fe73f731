package agents

import (
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// Member is anything an AgentSet can hold.
type Member[K constraints.Integer] interface {
	ID() K
}

// AgentSet is a keyed collection of child agents owned by a container agent.
// Iteration through Members and IDs is always in ascending ID order so runs
// are reproducible.
type AgentSet[K constraints.Integer, V Member[K]] struct {
	owner   string // e.g. "household 12", used in error messages
	members map[K]V
}

// NewAgentSet creates an empty set. owner names the containing agent.
func NewAgentSet[K constraints.Integer, V Member[K]](owner string) *AgentSet[K, V] {
	return &AgentSet[K, V]{
		owner:   owner,
		members: make(map[K]V),
	}
}

// Add inserts v. It fails if v's identifier is already present.
func (s *AgentSet[K, V]) Add(v V) error {
	id := v.ID()
	if _, ok := s.members[id]; ok {
		return errors.Wrapf(errors.ErrDuplicateMember, "agent %d in %s", id, s.owner)
	}
	s.members[id] = v
	return nil
}

// Remove deletes the member with identifier id and returns it. It fails if
// no such member exists.
func (s *AgentSet[K, V]) Remove(id K) (V, error) {
	v, ok := s.members[id]
	if !ok {
		var zero V
		return zero, errors.Wrapf(errors.ErrMemberNotFound, "agent %d in %s", id, s.owner)
	}
	delete(s.members, id)
	return v, nil
}

// Get returns the member with identifier id.
func (s *AgentSet[K, V]) Get(id K) (V, bool) {
	v, ok := s.members[id]
	return v, ok
}

// Contains reports whether id is a member.
func (s *AgentSet[K, V]) Contains(id K) bool {
	_, ok := s.members[id]
	return ok
}

// Len returns the number of members.
func (s *AgentSet[K, V]) Len() int {
	return len(s.members)
}

// IDs returns the member identifiers in ascending order.
func (s *AgentSet[K, V]) IDs() []K {
	keys := make([]K, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Members returns a snapshot of the members in ascending ID order. Callers
// may add or remove members while walking the snapshot.
func (s *AgentSet[K, V]) Members() []V {
	out := make([]V, 0, len(s.members))
	for _, k := range s.IDs() {
		out = append(out, s.members[k])
	}
	return out
}

// Owner returns the label of the containing agent.
func (s *AgentSet[K, V]) Owner() string {
	return s.owner
}
