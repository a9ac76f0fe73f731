// Package ids issues identifiers that are never reused within a run.
package ids

import (
	"golang.org/x/exp/constraints"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// Generator issues strictly increasing identifiers for one agent class.
// Zero is never issued; callers use it to mean "absent".
//
// A Generator is not safe for concurrent use. The model is single-threaded and
// every run owns its own generators.
type Generator[T constraints.Integer] struct {
	name string
	last T // every value <= last has been issued
}

// NewGenerator returns a generator whose first Next() is 1. The name appears
// in error messages.
func NewGenerator[T constraints.Integer](name string) *Generator[T] {
	return &Generator[T]{name: name}
}

// Name returns the agent class this generator serves.
func (g *Generator[T]) Name() string {
	return g.name
}

// Next issues a new identifier.
func (g *Generator[T]) Next() T {
	g.last++
	return g.last
}

// Use reserves an externally supplied identifier, e.g. one restored from a
// saved run. Every value up to and including id counts as issued afterwards,
// so restored identifiers must be reserved in ascending order.
func (g *Generator[T]) Use(id T) error {
	if id <= 0 {
		return errors.Wrapf(errors.ErrInvalidID, "%s id %d", g.name, id)
	}
	if id <= g.last {
		return errors.Wrapf(errors.ErrDuplicateID, "%s id %d (issued up to %d)", g.name, id, g.last)
	}
	g.last = id
	return nil
}

// Issued reports whether id has already been handed out or reserved.
func (g *Generator[T]) Issued(id T) bool {
	return id > 0 && id <= g.last
}

// Last returns the highest identifier issued so far, or zero.
func (g *Generator[T]) Last() T {
	return g.last
}
