// Package agents provides the four-level agent hierarchy: persons grouped into
// households, households into neighborhoods, neighborhoods into a region.
// Relationships between persons (parents, spouse, children) are stored as
// identifiers and resolved through the region, never as pointers.
package agents

import (
	"golang.org/x/exp/constraints"

	"github.com/talgya/chitwan-abm/internal/ids"
)

// PersonID is a unique identifier for a person. Zero means "absent".
type PersonID uint64

// HouseholdID is a unique identifier for a household.
type HouseholdID uint64

// NeighborhoodID is a unique identifier for a neighborhood.
type NeighborhoodID uint64

// RegionID is a unique identifier for a region.
type RegionID uint64

// Sex represents biological sex for demographic simulation.
type Sex uint8

const (
	SexUnspecified Sex = 0 // assigned randomly at creation
	SexFemale      Sex = 1
	SexMale        Sex = 2
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "female"
	case SexMale:
		return "male"
	default:
		return "unspecified"
	}
}

// Agent carries what every level of the hierarchy has in common.
type Agent[K constraints.Integer] struct {
	id      K
	initial bool
}

// NewAgent issues a fresh identifier when id is zero and reserves id
// otherwise, so restored agents never collide with later ones.
func NewAgent[K constraints.Integer](gen *ids.Generator[K], id K, initial bool) (Agent[K], error) {
	if id == 0 {
		id = gen.Next()
	} else if err := gen.Use(id); err != nil {
		return Agent[K]{}, err
	}
	return Agent[K]{id: id, initial: initial}, nil
}

// ID returns the agent's identifier.
func (a Agent[K]) ID() K { return a.id }

// Initial reports whether the agent existed when the model was initialized.
func (a Agent[K]) Initial() bool { return a.initial }

// Identities holds one identifier generator per agent class. Each run owns
// its own Identities so runs in the same process stay independent.
type Identities struct {
	Persons       *ids.Generator[PersonID]
	Households    *ids.Generator[HouseholdID]
	Neighborhoods *ids.Generator[NeighborhoodID]
	Regions       *ids.Generator[RegionID]
}

// NewIdentities creates fresh generators for every agent class.
func NewIdentities() *Identities {
	return &Identities{
		Persons:       ids.NewGenerator[PersonID]("person"),
		Households:    ids.NewGenerator[HouseholdID]("household"),
		Neighborhoods: ids.NewGenerator[NeighborhoodID]("neighborhood"),
		Regions:       ids.NewGenerator[RegionID]("region"),
	}
}
