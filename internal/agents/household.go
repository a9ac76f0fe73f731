package agents

import (
	"fmt"

	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/ids"
)

// HouseholdAttributes are fixed when the household is created.
type HouseholdAttributes struct {
	NonWoodFuel   bool `json:"non_wood_fuel"`   // uses any non-wood fuel
	OwnHousePlot  bool `json:"own_house_plot"`  // owns the plot it lives on
	OwnAnyLand    bool `json:"own_any_land"`
	RentedOutLand bool `json:"rented_out_land"` // rented out any of its land
}

// HouseholdOdds are the probabilities used to draw HouseholdAttributes.
type HouseholdOdds struct {
	NonWoodFuel   float64
	OwnHousePlot  float64
	OwnAnyLand    float64
	RentedOutLand float64
}

// DrawHouseholdAttributes draws each attribute independently. Rented-out land
// requires owning land.
func DrawHouseholdAttributes(st entropy.Stream, odds HouseholdOdds) HouseholdAttributes {
	a := HouseholdAttributes{
		NonWoodFuel:  entropy.Chance(st, odds.NonWoodFuel),
		OwnHousePlot: entropy.Chance(st, odds.OwnHousePlot),
		OwnAnyLand:   entropy.Chance(st, odds.OwnAnyLand),
	}
	rented := entropy.Chance(st, odds.RentedOutLand)
	a.RentedOutLand = a.OwnAnyLand && rented
	return a
}

// Household is a set of persons living together.
type Household struct {
	Agent[HouseholdID]
	HouseholdAttributes

	neighborhoodID NeighborhoodID
	members        *AgentSet[PersonID, *Person]
}

// NewHousehold creates an empty household. A zero id issues a fresh one.
func NewHousehold(gen *ids.Generator[HouseholdID], id HouseholdID, initial bool, attrs HouseholdAttributes) (*Household, error) {
	base, err := NewAgent(gen, id, initial)
	if err != nil {
		return nil, err
	}
	return &Household{
		Agent:               base,
		HouseholdAttributes: attrs,
		members:             NewAgentSet[PersonID, *Person](fmt.Sprintf("household %d", base.id)),
	}, nil
}

// NeighborhoodID returns the neighborhood the household belongs to, or zero.
func (h *Household) NeighborhoodID() NeighborhoodID {
	return h.neighborhoodID
}

// Add moves p into the household. A person belongs to at most one household.
func (h *Household) Add(p *Person) error {
	if p.householdID != 0 {
		return errors.Wrapf(errors.ErrDuplicateMember,
			"person %d already in household %d, cannot join household %d", p.ID(), p.householdID, h.id)
	}
	if err := h.members.Add(p); err != nil {
		return err
	}
	p.householdID = h.id
	return nil
}

// Remove takes the person with identifier id out of the household.
func (h *Household) Remove(id PersonID) (*Person, error) {
	p, err := h.members.Remove(id)
	if err != nil {
		return nil, err
	}
	p.householdID = 0
	return p, nil
}

// Person returns the member with identifier id.
func (h *Household) Person(id PersonID) (*Person, bool) {
	return h.members.Get(id)
}

// Persons returns the members in ascending ID order.
func (h *Household) Persons() []*Person {
	return h.members.Members()
}

// NumMembers returns the household size.
func (h *Household) NumMembers() int {
	return h.members.Len()
}

// Empty reports whether nobody lives in the household.
func (h *Household) Empty() bool {
	return h.members.Len() == 0
}
