package agents

import (
	"fmt"

	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/ids"
	"github.com/talgya/chitwan-abm/internal/landuse"
)

// NeighborhoodAttributes describe services and infrastructure.
type NeighborhoodAttributes struct {
	AvgYearsNonfamilyServices float64 `json:"avg_years_nonfamily_services"`
	ElecAvailable             bool    `json:"elec_available"`
}

// Neighborhood is a set of households.
type Neighborhood struct {
	Agent[NeighborhoodID]
	NeighborhoodAttributes

	// LandUse is written back by the land-use model each step.
	LandUse landuse.Proportions `json:"land_use"`

	members *AgentSet[HouseholdID, *Household]
}

// NewNeighborhood creates an empty neighborhood. A zero id issues a fresh one.
func NewNeighborhood(gen *ids.Generator[NeighborhoodID], id NeighborhoodID, initial bool, attrs NeighborhoodAttributes) (*Neighborhood, error) {
	base, err := NewAgent(gen, id, initial)
	if err != nil {
		return nil, err
	}
	return &Neighborhood{
		Agent:                  base,
		NeighborhoodAttributes: attrs,
		members:                NewAgentSet[HouseholdID, *Household](fmt.Sprintf("neighborhood %d", base.id)),
	}, nil
}

// Add places h in the neighborhood.
func (n *Neighborhood) Add(h *Household) error {
	if h.neighborhoodID != 0 {
		return errors.Wrapf(errors.ErrDuplicateMember,
			"household %d already in neighborhood %d, cannot join neighborhood %d", h.ID(), h.neighborhoodID, n.id)
	}
	if err := n.members.Add(h); err != nil {
		return err
	}
	h.neighborhoodID = n.id
	return nil
}

// Remove takes the household with identifier id out of the neighborhood.
func (n *Neighborhood) Remove(id HouseholdID) (*Household, error) {
	h, err := n.members.Remove(id)
	if err != nil {
		return nil, err
	}
	h.neighborhoodID = 0
	return h, nil
}

// Household returns the member household with identifier id.
func (n *Neighborhood) Household(id HouseholdID) (*Household, bool) {
	return n.members.Get(id)
}

// Households returns the member households in ascending ID order.
func (n *Neighborhood) Households() []*Household {
	return n.members.Members()
}

// NumHouseholds returns the number of households.
func (n *Neighborhood) NumHouseholds() int {
	return n.members.Len()
}

// Population returns the number of persons living in the neighborhood.
func (n *Neighborhood) Population() int {
	total := 0
	for _, h := range n.members.Members() {
		total += h.NumMembers()
	}
	return total
}

// Attributes aggregates the neighborhood for the land-use model.
func (n *Neighborhood) Attributes() landuse.Attributes {
	attrs := landuse.Attributes{
		NeighborhoodID:            uint64(n.id),
		AvgYearsNonfamilyServices: n.AvgYearsNonfamilyServices,
		ElecAvailable:             n.ElecAvailable,
	}
	var nonWood, ownLand int
	for _, h := range n.members.Members() {
		attrs.Households++
		attrs.Population += h.NumMembers()
		if h.NonWoodFuel {
			nonWood++
		}
		if h.OwnAnyLand {
			ownLand++
		}
	}
	if attrs.Households > 0 {
		attrs.NonWoodFuelShare = float64(nonWood) / float64(attrs.Households)
		attrs.OwnLandShare = float64(ownLand) / float64(attrs.Households)
	}
	return attrs
}
