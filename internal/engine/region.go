// Package engine runs the per-timestep demographic event engine over a region:
// births, deaths, marriages and aging, in that order.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/landuse"
)

// Policy holds the event-engine rules that are not hazard rates.
type Policy struct {
	// MinMarriageAge applies to both brides and grooms.
	MinMarriageAge int
	// MaxSpouseAgeGap bounds the age difference of a new couple. Zero means
	// no bound.
	MaxSpouseAgeGap int
	// RemoveEmptyHouseholds drops households left without members by the
	// deaths pass.
	RemoveEmptyHouseholds bool
}

// RegionOptions configure NewRegion.
type RegionOptions struct {
	ID      agents.RegionID // zero issues a fresh one
	Initial bool
	Hazards Hazards
	Policy  Policy
	LandUse landuse.Model // may be nil
}

// Region is the root of the hierarchy: a set of neighborhoods sharing land-use
// data and demographic characteristics.
type Region struct {
	agents.Agent[agents.RegionID]

	ids     *agents.Identities
	rng     entropy.Stream
	hazards Hazards
	policy  Policy
	landUse landuse.Model

	members *agents.AgentSet[agents.NeighborhoodID, *agents.Neighborhood]

	// Lookup tables resolving identifier-based relationships.
	persons  map[agents.PersonID]*agents.Person // living
	deceased map[agents.PersonID]*agents.Person

	events []Event
	stats  StepStats
}

// NewRegion creates an empty region.
func NewRegion(identities *agents.Identities, rng entropy.Stream, opts RegionOptions) (*Region, error) {
	if err := opts.Hazards.Validate(); err != nil {
		return nil, err
	}
	base, err := agents.NewAgent(identities.Regions, opts.ID, opts.Initial)
	if err != nil {
		return nil, err
	}
	return &Region{
		Agent:    base,
		ids:      identities,
		rng:      rng,
		hazards:  opts.Hazards,
		policy:   opts.Policy,
		landUse:  opts.LandUse,
		members:  agents.NewAgentSet[agents.NeighborhoodID, *agents.Neighborhood](fmt.Sprintf("region %d", base.ID())),
		persons:  make(map[agents.PersonID]*agents.Person),
		deceased: make(map[agents.PersonID]*agents.Person),
	}, nil
}

func (r *Region) String() string {
	return fmt.Sprintf("Region(RID: %d. %d neighborhood(s), %d household(s), %d person(s))",
		r.ID(), r.members.Len(), r.HouseholdCount(), r.Census())
}

// Identities returns the run's identifier generators.
func (r *Region) Identities() *agents.Identities {
	return r.ids
}

// Policy returns the event-engine rules.
func (r *Region) Policy() Policy {
	return r.policy
}

// AddNeighborhood places n, and everyone living in it, in the region.
func (r *Region) AddNeighborhood(n *agents.Neighborhood) error {
	if err := r.members.Add(n); err != nil {
		return err
	}
	for _, h := range n.Households() {
		for _, p := range h.Persons() {
			r.persons[p.ID()] = p
		}
	}
	return nil
}

// RemoveNeighborhood takes the neighborhood with identifier id out of the region.
func (r *Region) RemoveNeighborhood(id agents.NeighborhoodID) (*agents.Neighborhood, error) {
	n, err := r.members.Remove(id)
	if err != nil {
		return nil, err
	}
	for _, h := range n.Households() {
		for _, p := range h.Persons() {
			delete(r.persons, p.ID())
		}
	}
	return n, nil
}

// RestoreDeceased registers a person who died before the region was
// restored, so relationship lookups still resolve.
func (r *Region) RestoreDeceased(p *agents.Person) error {
	if p.IsAlive() {
		return errors.AssertionFailedf("person %d is alive", p.ID())
	}
	if _, ok := r.deceased[p.ID()]; ok {
		return errors.Wrapf(errors.ErrDuplicateMember, "person %d in deceased registry of region %d", p.ID(), r.ID())
	}
	r.deceased[p.ID()] = p
	return nil
}

// Neighborhood returns the member neighborhood with identifier id.
func (r *Region) Neighborhood(id agents.NeighborhoodID) (*agents.Neighborhood, bool) {
	return r.members.Get(id)
}

// Neighborhoods returns the neighborhoods in ascending ID order.
func (r *Region) Neighborhoods() []*agents.Neighborhood {
	return r.members.Members()
}

// Person resolves a living person by identifier.
func (r *Region) Person(id agents.PersonID) (*agents.Person, bool) {
	p, ok := r.persons[id]
	return p, ok
}

// Deceased resolves a person who died during the run.
func (r *Region) Deceased(id agents.PersonID) (*agents.Person, bool) {
	p, ok := r.deceased[id]
	return p, ok
}

// DeceasedPersons returns everyone who has died, in ascending ID order.
func (r *Region) DeceasedPersons() []*agents.Person {
	keys := make([]agents.PersonID, 0, len(r.deceased))
	for id := range r.deceased {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	out := make([]*agents.Person, 0, len(keys))
	for _, id := range keys {
		out = append(out, r.deceased[id])
	}
	return out
}

// Census returns the number of persons living in the region.
func (r *Region) Census() int {
	total := 0
	for _, n := range r.members.Members() {
		for _, h := range n.Households() {
			total += h.NumMembers()
		}
	}
	return total
}

// HouseholdCount returns the number of households in the region.
func (r *Region) HouseholdCount() int {
	total := 0
	for _, n := range r.members.Members() {
		total += n.NumHouseholds()
	}
	return total
}

// Population returns every living person in traversal order.
func (r *Region) Population() []*agents.Person {
	var out []*agents.Person
	for _, m := range r.snapshot() {
		out = append(out, m.person)
	}
	return out
}

// Events returns the events of the most recent timestep.
func (r *Region) Events() []Event {
	return r.events
}

// Stats returns the summary of the most recent timestep.
func (r *Region) Stats() StepStats {
	return r.stats
}

// NeighborhoodAttributes returns the land-use inputs for every neighborhood.
func (r *Region) NeighborhoodAttributes() []landuse.Attributes {
	ns := r.members.Members()
	out := make([]landuse.Attributes, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Attributes())
	}
	return out
}

// UpdateLandUse hands neighborhood aggregates to the land-use model and stores
// the proportions it returns.
func (r *Region) UpdateLandUse() error {
	if r.landUse == nil {
		return nil
	}
	updated, err := r.landUse.Update(r.NeighborhoodAttributes())
	if err != nil {
		return errors.Wrapf(err, "land-use update for region %d", r.ID())
	}
	for _, n := range r.members.Members() {
		if p, ok := updated[uint64(n.ID())]; ok {
			n.LandUse = p
		}
	}
	return nil
}

// Step runs one timestep: births, deaths, marriages, then aging. Each pass
// walks a snapshot of the hierarchy taken when the pass starts, so changes
// made by earlier passes are visible to later ones. Any error leaves the
// region in a partially stepped state and must abort the run.
func (r *Region) Step(timestep int) error {
	r.reindex()
	r.events = nil
	r.stats = StepStats{Timestep: timestep}

	passes := []struct {
		name string
		run  func(int) error
	}{
		{"births", r.births},
		{"deaths", r.deaths},
		{"marriages", r.marriages},
		{"aging", r.aging},
	}
	for _, pass := range passes {
		if err := pass.run(timestep); err != nil {
			return errors.Wrapf(err, "%s pass at timestep %d", pass.name, timestep)
		}
	}

	r.stats.Population = r.Census()
	r.stats.Households = r.HouseholdCount()

	slog.Info("timestep report",
		"region", r.ID(),
		"timestep", timestep,
		"population", r.stats.Population,
		"households", r.stats.Households,
		"births", r.stats.Births,
		"deaths", r.stats.Deaths,
		"marriages", r.stats.Marriages,
		"unmatched_marriages", r.stats.UnmatchedMarriages,
	)
	return nil
}

// member is one person together with the containers it lives in.
type member struct {
	neighborhood *agents.Neighborhood
	household    *agents.Household
	person       *agents.Person
}

// snapshot walks neighborhood → household → person in ascending ID order.
func (r *Region) snapshot() []member {
	var out []member
	for _, n := range r.members.Members() {
		for _, h := range n.Households() {
			for _, p := range h.Persons() {
				out = append(out, member{neighborhood: n, household: h, person: p})
			}
		}
	}
	return out
}

// reindex rebuilds the living-person lookup from the hierarchy, picking up
// agents added to neighborhoods or households after AddNeighborhood.
func (r *Region) reindex() {
	clear(r.persons)
	for _, m := range r.snapshot() {
		r.persons[m.person.ID()] = m.person
	}
}

func (r *Region) record(e Event) {
	r.events = append(r.events, e)
	slog.Debug("event", "category", e.Category, "timestep", e.Timestep, "description", e.Description)
}
