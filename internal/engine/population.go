// Population dynamics: births, deaths and aging.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/errors"
)

// births lets every married, living female give birth with probability
// hazard_birth[age]. The father is her spouse; the child joins her household.
// Unmarried females are not evaluated, since births require a marriage.
func (r *Region) births(timestep int) error {
	for _, m := range r.snapshot() {
		mother := m.person
		if mother.Sex != agents.SexFemale || !mother.IsMarried() {
			continue
		}
		father, ok := r.persons[mother.SpouseID]
		if !ok {
			return errors.AssertionFailedf("person %d is married to %d, who is not a living member of region %d",
				mother.ID(), mother.SpouseID, r.ID())
		}

		rate, err := r.hazards.Birth.Rate(mother.Age)
		if err != nil {
			return err
		}
		if r.rng.Float() >= rate {
			continue
		}

		child, err := mother.GiveBirth(timestep, father, r.ids.Persons, r.rng)
		if err != nil {
			return err
		}
		if err := m.household.Add(child); err != nil {
			return err
		}
		r.persons[child.ID()] = child
		r.stats.Births++
		r.record(Event{
			Timestep:    timestep,
			Category:    CategoryBirth,
			PersonID:    mother.ID(),
			OtherID:     child.ID(),
			HouseholdID: m.household.ID(),
			Description: fmt.Sprintf("person %d born to %d and %d in household %d", child.ID(), mother.ID(), father.ID(), m.household.ID()),
		})
	}
	return nil
}

// deaths removes living persons with probability hazard_death[age]. Only
// females are evaluated unless a male death table is configured.
func (r *Region) deaths(timestep int) error {
	emptied := make(map[agents.HouseholdID]member)

	for _, m := range r.snapshot() {
		p := m.person
		table := r.hazards.Death
		if p.Sex == agents.SexMale {
			if r.hazards.DeathMale == nil {
				continue
			}
			table = r.hazards.DeathMale
		}

		rate, err := table.Rate(p.Age)
		if err != nil {
			return err
		}
		if r.rng.Float() >= rate {
			continue
		}

		if err := r.kill(m, timestep); err != nil {
			return err
		}
		if m.household.Empty() {
			emptied[m.household.ID()] = m
		}
	}

	if !r.policy.RemoveEmptyHouseholds {
		return nil
	}
	for _, m := range r.snapshotHouseholds(emptied) {
		if _, err := m.neighborhood.Remove(m.household.ID()); err != nil {
			return err
		}
		r.stats.HouseholdsRemoved++
		r.record(Event{
			Timestep:    timestep,
			Category:    CategoryHousing,
			HouseholdID: m.household.ID(),
			Description: fmt.Sprintf("household %d dissolved in neighborhood %d", m.household.ID(), m.neighborhood.ID()),
		})
	}
	return nil
}

// kill takes p out of the household and out of any marriage, and moves it to
// the deceased registry.
func (r *Region) kill(m member, timestep int) error {
	p := m.person
	if _, err := m.household.Remove(p.ID()); err != nil {
		return err
	}
	if err := p.Die(timestep); err != nil {
		return err
	}
	if p.IsMarried() {
		if spouse, ok := r.persons[p.SpouseID]; ok {
			spouse.Widow()
		} else {
			slog.Warn("spouse not found at death", "person", p.ID(), "spouse", p.SpouseID)
		}
		// The dead keep their spouse ID for the record.
	}
	delete(r.persons, p.ID())
	r.deceased[p.ID()] = p
	r.stats.Deaths++
	r.record(Event{
		Timestep:    timestep,
		Category:    CategoryDeath,
		PersonID:    p.ID(),
		OtherID:     p.SpouseID,
		HouseholdID: m.household.ID(),
		Description: fmt.Sprintf("person %d died at age %d in household %d", p.ID(), p.Age, m.household.ID()),
	})
	return nil
}

// snapshotHouseholds orders the emptied households by ID.
func (r *Region) snapshotHouseholds(emptied map[agents.HouseholdID]member) []member {
	var out []member
	for _, n := range r.members.Members() {
		for _, h := range n.Households() {
			if m, ok := emptied[h.ID()]; ok && h.Empty() {
				out = append(out, m)
			}
		}
	}
	return out
}

// aging increments the age of every living person by one.
func (r *Region) aging(timestep int) error {
	for _, m := range r.snapshot() {
		m.person.Age++
	}
	return nil
}
