// Hazard-driven marriage of females, and partner selection.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/chitwan-abm/internal/agents"
)

// marriages lets every living unmarried female of marriageable age marry
// with probability hazard_marriage[age]. A partner is chosen by
// choosePartner; when nobody qualifies the marriage does not happen.
func (r *Region) marriages(timestep int) error {
	for _, m := range r.snapshot() {
		bride := m.person
		if bride.Sex != agents.SexFemale || bride.IsMarried() || bride.Age < r.policy.MinMarriageAge {
			continue
		}

		rate, err := r.hazards.Marriage.Rate(bride.Age)
		if err != nil {
			return err
		}
		if r.rng.Float() >= rate {
			continue
		}

		groom := r.choosePartner(m)
		if groom == nil {
			r.stats.UnmatchedMarriages++
			slog.Debug("no eligible partner", "person", bride.ID(), "age", bride.Age, "neighborhood", m.neighborhood.ID())
			continue
		}
		if err := bride.Marry(groom); err != nil {
			return err
		}
		r.stats.Marriages++
		r.record(Event{
			Timestep:    timestep,
			Category:    CategoryMarriage,
			PersonID:    bride.ID(),
			OtherID:     groom.ID(),
			HouseholdID: m.household.ID(),
			Description: fmt.Sprintf("person %d married person %d", bride.ID(), groom.ID()),
		})
	}
	return nil
}

// choosePartner picks an eligible groom for the bride in m. Men from her own
// neighborhood are preferred; only when none qualifies is the whole region
// searched. The choice among candidates is uniform.
func (r *Region) choosePartner(m member) *agents.Person {
	bride := m.person

	var local []*agents.Person
	for _, h := range m.neighborhood.Households() {
		for _, p := range h.Persons() {
			if r.eligibleGroom(bride, p) {
				local = append(local, p)
			}
		}
	}
	if len(local) > 0 {
		return local[r.rng.Intn(len(local))]
	}

	var regional []*agents.Person
	for _, n := range r.members.Members() {
		if n.ID() == m.neighborhood.ID() {
			continue
		}
		for _, h := range n.Households() {
			for _, p := range h.Persons() {
				if r.eligibleGroom(bride, p) {
					regional = append(regional, p)
				}
			}
		}
	}
	if len(regional) > 0 {
		return regional[r.rng.Intn(len(regional))]
	}
	return nil
}

// eligibleGroom reports whether p may marry bride: a living unmarried male of
// marriageable age from another household, not close kin, within the allowed
// age gap. Household members are excluded outright because initial
// dependents carry no parent links.
func (r *Region) eligibleGroom(bride, p *agents.Person) bool {
	if p.Sex != agents.SexMale || p.IsMarried() || !p.IsAlive() {
		return false
	}
	if p.HouseholdID() == bride.HouseholdID() {
		return false
	}
	if p.Age < r.policy.MinMarriageAge {
		return false
	}
	if r.policy.MaxSpouseAgeGap > 0 {
		gap := p.Age - bride.Age
		if gap < 0 {
			gap = -gap
		}
		if gap > r.policy.MaxSpouseAgeGap {
			return false
		}
	}
	return !bride.CloseKin(p)
}
