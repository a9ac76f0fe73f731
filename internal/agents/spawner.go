// Agent spawning: creates the initial population of neighborhoods with
// service attributes, households with fixed land/fuel attributes, and a
// married couple plus dependents in every household.
package agents

import (
	"math"

	"github.com/talgya/chitwan-abm/internal/entropy"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	Neighborhoods             int
	HouseholdsPerNeighborhood int
	MeanHouseholdSize         float64 // including the couple; at least 2
	HouseholdSizeSD           float64

	MeanAdultAge float64
	AdultAgeSD   float64
	MinAdultAge  int
	MaxAdultAge  int
	MaxSpouseGap int // husband is 0..MaxSpouseGap older than his wife
	MinMotherAge int // children are at least this much younger than the wife

	HouseholdOdds     HouseholdOdds
	ElecProbability   float64
	MaxYearsNonfamily float64 // services availability drawn from [0, MaxYearsNonfamily)
}

// Spawner creates the initial population for a run.
type Spawner struct {
	rng *entropy.Source
	ids *Identities
	cfg SpawnConfig
}

// NewSpawner creates a spawner drawing from the run's shared stream.
func NewSpawner(rng *entropy.Source, identities *Identities, cfg SpawnConfig) *Spawner {
	return &Spawner{rng: rng, ids: identities, cfg: cfg}
}

// SpawnNeighborhoods creates the configured number of populated neighborhoods.
func (s *Spawner) SpawnNeighborhoods() ([]*Neighborhood, error) {
	out := make([]*Neighborhood, 0, s.cfg.Neighborhoods)
	for i := 0; i < s.cfg.Neighborhoods; i++ {
		n, err := s.SpawnNeighborhood()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// SpawnNeighborhood creates one neighborhood filled with households.
func (s *Spawner) SpawnNeighborhood() (*Neighborhood, error) {
	attrs := NeighborhoodAttributes{
		AvgYearsNonfamilyServices: s.rng.Float() * s.cfg.MaxYearsNonfamily,
		ElecAvailable:             s.rng.Bool(s.cfg.ElecProbability),
	}
	n, err := NewNeighborhood(s.ids.Neighborhoods, 0, true, attrs)
	if err != nil {
		return nil, err
	}
	for i := 0; i < s.cfg.HouseholdsPerNeighborhood; i++ {
		h, err := s.SpawnHousehold()
		if err != nil {
			return nil, err
		}
		if err := n.Add(h); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// SpawnHousehold creates a household headed by a married couple.
func (s *Spawner) SpawnHousehold() (*Household, error) {
	h, err := NewHousehold(s.ids.Households, 0, true, DrawHouseholdAttributes(s.rng, s.cfg.HouseholdOdds))
	if err != nil {
		return nil, err
	}

	wifeAge := s.adultAge()
	husbandAge := wifeAge
	if s.cfg.MaxSpouseGap > 0 {
		husbandAge += s.rng.Intn(s.cfg.MaxSpouseGap + 1)
	}

	wife, err := s.initialPerson(wifeAge, SexFemale)
	if err != nil {
		return nil, err
	}
	husband, err := s.initialPerson(husbandAge, SexMale)
	if err != nil {
		return nil, err
	}
	if err := wife.Marry(husband); err != nil {
		return nil, err
	}
	for _, p := range []*Person{wife, husband} {
		if err := h.Add(p); err != nil {
			return nil, err
		}
	}

	// Dependents. Initial agents carry no parent links.
	maxChildAge := wifeAge - s.cfg.MinMotherAge
	for i := 2; i < s.householdSize(); i++ {
		age := 0
		if maxChildAge > 0 {
			age = s.rng.Intn(maxChildAge + 1)
		}
		p, err := s.initialPerson(age, SexUnspecified)
		if err != nil {
			return nil, err
		}
		if err := h.Add(p); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (s *Spawner) initialPerson(age int, sex Sex) (*Person, error) {
	return NewPerson(s.ids.Persons, s.rng, PersonSpec{
		BirthTimestep: -age,
		Age:           age,
		Sex:           sex,
		Initial:       true,
	})
}

func (s *Spawner) householdSize() int {
	size := int(math.Round(s.cfg.MeanHouseholdSize + s.rng.NormFloat64()*s.cfg.HouseholdSizeSD))
	if size < 2 {
		size = 2
	}
	return size
}

func (s *Spawner) adultAge() int {
	// Bell curve around the mean, clamped to the adult range.
	age := int(s.cfg.MeanAdultAge + s.rng.NormFloat64()*s.cfg.AdultAgeSD)
	if age < s.cfg.MinAdultAge {
		age = s.cfg.MinAdultAge
	}
	if age > s.cfg.MaxAdultAge {
		age = s.cfg.MaxAdultAge
	}
	return age
}
