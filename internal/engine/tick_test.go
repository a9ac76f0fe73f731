package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/landuse"
)

func spawnConfig() agents.SpawnConfig {
	return agents.SpawnConfig{
		Neighborhoods:             4,
		HouseholdsPerNeighborhood: 6,
		MeanHouseholdSize:         5,
		HouseholdSizeSD:           1.5,
		MeanAdultAge:              30,
		AdultAgeSD:                8,
		MinAdultAge:               16,
		MaxAdultAge:               60,
		MaxSpouseGap:              6,
		MinMotherAge:              15,
		HouseholdOdds:             agents.HouseholdOdds{NonWoodFuel: 0.3, OwnHousePlot: 0.8, OwnAnyLand: 0.7, RentedOutLand: 0.1},
		ElecProbability:           0.5,
		MaxYearsNonfamily:         40,
	}
}

// busyHazards produces births, deaths and marriages every few timesteps.
func busyHazards(t *testing.T) Hazards {
	birth := map[int]float64{}
	marriage := map[int]float64{}
	death := map[int]float64{}
	for age := 0; age <= maxTestAge; age++ {
		death[age] = 0.02
		if age >= 16 && age <= 45 {
			birth[age] = 0.25
		}
		if age >= 15 && age <= 35 {
			marriage[age] = 0.3
		}
	}
	return Hazards{
		Birth:     table(t, "birth", birth),
		Death:     table(t, "death", death),
		Marriage:  table(t, "marriage", marriage),
		DeathMale: table(t, "death_male", death),
	}
}

func spawnRegion(t *testing.T, seed int64) *Region {
	t.Helper()
	idn := agents.NewIdentities()
	rng := entropy.NewSource(seed)
	ns, err := agents.NewSpawner(rng, idn, spawnConfig()).SpawnNeighborhoods()
	require.NoError(t, err)

	r, err := NewRegion(idn, rng, RegionOptions{
		Initial: true,
		Hazards: busyHazards(t),
		Policy:  defaultPolicy(),
		LandUse: landuse.Static{Proportions: landuse.Proportions{Agricultural: 0.6, Private: 0.3, Other: 0.1}},
	})
	require.NoError(t, err)
	for _, n := range ns {
		require.NoError(t, r.AddNeighborhood(n))
	}
	return r
}

type personState struct {
	ID       agents.PersonID
	Age      int
	Sex      agents.Sex
	Spouse   agents.PersonID
	Children int
	House    agents.HouseholdID
}

func states(r *Region) []personState {
	var out []personState
	for _, p := range r.Population() {
		out = append(out, personState{p.ID(), p.Age, p.Sex, p.SpouseID, len(p.Children), p.HouseholdID()})
	}
	return out
}

func TestRunsAreReproducible(t *testing.T) {
	run := func() ([]StepStats, []personState) {
		r := spawnRegion(t, 7)
		var stats []StepStats
		rn := NewRunner(r)
		rn.OnStep = func(r *Region, _ int) error {
			stats = append(stats, r.Stats())
			return nil
		}
		require.NoError(t, rn.Run(25))
		return stats, states(r)
	}

	statsA, popA := run()
	statsB, popB := run()
	assert.Equal(t, statsA, statsB)
	assert.Equal(t, popA, popB)

	var births, deaths, marriages int
	for _, s := range statsA {
		births += s.Births
		deaths += s.Deaths
		marriages += s.Marriages
	}
	assert.Positive(t, births)
	assert.Positive(t, deaths)
	assert.Positive(t, marriages)
}

func TestStructuralIntegrityAcrossRun(t *testing.T) {
	r := spawnRegion(t, 11)
	rn := NewRunner(r)
	rn.OnStep = func(r *Region, timestep int) error {
		seen := make(map[agents.PersonID]agents.HouseholdID)
		census := 0
		for _, n := range r.Neighborhoods() {
			for _, h := range n.Households() {
				assert.Equal(t, n.ID(), h.NeighborhoodID())
				for _, p := range h.Persons() {
					census++
					prev, dup := seen[p.ID()]
					assert.False(t, dup, "person %d in households %d and %d", p.ID(), prev, h.ID())
					seen[p.ID()] = h.ID()
					assert.Equal(t, h.ID(), p.HouseholdID())
					assert.True(t, p.IsAlive())
					assert.GreaterOrEqual(t, p.Age, 0)
				}
			}
		}
		assert.Equal(t, census, r.Census())
		assert.Equal(t, timestep, r.Stats().Timestep)
		assert.Equal(t, census, r.Stats().Population)

		for _, d := range r.DeceasedPersons() {
			_, inHousehold := seen[d.ID()]
			assert.False(t, inHousehold)
			assert.Zero(t, d.HouseholdID())
		}
		return nil
	}
	require.NoError(t, rn.Run(20))
	assert.Equal(t, 20, rn.Next)
}

func TestPersonIDsAreNeverReused(t *testing.T) {
	r := spawnRegion(t, 3)
	require.NoError(t, NewRunner(r).Run(30))

	all := append(r.Population(), r.DeceasedPersons()...)
	seen := make(map[agents.PersonID]bool, len(all))
	var highest agents.PersonID
	for _, p := range all {
		assert.False(t, seen[p.ID()], "person %d appears twice", p.ID())
		seen[p.ID()] = true
		highest = max(highest, p.ID())
	}
	assert.Equal(t, highest, r.Identities().Persons.Last())
	assert.Greater(t, r.Identities().Persons.Next(), highest)
}

func TestMarriagesAreSymmetricAndLiving(t *testing.T) {
	r := spawnRegion(t, 5)
	require.NoError(t, NewRunner(r).Run(20))

	for _, p := range r.Population() {
		if !p.IsMarried() {
			continue
		}
		spouse, ok := r.Person(p.SpouseID)
		require.True(t, ok, "spouse of %d must be living", p.ID())
		assert.Equal(t, p.ID(), spouse.SpouseID)
		assert.NotEqual(t, p.Sex, spouse.Sex)
	}
}

func TestSpawnedHouseholdsDoNotIntermarry(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		r := spawnRegion(t, seed)
		hz := zeroHazards(t)
		marriage := map[int]float64{}
		for age := 15; age <= maxTestAge; age++ {
			marriage[age] = 1
		}
		hz.Marriage = table(t, "marriage", marriage)
		r.hazards = hz

		require.NoError(t, r.Step(0))
		for _, e := range r.Events() {
			if e.Category != CategoryMarriage {
				continue
			}
			bride, ok := r.Person(e.PersonID)
			require.True(t, ok)
			groom, ok := r.Person(e.OtherID)
			require.True(t, ok)
			assert.NotEqual(t, bride.HouseholdID(), groom.HouseholdID(),
				"seed %d: person %d married person %d of the same household", seed, bride.ID(), groom.ID())
		}
	}
}

func TestRunnerAppliesLandUse(t *testing.T) {
	r := spawnRegion(t, 9)
	rn := NewRunner(r)
	require.NoError(t, rn.Run(1))
	for _, n := range r.Neighborhoods() {
		assert.InDelta(t, 0.6, n.LandUse.Agricultural, 1e-9)
	}
}

func TestRunnerStopsOnCallbackError(t *testing.T) {
	r := spawnRegion(t, 9)
	rn := NewRunner(r)
	var calls []int
	rn.OnStep = func(_ *Region, timestep int) error {
		calls = append(calls, timestep)
		if timestep == 2 {
			return errors.New("disk full")
		}
		return nil
	}

	err := rn.Run(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after timestep 2")
	assert.Equal(t, []int{0, 1, 2}, calls)
	assert.Equal(t, 3, rn.Next)
}

func TestRunnerResumesAtNext(t *testing.T) {
	r := spawnRegion(t, 9)
	rn := &Runner{Region: r, Next: 10, SkipLandUse: true}
	require.NoError(t, rn.Run(2))
	assert.Equal(t, 12, rn.Next)
	assert.Equal(t, 11, r.Stats().Timestep)
}
