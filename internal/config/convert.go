package config

import (
	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/landuse"
)

// SpawnConfig returns the initial-population parameters.
func (c *Config) SpawnConfig() agents.SpawnConfig {
	p := c.Population
	return agents.SpawnConfig{
		Neighborhoods:             p.Neighborhoods,
		HouseholdsPerNeighborhood: p.HouseholdsPerNeighborhood,
		MeanHouseholdSize:         p.MeanHouseholdSize,
		HouseholdSizeSD:           p.HouseholdSizeSD,
		MeanAdultAge:              p.MeanAdultAge,
		AdultAgeSD:                p.AdultAgeSD,
		MinAdultAge:               p.MinAdultAge,
		MaxAdultAge:               p.MaxAdultAge,
		MaxSpouseGap:              p.MaxSpouseGap,
		MinMotherAge:              p.MinMotherAge,
		HouseholdOdds: agents.HouseholdOdds{
			NonWoodFuel:   c.Household.NonWoodFuel,
			OwnHousePlot:  c.Household.OwnHousePlot,
			OwnAnyLand:    c.Household.OwnAnyLand,
			RentedOutLand: c.Household.RentedOutLand,
		},
		ElecProbability:   c.Neighborhood.ElecProbability,
		MaxYearsNonfamily: c.Neighborhood.MaxYearsNonfamily,
	}
}

// Hazards expands the bracket lists into hazard tables.
func (c *Config) Hazards() (engine.Hazards, error) {
	var hz engine.Hazards
	var err error
	if hz.Birth, err = c.table("birth", c.Hazard.Birth); err != nil {
		return hz, err
	}
	if hz.Death, err = c.table("death", c.Hazard.Death); err != nil {
		return hz, err
	}
	if hz.Marriage, err = c.table("marriage", c.Hazard.Marriage); err != nil {
		return hz, err
	}
	if len(c.Hazard.DeathMale) > 0 {
		if hz.DeathMale, err = c.table("death_male", c.Hazard.DeathMale); err != nil {
			return hz, err
		}
	}
	return hz, nil
}

func (c *Config) table(name string, brackets []Bracket) (*engine.HazardTable, error) {
	rates, err := expand(name, brackets, c.Hazard.MaxAge)
	if err != nil {
		return nil, err
	}
	return engine.NewHazardTable(name, rates)
}

// Policy returns the event-engine rules.
func (c *Config) Policy() engine.Policy {
	return engine.Policy{
		MinMarriageAge:        c.Marriage.MinAge,
		MaxSpouseAgeGap:       c.Marriage.MaxSpouseGap,
		RemoveEmptyHouseholds: c.Run.RemoveEmptyHouseholds,
	}
}

// LandUseModel returns the land-use model, or nil when the update is skipped.
func (c *Config) LandUseModel() landuse.Model {
	if c.Run.SkipLandUse {
		return nil
	}
	return landuse.Static{Proportions: c.LandUse}
}
