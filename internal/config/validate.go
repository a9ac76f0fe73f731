package config

import (
	"github.com/talgya/chitwan-abm/internal/errors"
)

// Validate checks that the configuration is usable. Every failure wraps
// errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Run.Timesteps < 0 {
		return invalid("run.timesteps must be >= 0, got %d", c.Run.Timesteps)
	}

	p := c.Population
	if p.Neighborhoods < 0 || p.HouseholdsPerNeighborhood < 0 {
		return invalid("population counts must be >= 0, got %d neighborhoods and %d households per neighborhood",
			p.Neighborhoods, p.HouseholdsPerNeighborhood)
	}
	if p.MinAdultAge < 0 || p.MinAdultAge > p.MaxAdultAge {
		return invalid("population.min_adult_age %d must be in [0, max_adult_age %d]", p.MinAdultAge, p.MaxAdultAge)
	}
	if p.HouseholdSizeSD < 0 || p.AdultAgeSD < 0 {
		return invalid("population standard deviations must be >= 0")
	}
	if p.MaxSpouseGap < 0 || p.MinMotherAge < 0 {
		return invalid("population.max_spouse_gap and population.min_mother_age must be >= 0")
	}

	for name, prob := range map[string]float64{
		"household.non_wood_fuel":       c.Household.NonWoodFuel,
		"household.own_house_plot":      c.Household.OwnHousePlot,
		"household.own_any_land":        c.Household.OwnAnyLand,
		"household.rented_out_land":     c.Household.RentedOutLand,
		"neighborhood.elec_probability": c.Neighborhood.ElecProbability,
	} {
		if prob < 0 || prob > 1 {
			return invalid("%s must be in [0,1], got %g", name, prob)
		}
	}
	if c.Neighborhood.MaxYearsNonfamily < 0 {
		return invalid("neighborhood.max_years_nonfamily must be >= 0, got %g", c.Neighborhood.MaxYearsNonfamily)
	}

	if c.Marriage.MinAge < 0 || c.Marriage.MaxSpouseGap < 0 {
		return invalid("marriage.min_age and marriage.max_spouse_gap must be >= 0")
	}

	if c.Hazard.MaxAge < p.MaxAdultAge+p.MaxSpouseGap {
		return invalid("hazard.max_age %d does not cover the oldest initial person (%d)",
			c.Hazard.MaxAge, p.MaxAdultAge+p.MaxSpouseGap)
	}
	for _, t := range []struct {
		name     string
		brackets []Bracket
		optional bool
		terminal bool // everyone evaluated must die by max_age
	}{
		{"birth", c.Hazard.Birth, false, false},
		{"death", c.Hazard.Death, false, true},
		{"death_male", c.Hazard.DeathMale, true, true},
		{"marriage", c.Hazard.Marriage, false, false},
	} {
		if t.optional && len(t.brackets) == 0 {
			continue
		}
		rates, err := expand(t.name, t.brackets, c.Hazard.MaxAge)
		if err != nil {
			return err
		}
		if t.terminal && rates[c.Hazard.MaxAge] != 1 {
			return invalid("hazard.%s rate at max_age %d must be 1, got %g",
				t.name, c.Hazard.MaxAge, rates[c.Hazard.MaxAge])
		}
	}

	return c.LandUse.Validate()
}

// expand turns brackets into a per-age rate map covering 0..maxAge exactly once.
func expand(name string, brackets []Bracket, maxAge int) (map[int]float64, error) {
	rates := make(map[int]float64, maxAge+1)
	for _, b := range brackets {
		if b.MinAge < 0 || b.MinAge > b.MaxAge {
			return nil, invalid("hazard.%s bracket [%d, %d] is empty or negative", name, b.MinAge, b.MaxAge)
		}
		if b.Rate < 0 || b.Rate > 1 {
			return nil, invalid("hazard.%s rate %g for ages [%d, %d] outside [0,1]", name, b.Rate, b.MinAge, b.MaxAge)
		}
		for age := b.MinAge; age <= b.MaxAge; age++ {
			if _, dup := rates[age]; dup {
				return nil, invalid("hazard.%s brackets overlap at age %d", name, age)
			}
			rates[age] = b.Rate
		}
	}
	for age := 0; age <= maxAge; age++ {
		if _, ok := rates[age]; !ok {
			return nil, invalid("hazard.%s has no bracket for age %d", name, age)
		}
	}
	return rates, nil
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(errors.ErrInvalidConfig, format, args...)
}
