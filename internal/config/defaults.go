package config

import (
	"github.com/spf13/viper"
)

// Default hazard brackets. Rates are annual probabilities.
var (
	defaultBirth = []Bracket{
		{0, 14, 0},
		{15, 19, 0.08},
		{20, 24, 0.22},
		{25, 29, 0.20},
		{30, 34, 0.14},
		{35, 39, 0.08},
		{40, 44, 0.03},
		{45, 49, 0.01},
		{50, 130, 0},
	}
	defaultDeath = []Bracket{
		{0, 0, 0.05},
		{1, 4, 0.008},
		{5, 14, 0.002},
		{15, 49, 0.004},
		{50, 64, 0.015},
		{65, 74, 0.04},
		{75, 84, 0.09},
		{85, 99, 0.2},
		{100, 129, 0.5},
		{130, 130, 1},
	}
	defaultMarriage = []Bracket{
		{0, 14, 0},
		{15, 19, 0.15},
		{20, 24, 0.25},
		{25, 29, 0.15},
		{30, 39, 0.05},
		{40, 130, 0.01},
	}
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("run.seed", 1)
	v.SetDefault("run.timesteps", 20)
	v.SetDefault("run.database_path", "chitwan.db")
	v.SetDefault("run.remove_empty_households", true)
	v.SetDefault("run.skip_landuse", false)

	v.SetDefault("population.neighborhoods", 10)
	v.SetDefault("population.households_per_neighborhood", 20)
	v.SetDefault("population.mean_household_size", 5.5) // persons, couple included
	v.SetDefault("population.household_size_sd", 2)
	v.SetDefault("population.mean_adult_age", 32)
	v.SetDefault("population.adult_age_sd", 9)
	v.SetDefault("population.min_adult_age", 16)
	v.SetDefault("population.max_adult_age", 70)
	v.SetDefault("population.max_spouse_gap", 6)
	v.SetDefault("population.min_mother_age", 15)

	v.SetDefault("household.non_wood_fuel", 0.3)
	v.SetDefault("household.own_house_plot", 0.85)
	v.SetDefault("household.own_any_land", 0.7)
	v.SetDefault("household.rented_out_land", 0.1)

	v.SetDefault("neighborhood.elec_probability", 0.6)
	v.SetDefault("neighborhood.max_years_nonfamily", 50)

	v.SetDefault("marriage.min_age", 15)
	v.SetDefault("marriage.max_spouse_gap", 15)

	v.SetDefault("hazard.max_age", 130)
	v.SetDefault("hazard.birth", bracketMaps(defaultBirth))
	v.SetDefault("hazard.death", bracketMaps(defaultDeath))
	v.SetDefault("hazard.marriage", bracketMaps(defaultMarriage))

	v.SetDefault("landuse.agricultural", 0.6)
	v.SetDefault("landuse.non_agricultural", 0.1)
	v.SetDefault("landuse.private", 0.15)
	v.SetDefault("landuse.public", 0.1)
	v.SetDefault("landuse.other", 0.05)
}

// bracketMaps converts brackets to the shape viper reads from an array of
// TOML tables, so defaults and file values decode the same way.
func bracketMaps(bs []Bracket) []map[string]any {
	out := make([]map[string]any, 0, len(bs))
	for _, b := range bs {
		out = append(out, map[string]any{"min_age": b.MinAge, "max_age": b.MaxAge, "rate": b.Rate})
	}
	return out
}
