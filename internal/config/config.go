// Package config holds run parameters and demographic hazard tables.
//
// Configuration is TOML, read with viper. Every key has a default (see
// SetDefaults) and can be overridden from the environment with the CHITWAN_
// prefix, e.g. CHITWAN_RUN_SEED=7.
package config

import (
	"github.com/talgya/chitwan-abm/internal/landuse"
)

// Config is the complete configuration of a simulation run.
type Config struct {
	Run          RunConfig           `mapstructure:"run" toml:"run"`
	Population   PopulationConfig    `mapstructure:"population" toml:"population"`
	Household    HouseholdConfig     `mapstructure:"household" toml:"household"`
	Neighborhood NeighborhoodConfig  `mapstructure:"neighborhood" toml:"neighborhood"`
	Marriage     MarriageConfig      `mapstructure:"marriage" toml:"marriage"`
	Hazard       HazardConfig        `mapstructure:"hazard" toml:"hazard"`
	LandUse      landuse.Proportions `mapstructure:"landuse" toml:"landuse"`
}

type RunConfig struct {
	Seed                  int64  `mapstructure:"seed" toml:"seed"`
	Timesteps             int    `mapstructure:"timesteps" toml:"timesteps"` // one timestep is one year
	DatabasePath          string `mapstructure:"database_path" toml:"database_path"`
	RemoveEmptyHouseholds bool   `mapstructure:"remove_empty_households" toml:"remove_empty_households"`
	SkipLandUse           bool   `mapstructure:"skip_landuse" toml:"skip_landuse"`
}

// PopulationConfig shapes the initial population.
type PopulationConfig struct {
	Neighborhoods             int     `mapstructure:"neighborhoods" toml:"neighborhoods"`
	HouseholdsPerNeighborhood int     `mapstructure:"households_per_neighborhood" toml:"households_per_neighborhood"`
	MeanHouseholdSize         float64 `mapstructure:"mean_household_size" toml:"mean_household_size"`
	HouseholdSizeSD           float64 `mapstructure:"household_size_sd" toml:"household_size_sd"`
	MeanAdultAge              float64 `mapstructure:"mean_adult_age" toml:"mean_adult_age"`
	AdultAgeSD                float64 `mapstructure:"adult_age_sd" toml:"adult_age_sd"`
	MinAdultAge               int     `mapstructure:"min_adult_age" toml:"min_adult_age"`
	MaxAdultAge               int     `mapstructure:"max_adult_age" toml:"max_adult_age"`
	MaxSpouseGap              int     `mapstructure:"max_spouse_gap" toml:"max_spouse_gap"`
	MinMotherAge              int     `mapstructure:"min_mother_age" toml:"min_mother_age"`
}

// HouseholdConfig holds the odds of each household attribute.
type HouseholdConfig struct {
	NonWoodFuel   float64 `mapstructure:"non_wood_fuel" toml:"non_wood_fuel"`
	OwnHousePlot  float64 `mapstructure:"own_house_plot" toml:"own_house_plot"`
	OwnAnyLand    float64 `mapstructure:"own_any_land" toml:"own_any_land"`
	RentedOutLand float64 `mapstructure:"rented_out_land" toml:"rented_out_land"`
}

type NeighborhoodConfig struct {
	ElecProbability   float64 `mapstructure:"elec_probability" toml:"elec_probability"`
	MaxYearsNonfamily float64 `mapstructure:"max_years_nonfamily" toml:"max_years_nonfamily"`
}

// MarriageConfig is the partner-selection policy.
type MarriageConfig struct {
	MinAge       int `mapstructure:"min_age" toml:"min_age"`
	MaxSpouseGap int `mapstructure:"max_spouse_gap" toml:"max_spouse_gap"` // 0 = unbounded
}

// HazardConfig lists hazards as age brackets. Every age from 0 to MaxAge must
// be covered by exactly one bracket of the birth, death and marriage tables.
// DeathMale is optional; leave it empty to exempt males from death events.
type HazardConfig struct {
	MaxAge    int       `mapstructure:"max_age" toml:"max_age"`
	Birth     []Bracket `mapstructure:"birth" toml:"birth"`
	Death     []Bracket `mapstructure:"death" toml:"death"`
	DeathMale []Bracket `mapstructure:"death_male" toml:"death_male,omitempty"`
	Marriage  []Bracket `mapstructure:"marriage" toml:"marriage"`
}

// Bracket assigns one rate to the inclusive age range [MinAge, MaxAge].
type Bracket struct {
	MinAge int     `mapstructure:"min_age" toml:"min_age"`
	MaxAge int     `mapstructure:"max_age" toml:"max_age"`
	Rate   float64 `mapstructure:"rate" toml:"rate"`
}
