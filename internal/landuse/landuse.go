// Package landuse defines the boundary between the demographic model and the
// land-use model. The region hands per-neighborhood aggregates to a Model and
// stores the proportions it returns back on each neighborhood.
package landuse

import (
	"github.com/talgya/chitwan-abm/internal/errors"
)

// Attributes are the neighborhood aggregates a land-use model consumes.
type Attributes struct {
	NeighborhoodID            uint64  `json:"neighborhood_id"`
	Population                int     `json:"population"`
	Households                int     `json:"households"`
	AvgYearsNonfamilyServices float64 `json:"avg_years_nonfamily_services"`
	ElecAvailable             bool    `json:"elec_available"`
	NonWoodFuelShare          float64 `json:"non_wood_fuel_share"` // share of households, 0 to 1
	OwnLandShare              float64 `json:"own_land_share"`      // share of households, 0 to 1
}

// Proportions is the share of a neighborhood's area under each land-use class.
type Proportions struct {
	Agricultural    float64 `json:"agricultural" mapstructure:"agricultural" toml:"agricultural"`
	NonAgricultural float64 `json:"non_agricultural" mapstructure:"non_agricultural" toml:"non_agricultural"`
	Private         float64 `json:"private" mapstructure:"private" toml:"private"`
	Public          float64 `json:"public" mapstructure:"public" toml:"public"`
	Other           float64 `json:"other" mapstructure:"other" toml:"other"`
}

// Total returns the sum of all classes.
func (p Proportions) Total() float64 {
	return p.Agricultural + p.NonAgricultural + p.Private + p.Public + p.Other
}

// Validate checks every class is in [0,1] and the classes sum to at most 1.
func (p Proportions) Validate() error {
	for name, v := range map[string]float64{
		"agricultural":     p.Agricultural,
		"non_agricultural": p.NonAgricultural,
		"private":          p.Private,
		"public":           p.Public,
		"other":            p.Other,
	} {
		if v < 0 || v > 1 {
			return errors.Wrapf(errors.ErrInvalidConfig, "land-use proportion %s = %g outside [0,1]", name, v)
		}
	}
	if p.Total() > 1+1e-9 {
		return errors.Wrapf(errors.ErrInvalidConfig, "land-use proportions sum to %g", p.Total())
	}
	return nil
}

// Model updates land-use proportions from neighborhood aggregates. The
// returned map is keyed by neighborhood ID; neighborhoods missing from it keep
// their previous proportions.
type Model interface {
	Update(attrs []Attributes) (map[uint64]Proportions, error)
}

// Static is a Model that assigns the same proportions to every neighborhood.
// It stands in for the regression model, which lives outside this module.
type Static struct {
	Proportions Proportions
}

// Update implements Model.
func (s Static) Update(attrs []Attributes) (map[uint64]Proportions, error) {
	if err := s.Proportions.Validate(); err != nil {
		return nil, err
	}
	out := make(map[uint64]Proportions, len(attrs))
	for _, a := range attrs {
		out[a.NeighborhoodID] = s.Proportions
	}
	return out, nil
}
