package engine

import (
	"slices"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// HazardTable maps age to the per-timestep probability of an event.
type HazardTable struct {
	Name  string
	rates map[int]float64
}

// NewHazardTable validates rates and copies them into a table.
func NewHazardTable(name string, rates map[int]float64) (*HazardTable, error) {
	t := &HazardTable{Name: name, rates: make(map[int]float64, len(rates))}
	for age, p := range rates {
		if age < 0 {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "hazard table %s: negative age %d", name, age)
		}
		if p < 0 || p > 1 {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "hazard table %s: rate %g at age %d outside [0,1]", name, p, age)
		}
		t.rates[age] = p
	}
	return t, nil
}

// Rate returns the hazard for age. A missing age is a configuration error;
// it is never defaulted.
func (t *HazardTable) Rate(age int) (float64, error) {
	p, ok := t.rates[age]
	if !ok {
		return 0, errors.Wrapf(errors.ErrMissingHazard, "table %s, age %d", t.Name, age)
	}
	return p, nil
}

// Has reports whether the table covers age.
func (t *HazardTable) Has(age int) bool {
	_, ok := t.rates[age]
	return ok
}

// Ages returns the covered ages in ascending order.
func (t *HazardTable) Ages() []int {
	ages := make([]int, 0, len(t.rates))
	for a := range t.rates {
		ages = append(ages, a)
	}
	slices.Sort(ages)
	return ages
}

// Hazards groups the demographic hazard tables of a region. Birth, Death and
// Marriage are evaluated for females only. DeathMale is optional; when nil,
// males are not subject to death events.
type Hazards struct {
	Birth     *HazardTable
	Death     *HazardTable
	Marriage  *HazardTable
	DeathMale *HazardTable
}

// Validate checks the required tables are present.
func (h Hazards) Validate() error {
	if h.Birth == nil || h.Death == nil || h.Marriage == nil {
		return errors.Wrap(errors.ErrInvalidConfig, "birth, death and marriage hazard tables are required")
	}
	return nil
}
