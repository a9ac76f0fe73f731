package engine

import (
	"github.com/talgya/chitwan-abm/internal/agents"
)

// Event categories.
const (
	CategoryBirth    = "birth"
	CategoryDeath    = "death"
	CategoryMarriage = "marriage"
	CategoryHousing  = "household"
)

// Event is a demographic occurrence during a timestep.
type Event struct {
	Timestep    int                `json:"timestep" db:"timestep"`
	Category    string             `json:"category" db:"category"`
	PersonID    agents.PersonID    `json:"person_id" db:"person_id"`
	OtherID     agents.PersonID    `json:"other_id,omitempty" db:"other_id"` // child, spouse or partner
	HouseholdID agents.HouseholdID `json:"household_id,omitempty" db:"household_id"`
	Description string             `json:"description" db:"description"`
}

// StepStats summarizes one timestep.
type StepStats struct {
	Timestep           int `json:"timestep" db:"timestep"`
	Population         int `json:"population" db:"population"`
	Households         int `json:"households" db:"households"`
	Births             int `json:"births" db:"births"`
	Deaths             int `json:"deaths" db:"deaths"`
	Marriages          int `json:"marriages" db:"marriages"`
	UnmatchedMarriages int `json:"unmatched_marriages" db:"unmatched_marriages"` // marriage drawn, no partner found
	HouseholdsRemoved  int `json:"households_removed" db:"households_removed"`
}
