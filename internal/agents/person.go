package agents

import (
	"slices"

	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/ids"
)

// Person is the leaf agent of the hierarchy.
type Person struct {
	Agent[PersonID]

	// BirthTimestep is <= 0 for the initial population and the timestep of
	// birth for persons born during the run.
	BirthTimestep int `json:"birth_timestep"`
	// DeathTimestep is set once, at death. It is kept for audit only;
	// removal from the household is what takes a person out of the model.
	DeathTimestep *int `json:"death_timestep,omitempty"`

	// Age counts elapsed timesteps. The region's aging pass is the only
	// thing that advances it.
	Age int `json:"age"`
	Sex Sex `json:"sex"`

	MotherID PersonID   `json:"mother_id,omitempty"`
	FatherID PersonID   `json:"father_id,omitempty"`
	SpouseID PersonID   `json:"spouse_id,omitempty"`
	Children []PersonID `json:"children,omitempty"`

	householdID HouseholdID
}

// PersonSpec describes a person to create. A zero ID issues a fresh one and
// SexUnspecified draws the sex at random.
type PersonSpec struct {
	ID            PersonID
	BirthTimestep int
	Age           int
	Sex           Sex
	MotherID      PersonID
	FatherID      PersonID
	Initial       bool
}

// NewPerson creates a person from spec.
func NewPerson(gen *ids.Generator[PersonID], st entropy.Stream, spec PersonSpec) (*Person, error) {
	if spec.Age < 0 {
		return nil, errors.AssertionFailedf("person age %d is negative", spec.Age)
	}
	base, err := NewAgent(gen, spec.ID, spec.Initial)
	if err != nil {
		return nil, err
	}
	if spec.MotherID == base.id || spec.FatherID == base.id {
		return nil, errors.AssertionFailedf("person %d cannot be their own parent", base.id)
	}

	sex := spec.Sex
	if sex == SexUnspecified {
		sex = randomSex(st)
	}

	return &Person{
		Agent:         base,
		BirthTimestep: spec.BirthTimestep,
		Age:           spec.Age,
		Sex:           sex,
		MotherID:      spec.MotherID,
		FatherID:      spec.FatherID,
	}, nil
}

func randomSex(st entropy.Stream) Sex {
	if entropy.Chance(st, 0.5) {
		return SexFemale
	}
	return SexMale
}

// HouseholdID returns the household the person currently belongs to, or zero.
func (p *Person) HouseholdID() HouseholdID {
	return p.householdID
}

// IsMarried reports whether the person has a recorded spouse.
func (p *Person) IsMarried() bool {
	return p.SpouseID != 0
}

// IsAlive reports whether the person has not died.
func (p *Person) IsAlive() bool {
	return p.DeathTimestep == nil
}

// Marry links p and other as spouses.
func (p *Person) Marry(other *Person) error {
	switch {
	case other == nil:
		return errors.AssertionFailedf("person %d cannot marry nobody", p.id)
	case p.id == other.id:
		return errors.AssertionFailedf("person %d cannot marry themselves", p.id)
	case p.IsMarried():
		return errors.AssertionFailedf("person %d is already married to %d", p.id, p.SpouseID)
	case other.IsMarried():
		return errors.AssertionFailedf("person %d is already married to %d", other.id, other.SpouseID)
	case p.Sex == other.Sex:
		return errors.AssertionFailedf("persons %d and %d are both %s", p.id, other.id, p.Sex)
	case !p.IsAlive() || !other.IsAlive():
		return errors.AssertionFailedf("persons %d and %d must both be alive to marry", p.id, other.id)
	}
	p.SpouseID = other.id
	other.SpouseID = p.id
	return nil
}

// Widow clears the spouse link after the spouse dies.
func (p *Person) Widow() {
	p.SpouseID = 0
}

// GiveBirth has p bear a child fathered by father. The mother must be female
// and married to father. The child is appended to both parents' children
// but is not placed in a household; the caller does that.
func (p *Person) GiveBirth(timestep int, father *Person, gen *ids.Generator[PersonID], st entropy.Stream) (*Person, error) {
	switch {
	case p.Sex != SexFemale:
		return nil, errors.AssertionFailedf("person %d is %s and cannot give birth", p.id, p.Sex)
	case father == nil:
		return nil, errors.AssertionFailedf("person %d cannot give birth without a father", p.id)
	case father.id == p.id:
		return nil, errors.AssertionFailedf("person %d cannot father their own child", p.id)
	case p.SpouseID != father.id:
		return nil, errors.AssertionFailedf("person %d is not married to %d; births must be in marriages", p.id, father.id)
	case !p.IsAlive():
		return nil, errors.AssertionFailedf("person %d is dead and cannot give birth", p.id)
	}

	child, err := NewPerson(gen, st, PersonSpec{
		BirthTimestep: timestep,
		MotherID:      p.id,
		FatherID:      father.id,
	})
	if err != nil {
		return nil, err
	}
	p.Children = append(p.Children, child.id)
	father.Children = append(father.Children, child.id)
	return child, nil
}

// Die records the death timestep. A person dies once.
func (p *Person) Die(timestep int) error {
	if !p.IsAlive() {
		return errors.AssertionFailedf("person %d already died at %d", p.id, *p.DeathTimestep)
	}
	t := timestep
	p.DeathTimestep = &t
	return nil
}

// CloseKin reports whether p and other are parent and child or share a parent.
func (p *Person) CloseKin(other *Person) bool {
	if p.id == other.id {
		return true
	}
	if p.MotherID == other.id || p.FatherID == other.id ||
		other.MotherID == p.id || other.FatherID == p.id {
		return true
	}
	if p.MotherID != 0 && p.MotherID == other.MotherID {
		return true
	}
	if p.FatherID != 0 && p.FatherID == other.FatherID {
		return true
	}
	return slices.Contains(p.Children, other.id)
}
