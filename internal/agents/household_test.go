package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
)

func TestHouseholdMembership(t *testing.T) {
	idn := NewIdentities()
	h, err := NewHousehold(idn.Households, 0, true, HouseholdAttributes{OwnAnyLand: true})
	require.NoError(t, err)
	wife, husband := marriedCouple(t, idn)

	require.NoError(t, h.Add(wife))
	require.NoError(t, h.Add(husband))
	assert.Equal(t, 2, h.NumMembers())
	assert.Equal(t, h.ID(), wife.HouseholdID())

	got, ok := h.Person(husband.ID())
	require.True(t, ok)
	assert.Same(t, husband, got)

	removed, err := h.Remove(wife.ID())
	require.NoError(t, err)
	assert.Same(t, wife, removed)
	assert.Zero(t, wife.HouseholdID())
	assert.Equal(t, 1, h.NumMembers())
}

func TestPersonInOneHouseholdOnly(t *testing.T) {
	idn := NewIdentities()
	a, err := NewHousehold(idn.Households, 0, true, HouseholdAttributes{})
	require.NoError(t, err)
	b, err := NewHousehold(idn.Households, 0, true, HouseholdAttributes{})
	require.NoError(t, err)
	p := newTestPerson(t, idn, SexFemale, 20)

	require.NoError(t, a.Add(p))
	err = b.Add(p)
	assert.True(t, errors.Is(err, errors.ErrDuplicateMember))
	assert.Equal(t, a.ID(), p.HouseholdID())
	assert.Zero(t, b.NumMembers())

	_, err = b.Remove(p.ID())
	assert.True(t, errors.Is(err, errors.ErrMemberNotFound))
}

func TestNeighborhoodAggregates(t *testing.T) {
	idn := NewIdentities()
	n, err := NewNeighborhood(idn.Neighborhoods, 0, true, NeighborhoodAttributes{AvgYearsNonfamilyServices: 12, ElecAvailable: true})
	require.NoError(t, err)

	h1, err := NewHousehold(idn.Households, 0, true, HouseholdAttributes{NonWoodFuel: true, OwnAnyLand: true})
	require.NoError(t, err)
	h2, err := NewHousehold(idn.Households, 0, true, HouseholdAttributes{})
	require.NoError(t, err)
	wife, husband := marriedCouple(t, idn)
	require.NoError(t, h1.Add(wife))
	require.NoError(t, h1.Add(husband))
	require.NoError(t, h2.Add(newTestPerson(t, idn, SexMale, 60)))
	require.NoError(t, n.Add(h1))
	require.NoError(t, n.Add(h2))

	assert.Equal(t, 2, n.NumHouseholds())
	assert.Equal(t, 3, n.Population())
	assert.Equal(t, n.ID(), h1.NeighborhoodID())

	attrs := n.Attributes()
	assert.Equal(t, uint64(n.ID()), attrs.NeighborhoodID)
	assert.Equal(t, 3, attrs.Population)
	assert.Equal(t, 2, attrs.Households)
	assert.InDelta(t, 0.5, attrs.NonWoodFuelShare, 1e-9)
	assert.InDelta(t, 0.5, attrs.OwnLandShare, 1e-9)
	assert.True(t, attrs.ElecAvailable)

	err = n.Add(h1)
	assert.True(t, errors.Is(err, errors.ErrDuplicateMember))
}

func TestDrawHouseholdAttributesExtremes(t *testing.T) {
	st := entropy.NewSource(4)
	all := DrawHouseholdAttributes(st, HouseholdOdds{NonWoodFuel: 1, OwnHousePlot: 1, OwnAnyLand: 1, RentedOutLand: 1})
	assert.Equal(t, HouseholdAttributes{NonWoodFuel: true, OwnHousePlot: true, OwnAnyLand: true, RentedOutLand: true}, all)

	none := DrawHouseholdAttributes(st, HouseholdOdds{RentedOutLand: 1})
	assert.False(t, none.RentedOutLand, "cannot rent out land the household does not own")
}
