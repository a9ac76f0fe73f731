package landuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/errors"
)

func TestStaticAssignsEveryNeighborhood(t *testing.T) {
	m := Static{Proportions: Proportions{Agricultural: 0.6, Private: 0.3, Other: 0.1}}

	out, err := m.Update([]Attributes{{NeighborhoodID: 1}, {NeighborhoodID: 4}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.6, out[1].Agricultural)
	assert.Equal(t, 0.3, out[4].Private)
}

func TestProportionsValidate(t *testing.T) {
	assert.NoError(t, Proportions{Agricultural: 1}.Validate())

	err := Proportions{Agricultural: 0.8, Public: 0.4}.Validate()
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	err = Proportions{Other: -0.1}.Validate()
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestStaticRejectsInvalidProportions(t *testing.T) {
	_, err := Static{Proportions: Proportions{Agricultural: 2}}.Update(nil)
	assert.Error(t, err)
}
