package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chitwan.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(1), cfg.Run.Seed)
	assert.Equal(t, "chitwan.db", cfg.Run.DatabasePath)
	assert.True(t, cfg.Run.RemoveEmptyHouseholds)
	assert.Equal(t, 130, cfg.Hazard.MaxAge)
	assert.Equal(t, defaultBirth, cfg.Hazard.Birth)
	assert.Empty(t, cfg.Hazard.DeathMale)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[run]
seed = 99
timesteps = 5

[population]
neighborhoods = 2

[hazard]
max_age = 100

[[hazard.birth]]
min_age = 0
max_age = 100
rate = 0

[[hazard.death]]
min_age = 0
max_age = 99
rate = 0.01

[[hazard.death]]
min_age = 100
max_age = 100
rate = 1

[[hazard.death_male]]
min_age = 0
max_age = 99
rate = 0.02

[[hazard.death_male]]
min_age = 100
max_age = 100
rate = 1

[[hazard.marriage]]
min_age = 0
max_age = 100
rate = 0.1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Run.Seed)
	assert.Equal(t, 5, cfg.Run.Timesteps)
	assert.Equal(t, 2, cfg.Population.Neighborhoods)
	assert.Equal(t, 20, cfg.Population.HouseholdsPerNeighborhood, "unset keys keep defaults")
	assert.Equal(t, []Bracket{{MinAge: 0, MaxAge: 99, Rate: 0.02}, {MinAge: 100, MaxAge: 100, Rate: 1}}, cfg.Hazard.DeathMale)

	hz, err := cfg.Hazards()
	require.NoError(t, err)
	require.NotNil(t, hz.DeathMale)
	rate, err := hz.Death.Rate(99)
	require.NoError(t, err)
	assert.Equal(t, 0.01, rate)
	rate, err = hz.Death.Rate(100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	_, err = hz.Death.Rate(101)
	assert.True(t, errors.Is(err, errors.ErrMissingHazard))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "[run]\nseed = 3\n")
	t.Setenv("CHITWAN_RUN_SEED", "8")
	t.Setenv("CHITWAN_MARRIAGE_MIN_AGE", "18")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), cfg.Run.Seed)
	assert.Equal(t, 18, cfg.Marriage.MinAge)
	assert.Equal(t, 18, cfg.Policy().MinMarriageAge)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestWriteDefaultLoadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefault(&buf))
	path := writeConfig(t, buf.String())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMarshalShowsEffectiveConfig(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "database_path")
	assert.Contains(t, string(data), "chitwan.db")
	assert.Contains(t, string(data), "min_age")
}

func TestParseRestoresMarshaledConfig(t *testing.T) {
	cfg := Default()
	cfg.Run.Seed = 17
	cfg.Marriage.MinAge = 18
	cfg.Hazard.DeathMale = []Bracket{{MinAge: 0, MaxAge: 129, Rate: 0.01}, {MinAge: 130, MaxAge: 130, Rate: 1}}
	data, err := Marshal(cfg)
	require.NoError(t, err)

	t.Setenv("CHITWAN_MARRIAGE_MIN_AGE", "21")
	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("[run]\ntimesteps = -2\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = Parse([]byte("[run\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{
			name:   "negative timesteps",
			modify: func(c *Config) { c.Run.Timesteps = -1 },
			want:   "run.timesteps",
		},
		{
			name:   "probability above one",
			modify: func(c *Config) { c.Household.OwnAnyLand = 1.5 },
			want:   "household.own_any_land",
		},
		{
			name:   "adult age range inverted",
			modify: func(c *Config) { c.Population.MinAdultAge = 80 },
			want:   "min_adult_age",
		},
		{
			name: "gap in hazard brackets",
			modify: func(c *Config) {
				c.Hazard.Death = []Bracket{{MinAge: 0, MaxAge: 10, Rate: 0.1}, {MinAge: 12, MaxAge: 130, Rate: 1}}
			},
			want: "hazard.death has no bracket for age 11",
		},
		{
			name: "overlapping hazard brackets",
			modify: func(c *Config) {
				c.Hazard.Marriage = []Bracket{{MinAge: 0, MaxAge: 20, Rate: 0.1}, {MinAge: 20, MaxAge: 130, Rate: 0.1}}
			},
			want: "overlap at age 20",
		},
		{
			name:   "rate outside unit interval",
			modify: func(c *Config) { c.Hazard.Birth = []Bracket{{MinAge: 0, MaxAge: 130, Rate: 2}} },
			want:   "hazard.birth rate 2",
		},
		{
			name: "death rate below one at max age",
			modify: func(c *Config) {
				c.Hazard.Death = []Bracket{{MinAge: 0, MaxAge: 130, Rate: 0.5}}
			},
			want: "hazard.death rate at max_age 130 must be 1",
		},
		{
			name: "male death rate below one at max age",
			modify: func(c *Config) {
				c.Hazard.DeathMale = []Bracket{{MinAge: 0, MaxAge: 129, Rate: 0.1}, {MinAge: 130, MaxAge: 130, Rate: 0.9}}
			},
			want: "hazard.death_male rate at max_age 130 must be 1",
		},
		{
			name:   "max age below oldest initial person",
			modify: func(c *Config) { c.Hazard.MaxAge = 40 },
			want:   "hazard.max_age 40",
		},
		{
			name:   "land use above one",
			modify: func(c *Config) { c.LandUse.Other = 0.9 },
			want:   "land-use proportions sum",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	sc := cfg.SpawnConfig()
	assert.Equal(t, cfg.Population.Neighborhoods, sc.Neighborhoods)
	assert.Equal(t, cfg.Household.OwnAnyLand, sc.HouseholdOdds.OwnAnyLand)
	assert.Equal(t, cfg.Neighborhood.ElecProbability, sc.ElecProbability)

	hz, err := cfg.Hazards()
	require.NoError(t, err)
	require.NoError(t, hz.Validate())
	assert.Nil(t, hz.DeathMale)
	assert.Len(t, hz.Birth.Ages(), 131)
	rate, err := hz.Birth.Rate(22)
	require.NoError(t, err)
	assert.Equal(t, 0.22, rate)

	assert.NotNil(t, cfg.LandUseModel())
	cfg.Run.SkipLandUse = true
	assert.Nil(t, cfg.LandUseModel())
}

func TestLoadWithViperSkipsValidation(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("run.timesteps", -4)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, -4, cfg.Run.Timesteps)
}
