// Package entropy provides the single re-seedable random stream shared by a
// simulation run. Every stochastic decision (sex assignment, household
// attributes, hazard draws, partner choice) reads from the same Source so
// identical seeds reproduce identical runs.
package entropy

import (
	"log/slog"
	"math/rand"
)

// Stream is the subset of a random source the model consumes.
type Stream interface {
	// Float returns a uniform value in [0, 1).
	Float() float64
	// Intn returns a uniform value in [0, n). n must be > 0.
	Intn(n int) int
}

// Source is a seeded pseudo-random stream. It is not safe for concurrent use.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// NewSource creates a stream seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the stream was last (re)seeded with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Reseed restarts the stream from seed.
func (s *Source) Reseed(seed int64) {
	s.seed = seed
	s.rng.Seed(seed)
	slog.Debug("random stream reseeded", "seed", seed)
}

// Float returns a uniform float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Intn returns a uniform int in [0, n).
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// NormFloat64 returns a standard normal draw.
func (s *Source) NormFloat64() float64 {
	return s.rng.NormFloat64()
}

// Bool returns true with probability p.
func (s *Source) Bool(p float64) bool {
	return s.rng.Float64() < p
}

// Chance draws from st and reports whether the draw fell below p.
func Chance(st Stream, p float64) bool {
	return st.Float() < p
}
