package engine

import (
	"log/slog"
	"time"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// Runner drives a region forward one timestep at a time. Everything runs on
// the caller's goroutine; a timestep either completes or the run aborts.
type Runner struct {
	Region *Region
	Next   int // timestep the next step will run; the first timestep is 0

	// SkipLandUse disables the land-use update after each step.
	SkipLandUse bool

	// OnStep is called after every completed timestep, e.g. to persist
	// events and census. An error aborts the run.
	OnStep func(r *Region, timestep int) error
}

// NewRunner creates a runner starting at timestep 0.
func NewRunner(r *Region) *Runner {
	return &Runner{Region: r}
}

// Run advances the region by steps timesteps.
func (rn *Runner) Run(steps int) error {
	slog.Info("simulation started", "region", rn.Region.ID(), "timestep", rn.Next, "steps", steps,
		"population", rn.Region.Census(), "households", rn.Region.HouseholdCount())
	start := time.Now()

	for i := 0; i < steps; i++ {
		if err := rn.step(); err != nil {
			slog.Error("simulation aborted", "timestep", rn.Next, "error", err)
			return err
		}
	}

	slog.Info("simulation finished", "region", rn.Region.ID(), "next_timestep", rn.Next,
		"population", rn.Region.Census(), "elapsed", time.Since(start).String())
	return nil
}

// step advances the simulation by one timestep.
func (rn *Runner) step() error {
	t := rn.Next
	if err := rn.Region.Step(t); err != nil {
		return err
	}
	if !rn.SkipLandUse {
		if err := rn.Region.UpdateLandUse(); err != nil {
			return errors.Wrapf(err, "timestep %d", t)
		}
	}
	rn.Next++
	if rn.OnStep != nil {
		if err := rn.OnStep(rn.Region, t); err != nil {
			return errors.Wrapf(err, "after timestep %d", t)
		}
	}
	return nil
}
