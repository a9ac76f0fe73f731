package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/config"
	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/persistence"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `Spawn an initial population and advance it timestep by timestep. Census
rows and events are stored after every timestep; the full agent hierarchy is
saved when the run ends or is interrupted.`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().String("config", "", "Path to a TOML config file (defaults when empty)")
	runCmd.Flags().Int("steps", 0, "Number of timesteps (overrides run.timesteps)")
	runCmd.Flags().Int64("seed", 0, "Random seed (overrides run.seed)")
	runCmd.Flags().String("db", "", "SQLite database path (overrides run.database_path)")
	runCmd.Flags().String("resume", "", "Continue the saved run with this ID")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("steps") {
		cfg.Run.Timesteps, _ = cmd.Flags().GetInt("steps")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("db") {
		cfg.Run.DatabasePath, _ = cmd.Flags().GetString("db")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.Run.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create database directory %s", dir)
		}
	}
	db, err := persistence.Open(cfg.Run.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Run.DatabasePath)

	var (
		run    persistence.Run
		region *engine.Region
		next   int
	)
	if resume, _ := cmd.Flags().GetString("resume"); resume != "" {
		if run, err = db.GetRun(resume); err != nil {
			return err
		}
		if cfg, err = resumeConfig(run, cfg); err != nil {
			return err
		}
		opts, err := regionOptions(cfg)
		if err != nil {
			return err
		}
		rng := entropy.NewSource(run.Seed)
		if region, next, err = db.LoadRegion(run.ID, rng, opts); err != nil {
			return err
		}
		// A resumed run continues on a stream of its own rather than
		// replaying the draws of timestep 0.
		rng.Reseed(run.Seed + int64(next))
	} else {
		opts, err := regionOptions(cfg)
		if err != nil {
			return err
		}
		if run, region, err = startRun(db, cfg, opts); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rn := &engine.Runner{Region: region, Next: next, SkipLandUse: cfg.Run.SkipLandUse}
	rn.OnStep = func(r *engine.Region, timestep int) error {
		if err := db.SaveCensus(run.ID, r.Stats()); err != nil {
			return err
		}
		if err := db.SaveEvents(run.ID, r.Events()); err != nil {
			return err
		}
		return ctx.Err()
	}

	runErr := rn.Run(cfg.Run.Timesteps)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// A failed timestep leaves the region partially stepped; it is not saved.
		slog.Error(abortMessage(runErr), "run", run.ID, "timestep", rn.Next, "fatal", errors.IsFatal(runErr))
		return runErr
	}
	if runErr != nil {
		slog.Warn("interrupted, saving state", "run", run.ID, "next_timestep", rn.Next)
	}

	if err := db.SaveRegion(run.ID, region, rn.Next); err != nil {
		return err
	}
	slog.Info("run complete",
		"run", run.ID,
		"population", humanize.Comma(int64(region.Census())),
		"households", humanize.Comma(int64(region.HouseholdCount())),
		"deceased", humanize.Comma(int64(len(region.DeceasedPersons()))),
		"next_timestep", rn.Next,
	)
	return nil
}

func regionOptions(cfg *config.Config) (engine.RegionOptions, error) {
	hazards, err := cfg.Hazards()
	if err != nil {
		return engine.RegionOptions{}, err
	}
	return engine.RegionOptions{
		Initial: true,
		Hazards: hazards,
		Policy:  cfg.Policy(),
		LandUse: cfg.LandUseModel(),
	}, nil
}

// resumeConfig returns the configuration stored with run, so a resumed run
// keeps its seed, hazards and policy. Only the timestep count and database
// path come from current. Other differences in current are logged and ignored.
func resumeConfig(run persistence.Run, current *config.Config) (*config.Config, error) {
	saved, err := config.Parse([]byte(run.Config))
	if err != nil {
		return nil, errors.Wrapf(err, "config stored with run %s", run.ID)
	}
	saved.Run.Timesteps = current.Run.Timesteps
	saved.Run.DatabasePath = current.Run.DatabasePath

	want, err := config.Marshal(saved)
	if err != nil {
		return nil, err
	}
	cur := *current
	cur.Run.Seed = saved.Run.Seed // a resumed run keeps its seed
	got, err := config.Marshal(&cur)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(want, got) {
		slog.Warn("current config differs from the one stored with the run; using the stored config", "run", run.ID)
	}
	return saved, nil
}

// abortMessage describes why a run stopped before its last timestep.
func abortMessage(err error) string {
	switch {
	case errors.IsFatal(err):
		return "simulation state is inconsistent, run not saved"
	case errors.Is(err, errors.ErrMissingHazard):
		return "hazard tables do not cover the population, run not saved"
	default:
		return "timestep failed, run not saved"
	}
}

// startRun registers a new run and spawns its initial population.
func startRun(db *persistence.DB, cfg *config.Config, opts engine.RegionOptions) (persistence.Run, *engine.Region, error) {
	cfgTOML, err := config.Marshal(cfg)
	if err != nil {
		return persistence.Run{}, nil, err
	}
	run, err := db.BeginRun(cfg.Run.Seed, string(cfgTOML))
	if err != nil {
		return persistence.Run{}, nil, err
	}

	rng := entropy.NewSource(cfg.Run.Seed)
	identities := agents.NewIdentities()
	neighborhoods, err := agents.NewSpawner(rng, identities, cfg.SpawnConfig()).SpawnNeighborhoods()
	if err != nil {
		return persistence.Run{}, nil, errors.Wrap(err, "spawn initial population")
	}

	region, err := engine.NewRegion(identities, rng, opts)
	if err != nil {
		return persistence.Run{}, nil, err
	}
	for _, n := range neighborhoods {
		if err := region.AddNeighborhood(n); err != nil {
			return persistence.Run{}, nil, err
		}
	}
	if err := region.UpdateLandUse(); err != nil {
		return persistence.Run{}, nil, err
	}

	slog.Info("initial population spawned",
		"run", run.ID,
		"seed", cfg.Run.Seed,
		"neighborhoods", len(neighborhoods),
		"households", humanize.Comma(int64(region.HouseholdCount())),
		"persons", humanize.Comma(int64(region.Census())),
	)
	return run, region, nil
}
