package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/persistence"
)

var censusCmd = &cobra.Command{
	Use:   "census",
	Short: "Show the per-timestep census of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		runID, _ := cmd.Flags().GetString("run")
		eventLimit, _ := cmd.Flags().GetInt("events")

		db, err := persistence.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if runID == "" {
			if runID, err = db.LatestRun(); err != nil {
				return errors.WithHint(errors.Wrap(err, "no runs recorded"), "start one with: chitwansim run")
			}
		}
		run, err := db.GetRun(runID)
		if err != nil {
			return err
		}
		rows, err := db.CensusHistory(run.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s (seed %d, started %s)\n\n", run.ID, run.Seed, run.StartedAt)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "timestep\tpopulation\thouseholds\tbirths\tdeaths\tmarriages\tunmatched\tdissolved\t")
		for _, s := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t\n",
				s.Timestep, humanize.Comma(int64(s.Population)), humanize.Comma(int64(s.Households)),
				s.Births, s.Deaths, s.Marriages, s.UnmatchedMarriages, s.HouseholdsRemoved)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if eventLimit > 0 {
			events, err := db.RecentEvents(run.ID, eventLimit)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nlast %d events:\n", len(events))
			for _, e := range events {
				fmt.Fprintf(out, "  [%d] %-9s %s\n", e.Timestep, e.Category, e.Description)
			}
		}
		return nil
	},
}

func init() {
	censusCmd.Flags().String("db", "chitwan.db", "SQLite database path")
	censusCmd.Flags().String("run", "", "Run ID (latest run when empty)")
	censusCmd.Flags().Int("events", 0, "Also show the N most recent events")
}
