package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/chitwan-abm/internal/api"
	"github.com/talgya/chitwan-abm/internal/persistence"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over a read-only HTTP API",
	Long: `Serve run metadata, census history, events and age structure as JSON:

  GET /api/v1/runs
  GET /api/v1/runs/latest
  GET /api/v1/runs/{id}
  GET /api/v1/runs/{id}/census?from=&to=
  GET /api/v1/runs/{id}/events?limit=
  GET /api/v1/runs/{id}/pyramid?width=`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		addr, _ := cmd.Flags().GetString("addr")
		ratePerMin, _ := cmd.Flags().GetInt("rate")
		origins, _ := cmd.Flags().GetStringSlice("allow-origin")

		db, err := persistence.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &api.Server{DB: db, Addr: addr, RatePerMin: ratePerMin, AllowOrigins: origins}
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("db", "chitwan.db", "SQLite database path")
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().Int("rate", 120, "Requests per minute per client (0 disables)")
	serveCmd.Flags().StringSlice("allow-origin", []string{"http://localhost:5173"}, "CORS origins")

	rootCmd.AddCommand(serveCmd)
}
