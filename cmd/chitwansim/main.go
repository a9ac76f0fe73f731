// Command chitwansim runs the Chitwan Valley demographic agent-based model.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chitwansim",
	Short: "Chitwan Valley demographic agent-based model",
	Long: `chitwansim simulates births, deaths, marriages and aging in a region of
neighborhoods, households and persons, one year per timestep.

Examples:
  chitwansim config init chitwan.toml     # Write the default configuration
  chitwansim run --config chitwan.toml    # Run a simulation
  chitwansim run --resume <run-id>        # Continue a saved run
  chitwansim census                       # Census of the latest run
  chitwansim serve --addr :8080           # Query stored runs over HTTP`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every demographic event")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(censusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
