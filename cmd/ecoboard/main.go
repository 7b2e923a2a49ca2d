// Package main is the entry point for the ecoboard CLI.
//
// EcoBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	ecoboard serve -c config.yaml            # Start the dashboard
//	ecoboard snapshot -c config.yaml -o out  # Render every panel once to files
//	ecoboard validate -c config.yaml         # Validate configuration
//	ecoboard version                         # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "ecoboard",
	Short: "A live energy dashboard for a server fleet",
	Long: `EcoBoard is a live dashboard for a load-optimisation API.

It polls the API every few seconds and shows current server usage, the
optimised load allocation, a one-hour load prediction and summary metrics
(utilisation, energy savings, total energy).

Quick start:
  1. Start the optimisation API (or: go run ./example/cmd/mockapi)
  2. Run: ecoboard serve
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 5s
  api:
    base: ${OPTIMIZER_URL:-http://localhost:5000}`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this ecoboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ecoboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
