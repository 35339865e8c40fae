// Package cli implements the hfi-sidecar command-line interface: a
// spf13/cobra root command with persistent flags, plus one subcommand
// per operation.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Version, Commit and Date are stamped by cmd/hfi-sidecar/main.go from
	// build-time ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "hfi-sidecar",
	Short: "hfi-sidecar runs the HTTP fault-injection data plane as a standalone proxy",
	Long: `hfi-sidecar fronts an upstream HTTP handler with a fault-injection
engine: it pulls a ruleset from a control plane, matches each request
against it, and injects aborts or delays for the rules that fire.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
