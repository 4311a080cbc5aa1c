// Package cmd wires the rulehound CLI.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulehound/rulehound/internal/mcp"
	"github.com/rulehound/rulehound/internal/providers"
	"github.com/rulehound/rulehound/internal/rules"
)

var (
	flagConfig  string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rulehound",
		Short:         "Extract business rules from a codebase",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flagVerbose)
		},
	}
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a JSON5 config file")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(toolsCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// printError prefixes the message with the failure category so scripted
// callers can tell setup failures from model and output failures apart.
func printError(err error) {
	var disc *mcp.DiscoveryError
	var call *providers.CallError
	var valid *rules.ValidationError
	switch {
	case errors.As(err, &disc):
		fmt.Fprintf(os.Stderr, "Error (tool discovery): %v\n", err)
	case errors.As(err, &call):
		fmt.Fprintf(os.Stderr, "Error (model call): %v\n", err)
	case errors.As(err, &valid):
		fmt.Fprintf(os.Stderr, "Error (result validation): %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
