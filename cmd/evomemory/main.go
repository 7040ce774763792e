/*
Package main is the entry point for the evomemory CLI.

evomemory is a persistent, self-scoring interaction memory for a local
LLM assistant. Every exchange is stored as a neuron with a deterministic
confidence score, recalled through BM25 ranking, and periodically mined
into behavioral rules.

Usage:
  evomemory [command]

Available Commands:
  remember    Store an interaction as a neuron
  recall      Retrieve relevant past interactions
  feedback    Rate a past response
  stats       Show memory statistics
  evolve      Run a rule generation cycle now
  rules       List evolved rules
  prune       Delete old low-confidence neurons
  compact     Compress duplicate low-value neurons into meta-neurons
  skill       Manage the skill registry
  help        Help about any command

Examples:
  # Store an interaction
  evomemory remember -i "come si accende il led" -o "usa gpio.write(17, HIGH)" -s gpio_control

  # Recall context for a new prompt
  evomemory recall come si accende il led

  # Rate neuron 42 positively
  evomemory feedback 42 1
*/
package main

import (
	"fmt"
	"os"

	"github.com/khanglvm/evomemory/internal/cli"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evomemory",
		Short: "Self-scoring interaction memory for a local LLM assistant",
		Long: `evomemory stores every assistant exchange as a neuron with a
deterministic confidence score, retrieves relevant past interactions
through BM25 ranking, and periodically mines the accumulated neurons
into trust, caution and clarify rules exported as a prompt snapshot.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	// Add subcommands
	rootCmd.AddCommand(cli.NewRememberCmd())
	rootCmd.AddCommand(cli.NewRecallCmd())
	rootCmd.AddCommand(cli.NewFeedbackCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewEvolveCmd())
	rootCmd.AddCommand(cli.NewRulesCmd())
	rootCmd.AddCommand(cli.NewPruneCmd())
	rootCmd.AddCommand(cli.NewCompactCmd())
	rootCmd.AddCommand(cli.NewSkillCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
