package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPruneCmd creates the 'prune' command.
func NewPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old low-confidence neurons",
		Long: `Delete neurons older than the configured retention age whose
confidence is below the configured threshold. Neurons cited as rule
provenance are never deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune()
		},
	}

	return cmd
}

func runPrune() error {
	mem, cfg, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	deleted, err := mem.Prune()
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d neurons (older than %d days, confidence < %.2f)\n",
		deleted, cfg.Prune.MaxAgeDays, cfg.Prune.ConfidenceBelow)

	return nil
}

// NewCompactCmd creates the 'compact' command compressing duplicate
// neurons into meta-neurons.
func NewCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compress duplicate low-value neurons into meta-neurons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact()
		},
	}

	return cmd
}

func runCompact() error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	written, err := mem.Compact()
	if err != nil {
		return err
	}

	fmt.Printf("Compressed %d clusters\n", written)
	return nil
}
