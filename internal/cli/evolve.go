package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEvolveCmd creates the 'evolve' command forcing a rule generation
// cycle.
func NewEvolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run a rule generation cycle now",
		Long: `Mine the stored neurons for trust, caution and clarify rules,
commit the cycle atomically and rewrite the rule snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvolve()
		},
	}

	return cmd
}

func runEvolve() error {
	mem, cfg, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	report, err := mem.Evolve()
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("A generation cycle is already in progress.")
		return nil
	}

	fmt.Printf("Neurons scanned: %d\n", report.NeuronsScanned)
	fmt.Printf("Candidates:      %d\n", report.Candidates)
	fmt.Printf("Committed:       %d (replaced %d, skipped %d)\n",
		report.Committed, report.Replaced, report.Skipped)
	fmt.Printf("Snapshot:        %s\n", cfg.SnapshotPath())

	return nil
}
