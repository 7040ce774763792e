package cli

import (
	"encoding/json"
	"fmt"

	"github.com/khanglvm/evomemory/internal/storage"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the 'stats' command.
func NewStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Example: `  evomemory stats
  evomemory stats --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runStats(jsonOutput bool) error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	stats, err := mem.Stats()
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Neurons:        %d\n", stats.TotalNeurons)
	fmt.Printf("Avg confidence: %.3f\n", stats.AvgConfidence)
	fmt.Printf("Moods:          positive=%d neutral=%d negative=%d\n",
		stats.ByMood[storage.MoodPositive],
		stats.ByMood[storage.MoodNeutral],
		stats.ByMood[storage.MoodNegative])
	fmt.Printf("Meta-neurons:   %d\n", stats.MetaNeurons)
	fmt.Printf("Rules:          %d\n", stats.Rules)
	fmt.Printf("Skills:         %d\n", stats.Skills)

	return nil
}
