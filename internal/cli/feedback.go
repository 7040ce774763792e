package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewFeedbackCmd creates the 'feedback' command for rating a past
// response.
func NewFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <neuron-id> <-1|0|1>",
		Short: "Rate a past response",
		Long: `Record user feedback for a neuron: -1 (negative), 0 (neutral)
or +1 (positive). Only the feedback and the derived mood change.`,
		Example: `  evomemory feedback 42 1
  evomemory feedback 42 -- -1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid neuron id %q", args[0])
			}

			feedback, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid feedback %q, want -1, 0 or 1", args[1])
			}

			return runFeedback(id, feedback)
		},
	}

	return cmd
}

func runFeedback(id int64, feedback int) error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	if err := mem.Feedback(id, feedback); err != nil {
		return err
	}

	fmt.Printf("Feedback %+d recorded for neuron %d\n", feedback, id)
	return nil
}
