package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRememberCmd creates the 'remember' command for persisting one
// interaction.
func NewRememberCmd() *cobra.Command {
	var inputText string
	var outputText string
	var skillID string

	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Persist one interaction as a neuron",
		Long: `Score an (input, output) pair with the confidence scorer,
persist it as a neuron and index it for retrieval.`,
		Example: `  evomemory remember -i "Accendi il LED rosso" -o "OK, attivo GPIO 17 su HIGH" -s gpio_control`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemember(inputText, outputText, skillID)
		},
	}

	cmd.Flags().StringVarP(&inputText, "input", "i", "", "The user's prompt (required)")
	cmd.Flags().StringVarP(&outputText, "output", "o", "", "The model's response (required)")
	cmd.Flags().StringVarP(&skillID, "skill", "s", "", "Optional skill tag")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func runRemember(inputText, outputText, skillID string) error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	id, assessment, err := mem.Remember(inputText, outputText, skillID)
	if err != nil {
		return err
	}

	fmt.Printf("Neuron %d saved\n", id)
	fmt.Printf("  Confidence: %.2f (%s)\n", assessment.Confidence, assessment.Label)
	fmt.Printf("  Reasoning:  %s\n", assessment.Reasoning)

	return nil
}
