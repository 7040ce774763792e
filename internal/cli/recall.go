package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRecallCmd creates the 'recall' command for BM25 retrieval.
func NewRecallCmd() *cobra.Command {
	var topK int
	var asContext bool

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Retrieve past interactions relevant to a query",
		Example: `  evomemory recall "come si accende il led"
  evomemory recall --top-k 10 "temperatura"
  evomemory recall --context "come si accende il led"  # prompt-ready block`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecall(strings.Join(args, " "), topK, asContext)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVarP(&asContext, "context", "c", false, "Print a prompt-augmentation block instead of a result list")

	return cmd
}

func runRecall(query string, topK int, asContext bool) error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	if asContext {
		block, err := mem.PromptContext(query, 1200)
		if err != nil {
			return err
		}
		if block == "" {
			fmt.Println("No relevant past interactions.")
			return nil
		}
		fmt.Print(block)
		return nil
	}

	snippets, err := mem.Recall(query, topK)
	if err != nil {
		return err
	}

	if len(snippets) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for _, s := range snippets {
		fmt.Printf("#%d  score=%.3f  confidence=%.2f", s.NeuronID, s.Score, s.Confidence)
		if s.SkillID != "" {
			fmt.Printf("  [%s]", s.SkillID)
		}
		fmt.Println()
		fmt.Printf("  Input:  %s\n", s.Input)
		fmt.Printf("  Output: %s\n\n", s.Output)
	}

	return nil
}
