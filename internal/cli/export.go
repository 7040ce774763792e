package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRulesCmd creates the 'rules' command listing evolved rules and
// optionally rewriting the snapshot file.
func NewRulesCmd() *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List evolved rules",
		Example: `  evomemory rules
  evomemory rules --export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(export)
		},
	}

	cmd.Flags().BoolVarP(&export, "export", "e", false, "Rewrite the rule snapshot file")

	return cmd
}

func runRules(export bool) error {
	mem, _, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	rules, err := mem.Rules()
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		fmt.Println("No rules yet. Run 'evomemory evolve' to mine them.")
	}

	for _, rule := range rules {
		fmt.Printf("  [%d] p%d %-40s threshold=%.2f sources=%d\n",
			rule.ID, rule.Priority, rule.Trigger.Key(), rule.ConfidenceThreshold, len(rule.SourceNeuronIDs))
		fmt.Printf("      %s\n", rule.Text)
	}

	if export {
		path, err := mem.ExportRules()
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot written to %s\n", path)
	}

	return nil
}
