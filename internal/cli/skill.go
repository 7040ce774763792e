package cli

import (
	"fmt"

	"github.com/khanglvm/evomemory/internal/storage"
	"github.com/spf13/cobra"
)

// NewSkillCmd creates the 'skill' command group for managing the skill
// registry.
func NewSkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Manage the skill registry",
	}

	cmd.AddCommand(newSkillAddCmd())
	cmd.AddCommand(newSkillListCmd())
	cmd.AddCommand(newSkillEnableCmd(true))
	cmd.AddCommand(newSkillEnableCmd(false))

	return cmd
}

func newSkillAddCmd() *cobra.Command {
	var name string
	var description string

	cmd := &cobra.Command{
		Use:     "add <skill-id>",
		Short:   "Register a skill",
		Example: `  evomemory skill add gpio_control --name "GPIO control" --description "LED and pin control"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, _, err := openMemory()
			if err != nil {
				return err
			}
			defer mem.Close()

			skill := &storage.Skill{
				ID:          args[0],
				Name:        name,
				Description: description,
				Enabled:     true,
			}
			if skill.Name == "" {
				skill.Name = skill.ID
			}

			if err := mem.Store().CreateSkill(skill); err != nil {
				return err
			}

			fmt.Printf("Skill %q registered\n", skill.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (defaults to the id)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")

	return cmd
}

func newSkillListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, _, err := openMemory()
			if err != nil {
				return err
			}
			defer mem.Close()

			skills, err := mem.Store().ListSkills()
			if err != nil {
				return err
			}

			if len(skills) == 0 {
				fmt.Println("No skills registered.")
				return nil
			}

			for _, skill := range skills {
				state := "enabled"
				if !skill.Enabled {
					state = "disabled"
				}
				fmt.Printf("  %-20s %-10s %s\n", skill.ID, state, skill.Name)
				if skill.Description != "" {
					fmt.Printf("  %-20s %-10s %s\n", "", "", skill.Description)
				}
			}

			return nil
		},
	}
}

func newSkillEnableCmd(enable bool) *cobra.Command {
	use, short := "enable", "Enable a skill"
	if !enable {
		use, short = "disable", "Disable a skill (excluded from rule generation, neurons kept)"
	}

	return &cobra.Command{
		Use:   use + " <skill-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, _, err := openMemory()
			if err != nil {
				return err
			}
			defer mem.Close()

			if err := mem.Store().SetSkillEnabled(args[0], enable); err != nil {
				return err
			}

			fmt.Printf("Skill %q %sd\n", args[0], use)
			return nil
		},
	}
}
