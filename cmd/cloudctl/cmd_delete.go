package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/storage"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove clouds",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}

			for _, id := range args {
				c, err := orch.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !yes {
					prompt := a.prompter
					if prompt == nil {
						prompt = surveyPrompter{}
					}
					ok, err := prompt.Confirm(fmt.Sprintf("Delete cloud %s %q?", c.ID, c.Name), false)
					if err != nil {
						return err
					}
					if !ok {
						warn(cmd.OutOrStdout(), "Skipped %s", id)
						continue
					}
				}
				if err := orch.Delete(cmd.Context(), id); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Deleted %s %q", c.ID, c.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo clouds into an empty registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			n, err := storage.Seed(cmd.Context(), store)
			if err != nil {
				return err
			}
			if n == 0 {
				warn(cmd.OutOrStdout(), "Demo clouds already present, nothing seeded")
				return nil
			}
			success(cmd.OutOrStdout(), "Seeded %d clouds", n)
			return nil
		},
	}
}
