package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/internal/plugin"
)

func newVerifyCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a cloud's credentials against its provider",
		Long: `Authenticate with the stored credentials and check that the event
source exists and the selected regions are enabled for the account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputTable, outputJSON); err != nil {
				return err
			}
			store, err := a.Store()
			if err != nil {
				return err
			}
			c, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			v, ok := plugin.Get(c.Provider)
			if !ok {
				return fmt.Errorf("no verifier for provider %s", c.Provider)
			}
			report, err := v.Verify(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("verify %s: %w", c.ID, err)
			}

			if output == outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else if err := printReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(report.Checks))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json")
	return cmd
}
