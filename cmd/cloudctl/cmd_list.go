package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/internal/filter"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		page             int
		pageSize         int
		provider         string
		excludeProviders []string
		groups           []string
		excludeGroups    []string
		name             string
		output           string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered clouds",
		Example: `  cloudctl list                    # First page
  cloudctl list --page 2           # Second page
  cloudctl list --provider azure   # Only Azure clouds
  cloudctl list --group Production --exclude-group Default
  cloudctl list --name dev -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output, outputTable, outputJSON); err != nil {
				return err
			}
			req := storage.PageRequest{Page: page, PageSize: pageSize}
			if req.PageSize == 0 {
				req.PageSize = a.cfg.UI.PageSize
			}
			if provider != "" {
				p, err := types.ParseProvider(provider)
				if err != nil {
					return err
				}
				req.Provider = p
			}
			var excluded []types.Provider
			for _, v := range excludeProviders {
				p, err := types.ParseProvider(v)
				if err != nil {
					return err
				}
				excluded = append(excluded, p)
			}
			req.Match = filter.New(excluded, groups, excludeGroups, name).Predicate()

			store, err := a.Store()
			if err != nil {
				return err
			}
			result, err := store.List(cmd.Context(), req)
			if err != nil {
				return err
			}
			for i := range result.Items {
				result.Items[i] = result.Items[i].Masked()
			}

			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printCloudTable(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Clouds per page (default from config)")
	cmd.Flags().StringVar(&provider, "provider", "", "Only list clouds of this provider")
	cmd.Flags().StringSliceVar(&excludeProviders, "exclude-provider", nil, "Hide clouds of these providers")
	cmd.Flags().StringSliceVarP(&groups, "group", "g", nil, "Only clouds in all of these groups")
	cmd.Flags().StringSliceVar(&excludeGroups, "exclude-group", nil, "Hide clouds in any of these groups")
	cmd.Flags().StringVar(&name, "name", "", "Only clouds whose name contains this text")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		output string
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cloud",
		Example: `  cloudctl show cloud-1
  cloudctl show cloud-1 -o yaml > cloud-1.yaml   # Export as a manifest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputTable, outputJSON, outputYAML); err != nil {
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
			if !reveal {
				c = c.Masked()
			}

			w := cmd.OutOrStdout()
			switch output {
			case outputJSON:
				return writeJSON(w, c)
			case outputYAML:
				return printCloudYAML(w, c)
			default:
				return printCloud(w, c)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials unmasked")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the stored revisions of one cloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			revs, err := store.History(args[0])
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				return fmt.Errorf("cloud %s: %w", args[0], storage.ErrNotFound)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REVISION\tTIME\tCHANGE\tNAME")
			for _, r := range revs {
				change, name := "saved", "-"
				if r.Deleted {
					change = "deleted"
				}
				if r.Cloud != nil {
					name = r.Cloud.Name
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Revision, r.Timestamp.Format("2006-01-02 15:04:05"), change, name)
			}
			return tw.Flush()
		},
	}
}
