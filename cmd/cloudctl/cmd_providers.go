package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
)

func newProvidersCmd(_ *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "providers [provider]",
		Short: "Show supported providers and their form layout",
		Example: `  cloudctl providers            # Summary of every provider
  cloudctl providers aws        # Credential and event source fields for AWS
  cloudctl providers gcp -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputTable, outputJSON); err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				if output == outputJSON {
					all := make(map[types.Provider]providers.ProviderConfig)
					for _, p := range providers.Providers() {
						all[p] = providers.ConfigFor(p)
					}
					return writeJSON(w, all)
				}
				return printProviderSummary(cmd, providers.Providers())
			}

			p, err := types.ParseProvider(args[0])
			if err != nil {
				return err
			}
			cfg, err := providers.Lookup(p)
			if err != nil {
				return err
			}
			if output == outputJSON {
				return writeJSON(w, cfg)
			}
			return printProviderDetail(cmd, p, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json")
	return cmd
}

func credentialTypeLabels(p types.Provider) string {
	var out []string
	for _, o := range providers.CredentialTypes(p) {
		label := o.Value
		if o.Disabled {
			label += " (unavailable)"
		}
		out = append(out, label)
	}
	return strings.Join(out, ", ")
}

func featureLabels(p types.Provider) string {
	var out []string
	for _, f := range types.AllFeatures() {
		if providers.IsFeatureSupported(p, f) {
			out = append(out, string(f))
		}
	}
	return orDash(strings.Join(out, ", "))
}

func printProviderSummary(cmd *cobra.Command, list []types.Provider) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tCREDENTIAL TYPES\tREGIONS\tFEATURES")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p, credentialTypeLabels(p), len(providers.Regions(p)), featureLabels(p))
	}
	return tw.Flush()
}

func printProviderDetail(cmd *cobra.Command, p types.Provider, cfg providers.ProviderConfig) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Provider:         %s\n", p)
	fmt.Fprintf(w, "Credential types: %s\n", credentialTypeLabels(p))
	fmt.Fprintf(w, "Features:         %s\n", featureLabels(p))
	fmt.Fprintf(w, "Regions:          %s\n\n", strings.Join(cfg.Regions, ", "))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tKEY\tLABEL\tTYPE\tREQUIRED")
	for _, o := range cfg.CredentialTypes {
		if o.Disabled {
			continue
		}
		for _, f := range cfg.CredentialFields[o.Value] {
			fmt.Fprintf(tw, "credentials/%s\t%s\t%s\t%s\t%t\n", o.Value, f.Key, f.Label, f.Kind, f.Required)
		}
	}
	for _, f := range cfg.EventSourceFields {
		fmt.Fprintf(tw, "eventSource\t%s\t%s\t%s\t%t\n", f.Key, f.Label, f.Kind, f.Required)
	}
	return tw.Flush()
}
