package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/form"
	"github.com/yairfalse/cloudctl/orchestrator"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/types"
)

func newCreateCmd(a *app) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a cloud interactively",
		Long: `Open the cloud form and walk through every section: provider,
credentials, regions, cloud groups, proxy, optional features and the scan
schedule. Fields are checked as they are answered and the whole cloud is
validated again before it is saved.`,
		Example: `  cloudctl create                  # Choose the provider in the form
  cloudctl create --provider gcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := types.ProviderAWS
			if provider != "" {
				parsed, err := types.ParseProvider(provider)
				if err != nil {
					return err
				}
				p = parsed
			}
			f, err := form.NewCreateForm(p)
			if err != nil {
				return err
			}
			return a.runDialog(cmd, f, provider == "")
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider of the new cloud: aws, azure, gcp")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a cloud interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			f, err := form.Open(cmd.Context(), orch, args[0])
			if err != nil {
				return err
			}
			return a.runDialog(cmd, f, false)
		},
	}
}

func (a *app) runDialog(cmd *cobra.Command, f *form.Form, pickProvider bool) error {
	orch, err := a.Orchestrator(cmd.Context())
	if err != nil {
		return err
	}
	f.SetGroupOptions(a.cfg.UI.CloudGroups)

	prompt := a.prompter
	if prompt == nil {
		prompt = surveyPrompter{}
	}
	d := &dialog{form: f, prompt: prompt, out: cmd.OutOrStdout(), pickProvider: pickProvider}

	var saved types.Cloud
	submit := form.SubmitterFunc(func(ctx context.Context, p payload.Payload) error {
		c, err := orch.Save(ctx, p)
		if err != nil {
			return err
		}
		saved = c
		return nil
	})

	if _, err := d.Run(cmd.Context(), submit); err != nil {
		if errors.Is(err, errCancelled) {
			warn(cmd.OutOrStdout(), "Cancelled, nothing was saved")
			return nil
		}
		var denied *orchestrator.DeniedError
		if errors.As(err, &denied) {
			warn(cmd.OutOrStdout(), "The cloud was denied by policy:")
			printFieldErrors(cmd.OutOrStdout(), denied.FieldErrors())
		}
		return err
	}

	verb := "Created"
	if f.Mode() == form.ModeEdit {
		verb = "Updated"
	}
	success(cmd.OutOrStdout(), "%s", savedMessage(verb, saved))
	return nil
}

func savedMessage(mode string, c types.Cloud) string {
	return fmt.Sprintf("%s %s %q (%s)", mode, c.ID, c.Name, c.Provider)
}
