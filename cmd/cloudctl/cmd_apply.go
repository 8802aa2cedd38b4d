package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/manifest"
	"github.com/yairfalse/cloudctl/orchestrator"
	"github.com/yairfalse/cloudctl/validation"
)

func newApplyCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply -f <manifest>",
		Short: "Create or update clouds from a YAML manifest",
		Long: `Apply every cloud in a manifest. Documents with an id update that
cloud, documents without one create a new cloud. Each cloud goes through
the same validation and admission policies as the interactive form.`,
		Example: `  cloudctl apply -f clouds.yaml
  AWS_SECRET_ACCESS_KEY=... cloudctl apply -f prod.yaml   # ${VAR} is expanded`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := manifest.Load(file)
			if err != nil {
				return err
			}
			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			failed := 0
			for i, doc := range docs {
				c, err := doc.Cloud()
				if err != nil {
					failed++
					warn(w, "document %d: %v", i+1, err)
					continue
				}

				verb := "Created"
				if c.ID != "" {
					verb = "Updated"
				}
				saved, err := orch.Apply(cmd.Context(), c)
				if err != nil {
					failed++
					reportApplyError(cmd, i+1, doc.Name, err)
					continue
				}
				success(w, "%s", savedMessage(verb, saved))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d clouds not applied", failed, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Manifest file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func reportApplyError(cmd *cobra.Command, n int, name string, err error) {
	w := cmd.OutOrStdout()
	var errs validation.Errors
	var denied *orchestrator.DeniedError
	switch {
	case errors.As(err, &errs):
		warn(w, "document %d (%s) is invalid:", n, name)
		printFieldErrors(w, errs)
	case errors.As(err, &denied):
		warn(w, "document %d (%s) was denied by policy:", n, name)
		printFieldErrors(w, denied.FieldErrors())
	default:
		warn(w, "document %d (%s): %v", n, name, err)
	}
}

func newValidateCmd(_ *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate -f <manifest>",
		Short: "Check a manifest without storing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := manifest.Load(file)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			invalid := 0
			for i, doc := range docs {
				c, err := doc.Cloud()
				if err != nil {
					invalid++
					warn(w, "document %d: %v", i+1, err)
					continue
				}
				if _, errs := validation.Validate(c); len(errs) > 0 {
					invalid++
					warn(w, "document %d (%s) is invalid:", i+1, doc.Name)
					printFieldErrors(w, errs)
					continue
				}
				success(w, "document %d (%s) is valid", i+1, doc.Name)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d clouds invalid", invalid, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Manifest file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
