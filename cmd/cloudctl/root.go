package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string
}

// newRootCmd builds the command tree around a
func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cloudctl",
		Short: "Cloud account registry",
		Long: `cloudctl - Cloud account registry

Register the AWS, Azure and GCP accounts your scanners work on.
Each cloud carries its credentials, regions, cloud groups, optional
event processing and a scan schedule. Every submission is validated
against the provider's schema and admission policies before it is stored.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate(`cloudctl {{.Version}} - Cloud account registry
`)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Path to the TOML config file")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newProvidersCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newApplyCmd(a),
		newValidateCmd(a),
		newDeleteCmd(a),
		newSeedCmd(a),
		newVerifyCmd(a),
		newServeCmd(a),
		newAuditCmd(a),
		newCompactCmd(a),
	)
	return cmd
}

// Execute runs the root command
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.Close(context.Background()); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.HiRedString("Error:"), err)
		os.Exit(1)
	}
}
