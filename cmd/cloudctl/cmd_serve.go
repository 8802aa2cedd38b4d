package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cloudctl/internal/daemon"
	"github.com/yairfalse/cloudctl/internal/emitter"
	"github.com/yairfalse/cloudctl/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		Long: `Serve the cloud registry API, Prometheus metrics and health checks.
A maintenance loop compacts storage history, prunes the audit log and
publishes the cloud inventory (cloudctl_cloud_info) while the server runs.`,
		Example: `  cloudctl serve
  cloudctl serve --addr 127.0.0.1:9000 --maintenance-interval 30m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, err := a.Orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			store, err := a.Store()
			if err != nil {
				return err
			}
			audit, err := a.Audit()
			if err != nil {
				return err
			}

			inventory, err := emitter.NewPrometheusEmitter(a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = inventory.Close() }()

			d, err := daemon.NewDaemon(daemon.Config{
				Interval:      interval,
				KeepRevisions: a.cfg.Storage.KeepRevisions,
			}, store, audit, a.logger, daemon.WithInventory(store, inventory))
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(orch, store,
				server.WithLogger(a.logger),
				server.WithDaemon(d),
				server.WithPageSize(a.cfg.UI.PageSize),
				server.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
			)
			return srv.ListenAndRun(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&interval, "maintenance-interval", time.Hour, "How often history is compacted and the audit log pruned")
	return cmd
}
