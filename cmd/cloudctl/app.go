package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/yairfalse/cloudctl/internal/config"
	"github.com/yairfalse/cloudctl/internal/plugin"
	awsplugin "github.com/yairfalse/cloudctl/internal/plugin/aws"
	"github.com/yairfalse/cloudctl/orchestrator"
	"github.com/yairfalse/cloudctl/policy"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/wal"
)

// app holds what the commands share. Storage, the audit log and the
// policy engine are opened on first use so read-only commands such as
// providers never touch the data directory.
type app struct {
	cfg    *config.Config
	logger *telemetry.Logger

	// prompter drives interactive dialogs; nil means a terminal prompter
	prompter Prompter
	// registerVerifiers installs the credential verifiers
	registerVerifiers func(cfg *config.Config, logger *telemetry.Logger)

	otelShutdown func(context.Context) error
	store        *storage.BoltStore
	audit        *wal.WAL
	orch         *orchestrator.Orchestrator
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "cloudctl.toml"
	}
	return filepath.Join(home, ".cloudctl", "config.toml")
}

func (a *app) init(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	if a.logger == nil {
		a.logger = telemetry.NewLoggerTo(zerolog.ConsoleWriter{Out: stderr}, cfg.OTEL.ServiceName, cfg.Log.Level)
	}

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: version,
		OTELEndpoint:   cfg.OTEL.Endpoint,
		Insecure:       cfg.OTEL.Insecure,
		DisableOTLP:    !cfg.OTEL.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.otelShutdown = shutdown

	register := a.registerVerifiers
	if register == nil {
		register = registerAWS
	}
	register(cfg, a.logger)
	return nil
}

func registerAWS(cfg *config.Config, logger *telemetry.Logger) {
	plugin.Register(awsplugin.New(awsplugin.Config{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
	}, awsplugin.WithLogger(logger)))
}

// Store opens the cloud database
func (a *app) Store() (*storage.BoltStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.NewBoltStore(a.cfg.Storage.Path, storage.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store
	return store, nil
}

// Audit opens the audit log
func (a *app) Audit() (*wal.WAL, error) {
	if a.audit != nil {
		return a.audit, nil
	}
	w, err := wal.OpenWithConfig(a.cfg.WAL.Dir, a.walConfig())
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a.audit = w
	return w, nil
}

func (a *app) walConfig() wal.Config {
	cfg := wal.DefaultConfig()
	cfg.RetentionDays = a.cfg.WAL.RetentionDays
	cfg.MaxFileSize = a.cfg.WAL.MaxFileSizeMB * 1024 * 1024
	return cfg
}

// Policies builds the admission policy engine, or nil when none are configured
func (a *app) Policies(ctx context.Context) (*policy.Engine, error) {
	if !a.cfg.Policy.Builtin && a.cfg.Policy.Dir == "" {
		return nil, nil
	}
	engine := policy.NewEngine(a.logger)
	if a.cfg.Policy.Builtin {
		if err := engine.LoadBuiltin(ctx); err != nil {
			return nil, err
		}
	}
	if a.cfg.Policy.Dir != "" {
		if _, err := engine.LoadDir(ctx, a.cfg.Policy.Dir); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// Orchestrator wires storage, policies and the audit log into the submit path
func (a *app) Orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	if a.orch != nil {
		return a.orch, nil
	}
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	audit, err := a.Audit()
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{
		orchestrator.WithAudit(audit),
		orchestrator.WithLogger(a.logger),
	}

	engine, err := a.Policies(ctx)
	if err != nil {
		return nil, err
	}
	// a nil *Engine in the interface would not read as "no policies"
	if engine != nil {
		opts = append(opts, orchestrator.WithPolicies(engine))
	}

	a.orch = orchestrator.New(store, opts...)
	return a.orch, nil
}

// Close releases everything init and the accessors opened
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
		a.audit = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(ctx))
		a.otelShutdown = nil
	}
	a.orch = nil
	return errors.Join(errs...)
}
