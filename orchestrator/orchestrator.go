// Package orchestrator runs the submit path behind the cloud form:
// server-side validation, admission policies, storage and the audit log.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
	"github.com/yairfalse/cloudctl/wal"
)

// Orchestrator coordinates validate → policy → store → audit
type Orchestrator struct {
	store    storage.CloudStore
	policies PolicyEvaluator
	audit    Auditor
	logger   *telemetry.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPolicies sets the admission policy evaluator
func WithPolicies(p PolicyEvaluator) Option {
	return func(o *Orchestrator) { o.policies = p }
}

// WithAudit sets the audit log
func WithAudit(a Auditor) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// WithLogger sets the logger
func WithLogger(l *telemetry.Logger) Option {
	return func(o *Orchestrator) { o.logger = l.Component("orchestrator") }
}

// New creates an orchestrator over store
func New(store storage.CloudStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		audit:  nopAuditor{},
		logger: telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit stores p. It satisfies the form's submit collaborator.
func (o *Orchestrator) Submit(ctx context.Context, p payload.Payload) error {
	_, err := o.Save(ctx, p)
	return err
}

// Save validates, admits and stores p and returns the stored record.
// Validation failures come back as validation.Errors and policy denials as
// *DeniedError.
func (o *Orchestrator) Save(ctx context.Context, p payload.Payload) (types.Cloud, error) {
	mode := ModeCreate
	if p.ID != "" {
		mode = ModeEdit
	}

	start := time.Now()
	ctx, span := telemetry.StartSubmit(ctx, telemetry.Tracer, string(p.Provider), p.Name, mode)
	defer span.End()

	record := newAuditRecord(p, mode)
	if err := o.audit.Append(wal.EntrySubmitted, p.ID, record); err != nil {
		o.logger.WithContext(ctx).Warn().Err(err).Msg("audit append failed")
	}

	finish := func(outcome string, id string, err error) {
		telemetry.RecordSubmitted(ctx, span, string(p.Provider), outcome, time.Since(start))
		if err == nil {
			return
		}
		span.RecordError(err)
		entryType := wal.EntryRejected
		if outcome == telemetry.OutcomeFailed {
			entryType = wal.EntryFailed
		}
		if aerr := o.audit.AppendError(entryType, id, record, err); aerr != nil {
			o.logger.WithContext(ctx).Warn().Err(aerr).Msg("audit append failed")
		}
	}

	// manifests and the HTTP API arrive here without a form pass
	if _, errs := validation.Validate(p.Record()); len(errs) > 0 {
		record.Fields = errs.Paths()
		telemetry.RecordValidationFailedEvent(ctx, span, string(p.Provider), record.Fields)
		o.logger.LogRejected(ctx, p.Name, string(p.Provider), record.Fields)
		finish(telemetry.OutcomeInvalid, p.ID, errs)
		return types.Cloud{}, errs
	}

	if o.policies != nil {
		decision, err := o.policies.Evaluate(ctx, p, mode)
		if err != nil {
			err = fmt.Errorf("policy evaluation: %w", err)
			finish(telemetry.OutcomeFailed, p.ID, err)
			return types.Cloud{}, err
		}
		if !decision.Allowed() {
			denied := &DeniedError{Violations: decision.Violations}
			record.Fields = denied.FieldErrors().Paths()
			o.logger.LogRejected(ctx, p.Name, string(p.Provider), record.Fields)
			finish(telemetry.OutcomeDenied, p.ID, denied)
			return types.Cloud{}, denied
		}
	}

	saved, err := o.store.Save(ctx, p.Record())
	if err != nil {
		err = fmt.Errorf("save cloud %q: %w", p.Name, err)
		finish(telemetry.OutcomeFailed, p.ID, err)
		return types.Cloud{}, err
	}

	rev := o.store.CurrentRevision()
	record.Revision = rev
	if err := o.audit.Append(wal.EntrySaved, saved.ID, record); err != nil {
		o.logger.WithContext(ctx).Warn().Err(err).Msg("audit append failed")
	}
	finish(telemetry.OutcomeSaved, saved.ID, nil)
	o.logger.LogSubmitted(ctx, saved.ID, saved.Name, string(saved.Provider), rev)

	return saved, nil
}

// Apply builds the payload for c and saves it
func (o *Orchestrator) Apply(ctx context.Context, c types.Cloud) (types.Cloud, error) {
	return o.Save(ctx, payload.Build(c))
}

// Delete removes a cloud and records it in the audit log
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.Tracer.Start(ctx, "cloud.delete")
	defer span.End()

	if err := o.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		if !errors.Is(err, storage.ErrNotFound) {
			_ = o.audit.AppendError(wal.EntryFailed, id, nil, err)
		}
		return err
	}

	if err := o.audit.Append(wal.EntryDeleted, id, nil); err != nil {
		o.logger.WithContext(ctx).Warn().Err(err).Msg("audit append failed")
	}
	o.logger.WithContext(ctx).Info().Str("cloud_id", id).Msg("cloud deleted")
	return nil
}

// Get loads a cloud; it lets the orchestrator hydrate edit forms
func (o *Orchestrator) Get(ctx context.Context, id string) (types.Cloud, error) {
	return o.store.Get(ctx, id)
}
