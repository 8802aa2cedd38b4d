package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cloudctl/form"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/policy"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
	"github.com/yairfalse/cloudctl/wal"
)

func newTestOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *storage.BoltStore, string) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	walDir := t.TempDir()
	w, err := wal.Open(walDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	return New(store, append([]Option{WithAudit(w)}, opts...)...), store, walDir
}

func validCloud(t *testing.T) types.Cloud {
	t.Helper()
	c, err := types.NewCloud(types.ProviderAWS, "ACCESS_KEY")
	require.NoError(t, err)
	c.Name = "Dev"
	c.Credentials.Set("accessKeyId", "AKIAEXAMPLE0001")
	c.Credentials.Set("secretAccessKey", "secret-access-key")
	return c
}

func auditEntries(t *testing.T, dir string) []*wal.Entry {
	t.Helper()
	var out []*wal.Entry
	require.NoError(t, wal.Replay(dir, "", time.Time{}, func(e *wal.Entry) error {
		out = append(out, e)
		return nil
	}))
	return out
}

func TestOrchestrator_SaveCreates(t *testing.T) {
	orch, store, walDir := newTestOrchestrator(t)

	saved, err := orch.Apply(context.Background(), validCloud(t))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, store.Count())

	entries := auditEntries(t, walDir)
	require.Len(t, entries, 2)
	assert.Equal(t, wal.EntrySubmitted, entries[0].Type)
	assert.Equal(t, wal.EntrySaved, entries[1].Type)
	assert.Equal(t, saved.ID, entries[1].CloudID)
	assert.NotContains(t, string(entries[1].Data), "secret-access-key")
	assert.Contains(t, string(entries[1].Data), `"mode":"create"`)
}

func TestOrchestrator_SaveEditsExisting(t *testing.T) {
	orch, store, walDir := newTestOrchestrator(t)
	ctx := context.Background()

	saved, err := orch.Apply(ctx, validCloud(t))
	require.NoError(t, err)

	saved.Name = "Dev renamed"
	updated, err := orch.Apply(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, 1, store.Count())

	entries := auditEntries(t, walDir)
	assert.Contains(t, string(entries[len(entries)-1].Data), `"mode":"edit"`)
}

func TestOrchestrator_SaveRejectsInvalid(t *testing.T) {
	orch, store, walDir := newTestOrchestrator(t)

	c := validCloud(t)
	c.Name = ""
	c.Credentials.Set("accessKeyId", "")

	_, err := orch.Apply(context.Background(), c)
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, []string{validation.PathName, validation.CredentialPath("accessKeyId")}, errs.Paths())
	assert.Zero(t, store.Count())

	entries := auditEntries(t, walDir)
	require.Len(t, entries, 2)
	assert.Equal(t, wal.EntryRejected, entries[1].Type)
	assert.NotEmpty(t, entries[1].Error)
}

func TestOrchestrator_PolicyDenies(t *testing.T) {
	engine := policy.NewEngine(nil)
	require.NoError(t, engine.LoadPolicy(context.Background(), "no_proxy", `package cloudctl

import rego.v1

deny contains {"field": "proxyUrl", "msg": "Proxies are not allowed."} if input.cloud.proxyUrl`))

	orch, store, _ := newTestOrchestrator(t, WithPolicies(engine))

	c := validCloud(t)
	c.ProxyURL = "http://proxy.internal:3128"

	_, err := orch.Apply(context.Background(), c)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	require.Len(t, denied.Violations, 1)
	assert.Equal(t, "no_proxy", denied.Violations[0].Policy)
	assert.Equal(t, validation.Errors{{Path: "proxyUrl", Message: "Proxies are not allowed."}}, denied.FieldErrors())
	assert.Contains(t, denied.Error(), "proxyUrl: Proxies are not allowed.")
	assert.Zero(t, store.Count())

	c.ProxyURL = ""
	_, err = orch.Apply(context.Background(), c)
	assert.NoError(t, err)
}

type failingPolicies struct{}

func (failingPolicies) Evaluate(context.Context, payload.Payload, string) (policy.Decision, error) {
	return policy.Decision{}, errors.New("boom")
}

func TestOrchestrator_PolicyErrorFails(t *testing.T) {
	orch, _, walDir := newTestOrchestrator(t, WithPolicies(failingPolicies{}))

	_, err := orch.Apply(context.Background(), validCloud(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	entries := auditEntries(t, walDir)
	assert.Equal(t, wal.EntryFailed, entries[len(entries)-1].Type)
}

func TestOrchestrator_StoreFailure(t *testing.T) {
	orch, store, walDir := newTestOrchestrator(t)
	require.NoError(t, store.Close())

	_, err := orch.Apply(context.Background(), validCloud(t))
	require.Error(t, err)

	entries := auditEntries(t, walDir)
	assert.Equal(t, wal.EntryFailed, entries[len(entries)-1].Type)
}

func TestOrchestrator_Delete(t *testing.T) {
	orch, store, walDir := newTestOrchestrator(t)
	ctx := context.Background()

	saved, err := orch.Apply(ctx, validCloud(t))
	require.NoError(t, err)

	require.NoError(t, orch.Delete(ctx, saved.ID))
	assert.Zero(t, store.Count())
	assert.ErrorIs(t, orch.Delete(ctx, saved.ID), storage.ErrNotFound)

	entries := auditEntries(t, walDir)
	assert.Equal(t, wal.EntryDeleted, entries[len(entries)-1].Type)
}

func TestOrchestrator_DrivesForm(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t)
	ctx := context.Background()

	f, err := form.NewCreateForm(types.ProviderGCP)
	require.NoError(t, err)
	f.SetName("Research")
	require.NoError(t, f.SetCredentialField("jsonText", `{"type":"service_account"}`))

	_, err = f.Submit(ctx, orch)
	require.NoError(t, err)
	require.Equal(t, 1, store.Count())

	page, err := store.List(ctx, storage.PageRequest{})
	require.NoError(t, err)
	edit, err := form.Open(ctx, orch, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, form.ModeEdit, edit.Mode())
	assert.Equal(t, "Research", edit.Record().Name)
}
