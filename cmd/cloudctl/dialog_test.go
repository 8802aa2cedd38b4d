package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cloudctl/form"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

// sequence answers the same question differently each time it is asked
type sequence []any

// scriptedPrompter answers by message. Unscripted questions take the
// default, or the first option of a select without one.
type scriptedPrompter struct {
	answers map[string]any
	asked   []string
}

func newScriptedPrompter(answers map[string]any) *scriptedPrompter {
	if answers == nil {
		answers = map[string]any{}
	}
	return &scriptedPrompter{answers: answers}
}

func (s *scriptedPrompter) answer(message string) (any, bool) {
	s.asked = append(s.asked, message)
	v, ok := s.answers[message]
	if !ok {
		return nil, false
	}
	if seq, isSeq := v.(sequence); isSeq {
		if len(seq) == 0 {
			return nil, false
		}
		v = seq[0]
		if len(seq) > 1 {
			s.answers[message] = seq[1:]
		}
	}
	if err, isErr := v.(error); isErr {
		return err, true
	}
	return v, true
}

func (s *scriptedPrompter) count(message string) int {
	n := 0
	for _, m := range s.asked {
		if m == message {
			n++
		}
	}
	return n
}

func (s *scriptedPrompter) Input(message, _, def string) (string, error) {
	v, ok := s.answer(message)
	if !ok {
		return def, nil
	}
	if err, isErr := v.(error); isErr {
		return "", err
	}
	return v.(string), nil
}

func (s *scriptedPrompter) Password(message, _ string) (string, error) {
	return s.Input(message, "", "")
}

func (s *scriptedPrompter) Select(message string, options []string, def string) (string, error) {
	v, ok := s.answer(message)
	if !ok {
		if def == "" || !contains(options, def) {
			return options[0], nil
		}
		return def, nil
	}
	if err, isErr := v.(error); isErr {
		return "", err
	}
	return v.(string), nil
}

func (s *scriptedPrompter) MultiSelect(message string, _, defaults []string) ([]string, error) {
	v, ok := s.answer(message)
	if !ok {
		return defaults, nil
	}
	if err, isErr := v.(error); isErr {
		return nil, err
	}
	return v.([]string), nil
}

func (s *scriptedPrompter) Confirm(message string, def bool) (bool, error) {
	v, ok := s.answer(message)
	if !ok {
		return def, nil
	}
	if err, isErr := v.(error); isErr {
		return false, err
	}
	return v.(bool), nil
}

type recordingSubmitter struct {
	payloads []payload.Payload
	err      error
}

func (r *recordingSubmitter) Submit(_ context.Context, p payload.Payload) error {
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, p)
	return nil
}

func runTestDialog(t *testing.T, f *form.Form, answers map[string]any) (*recordingSubmitter, string, error) {
	t.Helper()
	var out bytes.Buffer
	s := &recordingSubmitter{}
	d := &dialog{form: f, prompt: newScriptedPrompter(answers), out: &out}
	_, err := d.Run(context.Background(), s)
	return s, out.String(), err
}

func TestDialog_WeeklySchedule(t *testing.T) {
	f, err := form.NewCreateForm(types.ProviderAzure)
	require.NoError(t, err)

	s, _, err := runTestDialog(t, f, map[string]any{
		"Cloud Name":             "Azure Prod",
		"Tenant ID":              "tenant",
		"Subscription ID":        "subscription",
		"Application ID":         "application",
		"Secret Key":             "azure-secret",
		"Regions":                []string{"eastus", "westeurope"},
		"Enable scheduled scan?": true,
		"Scan Frequency":         "WEEK",
		"Weekday":                "FRI",
		"Hour":                   "23",
		"Minute":                 "55",
	})
	require.NoError(t, err)
	require.Len(t, s.payloads, 1)

	p := s.payloads[0]
	assert.Equal(t, []string{"global", "eastus", "westeurope"}, p.RegionList)
	assert.Equal(t, &types.ScheduleScanSetting{
		Frequency: types.FrequencyWeek,
		Weekday:   types.Friday,
		Hour:      "23",
		Minute:    "55",
	}, p.ScheduleScanSetting)
	assert.False(t, p.UserActivityEnabled)
}

func TestDialog_MonthlySchedule(t *testing.T) {
	f, err := form.NewCreateForm(types.ProviderGCP)
	require.NoError(t, err)

	s, _, err := runTestDialog(t, f, map[string]any{
		"Cloud Name":             "GCP Billing",
		"JSON Key":               `{"type":"service_account"}`,
		"Enable scheduled scan?": true,
		"Scan Frequency":         "MONTH",
		"Day of Month":           "15",
	})
	require.NoError(t, err)
	require.Len(t, s.payloads, 1)

	sched := s.payloads[0].ScheduleScanSetting
	require.NotNil(t, sched)
	assert.Equal(t, "15", sched.Date)
	assert.Equal(t, "00", sched.Hour)
	assert.Empty(t, sched.Weekday)
}

func TestDialog_DisabledScheduleIsPruned(t *testing.T) {
	f, err := form.NewCreateForm(types.ProviderAWS)
	require.NoError(t, err)

	s, _, err := runTestDialog(t, f, map[string]any{
		"Cloud Name": "Plain",
		"Access Key": "AKIAPLAINEXAMPLE",
		"Secret Key": "plain-secret",
	})
	require.NoError(t, err)
	require.Len(t, s.payloads, 1)
	assert.Nil(t, s.payloads[0].ScheduleScanSetting)
}

func TestDialog_InterruptRestoresForm(t *testing.T) {
	c := storageFixture()
	f, err := form.NewEditForm(c)
	require.NoError(t, err)

	s, _, err := runTestDialog(t, f, map[string]any{
		"Cloud Name": "Changed",
		"Regions":    errCancelled,
	})
	assert.ErrorIs(t, err, errCancelled)
	assert.Empty(t, s.payloads)
	assert.Equal(t, "Original", f.Record().Name)
}

func TestDialog_SubmitFailureKeepsEdits(t *testing.T) {
	f, err := form.NewEditForm(storageFixture())
	require.NoError(t, err)

	var out bytes.Buffer
	s := &recordingSubmitter{err: errors.New("connection refused")}
	d := &dialog{form: f, prompt: newScriptedPrompter(map[string]any{"Cloud Name": "Changed"}), out: &out}

	_, err = d.Run(context.Background(), s)
	var submitErr *form.SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, "Changed", f.Record().Name)
}

func TestDialog_ReportsValidationErrors(t *testing.T) {
	c := storageFixture()
	c.RegionList = []string{"global", "mars-north-1"}
	f, err := form.NewEditForm(c)
	require.NoError(t, err)

	_, out, err := runTestDialog(t, f, nil)
	var errs validation.Errors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Paths(), validation.PathRegionList)
	assert.Contains(t, out, "The cloud was not saved")
}

func storageFixture() types.Cloud {
	return types.Cloud{
		ID:             "cloud-42",
		Provider:       types.ProviderAWS,
		Name:           "Original",
		CloudGroupName: []string{"Testing"},
		RegionList:     []string{"global", "us-east-1"},
		CredentialType: "ACCESS_KEY",
		Credentials: &types.AWSCredentials{
			AccessKeyID:     "AKIAORIGINAL0001",
			SecretAccessKey: "original-secret",
		},
	}
}
