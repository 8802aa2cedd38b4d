package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

type fakeFetcher map[string]types.Cloud

func (f fakeFetcher) Get(_ context.Context, id string) (types.Cloud, error) {
	c, ok := f[id]
	if !ok {
		return types.Cloud{}, errors.New("not found")
	}
	return c, nil
}

func newAWSForm(t *testing.T) *Form {
	t.Helper()
	f, err := NewCreateForm(types.ProviderAWS)
	require.NoError(t, err)
	return f
}

func fillAWS(t *testing.T, f *Form) {
	t.Helper()
	f.SetName("prod")
	require.NoError(t, f.SetCredentialField("accessKeyId", "AKIAEXAMPLE"))
	require.NoError(t, f.SetCredentialField("secretAccessKey", "secret"))
}

func TestNewCreateForm_Defaults(t *testing.T) {
	f := newAWSForm(t)
	c := f.Record()

	assert.Equal(t, ModeCreate, f.Mode())
	assert.Equal(t, "ACCESS_KEY", c.CredentialType)
	assert.Equal(t, []string{types.GlobalRegion}, c.RegionList)
	assert.Equal(t, []string{}, c.CloudGroupName)
	assert.Equal(t, &types.ScheduleScanSetting{Frequency: types.FrequencyHour, Hour: "0", Minute: "0"}, c.ScheduleScanSetting)
	assert.Nil(t, c.EventSource)
	assert.Empty(t, types.ToMap(c.Credentials))

	_, err := NewCreateForm("ORACLE")
	assert.True(t, errors.Is(err, types.ErrUnknownProvider))
}

func TestChangeProvider_KeepsCommonFields(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)
	f.SetProxyURL("http://proxy:3128")
	require.NoError(t, f.SetFeature(types.FeatureEventProcess, true))
	require.NoError(t, f.ToggleRegion("us-east-1"))
	require.NoError(t, f.SetEventSourceField("cloudTrailName", "trail"))

	require.NoError(t, f.ChangeProvider(types.ProviderAzure))
	c := f.Record()

	assert.Equal(t, types.ProviderAzure, c.Provider)
	assert.Equal(t, "prod", c.Name)
	assert.Equal(t, "http://proxy:3128", c.ProxyURL)
	assert.True(t, c.EventProcessEnabled)
	assert.Equal(t, "APPLICATION", c.CredentialType)
	assert.IsType(t, &types.AzureCredentials{}, c.Credentials)
	assert.Empty(t, types.ToMap(c.Credentials))
	assert.Nil(t, c.EventSource)
	assert.Equal(t, []string{types.GlobalRegion}, c.RegionList)
	assert.NoError(t, c.CheckVariant())
}

func TestChangeProvider_RoundTripLeaksNothing(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)

	require.NoError(t, f.ChangeProvider(types.ProviderAzure))
	assert.Empty(t, types.ToMap(f.Record().Credentials))
	require.NoError(t, f.SetCredentialField("tenantId", "tenant"))

	require.NoError(t, f.ChangeProvider(types.ProviderAWS))
	c := f.Record()
	assert.IsType(t, &types.AWSCredentials{}, c.Credentials)
	assert.Empty(t, types.ToMap(c.Credentials))

	err := f.SetCredentialField("tenantId", "tenant")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestChangeProvider_Unknown(t *testing.T) {
	f := newAWSForm(t)
	err := f.ChangeProvider("ORACLE")
	assert.True(t, errors.Is(err, types.ErrUnknownProvider))
	assert.Equal(t, types.ProviderAWS, f.Provider())
}

func TestChangeCredentialType(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)

	err := f.ChangeCredentialType("ASSUME_ROLE")
	assert.True(t, errors.Is(err, ErrCredentialTypeUnavailable))
	assert.Equal(t, "AKIAEXAMPLE", f.Record().Credentials.Get("accessKeyId"))

	// reselecting the current type keeps the values
	require.NoError(t, f.ChangeCredentialType("ACCESS_KEY"))
	assert.Equal(t, "AKIAEXAMPLE", f.Record().Credentials.Get("accessKeyId"))
	assert.Equal(t, "prod", f.Record().Name)
}

func TestEagerValidation(t *testing.T) {
	f := newAWSForm(t)

	require.NoError(t, f.SetCredentialField("accessKeyId", "   "))
	assert.Equal(t, "Access Key is required.", f.Error("credentials.accessKeyId"))

	require.NoError(t, f.SetCredentialField("accessKeyId", "AKIA"))
	assert.Empty(t, f.Error("credentials.accessKeyId"))

	f.SetName("")
	assert.Equal(t, "Cloud Name is required.", f.Error("name"))

	f.SetProxyURL("not a url")
	assert.NotEmpty(t, f.Error("proxyUrl"))
	f.SetProxyURL("")
	assert.Empty(t, f.Error("proxyUrl"))

	// optional fields never error
	require.NoError(t, f.SetEventSourceField("cloudTrailName", ""))
	assert.Empty(t, f.Errors().ByPath()["eventSource.cloudTrailName"])
}

func TestEagerAndFullMessagesAgree(t *testing.T) {
	f := newAWSForm(t)
	f.SetName("")
	require.NoError(t, f.SetCredentialField("secretAccessKey", ""))

	eager := f.Errors()
	_, full := validation.Validate(f.Record())
	for _, fe := range eager {
		msg, ok := full.Get(fe.Path)
		require.True(t, ok, fe.Path)
		assert.Equal(t, msg, fe.Message)
	}
}

func TestToggleRegion(t *testing.T) {
	f := newAWSForm(t)

	require.NoError(t, f.ToggleRegion(types.GlobalRegion))
	assert.Equal(t, []string{types.GlobalRegion}, f.Record().RegionList)

	require.NoError(t, f.ToggleRegion("eu-west-1"))
	require.NoError(t, f.ToggleRegion("us-east-1"))
	assert.Equal(t, "3 regions selected", f.Regions().Summary())

	require.NoError(t, f.ToggleRegion("eu-west-1"))
	assert.Equal(t, []string{types.GlobalRegion, "us-east-1"}, f.Record().RegionList)

	require.NoError(t, f.ToggleRegion(types.GlobalRegion))
	assert.True(t, f.Regions().Has(types.GlobalRegion))

	err := f.ToggleRegion("westeurope")
	assert.True(t, errors.Is(err, ErrUnknownOption))
}

func TestToggleCloudGroup(t *testing.T) {
	f := newAWSForm(t)
	f.SetGroupOptions([]string{"AWS-Group", "Testing"})

	assert.Equal(t, "Select groups", f.Groups().Summary())
	require.NoError(t, f.ToggleCloudGroup("Testing"))
	require.NoError(t, f.ToggleCloudGroup("AWS-Group"))
	assert.Equal(t, "2 groups selected", f.Groups().Summary())

	require.NoError(t, f.ToggleCloudGroup("Testing"))
	assert.Equal(t, []string{"AWS-Group"}, f.Record().CloudGroupName)

	assert.Error(t, f.ToggleCloudGroup("Unknown"))
}

func TestSetFeature_Unsupported(t *testing.T) {
	f, err := NewCreateForm(types.ProviderGCP)
	require.NoError(t, err)

	err = f.SetFeature(types.FeatureUserActivity, true)
	assert.True(t, errors.Is(err, ErrFeatureUnsupported))
	assert.NoError(t, f.SetFeature(types.FeatureUserActivity, false))
	assert.NoError(t, f.SetFeature(types.FeatureScheduleScan, true))
}

func TestScheduleTransitions(t *testing.T) {
	for _, from := range types.AllFrequencies() {
		for _, to := range types.AllFrequencies() {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newAWSForm(t)
				require.NoError(t, f.SetFeature(types.FeatureScheduleScan, true))
				require.NoError(t, f.SetScheduleFrequency(from))
				f.cloud.ScheduleScanSetting.Date = "5"
				f.cloud.ScheduleScanSetting.Weekday = types.Sunday
				f.cloud.ScheduleScanSetting.Hour = "7"
				f.cloud.ScheduleScanSetting.Minute = "45"

				require.NoError(t, f.SetScheduleFrequency(to))
				s := f.Schedule()

				assert.Equal(t, to, s.Frequency)
				assert.Equal(t, to == types.FrequencyMonth, s.Date != "")
				assert.Equal(t, to == types.FrequencyWeek, s.Weekday != "")
				assert.Equal(t, to != types.FrequencyHour, s.Hour != "")
				assert.Equal(t, to != types.FrequencyHour, s.Minute != "")
			})
		}
	}
}

func TestScheduleSetters_RespectFrequency(t *testing.T) {
	f := newAWSForm(t)
	require.NoError(t, f.SetFeature(types.FeatureScheduleScan, true))
	require.NoError(t, f.SetScheduleFrequency(types.FrequencyHour))

	assert.True(t, errors.Is(f.SetScheduleHour("3"), ErrNotApplicable))
	assert.True(t, errors.Is(f.SetScheduleDate("3"), ErrNotApplicable))
	f.SetScheduleMinute("15")
	assert.Equal(t, "15", f.Schedule().Minute)

	require.NoError(t, f.SetScheduleFrequency(types.FrequencyMonth))
	require.NoError(t, f.SetScheduleDate("29"))
	assert.Equal(t, "Enter a number between 1 and 28.", f.Error(validation.PathScheduleDate))
	require.NoError(t, f.SetScheduleDate("28"))
	assert.Empty(t, f.Error(validation.PathScheduleDate))

	assert.True(t, errors.Is(f.SetScheduleWeekday(types.Monday), ErrNotApplicable))
	require.NoError(t, f.SetScheduleFrequency(types.FrequencyWeek))
	assert.True(t, errors.Is(f.SetScheduleWeekday("FUNDAY"), ErrInvalidValue))
	require.NoError(t, f.SetScheduleWeekday(types.Monday))

	assert.Error(t, f.SetScheduleFrequency("YEAR"))
}

func TestCancel_RestoresSnapshot(t *testing.T) {
	stored, err := types.NewCloud(types.ProviderAWS, "ACCESS_KEY")
	require.NoError(t, err)
	stored.ID = "cloud-1"
	stored.Name = "Dev"
	stored.Credentials.Set("accessKeyId", "AKIA")
	stored.Credentials.Set("secretAccessKey", "s")

	f, err := Open(context.Background(), fakeFetcher{"cloud-1": stored}, "cloud-1")
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, f.Mode())

	f.SetName("")
	require.NoError(t, f.ChangeProvider(types.ProviderGCP))
	f.Cancel()

	assert.Equal(t, stored, f.Record())
	assert.Empty(t, f.Errors())
}

func TestOpen(t *testing.T) {
	f, err := Open(context.Background(), fakeFetcher{}, "")
	require.NoError(t, err)
	assert.Equal(t, ModeCreate, f.Mode())

	_, err = Open(context.Background(), fakeFetcher{}, "missing")
	assert.Error(t, err)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	f := newAWSForm(t)
	called := false
	s := SubmitterFunc(func(context.Context, payload.Payload) error {
		called = true
		return nil
	})

	_, err := f.Submit(context.Background(), s)
	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.False(t, called)
	assert.ElementsMatch(t, []string{"name", "credentials.accessKeyId", "credentials.secretAccessKey"}, errs.Paths())

	// errors are replaced, not accumulated
	fillAWS(t, f)
	f.SetProxyURL("bad")
	_, err = f.Submit(context.Background(), s)
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []string{"proxyUrl"}, f.Errors().Paths())
}

func TestSubmit_Success(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)
	require.NoError(t, f.SetFeature(types.FeatureScheduleScan, true))
	require.NoError(t, f.SetScheduleFrequency(types.FrequencyWeek))
	require.NoError(t, f.SetScheduleWeekday(types.Monday))
	require.NoError(t, f.SetScheduleHour("9"))
	f.SetScheduleMinute("30")

	var got payload.Payload
	p, err := f.Submit(context.Background(), SubmitterFunc(func(_ context.Context, p payload.Payload) error {
		got = p
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, &types.ScheduleScanSetting{Frequency: types.FrequencyWeek, Weekday: types.Monday, Hour: "9", Minute: "30"}, p.ScheduleScanSetting)

	// the submitted record becomes the cancel point
	f.SetName("changed")
	f.Cancel()
	assert.Equal(t, "prod", f.Record().Name)
}

func TestSubmit_CollaboratorFailureKeepsState(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)
	boom := errors.New("backend unavailable")

	_, err := f.Submit(context.Background(), SubmitterFunc(func(context.Context, payload.Payload) error {
		return boom
	}))

	var se *SubmitError
	require.True(t, errors.As(err, &se))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "prod", f.Record().Name)
	assert.Equal(t, "AKIAEXAMPLE", f.Record().Credentials.Get("accessKeyId"))
	assert.False(t, f.Busy())
}

func TestSubmit_RejectsWhileBusy(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)

	var inner error
	_, err := f.Submit(context.Background(), SubmitterFunc(func(ctx context.Context, _ payload.Payload) error {
		assert.True(t, f.Busy())
		_, inner = f.Submit(ctx, SubmitterFunc(func(context.Context, payload.Payload) error { return nil }))
		return nil
	}))
	require.NoError(t, err)
	assert.True(t, errors.Is(inner, ErrBusy))
}

func TestCheck(t *testing.T) {
	f := newAWSForm(t)
	errs := f.Check()
	assert.Equal(t, []string{"name", "credentials.accessKeyId", "credentials.secretAccessKey"}, errs.Paths())
	assert.Equal(t, "Secret Key is required.", f.Error("credentials.secretAccessKey"))
}

func TestSetCredentialField_OptionalRoleArn(t *testing.T) {
	f := newAWSForm(t)
	fillAWS(t, f)
	assert.Empty(t, f.Check(), "role ARN is optional")

	require.NoError(t, f.SetCredentialField("roleArn", "arn:aws:iam::123456789012:role/scanner"))
	assert.Empty(t, f.Error("credentials.roleArn"))
	assert.Empty(t, f.Check())
	assert.Equal(t, "arn:aws:iam::123456789012:role/scanner", f.Record().Credentials.Get("roleArn"))

	err := f.SetCredentialField("sessionToken", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestWidgets(t *testing.T) {
	f := newAWSForm(t)
	require.NoError(t, f.SetCredentialField("accessKeyId", ""))

	widgets := f.CredentialWidgets()
	require.Len(t, widgets, 3)
	assert.Equal(t, "credentials.accessKeyId", widgets[0].Path)
	assert.Equal(t, "Access Key is required.", widgets[0].Error)
	assert.True(t, widgets[1].Secret())
	assert.Equal(t, "credentials.roleArn", widgets[2].Path)
	assert.False(t, widgets[2].Required)

	es := f.EventSourceWidgets()
	require.Len(t, es, 1)
	assert.Equal(t, "cloudTrailName", es[0].Key)

	gcp, err := NewCreateForm(types.ProviderGCP)
	require.NoError(t, err)
	assert.Len(t, gcp.EventSourceWidgets(), 2)
}
