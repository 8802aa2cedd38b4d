package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cloudctl/types"
)

func TestEveryProviderHasDefaultCredentialFields(t *testing.T) {
	for _, p := range types.AllProviders() {
		t.Run(string(p), func(t *testing.T) {
			cfg, err := Lookup(p)
			require.NoError(t, err)
			require.NotEmpty(t, cfg.CredentialTypes)

			first := cfg.CredentialTypes[0].Value
			assert.NotEmpty(t, CredentialFields(p, first))
			assert.Equal(t, first, DefaultCredentialType(p))
		})
	}
}

func TestLookup_UnknownProvider(t *testing.T) {
	_, err := Lookup("ORACLE")
	assert.True(t, errors.Is(err, types.ErrUnknownProvider))

	cfg := ConfigFor("ORACLE")
	assert.Empty(t, cfg.Regions)
	assert.False(t, IsFeatureSupported("ORACLE", types.FeatureScheduleScan))
}

func TestCredentialFields_UnknownTypeIsEmpty(t *testing.T) {
	fields := CredentialFields(types.ProviderAWS, "PASSWORD")
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestRequiredCredentialFields(t *testing.T) {
	required := func(p types.Provider, ct string) []string {
		var keys []string
		for _, f := range CredentialFields(p, ct) {
			if f.Required {
				keys = append(keys, f.Key)
			}
		}
		return keys
	}

	assert.Equal(t, []string{"accessKeyId", "secretAccessKey"}, required(types.ProviderAWS, "ACCESS_KEY"))
	assert.Equal(t, []string{"tenantId", "subscriptionId", "applicationId", "secretKey"}, required(types.ProviderAzure, "APPLICATION"))
	assert.Equal(t, []string{"jsonText"}, required(types.ProviderGCP, "JSON_TEXT"))
}

func TestIsFeatureSupported(t *testing.T) {
	tests := []struct {
		provider types.Provider
		feature  types.Feature
		want     bool
	}{
		{types.ProviderAWS, types.FeatureUserActivity, true},
		{types.ProviderAzure, types.FeatureEventProcess, true},
		{types.ProviderAzure, types.FeatureUserActivity, false},
		{types.ProviderGCP, types.FeatureScheduleScan, true},
		{types.ProviderGCP, types.FeatureEventProcess, false},
		{types.ProviderGCP, types.FeatureUserActivity, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsFeatureSupported(tt.provider, tt.feature), "%s/%s", tt.provider, tt.feature)
	}
}

func TestCredentialTypeAllowed(t *testing.T) {
	assert.True(t, CredentialTypeAllowed(types.ProviderAWS, "ACCESS_KEY"))
	assert.False(t, CredentialTypeAllowed(types.ProviderAWS, "ASSUME_ROLE"), "disabled types are not selectable")
	assert.False(t, CredentialTypeAllowed(types.ProviderAzure, "ACCESS_KEY"))
}

func TestRegionsStartWithGlobal(t *testing.T) {
	for _, p := range Providers() {
		regions := Regions(p)
		require.NotEmpty(t, regions)
		assert.Equal(t, types.GlobalRegion, regions[0])
		assert.True(t, IsRegion(p, types.GlobalRegion))
	}
	assert.False(t, IsRegion(types.ProviderGCP, "us-east-1"))
}

func TestAccessorsReturnCopies(t *testing.T) {
	fields := CredentialFields(types.ProviderAWS, "ACCESS_KEY")
	fields[0].Required = false

	regions := Regions(types.ProviderAWS)
	regions[0] = "mutated"

	assert.True(t, CredentialFields(types.ProviderAWS, "ACCESS_KEY")[0].Required)
	assert.Equal(t, types.GlobalRegion, Regions(types.ProviderAWS)[0])
}

func TestScheduleOptions(t *testing.T) {
	hours := ScheduleHours()
	assert.Len(t, hours, 24)
	assert.Equal(t, "00", hours[0].Value)
	assert.Equal(t, "23", hours[23].Value)

	minutes := ScheduleMinutes()
	assert.Len(t, minutes, 12)
	assert.Equal(t, "55", minutes[11].Value)

	assert.Len(t, ScheduleDates(), 28)
}
