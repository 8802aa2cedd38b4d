package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cloudctl/types"
)

const multiDoc = `
version: v1
kind: Cloud
provider: aws
name: production
cloudGroupName: [Production]
regionList: [us-east-1, eu-west-1]
eventProcessEnabled: true
scheduleScanEnabled: true
scheduleScanSetting:
  frequency: WEEK
  weekday: MON
  hour: "9"
  minute: "30"
credentials:
  accessKeyId: AKIAEXAMPLE
  secretAccessKey: ${CLOUDCTL_TEST_SECRET}
eventSource:
  cloudTrailName: main-trail
---
---
version: v1
kind: Cloud
provider: GCP
name: research
credentialType: JSON_TEXT
credentials:
  jsonText: '{"type":"service_account"}'
`

func TestParse_MultiDocument(t *testing.T) {
	t.Setenv("CLOUDCTL_TEST_SECRET", "from-env")

	docs, err := Parse(strings.NewReader(multiDoc))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	aws, err := docs[0].Cloud()
	require.NoError(t, err)
	assert.Equal(t, types.ProviderAWS, aws.Provider)
	assert.Equal(t, "ACCESS_KEY", aws.CredentialType)
	assert.Equal(t, "AKIAEXAMPLE", aws.Credentials.Get("accessKeyId"))
	assert.Equal(t, "from-env", aws.Credentials.Get("secretAccessKey"))
	assert.Equal(t, "main-trail", aws.EventSource.Get("cloudTrailName"))
	assert.Equal(t, []string{"global", "us-east-1", "eu-west-1"}, aws.RegionList)
	assert.Equal(t, []string{"Production"}, aws.CloudGroupName)
	assert.True(t, aws.EventProcessEnabled)
	require.NotNil(t, aws.ScheduleScanSetting)
	assert.Equal(t, types.FrequencyWeek, aws.ScheduleScanSetting.Frequency)
	assert.Equal(t, types.Monday, aws.ScheduleScanSetting.Weekday)
	assert.Equal(t, "9", aws.ScheduleScanSetting.Hour)

	gcp, err := docs[1].Cloud()
	require.NoError(t, err)
	assert.Equal(t, types.ProviderGCP, gcp.Provider)
	assert.Equal(t, `{"type":"service_account"}`, gcp.Credentials.Get("jsonText"))
	assert.Nil(t, gcp.EventSource)
	assert.Equal(t, []string{"global"}, gcp.RegionList)
	assert.Equal(t, types.DefaultSchedule(), gcp.ScheduleScanSetting)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "no clouds"},
		{"bad version", "version: v2\nkind: Cloud\nprovider: AWS\nname: x\n", "version"},
		{"bad kind", "version: v1\nkind: Account\nprovider: AWS\nname: x\n", "kind"},
		{"unknown provider", "version: v1\nkind: Cloud\nprovider: ORACLE\nname: x\n", "unknown provider"},
		{"unknown field", "version: v1\nkind: Cloud\nprovider: AWS\nname: x\nregion: us-east-1\n", "region"},
		{"second document", "version: v1\nkind: Cloud\nprovider: AWS\nname: x\n---\nversion: v1\nkind: Cloud\nname: y\n", "document 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocument_CloudRejectsForeignCredentials(t *testing.T) {
	d := Document{
		Version:     Version,
		Kind:        Kind,
		Provider:    "AZURE",
		Name:        "x",
		Credentials: map[string]string{"accessKeyId": "AKIA"},
	}
	_, err := d.Cloud()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accessKeyId")

	d.Credentials = nil
	d.EventSource = map[string]string{"cloudTrailName": "trail"}
	_, err = d.Cloud()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloudTrailName")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clouds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(multiDoc), 0600))

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromCloud_RoundTrip(t *testing.T) {
	c, err := types.NewCloud(types.ProviderAzure, "APPLICATION")
	require.NoError(t, err)
	c.ID = "cloud-9"
	c.Name = "azure-dev"
	c.RegionList = []string{"global", "westeurope"}
	c.Credentials.Set("tenantId", "tenant")
	c.Credentials.Set("subscriptionId", "sub")
	c.Credentials.Set("applicationId", "app")
	c.Credentials.Set("secretKey", "secret")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FromCloud(c)))
	assert.NotContains(t, buf.String(), "scheduleScanSetting")
	assert.NotContains(t, buf.String(), "eventSource")

	docs, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	back, err := docs[0].Cloud()
	require.NoError(t, err)
	assert.Equal(t, c.ID, back.ID)
	assert.Equal(t, c.Name, back.Name)
	assert.Equal(t, c.RegionList, back.RegionList)
	assert.Equal(t, "secret", back.Credentials.Get("secretKey"))
}
