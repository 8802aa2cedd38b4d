package providers

import "fmt"

func awsConfig() ProviderConfig {
	return ProviderConfig{
		Name: "AWS",
		CredentialTypes: []Option{
			{Value: "ACCESS_KEY", Label: "Access Key"},
			{Value: "ASSUME_ROLE", Label: "Assume Role", Disabled: true},
			{Value: "ROLES_ANYWHERE", Label: "Roles Anywhere", Disabled: true},
		},
		CredentialFields: map[string][]FieldConfig{
			"ACCESS_KEY": {
				{Key: "accessKeyId", Label: "Access Key", Kind: KindText, Required: true, Placeholder: "Enter AWS access key"},
				{Key: "secretAccessKey", Label: "Secret Key", Kind: KindPassword, Required: true, Placeholder: "Enter AWS secret access key"},
				{Key: "roleArn", Label: "Role ARN", Kind: KindText, Placeholder: "arn:aws:iam::account:role/role-name", HelpText: "Optional role assumed with the access key"},
			},
			"ASSUME_ROLE": {
				{Key: "roleArn", Label: "Role ARN", Kind: KindText, Required: true, Placeholder: "arn:aws:iam::account:role/role-name"},
			},
			"ROLES_ANYWHERE": {
				{Key: "certificateId", Label: "Certificate ID", Kind: KindText, Required: true},
				{Key: "privateKey", Label: "Private Key", Kind: KindPassword, Required: true},
			},
		},
		EventSourceFields: []FieldConfig{
			{Key: "cloudTrailName", Label: "CloudTrail Name", Kind: KindText, Placeholder: "Please enter the cloud trail name."},
		},
		Regions: []string{
			"global",
			"us-east-1", "us-east-2", "us-west-1", "us-west-2",
			"af-south-1",
			"ap-east-1", "ap-south-1", "ap-south-2",
			"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
			"ap-southeast-1", "ap-southeast-2", "ap-southeast-3", "ap-southeast-4",
			"ca-central-1",
			"eu-central-1", "eu-central-2",
			"eu-west-1", "eu-west-2", "eu-west-3",
			"eu-north-1", "eu-south-1", "eu-south-2",
			"me-south-1", "me-central-1",
			"sa-east-1",
		},
		Features: Features{ScheduleScan: true, EventProcess: true, UserActivity: true},
	}
}

func azureConfig() ProviderConfig {
	return ProviderConfig{
		Name:            "AZURE",
		CredentialTypes: []Option{{Value: "APPLICATION", Label: "Application"}},
		CredentialFields: map[string][]FieldConfig{
			"APPLICATION": {
				{Key: "tenantId", Label: "Tenant ID", Kind: KindText, Required: true, Placeholder: "Enter Azure tenant ID"},
				{Key: "subscriptionId", Label: "Subscription ID", Kind: KindText, Required: true, Placeholder: "Enter subscription ID"},
				{Key: "applicationId", Label: "Application ID", Kind: KindText, Required: true, Placeholder: "Enter application ID"},
				{Key: "secretKey", Label: "Secret Key", Kind: KindPassword, Required: true, Placeholder: "Enter application secret"},
			},
			// Not offered as a credential type yet; kept so the field
			// layout is ready when it is.
			"SERVICE_PRINCIPAL": {
				{Key: "clientId", Label: "Client ID", Kind: KindText, Required: true},
				{Key: "clientSecret", Label: "Client Secret", Kind: KindPassword, Required: true},
			},
		},
		EventSourceFields: []FieldConfig{
			{Key: "storageAccountName", Label: "Storage Account Name", Kind: KindText, Placeholder: "Enter storage account name"},
			{Key: "containerName", Label: "Container Name", Kind: KindText, Placeholder: "Enter container name"},
		},
		Regions: []string{
			"global",
			"eastus", "eastus2", "westus", "westus2", "westus3",
			"centralus", "northcentralus", "southcentralus",
			"canadacentral", "brazilsouth",
			"northeurope", "westeurope", "uksouth", "francecentral",
			"germanywestcentral", "swedencentral",
			"eastasia", "southeastasia",
			"japaneast", "japanwest",
			"koreacentral", "koreasouth",
			"australiaeast", "centralindia",
		},
		Features: Features{ScheduleScan: true, EventProcess: true},
	}
}

func gcpConfig() ProviderConfig {
	return ProviderConfig{
		Name:            "GCP",
		CredentialTypes: []Option{{Value: "JSON_TEXT", Label: "JSON Text"}},
		CredentialFields: map[string][]FieldConfig{
			"JSON_TEXT": {
				{Key: "projectId", Label: "Project ID", Kind: KindText, Placeholder: "Enter GCP project ID (optional)"},
				{Key: "jsonText", Label: "JSON Key", Kind: KindText, Required: true, Placeholder: "Paste service account JSON key"},
			},
			"SERVICE_ACCOUNT": {
				{Key: "serviceAccountEmail", Label: "Service Account Email", Kind: KindText, Required: true},
				{Key: "keyFile", Label: "Key File", Kind: KindText, Required: true},
			},
		},
		EventSourceFields: []FieldConfig{
			{Key: "bucketName", Label: "Storage Bucket Name", Kind: KindText, Placeholder: "Enter Cloud Storage bucket name"},
			{Key: "logSinkName", Label: "Log Sink Name", Kind: KindText, Placeholder: "Enter Cloud Logging sink name"},
		},
		Regions: []string{
			"global",
			"us-central1", "us-east1", "us-east4", "us-west1", "us-west2",
			"northamerica-northeast1", "southamerica-east1",
			"europe-west1", "europe-west2", "europe-west3", "europe-west4", "europe-north1",
			"asia-east1", "asia-northeast1", "asia-northeast3",
			"asia-south1", "asia-southeast1", "australia-southeast1",
		},
		Features: Features{ScheduleScan: true},
	}
}

// ScheduleHours returns the hour options 00 through 23
func ScheduleHours() []Option {
	out := make([]Option, 0, 24)
	for h := 0; h < 24; h++ {
		v := fmt.Sprintf("%02d", h)
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

// ScheduleMinutes returns the minute options 00 through 55 in steps of five
func ScheduleMinutes() []Option {
	out := make([]Option, 0, 12)
	for m := 0; m < 60; m += 5 {
		v := fmt.Sprintf("%02d", m)
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

// ScheduleDates returns the day-of-month options 1 through 28
func ScheduleDates() []Option {
	out := make([]Option, 0, 28)
	for d := 1; d <= 28; d++ {
		v := fmt.Sprintf("%d", d)
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}
