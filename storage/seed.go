package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yairfalse/cloudctl/types"
)

type seedCloud struct {
	id, name        string
	groups, regions []string
	event, activity bool
	schedule        *types.ScheduleScanSetting
	accessKey       string
	secretKey       string
}

func daily() *types.ScheduleScanSetting {
	return &types.ScheduleScanSetting{Frequency: types.FrequencyDay, Hour: "12", Minute: "0"}
}

var seedClouds = []seedCloud{
	{"cloud-1", "Dev", []string{"AWS-Group", "Testing"}, []string{"ap-northeast-2", "us-east-1"}, true, true, daily(), "AKIA********18", "jZd1********0n"},
	{"cloud-2", "AWS Ops", []string{"AWS-Group"}, []string{"ap-northeast-1", "eu-west-1"}, true, false, daily(), "AKIA********42", "xYz9********3m"},
	{"cloud-3", "Azure Dev", []string{"AZURE-Group", "Development"}, []string{"ap-northeast-2"}, true, true,
		&types.ScheduleScanSetting{Frequency: types.FrequencyWeek, Weekday: "MON", Hour: "12", Minute: "0"}, "AKIA********67", "aB3c********8x"},
	{"cloud-4", "AWS Stage", []string{"AWS-Group", "Default"}, []string{"us-west-2", "eu-central-1"}, true, true, daily(), "AKIA********91", "mN7p********5q"},
	{"cloud-5", "GCP CX", []string{"GCP-Group"}, []string{"ap-southeast-1"}, false, false, nil, "AKIA********25", "rS4t********7u"},
	{"cloud-6", "GCP Research", []string{"GCP-Group", "Development"}, []string{"ca-central-1"}, false, false, nil, "AKIA********83", "vW2x********9y"},
	{"cloud-7", "GCP DEV", []string{"GCP-Group", "Development"}, []string{"ap-northeast-3", "sa-east-1"}, true, true, daily(), "AKIA********46", "zA1b********2c"},
	{"cloud-8", "prod", []string{"AWS-Group", "Default"}, []string{"us-east-2", "eu-west-2", "ap-south-1"}, true, false, daily(), "AKIA********74", "dE5f********6g"},
}

// SeedClouds returns the demo data set used by `cloudctl seed`
func SeedClouds() []types.Cloud {
	out := make([]types.Cloud, 0, len(seedClouds))
	for _, s := range seedClouds {
		out = append(out, types.Cloud{
			ID:                  s.id,
			Provider:            types.ProviderAWS,
			Name:                s.name,
			CloudGroupName:      append([]string{}, s.groups...),
			RegionList:          append([]string{types.GlobalRegion}, s.regions...),
			EventProcessEnabled: s.event,
			UserActivityEnabled: s.activity,
			ScheduleScanEnabled: s.schedule != nil,
			ScheduleScanSetting: s.schedule.Clone(),
			CredentialType:      "ACCESS_KEY",
			Credentials: &types.AWSCredentials{
				AccessKeyID:     s.accessKey,
				SecretAccessKey: s.secretKey,
			},
			EventSource: &types.AWSEventSource{},
		})
	}
	return out
}

// Seed writes the demo clouds that are not stored yet and returns how many
// were added
func Seed(ctx context.Context, store CloudStore) (int, error) {
	added := 0
	for _, c := range SeedClouds() {
		_, err := store.Get(ctx, c.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if _, err := store.Save(ctx, c); err != nil {
			return added, fmt.Errorf("seed %s: %w", c.ID, err)
		}
		added++
	}
	return added, nil
}
