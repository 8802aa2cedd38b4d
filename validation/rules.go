package validation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
)

// Field paths of the cloud record
const (
	PathProvider            = "provider"
	PathName                = "name"
	PathCredentialType      = "credentialType"
	PathCredentials         = "credentials"
	PathEventSource         = "eventSource"
	PathProxyURL            = "proxyUrl"
	PathRegionList          = "regionList"
	PathCloudGroupName      = "cloudGroupName"
	PathEventProcessEnabled = "eventProcessEnabled"
	PathUserActivityEnabled = "userActivityEnabled"
	PathScheduleScanEnabled = "scheduleScanEnabled"
	PathSchedule            = "scheduleScanSetting"
	PathScheduleFrequency   = "scheduleScanSetting.frequency"
	PathScheduleDate        = "scheduleScanSetting.date"
	PathScheduleWeekday     = "scheduleScanSetting.weekday"
	PathScheduleHour        = "scheduleScanSetting.hour"
	PathScheduleMinute      = "scheduleScanSetting.minute"
)

// Schedule bounds. Minutes stop at 59.
const (
	MinDate   = 1
	MaxDate   = 28
	MaxHour   = 23
	MaxMinute = 59
)

// CredentialPath returns the path of a credential field
func CredentialPath(key string) string { return PathCredentials + "." + key }

// EventSourcePath returns the path of an event source field
func EventSourcePath(key string) string { return PathEventSource + "." + key }

// rule checks one family of paths. paths lists the concrete paths the rule
// governs for a given cloud; check validates one of them.
type rule struct {
	paths func(c types.Cloud) []string
	check func(c types.Cloud, path string) *FieldError
}

func fixed(path string) func(types.Cloud) []string {
	return func(types.Cloud) []string { return []string{path} }
}

func fail(path, format string, args ...any) *FieldError {
	return &FieldError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// rules is the one rule table behind both Validate and ValidateField.
// Order is report order.
var rules = []rule{
	{paths: fixed(PathName), check: checkName},
	{paths: fixed(PathCredentialType), check: checkCredentialType},
	{paths: fixed(PathCredentials), check: checkCredentialShape},
	{paths: credentialFieldPaths, check: checkCredentialField},
	{paths: fixed(PathEventSource), check: checkEventSourceShape},
	{paths: fixed(PathProxyURL), check: checkProxyURL},
	{paths: fixed(PathRegionList), check: checkRegions},
	{paths: fixed(PathCloudGroupName), check: checkCloudGroups},
	{paths: featurePaths, check: checkFeature},
	{paths: fixed(PathSchedule), check: checkSchedulePresent},
	{paths: schedulePaths, check: checkScheduleField},
}

func checkName(c types.Cloud, path string) *FieldError {
	if strings.TrimSpace(c.Name) == "" {
		return fail(path, "Cloud Name is required.")
	}
	return nil
}

func checkCredentialType(c types.Cloud, path string) *FieldError {
	if c.CredentialType == "" {
		return fail(path, "Credential Type is required.")
	}
	if !providers.CredentialTypeAllowed(c.Provider, c.CredentialType) {
		return fail(path, "Credential Type %s is not available for %s.", c.CredentialType, c.Provider)
	}
	return nil
}

func checkCredentialShape(c types.Cloud, path string) *FieldError {
	if c.Credentials == nil {
		return fail(path, "Credentials are required.")
	}
	if c.Credentials.Provider() != c.Provider {
		return fail(path, "Credentials do not match provider %s.", c.Provider)
	}
	return nil
}

// credentialFieldPaths is empty while the credential shape is wrong, so a
// foreign record is reported once at "credentials" instead of per field
func credentialFieldPaths(c types.Cloud) []string {
	if checkCredentialShape(c, PathCredentials) != nil {
		return nil
	}
	fields := providers.CredentialFields(c.Provider, c.CredentialType)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, CredentialPath(f.Key))
	}
	return out
}

func checkCredentialField(c types.Cloud, path string) *FieldError {
	key := strings.TrimPrefix(path, PathCredentials+".")
	f, ok := providers.CredentialField(c.Provider, c.CredentialType, key)
	if !ok || !f.Required {
		return nil
	}
	if strings.TrimSpace(c.Credentials.Get(key)) == "" {
		return fail(path, "%s is required.", f.Label)
	}
	return nil
}

func checkEventSourceShape(c types.Cloud, path string) *FieldError {
	if c.EventSource != nil && c.EventSource.Provider() != c.Provider {
		return fail(path, "Event source does not match provider %s.", c.Provider)
	}
	return nil
}

func checkProxyURL(c types.Cloud, path string) *FieldError {
	raw := strings.TrimSpace(c.ProxyURL)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fail(path, "Proxy URL is not a valid URL.")
	}
	return nil
}

func checkRegions(c types.Cloud, path string) *FieldError {
	if !c.HasRegion(types.GlobalRegion) {
		return fail(path, "Region list must include %s.", types.GlobalRegion)
	}
	for _, r := range c.RegionList {
		if !providers.IsRegion(c.Provider, r) {
			return fail(path, "Region %s is not available for %s.", r, c.Provider)
		}
	}
	return nil
}

func checkCloudGroups(c types.Cloud, path string) *FieldError {
	for _, g := range c.CloudGroupName {
		if strings.TrimSpace(g) == "" {
			return fail(path, "Cloud Group names must not be blank.")
		}
	}
	return nil
}

var featureByPath = map[string]struct {
	feature types.Feature
	label   string
	enabled func(types.Cloud) bool
}{
	PathEventProcessEnabled: {types.FeatureEventProcess, "Event processing", func(c types.Cloud) bool { return c.EventProcessEnabled }},
	PathUserActivityEnabled: {types.FeatureUserActivity, "User activity", func(c types.Cloud) bool { return c.UserActivityEnabled }},
	PathScheduleScanEnabled: {types.FeatureScheduleScan, "Scheduled scan", func(c types.Cloud) bool { return c.ScheduleScanEnabled }},
}

func featurePaths(types.Cloud) []string {
	return []string{PathEventProcessEnabled, PathUserActivityEnabled, PathScheduleScanEnabled}
}

func checkFeature(c types.Cloud, path string) *FieldError {
	f := featureByPath[path]
	if f.enabled(c) && !providers.IsFeatureSupported(c.Provider, f.feature) {
		return fail(path, "%s is not supported for %s.", f.label, c.Provider)
	}
	return nil
}

func checkSchedulePresent(c types.Cloud, path string) *FieldError {
	if c.ScheduleScanEnabled && c.ScheduleScanSetting == nil {
		return fail(path, "Scan schedule is required when scheduled scan is enabled.")
	}
	return nil
}

// schedulePaths is empty unless a schedule is enabled and present
func schedulePaths(c types.Cloud) []string {
	if !c.ScheduleScanEnabled || c.ScheduleScanSetting == nil {
		return nil
	}
	return []string{
		PathScheduleFrequency,
		PathScheduleDate,
		PathScheduleWeekday,
		PathScheduleHour,
		PathScheduleMinute,
	}
}

func checkScheduleField(c types.Cloud, path string) *FieldError {
	s := c.ScheduleScanSetting
	switch path {
	case PathScheduleFrequency:
		if !s.Frequency.Valid() {
			return fail(path, "Frequency must be one of HOUR, DAY, WEEK, MONTH.")
		}
	case PathScheduleDate:
		if !inRange(s.Date, MinDate, MaxDate) {
			return fail(path, "Enter a number between %d and %d.", MinDate, MaxDate)
		}
	case PathScheduleWeekday:
		if s.Weekday != "" && !s.Weekday.Valid() {
			return fail(path, "Weekday must be one of MON, TUE, WED, THU, FRI, SAT, SUN.")
		}
	case PathScheduleHour:
		if !inRange(s.Hour, 0, MaxHour) {
			return fail(path, "Enter a number between 0 and %d.", MaxHour)
		}
	case PathScheduleMinute:
		if !inRange(s.Minute, 0, MaxMinute) {
			return fail(path, "Enter a number between 0 and %d.", MaxMinute)
		}
	}
	return nil
}

// inRange accepts an unset value or a decimal integer within [lo, hi]
func inRange(v string, lo, hi int) bool {
	if v == "" {
		return true
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}
