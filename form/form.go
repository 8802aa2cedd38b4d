// Package form holds an in-progress cloud configuration and applies the
// edits a user makes to it: provider and credential type switches, field
// edits with immediate feedback, region and group toggles, schedule
// changes, cancel and submit.
package form

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

// Mode tells whether the form creates a new cloud or edits a stored one
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Fetcher loads a stored cloud for editing
type Fetcher interface {
	Get(ctx context.Context, id string) (types.Cloud, error)
}

// Submitter receives the payload of a successful submit
type Submitter interface {
	Submit(ctx context.Context, p payload.Payload) error
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, p payload.Payload) error

func (f SubmitterFunc) Submit(ctx context.Context, p payload.Payload) error {
	return f(ctx, p)
}

// Form owns one cloud record for the lifetime of a dialog.
// Only Submit may be called concurrently with itself; everything else
// expects a single caller.
type Form struct {
	mode     Mode
	cloud    types.Cloud
	snapshot types.Cloud
	errors   map[string]string
	groups   []string
	busy     atomic.Bool
}

// NewCreateForm opens a form with the defaults of provider p
func NewCreateForm(p types.Provider) (*Form, error) {
	c, err := defaults(p)
	if err != nil {
		return nil, err
	}
	return newForm(ModeCreate, c), nil
}

// NewEditForm opens a form on a copy of a stored cloud
func NewEditForm(c types.Cloud) (*Form, error) {
	if err := c.CheckVariant(); err != nil {
		return nil, fmt.Errorf("open cloud %q: %w", c.ID, err)
	}
	c = c.Clone()
	if c.RegionList == nil || !c.HasRegion(types.GlobalRegion) {
		c.RegionList = NewRegionSelect(c.Provider, c.RegionList).Values()
	}
	return newForm(ModeEdit, c), nil
}

// Open creates a form for id, fetching the stored cloud when id is set.
// An empty id opens a create form for AWS.
func Open(ctx context.Context, fetcher Fetcher, id string) (*Form, error) {
	if id == "" {
		return NewCreateForm(types.ProviderAWS)
	}
	c, err := fetcher.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch cloud %s: %w", id, err)
	}
	return NewEditForm(c)
}

func newForm(mode Mode, c types.Cloud) *Form {
	return &Form{
		mode:     mode,
		cloud:    c,
		snapshot: c.Clone(),
		errors:   make(map[string]string),
	}
}

func defaults(p types.Provider) (types.Cloud, error) {
	if _, err := providers.Lookup(p); err != nil {
		return types.Cloud{}, err
	}
	return types.NewCloud(p, providers.DefaultCredentialType(p))
}

// Mode returns whether the form creates or edits
func (f *Form) Mode() Mode { return f.mode }

// Record returns a copy of the current record
func (f *Form) Record() types.Cloud { return f.cloud.Clone() }

// Provider returns the selected provider
func (f *Form) Provider() types.Provider { return f.cloud.Provider }

// Busy reports whether a submit is pending
func (f *Form) Busy() bool { return f.busy.Load() }

// SetGroupOptions sets the catalogue of cloud groups the user may pick from
func (f *Form) SetGroupOptions(groups []string) {
	f.groups = append([]string(nil), groups...)
}

// Errors returns the current field errors ordered by path
func (f *Form) Errors() validation.Errors {
	if len(f.errors) == 0 {
		return nil
	}
	paths := make([]string, 0, len(f.errors))
	for p := range f.errors {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make(validation.Errors, 0, len(paths))
	for _, p := range paths {
		out = append(out, validation.FieldError{Path: p, Message: f.errors[p]})
	}
	return out
}

// Error returns the message for one path
func (f *Form) Error(path string) string {
	return f.errors[path]
}

// ChangeProvider switches the record to p. Name, groups, proxy, feature
// toggles and schedule survive; credential type, credentials, regions and
// event source are rebuilt for p.
func (f *Form) ChangeProvider(p types.Provider) error {
	if p == f.cloud.Provider {
		return nil
	}
	next, err := defaults(p)
	if err != nil {
		return err
	}

	cur := f.cloud
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.Name = cur.Name
	next.CloudGroupName = cur.CloudGroupName
	next.ProxyURL = cur.ProxyURL
	next.EventProcessEnabled = cur.EventProcessEnabled
	next.UserActivityEnabled = cur.UserActivityEnabled
	next.ScheduleScanEnabled = cur.ScheduleScanEnabled
	next.ScheduleScanSetting = cur.ScheduleScanSetting
	next.RegionList = keepRegions(p, cur.RegionList)

	f.cloud = next
	f.clearErrors(validation.PathCredentialType, validation.PathCredentials, validation.PathEventSource, validation.PathRegionList)
	return nil
}

// keepRegions retains the regions valid for p, which in practice leaves
// only "global" since region codes differ between providers
func keepRegions(p types.Provider, regions []string) []string {
	out := []string{types.GlobalRegion}
	for _, r := range regions {
		if r != types.GlobalRegion && providers.IsRegion(p, r) {
			out = append(out, r)
		}
	}
	return out
}

// ChangeCredentialType selects another credential type of the same
// provider and empties the credentials
func (f *Form) ChangeCredentialType(credentialType string) error {
	if !providers.CredentialTypeAllowed(f.cloud.Provider, credentialType) {
		return fmt.Errorf("%w: %s for %s", ErrCredentialTypeUnavailable, credentialType, f.cloud.Provider)
	}
	if credentialType == f.cloud.CredentialType {
		return nil
	}
	creds, err := types.NewCredentials(f.cloud.Provider)
	if err != nil {
		return err
	}
	f.cloud.CredentialType = credentialType
	f.cloud.Credentials = creds
	f.clearErrors(validation.PathCredentialType, validation.PathCredentials)
	return nil
}

// SetName edits the cloud name
func (f *Form) SetName(name string) {
	f.cloud.Name = name
	f.revalidate(validation.PathName)
}

// SetProxyURL edits the proxy URL
func (f *Form) SetProxyURL(proxy string) {
	f.cloud.ProxyURL = proxy
	f.revalidate(validation.PathProxyURL)
}

// SetCredentialField edits one credential value of the current layout
func (f *Form) SetCredentialField(key, value string) error {
	if _, ok := providers.CredentialField(f.cloud.Provider, f.cloud.CredentialType, key); !ok {
		return fmt.Errorf("%w: credentials.%s", ErrUnknownField, key)
	}
	if !f.cloud.Credentials.Set(key, value) {
		return fmt.Errorf("%w: credentials.%s", ErrUnknownField, key)
	}
	f.revalidate(validation.CredentialPath(key))
	return nil
}

// SetEventSourceField edits one event source value
func (f *Form) SetEventSourceField(key, value string) error {
	known := false
	for _, fc := range providers.EventSourceFields(f.cloud.Provider) {
		if fc.Key == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: eventSource.%s", ErrUnknownField, key)
	}
	if f.cloud.EventSource == nil {
		es, err := types.NewEventSource(f.cloud.Provider)
		if err != nil {
			return err
		}
		f.cloud.EventSource = es
	}
	f.cloud.EventSource.Set(key, value)
	f.revalidate(validation.EventSourcePath(key))
	return nil
}

// Regions returns the region picker over the current selection
func (f *Form) Regions() *MultiSelect {
	return NewRegionSelect(f.cloud.Provider, f.cloud.RegionList)
}

// ToggleRegion adds or removes a region. "global" cannot be removed.
func (f *Form) ToggleRegion(region string) error {
	sel := f.Regions()
	if err := sel.Toggle(region); err != nil {
		return err
	}
	f.cloud.RegionList = sel.Values()
	f.revalidate(validation.PathRegionList)
	return nil
}

// Groups returns the cloud group picker over the current selection
func (f *Form) Groups() *MultiSelect {
	return NewGroupSelect(f.groups, f.cloud.CloudGroupName)
}

// ToggleCloudGroup adds or removes a cloud group
func (f *Form) ToggleCloudGroup(group string) error {
	group = strings.TrimSpace(group)
	sel := f.Groups()
	if err := sel.Toggle(group); err != nil {
		return err
	}
	f.cloud.CloudGroupName = sel.Values()
	f.revalidate(validation.PathCloudGroupName)
	return nil
}

// SetFeature switches an optional feature. Enabling a feature the
// provider does not support fails; disabling always succeeds.
func (f *Form) SetFeature(feature types.Feature, on bool) error {
	if on && !providers.IsFeatureSupported(f.cloud.Provider, feature) {
		return fmt.Errorf("%w: %s on %s", ErrFeatureUnsupported, feature, f.cloud.Provider)
	}
	switch feature {
	case types.FeatureEventProcess:
		f.cloud.EventProcessEnabled = on
		f.revalidate(validation.PathEventProcessEnabled)
	case types.FeatureUserActivity:
		f.cloud.UserActivityEnabled = on
		f.revalidate(validation.PathUserActivityEnabled)
	case types.FeatureScheduleScan:
		f.cloud.ScheduleScanEnabled = on
		if on && f.cloud.ScheduleScanSetting == nil {
			f.cloud.ScheduleScanSetting = types.DefaultSchedule()
		}
		f.revalidate(validation.PathScheduleScanEnabled)
		if !on {
			f.clearErrors(validation.PathSchedule)
		}
	default:
		return fmt.Errorf("%w: feature %q", ErrInvalidValue, feature)
	}
	return nil
}

// Schedule returns a copy of the schedule, or nil
func (f *Form) Schedule() *types.ScheduleScanSetting {
	return f.cloud.ScheduleScanSetting.Clone()
}

func (f *Form) schedule() *types.ScheduleScanSetting {
	if f.cloud.ScheduleScanSetting == nil {
		f.cloud.ScheduleScanSetting = types.DefaultSchedule()
	}
	return f.cloud.ScheduleScanSetting
}

// SetScheduleFrequency changes the frequency and clears the fields it
// does not use in the same step
func (f *Form) SetScheduleFrequency(freq types.Frequency) error {
	if !freq.Valid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidValue, freq)
	}
	f.schedule().SetFrequency(freq)
	f.clearErrors(validation.PathSchedule)
	return nil
}

// SetScheduleDate sets the day of month; only for MONTH
func (f *Form) SetScheduleDate(date string) error {
	s := f.schedule()
	if !s.Frequency.UsesDate() {
		return fmt.Errorf("%w: date with %s", ErrNotApplicable, s.Frequency)
	}
	s.Date = strings.TrimSpace(date)
	f.revalidate(validation.PathScheduleDate)
	return nil
}

// SetScheduleWeekday sets the weekday; only for WEEK
func (f *Form) SetScheduleWeekday(day types.Weekday) error {
	s := f.schedule()
	if !s.Frequency.UsesWeekday() {
		return fmt.Errorf("%w: weekday with %s", ErrNotApplicable, s.Frequency)
	}
	if !day.Valid() {
		return fmt.Errorf("%w: weekday %q", ErrInvalidValue, day)
	}
	s.Weekday = day
	f.revalidate(validation.PathScheduleWeekday)
	return nil
}

// SetScheduleHour sets the hour; not for HOUR
func (f *Form) SetScheduleHour(hour string) error {
	s := f.schedule()
	if !s.Frequency.UsesHour() {
		return fmt.Errorf("%w: hour with %s", ErrNotApplicable, s.Frequency)
	}
	s.Hour = strings.TrimSpace(hour)
	f.revalidate(validation.PathScheduleHour)
	return nil
}

// SetScheduleMinute sets the minute; every frequency uses it
func (f *Form) SetScheduleMinute(minute string) {
	f.schedule().Minute = strings.TrimSpace(minute)
	f.revalidate(validation.PathScheduleMinute)
}

// Cancel drops every edit and restores the last loaded or saved record
func (f *Form) Cancel() {
	f.cloud = f.snapshot.Clone()
	f.errors = make(map[string]string)
}

// Check runs the pre-submit pass and records its errors
func (f *Form) Check() validation.Errors {
	errs := validation.Quick(f.cloud)
	for _, fe := range errs {
		f.errors[fe.Path] = fe.Message
	}
	return errs
}

// Submit validates the whole record, replacing any earlier errors. When
// valid it builds the payload and hands it to s. A failing s leaves the
// record untouched for a retry; a successful one makes the submitted
// record the new cancel point.
func (f *Form) Submit(ctx context.Context, s Submitter) (payload.Payload, error) {
	if !f.busy.CompareAndSwap(false, true) {
		return payload.Payload{}, ErrBusy
	}
	defer f.busy.Store(false)

	validated, errs := validation.Validate(f.cloud)
	f.errors = errs.ByPath()
	if len(errs) > 0 {
		return payload.Payload{}, errs
	}

	p := payload.Build(validated)
	if err := s.Submit(ctx, p); err != nil {
		return payload.Payload{}, &SubmitError{CloudName: validated.Name, Cause: err}
	}

	f.snapshot = f.cloud.Clone()
	return p, nil
}

// CredentialWidgets returns the credential inputs with values and errors
func (f *Form) CredentialWidgets() []Widget {
	fields := CredentialWidgets(f.cloud.Provider, f.cloud.CredentialType)
	out := make([]Widget, 0, len(fields))
	for _, fc := range fields {
		path := validation.CredentialPath(fc.Key)
		out = append(out, Widget{
			FieldConfig: fc,
			Path:        path,
			Value:       f.cloud.Credentials.Get(fc.Key),
			Error:       f.errors[path],
		})
	}
	return out
}

// EventSourceWidgets returns the event source inputs with values and errors
func (f *Form) EventSourceWidgets() []Widget {
	fields := EventSourceWidgets(f.cloud.Provider)
	out := make([]Widget, 0, len(fields))
	for _, fc := range fields {
		path := validation.EventSourcePath(fc.Key)
		w := Widget{FieldConfig: fc, Path: path, Error: f.errors[path]}
		if f.cloud.EventSource != nil {
			w.Value = f.cloud.EventSource.Get(fc.Key)
		}
		out = append(out, w)
	}
	return out
}

func (f *Form) revalidate(path string) {
	if fe := validation.ValidateField(f.cloud, path); fe != nil {
		f.errors[path] = fe.Message
		return
	}
	delete(f.errors, path)
}

// clearErrors drops errors at the given paths and below them
func (f *Form) clearErrors(paths ...string) {
	for key := range f.errors {
		for _, p := range paths {
			if key == p || strings.HasPrefix(key, p+".") {
				delete(f.errors, key)
				break
			}
		}
	}
}
