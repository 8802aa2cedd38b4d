package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yairfalse/cloudctl/form"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

// maxAttempts bounds how often a rejected answer is asked again
const maxAttempts = 3

var featurePrompts = map[types.Feature]string{
	types.FeatureEventProcess: "Enable event processing?",
	types.FeatureUserActivity: "Enable user activity tracking?",
	types.FeatureScheduleScan: "Enable scheduled scan?",
}

// dialog walks the user through a cloud form, one section at a time,
// echoing field errors as the form reports them
type dialog struct {
	form         *form.Form
	prompt       Prompter
	out          io.Writer
	pickProvider bool
}

// Run asks every question, then submits. Backing out of any prompt
// restores the form and returns errCancelled.
func (d *dialog) Run(ctx context.Context, s form.Submitter) (payload.Payload, error) {
	steps := []func() error{
		d.askProvider,
		d.askCredentialType,
		d.askName,
		d.askCredentials,
		d.askRegions,
		d.askGroups,
		d.askProxy,
		d.askFeatures,
		d.askEventSource,
		d.askSchedule,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return payload.Payload{}, d.abort(err)
		}
	}

	if errs := d.form.Check(); len(errs) > 0 {
		warn(d.out, "The cloud is incomplete:")
		printFieldErrors(d.out, errs)
		return payload.Payload{}, errs
	}

	ok, err := d.prompt.Confirm(fmt.Sprintf("Save cloud %q?", d.form.Record().Name), true)
	if err != nil {
		return payload.Payload{}, d.abort(err)
	}
	if !ok {
		return payload.Payload{}, d.abort(errCancelled)
	}

	p, err := d.form.Submit(ctx, s)
	if err != nil {
		var errs validation.Errors
		if errors.As(err, &errs) {
			warn(d.out, "The cloud was not saved:")
			printFieldErrors(d.out, errs)
		}
		return payload.Payload{}, err
	}
	return p, nil
}

func (d *dialog) abort(err error) error {
	if errors.Is(err, errCancelled) {
		d.form.Cancel()
	}
	return err
}

// retry asks until the form has no error at path
func (d *dialog) retry(path string, ask func() error) error {
	for i := 0; i < maxAttempts; i++ {
		if err := ask(); err != nil {
			return err
		}
		msg := d.form.Error(path)
		if msg == "" {
			return nil
		}
		warn(d.out, "%s", msg)
	}
	return fmt.Errorf("%s: %s", path, d.form.Error(path))
}

func (d *dialog) askProvider() error {
	if !d.pickProvider || d.form.Mode() != form.ModeCreate {
		return nil
	}
	var options []string
	for _, p := range providers.Providers() {
		options = append(options, string(p))
	}
	v, err := d.prompt.Select("Provider", options, string(d.form.Provider()))
	if err != nil {
		return err
	}
	p, err := types.ParseProvider(v)
	if err != nil {
		return err
	}
	return d.form.ChangeProvider(p)
}

func (d *dialog) askCredentialType() error {
	var options []string
	for _, o := range providers.CredentialTypes(d.form.Provider()) {
		if !o.Disabled {
			options = append(options, o.Value)
		}
	}
	if len(options) < 2 {
		return nil
	}
	v, err := d.prompt.Select("Credential Type", options, d.form.Record().CredentialType)
	if err != nil {
		return err
	}
	return d.form.ChangeCredentialType(v)
}

func (d *dialog) askName() error {
	return d.retry(validation.PathName, func() error {
		v, err := d.prompt.Input("Cloud Name", "", d.form.Record().Name)
		if err != nil {
			return err
		}
		d.form.SetName(v)
		return nil
	})
}

func (d *dialog) askCredentials() error {
	for _, w := range d.form.CredentialWidgets() {
		err := d.retry(w.Path, func() error {
			v, err := d.askWidget(w)
			if err != nil {
				return err
			}
			return d.form.SetCredentialField(w.Key, v)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// askWidget renders one dynamic field. A blank secret keeps the stored value.
func (d *dialog) askWidget(w form.Widget) (string, error) {
	switch w.Kind {
	case providers.KindPassword:
		label := w.Label
		if w.Value != "" {
			label += " (leave blank to keep)"
		}
		v, err := d.prompt.Password(label, w.Placeholder)
		if err != nil {
			return "", err
		}
		if v == "" {
			return w.Value, nil
		}
		return v, nil
	case providers.KindSelect:
		var options []string
		for _, o := range w.Options {
			if !o.Disabled {
				options = append(options, o.Value)
			}
		}
		return d.prompt.Select(w.Label, options, w.Value)
	default:
		return d.prompt.Input(w.Label, w.Placeholder, w.Value)
	}
}

func (d *dialog) askRegions() error {
	sel := d.form.Regions()
	picked, err := d.prompt.MultiSelect("Regions", sel.Options(), sel.Values())
	if err != nil {
		return err
	}
	for _, r := range sel.Options() {
		if contains(picked, r) != sel.Has(r) {
			if err := d.form.ToggleRegion(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *dialog) askGroups() error {
	sel := d.form.Groups()
	options := sel.Options()
	for _, g := range sel.Values() {
		if !contains(options, g) {
			options = append(options, g)
		}
	}
	if len(options) == 0 {
		return nil
	}

	picked, err := d.prompt.MultiSelect("Cloud Groups", options, sel.Values())
	if err != nil {
		return err
	}
	for _, g := range options {
		if contains(picked, g) != sel.Has(g) {
			if err := d.form.ToggleCloudGroup(g); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *dialog) askProxy() error {
	return d.retry(validation.PathProxyURL, func() error {
		v, err := d.prompt.Input("Proxy URL", "Optional, for example http://proxy.internal:3128", d.form.Record().ProxyURL)
		if err != nil {
			return err
		}
		d.form.SetProxyURL(v)
		return nil
	})
}

func (d *dialog) askFeatures() error {
	rec := d.form.Record()
	current := map[types.Feature]bool{
		types.FeatureEventProcess: rec.EventProcessEnabled,
		types.FeatureUserActivity: rec.UserActivityEnabled,
		types.FeatureScheduleScan: rec.ScheduleScanEnabled,
	}
	for _, f := range types.AllFeatures() {
		if !providers.IsFeatureSupported(d.form.Provider(), f) {
			continue
		}
		on, err := d.prompt.Confirm(featurePrompts[f], current[f])
		if err != nil {
			return err
		}
		if err := d.form.SetFeature(f, on); err != nil {
			return err
		}
	}
	return nil
}

func (d *dialog) askEventSource() error {
	if !d.form.Record().EventProcessEnabled {
		return nil
	}
	for _, w := range d.form.EventSourceWidgets() {
		v, err := d.askWidget(w)
		if err != nil {
			return err
		}
		if err := d.form.SetEventSourceField(w.Key, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *dialog) askSchedule() error {
	if !d.form.Record().ScheduleScanEnabled {
		return nil
	}

	var freqs []string
	for _, f := range types.AllFrequencies() {
		freqs = append(freqs, string(f))
	}
	v, err := d.prompt.Select("Scan Frequency", freqs, string(d.form.Schedule().Frequency))
	if err != nil {
		return err
	}
	if err := d.form.SetScheduleFrequency(types.Frequency(v)); err != nil {
		return err
	}
	s := d.form.Schedule()

	if s.Frequency.UsesDate() {
		err := d.retry(validation.PathScheduleDate, func() error {
			v, err := d.prompt.Select("Day of Month", optionValues(providers.ScheduleDates()), s.Date)
			if err != nil {
				return err
			}
			return d.form.SetScheduleDate(v)
		})
		if err != nil {
			return err
		}
	}
	if s.Frequency.UsesWeekday() {
		var days []string
		for _, w := range types.AllWeekdays() {
			days = append(days, string(w))
		}
		v, err := d.prompt.Select("Weekday", days, string(s.Weekday))
		if err != nil {
			return err
		}
		if err := d.form.SetScheduleWeekday(types.Weekday(v)); err != nil {
			return err
		}
	}
	if s.Frequency.UsesHour() {
		err := d.retry(validation.PathScheduleHour, func() error {
			v, err := d.prompt.Select("Hour", optionValues(providers.ScheduleHours()), clock(s.Hour))
			if err != nil {
				return err
			}
			return d.form.SetScheduleHour(v)
		})
		if err != nil {
			return err
		}
	}
	return d.retry(validation.PathScheduleMinute, func() error {
		v, err := d.prompt.Select("Minute", optionValues(providers.ScheduleMinutes()), clock(s.Minute))
		if err != nil {
			return err
		}
		d.form.SetScheduleMinute(v)
		return nil
	})
}

func optionValues(opts []providers.Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out
}
