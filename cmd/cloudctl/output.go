package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/yairfalse/cloudctl/internal/plugin"
	"github.com/yairfalse/cloudctl/manifest"
	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func checkOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func scheduleSummary(c types.Cloud) string {
	if !c.ScheduleScanEnabled || c.ScheduleScanSetting == nil {
		return "-"
	}
	s := c.ScheduleScanSetting
	at := clock(s.Hour) + ":" + clock(s.Minute)
	switch s.Frequency {
	case types.FrequencyHour:
		return "hourly at :" + clock(s.Minute)
	case types.FrequencyDay:
		return "daily " + at
	case types.FrequencyWeek:
		return string(s.Weekday) + " " + at
	case types.FrequencyMonth:
		return "day " + s.Date + " " + at
	default:
		return string(s.Frequency)
	}
}

// clock renders an hour or minute as two digits
func clock(v string) string {
	if len(v) == 1 {
		return "0" + v
	}
	return orDash(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printCloudTable writes the management table for one page
func printCloudTable(w io.Writer, page storage.Page) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tGROUPS\tREGIONS\tEVENTS\tSCHEDULE")
	for _, c := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID,
			c.Name,
			c.Provider,
			orDash(strings.Join(c.CloudGroupName, ",")),
			len(c.RegionList),
			onOff(c.EventProcessEnabled),
			scheduleSummary(c),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d clouds)\n", page.Page, max(page.TotalPages, 1), page.Total)
	return nil
}

// printCloud writes the detail view of one masked cloud
func printCloud(w io.Writer, c types.Cloud) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
	fmt.Fprintf(tw, "Provider:\t%s\n", c.Provider)
	fmt.Fprintf(tw, "Credential Type:\t%s\n", c.CredentialType)
	if c.Credentials != nil {
		for _, f := range providers.CredentialFields(c.Provider, c.CredentialType) {
			fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, orDash(c.Credentials.Get(f.Key)))
		}
	}
	fmt.Fprintf(tw, "Cloud Groups:\t%s\n", orDash(strings.Join(c.CloudGroupName, ", ")))
	fmt.Fprintf(tw, "Regions:\t%s\n", strings.Join(c.RegionList, ", "))
	fmt.Fprintf(tw, "Proxy URL:\t%s\n", orDash(c.ProxyURL))
	fmt.Fprintf(tw, "Event Processing:\t%s\n", onOff(c.EventProcessEnabled))
	if c.EventSource != nil {
		for _, f := range providers.EventSourceFields(c.Provider) {
			fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, orDash(c.EventSource.Get(f.Key)))
		}
	}
	fmt.Fprintf(tw, "User Activity:\t%s\n", onOff(c.UserActivityEnabled))
	fmt.Fprintf(tw, "Scheduled Scan:\t%s\n", scheduleSummary(c))
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "Updated:\t%s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printCloudYAML(w io.Writer, c types.Cloud) error {
	return manifest.Encode(w, manifest.FromCloud(c))
}

// printFieldErrors lists validation or policy errors one per line
func printFieldErrors(w io.Writer, errs validation.Errors) {
	for _, fe := range errs {
		fmt.Fprintf(w, "  %s %s: %s\n", color.HiRedString("✗"), fe.Path, fe.Message)
	}
}

func printReport(w io.Writer, r plugin.Report) error {
	fmt.Fprintf(w, "Cloud %s (%s)", r.CloudID, r.Provider)
	if r.Account != "" {
		fmt.Fprintf(w, " account %s", r.Account)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range r.Checks {
		mark := color.HiGreenString("✓")
		if !c.OK {
			mark = color.HiRedString("✗")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", mark, c.Name, c.Detail)
	}
	return tw.Flush()
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.HiGreenString("✓"), fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.HiYellowString("!"), fmt.Sprintf(format, args...))
}
