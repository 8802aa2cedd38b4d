// Package payload turns a validated cloud record into the normalized shape
// sent to the backend.
package payload

import (
	"github.com/yairfalse/cloudctl/types"
)

// Payload is the wire form of a cloud. Its schedule only carries the
// fields the frequency uses.
type Payload struct {
	types.Cloud
}

// Build copies c and recomputes the schedule:
// disabled scans drop the schedule entirely; otherwise frequency and
// minute are kept, date only for MONTH, weekday only for WEEK and hour for
// everything but HOUR.
func Build(c types.Cloud) Payload {
	out := c.Clone()
	out.ScheduleScanSetting = pruneSchedule(c.ScheduleScanEnabled, c.ScheduleScanSetting)
	return Payload{Cloud: out}
}

func pruneSchedule(enabled bool, s *types.ScheduleScanSetting) *types.ScheduleScanSetting {
	if !enabled || s == nil {
		return nil
	}

	pruned := &types.ScheduleScanSetting{
		Frequency: s.Frequency,
		Minute:    s.Minute,
	}
	if s.Frequency.UsesDate() {
		pruned.Date = s.Date
	}
	if s.Frequency.UsesWeekday() {
		pruned.Weekday = s.Weekday
	}
	if s.Frequency.UsesHour() {
		pruned.Hour = s.Hour
	}
	return pruned
}

// Record returns the cloud carried by p
func (p Payload) Record() types.Cloud {
	return p.Cloud.Clone()
}
