package types

// Frequency is how often a scheduled scan recurs
type Frequency string

const (
	FrequencyHour  Frequency = "HOUR"
	FrequencyDay   Frequency = "DAY"
	FrequencyWeek  Frequency = "WEEK"
	FrequencyMonth Frequency = "MONTH"
)

// AllFrequencies returns the frequencies in display order
func AllFrequencies() []Frequency {
	return []Frequency{FrequencyHour, FrequencyDay, FrequencyWeek, FrequencyMonth}
}

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHour, FrequencyDay, FrequencyWeek, FrequencyMonth:
		return true
	default:
		return false
	}
}

// UsesDate reports whether a day of month is meaningful for f
func (f Frequency) UsesDate() bool { return f == FrequencyMonth }

// UsesWeekday reports whether a weekday is meaningful for f
func (f Frequency) UsesWeekday() bool { return f == FrequencyWeek }

// UsesHour reports whether an hour of day is meaningful for f
func (f Frequency) UsesHour() bool { return f != FrequencyHour }

// Weekday names a day of the week
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// AllWeekdays returns the weekdays starting on Monday
func AllWeekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether w is one of the seven weekday symbols
func (w Weekday) Valid() bool {
	for _, d := range AllWeekdays() {
		if d == w {
			return true
		}
	}
	return false
}

// ScheduleScanSetting describes when a recurring scan runs.
// Date, Hour and Minute are decimal strings; an empty value means unset.
type ScheduleScanSetting struct {
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	Date      string    `json:"date,omitempty" yaml:"date,omitempty"`
	Weekday   Weekday   `json:"weekday,omitempty" yaml:"weekday,omitempty"`
	Hour      string    `json:"hour,omitempty" yaml:"hour,omitempty"`
	Minute    string    `json:"minute,omitempty" yaml:"minute,omitempty"`
}

// DefaultSchedule returns the schedule a new cloud starts with
func DefaultSchedule() *ScheduleScanSetting {
	return &ScheduleScanSetting{
		Frequency: FrequencyHour,
		Hour:      "0",
		Minute:    "0",
	}
}

// SetFrequency switches the frequency and clears every field the new
// frequency does not use. Switching to HOUR also clears the minute.
func (s *ScheduleScanSetting) SetFrequency(f Frequency) {
	s.Frequency = f
	switch f {
	case FrequencyHour:
		s.Date = ""
		s.Weekday = ""
		s.Hour = ""
		s.Minute = ""
	case FrequencyDay:
		s.Date = ""
		s.Weekday = ""
	case FrequencyWeek:
		s.Date = ""
	case FrequencyMonth:
		s.Weekday = ""
	}
}

// Clone returns a copy of s, or nil when s is nil
func (s *ScheduleScanSetting) Clone() *ScheduleScanSetting {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
