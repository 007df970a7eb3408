package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time with minute resolution, stored as minutes since
// midnight. The zero value means "not set".
type TimeOfDay int

// NoTime is the unset TimeOfDay. Midnight itself is outside business hours,
// so the zero value never collides with a bookable time.
const NoTime TimeOfDay = 0

// MinutesOfDay builds a TimeOfDay from hour and minute.
func MinutesOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" in 24h format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return NoTime, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return MinutesOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) IsSet() bool {
	return t != NoTime
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors the time of day onto a calendar date in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DayOfWeek identifies a weekday for recurring availability windows.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// ParseDayOfWeek accepts the lowercase weekday names used on the wire.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown day of week %q", s)
	}
	return d, nil
}
