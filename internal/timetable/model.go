// Package timetable answers schedule requests from the structured timetable
// file, falling back to the indexed timetable PDF.
package timetable

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Weekdays lists the teaching days in display order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Period is one class slot.
type Period struct {
	Time    string `json:"time" yaml:"time"`
	Subject string `json:"subject" yaml:"subject"`
	Faculty string `json:"faculty" yaml:"faculty"`
	Room    string `json:"room" yaml:"room"`
}

// Schedule maps a capitalized day name to its periods in order.
type Schedule map[string][]Period

// Timetable maps a section label to its weekly schedule.
type Timetable map[string]Schedule

// Sections returns the section labels in sorted order.
func (t Timetable) Sections() []string {
	out := make([]string, 0, len(t))
	for section := range t {
		out = append(out, section)
	}
	slices.Sort(out)
	return out
}

var titleCaser = cases.Title(language.English)

// DayKey normalizes a day name the way schedules are keyed: "MONDAY" and
// "monday" both become "Monday".
func DayKey(day string) string {
	return titleCaser.String(strings.TrimSpace(day))
}

// DetectDay returns the first weekday named in query, or "" if none is.
func DetectDay(query string) string {
	q := strings.ToLower(query)
	for _, day := range Weekdays {
		if strings.Contains(q, strings.ToLower(day)) {
			return day
		}
	}
	return ""
}

// normalize rewrites day keys with DayKey. When two keys collide the
// periods are concatenated in sorted key order.
func normalize(t Timetable) Timetable {
	out := make(Timetable, len(t))
	for section, schedule := range t {
		days := make([]string, 0, len(schedule))
		for day := range schedule {
			days = append(days, day)
		}
		slices.Sort(days)

		norm := make(Schedule, len(schedule))
		for _, day := range days {
			key := DayKey(day)
			norm[key] = append(norm[key], schedule[day]...)
		}
		out[section] = norm
	}
	return out
}
