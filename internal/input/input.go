// Package input turns raw request text into the typed values the schedule
// service accepts. Error messages are meant to be shown to the caller as-is.
package input

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/model"
)

const listSeparator = ","

var clockLayouts = []string{"15:04", "15:04:05"}

var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	model.DateLayout,
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Error is a validation failure with a user-facing message.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Weekday parses an English weekday name, ignoring case.
func Weekday(s string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, invalid("The day of the week '%s' is not valid. Please provide a valid day (e.g., 'Monday', 'Tuesday').", s)
	}
	return day, nil
}

// Weekdays parses a comma-separated list of weekday names.
func Weekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, listSeparator)
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		day, err := Weekday(p)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// Date parses "yyyy-MM-dd" and rejects days that do not exist.
func Date(s string) (model.Date, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return model.Date{}, invalid("The date format is incorrect: %s. It must be in 'yyyy-MM-dd' format.", s)
	}
	return model.DateOf(t), nil
}

// Dates parses a comma-separated list of dates.
func Dates(s string) ([]model.Date, error) {
	parts := strings.Split(s, listSeparator)
	dates := make([]model.Date, 0, len(parts))
	for _, p := range parts {
		d, err := Date(p)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// WorkHours parses an opening and a closing hour ("HH:mm" or "HH:mm:ss")
// into an open interval.
func WorkHours(opening, closing string) (model.WorkHours, error) {
	open, ok := clock(opening)
	if !ok {
		return model.WorkHours{}, invalid("The opening hour format is incorrect: %s. It must be 'HH:mm'.", opening)
	}
	close, ok := clock(closing)
	if !ok {
		return model.WorkHours{}, invalid("The closing hour format is incorrect: %s. It must be 'HH:mm'.", closing)
	}
	hours, err := model.NewWorkHours(open, close)
	if err != nil {
		return model.WorkHours{}, invalid("The closing hour (%s) cannot be equal to or earlier than the opening hour (%s).", close.HHMM(), open.HHMM())
	}
	return hours, nil
}

// Minutes parses a non-negative whole number of minutes.
func Minutes(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalid("The duration in minutes is incorrect: %s. It must be a whole number.", s)
	}
	if n < 0 {
		return 0, invalid("The duration in minutes cannot be negative. Please provide a valid positive number.")
	}
	return n, nil
}

// DateTime parses "yyyy-MM-dd HH:mm" (seconds and a 'T' separator are also
// accepted). A bare date means midnight.
func DateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("The date and time format is incorrect: %s. It must be in 'yyyy-MM-dd HH:mm' format.", s)
}

func clock(s string) (model.TimeOfDay, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.TimeOfDayOf(t), true
		}
	}
	return 0, false
}
