package model

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time within a single day, in whole seconds since midnight.
type TimeOfDay int

const (
	secondsPerDay = 24 * 60 * 60

	// StartOfDay is 00:00:00.
	StartOfDay TimeOfDay = 0
	// EndOfDay is 23:59:59, the latest representable time of day.
	EndOfDay TimeOfDay = secondsPerDay - 1
)

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour out of range: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute out of range: %d", minute)
	}
	if second < 0 || second > 59 {
		return 0, fmt.Errorf("second out of range: %d", second)
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// MustTimeOfDay is NewTimeOfDay for constants known to be valid.
func MustTimeOfDay(hour, minute, second int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute, second)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Clock returns the hour, minute and second components.
func (t TimeOfDay) Clock() (hour, minute, second int) {
	s := int(t)
	return s / 3600, (s % 3600) / 60, s % 60
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= StartOfDay && t <= EndOfDay
}

func (t TimeOfDay) String() string {
	h, m, s := t.Clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// HHMM renders the time as "15:04".
func (t TimeOfDay) HHMM() string {
	h, m, _ := t.Clock()
	return fmt.Sprintf("%02d:%02d", h, m)
}
