package schedule

import (
	"time"

	"github.com/LeniadVe/DryCleaning/internal/model"
)

// Mutator applies hour changes to a Store. Single-entry updates are atomic;
// batches are applied entry by entry and are not rolled back on failure.
type Mutator struct {
	store *Store

	// afterRead runs between reading a weekday and swapping it. Tests use it
	// to interleave a competing writer.
	afterRead func(day time.Weekday)
}

// NewMutator returns a mutator over store.
func NewMutator(store *Store) *Mutator {
	return &Mutator{store: store}
}

// UpdateWeekday replaces the hours for day, unless the entry changed after it
// was read. Pass model.Closed() to close the day. It returns false for an
// unknown day or a lost race; the caller may retry.
func (m *Mutator) UpdateWeekday(day time.Weekday, hours model.WorkHours) bool {
	current, ok := m.store.Weekday(day)
	if !ok {
		return false
	}
	if m.afterRead != nil {
		m.afterRead(day)
	}
	return m.store.CompareAndSwapWeekday(day, current, hours)
}

// UpdateWeek applies UpdateWeekday to each of days, or to the whole week when
// days is nil. It stops at the first failure; earlier days keep their update.
func (m *Mutator) UpdateWeek(hours model.WorkHours, days []time.Weekday) bool {
	return m.UpdateWeekFunc(hours, days, nil)
}

// UpdateWeekFunc is UpdateWeek with a callback run after each attempted day,
// including the one that failed.
func (m *Mutator) UpdateWeekFunc(hours model.WorkHours, days []time.Weekday, each func(day time.Weekday, ok bool)) bool {
	if days == nil {
		days = Weekdays
	}
	for _, day := range days {
		ok := m.UpdateWeekday(day, hours)
		if each != nil {
			each(day, ok)
		}
		if !ok {
			return false
		}
	}
	return true
}

// AddDate sets the override for date unconditionally and returns the stored
// value. ok is false, and nothing is stored, when date is not a real calendar day.
func (m *Mutator) AddDate(date model.Date, hours model.WorkHours) (stored model.WorkHours, ok bool) {
	if !date.Valid() {
		return model.WorkHours{}, false
	}
	return m.store.PutDate(date, hours), true
}

// AddDates applies AddDate to each date in order and stops at the first failure.
func (m *Mutator) AddDates(dates []model.Date, hours model.WorkHours) bool {
	return m.AddDatesFunc(dates, hours, nil)
}

// AddDatesFunc is AddDates with a callback run after each attempted date.
func (m *Mutator) AddDatesFunc(dates []model.Date, hours model.WorkHours, each func(date model.Date, stored model.WorkHours, ok bool)) bool {
	for _, d := range dates {
		stored, ok := m.AddDate(d, hours)
		if each != nil {
			each(d, stored, ok)
		}
		if !ok {
			return false
		}
	}
	return true
}
