// Package schedule holds the shop's opening hours and computes when a
// service started at a given moment is guaranteed to be finished.
package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/model"
)

// Weekdays lists the fixed weekly key set, Sunday first.
var Weekdays = []time.Weekday{
	time.Sunday,
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
}

// Store holds the weekly hours and the per-date overrides.
// All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	week  map[time.Weekday]model.WorkHours
	dates map[model.Date]model.WorkHours
}

// NewStore returns a store with every weekday open all day and no overrides.
func NewStore() *Store {
	s := &Store{
		week:  make(map[time.Weekday]model.WorkHours, len(Weekdays)),
		dates: make(map[model.Date]model.WorkHours),
	}
	for _, day := range Weekdays {
		s.week[day] = model.FullDay()
	}
	return s
}

// Weekday returns the recurring hours for day.
func (s *Store) Weekday(day time.Weekday) (model.WorkHours, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.week[day]
	return h, ok
}

// DateOverride returns the override for date, if one was set.
func (s *Store) DateOverride(date model.Date) (model.WorkHours, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.dates[date]
	return h, ok
}

// Effective returns the hours in force on date: the override when present,
// otherwise the weekday entry.
func (s *Store) Effective(date model.Date) model.WorkHours {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.dates[date]; ok {
		return h
	}
	return s.week[date.Weekday()]
}

// CompareAndSwapWeekday replaces the entry for day with next only if it
// still equals old. Unknown days are never inserted.
func (s *Store) CompareAndSwapWeekday(day time.Weekday, old, next model.WorkHours) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.week[day]
	if !ok || cur != old {
		return false
	}
	s.week[day] = next
	return true
}

// PutDate inserts or replaces the override for date and returns the stored value.
func (s *Store) PutDate(date model.Date, hours model.WorkHours) model.WorkHours {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates[date] = hours
	return hours
}

// DateHours pairs an override with its date.
type DateHours struct {
	Date  model.Date
	Hours model.WorkHours
}

// Snapshot is a point-in-time copy of the schedule.
type Snapshot struct {
	Week  map[time.Weekday]model.WorkHours
	Dates []DateHours // ascending by date
}

// Snapshot copies the schedule under a single read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Week:  make(map[time.Weekday]model.WorkHours, len(s.week)),
		Dates: make([]DateHours, 0, len(s.dates)),
	}
	for day, h := range s.week {
		snap.Week[day] = h
	}
	for d, h := range s.dates {
		snap.Dates = append(snap.Dates, DateHours{Date: d, Hours: h})
	}
	sort.Slice(snap.Dates, func(i, j int) bool {
		return snap.Dates[i].Date.Before(snap.Dates[j].Date)
	})
	return snap
}
