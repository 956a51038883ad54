package schedule

import "github.com/LeniadVe/DryCleaning/internal/model"

// HasAnySchedule reports whether any weekday is open, or any override dated
// strictly after ref is open. It is a cheap liveness check, not a proof that
// an open slot is reachable from ref; Calculator bounds its search separately.
func (s *Store) HasAnySchedule(ref model.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.week {
		if !h.IsClosed() {
			return true
		}
	}
	for d, h := range s.dates {
		if !h.IsClosed() && d.After(ref) {
			return true
		}
	}
	return false
}
