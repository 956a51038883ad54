package schedule

import (
	"errors"
	"math"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/model"
)

const (
	// DefaultMaxSearchDays bounds the day-by-day walk to ten years.
	DefaultMaxSearchDays = 3653

	// CompletionLayout renders a completion time, e.g. "Fri Nov 08 11:00:00 2024".
	CompletionLayout = "Mon Jan 02 15:04:05 2006"

	secondsPerDay = 24 * 60 * 60
	maxMinutes    = (math.MaxInt64 - secondsPerDay) / 60
)

var (
	// ErrNoSchedule means no weekday is open and no open override lies ahead.
	ErrNoSchedule = errors.New("the shop doesn't have opening hours for the indicated date")
	// ErrSearchHorizon means no completion was found within the day cap.
	ErrSearchHorizon = errors.New("no opening hours within the search horizon")
	// ErrNegativeDuration is returned for a duration below zero.
	ErrNegativeDuration = errors.New("duration cannot be negative")
)

// SchedulingError reports why a completion time could not be computed.
type SchedulingError struct {
	Start time.Time
	Err   error
}

func (e *SchedulingError) Error() string {
	return e.Err.Error()
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// Result is a computed completion time.
type Result struct {
	At time.Time
	// Rollovers counts the calendar days advanced past the start date.
	Rollovers int
}

// String renders the completion time with CompletionLayout.
func (r Result) String() string {
	return FormatCompletion(r.At)
}

// FormatCompletion renders t with CompletionLayout.
func FormatCompletion(t time.Time) string {
	return t.Format(CompletionLayout)
}

// Calculator walks the schedule forward to find when a service completes.
// It only reads the store.
type Calculator struct {
	store   *Store
	maxDays int
}

// NewCalculator returns a calculator over store. A non-positive maxDays
// selects DefaultMaxSearchDays.
func NewCalculator(store *Store, maxDays int) *Calculator {
	if maxDays <= 0 {
		maxDays = DefaultMaxSearchDays
	}
	return &Calculator{store: store, maxDays: maxDays}
}

// Complete returns the moment a service of the given length, started at
// start, is finished. Closed days are skipped without consuming time. Whole
// minutes left over at closing carry to the next open day, counted from its
// opening; a partial minute is dropped.
func (c *Calculator) Complete(minutes int, start time.Time) (Result, error) {
	if minutes < 0 {
		return Result{}, ErrNegativeDuration
	}

	date := model.DateOf(start)
	if !c.store.HasAnySchedule(date) {
		return Result{}, &SchedulingError{Start: start, Err: ErrNoSchedule}
	}
	// begin + remaining*60 must fit in int64 for any begin within a day.
	if int64(minutes) > maxMinutes {
		return Result{}, &SchedulingError{Start: start, Err: ErrSearchHorizon}
	}

	current := model.TimeOfDayOf(start)
	remaining := int64(minutes)

	for day := 0; day <= c.maxDays; day++ {
		if open, close, ok := c.store.Effective(date).Bounds(); ok {
			begin := max(current, open)
			// Arriving after closing consumes nothing today.
			if begin <= close {
				end := int64(begin) + remaining*60
				if end <= int64(close) {
					return Result{At: date.At(model.TimeOfDay(end)), Rollovers: day}, nil
				}
				remaining = (end - int64(close)) / 60
			}
		}
		date = date.AddDays(1)
		current = model.StartOfDay
	}

	return Result{}, &SchedulingError{Start: start, Err: ErrSearchHorizon}
}
