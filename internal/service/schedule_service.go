package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/events"
	"github.com/LeniadVe/DryCleaning/internal/metrics"
	"github.com/LeniadVe/DryCleaning/internal/model"
	"github.com/LeniadVe/DryCleaning/internal/schedule"

	"github.com/rs/zerolog"
)

// ErrInternal marks an unexpected failure while computing a completion time.
var ErrInternal = errors.New("internal scheduling error")

// Config holds configuration for the schedule service.
type Config struct {
	// MaxSearchDays bounds how far ahead a completion is searched.
	// Default: schedule.DefaultMaxSearchDays.
	MaxSearchDays int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{MaxSearchDays: schedule.DefaultMaxSearchDays}
}

// ScheduleService owns the shop schedule for the lifetime of the process
// and exposes the operations the presenting layers call.
type ScheduleService struct {
	store   *schedule.Store
	mutator *schedule.Mutator
	calc    *schedule.Calculator
	bus     *events.EventBus
	logger  zerolog.Logger
}

// NewScheduleService initializes a fresh schedule: every weekday open all day,
// no date overrides. bus may be nil.
func NewScheduleService(config *Config, bus *events.EventBus, logger *zerolog.Logger) *ScheduleService {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	store := schedule.NewStore()
	return &ScheduleService{
		store:   store,
		mutator: schedule.NewMutator(store),
		calc:    schedule.NewCalculator(store, config.MaxSearchDays),
		bus:     bus,
		logger:  logger.With().Str("component", "schedule").Logger(),
	}
}

// SetWeekHours sets hours on each of days, or the whole week when days is nil.
// It stops at the first failed day; days already written stay written.
func (s *ScheduleService) SetWeekHours(ctx context.Context, hours model.WorkHours, days []time.Weekday) bool {
	ok := s.mutator.UpdateWeekFunc(hours, days, func(day time.Weekday, ok bool) {
		s.weekdayApplied(ctx, day, hours, ok)
	})
	metrics.IncScheduleUpdate("week", ok)
	return ok
}

// SetWeekdayHours sets the recurring hours of one weekday.
func (s *ScheduleService) SetWeekdayHours(ctx context.Context, day time.Weekday, hours model.WorkHours) bool {
	ok := s.mutator.UpdateWeekday(day, hours)
	s.weekdayApplied(ctx, day, hours, ok)
	metrics.IncScheduleUpdate("weekday", ok)
	return ok
}

func (s *ScheduleService) weekdayApplied(ctx context.Context, day time.Weekday, hours model.WorkHours, ok bool) {
	l := s.log(ctx)
	if !ok {
		l.Warn().Int("day", int(day)).Str("hours", hours.String()).Msg("weekday update rejected")
		return
	}
	l.Info().Str("day", day.String()).Str("hours", hours.String()).Msg("weekday hours updated")
	s.publish(ctx, events.TargetWeekday, day.String(), hours)
}

// SetDateHours overrides the hours of a single date and returns the stored value.
// ok is false only for an invalid calendar date.
func (s *ScheduleService) SetDateHours(ctx context.Context, date model.Date, hours model.WorkHours) (model.WorkHours, bool) {
	stored, ok := s.mutator.AddDate(date, hours)
	s.dateApplied(ctx, date, stored, ok)
	metrics.IncScheduleUpdate("date", ok)
	return stored, ok
}

// SetDatesHours overrides each date in order and stops at the first failure.
func (s *ScheduleService) SetDatesHours(ctx context.Context, dates []model.Date, hours model.WorkHours) bool {
	ok := s.mutator.AddDatesFunc(dates, hours, func(date model.Date, stored model.WorkHours, ok bool) {
		s.dateApplied(ctx, date, stored, ok)
	})
	metrics.IncScheduleUpdate("dates", ok)
	return ok
}

func (s *ScheduleService) dateApplied(ctx context.Context, date model.Date, stored model.WorkHours, ok bool) {
	l := s.log(ctx)
	if !ok {
		l.Warn().Interface("date", date).Msg("date override rejected")
		return
	}
	l.Info().Str("date", date.String()).Str("hours", stored.String()).Msg("date hours updated")
	s.publish(ctx, events.TargetDate, date.String(), stored)
}

// ComputeCompletion returns the formatted moment a service of the given
// length, started at start, is guaranteed to be finished.
func (s *ScheduleService) ComputeCompletion(ctx context.Context, minutes int, start time.Time) (completion string, err error) {
	l := s.log(ctx)
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Int("minutes", minutes).Time("start", start).Msg("completion calculation panicked")
			metrics.IncCompletion("internal")
			completion, err = "", fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	res, err := s.calc.Complete(minutes, start)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrNoSchedule):
			metrics.IncCompletion("no_schedule")
		case errors.Is(err, schedule.ErrSearchHorizon):
			metrics.IncCompletion("horizon")
		default:
			metrics.IncCompletion("invalid")
		}
		l.Info().Err(err).Int("minutes", minutes).Time("start", start).Msg("completion not available")
		return "", err
	}

	metrics.IncCompletion("ok")
	metrics.ObserveRollover(res.Rollovers)
	l.Debug().Int("minutes", minutes).Time("start", start).Time("completion", res.At).Int("rollovers", res.Rollovers).Msg("completion computed")
	return res.String(), nil
}

// Snapshot returns a copy of the current schedule.
func (s *ScheduleService) Snapshot() schedule.Snapshot {
	return s.store.Snapshot()
}

// ApplyHours writes a configured week and set of date overrides. It reports
// every entry that could not be written.
func (s *ScheduleService) ApplyHours(ctx context.Context, week map[time.Weekday]model.WorkHours, dates map[model.Date]model.WorkHours) error {
	var errs []error
	for _, day := range schedule.Weekdays {
		hours, ok := week[day]
		if !ok {
			continue
		}
		if !s.SetWeekdayHours(ctx, day, hours) {
			errs = append(errs, fmt.Errorf("apply %s hours", day))
		}
	}
	for date, hours := range dates {
		if _, ok := s.SetDateHours(ctx, date, hours); !ok {
			errs = append(errs, fmt.Errorf("apply %s hours", date))
		}
	}
	return errors.Join(errs...)
}

func (s *ScheduleService) publish(ctx context.Context, kind, target string, hours model.WorkHours) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type:      events.ScheduleChanged,
		Kind:      kind,
		Target:    target,
		Hours:     hours,
		RequestID: RequestIDFrom(ctx),
	})
}

// log prefers the request-scoped logger carried by ctx.
func (s *ScheduleService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}
