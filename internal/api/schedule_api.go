package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/export"
	"github.com/LeniadVe/DryCleaning/internal/input"
	"github.com/LeniadVe/DryCleaning/internal/metrics"
	"github.com/LeniadVe/DryCleaning/internal/model"
	"github.com/LeniadVe/DryCleaning/internal/schedule"
	"github.com/LeniadVe/DryCleaning/internal/service"

	"github.com/rs/zerolog"
)

const (
	msgDaysUpdated  = "Days schedule updated successfully."
	msgDaysFailed   = "Days cannot be scheduled."
	msgDatesAdded   = "Dates added successfully."
	msgDatesFailed  = "Dates cannot be scheduled."
	msgInternal     = "An unexpected error occurred while calculating the completion time."
	changesPageSize = 50
	maxChangesPage  = 500
)

// ScheduleResponse is the body of GET /schedule.
type ScheduleResponse struct {
	Week  map[string]model.WorkHoursView `json:"week"`
	Dates []DateHoursResponse            `json:"dates"`
}

// DateHoursResponse is one date override.
type DateHoursResponse struct {
	Date string `json:"date"`
	model.WorkHoursView
}

// CompletionResponse is the body of GET /schedule-calculator.
type CompletionResponse struct {
	Completion string `json:"completion"`
}

// handleDaysSchedule sets the same hours on every weekday.
// POST /days-schedule?openingHour=HH:mm&closingHour=HH:mm
func (s *HTTPServer) handleDaysSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("days_schedule")
	if !requirePost(w, r) {
		return
	}

	q := r.URL.Query()
	hours, err := input.WorkHours(q.Get("openingHour"), q.Get("closingHour"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeOutcome(w, s.service.SetWeekHours(r.Context(), hours, nil), msgDaysUpdated, msgDaysFailed)
}

// handleDays sets the hours of one weekday.
// POST /days?dayOfWeek=monday&openingHour=HH:mm&closingHour=HH:mm
func (s *HTTPServer) handleDays(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("days")
	if !requirePost(w, r) {
		return
	}

	q := r.URL.Query()
	day, err := input.Weekday(q.Get("dayOfWeek"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours, err := input.WorkHours(q.Get("openingHour"), q.Get("closingHour"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeOutcome(w, s.service.SetWeekdayHours(r.Context(), day, hours), msgDaysUpdated, msgDaysFailed)
}

// handleDate overrides the hours of one date.
// POST /date?date=yyyy-MM-dd&openingHour=HH:mm&closingHour=HH:mm
func (s *HTTPServer) handleDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("date")
	if !requirePost(w, r) {
		return
	}

	q := r.URL.Query()
	date, err := input.Date(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours, err := input.WorkHours(q.Get("openingHour"), q.Get("closingHour"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, ok := s.service.SetDateHours(r.Context(), date, hours)
	writeOutcome(w, ok, msgDatesAdded, msgDatesFailed)
}

// handleDaysClose closes the listed weekdays.
// POST /days-close?daysOfWeek=monday,sunday
func (s *HTTPServer) handleDaysClose(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("days_close")
	if !requirePost(w, r) {
		return
	}

	days, err := input.Weekdays(r.URL.Query().Get("daysOfWeek"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeOutcome(w, s.service.SetWeekHours(r.Context(), model.Closed(), days), msgDaysUpdated, msgDaysFailed)
}

// handleDatesClose closes the listed dates.
// POST /dates-close?dates=2024-11-08,2024-11-09
func (s *HTTPServer) handleDatesClose(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dates_close")
	if !requirePost(w, r) {
		return
	}

	dates, err := input.Dates(r.URL.Query().Get("dates"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeOutcome(w, s.service.SetDatesHours(r.Context(), dates, model.Closed()), msgDatesAdded, msgDatesFailed)
}

// handleScheduleCalculator returns when a service would be finished.
// GET /schedule-calculator?minutes=120&date=2024-11-08 09:00
func (s *HTTPServer) handleScheduleCalculator(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_calculator")
	if !requireGet(w, r) {
		return
	}

	q := r.URL.Query()
	minutes, err := input.Minutes(q.Get("minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := input.DateTime(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	completion, err := s.service.ComputeCompletion(r.Context(), minutes, start)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CompletionResponse{Completion: completion})
	case errors.Is(err, schedule.ErrNoSchedule):
		writeError(w, http.StatusUnprocessableEntity, schedule.ErrNoSchedule.Error())
	case errors.Is(err, schedule.ErrSearchHorizon):
		writeError(w, http.StatusUnprocessableEntity, schedule.ErrSearchHorizon.Error())
	case errors.Is(err, schedule.ErrNegativeDuration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInternal):
		writeError(w, http.StatusInternalServerError, msgInternal)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleSchedule returns the current schedule.
// GET /schedule
func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule")
	if !requireGet(w, r) {
		return
	}

	snap := s.service.Snapshot()
	resp := ScheduleResponse{
		Week:  make(map[string]model.WorkHoursView, len(snap.Week)),
		Dates: make([]DateHoursResponse, 0, len(snap.Dates)),
	}
	for day, hours := range snap.Week {
		resp.Week[day.String()] = hours.View()
	}
	for _, d := range snap.Dates {
		resp.Dates = append(resp.Dates, DateHoursResponse{Date: d.Date.String(), WorkHoursView: d.Hours.View()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScheduleExport downloads the schedule as XLSX.
// GET /schedule/export
func (s *HTTPServer) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_export")
	if !requireGet(w, r) {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, s.service.Snapshot()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("schedule export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := "schedule_" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleScheduleChanges lists recent schedule writes.
// GET /schedule/changes?limit=50
func (s *HTTPServer) handleScheduleChanges(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_changes")
	if !requireGet(w, r) {
		return
	}
	if s.changes == nil {
		writeError(w, http.StatusNotFound, "audit trail is disabled")
		return
	}

	changes, err := s.changes.ListChanges(r.Context(), queryLimit(r, changesPageSize, maxChangesPage))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list changes failed")
		writeError(w, http.StatusInternalServerError, "failed to load changes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return false
	}
	return true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return false
	}
	return true
}

func writeOutcome(w http.ResponseWriter, ok bool, success, failure string) {
	if ok {
		writeMessage(w, success)
		return
	}
	writeError(w, http.StatusConflict, failure)
}
