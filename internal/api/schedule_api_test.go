package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/db"
	"github.com/LeniadVe/DryCleaning/internal/events"
	"github.com/LeniadVe/DryCleaning/internal/export"
	"github.com/LeniadVe/DryCleaning/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type mockChanges struct {
	mock.Mock
}

func (m *mockChanges) ListChanges(ctx context.Context, limit int) ([]db.Change, error) {
	args := m.Called(ctx, limit)
	changes, _ := args.Get(0).([]db.Change)
	return changes, args.Error(1)
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) {
	return l.allowed, l.err
}

func newTestServer(t *testing.T) (*HTTPServer, *service.ScheduleService) {
	t.Helper()
	logger := zerolog.Nop()
	svc := service.NewScheduleService(nil, events.NewEventBus(), &logger)
	return NewHTTPServer(":0", svc, nil, nil, &logger), svc
}

func do(t *testing.T, h http.Handler, method, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleDaysSchedule(t *testing.T) {
	srv, svc := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/days-schedule", url.Values{"openingHour": {"09:00"}, "closingHour": {"18:00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Days schedule updated successfully.", decode[MessageResponse](t, rec).Message)
	assert.Equal(t, "09:00:00-18:00:00", svc.Snapshot().Week[time.Thursday].String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestHandlers_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name      string
		method    string
		path      string
		params    url.Values
		wantCode  int
		wantError string
	}{
		{
			name:      "bad opening hour",
			method:    http.MethodPost,
			path:      "/days-schedule",
			params:    url.Values{"openingHour": {"9am"}, "closingHour": {"18:00"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The opening hour format is incorrect: 9am. It must be 'HH:mm'.",
		},
		{
			name:      "closing before opening",
			method:    http.MethodPost,
			path:      "/days",
			params:    url.Values{"dayOfWeek": {"monday"}, "openingHour": {"18:00"}, "closingHour": {"09:00"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The closing hour (09:00) cannot be equal to or earlier than the opening hour (18:00).",
		},
		{
			name:      "bad weekday",
			method:    http.MethodPost,
			path:      "/days",
			params:    url.Values{"dayOfWeek": {"someday"}, "openingHour": {"09:00"}, "closingHour": {"18:00"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The day of the week 'someday' is not valid. Please provide a valid day (e.g., 'Monday', 'Tuesday').",
		},
		{
			name:      "bad date",
			method:    http.MethodPost,
			path:      "/date",
			params:    url.Values{"date": {"2024-13-01"}, "openingHour": {"09:00"}, "closingHour": {"18:00"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The date format is incorrect: 2024-13-01. It must be in 'yyyy-MM-dd' format.",
		},
		{
			name:      "bad date in list",
			method:    http.MethodPost,
			path:      "/dates-close",
			params:    url.Values{"dates": {"2024-11-08,tomorrow"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The date format is incorrect: tomorrow. It must be in 'yyyy-MM-dd' format.",
		},
		{
			name:      "negative minutes",
			method:    http.MethodGet,
			path:      "/schedule-calculator",
			params:    url.Values{"minutes": {"-1"}, "date": {"2024-11-08 09:00"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The duration in minutes cannot be negative. Please provide a valid positive number.",
		},
		{
			name:      "bad start",
			method:    http.MethodGet,
			path:      "/schedule-calculator",
			params:    url.Values{"minutes": {"10"}, "date": {"yesterday"}},
			wantCode:  http.StatusBadRequest,
			wantError: "The date and time format is incorrect: yesterday. It must be in 'yyyy-MM-dd HH:mm' format.",
		},
		{
			name:      "wrong method",
			method:    http.MethodGet,
			path:      "/days-close",
			wantCode:  http.StatusMethodNotAllowed,
			wantError: "method not allowed; use POST",
		},
		{
			name:      "wrong method on calculator",
			method:    http.MethodPost,
			path:      "/schedule-calculator",
			wantCode:  http.StatusMethodNotAllowed,
			wantError: "method not allowed; use GET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.params)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestHandleScheduleCalculator(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {"120"}, "date": {"2024-11-08 09:00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fri Nov 08 11:00:00 2024", decode[CompletionResponse](t, rec).Completion)
}

func TestHandleScheduleCalculator_Rollover(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {"120"}, "date": {"2024-11-08 23:00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sat Nov 09 01:00:00 2024", decode[CompletionResponse](t, rec).Completion)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/days-schedule",
		url.Values{"openingHour": {"09:00"}, "closingHour": {"18:00"}}).Code)

	rec = do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {"60"}, "date": {"2024-11-08 17:00:30"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sat Nov 09 09:00:00 2024", decode[CompletionResponse](t, rec).Completion)
}

func TestHandleScheduleCalculator_HugeDuration(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, minutes := range []string{strconv.Itoa(math.MaxInt64 / 60), strconv.Itoa(math.MaxInt)} {
		rec := do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {minutes}, "date": {"2024-11-08 12:00"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, minutes)
		assert.Equal(t, "no opening hours within the search horizon", decode[ErrorResponse](t, rec).Error)
	}
}

func TestHandleScheduleCalculator_AfterUpdates(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/days-schedule",
		url.Values{"openingHour": {"09:00"}, "closingHour": {"18:00"}}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/days-close",
		url.Values{"daysOfWeek": {"saturday,sunday"}}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/dates-close",
		url.Values{"dates": {"2024-11-11"}}).Code)

	rec := do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {"120"}, "date": {"2024-11-08 17:00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tue Nov 12 10:00:00 2024", decode[CompletionResponse](t, rec).Completion)
}

func TestHandleScheduleCalculator_NoSchedule(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/days-close",
		url.Values{"daysOfWeek": {"sunday,monday,tuesday,wednesday,thursday,friday,saturday"}}).Code)

	rec := do(t, h, http.MethodGet, "/schedule-calculator", url.Values{"minutes": {"120"}, "date": {"2024-11-08 10:00"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "the shop doesn't have opening hours for the indicated date", decode[ErrorResponse](t, rec).Error)
}

func TestHandleDate(t *testing.T) {
	srv, svc := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/date", url.Values{"date": {"2024-12-24"}, "openingHour": {"09:00"}, "closingHour": {"13:00"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dates added successfully.", decode[MessageResponse](t, rec).Message)

	snap := svc.Snapshot()
	require.Len(t, snap.Dates, 1)
	assert.Equal(t, "2024-12-24", snap.Dates[0].Date.String())
}

func TestHandleSchedule(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/dates-close", url.Values{"dates": {"2024-12-25"}}).Code)

	rec := do(t, h, http.MethodGet, "/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ScheduleResponse](t, rec)
	require.Len(t, resp.Week, 7)
	assert.Equal(t, "00:00:00", resp.Week["Monday"].Open)
	require.Len(t, resp.Dates, 1)
	assert.Equal(t, "2024-12-25", resp.Dates[0].Date)
	assert.True(t, resp.Dates[0].Closed)
}

func TestHandleScheduleExport(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/schedule/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), export.WeekSheet)
}

func TestHandleScheduleChanges(t *testing.T) {
	logger := zerolog.Nop()
	svc := service.NewScheduleService(nil, nil, &logger)

	t.Run("disabled", func(t *testing.T) {
		srv := NewHTTPServer(":0", svc, nil, nil, &logger)
		rec := do(t, srv.Handler(), http.MethodGet, "/schedule/changes", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists", func(t *testing.T) {
		changes := &mockChanges{}
		changes.On("ListChanges", mock.Anything, 5).Return([]db.Change{{ID: 1, Kind: "weekday", Target: "Monday"}}, nil)
		srv := NewHTTPServer(":0", svc, changes, nil, &logger)

		rec := do(t, srv.Handler(), http.MethodGet, "/schedule/changes", url.Values{"limit": {"5"}})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Changes []db.Change `json:"changes"`
		}](t, rec)
		require.Len(t, resp.Changes, 1)
		assert.Equal(t, "Monday", resp.Changes[0].Target)
		changes.AssertExpectations(t)
	})

	t.Run("clamps limit", func(t *testing.T) {
		changes := &mockChanges{}
		changes.On("ListChanges", mock.Anything, maxChangesPage).Return([]db.Change{}, nil)
		srv := NewHTTPServer(":0", svc, changes, nil, &logger)

		rec := do(t, srv.Handler(), http.MethodGet, "/schedule/changes", url.Values{"limit": {"100000"}})
		require.Equal(t, http.StatusOK, rec.Code)
		changes.AssertExpectations(t)
	})

	t.Run("ignores bad limit", func(t *testing.T) {
		changes := &mockChanges{}
		changes.On("ListChanges", mock.Anything, changesPageSize).Return([]db.Change{}, nil)
		srv := NewHTTPServer(":0", svc, changes, nil, &logger)

		rec := do(t, srv.Handler(), http.MethodGet, "/schedule/changes", url.Values{"limit": {"-3"}})
		require.Equal(t, http.StatusOK, rec.Code)
		changes.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		changes := &mockChanges{}
		changes.On("ListChanges", mock.Anything, changesPageSize).Return(nil, errors.New("disk full"))
		srv := NewHTTPServer(":0", svc, changes, nil, &logger)

		rec := do(t, srv.Handler(), http.MethodGet, "/schedule/changes", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	logger := zerolog.Nop()
	svc := service.NewScheduleService(nil, nil, &logger)

	limited := NewHTTPServer(":0", svc, nil, stubLimiter{allowed: false}, &logger)
	rec := do(t, limited.Handler(), http.MethodGet, "/schedule", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	broken := NewHTTPServer(":0", svc, nil, stubLimiter{err: errors.New("redis down")}, &logger)
	rec = do(t, broken.Handler(), http.MethodGet, "/schedule", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
