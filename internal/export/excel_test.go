package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/model"
	"github.com/LeniadVe/DryCleaning/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSchedule(t *testing.T) {
	store := schedule.NewStore()
	m := schedule.NewMutator(store)
	hours, err := model.NewWorkHours(model.MustTimeOfDay(9, 0, 0), model.MustTimeOfDay(18, 0, 0))
	require.NoError(t, err)
	require.True(t, m.UpdateWeekday(time.Monday, hours))
	require.True(t, m.UpdateWeekday(time.Sunday, model.Closed()))
	_, ok := m.AddDate(model.NewDate(2024, time.December, 25), model.Closed())
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, WriteSchedule(&buf, store.Snapshot()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{WeekSheet, DatesSheet}, f.GetSheetList())

	week, err := f.GetRows(WeekSheet)
	require.NoError(t, err)
	require.Len(t, week, 8)
	assert.Equal(t, []string{"Day", "Closed", "Open", "Close"}, week[0])
	require.GreaterOrEqual(t, len(week[1]), 2)
	assert.Equal(t, []string{"Sunday", "TRUE"}, week[1][:2])
	assert.Equal(t, []string{"Monday", "FALSE", "09:00:00", "18:00:00"}, week[2])

	dates, err := f.GetRows(DatesSheet)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.GreaterOrEqual(t, len(dates[1]), 3)
	assert.Equal(t, []string{"2024-12-25", "Wednesday", "TRUE"}, dates[1][:3])
}
