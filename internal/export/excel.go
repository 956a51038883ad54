// Package export renders the schedule as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/LeniadVe/DryCleaning/internal/schedule"

	"github.com/xuri/excelize/v2"
)

const (
	WeekSheet  = "Week"
	DatesSheet = "Dates"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// workbook writes rows sheet by sheet.
type workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newWorkbook() *workbook {
	return &workbook{file: excelize.NewFile()}
}

func (w *workbook) addSheet(name string) error {
	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *workbook) writeHeader(columns ...string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row...); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return nil
}

func (w *workbook) writeRow(values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", w.currentSheet, w.currentRow, err)
	}
	w.currentRow++
	return nil
}

// WriteSchedule writes the weekly hours and the date overrides of snap to out.
func WriteSchedule(out io.Writer, snap schedule.Snapshot) error {
	wb := newWorkbook()
	defer wb.file.Close()

	if err := wb.addSheet(WeekSheet); err != nil {
		return err
	}
	if err := wb.writeHeader("Day", "Closed", "Open", "Close"); err != nil {
		return err
	}
	for _, day := range schedule.Weekdays {
		v := snap.Week[day].View()
		if err := wb.writeRow(day.String(), v.Closed, v.Open, v.Close); err != nil {
			return err
		}
	}

	if err := wb.addSheet(DatesSheet); err != nil {
		return err
	}
	if err := wb.writeHeader("Date", "Weekday", "Closed", "Open", "Close"); err != nil {
		return err
	}
	for _, d := range snap.Dates {
		v := d.Hours.View()
		if err := wb.writeRow(d.Date.String(), d.Date.Weekday().String(), v.Closed, v.Open, v.Close); err != nil {
			return err
		}
	}

	if err := wb.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
