// Package calendar builds the fixed 6x7 month grid and the calendar-day
// arithmetic it needs.
package calendar

import (
	"strconv"
	"time"
)

const (
	Rows    = 6
	Columns = 7
	Cells   = Rows * Columns
)

// DayCell is one square of the month grid.
type DayCell struct {
	// Key is unique within a grid and stable for the same month.
	Key string `json:"key"`
	// Label is the display text; empty for cells of adjacent months.
	Label string `json:"label"`
	// Day is the day-of-month the cell stands for, in whichever month it belongs to.
	Day            int   `json:"day"`
	InCurrentMonth bool  `json:"in_current_month"`
	Date           *Date `json:"date,omitempty"`
}

// Grid is a month view: 6 rows of 7 cells, Sunday first.
type Grid struct {
	Year  int
	Month time.Month
	Rows  [Rows][Columns]DayCell
}

// BuildGrid returns the grid for the zero-based month index (0=January).
// Indices outside 0..11 roll into adjacent years, so -1 is December of
// year-1 and 12 is January of year+1.
//
// The resulting month must lie within MinYear..MaxYear (see MonthInRange);
// outside it the grid is unspecified.
func BuildGrid(year, month int) Grid {
	return build(NewDate(year, time.Month(month+1), 1))
}

// GridFor returns the grid of the month containing t. The day is ignored.
func GridFor(t time.Time) Grid {
	y, m, _ := t.Date()
	return build(NewDate(y, m, 1))
}

func build(first Date) Grid {
	year, month := first.Year, first.Month
	prev := NewDate(year, month-1, 1)
	next := NewDate(year, month+1, 1)

	firstWeekday := first.Weekday()
	daysInMonth := DaysIn(year, month)
	daysInPrevMonth := DaysIn(prev.Year, prev.Month)

	cells := make([]DayCell, 0, Cells)

	for i := 0; i < firstWeekday; i++ {
		day := daysInPrevMonth - firstWeekday + i + 1
		cells = append(cells, DayCell{
			Key: "prev-" + Date{Year: prev.Year, Month: prev.Month, Day: day}.Key(),
			Day: day,
		})
	}

	for day := 1; day <= daysInMonth; day++ {
		d := Date{Year: year, Month: month, Day: day}
		cells = append(cells, DayCell{
			Key:            d.Key(),
			Label:          strconv.Itoa(day),
			Day:            day,
			InCurrentMonth: true,
			Date:           &d,
		})
	}

	for day := 1; len(cells) < Cells; day++ {
		cells = append(cells, DayCell{
			Key: "next-" + Date{Year: next.Year, Month: next.Month, Day: day}.Key(),
			Day: day,
		})
	}

	g := Grid{Year: year, Month: month}
	for i, c := range cells {
		g.Rows[i/Columns][i%Columns] = c
	}
	return g
}

// FirstOfMonth returns day 1 of the grid's month.
func (g Grid) FirstOfMonth() Date {
	return Date{Year: g.Year, Month: g.Month, Day: 1}
}

// MonthIndex returns the zero-based month index of the grid.
func (g Grid) MonthIndex() int { return int(g.Month) - 1 }

// Flat returns the 42 cells in row-major order.
func (g Grid) Flat() []DayCell {
	out := make([]DayCell, 0, Cells)
	for _, row := range g.Rows {
		out = append(out, row[:]...)
	}
	return out
}

// Find returns the row and column of the current-month cell for d.
func (g Grid) Find(d Date) (row, col int, ok bool) {
	if d.Year != g.Year || d.Month != g.Month {
		return 0, 0, false
	}
	idx := g.FirstOfMonth().Weekday() + d.Day - 1
	return idx / Columns, idx % Columns, true
}
