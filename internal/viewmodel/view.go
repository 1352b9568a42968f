package viewmodel

import (
	"strconv"
	"time"

	"calgrid/internal/calendar"
	"calgrid/internal/locale"
)

// maxIndicator is the largest count shown verbatim; above it "9+" is shown.
const maxIndicator = 9

// CellView decorates a grid cell with what a renderer needs to style it.
type CellView struct {
	calendar.DayCell
	Today      bool   `json:"today"`
	Selected   bool   `json:"selected"`
	EventCount int    `json:"event_count"`
	Indicator  string `json:"indicator,omitempty"`
	// AccessibleLabel is empty for padding cells.
	AccessibleLabel string `json:"accessible_label,omitempty"`
}

// View is a render-ready snapshot of a State.
type View struct {
	MonthLabel    string       `json:"month_label"`
	Year          int          `json:"year"`
	Month         int          `json:"month"` // zero-based
	Weekdays      []string     `json:"weekdays"`
	Rows          [][]CellView `json:"rows"`
	SelectedKey   string       `json:"selected_key,omitempty"`
	SelectedLabel string       `json:"selected_label"`
	Events        []EventView  `json:"events"`
	EventCount    string       `json:"event_count,omitempty"`
	Input         string       `json:"input"`
	Pending       bool         `json:"pending"`
	CanSubmit     bool         `json:"can_submit"`
}

// EventView is one entry of the details list.
type EventView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Imported bool   `json:"imported,omitempty"`
}

// Indicator formats an event count for the small per-cell badge.
func Indicator(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > maxIndicator:
		return strconv.Itoa(maxIndicator) + "+"
	default:
		return strconv.Itoa(n)
	}
}

// Render derives the View of s. now is the reading of the injected clock
// and decides which cell is "today".
func (s State) Render(now time.Time, f *locale.Formatter) View {
	if f == nil {
		f = locale.New()
	}
	today := calendar.FromTime(now)
	g := s.Grid()

	v := View{
		MonthLabel:    f.MonthLabel(s.Active),
		Year:          g.Year,
		Month:         g.MonthIndex(),
		Weekdays:      f.WeekdayHeaders(),
		Rows:          make([][]CellView, calendar.Rows),
		SelectedLabel: "Select a date",
		Input:         s.Input,
		Pending:       s.Pending,
		CanSubmit:     s.CanSubmit(),
	}

	for r, row := range g.Rows {
		v.Rows[r] = make([]CellView, calendar.Columns)
		for c, cell := range row {
			cv := CellView{DayCell: cell}
			if cell.InCurrentMonth && cell.Date != nil {
				cv.Today = cell.Date.Equal(today)
				cv.Selected = s.Selected != nil && cell.Date.Equal(*s.Selected)
				cv.EventCount = s.Events.Count(cell.Key)
				cv.Indicator = Indicator(cv.EventCount)
				cv.AccessibleLabel = f.CellLabel(*cell.Date, cv.EventCount)
			}
			v.Rows[r][c] = cv
		}
	}

	if s.Selected != nil {
		v.SelectedKey = s.Selected.Key()
		v.SelectedLabel = f.LongDate(*s.Selected)
	}
	recs := s.SelectedEvents()
	v.Events = make([]EventView, 0, len(recs))
	for _, r := range recs {
		v.Events = append(v.Events, EventView{ID: r.ID, Title: r.Title, Imported: r.Imported()})
	}
	v.EventCount = f.EventCount(len(recs))
	return v
}
