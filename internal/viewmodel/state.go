// Package viewmodel holds the calendar's interaction state as an immutable
// record. Every transition returns a new State; rendering layers keep the
// latest value and derive what they draw from it.
package viewmodel

import (
	"strings"
	"time"

	"calgrid/internal/calendar"
	"calgrid/internal/events"
	"calgrid/internal/model"
)

// State is the full view-model of one calendar widget.
type State struct {
	// Active is day 1 of the displayed month.
	Active calendar.Date
	// Selected is nil when no day is selected.
	Selected *calendar.Date
	Events   events.Store
	Input    string
	Pending  bool
}

// New returns the initial state: the month of today with today selected.
func New(today time.Time) State {
	d := calendar.FromTime(today)
	return State{
		Active:   calendar.NewDate(d.Year, d.Month, 1),
		Selected: &d,
	}
}

// Grid builds the grid of the active month.
func (s State) Grid() calendar.Grid {
	return calendar.BuildGrid(s.Active.Year, int(s.Active.Month)-1)
}

// Navigate moves the active month by offset months. A selected day that
// does not exist in the target month clamps to its last day; with nothing
// selected, day 1 of the target month becomes selected.
func (s State) Navigate(offset int) State {
	next := calendar.NewDate(s.Active.Year, s.Active.Month+time.Month(offset), 1)
	s.Active = next

	day := 1
	if s.Selected != nil {
		day = min(s.Selected.Day, calendar.DaysIn(next.Year, next.Month))
	}
	sel := calendar.Date{Year: next.Year, Month: next.Month, Day: day}
	s.Selected = &sel
	return s
}

// Select selects d. Selecting a day outside the active month also moves the
// active month there so the selection stays visible.
func (s State) Select(d calendar.Date) State {
	s.Selected = &d
	if d.Year != s.Active.Year || d.Month != s.Active.Month {
		s.Active = calendar.NewDate(d.Year, d.Month, 1)
	}
	return s
}

// MoveSelection shifts the selection by days, following it across months.
func (s State) MoveSelection(days int) State {
	base := s.Active
	if s.Selected != nil {
		base = *s.Selected
	}
	return s.Select(base.AddDays(days))
}

// ClearSelection drops the selection.
func (s State) ClearSelection() State {
	s.Selected = nil
	return s
}

// SetInput replaces the pending title text. Input is frozen while a
// submission is pending.
func (s State) SetInput(text string) State {
	if s.Pending {
		return s
	}
	s.Input = text
	return s
}

// CanSubmit reports whether a submit would be accepted right now.
func (s State) CanSubmit() bool {
	return !s.Pending && s.Selected != nil && strings.TrimSpace(s.Input) != ""
}

// Submission is an add-event request captured when the user submits. It is
// applied later, after the simulated latency.
type Submission struct {
	Date  calendar.Date
	Title string
}

// BeginSubmit captures the current input as a Submission and marks the
// state pending. It returns ok=false, leaving s unchanged, when the title
// is blank, nothing is selected or another submission is pending.
func (s State) BeginSubmit() (State, Submission, bool) {
	if !s.CanSubmit() {
		return s, Submission{}, false
	}
	sub := Submission{Date: *s.Selected, Title: strings.TrimSpace(s.Input)}
	s.Pending = true
	return s, sub, true
}

// CompleteSubmit applies sub: the record is appended, the input cleared and
// the pending flag reset.
func (s State) CompleteSubmit(sub Submission, id string) State {
	d := sub.Date
	s.Events, _ = s.Events.Add(&d, sub.Title, id)
	s.Input = ""
	s.Pending = false
	return s
}

// CancelSubmit resets the pending flag without applying anything.
func (s State) CancelSubmit() State {
	s.Pending = false
	return s
}

// AddEvent appends directly, without the simulated delay.
func (s State) AddEvent(d *calendar.Date, title string) (State, bool) {
	next, ok := s.Events.Add(d, title, "")
	if !ok {
		return s, false
	}
	s.Events = next
	return s, true
}

// SelectedEvents returns the records of the selected day, empty when
// nothing is selected.
func (s State) SelectedEvents() []model.EventRecord {
	return s.Events.OnDate(s.Selected)
}
