package viewmodel

import (
	"testing"
	"time"

	"calgrid/internal/calendar"
)

func date(y int, m time.Month, d int) calendar.Date { return calendar.NewDate(y, m, d) }

func TestNewStartsOnToday(t *testing.T) {
	s := New(time.Date(2026, time.October, 19, 8, 0, 0, 0, time.Local))
	if s.Active != date(2026, time.October, 1) {
		t.Errorf("Active = %v", s.Active)
	}
	if s.Selected == nil || *s.Selected != date(2026, time.October, 19) {
		t.Errorf("Selected = %v", s.Selected)
	}
}

func TestNavigateClampsSelectedDay(t *testing.T) {
	tests := []struct {
		name     string
		selected calendar.Date
		offset   int
		want     calendar.Date
	}{
		{"31st into 30-day month", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"31st into leap February", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"31st into common February", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"backwards across year", date(2024, time.January, 15), -1, date(2023, time.December, 15)},
		{"twelve months", date(2024, time.February, 29), 12, date(2025, time.February, 28)},
		{"zero offset keeps day", date(2024, time.May, 7), 0, date(2024, time.May, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{}.Select(tt.selected)
			next := s.Navigate(tt.offset)
			if next.Selected == nil || *next.Selected != tt.want {
				t.Fatalf("Selected = %v, want %v", next.Selected, tt.want)
			}
			if next.Active != calendar.NewDate(tt.want.Year, tt.want.Month, 1) {
				t.Errorf("Active = %v", next.Active)
			}
			// The receiver is untouched.
			if *s.Selected != tt.selected {
				t.Errorf("Navigate mutated the original state")
			}
		})
	}
}

func TestNavigateWithoutSelectionPicksFirst(t *testing.T) {
	s := New(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)).ClearSelection()
	next := s.Navigate(1)
	if next.Selected == nil || *next.Selected != date(2024, time.April, 1) {
		t.Fatalf("Selected = %v, want 2024-04-01", next.Selected)
	}
}

func TestMoveSelectionFollowsMonth(t *testing.T) {
	s := State{}.Select(date(2024, time.January, 30))
	s = s.MoveSelection(7)
	if *s.Selected != date(2024, time.February, 6) || s.Active != date(2024, time.February, 1) {
		t.Fatalf("after +7: selected %v active %v", s.Selected, s.Active)
	}
}

func TestSubmitLifecycle(t *testing.T) {
	s := State{}.Select(date(2024, time.May, 3))

	if _, _, ok := s.SetInput("   ").BeginSubmit(); ok {
		t.Fatal("whitespace title accepted")
	}
	if _, _, ok := s.ClearSelection().SetInput("Standup").BeginSubmit(); ok {
		t.Fatal("submit without a selection accepted")
	}

	s = s.SetInput("  Standup ")
	pending, sub, ok := s.BeginSubmit()
	if !ok || !pending.Pending || sub.Title != "Standup" {
		t.Fatalf("BeginSubmit = %+v, %+v, %v", pending, sub, ok)
	}
	if _, _, ok := pending.BeginSubmit(); ok {
		t.Fatal("second submit while pending accepted")
	}
	if frozen := pending.SetInput("changed"); frozen.Input != "  Standup " {
		t.Errorf("input changed while pending: %q", frozen.Input)
	}

	done := pending.CompleteSubmit(sub, "id-1")
	if done.Pending || done.Input != "" {
		t.Errorf("after completion: pending=%v input=%q", done.Pending, done.Input)
	}
	recs := done.SelectedEvents()
	if len(recs) != 1 || recs[0].Title != "Standup" || recs[0].ID != "id-1" {
		t.Fatalf("SelectedEvents = %+v", recs)
	}
	if n := len(done.Select(date(2024, time.May, 4)).SelectedEvents()); n != 0 {
		t.Errorf("other day has %d events", n)
	}
}
