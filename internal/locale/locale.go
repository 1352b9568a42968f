// Package locale formats the few human-readable labels the calendar shows:
// month headings, weekday headers, long dates and event counts.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"calgrid/internal/calendar"
)

type names struct {
	months       [12]string
	weekdays     [7]string // Sunday first
	weekdaysAbbr [7]string
	// monthLabel formats "<month> <year>".
	monthLabel func(month string, year int) string
	// longDate formats weekday, month, day, year.
	longDate func(weekday, month string, day, year int) string
	// events formats an event count > 0.
	events func(n int) string
}

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.German,
	language.French,
	language.Spanish,
	language.Korean,
}

var matcher = language.NewMatcher(supported)

var tables = map[language.Base]names{
	base(language.English): {
		months:       [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		weekdays:     [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		weekdaysAbbr: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		monthLabel:   func(m string, y int) string { return fmt.Sprintf("%s %d", m, y) },
		longDate: func(w, m string, d, y int) string {
			return fmt.Sprintf("%s, %s %d, %d", w, m, d, y)
		},
		events: func(n int) string {
			if n == 1 {
				return "1 event"
			}
			return fmt.Sprintf("%d events", n)
		},
	},
	base(language.German): {
		months:       [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
		weekdays:     [7]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		weekdaysAbbr: [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
		monthLabel:   func(m string, y int) string { return fmt.Sprintf("%s %d", m, y) },
		longDate: func(w, m string, d, y int) string {
			return fmt.Sprintf("%s, %d. %s %d", w, d, m, y)
		},
		events: func(n int) string {
			if n == 1 {
				return "1 Termin"
			}
			return fmt.Sprintf("%d Termine", n)
		},
	},
	base(language.French): {
		months:       [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
		weekdays:     [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
		weekdaysAbbr: [7]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."},
		monthLabel:   func(m string, y int) string { return fmt.Sprintf("%s %d", m, y) },
		longDate: func(w, m string, d, y int) string {
			return fmt.Sprintf("%s %d %s %d", w, d, m, y)
		},
		events: func(n int) string {
			if n == 1 {
				return "1 événement"
			}
			return fmt.Sprintf("%d événements", n)
		},
	},
	base(language.Spanish): {
		months:       [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		weekdays:     [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
		weekdaysAbbr: [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
		monthLabel:   func(m string, y int) string { return fmt.Sprintf("%s de %d", m, y) },
		longDate: func(w, m string, d, y int) string {
			return fmt.Sprintf("%s, %d de %s de %d", w, d, m, y)
		},
		events: func(n int) string {
			if n == 1 {
				return "1 evento"
			}
			return fmt.Sprintf("%d eventos", n)
		},
	},
	base(language.Korean): {
		months:       [12]string{"1월", "2월", "3월", "4월", "5월", "6월", "7월", "8월", "9월", "10월", "11월", "12월"},
		weekdays:     [7]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"},
		weekdaysAbbr: [7]string{"일", "월", "화", "수", "목", "금", "토"},
		monthLabel:   func(m string, y int) string { return fmt.Sprintf("%d년 %s", y, m) },
		longDate: func(w, m string, d, y int) string {
			return fmt.Sprintf("%d년 %s %d일 %s", y, m, d, w)
		},
		events: func(n int) string { return fmt.Sprintf("일정 %d개", n) },
	},
}

func base(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// Formatter renders labels for one matched locale.
type Formatter struct {
	tag   language.Tag
	names names
	title cases.Caser
}

// New matches the requested BCP 47 tags (e.g. "de-AT", "en") against the
// supported locales. Unknown or empty input falls back to English.
func New(requested ...string) *Formatter {
	var tags []language.Tag
	for _, r := range requested {
		if strings.TrimSpace(r) == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(r)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, _ := matcher.Match(tags...)
	tag := supported[idx]
	return &Formatter{
		tag:   tag,
		names: tables[base(tag)],
		title: cases.Title(tag, cases.NoLower),
	}
}

// Tag returns the matched locale.
func (f *Formatter) Tag() language.Tag { return f.tag }

// MonthLabel returns the heading for the month of d, e.g. "October 2026".
// The first letter is capitalized since it starts a heading.
func (f *Formatter) MonthLabel(d calendar.Date) string {
	label := f.names.monthLabel(f.names.months[d.Month-1], d.Year)
	return f.capitalize(label)
}

// LongDate returns e.g. "Monday, October 19, 2026".
func (f *Formatter) LongDate(d calendar.Date) string {
	return f.names.longDate(f.names.weekdays[d.Weekday()], f.names.months[d.Month-1], d.Day, d.Year)
}

// WeekdayHeaders returns abbreviated weekday names, Sunday first.
func (f *Formatter) WeekdayHeaders() []string {
	out := make([]string, 7)
	copy(out, f.names.weekdaysAbbr[:])
	return out
}

// EventCount returns "" for zero and e.g. "2 events" otherwise.
func (f *Formatter) EventCount(n int) string {
	if n <= 0 {
		return ""
	}
	return f.names.events(n)
}

// CellLabel is the accessible label of a day: the long date followed by
// the event count when there is one.
func (f *Formatter) CellLabel(d calendar.Date, events int) string {
	label := f.LongDate(d)
	if c := f.EventCount(events); c != "" {
		label += ". " + c
	}
	return label
}

func (f *Formatter) capitalize(s string) string {
	first, rest, found := strings.Cut(s, " ")
	if !found {
		return f.title.String(s)
	}
	return f.title.String(first) + " " + rest
}
