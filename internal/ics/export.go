package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"calgrid/internal/calendar"
	"calgrid/internal/events"
	appLog "calgrid/internal/log"
)

const productID = "-//calgrid//calendar export//EN"

// Export builds a VCALENDAR with one all-day VEVENT per stored record.
// stamp becomes DTSTAMP of every event.
func Export(store events.Store, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, key := range store.Keys() {
		day, err := calendar.ParseKey(key)
		if err != nil {
			appLog.Error("ics export: skipping unparseable date key", err, "key", key)
			continue
		}
		start := day.Time(time.UTC)
		end := day.AddDays(1).Time(time.UTC)

		for _, rec := range store.On(key) {
			ev := cal.AddEvent(rec.ID)
			ev.SetDtStampTime(stamp)
			ev.SetSummary(rec.Title)
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(end)
			if rec.Imported() {
				ev.SetDescription("Imported from " + rec.Source)
			}
		}
	}
	return cal
}

// WriteICS serializes Export(store, stamp) to w.
func WriteICS(w io.Writer, store events.Store, stamp time.Time) error {
	_, err := io.WriteString(w, Export(store, stamp).Serialize())
	return err
}
