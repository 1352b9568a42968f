package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// ParseICS parses a single ICS payload into feed events placed in loc.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling to
//     construct proper time.Time values for timed events.
//   - All-day events (VALUE=DATE, or a DTSTART without a time part) keep
//     their calendar day regardless of loc.
//   - Recurring events are not expanded; only DTSTART is kept.
//   - Overrides (RECURRENCE-ID) are skipped since their base is not expanded.
func ParseICS(src Source, body []byte, loc *time.Location) ([]model.FeedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	events := make([]model.FeedEvent, 0)
	skipped := 0

	for _, comp := range cal.Events() {
		if p := comp.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
			skipped++
			continue
		}
		ev, perr := parseVEvent(src, comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			skipped++
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events), "skipped", skipped)
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.FeedEvent, error) {
	var out model.FeedEvent
	out.SourceID = src.ID

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}

	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil || dtStartProp.Value == "" {
		return out, errors.New("missing DTSTART")
	}

	// VALUE=DATE or no 'T' in the value -> all-day
	allDay := !strings.Contains(dtStartProp.Value, "T")
	if vs, ok := dtStartProp.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	out.AllDay = allDay

	if allDay {
		day, err := parseDate(dtStartProp.Value, loc)
		if err != nil {
			return out, fmt.Errorf("DTSTART %q: %w", dtStartProp.Value, err)
		}
		out.Start = day
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("DTSTART %q: %w", dtStartProp.Value, err)
		}
		out.Start = start.In(loc)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		out.Recurring = true
	}

	return out, nil
}

// parseDate reads the YYYYMMDD prefix of an ICS DATE value as midnight in loc.
func parseDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, errors.New("short date value")
	}
	return time.ParseInLocation("20060102", v[:8], loc)
}
