package ics

import (
	"strings"

	"calgrid/internal/calendar"
	"calgrid/internal/model"
)

// untitled stands in for a VEVENT without SUMMARY; records need a title.
const untitled = "(no title)"

// RecordID is the stable record ID of a feed event shown on key. Re-importing
// the same feed yields the same IDs, so Store.Merge skips them.
func RecordID(sourceID, uid, key string) string {
	return "ics-" + sourceID + "-" + uid + "-" + key
}

// Records groups feed events into event records keyed by the canonical key
// of their local start day.
func Records(evs []model.FeedEvent) map[string][]model.EventRecord {
	out := make(map[string][]model.EventRecord)
	for _, ev := range evs {
		if ev.Start.IsZero() {
			continue
		}
		key := calendar.FromTime(ev.Start).Key()
		title := strings.TrimSpace(ev.Summary)
		if title == "" {
			title = untitled
		}
		out[key] = append(out[key], model.EventRecord{
			ID:     RecordID(ev.SourceID, ev.UID, key),
			Title:  title,
			Source: ev.SourceID,
		})
	}
	return out
}
