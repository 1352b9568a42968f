package model

import "time"

// EventRecord is a single titled entry attached to one calendar day.
// Records are append-only: never edited or deleted once stored.
type EventRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Source is empty for records entered by the user and holds the feed ID
	// for records imported from an ICS subscription.
	Source string `json:"source,omitempty"`
}

// Imported returns true if the record came from a feed.
func (r EventRecord) Imported() bool { return r.Source != "" }

// FeedEvent is a VEVENT reduced to what the calendar can show: a title on
// the local day of its start.
type FeedEvent struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	Summary string
	AllDay  bool

	// Recurring is set when the VEVENT carries an RRULE. Only its first
	// instance (DTSTART) is shown.
	Recurring bool

	// Start in the configured display timezone.
	Start time.Time
}
