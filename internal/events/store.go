// Package events holds the append-only per-day event registry.
package events

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"calgrid/internal/calendar"
	"calgrid/internal/model"
)

// Store maps canonical date keys to ordered event records. The zero value
// is an empty store. Stores are immutable: Add and Merge return a new Store
// and leave the receiver untouched, so a Store can be shared freely.
//
// Every key present maps to a non-empty slice.
type Store struct {
	byKey map[string][]model.EventRecord
	ids   map[string]struct{}
}

// NewID returns a record ID for key: "<key>-<uuid>".
func NewID(key string) string {
	return key + "-" + uuid.NewString()
}

// Add appends a record titled strings.TrimSpace(title) to date. It is a
// no-op returning (s, false) when date is nil or the trimmed title is
// empty, or when id is already stored. An empty id is replaced by NewID.
func (s Store) Add(date *calendar.Date, title, id string) (Store, bool) {
	if date == nil {
		return s, false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return s, false
	}
	key := date.Key()
	if id == "" {
		id = NewID(key)
	} else if s.Has(id) {
		return s, false
	}
	return s.with(key, []model.EventRecord{{ID: id, Title: title}}), true
}

// Merge appends records grouped by key, skipping records whose ID is
// already present or whose title is blank. It reports how many were added.
func (s Store) Merge(byKey map[string][]model.EventRecord) (Store, int) {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	out := s
	added := 0
	for _, k := range keys {
		var fresh []model.EventRecord
		for _, r := range byKey[k] {
			r.Title = strings.TrimSpace(r.Title)
			if r.ID == "" || r.Title == "" {
				continue
			}
			if s.Has(r.ID) {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			fresh = append(fresh, r)
		}
		if len(fresh) == 0 {
			continue
		}
		out = out.with(k, fresh)
		added += len(fresh)
	}
	return out, added
}

// with returns a copy of s with recs appended under key. Only the touched
// slice is copied; other slices are shared since they are never mutated.
func (s Store) with(key string, recs []model.EventRecord) Store {
	byKey := make(map[string][]model.EventRecord, len(s.byKey)+1)
	for k, v := range s.byKey {
		byKey[k] = v
	}
	cur := s.byKey[key]
	next := make([]model.EventRecord, 0, len(cur)+len(recs))
	next = append(next, cur...)
	next = append(next, recs...)
	byKey[key] = next

	ids := make(map[string]struct{}, len(s.ids)+len(recs))
	for id := range s.ids {
		ids[id] = struct{}{}
	}
	for _, r := range recs {
		ids[r.ID] = struct{}{}
	}
	return Store{byKey: byKey, ids: ids}
}

// On returns the records of key in insertion order. Missing keys yield an
// empty, non-nil slice. The result is a copy.
func (s Store) On(key string) []model.EventRecord {
	recs := s.byKey[key]
	out := make([]model.EventRecord, len(recs))
	copy(out, recs)
	return out
}

// OnDate is On(d.Key()) with a nil-safe date.
func (s Store) OnDate(d *calendar.Date) []model.EventRecord {
	if d == nil {
		return []model.EventRecord{}
	}
	return s.On(d.Key())
}

// Count returns the number of records for key.
func (s Store) Count(key string) int { return len(s.byKey[key]) }

// Has reports whether a record with id exists.
func (s Store) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Keys returns the populated date keys in ascending order.
func (s Store) Keys() []string {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of records.
func (s Store) Len() int { return len(s.ids) }
