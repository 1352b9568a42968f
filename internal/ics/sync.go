package ics

import (
	"context"
	"errors"
	"sync"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/viewmodel"
)

// Syncer imports the configured feeds into a session's event store.
type Syncer struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
	session *viewmodel.Session
	metrics *metrics.Metrics

	mu sync.Mutex // one refresh at a time
}

// NewSyncer wires a fetcher to a session. m may be nil.
func NewSyncer(f *Fetcher, sources []Source, loc *time.Location, s *viewmodel.Session, m *metrics.Metrics) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	return &Syncer{fetcher: f, sources: sources, loc: loc, session: s, metrics: m}
}

// Sources returns the subscribed feeds.
func (s *Syncer) Sources() []Source { return s.sources }

// Refresh fetches and parses every feed and merges new records. Feeds that
// fail are skipped; the joined error describes them. It returns the number
// of records added.
func (s *Syncer) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	results, errs := s.fetcher.FetchAll(ctx, s.sources)

	added := 0
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body, s.loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recurring := 0
		for _, ev := range evs {
			if ev.Recurring {
				recurring++
			}
		}
		if recurring > 0 {
			appLog.Debug("ics recurring events imported as single day", "id", res.Source.ID, "count", recurring)
		}

		recs := Records(evs)
		var n int
		st := s.session.Update(func(st viewmodel.State) viewmodel.State {
			st.Events, n = st.Events.Merge(recs)
			return st
		})
		added += n
		if s.metrics != nil {
			s.metrics.EventsAdded.WithLabelValues("feed").Add(float64(n))
			s.metrics.StoredEvents.Set(float64(st.Events.Len()))
		}
	}

	err := errors.Join(errs...)
	if s.metrics != nil {
		s.metrics.ObserveRefresh(time.Since(start), err)
	}
	appLog.Info("ics refresh completed", "sources", len(s.sources), "added", added, "failed", len(errs))
	return added, err
}
