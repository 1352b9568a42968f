package web

import (
	"errors"
	"net/http"
	"strings"

	"calgrid/internal/calendar"
	"calgrid/internal/ics"
	"calgrid/internal/jump"
	appLog "calgrid/internal/log"
	"calgrid/internal/viewmodel"
)

// gridResponse is the JSON shape of GET /api/grid. Month is zero-based.
type gridResponse struct {
	Year  int                  `json:"year"`
	Month int                  `json:"month"`
	Rows  [][]calendar.DayCell `json:"rows"`
}

// handleGrid returns the bare 6x7 grid of a month.
//
// GET /api/grid?year=2024&month=1
//   - year:  defaults to the active month's year
//   - month: zero-based, any integer (13 is February of year+1)
//
// Months outside calendar.MinYear..MaxYear are rejected with 400.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	active := s.session.State().Active
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), active.Year)
	month := parseIntDefault(q.Get("month"), int(active.Month)-1)
	if !calendar.MonthInRange(year, month) {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}

	g := calendar.BuildGrid(year, month)
	if s.metrics != nil {
		s.metrics.GridBuilds.Inc()
	}

	resp := gridResponse{Year: g.Year, Month: g.MonthIndex(), Rows: make([][]calendar.DayCell, calendar.Rows)}
	for i := range g.Rows {
		resp.Rows[i] = g.Rows[i][:]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.render(r))
}

type navigateRequest struct {
	Offset int `json:"offset"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var ok bool
	s.session.Update(func(st viewmodel.State) viewmodel.State {
		if ok = navigable(st.Active, req.Offset); !ok {
			return st
		}
		return st.Navigate(req.Offset)
	})
	if !ok {
		writeError(w, http.StatusBadRequest, "offset out of range")
		return
	}
	writeJSON(w, http.StatusOK, s.render(r))
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	today := calendar.FromTime(s.now())
	s.session.Update(func(st viewmodel.State) viewmodel.State { return st.Select(today) })
	writeJSON(w, http.StatusOK, s.render(r))
}

// selectRequest selects either an exact day or a free-form phrase.
type selectRequest struct {
	Date string `json:"date,omitempty"`
	Text string `json:"text,omitempty"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		d   calendar.Date
		err error
	)
	switch {
	case req.Date != "":
		d, err = calendar.ParseKey(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	case strings.TrimSpace(req.Text) != "":
		d, err = s.jump.Resolve(req.Text, s.now())
		if errors.Is(err, jump.ErrNoDate) {
			writeError(w, http.StatusUnprocessableEntity, "no date found in text")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !calendar.InRange(d.Year) {
			writeError(w, http.StatusBadRequest, "year out of range")
			return
		}
	default:
		s.session.Update(func(st viewmodel.State) viewmodel.State { return st.ClearSelection() })
		writeJSON(w, http.StatusOK, s.render(r))
		return
	}

	s.session.Update(func(st viewmodel.State) viewmodel.State { return st.Select(d) })
	writeJSON(w, http.StatusOK, s.render(r))
}

// eventsResponse is the JSON shape of GET /api/events.
type eventsResponse struct {
	Date   string                `json:"date"`
	Label  string                `json:"label"`
	Count  string                `json:"count,omitempty"`
	Events []viewmodel.EventView `json:"events"`
}

// handleListEvents lists the records of ?date= (default: the selected day).
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	st := s.session.State()
	f := s.formatter(r)

	var day *calendar.Date
	if key := r.URL.Query().Get("date"); key != "" {
		d, err := calendar.ParseKey(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = &d
	} else {
		day = st.Selected
	}

	resp := eventsResponse{Label: "Select a date", Events: []viewmodel.EventView{}}
	if day != nil {
		resp.Date = day.Key()
		resp.Label = f.LongDate(*day)
		for _, rec := range st.Events.OnDate(day) {
			resp.Events = append(resp.Events, viewmodel.EventView{ID: rec.ID, Title: rec.Title, Imported: rec.Imported()})
		}
		resp.Count = f.EventCount(len(resp.Events))
	}
	writeJSON(w, http.StatusOK, resp)
}

type addEventRequest struct {
	Title string `json:"title"`
	// Date, when set, becomes the selected day if the request is accepted.
	Date string `json:"date,omitempty"`
}

type addEventResponse struct {
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
}

// handleAddEvent queues an add-event request for the selected day. The
// record appears after the configured submit delay.
//
//   - 202: accepted
//   - 409: another request is still pending
//   - 422: blank title or no selected day
//   - 503: the session is shutting down
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var day *calendar.Date
	if req.Date != "" {
		d, err := calendar.ParseKey(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = &d
	}

	outcome := s.session.SubmitFor(day, req.Title)
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(outcome.String()).Inc()
	}

	resp := addEventResponse{Status: outcome.String()}
	if sel := s.session.State().Selected; sel != nil {
		resp.Date = sel.Key()
	}
	switch outcome {
	case viewmodel.Accepted:
		writeJSON(w, http.StatusAccepted, resp)
	case viewmodel.Busy:
		writeJSON(w, http.StatusConflict, resp)
	case viewmodel.Rejected:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	default:
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

type refreshResponse struct {
	Added int    `json:"added"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusNotFound, "no ICS feeds configured")
		return
	}
	added, err := s.refresher.Refresh(r.Context())
	if err != nil {
		appLog.Error("api refresh: some feeds failed", err, "added", added)
		writeJSON(w, http.StatusBadGateway, refreshResponse{Added: added, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Added: added})
}

// handleExport serves every stored record as an iCalendar file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calgrid.ics"`)
	if err := ics.WriteICS(w, s.session.State().Events, s.now()); err != nil {
		appLog.Error("ics export failed", err)
	}
}
