package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"calgrid/internal/calendar"
	appLog "calgrid/internal/log"
	"calgrid/internal/viewmodel"
)

//go:embed templates/calendar.html
var templatesFS embed.FS

var calendarPage = template.Must(template.ParseFS(templatesFS, "templates/calendar.html"))

type pageData struct {
	Lang string
	// LangParam is the explicit ?lang= of the request, carried through the
	// navigation forms.
	LangParam string
	View      viewmodel.View
}

// handleCalendarPage renders the month page. It never changes the session;
// query parameters only shape what is shown:
//
//	GET /calendar?offset=-1         the month before the active one
//	GET /calendar?select=2024-02-05 as if that day were selected
//
// Navigation goes through the POST form handlers below, which redirect
// back here. Once rendered, the root element carries data-ready="true" so
// headless capture knows the page is complete.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	st := s.session.State()
	q := r.URL.Query()
	if off := parseIntDefault(q.Get("offset"), 0); off != 0 {
		if !navigable(st.Active, off) {
			http.Error(w, "offset out of range", http.StatusBadRequest)
			return
		}
		st = st.Navigate(off)
	}
	if key := q.Get("select"); key != "" {
		d, err := calendar.ParseKey(key)
		if err != nil {
			http.Error(w, "select must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		st = st.Select(d)
	}

	f := s.formatter(r)
	data := pageData{Lang: f.Tag().String(), LangParam: q.Get("lang"), View: s.renderState(r, st)}

	var buf bytes.Buffer
	if err := calendarPage.Execute(&buf, data); err != nil {
		appLog.Error("calendar page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handlePageNavigate moves the active month by the form's offset.
//
//	POST /calendar/navigate  offset=-1
func (s *Server) handlePageNavigate(w http.ResponseWriter, r *http.Request) {
	off, err := strconv.Atoi(r.PostFormValue("offset"))
	if err != nil {
		http.Error(w, "offset must be an integer", http.StatusBadRequest)
		return
	}
	var ok bool
	s.session.Update(func(st viewmodel.State) viewmodel.State {
		if ok = navigable(st.Active, off); !ok {
			return st
		}
		return st.Navigate(off)
	})
	if !ok {
		http.Error(w, "offset out of range", http.StatusBadRequest)
		return
	}
	s.redirectToPage(w, r)
}

// handlePageSelect selects the form's date, or clears the selection when
// it is empty.
//
//	POST /calendar/select  date=2024-02-05
func (s *Server) handlePageSelect(w http.ResponseWriter, r *http.Request) {
	key := r.PostFormValue("date")
	if key == "" {
		s.session.Update(func(st viewmodel.State) viewmodel.State { return st.ClearSelection() })
		s.redirectToPage(w, r)
		return
	}
	d, err := calendar.ParseKey(key)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	s.session.Update(func(st viewmodel.State) viewmodel.State { return st.Select(d) })
	s.redirectToPage(w, r)
}

// redirectToPage answers a form POST with 303 to the page, keeping ?lang=.
func (s *Server) redirectToPage(w http.ResponseWriter, r *http.Request) {
	target := "/calendar"
	if lang := r.PostFormValue("lang"); lang != "" {
		target += "?" + url.Values{"lang": {lang}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
