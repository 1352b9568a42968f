package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"calgrid/internal/auth"
	"calgrid/internal/clock"
	"calgrid/internal/config"
	"calgrid/internal/metrics"
	"calgrid/internal/viewmodel"
)

type fakeRefresher struct {
	added int
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) (int, error) {
	f.calls++
	return f.added, f.err
}

type testEnv struct {
	srv     *httptest.Server
	clock   *clock.Fake
	session *viewmodel.Session
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Timezone = "UTC"
	}
	fc := clock.NewFake(time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC))
	sess := viewmodel.NewSession(fc)
	m := metrics.New()
	s := NewServer(cfg, sess, append([]Option{WithMetrics(m)}, opts...)...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		sess.Close()
	})
	return &testEnv{srv: srv, clock: fc, session: sess, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.srv.Client().PostForm(e.srv.URL+path, form)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("health = %d %q", resp.StatusCode, body)
	}
}

func TestGridEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodGet, "/api/grid?year=2024&month=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	g := decode[gridResponse](t, body)
	if g.Year != 2024 || g.Month != 1 || len(g.Rows) != 6 || len(g.Rows[0]) != 7 {
		t.Fatalf("grid shape = %d/%d %dx%d", g.Year, g.Month, len(g.Rows), len(g.Rows[0]))
	}
	// February 2024 starts on a Thursday.
	first := g.Rows[0][4]
	if first.Key != "2024-02-01" || !first.InCurrentMonth || first.Date == nil {
		t.Errorf("Rows[0][4] = %+v", first)
	}
	if lead := g.Rows[0][0]; lead.Key != "prev-2024-01-28" || lead.Label != "" {
		t.Errorf("Rows[0][0] = %+v", lead)
	}

	// Out-of-range months roll into adjacent years.
	_, body = e.do(t, http.MethodGet, "/api/grid?year=2024&month=-1", "")
	g = decode[gridResponse](t, body)
	if g.Year != 2023 || g.Month != 11 {
		t.Errorf("month=-1 -> %d/%d, want 2023/11", g.Year, g.Month)
	}

	// Without parameters the active month is used.
	_, body = e.do(t, http.MethodGet, "/api/grid", "")
	g = decode[gridResponse](t, body)
	if g.Year != 2024 || g.Month != 0 {
		t.Errorf("default grid = %d/%d", g.Year, g.Month)
	}
}

func TestStateAndNavigateClamp(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(t, http.MethodGet, "/api/state", "")
	v := decode[viewmodel.View](t, body)
	if v.MonthLabel != "January 2024" || v.SelectedKey != "2024-01-31" {
		t.Fatalf("initial view = %q %q", v.MonthLabel, v.SelectedKey)
	}

	resp, body := e.do(t, http.MethodPost, "/api/navigate", `{"offset":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("navigate = %d %s", resp.StatusCode, body)
	}
	v = decode[viewmodel.View](t, body)
	if v.MonthLabel != "February 2024" || v.SelectedKey != "2024-02-29" {
		t.Errorf("after navigate: %q %q, want clamp to Feb 29", v.MonthLabel, v.SelectedKey)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/navigate", `{"offset":"x"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d", resp.StatusCode)
	}
}

func TestSelect(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(t, http.MethodPost, "/api/select", `{"date":"2024-03-05"}`)
	v := decode[viewmodel.View](t, body)
	if v.SelectedKey != "2024-03-05" || v.MonthLabel != "March 2024" {
		t.Errorf("select date: %q %q", v.SelectedKey, v.MonthLabel)
	}

	_, body = e.do(t, http.MethodPost, "/api/select", `{"text":"tomorrow"}`)
	v = decode[viewmodel.View](t, body)
	if v.SelectedKey != "2024-02-01" {
		t.Errorf("select tomorrow = %q", v.SelectedKey)
	}

	resp, _ := e.do(t, http.MethodPost, "/api/select", `{"text":"lorem ipsum"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unparseable text status = %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPost, "/api/select", `{"date":"2024-02-30"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid date status = %d", resp.StatusCode)
	}

	_, body = e.do(t, http.MethodPost, "/api/select", `{}`)
	v = decode[viewmodel.View](t, body)
	if v.SelectedKey != "" || v.SelectedLabel != "Select a date" {
		t.Errorf("clear selection: %q %q", v.SelectedKey, v.SelectedLabel)
	}

	_, body = e.do(t, http.MethodPost, "/api/today", "")
	v = decode[viewmodel.View](t, body)
	if v.SelectedKey != "2024-01-31" {
		t.Errorf("today = %q", v.SelectedKey)
	}
}

func TestAddEventLifecycle(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodPost, "/api/events", `{"title":"  Standup  ","date":"2024-01-15"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("add = %d %s", resp.StatusCode, body)
	}
	if got := decode[addEventResponse](t, body); got.Status != "accepted" || got.Date != "2024-01-15" {
		t.Errorf("response = %+v", got)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/events", `{"title":"Second"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second add while pending = %d, want 409", resp.StatusCode)
	}

	_, body = e.do(t, http.MethodGet, "/api/state", "")
	if v := decode[viewmodel.View](t, body); !v.Pending || v.CanSubmit {
		t.Errorf("pending=%v can_submit=%v", v.Pending, v.CanSubmit)
	}

	e.clock.Advance(viewmodel.DefaultSubmitDelay)

	_, body = e.do(t, http.MethodGet, "/api/events?date=2024-01-15", "")
	ev := decode[eventsResponse](t, body)
	if len(ev.Events) != 1 || ev.Events[0].Title != "Standup" || ev.Count != "1 event" {
		t.Fatalf("events = %+v", ev)
	}
	if ev.Label != "Monday, January 15, 2024" {
		t.Errorf("label = %q", ev.Label)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/events", `{"title":"   "}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("blank title = %d, want 422", resp.StatusCode)
	}

	_, body = e.do(t, http.MethodGet, "/api/state", "")
	v := decode[viewmodel.View](t, body)
	for _, row := range v.Rows {
		for _, c := range row {
			if c.Key == "2024-01-15" && (c.EventCount != 1 || c.Indicator != "1" || c.AccessibleLabel != "Monday, January 15, 2024. 1 event") {
				t.Errorf("cell = %+v", c)
			}
		}
	}
}

func TestAddEventAfterClose(t *testing.T) {
	e := newTestEnv(t, nil)
	e.session.Close()
	resp, _ := e.do(t, http.MethodPost, "/api/events", `{"title":"late"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestListEventsDefaults(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(t, http.MethodGet, "/api/events", "")
	ev := decode[eventsResponse](t, body)
	if ev.Date != "2024-01-31" || ev.Events == nil || len(ev.Events) != 0 || ev.Count != "" {
		t.Errorf("default events = %+v", ev)
	}

	resp, _ := e.do(t, http.MethodGet, "/api/events?date=nope", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad date = %d", resp.StatusCode)
	}
}

func TestExportICS(t *testing.T) {
	e := newTestEnv(t, nil)
	e.do(t, http.MethodPost, "/api/events", `{"title":"Retro","date":"2024-01-19"}`)
	e.clock.Advance(viewmodel.DefaultSubmitDelay)

	resp, body := e.do(t, http.MethodGet, "/calendar.ics", "")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	out := string(body)
	if !strings.Contains(out, "SUMMARY:Retro") || !strings.Contains(out, "DTSTART;VALUE=DATE:20240119") {
		t.Errorf("export = %s", out)
	}
}

func TestCalendarPage(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.do(t, http.MethodGet, "/calendar?offset=1&lang=de", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{`data-ready="true"`, "Februar 2024", `lang="de"`, `aria-selected="true"`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if n := strings.Count(page, "<td"); n != 42 {
		t.Errorf("page has %d cells, want 42", n)
	}

	resp, _ = e.do(t, http.MethodGet, "/", "")
	if resp.Request.URL.Path != "/calendar" {
		t.Errorf("root redirected to %q", resp.Request.URL.Path)
	}
}

func TestCalendarPageDoesNotChangeState(t *testing.T) {
	e := newTestEnv(t, nil)
	before := e.session.State()

	for i := 0; i < 3; i++ {
		resp, body := e.do(t, http.MethodGet, "/calendar?offset=-1", "")
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "December 2023") {
			t.Fatalf("GET %d: status %d", i, resp.StatusCode)
		}
	}
	_, body := e.do(t, http.MethodGet, "/calendar?select=2030-06-15", "")
	if !strings.Contains(string(body), "June 2030") {
		t.Error("select parameter should shape the rendered month")
	}

	after := e.session.State()
	if after.Active != before.Active || after.Selected.Key() != before.Selected.Key() {
		t.Errorf("GET changed the session: active %s -> %s, selected %s -> %s",
			before.Active.Key(), after.Active.Key(), before.Selected.Key(), after.Selected.Key())
	}

	for _, q := range []string{"offset=99999999999999", "select=2024-13-01"} {
		if resp, _ := e.do(t, http.MethodGet, "/calendar?"+q, ""); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestCalendarPageForms(t *testing.T) {
	e := newTestEnv(t, nil)

	resp := e.postForm(t, "/calendar/navigate", url.Values{"offset": {"-1"}, "lang": {"de"}})
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/calendar" || resp.Request.URL.RawQuery != "lang=de" {
		t.Fatalf("navigate landed on %d %s", resp.StatusCode, resp.Request.URL)
	}
	if st := e.session.State(); st.Active.Key() != "2023-12-01" || st.Selected.Key() != "2023-12-31" {
		t.Errorf("after navigate: active %s selected %s", st.Active.Key(), st.Selected.Key())
	}

	e.postForm(t, "/calendar/select", url.Values{"date": {"2024-03-05"}})
	if st := e.session.State(); st.Selected.Key() != "2024-03-05" || st.Active.Key() != "2024-03-01" {
		t.Errorf("after select: active %s selected %v", st.Active.Key(), st.Selected)
	}

	e.postForm(t, "/calendar/select", url.Values{})
	if e.session.State().Selected != nil {
		t.Error("empty date should clear the selection")
	}

	for path, form := range map[string]url.Values{
		"/calendar/navigate": {"offset": {"x"}},
		"/calendar/select":   {"date": {"tomorrow"}},
	} {
		if resp := e.postForm(t, path, form); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s %v = %d, want 400", path, form, resp.StatusCode)
		}
	}
}

func TestYearRange(t *testing.T) {
	e := newTestEnv(t, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"year=1099511627776&month=1", http.StatusBadRequest},
		{"year=300000000000&month=1", http.StatusBadRequest},
		{"year=1000000000&month=12", http.StatusBadRequest},
		{"year=-1000000000&month=-1", http.StatusBadRequest},
		{"year=2024&month=1099511627776", http.StatusBadRequest},
		{"year=1000000000&month=11", http.StatusOK},
	}
	for _, tt := range tests {
		resp, body := e.do(t, http.MethodGet, "/api/grid?"+tt.query, "")
		if resp.StatusCode != tt.want {
			t.Errorf("grid %s = %d %s, want %d", tt.query, resp.StatusCode, body, tt.want)
		}
	}

	_, body := e.do(t, http.MethodGet, "/api/grid?year=1000000000&month=1", "")
	g := decode[gridResponse](t, body)
	current := 0
	for _, row := range g.Rows {
		for _, c := range row {
			if c.InCurrentMonth {
				current++
			}
		}
	}
	if g.Year != 1000000000 || g.Month != 1 || current != 29 {
		t.Errorf("grid = %d/%d with %d days", g.Year, g.Month, current)
	}

	before := e.session.State().Active
	resp, _ := e.do(t, http.MethodPost, "/api/navigate", `{"offset":9223372036854775807}`)
	if resp.StatusCode != http.StatusBadRequest || e.session.State().Active != before {
		t.Errorf("huge offset = %d, active %s", resp.StatusCode, e.session.State().Active.Key())
	}
	resp, _ = e.do(t, http.MethodPost, "/api/select", `{"date":"+1000000001-01-01"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("select beyond range = %d", resp.StatusCode)
	}
}

func TestRejectedAddKeepsSelection(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, _ := e.do(t, http.MethodPost, "/api/events", `{"title":"  ","date":"2030-06-15"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("blank title = %d, want 422", resp.StatusCode)
	}
	st := e.session.State()
	if st.Selected.Key() != "2024-01-31" || st.Active.Key() != "2024-01-01" {
		t.Errorf("rejected add moved state: active %s selected %s", st.Active.Key(), st.Selected.Key())
	}
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, _ := e.do(t, http.MethodPost, "/api/refresh", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("refresh without feeds = %d", resp.StatusCode)
	}

	ok := &fakeRefresher{added: 3}
	e = newTestEnv(t, nil, WithRefresher(ok))
	resp, body := e.do(t, http.MethodPost, "/api/refresh", "")
	if resp.StatusCode != http.StatusOK || decode[refreshResponse](t, body).Added != 3 {
		t.Errorf("refresh = %d %s", resp.StatusCode, body)
	}

	bad := &fakeRefresher{added: 1, err: errors.New("feed down")}
	e = newTestEnv(t, nil, WithRefresher(bad))
	resp, body = e.do(t, http.MethodPost, "/api/refresh", "")
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(body), "feed down") {
		t.Errorf("failed refresh = %d %s", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	e.do(t, http.MethodGet, "/api/state", "")
	e.do(t, http.MethodPost, "/api/events", `{"title":""}`)

	_, body := e.do(t, http.MethodGet, "/metrics", "")
	out := string(body)
	for _, want := range []string{
		`calgrid_http_requests_total{code="200",route="GET /api/state"} 1`,
		`calgrid_submissions_total{outcome="rejected"} 1`,
		"calgrid_grid_builds_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", PasswordHash: hash}
	e := newTestEnv(t, cfg)

	resp, _ := e.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health with auth = %d", resp.StatusCode)
	}

	for _, path := range []string{"/api/state", "/calendar", "/metrics", "/calendar.ics"} {
		resp, _ := e.do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without credentials = %d", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/state", nil)
	req.SetBasicAuth("admin", "s3cret")
	r2, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	r2.Body.Close()
	if r2.StatusCode != http.StatusOK {
		t.Errorf("with credentials = %d", r2.StatusCode)
	}
}
