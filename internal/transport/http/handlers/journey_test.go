package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/app/server"
	"pulse/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type storedEntry struct {
	ID      int64   `json:"id"`
	SkillID int64   `json:"skillId"`
	Rating  float64 `json:"rating"`
}

// fakePulse is an in-memory stand-in for the Employee Pulse REST backend.
type fakePulse struct {
	mu      sync.Mutex
	nextID  int64
	reviews map[int64][]storedEntry
	orgs    []string
}

func newFakePulse(t *testing.T) (*fakePulse, *httptest.Server) {
	f := &fakePulse{nextID: 500, reviews: map[int64][]storedEntry{
		12: {{ID: 1, SkillID: 1, Rating: 3}, {ID: 2, SkillID: 2, Rating: 4}},
	}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.orgs = append(f.orgs, req.Header.Get("X-Organization-Id"))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/organizations/{org}/departments", f.json(`[{"id":2,"name":"Engineering"},{"id":3,"name":"Sales"}]`))
	r.Get("/organizations/{org}/employees", f.json(`{"content":[
		{"id":17,"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","departmentId":2,"hireDate":"2020-03-01"},
		{"id":18,"firstName":"Alan","lastName":"Turing","email":"alan@example.com","departmentId":2,"hireDate":"2022-06-15"}
	]}`))
	r.Get("/skills/organization/{org}", f.json(`[{"id":4,"name":"Go"},{"id":9,"name":"SQL"}]`))
	r.Get("/skills/department/{dept}", f.json(`[{"id":4,"name":"Go"}]`))
	r.Get("/skills/search", f.json(`[{"id":9,"name":"SQL"},{"id":4,"name":"Go"}]`))
	r.Get("/occupations/organization/{org}", f.json(`[{"id":1,"title":"Engineer"}]`))
	r.Get("/employees/{id}/skill-entries/latest", f.json(`[{"skillId":4,"skillName":"Go"}]`))
	r.Get("/reports/employee/{id}", f.json(`{"employeeId":17,"firstName":"Ada","lastName":"Lovelace","skills":[
		{"skillId":4,"skillName":"Go","periods":[
			{"periodStart":"2025-04-01","avgRating":4.25,"minRating":3,"maxRating":5},
			{"periodStart":"2025-01-01","avgRating":"3.5"}
		]}
	]}`))
	r.Get("/reports/employees/{id}/skills/timeline", f.json(`{"employeeId":17,"firstName":"Ada","lastName":"Lovelace","skills":[
		{"skillId":4,"skillName":"Go","timeline":[{"date":"2025-02-03","rating":4}]}
	]}`))
	r.Get("/reports/org/{org}", f.json(`{"organizationName":"Acme","overallRatings":[{"periodStart":"2025-03-01","avgOverallRating":3.9}]}`))
	r.Get("/reports/organizations/{org}/skills/timeline", f.json(`{"organizationName":"Acme","skills":[]}`))
	r.Get("/performance-reviews/{id}", f.getReview)
	r.Post("/performance-reviews", f.createReview)
	r.Put("/performance-reviews/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Delete("/performance-reviews/{id}/skill-entries/{entry}", f.deleteEntry)
	r.Post("/performance-reviews/{id}/skill-entries/bulk", f.addEntries)
	r.Post("/performance-reviews/generate-skill-entries", f.json(`[{"skillId":9,"skillName":"SQL","rating":3}]`))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePulse) json(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func urlID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id
}

func (f *fakePulse) getReview(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	entries, ok := f.reviews[urlID(r, "id")]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Review not found"}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": urlID(r, "id"), "skillEntryDtos": entries})
}

func (f *fakePulse) createReview(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.reviews[id] = []storedEntry{}
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{"performanceReviewId": id})
}

func (f *fakePulse) deleteEntry(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, entryID := urlID(r, "id"), urlID(r, "entry")
	kept := f.reviews[id][:0]
	for _, e := range f.reviews[id] {
		if e.ID != entryID {
			kept = append(kept, e)
		}
	}
	f.reviews[id] = kept
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakePulse) addEntries(w http.ResponseWriter, r *http.Request) {
	var entries []storedEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := urlID(r, "id")
	for _, e := range entries {
		f.nextID++
		e.ID = f.nextID
		f.reviews[id] = append(f.reviews[id], e)
	}
	w.WriteHeader(http.StatusCreated)
}

func (f *fakePulse) organizations() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	for _, org := range f.orgs {
		seen[org] = true
	}
	return seen
}

func (f *fakePulse) entries(id int64) []storedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]storedEntry(nil), f.reviews[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	for i := range out {
		out[i].ID = 0
	}
	return out
}

type gateway struct {
	t       *testing.T
	url     string
	client  *http.Client
	session string
}

func newGateway(t *testing.T) (*gateway, *fakePulse) {
	t.Helper()
	fake, backendSrv := newFakePulse(t)

	cfg := config.Config{
		Addr:                 ":0",
		Environment:          "test",
		BackendBaseURL:       backendSrv.URL,
		BackendTimeout:       5 * time.Second,
		AlertTTL:             time.Minute,
		SearchDebounce:       0,
		DefaultReportYear:    2025,
		SessionIdleTimeout:   time.Hour,
		SessionSweepInterval: time.Hour,
		MaxBodyBytes:         1 << 20,
		GenerateRateLimit:    "2-M",
		CORSAllowedOrigins:   []string{"http://localhost:5173"},
		MetricsEnabled:       true,
		MetricsPath:          "/metrics",
	}
	logger, _ := test.NewNullLogger()
	app, err := server.New(cfg, logger)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return &gateway{t: t, url: ts.URL, client: ts.Client()}, fake
}

func (g *gateway) do(method, path string, body any) (int, envelope, http.Header) {
	g.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(g.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, g.url+path, reader)
	require.NoError(g.t, err)
	req.Header.Set("Content-Type", "application/json")
	if g.session != "" {
		req.Header.Set("X-Session-ID", g.session)
	}
	resp, err := g.client.Do(req)
	require.NoError(g.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(g.t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(g.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, resp.Header
}

func (g *gateway) decode(env envelope, out any) {
	g.t.Helper()
	require.NoError(g.t, json.Unmarshal(env.Data, out))
}

func (g *gateway) open(orgID int64) {
	g.t.Helper()
	status, env, _ := g.do(http.MethodPost, "/api/v1/sessions", map[string]any{"organizationId": orgID})
	require.Equal(g.t, http.StatusCreated, status)
	var created struct {
		SessionID string `json:"sessionId"`
	}
	g.decode(env, &created)
	require.NotEmpty(g.t, created.SessionID)
	g.session = created.SessionID
}

type chartJSON struct {
	ID                string `json:"id"`
	HasAttemptedFetch bool   `json:"hasAttemptedFetch"`
	Subject           string `json:"subject"`
	Series            []struct {
		Name   string `json:"name"`
		Points []struct {
			Label string `json:"label"`
		} `json:"points"`
	} `json:"series"`
}

type viewJSON struct {
	Filters struct {
		Values     map[string]string `json:"values"`
		Generation uint64            `json:"generation"`
	} `json:"filters"`
	Options struct {
		Skills []struct {
			ID int64 `json:"id"`
		} `json:"skills"`
	} `json:"options"`
	Charts []chartJSON `json:"charts"`
}

func (v viewJSON) chart(id string) chartJSON {
	for _, c := range v.Charts {
		if c.ID == id {
			return c
		}
	}
	return chartJSON{}
}

func TestEmployeeChartsJourney(t *testing.T) {
	g, fake := newGateway(t)

	status, _, _ := g.do(http.MethodGet, "/api/v1/views/employee_charts", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	g.open(1)

	status, env, _ := g.do(http.MethodPatch, "/api/v1/views/employee_charts/filters", map[string]any{"employeeId": 17})
	require.Equal(t, http.StatusOK, status)
	var view viewJSON
	g.decode(env, &view)
	assert.Equal(t, "17", view.Filters.Values["employeeId"])
	require.Len(t, view.Options.Skills, 1)
	overview := view.chart("skills_overview")
	assert.True(t, overview.HasAttemptedFetch)
	assert.Equal(t, "Ada Lovelace", overview.Subject)

	status, env, _ = g.do(http.MethodPatch, "/api/v1/views/employee_charts/filters", map[string]any{"skillId": "4", "unknownField": "kept"})
	require.Equal(t, http.StatusOK, status)
	g.decode(env, &view)
	assert.Equal(t, "kept", view.Filters.Values["unknownField"])
	periods := view.chart("skill_periods")
	require.Len(t, periods.Series, 1)
	require.Len(t, periods.Series[0].Points, 2)
	assert.Equal(t, "Q1 2025", periods.Series[0].Points[0].Label)

	status, env, _ = g.do(http.MethodGet, "/api/v1/views/employee_charts/charts/skill_timeline", nil)
	require.Equal(t, http.StatusOK, status)
	var timeline chartJSON
	g.decode(env, &timeline)
	require.Len(t, timeline.Series, 1)
	assert.Equal(t, "Feb 3, 2025", timeline.Series[0].Points[0].Label)

	status, _, headers := g.do(http.MethodGet, "/api/v1/views/employee_charts/charts/skill_periods/export.xlsx", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, headers.Get("Content-Disposition"), "employee_charts-skill_periods.xlsx")

	status, _, headers = g.do(http.MethodGet, "/api/v1/views/employee_charts/charts/skill_periods/export.pdf", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/pdf", headers.Get("Content-Type"))

	status, env, _ = g.do(http.MethodGet, "/api/v1/views/organization_charts/charts/skill_periods/export.pdf", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "no_data", env.Error.Code)

	status, env, _ = g.do(http.MethodGet, "/api/v1/views/payroll", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)

	status, env, _ = g.do(http.MethodPost, "/api/v1/views/employee_charts/filters/reset", nil)
	require.Equal(t, http.StatusOK, status)
	g.decode(env, &view)
	assert.Equal(t, "1", view.Filters.Values["organizationId"])
	assert.Empty(t, view.Filters.Values["employeeId"])
	assert.False(t, view.chart("skills_overview").HasAttemptedFetch)

	status, env, _ = g.do(http.MethodPatch, "/api/v1/views/employee_charts/filters", map[string]any{"organizationId": 2, "employeeId": 18})
	require.Equal(t, http.StatusOK, status)
	g.decode(env, &view)
	assert.Equal(t, "1", view.Filters.Values["organizationId"])
	assert.Equal(t, "18", view.Filters.Values["employeeId"])

	assert.Equal(t, map[string]bool{"1": true}, fake.organizations())
}

func TestOrganizationChartsAndTable(t *testing.T) {
	g, _ := newGateway(t)
	g.open(1)

	status, env, _ := g.do(http.MethodGet, "/api/v1/views/organization_charts", nil)
	require.Equal(t, http.StatusOK, status)
	var view viewJSON
	g.decode(env, &view)
	overall := view.chart("overall_rating")
	assert.True(t, overall.HasAttemptedFetch)
	assert.Equal(t, "Acme", overall.Subject)
	assert.Len(t, view.Options.Skills, 2)

	status, env, _ = g.do(http.MethodPatch, "/api/v1/views/organization_charts/filters", map[string]any{"departmentId": 2})
	require.Equal(t, http.StatusOK, status)
	g.decode(env, &view)
	assert.Len(t, view.Options.Skills, 1)

	g.do(http.MethodPatch, "/api/v1/views/employee_table/filters", map[string]any{"hireDateStart": "2021-01-01"})
	status, env, _ = g.do(http.MethodGet, "/api/v1/views/employee_table/rows?limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	g.decode(env, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, int64(18), page.Items[0].ID)

	status, _, _ = g.do(http.MethodGet, "/api/v1/views/employee_charts/rows", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env, _ = g.do(http.MethodGet, "/api/v1/skills/search?q=go", nil)
	require.Equal(t, http.StatusOK, status)
	var found []struct {
		Label string `json:"label"`
	}
	g.decode(env, &found)
	require.NotEmpty(t, found)
	assert.Equal(t, "Go", found[0].Label)
}

func TestDraftCreateAndEditJourney(t *testing.T) {
	g, fake := newGateway(t)
	g.open(1)

	status, env, _ := g.do(http.MethodPost, "/api/v1/drafts", map[string]any{})
	require.Equal(t, http.StatusCreated, status)
	var draft struct {
		ID      string `json:"id"`
		Mode    string `json:"mode"`
		Entries []struct {
			TempID  string  `json:"tempId"`
			SkillID int64   `json:"skillId"`
			Rating  float64 `json:"rating"`
		} `json:"entries"`
	}
	g.decode(env, &draft)
	assert.Equal(t, "create", draft.Mode)
	base := "/api/v1/drafts/" + draft.ID

	status, _, _ = g.do(http.MethodPost, base+"/entries", map[string]any{"skillId": 9, "skillName": "SQL", "rating": 5})
	assert.Equal(t, http.StatusCreated, status)
	status, env, _ = g.do(http.MethodPost, base+"/entries", map[string]any{"skillId": 9, "skillName": "SQL", "rating": 1})
	assert.Equal(t, http.StatusOK, status)
	var dup struct {
		Added bool `json:"added"`
	}
	g.decode(env, &dup)
	assert.False(t, dup.Added)

	status, env, _ = g.do(http.MethodPost, base+"/entries", map[string]any{"skillId": 4, "rating": 9})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env, _ = g.do(http.MethodPost, base+"/generate", map[string]any{"rawText": "Great SQL work"})
	require.Equal(t, http.StatusOK, status)
	var generated struct {
		Added []any `json:"added"`
	}
	g.decode(env, &generated)
	assert.Empty(t, generated.Added)

	status, env, _ = g.do(http.MethodPost, base+"/submit", map[string]any{"employeeId": 17, "rawText": "Great SQL work"})
	require.Equal(t, http.StatusOK, status)
	var submitted struct {
		ReviewID int64 `json:"reviewId"`
	}
	g.decode(env, &submitted)
	assert.Positive(t, submitted.ReviewID)

	status, _, _ = g.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env, _ = g.do(http.MethodGet, "/api/v1/session/alert", nil)
	require.Equal(t, http.StatusOK, status)
	var alert struct {
		Alert *struct {
			Status string `json:"status"`
		} `json:"alert"`
	}
	g.decode(env, &alert)
	require.NotNil(t, alert.Alert)
	assert.Equal(t, "success", alert.Alert.Status)

	status, env, _ = g.do(http.MethodPost, "/api/v1/drafts", map[string]any{"reviewId": 12})
	require.Equal(t, http.StatusCreated, status)
	g.decode(env, &draft)
	assert.Equal(t, "edit", draft.Mode)
	require.Len(t, draft.Entries, 2)
	base = "/api/v1/drafts/" + draft.ID
	for _, e := range draft.Entries {
		status, _, _ = g.do(http.MethodDelete, base+"/entries/"+e.TempID, nil)
		require.Equal(t, http.StatusOK, status)
	}
	g.do(http.MethodPost, base+"/entries", map[string]any{"skillId": 2, "rating": 5})
	g.do(http.MethodPost, base+"/entries", map[string]any{"skillId": 3, "rating": 1})

	status, env, _ = g.do(http.MethodPost, base+"/submit", map[string]any{"employeeId": 17})
	require.Equal(t, http.StatusOK, status)
	g.decode(env, &submitted)
	assert.Equal(t, int64(12), submitted.ReviewID)
	assert.Equal(t, []storedEntry{{SkillID: 2, Rating: 5}, {SkillID: 3, Rating: 1}}, fake.entries(12))
	created := fake.entries(501)
	require.Len(t, created, 1)
	assert.Equal(t, storedEntry{SkillID: 9, Rating: 5}, created[0])

	status, env, _ = g.do(http.MethodPost, "/api/v1/drafts", map[string]any{"reviewId": 404})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestGenerateIsRateLimited(t *testing.T) {
	g, _ := newGateway(t)
	g.open(1)
	_, env, _ := g.do(http.MethodPost, "/api/v1/drafts", nil)
	var draft struct {
		ID string `json:"id"`
	}
	g.decode(env, &draft)

	path := "/api/v1/drafts/" + draft.ID + "/generate"
	for i := 0; i < 2; i++ {
		status, _, _ := g.do(http.MethodPost, path, map[string]any{"rawText": "text"})
		require.Equal(t, http.StatusOK, status)
	}
	status, env, headers := g.do(http.MethodPost, path, map[string]any{"rawText": "text"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", env.Error.Code)
	assert.Equal(t, "0", headers.Get("X-RateLimit-Remaining"))
}

func TestSessionTeardownAndOps(t *testing.T) {
	g, _ := newGateway(t)

	status, env, _ := g.do(http.MethodPost, "/api/v1/sessions", map[string]any{"organizationId": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	g.open(1)
	status, env, _ = g.do(http.MethodPut, "/api/v1/session/organization", map[string]any{"organizationId": 2})
	require.Equal(t, http.StatusOK, status)

	status, _, _ = g.do(http.MethodDelete, "/api/v1/sessions/current", nil)
	require.Equal(t, http.StatusOK, status)
	status, env, _ = g.do(http.MethodGet, "/api/v1/views/employee_charts", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)

	resp, err := g.client.Get(g.url + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = g.client.Get(g.url + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = g.client.Get(g.url + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `pulse_backend_calls_total{operation="list_departments",result="ok"}`)
	assert.Contains(t, string(raw), "pulse_active_sessions 0")
}
