package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL+"/api", 2*time.Second, opts...)
	require.NoError(t, err)
	return client
}

func TestNewRejectsNonHTTPBaseURL(t *testing.T) {
	_, err := New("ftp://backend.local", time.Second)
	require.Error(t, err)
}

func TestClientSendsOrganizationHeaderPerCall(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Get(OrganizationHeader)
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.ListDepartments(context.Background(), 7)
	require.NoError(t, err)
	_, err = client.ListEmployees(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, "7", seen["/api/organizations/7/departments"])
	assert.Equal(t, "9", seen["/api/organizations/9/employees"])
}

func TestDecodeListAcceptsArrayPageAndNull(t *testing.T) {
	cases := map[string]string{
		"bare array": `[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}]`,
		"page":       `{"content":[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}],"totalElements":2}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			skills, err := decodeList[Skill]("test", []byte(body))
			require.NoError(t, err)
			require.Len(t, skills, 2)
			assert.Equal(t, "SQL", skills[1].Name)
		})
	}

	for _, body := range []string{"", "null", `{"content":null}`} {
		skills, err := decodeList[Skill]("test", []byte(body))
		require.NoError(t, err)
		assert.NotNil(t, skills)
		assert.Empty(t, skills)
	}

	_, err := decodeList[Skill]("test", []byte(`"nope"`))
	require.Error(t, err)
}

func TestClientErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`"Employee with id 4 not found"`))
	})

	_, err := client.LatestSkillEntries(context.Background(), 1, 4)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Employee with id 4 not found", UserMessage(err))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`), 500))
	assert.Equal(t, "Bad Request", errorMessage(nil, 400))
	assert.Equal(t, "Bad Gateway", errorMessage([]byte("<html>oops</html>"), 502))
	assert.Equal(t, "plain failure", errorMessage([]byte("plain failure"), 500))
	assert.Equal(t, DefaultAlertMessage, UserMessage(context.DeadlineExceeded))
}

func TestObserverRecordsResult(t *testing.T) {
	var results []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/skills/search" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, WithObserver(func(op, result string) {
		results = append(results, op+":"+result)
	}))

	_, _ = client.ListOccupations(context.Background(), 1)
	_, _ = client.SearchSkills(context.Background(), 1, "go")
	assert.Equal(t, []string{"list_occupations:ok", "search_skills:500"}, results)
}

func TestReportEmptyBodyIsNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("deptId"))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("startDate"))
		assert.Empty(t, r.URL.Query().Get("skillId"))
		w.WriteHeader(http.StatusOK)
	})

	report, err := client.OrgReport(context.Background(), 1, ReportQuery{DepartmentID: 3, StartDate: "2025-01-01"})
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestReportDecodesNullableNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"employeeId": 17,
			"skills": [{"skillName": "Go", "periods": [
				{"periodStart": "2025-04-01", "avgRating": null, "minRating": "2.5", "maxRating": 4}
			]}]
		}`))
	})

	report, err := client.EmployeeReport(context.Background(), 1, 17, ReportQuery{SkillID: 5})
	require.NoError(t, err)
	require.NotNil(t, report)
	period := report.Skills[0].Periods[0]
	assert.False(t, period.AvgRating.Valid)
	assert.Equal(t, 2.5, period.MinRating.Value)
	assert.Equal(t, 4.0, period.MaxRating.OrZero())
	assert.Equal(t, 4, int(period.PeriodStart.Month()))
}

func TestDateTolerance(t *testing.T) {
	var payload struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2024-02-29","b":"2024-03-01T10:00:00","c":"garbage","d":null}`), &payload))
	assert.Equal(t, 29, payload.A.Day())
	assert.Equal(t, 10, payload.B.Hour())
	assert.True(t, payload.C.IsZero())
	assert.True(t, payload.D.IsZero())

	out, err := json.Marshal(DateOf(2025, time.April, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-04-01"`, string(out))
}

func TestAddSkillEntriesPostsBulkBody(t *testing.T) {
	var got []SaveSkillEntry
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/performance-reviews/12/skill-entries/bulk", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.AddSkillEntries(context.Background(), 1, 12, []SaveSkillEntry{{SkillID: 2, Rating: 5}, {SkillID: 3, Rating: 1}})
	require.NoError(t, err)
	assert.Equal(t, []SaveSkillEntry{{SkillID: 2, Rating: 5}, {SkillID: 3, Rating: 1}}, got)

	require.NoError(t, client.AddSkillEntries(context.Background(), 1, 12, nil))
}

func TestCanceledContextIsReported(t *testing.T) {
	var result string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, WithObserver(func(_, r string) { result = r }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListDepartments(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, "canceled", result)
}

func TestPingTreatsClientErrorsAsReachable(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second)
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))

	status = http.StatusServiceUnavailable
	assert.Error(t, c.Ping(context.Background()))
}
