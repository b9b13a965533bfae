package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *fakeRE) {
	t.Helper()
	d, fake, m := newTestDashboard(t, nil)
	return newRouter(&server{dash: d, metrics: m, log: zerolog.Nop()}), fake
}

func get(t *testing.T, h http.Handler, target string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDashboardPage_RendersDefaultSelection(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := get(t, h, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, `<option value="55001" selected>Fall Classic - `)
	assert.Contains(t, body, `<option value="1" selected>Division 1</option>`)
	assert.Contains(t, body, `<option value="2">Science</option>`)
	assert.Less(t, strings.Index(body, ">3C<"), strings.Index(body, ">1A<"))
	assert.Less(t, strings.Index(body, ">4D<"), strings.Index(body, ">2B<"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestDashboardPage_AppliesThreshold(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := get(t, h, "/?event=55001&division=1&threshold=10")
	require.Equal(t, http.StatusOK, rr.Code)
	// 3C averages 50/3 over three matches
	assert.Contains(t, rr.Body.String(), `<td class="px-4 py-2 font-bold">3C</td><td class="px-4 py-2 text-right">6.67</td>`)
	assert.Contains(t, rr.Body.String(), `value="10"`)
}

func TestDashboardPage_UpstreamFailureShowsError(t *testing.T) {
	d, _, m := newTestDashboard(t, nil)
	d.api.Token = "wrong"
	h := newRouter(&server{dash: d, metrics: m, log: zerolog.Nop()})

	rr := get(t, h, "/")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "Could not load data")
}

func TestTableFragment_ThresholdRerendersWithoutRefetch(t *testing.T) {
	h, fake := newTestRouter(t)

	first := get(t, h, "/events/55001/divisions/1/table?threshold=0")
	require.Equal(t, http.StatusOK, first.Code)
	second := get(t, h, "/events/55001/divisions/1/table?threshold=5")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Contains(t, first.Body.String(), ">16.67<")
	assert.Contains(t, second.Body.String(), ">11.67<")
	assert.NotContains(t, second.Body.String(), "<html")
	assert.NotEqual(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
	assert.Equal(t, 2, fake.count(matchesPath))
}

func TestTableFragment_ETagRevalidation(t *testing.T) {
	h, _ := newTestRouter(t)

	first := get(t, h, "/events/55001/divisions/1/table")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	again := get(t, h, "/events/55001/divisions/1/table", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, again.Code)
	assert.Empty(t, again.Body.String())
}

func TestTableFragment_BadAndUnknownIDs(t *testing.T) {
	h, _ := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/events/abc/divisions/1/table").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/events/55001/divisions/99/table").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/events/404/divisions/1/table").Code)
}

func TestAPI_EventsDivisionsStats(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := get(t, h, "/api/events")
	require.Equal(t, http.StatusOK, rr.Code)
	var events []eventJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, testEvent, events[0].ID)

	rr = get(t, h, "/api/events/55001/divisions")
	require.Equal(t, http.StatusOK, rr.Code)
	var divs []Division
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &divs))
	assert.Len(t, divs, 2)

	rr = get(t, h, "/api/events/55001/divisions/1/stats?threshold=1")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats struct {
		EventID   int         `json:"event_id"`
		Threshold float64     `json:"threshold"`
		Teams     []TeamStats `json:"teams"`
		Rows      []struct {
			Team     string  `json:"team"`
			Mean     float64 `json:"mean"`
			MeanText string  `json:"mean_text"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, testEvent, stats.EventID)
	assert.Equal(t, 1.0, stats.Threshold)
	require.Len(t, stats.Rows, 4)
	assert.Equal(t, "3C", stats.Rows[0].Team)
	assert.InDelta(t, stats.Teams[0].Mean-1, stats.Rows[0].Mean, 1e-9)
	assert.Equal(t, "15.67", stats.Rows[0].MeanText)
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	_ = get(t, h, "/api/events")
	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `robotevents_requests_total{code="200",endpoint="seasons"}`)
	assert.Contains(t, rr.Body.String(), "division_stats_build_info")
}

func TestRouter_PanicLogCarriesRequestID(t *testing.T) {
	d, _, m := newTestDashboard(t, nil)
	var buf bytes.Buffer
	h := newRouter(&server{dash: d, metrics: m, log: buildLogger("info", false, &buf)})
	h.(chi.Router).Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rr := get(t, h, "/boom", "X-Request-ID", "req-panic")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "req-panic", rr.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), `"request_id":"req-panic"`)
}
