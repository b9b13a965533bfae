package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const (
	testToken    = "test-token"
	testSeason   = 190
	testEvent    = 55001
	testDivision = 1
)

// fakeRE is an in-process RobotEvents with one event and two divisions.
type fakeRE struct {
	mu    sync.Mutex
	hits  map[string]int
	lastQ map[string]string

	events  []Event
	matches map[int][]Match
}

func team(name string) AllianceTeam { return AllianceTeam{Team: IDInfo{Name: name}} }

func alliance(color string, score int, names ...string) MatchAlliance {
	a := MatchAlliance{Color: color, Score: score}
	for _, n := range names {
		a.Teams = append(a.Teams, team(n))
	}
	return a
}

func newFakeRE() *fakeRE {
	return &fakeRE{
		hits:  map[string]int{},
		lastQ: map[string]string{},
		events: []Event{{
			ID:    testEvent,
			SKU:   "RE-V5RC-26-0001",
			Name:  "Fall Classic",
			Start: "2026-10-20T00:00:00-05:00",
			Divisions: []Division{
				{ID: 1, Name: "Division 1", Order: 1},
				{ID: 2, Name: "Science", Order: 2},
			},
		}},
		matches: map[int][]Match{
			1: {
				{ID: 1, MatchNum: 1, Scored: true, Alliances: []MatchAlliance{
					alliance("red", 10, "1A", "2B"),
					alliance("blue", 20, "3C", "4D"),
				}},
				{ID: 2, MatchNum: 2, Scored: true, Alliances: []MatchAlliance{
					alliance("red", 30, "1A", "3C"),
					alliance("blue", 0, "2B", "4D"),
				}},
				{ID: 3, MatchNum: 3, Scored: false, Alliances: []MatchAlliance{
					alliance("red", 0, "1A", "4D"),
					alliance("blue", 0, "2B", "3C"),
				}},
			},
			2: {},
		},
	}
}

func (f *fakeRE) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeRE) eventList() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func (f *fakeRE) setEvents(evs []Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = evs
}

func (f *fakeRE) query(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQ[path]
}

// writePage serves data in pages of two so pagination is always exercised.
func writePage[T any](w http.ResponseWriter, r *http.Request, data []T) {
	const size = 2
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if n < 1 {
		n = 1
	}
	last := (len(data) + size - 1) / size
	if last == 0 {
		last = 1
	}
	lo := min((n-1)*size, len(data))
	hi := min(lo+size, len(data))
	_ = json.NewEncoder(w).Encode(page[T]{
		Meta: pageMeta{CurrentPage: n, LastPage: last, PerPage: size, Total: len(data)},
		Data: data[lo:hi],
	})
}

func (f *fakeRE) handler() http.Handler {
	mux := http.NewServeMux()
	track := func(r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.lastQ[r.URL.Path] = r.URL.RawQuery
		f.mu.Unlock()
	}

	mux.HandleFunc("GET /seasons", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		writePage(w, r, []Season{{ID: testSeason, Name: "VEX V5 Robotics Competition 2026-2027"}})
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		writePage(w, r, f.eventList())
	})
	mux.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, ev := range f.eventList() {
			if ev.ID == id {
				_ = json.NewEncoder(w).Encode(ev)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":404,"message":"Not Found"}`)
	})
	mux.HandleFunc("GET /events/{id}/divisions/{div}/matches", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		div, _ := strconv.Atoi(r.PathValue("div"))
		f.mu.Lock()
		ms := f.matches[div]
		f.mu.Unlock()
		writePage(w, r, ms)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":401,"message":"Unauthenticated."}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	})
}

func testConfig(baseURL string) Config {
	return Config{
		Token:           testToken,
		BaseURL:         baseURL,
		TeamID:          122732,
		ProgramID:       PROGRAM_V5RC,
		SearchAheadDays: 10,
		Store:           "memory",
		EventCacheSize:  8,
		EventCacheTTL:   time.Minute,
		HTTPTimeout:     5 * time.Second,
	}
}

// newTestDashboard wires a dashboard against a fresh fake API.
func newTestDashboard(t *testing.T, store SnapshotStore) (*Dashboard, *fakeRE, *Metrics) {
	t.Helper()
	fake := newFakeRE()
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	cfg := testConfig(ts.URL)
	m := NewMetrics("test")
	d := NewDashboard(cfg, NewRobotEvents(cfg, m), store, m, zerolog.Nop())
	d.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local) }
	return d, fake, m
}
