package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"division-stats/templates"
)

type server struct {
	dash      *Dashboard
	metrics   *Metrics
	log       zerolog.Logger
	threshold float64
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))
	r.Use(recoverer(s.log))

	r.Get("/", s.dashboardHandler)
	r.Get("/events/{eventID}/divisions/{divisionID}/table", s.tableHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.eventsHandler)
		r.Get("/events/{eventID}/divisions", s.divisionsHandler)
		r.Get("/events/{eventID}/divisions/{divisionID}/stats", s.statsHandler)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

func statusFor(err error) int {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoSeason):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	logFrom(r.Context(), s.log).Error().Err(err).Int("status", code).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, http.StatusText(code), code)
}

// queryInt returns 0 when the parameter is absent or malformed.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func (s *server) thresholdFrom(r *http.Request) float64 {
	if v := r.URL.Query().Get("threshold"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return s.threshold
}

func pathIDs(w http.ResponseWriter, r *http.Request, names ...string) ([]int, bool) {
	ids := make([]int, len(names))
	for i, name := range names {
		n, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			http.Error(w, "bad "+name, http.StatusBadRequest)
			return nil, false
		}
		ids[i] = n
	}
	return ids, true
}

func (s *server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	threshold := s.thresholdFrom(r)
	sel, err := s.dash.Resolve(r.Context(), queryInt(r, "event"), queryInt(r, "division"))
	if err != nil {
		code := statusFor(err)
		logFrom(r.Context(), s.log).Error().Err(err).Msg("dashboard load failed")
		w.WriteHeader(code)
		_ = templates.Dashboard(templates.DashboardData{Threshold: threshold, Error: "Could not load data: " + http.StatusText(code)}).Render(r.Context(), w)
		return
	}
	templ.Handler(templates.Dashboard(dashboardData(sel, threshold))).ServeHTTP(w, r)
}

func (s *server) tableHandler(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventID", "divisionID")
	if !ok {
		return
	}
	stats, err := s.dash.LoadTeams(r.Context(), ids[0], ids[1])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, etag, err := renderTable(r.Context(), stats, s.thresholdFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

type eventJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Start string `json:"start"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := s.dash.LoadEvents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		out = append(out, eventJSON{ID: ev.ID, Name: ev.Name, Label: eventLabel(ev), Start: ev.Start})
	}
	writeJSON(w, out)
}

func (s *server) divisionsHandler(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventID")
	if !ok {
		return
	}
	divs, err := s.dash.LoadDivisions(r.Context(), ids[0])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if divs == nil {
		divs = []Division{}
	}
	writeJSON(w, divs)
}

type statsJSON struct {
	*DivisionStats
	Threshold float64              `json:"threshold"`
	Rows      []templates.TableRow `json:"rows"`
}

func (s *server) statsHandler(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventID", "divisionID")
	if !ok {
		return
	}
	stats, err := s.dash.LoadTeams(r.Context(), ids[0], ids[1])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	threshold := s.thresholdFrom(r)
	writeJSON(w, statsJSON{DivisionStats: stats, Threshold: threshold, Rows: tableRows(stats, threshold)})
}
