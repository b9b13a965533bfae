package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoSeason = errors.New("no active season")
)

// APIError is a non-2xx answer from RobotEvents.
type APIError struct {
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s failed: %d body=%s", e.Path, e.Status, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type IDInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type Season struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Program IDInfo `json:"program"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type Division struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Event struct {
	ID        int        `json:"id"`
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Season    IDInfo     `json:"season"`
	Program   IDInfo     `json:"program"`
	Divisions []Division `json:"divisions"`
}

type AllianceTeam struct {
	Team    IDInfo `json:"team"`
	Sitting bool   `json:"sitting"`
}

type MatchAlliance struct {
	Color string         `json:"color"` // "red", "blue"
	Score int            `json:"score"`
	Teams []AllianceTeam `json:"teams"`
}

type Match struct {
	ID        int             `json:"id"`
	Event     IDInfo          `json:"event"`
	Division  IDInfo          `json:"division"`
	Round     int             `json:"round"`
	Instance  int             `json:"instance"`
	MatchNum  int             `json:"matchnum"`
	Name      string          `json:"name"`
	Scored    bool            `json:"scored"`
	Alliances []MatchAlliance `json:"alliances"`
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type page[T any] struct {
	Meta pageMeta `json:"meta"`
	Data []T      `json:"data"`
}

const perPage = 250

type RobotEvents struct {
	HTTP      *http.Client
	BaseURL   string
	Token     string
	UserAgent string

	metrics *Metrics
	events  *expirable.LRU[int, Event]
}

func NewRobotEvents(cfg Config, m *Metrics) *RobotEvents {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	size := cfg.EventCacheSize
	if size <= 0 {
		size = 64
	}
	return &RobotEvents{
		HTTP:      &http.Client{Transport: transport, Timeout: cfg.HTTPTimeout},
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		Token:     cfg.Token,
		UserAgent: "division-stats/1.0",
		metrics:   m,
		events:    expirable.NewLRU[int, Event](size, nil, cfg.EventCacheTTL),
	}
}

func (c *RobotEvents) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.metrics.observeAPI(endpoint, 0, time.Since(start))
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.metrics.observeAPI(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// getAll walks every page of a listing endpoint.
func getAll[T any](ctx context.Context, c *RobotEvents, endpoint, path string, q url.Values) ([]T, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var all []T
	for n := 1; ; n++ {
		q.Set("page", strconv.Itoa(n))
		var p page[T]
		if err := c.get(ctx, endpoint, path, q, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if p.Meta.LastPage <= n || len(p.Data) == 0 {
			return all, nil
		}
	}
}

// /seasons?program[]={program}&active=true
func (c *RobotEvents) ActiveSeasons(ctx context.Context, programID int) ([]Season, error) {
	q := url.Values{}
	q.Add("program[]", strconv.Itoa(programID))
	q.Set("active", "true")
	return getAll[Season](ctx, c, "seasons", "/seasons", q)
}

// /events?team[]={team}&season[]={season}&end={date}
func (c *RobotEvents) SearchEvents(ctx context.Context, teamID, seasonID int, end string) ([]Event, error) {
	q := url.Values{}
	q.Add("team[]", strconv.Itoa(teamID))
	q.Add("season[]", strconv.Itoa(seasonID))
	if end != "" {
		q.Set("end", end)
	}
	return getAll[Event](ctx, c, "events", "/events", q)
}

// /events/{id}
func (c *RobotEvents) Event(ctx context.Context, eventID int) (Event, error) {
	if ev, ok := c.events.Get(eventID); ok {
		return ev, nil
	}
	var ev Event
	if err := c.get(ctx, "event", fmt.Sprintf("/events/%d", eventID), nil, &ev); err != nil {
		return Event{}, fmt.Errorf("event %d: %w", eventID, err)
	}
	c.events.Add(eventID, ev)
	return ev, nil
}

// /events/{id}/divisions/{div}/matches
func (c *RobotEvents) DivisionMatches(ctx context.Context, eventID, divisionID int) ([]Match, error) {
	path := fmt.Sprintf("/events/%d/divisions/%d/matches", eventID, divisionID)
	matches, err := getAll[Match](ctx, c, "matches", path, nil)
	if err != nil {
		return nil, fmt.Errorf("event %d division %d matches: %w", eventID, divisionID, err)
	}
	return matches, nil
}
