package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Dashboard runs the three loads behind every page: events for the team,
// divisions for an event, and team stats for a division.
type Dashboard struct {
	cfg   Config
	api   *RobotEvents
	cache *DivisionCache
	log   zerolog.Logger
	now   func() time.Time
}

func NewDashboard(cfg Config, api *RobotEvents, store SnapshotStore, m *Metrics, log zerolog.Logger) *Dashboard {
	d := &Dashboard{cfg: cfg, api: api, log: log, now: time.Now}
	d.cache = NewDivisionCache(d.computeDivision, store, m, log)
	return d
}

// searchDate is the local calendar date aheadDays from now, as YYYY-MM-DD.
func searchDate(now time.Time, aheadDays int) string {
	y, m, day := now.Date()
	return time.Date(y, m, day+aheadDays, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// eventLabel renders "<name> - M/D/YYYY" for the event picker.
func eventLabel(ev Event) string {
	start, err := time.Parse(time.RFC3339, ev.Start)
	if err != nil {
		return ev.Name
	}
	return fmt.Sprintf("%s - %s", ev.Name, start.Local().Format("1/2/2006"))
}

func (d *Dashboard) LoadEvents(ctx context.Context) ([]Event, error) {
	seasons, err := d.api.ActiveSeasons(ctx, d.cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("load seasons: %w", err)
	}
	if len(seasons) == 0 {
		return nil, ErrNoSeason
	}
	end := searchDate(d.now(), d.cfg.SearchAheadDays)
	events, err := d.api.SearchEvents(ctx, d.cfg.TeamID, seasons[0].ID, end)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	logFrom(ctx, d.log).Debug().
		Int("season", seasons[0].ID).
		Str("end", end).
		Int("events", len(events)).
		Msg("events loaded")
	return events, nil
}

func (d *Dashboard) LoadDivisions(ctx context.Context, eventID int) ([]Division, error) {
	ev, err := d.api.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return ev.Divisions, nil
}

func (d *Dashboard) LoadTeams(ctx context.Context, eventID, divisionID int) (*DivisionStats, error) {
	return d.cache.Get(ctx, eventID, divisionID)
}

func (d *Dashboard) computeDivision(ctx context.Context, eventID, divisionID int) (*DivisionStats, error) {
	ev, err := d.api.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !hasDivision(ev.Divisions, divisionID) {
		return nil, fmt.Errorf("event %d division %d: %w", eventID, divisionID, ErrNotFound)
	}
	matches, err := d.api.DivisionMatches(ctx, eventID, divisionID)
	if err != nil {
		return nil, err
	}
	return aggregateMatches(eventID, divisionID, matches, d.cfg.SkipUnscored), nil
}

func hasDivision(divs []Division, id int) bool {
	for _, div := range divs {
		if div.ID == id {
			return true
		}
	}
	return false
}

// Selection is what one dashboard render shows. Zero IDs mean "pick the first".
type Selection struct {
	Events     []Event
	Divisions  []Division
	EventID    int
	DivisionID int
	Stats      *DivisionStats
}

// Resolve performs the loads in order, falling back to the first event and
// first division when none (or an unknown one) is requested.
func (d *Dashboard) Resolve(ctx context.Context, eventID, divisionID int) (*Selection, error) {
	sel := &Selection{}

	events, err := d.LoadEvents(ctx)
	if err != nil {
		return nil, err
	}
	sel.Events = events
	if len(events) == 0 {
		return sel, nil
	}
	sel.EventID = events[0].ID
	for _, ev := range events {
		if ev.ID == eventID {
			sel.EventID = eventID
			break
		}
	}

	divs, err := d.LoadDivisions(ctx, sel.EventID)
	if err != nil {
		return nil, err
	}
	sel.Divisions = divs
	if len(divs) == 0 {
		return sel, nil
	}
	sel.DivisionID = divs[0].ID
	if hasDivision(divs, divisionID) {
		sel.DivisionID = divisionID
	}

	stats, err := d.LoadTeams(ctx, sel.EventID, sel.DivisionID)
	if err != nil {
		return nil, err
	}
	sel.Stats = stats
	return sel, nil
}
