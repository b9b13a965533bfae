package main

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDate_UsesLocalCalendarDayPlusOffset(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	// 22:30 local is already the next day in UTC; the local date must win
	now := time.Date(2026, 10, 17, 22, 30, 0, 0, loc)
	assert.Equal(t, "2026-10-27", searchDate(now, 10))
	assert.Equal(t, "2026-11-01", searchDate(time.Date(2026, 10, 22, 0, 0, 0, 0, loc), 10))
}

func TestEventLabel(t *testing.T) {
	ev := Event{Name: "Fall Classic", Start: "2026-10-20T12:00:00Z"}
	assert.Regexp(t, `^Fall Classic - 10/(19|20|21)/2026$`, eventLabel(ev))

	assert.Equal(t, "No Date", eventLabel(Event{Name: "No Date"}))
}

func TestLoadEvents_UsesFirstActiveSeasonAndSearchDate(t *testing.T) {
	d, fake, _ := newTestDashboard(t, nil)

	events, err := d.LoadEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	q, err := url.ParseQuery(fake.query("/events"))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-27", q.Get("end"))
	assert.Equal(t, []string{"190"}, q["season[]"])
}

func TestLoadDivisions_KeepsAPIOrder(t *testing.T) {
	d, _, _ := newTestDashboard(t, nil)

	divs, err := d.LoadDivisions(context.Background(), testEvent)
	require.NoError(t, err)
	require.Len(t, divs, 2)
	assert.Equal(t, "Division 1", divs[0].Name)
	assert.Equal(t, "Science", divs[1].Name)
}

func TestLoadTeams_UnknownDivisionIsNotFound(t *testing.T) {
	d, fake, _ := newTestDashboard(t, nil)

	_, err := d.LoadTeams(context.Background(), testEvent, 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, fake.count("/events/55001/divisions/99/matches"))
}

func TestResolve_DefaultsToFirstEventAndDivision(t *testing.T) {
	d, _, _ := newTestDashboard(t, nil)

	sel, err := d.Resolve(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, testEvent, sel.EventID)
	assert.Equal(t, 1, sel.DivisionID)
	require.NotNil(t, sel.Stats)
	assert.Len(t, sel.Stats.Teams, 4)
}

func TestResolve_HonoursKnownDivisionAndIgnoresUnknownEvent(t *testing.T) {
	d, _, _ := newTestDashboard(t, nil)

	sel, err := d.Resolve(context.Background(), 123, 2)
	require.NoError(t, err)
	assert.Equal(t, testEvent, sel.EventID)
	assert.Equal(t, 2, sel.DivisionID)
	assert.Empty(t, sel.Stats.Teams)
}

func TestResolve_NoEventsLeavesSelectionEmpty(t *testing.T) {
	d, fake, _ := newTestDashboard(t, nil)
	fake.setEvents(nil)

	sel, err := d.Resolve(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, sel.Events)
	assert.Nil(t, sel.Stats)
}
