package main

import (
	"math"
	"sort"
	"time"
)

// TeamStats accumulates alliance scores for one team. Mean and StdDev are
// refreshed on every Add so the struct is always ready to display.
type TeamStats struct {
	Team   string  `json:"team"`
	N      int     `json:"n"`
	S1     float64 `json:"s1"`
	S2     float64 `json:"s2"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

func (t *TeamStats) Add(score float64) {
	t.N++
	t.S1 += score
	t.S2 += score * score
	t.Mean = t.S1 / float64(t.N)
	// population variance; rounding can push it a hair below zero
	variance := t.S2/float64(t.N) - t.Mean*t.Mean
	t.StdDev = math.Sqrt(math.Max(variance, 0))
}

// DivisionStats is the aggregated table for one event division.
// Teams is sorted by mean, highest first.
type DivisionStats struct {
	EventID    int         `json:"event_id"`
	DivisionID int         `json:"division_id"`
	Matches    int         `json:"matches"`
	Teams      []TeamStats `json:"teams"`
	ComputedAt time.Time   `json:"computed_at"`
}

// lookup returns the stats row for name, if the team played in the division.
func (d *DivisionStats) lookup(name string) (TeamStats, bool) {
	for _, t := range d.Teams {
		if t.Team == name {
			return t, true
		}
	}
	return TeamStats{}, false
}

// aggregateMatches credits every team on an alliance with that alliance's score.
func aggregateMatches(eventID, divisionID int, matches []Match, skipUnscored bool) *DivisionStats {
	byTeam := make(map[string]*TeamStats)
	counted := 0
	for _, m := range matches {
		if skipUnscored && !m.Scored {
			continue
		}
		counted++
		for _, alliance := range m.Alliances {
			for _, at := range alliance.Teams {
				name := at.Team.Name
				ts, ok := byTeam[name]
				if !ok {
					ts = &TeamStats{Team: name}
					byTeam[name] = ts
				}
				ts.Add(float64(alliance.Score))
			}
		}
	}

	teams := make([]TeamStats, 0, len(byTeam))
	for _, ts := range byTeam {
		teams = append(teams, *ts)
	}
	sortTeams(teams)

	return &DivisionStats{
		EventID:    eventID,
		DivisionID: divisionID,
		Matches:    counted,
		Teams:      teams,
		ComputedAt: time.Now(),
	}
}

func sortTeams(teams []TeamStats) {
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Mean != teams[j].Mean {
			return teams[i].Mean > teams[j].Mean
		}
		return teams[i].Team < teams[j].Team
	})
}

// stddevHue maps spread to a hue: 120 (green) at zero, decaying toward red.
func stddevHue(stddev float64) float64 {
	return math.Exp(math.Log(120) - stddev/10)
}
