package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// SnapshotStore is a durable tier behind the in-memory division cache.
// Load returns (nil, nil) on a miss.
type SnapshotStore interface {
	Load(ctx context.Context, eventID, divisionID int) (*DivisionStats, error)
	Save(ctx context.Context, stats *DivisionStats) error
	Close() error
}

type fillFunc func(ctx context.Context, eventID, divisionID int) (*DivisionStats, error)

// DivisionCache memoizes division stats by event then division. Entries are
// never evicted; the first computation wins for the life of the process.
type DivisionCache struct {
	mu      sync.Mutex
	byEvent map[int]map[int]*DivisionStats

	group   singleflight.Group
	store   SnapshotStore
	fill    fillFunc
	metrics *Metrics
	log     zerolog.Logger
}

func NewDivisionCache(fill fillFunc, store SnapshotStore, m *Metrics, log zerolog.Logger) *DivisionCache {
	return &DivisionCache{
		byEvent: make(map[int]map[int]*DivisionStats),
		store:   store,
		fill:    fill,
		metrics: m,
		log:     log,
	}
}

func (c *DivisionCache) Peek(eventID, divisionID int) (*DivisionStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byEvent[eventID][divisionID]
	return s, ok
}

func (c *DivisionCache) put(s *DivisionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	divs, ok := c.byEvent[s.EventID]
	if !ok {
		divs = make(map[int]*DivisionStats)
		c.byEvent[s.EventID] = divs
	}
	if _, exists := divs[s.DivisionID]; !exists {
		divs[s.DivisionID] = s
	}
}

// size reports the number of cached divisions across all events.
func (c *DivisionCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, divs := range c.byEvent {
		n += len(divs)
	}
	return n
}

func (c *DivisionCache) Get(ctx context.Context, eventID, divisionID int) (*DivisionStats, error) {
	if s, ok := c.Peek(eventID, divisionID); ok {
		c.metrics.cacheHit("memory")
		return s, nil
	}
	c.metrics.cacheMiss("memory")

	key := fmt.Sprintf("%d:%d", eventID, divisionID)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// a concurrent caller may have filled it while we waited on the lock
		if s, ok := c.Peek(eventID, divisionID); ok {
			return s, nil
		}
		// the fill outlives any single caller that joined the flight
		fctx := context.WithoutCancel(ctx)

		if c.store != nil {
			s, err := c.store.Load(fctx, eventID, divisionID)
			switch {
			case err != nil:
				c.log.Warn().Err(err).Int("event", eventID).Int("division", divisionID).Msg("snapshot load failed")
			case s != nil:
				c.metrics.cacheHit("store")
				c.put(s)
				return c.mustPeek(eventID, divisionID), nil
			default:
				c.metrics.cacheMiss("store")
			}
		}

		start := time.Now()
		s, err := c.fill(fctx, eventID, divisionID)
		if err != nil {
			return nil, err
		}
		c.metrics.observeAggregate(time.Since(start))
		c.log.Info().
			Int("event", eventID).
			Int("division", divisionID).
			Int("matches", s.Matches).
			Int("teams", len(s.Teams)).
			Dur("took", time.Since(start)).
			Msg("division aggregated")

		if c.store != nil {
			if err := c.store.Save(fctx, s); err != nil {
				c.log.Warn().Err(err).Int("event", eventID).Int("division", divisionID).Msg("snapshot save failed")
			}
		}
		c.put(s)
		return c.mustPeek(eventID, divisionID), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DivisionStats), nil
}

func (c *DivisionCache) mustPeek(eventID, divisionID int) *DivisionStats {
	s, _ := c.Peek(eventID, divisionID)
	return s
}
