package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// sqliteStore keeps one snapshot per event division.
type sqliteStore struct {
	db *sql.DB
}

func openSQLiteStore(ctx context.Context, path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single writer keeps sqlite out of SQLITE_BUSY territory
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS division_snapshots (
      event_id INTEGER NOT NULL,
      division_id INTEGER NOT NULL,
      matches INTEGER NOT NULL,
      computed_at INTEGER NOT NULL,
      PRIMARY KEY (event_id, division_id)
    );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create division_snapshots: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS team_stats (
      event_id INTEGER NOT NULL,
      division_id INTEGER NOT NULL,
      team TEXT NOT NULL,
      n INTEGER NOT NULL,
      s1 REAL NOT NULL,
      s2 REAL NOT NULL,
      mean REAL NOT NULL,
      stddev REAL NOT NULL,
      PRIMARY KEY (event_id, division_id, team)
    );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create team_stats: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Load(ctx context.Context, eventID, divisionID int) (*DivisionStats, error) {
	out := &DivisionStats{EventID: eventID, DivisionID: divisionID}
	var computedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT matches, computed_at FROM division_snapshots WHERE event_id = ? AND division_id = ?`,
		eventID, divisionID).Scan(&out.Matches, &computedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d/%d: %w", eventID, divisionID, err)
	}
	out.ComputedAt = time.Unix(0, computedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT team, n, s1, s2, mean, stddev FROM team_stats WHERE event_id = ? AND division_id = ?`,
		eventID, divisionID)
	if err != nil {
		return nil, fmt.Errorf("load team stats %d/%d: %w", eventID, divisionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t TeamStats
		if err := rows.Scan(&t.Team, &t.N, &t.S1, &t.S2, &t.Mean, &t.StdDev); err != nil {
			return nil, err
		}
		out.Teams = append(out.Teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortTeams(out.Teams)
	return out, nil
}

func (s *sqliteStore) Save(ctx context.Context, stats *DivisionStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM team_stats WHERE event_id = ? AND division_id = ?`,
		stats.EventID, stats.DivisionID); err != nil {
		return fmt.Errorf("clear team stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO division_snapshots (event_id, division_id, matches, computed_at)
		VALUES (?, ?, ?, ?)`,
		stats.EventID, stats.DivisionID, stats.Matches, stats.ComputedAt.UnixNano()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	for _, t := range stats.Teams {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_stats (event_id, division_id, team, n, s1, s2, mean, stddev)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			stats.EventID, stats.DivisionID, t.Team, t.N, t.S1, t.S2, t.Mean, t.StdDev); err != nil {
			return fmt.Errorf("save team %s: %w", t.Team, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
