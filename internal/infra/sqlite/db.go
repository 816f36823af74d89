// Package sqlite keeps the run ledger in an in-memory SQLite database.
// The ledger lives as long as the process: it records every completed
// search so overhead can be compared across strategies and runs.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/tutu-network/peersearch/internal/domain"
)

// DB wraps an in-memory SQLite connection holding the run ledger.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates a fresh in-memory ledger. A nil logger discards output.
func Open(logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every connection to ":memory:" is its own database, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{db: db, logger: logger.Named("ledger")}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close releases the database; the ledger is gone afterwards.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate creates the schema.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			started_at     INTEGER NOT NULL,
			elapsed_ns     INTEGER NOT NULL,
			origin         TEXT NOT NULL,
			resource       TEXT NOT NULL,
			ttl            INTEGER NOT NULL,
			strategy       TEXT NOT NULL,
			seed           INTEGER,
			found          BOOLEAN NOT NULL,
			messages       INTEGER NOT NULL,
			nodes_involved INTEGER NOT NULL,
			hops           INTEGER NOT NULL,
			redirected     BOOLEAN NOT NULL DEFAULT 0,
			path           TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Run Ledger ─────────────────────────────────────────────────────────────

// RecordRun stores a completed search.
func (d *DB) RecordRun(run domain.Run) error {
	path, err := json.Marshal(run.Result.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	var seed sql.NullInt64
	if run.Request.Seed != nil {
		seed = sql.NullInt64{Int64: *run.Request.Seed, Valid: true}
	}

	_, err = d.db.Exec(
		`INSERT INTO runs (id, started_at, elapsed_ns, origin, resource, ttl, strategy, seed,
			found, messages, nodes_involved, hops, redirected, path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixNano(), int64(run.Elapsed),
		string(run.Request.Origin), string(run.Request.Resource), run.Request.TTL,
		string(run.Request.Strategy), seed,
		run.Result.Found, run.Result.Messages, run.Result.NodesInvolved, run.Result.Hops,
		run.Result.Redirected, string(path),
	)
	return err
}

// ObserveRun records run, logging instead of failing the search.
func (d *DB) ObserveRun(run domain.Run) {
	if err := d.RecordRun(run); err != nil {
		d.logger.Warn("record run", zap.String("run", run.ID), zap.Error(err))
	}
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 means all.
func (d *DB) ListRuns(limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(
		`SELECT id, started_at, elapsed_ns, origin, resource, ttl, strategy, seed,
			found, messages, nodes_involved, hops, redirected, path
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of recorded runs.
func (d *DB) CountRuns() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Summary aggregates the ledger per strategy, in strategy name order.
func (d *DB) Summary() ([]domain.StrategySummary, error) {
	rows, err := d.db.Query(
		`SELECT strategy,
			COUNT(*),
			COALESCE(SUM(found), 0),
			COALESCE(AVG(messages), 0),
			COALESCE(AVG(nodes_involved), 0),
			COALESCE(AVG(hops), 0),
			COALESCE(SUM(redirected), 0),
			COALESCE(SUM(messages), 0)
		 FROM runs GROUP BY strategy ORDER BY strategy`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StrategySummary
	for rows.Next() {
		var s domain.StrategySummary
		var strategy string
		if err := rows.Scan(&strategy, &s.Runs, &s.Hits, &s.AvgMessages,
			&s.AvgNodes, &s.AvgHops, &s.Redirects, &s.TotalMessages); err != nil {
			return nil, err
		}
		s.Strategy = domain.Strategy(strategy)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reset drops every recorded run.
func (d *DB) Reset() error {
	_, err := d.db.Exec(`DELETE FROM runs`)
	return err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		r         domain.Run
		startedAt int64
		elapsed   int64
		origin    string
		resource  string
		strategy  string
		seed      sql.NullInt64
		path      string
	)
	err := s.Scan(&r.ID, &startedAt, &elapsed, &origin, &resource, &r.Request.TTL, &strategy, &seed,
		&r.Result.Found, &r.Result.Messages, &r.Result.NodesInvolved, &r.Result.Hops,
		&r.Result.Redirected, &path)
	if err != nil {
		return nil, err
	}

	r.StartedAt = time.Unix(0, startedAt)
	r.Elapsed = time.Duration(elapsed)
	r.Request.Origin = domain.PeerID(origin)
	r.Request.Resource = domain.ResourceID(resource)
	r.Request.Strategy = domain.Strategy(strategy)
	r.Result.Strategy = r.Request.Strategy
	if seed.Valid {
		v := seed.Int64
		r.Request.Seed = &v
	}
	if err := json.Unmarshal([]byte(path), &r.Result.Path); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}
	return &r, nil
}
