// Package sqlite persists finished inference results to a local SQLite
// database using the pure-Go modernc.org/sqlite driver. The schema is created
// on open; WAL mode keeps the worker's publishes cheap while readers query.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/visionmesh/metadata"
	"github.com/hupe1980/visionmesh/vlm"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	correlation_id TEXT PRIMARY KEY,
	ego TEXT NOT NULL,
	text TEXT NOT NULL,
	usage_json TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_ego ON results(ego, created_at);
`

// Sink stores results in SQLite.
type Sink struct {
	db *sql.DB
}

// NewSink opens (or creates) the database at path. Parent directories are
// created if needed.
func NewSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// Publish implements metadata.Sink.
func (s *Sink) Publish(ctx context.Context, res metadata.Result) error {
	var usage any
	if res.Usage != nil {
		b, err := json.Marshal(res.Usage)
		if err != nil {
			return fmt.Errorf("encoding usage: %w", err)
		}
		usage = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (correlation_id, ego, text, usage_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		res.CorrelationID, res.Ego, res.Text, usage, res.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// Recent returns up to limit results for an ego, newest first. An empty ego
// matches all egos.
func (s *Sink) Recent(ctx context.Context, egoName string, limit int) ([]metadata.Result, error) {
	query := `SELECT correlation_id, ego, text, usage_json, created_at FROM results`
	args := []any{}
	if egoName != "" {
		query += ` WHERE ego = ?`
		args = append(args, egoName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []metadata.Result
	for rows.Next() {
		var (
			res       metadata.Result
			usageJSON sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&res.CorrelationID, &res.Ego, &res.Text, &usageJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		res.CreatedAt = createdAt
		if usageJSON.Valid {
			var usage vlm.Usage
			if err := json.Unmarshal([]byte(usageJSON.String), &usage); err == nil {
				res.Usage = &usage
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close releases the underlying database handle.
func (s *Sink) Close() error { return s.db.Close() }
