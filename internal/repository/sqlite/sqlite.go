// Package sqlite persists emitter snapshots, the event archive, and
// recorded observation sequences for replay.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wifiradar/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository is the sqlite-backed store.
type Repository struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS emitters (
		address TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		revealed_name TEXT NOT NULL DEFAULT '',
		channel INTEGER NOT NULL DEFAULT 0,
		first_seen DATETIME,
		last_seen DATETIME,
		observation_count INTEGER NOT NULL DEFAULT 0,
		data JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		subject TEXT,
		summary TEXT NOT NULL,
		detail JSON,
		ts DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS observations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		ts DATETIME NOT NULL,
		data JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject);
	CREATE INDEX IF NOT EXISTS idx_observations_addr ON observations(address);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveEmitter upserts one emitter snapshot.
func (r *Repository) SaveEmitter(ctx context.Context, rec domain.EmitterRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal emitter %s: %w", rec.Address, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO emitters (address, name, revealed_name, channel, first_seen, last_seen, observation_count, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(address) DO UPDATE SET
			name = excluded.name,
			revealed_name = excluded.revealed_name,
			channel = excluded.channel,
			last_seen = excluded.last_seen,
			observation_count = excluded.observation_count,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, rec.Address, rec.Name, rec.RevealedName, rec.Channel,
		rec.FirstSeen, rec.LastSeen, rec.ObservationCount, data)
	if err != nil {
		return fmt.Errorf("save emitter %s: %w", rec.Address, err)
	}
	return nil
}

// AppendEvent archives one feed event. The archive is append-only; feed
// capacity eviction does not touch it.
func (r *Repository) AppendEvent(ctx context.Context, ev domain.Event) error {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (id, category, severity, subject, summary, detail, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Category), string(ev.Severity), ev.Subject, ev.Summary, detail, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

// AppendObservation records one observation for later replay.
func (r *Repository) AppendObservation(ctx context.Context, obs domain.Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO observations (address, ts, data) VALUES (?, ?, ?)
	`, obs.Address, obs.Timestamp, data)
	if err != nil {
		return fmt.Errorf("append observation %s: %w", obs.Address, err)
	}
	return nil
}

// LoadObservations returns the recorded observation sequence in ingest
// order, for deterministic replay through a fresh world model.
func (r *Repository) LoadObservations(ctx context.Context) ([]domain.Observation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM observations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		var obs domain.Observation
		if err := json.Unmarshal(data, &obs); err != nil {
			return nil, fmt.Errorf("unmarshal observation: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// ListEvents returns archived events newest first, bounded by limit.
func (r *Repository) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, severity, subject, summary, detail, ts
		FROM events ORDER BY ts DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			ev       domain.Event
			category string
			severity string
			subject  sql.NullString
			detail   []byte
			ts       time.Time
		)
		if err := rows.Scan(&ev.ID, &category, &severity, &subject, &ev.Summary, &detail, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Category = domain.EventCategory(category)
		ev.Severity = domain.Severity(severity)
		ev.Subject = subject.String
		ev.Timestamp = ts
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &ev.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal event detail: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
