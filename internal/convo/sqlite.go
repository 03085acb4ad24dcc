package convo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// SQLitePersistence implements Persistence on top of a single-table SQLite
// database, grounded on nexus's internal/memory/backend/sqlitevec.Backend
// (same sql.Open/init/prepared-statement shape, generalized from a vector
// memory table to a JSON-blob conversation snapshot table since snapshots
// carry arbitrary nested state rather than fixed embedding columns).
type SQLitePersistence struct {
	db *sql.DB
}

// SQLiteConfig configures SQLitePersistence.
type SQLiteConfig struct {
	// Path to the database file; ":memory:" for an ephemeral in-process
	// database.
	Path string
}

// DefaultSQLiteConfig returns sensible defaults.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{Path: "swarmcore.db"}
}

// NewSQLitePersistence opens (and initializes) a SQLite-backed Persistence.
func NewSQLitePersistence(cfg SQLiteConfig) (*SQLitePersistence, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("convo: open sqlite: %w", err)
	}
	p := &SQLitePersistence{db: db}
	if err := p.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *SQLitePersistence) Initialize(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("convo: create table: %w", err)
	}
	return nil
}

func (p *SQLitePersistence) Save(ctx context.Context, snapshot Snapshot) error {
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("convo: marshal snapshot: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO conversations (id, snapshot, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, snapshot.ID, string(blob), time.Now())
	if err != nil {
		return fmt.Errorf("convo: save snapshot: %w", err)
	}
	return nil
}

func (p *SQLitePersistence) List(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("convo: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("convo: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *SQLitePersistence) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	var blob string
	err := p.db.QueryRowContext(ctx, `SELECT snapshot FROM conversations WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("convo: load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("convo: unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Close releases the underlying database handle.
func (p *SQLitePersistence) Close() error {
	return p.db.Close()
}
