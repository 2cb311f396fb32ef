package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id     TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	state      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore stores checkpoints in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for
// a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts cp.
func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) error {
	cp, err := prepare(cp)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, stage, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			stage = excluded.stage,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		cp.RunID, cp.Stage, []byte(cp.State), cp.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.RunID, err)
	}
	return nil
}

// Load returns the checkpoint for runID.
func (s *SQLiteStore) Load(ctx context.Context, runID string) (Checkpoint, error) {
	var (
		cp      Checkpoint
		state   []byte
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, stage, state, updated_at FROM checkpoints WHERE run_id = ?`, runID).
		Scan(&cp.RunID, &cp.Stage, &state, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint %s: %w", runID, err)
	}
	cp.State = state
	cp.UpdatedAt = time.Unix(0, updated)
	return cp, nil
}

// Delete removes the checkpoint for runID.
func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", runID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
