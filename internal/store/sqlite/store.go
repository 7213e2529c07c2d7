package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/DoyleJ11/loteria-client/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS current_match (
	slot INTEGER PRIMARY KEY CHECK (slot = 1),
	match_id INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store provides SQLite-backed current match persistence.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (creating if needed) the SQLite file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Load(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, store.ErrNotConfigured
	}
	var id int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT match_id FROM current_match WHERE slot = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load current match: %w", err)
	}
	return id, nil
}

func (s *Store) Save(ctx context.Context, matchID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return store.ErrNotConfigured
	}
	if matchID <= 0 {
		return store.ErrInvalidMatchID
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO current_match (slot, match_id, updated_at) VALUES (1, ?, ?)
ON CONFLICT(slot) DO UPDATE SET match_id = excluded.match_id, updated_at = excluded.updated_at
`, matchID, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save current match: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return store.ErrNotConfigured
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM current_match WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear current match: %w", err)
	}
	return nil
}

var _ store.MatchStore = (*Store)(nil)
