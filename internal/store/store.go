// Package store persists the one scalar the engine remembers across restarts:
// the id of the match the user is currently in.
package store

import (
	"context"
	"sync"
)

// MatchStore loads, saves and clears the current match id. Load returns 0 when
// nothing is stored.
type MatchStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, matchID int64) error
	Clear(ctx context.Context) error
	Close() error
}

// Memory keeps the id for the life of the process.
type Memory struct {
	mu      sync.Mutex
	matchID int64
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchID, nil
}

func (m *Memory) Save(ctx context.Context, matchID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if matchID <= 0 {
		return ErrInvalidMatchID
	}
	m.mu.Lock()
	m.matchID = matchID
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.matchID = 0
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
