package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/match"
)

// StateSource is the one read the engine needs from the game server.
type StateSource interface {
	GetMatchState(ctx context.Context) (*match.Snapshot, error)
}

// Fetcher issues exactly one state read per call. It neither retries nor
// interprets errors; the supervisor decides what a failure means.
type Fetcher struct {
	src      StateSource
	identity match.Identity
	log      *zap.Logger
}

func New(src StateSource, identity match.Identity, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{src: src, identity: identity, log: log}
}

// Fetch returns the current snapshot. The server does not always echo the
// user's id in the snapshot, so the authenticated identity fills the gap.
func (f *Fetcher) Fetch(ctx context.Context) (*match.Snapshot, error) {
	started := time.Now()
	snap, err := f.src.GetMatchState(ctx)
	if err != nil {
		f.log.Debug("fetch failed", zap.Duration("took", time.Since(started)), zap.Error(err))
		return nil, err
	}
	if snap != nil {
		if snap.Viewer.UserID == 0 {
			snap.Viewer.UserID = f.identity.ID
		}
		if snap.Viewer.Email == "" {
			snap.Viewer.Email = f.identity.Email
		}
	}
	f.log.Debug("fetched snapshot", zap.Duration("took", time.Since(started)), zap.Bool("has_match", snap != nil))
	return snap, nil
}
