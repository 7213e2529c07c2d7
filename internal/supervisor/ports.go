package supervisor

import (
	"context"
	"time"

	"github.com/DoyleJ11/loteria-client/internal/match"
)

// Fetcher reads one snapshot per call.
type Fetcher interface {
	Fetch(ctx context.Context) (*match.Snapshot, error)
}

// Commands are the user-initiated operations sent to the game server.
type Commands interface {
	StartMatch(ctx context.Context) error
	RevealCard(ctx context.Context) error
	MarkSlot(ctx context.Context, position int) (match.MarkResult, error)
	LeaveMatch(ctx context.Context) error
	EndMatch(ctx context.Context) error
	ProposeRematch(ctx context.Context) error
	ConfirmRematch(ctx context.Context, accept bool) error
	CreateRematch(ctx context.Context) (int64, error)
}

type AuthRefresher interface {
	Refresh(ctx context.Context) error
}

// Navigator receives fire-and-forget navigation requests.
type Navigator interface {
	GoTo(target match.Target)
}

// Presenter receives read-only copies of what the engine currently shows.
// It is called from the supervisor loop and must not block.
type Presenter interface {
	Present(v View)
}

type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot timers; tests replace it to drive ticks by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type noopNavigator struct{}

func (noopNavigator) GoTo(match.Target) {}

type noopPresenter struct{}

func (noopPresenter) Present(View) {}

// Presenters fans a view out to several presenters.
type Presenters []Presenter

func (ps Presenters) Present(v View) {
	for _, p := range ps {
		p.Present(v)
	}
}

// Navigators fans a navigation request out to several navigators.
type Navigators []Navigator

func (ns Navigators) GoTo(t match.Target) {
	for _, n := range ns {
		n.GoTo(t)
	}
}
