package supervisor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/loteria-client/internal/engine"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
	"github.com/DoyleJ11/loteria-client/internal/rematch"
	"github.com/DoyleJ11/loteria-client/internal/store"
)

var ErrClosed = errors.New("supervisor closed")
var ErrNoMatch = errors.New("no match to follow")
var ErrStopped = errors.New("polling stopped")
var ErrResumeInProgress = errors.New("resume already in progress")

const (
	DefaultPollInterval = 2 * time.Second
	defaultStoreTimeout = 3 * time.Second
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPolling Status = "polling"
)

// View is a read-only copy of the engine state for presenters.
type View struct {
	Status       Status
	Generation   uint64
	MatchID      int64
	InFlight     bool
	Snapshot     *match.Snapshot
	Board        *match.Board
	Notification *notify.Notification
	Rematch      rematch.Status
}

type Msg interface{ isSupervisorMsg() }

type startMsg struct {
	MatchID int64
	Reply   chan error
}

type stopMsg struct{ Reply chan struct{} }

type resumeMsg struct{ Reply chan error }

type viewMsg struct{ Reply chan View }

type commandMsg struct {
	Cmd   Command
	Reply chan error
}

type shutdownMsg struct{}

type tickMsg struct{ Gen, Seq uint64 }

type fetchResult struct {
	Gen  uint64
	Snap *match.Snapshot
	Err  error
}

type commandResult struct {
	Gen   uint64
	Cmd   Command
	Mark  match.MarkResult
	NewID int64
	Err   error
	Reply chan error
}

func (startMsg) isSupervisorMsg()      {}
func (stopMsg) isSupervisorMsg()       {}
func (resumeMsg) isSupervisorMsg()     {}
func (viewMsg) isSupervisorMsg()       {}
func (commandMsg) isSupervisorMsg()    {}
func (shutdownMsg) isSupervisorMsg()   {}
func (tickMsg) isSupervisorMsg()       {}
func (fetchResult) isSupervisorMsg()   {}
func (commandResult) isSupervisorMsg() {}

type Config struct {
	PollInterval time.Duration
	StoreTimeout time.Duration
}

// Deps are the collaborators the supervisor drives. Fetcher, Commands, Auth,
// Store and Notifier are required.
type Deps struct {
	Fetcher   Fetcher
	Commands  Commands
	Auth      AuthRefresher
	Store     store.MatchStore
	Notifier  *notify.Manager
	Navigator Navigator
	Presenter Presenter
	Scheduler Scheduler
	Logger    *zap.Logger
}

// Supervisor owns the poll cadence and every piece of mutable engine state.
// All state lives on the loop goroutine; fetches and commands run in their own
// goroutines and report back through the inbox tagged with a generation.
type Supervisor struct {
	inbox   chan Msg
	changed chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	cfg       Config
	fetcher   Fetcher
	commands  Commands
	auth      AuthRefresher
	store     store.MatchStore
	notifier  *notify.Manager
	navigator Navigator
	presenter Presenter
	scheduler Scheduler
	log       *zap.Logger
	refreshes singleflight.Group

	status      Status
	gen         uint64
	fetching    bool
	fetchCancel context.CancelFunc
	repoll      bool
	timer       Timer
	timerSeq    uint64
	probeID     int64
	probeReply  chan error

	session  engine.SessionState
	snapshot *match.Snapshot
	votes    *rematch.Coordinator
}

func New(parent context.Context, cfg Config, deps Deps) (*Supervisor, error) {
	if deps.Fetcher == nil || deps.Commands == nil || deps.Auth == nil || deps.Store == nil || deps.Notifier == nil {
		return nil, errors.New("supervisor: fetcher, commands, auth, store and notifier are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if deps.Navigator == nil {
		deps.Navigator = noopNavigator{}
	}
	if deps.Presenter == nil {
		deps.Presenter = noopPresenter{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = realScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		inbox:     make(chan Msg, 64),
		changed:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		commands:  deps.Commands,
		auth:      deps.Auth,
		store:     deps.Store,
		notifier:  deps.Notifier,
		navigator: deps.Navigator,
		presenter: deps.Presenter,
		scheduler: deps.Scheduler,
		log:       deps.Logger,
		status:    StatusIdle,
		session:   engine.NewSessionState(0),
		votes:     rematch.NewCoordinator(),
	}
	deps.Notifier.OnChange(func() {
		select {
		case s.changed <- struct{}{}:
		default:
		}
	})

	go s.loop()
	return s, nil
}

func (s *Supervisor) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-s.changed:
			s.present()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case startMsg:
				msg.Reply <- s.start(msg.MatchID)

			case stopMsg:
				s.stopPolling()
				s.present()
				close(msg.Reply)

			case resumeMsg:
				s.resume(msg.Reply)

			case viewMsg:
				msg.Reply <- s.view()

			case commandMsg:
				s.handleCommand(msg)

			case tickMsg:
				s.handleTick(msg)

			case fetchResult:
				s.handleFetch(msg)

			case commandResult:
				s.handleCommandResult(msg)

			case shutdownMsg:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Supervisor) shutdown() {
	if s.probeReply != nil {
		s.probeReply <- ErrClosed
		s.probeReply = nil
	}
	s.stopPolling()
	s.cancel()
}

// post hands a message from a worker goroutine to the loop. It gives up once
// the loop is gone so late results never leak goroutines.
func (s *Supervisor) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Supervisor) send(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func await[T any](ctx context.Context, s *Supervisor, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}
}

// Start begins polling matchID. A zero id keeps following the tracked match.
// Calling Start while already polling the same match does nothing.
func (s *Supervisor) Start(ctx context.Context, matchID int64) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, startMsg{MatchID: matchID, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// Stop ends polling. It returns without waiting for an in-flight fetch; the
// fetch's result is discarded when it lands.
func (s *Supervisor) Stop(ctx context.Context) error {
	reply := make(chan struct{})
	if err := s.send(ctx, stopMsg{Reply: reply}); err != nil {
		return err
	}
	_, err := await(ctx, s, reply)
	return err
}

// Resume picks up the persisted match if it is still live. It returns ErrNoMatch
// when nothing is persisted or the match is over.
func (s *Supervisor) Resume(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, resumeMsg{Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (s *Supervisor) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, viewMsg{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

// Close stops polling and ends the loop.
func (s *Supervisor) Close() {
	select {
	case s.inbox <- shutdownMsg{}:
	case <-s.done:
		return
	}
	<-s.done
}

func (s *Supervisor) view() View {
	v := View{
		Status:     s.status,
		Generation: s.gen,
		MatchID:    s.session.MatchID,
		InFlight:   s.fetching,
		Snapshot:   s.snapshot.Clone(),
		Board:      s.session.Board.Clone(),
		Rematch:    s.votes.Status(),
	}
	if n, ok := s.notifier.Active(); ok {
		v.Notification = &n
	}
	return v
}

func (s *Supervisor) present() {
	s.presenter.Present(s.view())
}

func (s *Supervisor) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.StoreTimeout)
}

func (s *Supervisor) persist(matchID int64) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.store.Save(ctx, matchID); err != nil {
		s.log.Warn("persist match id", zap.Int64("match_id", matchID), zap.Error(err))
	}
}

func (s *Supervisor) clearPersisted() {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("clear persisted match id", zap.Error(err))
	}
}
