package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
	"github.com/DoyleJ11/loteria-client/internal/store"
)

type fetchStep struct {
	snap *match.Snapshot
	err  error
}

// fakeFetcher replays steps in order and repeats the last one forever.
// When gate is set, every call blocks until the gate is closed.
type fakeFetcher struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
	gate  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*match.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	var step fetchStep
	if len(f.steps) > 0 {
		step = f.steps[0]
		if len(f.steps) > 1 {
			f.steps = f.steps[1:]
		}
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return step.snap.Clone(), step.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) Push(steps ...fetchStep) {
	f.mu.Lock()
	f.steps = append(f.steps, steps...)
	f.mu.Unlock()
}

// Replace drops any queued steps.
func (f *fakeFetcher) Replace(steps ...fetchStep) {
	f.mu.Lock()
	f.steps = steps
	f.mu.Unlock()
}

type fakeCommands struct {
	mu      sync.Mutex
	calls   map[string]int
	errs    map[string][]error
	mark    match.MarkResult
	newID   int64
	accepts []bool
	gate    chan struct{}
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{calls: map[string]int{}, errs: map[string][]error{}}
}

// FailNext makes the next call to name return err.
func (c *fakeCommands) FailNext(name string, err error) {
	c.mu.Lock()
	c.errs[name] = append(c.errs[name], err)
	c.mu.Unlock()
}

func (c *fakeCommands) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// record counts the call, then holds it until gate is closed when one is set.
func (c *fakeCommands) record(name string) error {
	c.mu.Lock()
	c.calls[name]++
	var err error
	if q := c.errs[name]; len(q) > 0 {
		c.errs[name] = q[1:]
		err = q[0]
	}
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (c *fakeCommands) StartMatch(context.Context) error { return c.record("start") }
func (c *fakeCommands) RevealCard(context.Context) error { return c.record("reveal") }
func (c *fakeCommands) LeaveMatch(context.Context) error { return c.record("leave") }
func (c *fakeCommands) EndMatch(context.Context) error { return c.record("end") }

func (c *fakeCommands) ProposeRematch(context.Context) error { return c.record("propose") }

func (c *fakeCommands) MarkSlot(_ context.Context, _ int) (match.MarkResult, error) {
	if err := c.record("mark"); err != nil {
		return match.MarkResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mark, nil
}

func (c *fakeCommands) ConfirmRematch(_ context.Context, accept bool) error {
	c.mu.Lock()
	c.accepts = append(c.accepts, accept)
	c.mu.Unlock()
	return c.record("confirm")
}

func (c *fakeCommands) CreateRematch(context.Context) (int64, error) {
	if err := c.record("create"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newID, nil
}

type fakeAuth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeAuth) Refresh(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *fakeAuth) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeNavigator struct {
	mu      sync.Mutex
	targets []match.Target
}

func (n *fakeNavigator) GoTo(t match.Target) {
	n.mu.Lock()
	n.targets = append(n.targets, t)
	n.mu.Unlock()
}

func (n *fakeNavigator) Targets() []match.Target {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]match.Target(nil), n.targets...)
}

func (n *fakeNavigator) Last() (match.Target, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.targets) == 0 {
		return match.Target{}, false
	}
	return n.targets[len(n.targets)-1], true
}

// fakeScheduler never fires on its own; tests call Fire.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	sched *fakeScheduler
	f     func()
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{sched: s, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Armed counts timers that are neither stopped nor fired.
func (s *fakeScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Fire runs every armed timer.
func (s *fakeScheduler) Fire() {
	s.mu.Lock()
	var due []func()
	for _, t := range s.timers {
		if !t.done {
			t.done = true
			due = append(due, t.f)
		}
	}
	s.mu.Unlock()
	for _, f := range due {
		f()
	}
}

// FireAll runs every timer ever armed, stopped ones included, to mimic ticks
// that were already queued when the timer was stopped.
func (s *fakeScheduler) FireAll() {
	s.mu.Lock()
	due := make([]func(), 0, len(s.timers))
	for _, t := range s.timers {
		t.done = true
		due = append(due, t.f)
	}
	s.mu.Unlock()
	for _, f := range due {
		f()
	}
}

type nopStopper struct{}

func (nopStopper) Stop() bool { return true }

type harness struct {
	sup   *Supervisor
	fetch *fakeFetcher
	cmds  *fakeCommands
	auth  *fakeAuth
	nav   *fakeNavigator
	sched *fakeScheduler
	store *store.Memory
	notes *notify.Manager
}

func newHarness(t *testing.T, steps ...fetchStep) *harness {
	t.Helper()
	h := &harness{
		fetch: &fakeFetcher{steps: steps},
		cmds:  newFakeCommands(),
		auth:  &fakeAuth{},
		nav:   &fakeNavigator{},
		sched: &fakeScheduler{},
		store: store.NewMemory(),
		notes: notify.NewManager(time.Minute, notify.WithAfterFunc(func(time.Duration, func()) notify.Stopper {
			return nopStopper{}
		})),
	}
	sup, err := New(context.Background(), Config{PollInterval: time.Second}, Deps{
		Fetcher:   h.fetch,
		Commands:  h.cmds,
		Auth:      h.auth,
		Store:     h.store,
		Notifier:  h.notes,
		Navigator: h.nav,
		Scheduler: h.sched,
	})
	require.NoError(t, err)
	t.Cleanup(sup.Close)
	h.sup = sup
	return h
}

func (h *harness) view(t *testing.T) View {
	t.Helper()
	v, err := h.sup.View(context.Background())
	require.NoError(t, err)
	return v
}

// settle waits until the loop has handled the latest fetch and either armed
// the next tick or gone idle.
func (h *harness) settle(t *testing.T) View {
	t.Helper()
	var v View
	require.Eventually(t, func() bool {
		got, err := h.sup.View(context.Background())
		if err != nil {
			return false
		}
		v = got
		return !v.InFlight && (v.Status == StatusIdle || h.sched.Armed() == 1)
	}, time.Second, 5*time.Millisecond)
	return v
}

// tick fires the armed timer and waits for the resulting fetch to land.
func (h *harness) tick(t *testing.T) View {
	t.Helper()
	before := h.fetch.Calls()
	h.sched.Fire()
	require.Eventually(t, func() bool { return h.fetch.Calls() > before }, time.Second, 5*time.Millisecond)
	return h.settle(t)
}

func (h *harness) persisted(t *testing.T) int64 {
	t.Helper()
	id, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return id
}

func (h *harness) notification() string {
	n, ok := h.notes.Active()
	if !ok {
		return ""
	}
	return n.Text
}

func snapshot(id int64, phase match.Phase, opts ...func(*match.Snapshot)) *match.Snapshot {
	s := &match.Snapshot{
		MatchID:      id,
		Phase:        phase,
		TotalPlayers: 4,
		MaxPlayers:   4,
		Viewer:       match.Viewer{UserID: 1, Email: "me@t"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func asHost(s *match.Snapshot) { s.Viewer.IsHost = true }

func winner(id int64, email string) func(*match.Snapshot) {
	return func(s *match.Snapshot) {
		s.WinnerID = &id
		s.WinnerEmail = email
	}
}

func confirmedBy(ids ...int64) func(*match.Snapshot) {
	return func(s *match.Snapshot) {
		for _, id := range ids {
			s.RematchConfirmations = append(s.RematchConfirmations, match.Player{ID: id})
		}
	}
}

func withBoard(n int) func(*match.Snapshot) {
	return func(s *match.Snapshot) {
		s.Board = &match.Board{Cards: make([]match.Card, n), Marks: make([]bool, n)}
		for i := range s.Board.Cards {
			s.Board.Cards[i] = match.Card{ID: int64(i + 1)}
		}
	}
}

func okStep(s *match.Snapshot) fetchStep { return fetchStep{snap: s} }

func failStep(kind failure.Kind) fetchStep {
	return fetchStep{err: failure.New(kind, string(kind)+" failure")}
}
