package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(_ time.Duration, fn func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(DefaultTTL, WithClock(clock.Now), WithAfterFunc(clock.AfterFunc))
	return m, clock
}

func TestPostSupersedesPrevious(t *testing.T) {
	m, clock := newTestManager()

	m.Post("first")
	m.Post("second")

	n, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "second", n.Text)
	assert.Equal(t, DefaultTTL, n.TTL)
	require.Len(t, clock.timers, 2)
	assert.True(t, clock.timers[0].stopped, "first expiry timer should be cancelled")
	assert.False(t, clock.timers[1].stopped)
}

func TestStaleExpiryDoesNotClearNewerMessage(t *testing.T) {
	m, clock := newTestManager()

	m.Post("first")
	m.Post("second")
	// The first timer fired before Stop could cancel it.
	clock.timers[0].fn()

	n, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "second", n.Text)

	clock.timers[1].fn()
	_, ok = m.Active()
	assert.False(t, ok)
}

func TestActiveHonoursTTL(t *testing.T) {
	m, clock := newTestManager()
	m.Post("hello")

	clock.advance(DefaultTTL - time.Millisecond)
	_, ok := m.Active()
	assert.True(t, ok)

	clock.advance(time.Millisecond)
	_, ok = m.Active()
	assert.False(t, ok)
}

func TestPostLinesCombinesIntoOneMessage(t *testing.T) {
	m, clock := newTestManager()
	changes := 0
	m.OnChange(func() { changes++ })

	m.PostLines(SeverityWarning, "Cheating detected: x@y", " ", "Congratulations, you won!")

	n, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "Cheating detected: x@y\nCongratulations, you won!", n.Text)
	assert.Equal(t, SeverityWarning, n.Severity)
	assert.Equal(t, 1, changes)
	assert.Len(t, clock.timers, 1)

	m.PostLines(SeverityInfo)
	assert.Equal(t, 1, changes, "empty pass posts nothing")
}

func TestClear(t *testing.T) {
	m, clock := newTestManager()
	changes := 0
	m.OnChange(func() { changes++ })

	m.Post("bye")
	m.Clear()
	_, ok := m.Active()
	assert.False(t, ok)
	assert.True(t, clock.timers[0].stopped)
	assert.Equal(t, 2, changes)

	m.Clear()
	assert.Equal(t, 2, changes, "clearing nothing is silent")
}
