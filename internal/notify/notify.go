// Package notify holds the single user-facing message the engine shows at a
// time. A newer message replaces the current one instead of queueing behind it,
// and every message expires after its time-to-live.
package notify

import (
	"strings"
	"sync"
	"time"
)

const DefaultTTL = 10 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notification struct {
	Text      string
	Severity  Severity
	CreatedAt time.Time
	TTL       time.Duration
}

func (n Notification) ExpiresAt() time.Time { return n.CreatedAt.Add(n.TTL) }

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(after func(time.Duration, func()) Stopper) Option {
	return func(m *Manager) { m.afterFunc = after }
}

type Manager struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) Stopper
	current   *Notification
	timer     Stopper
	seq       uint64
	onChange  func()
}

func NewManager(ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		ttl: ttl,
		now: time.Now,
		afterFunc: func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers a hook called after every post, clear and expiry.
// The hook runs without the manager's lock held.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) Post(text string) {
	m.PostWithSeverity(SeverityInfo, text)
}

// PostLines combines lines raised in the same pass into one message.
func (m *Manager) PostLines(severity Severity, lines ...string) {
	kept := lines[:0:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return
	}
	m.PostWithSeverity(severity, strings.Join(kept, "\n"))
}

func (m *Manager) PostWithSeverity(severity Severity, text string) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.seq++
	seq := m.seq
	m.current = &Notification{Text: text, Severity: severity, CreatedAt: m.now(), TTL: m.ttl}
	m.timer = m.afterFunc(m.ttl, func() { m.expire(seq) })
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// expire clears the message posted as seq. A timer that lost the race against
// a newer Post finds a different seq and does nothing.
func (m *Manager) expire(seq uint64) {
	m.mu.Lock()
	if seq != m.seq || m.current == nil {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.timer = nil
	hook := m.onChange
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (m *Manager) Clear() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.seq++
	had := m.current != nil
	m.current = nil
	hook := m.onChange
	m.mu.Unlock()

	if had && hook != nil {
		hook()
	}
}

// Active returns a copy of the current message if it has not expired.
func (m *Manager) Active() (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.now().Before(m.current.ExpiresAt()) {
		return Notification{}, false
	}
	return *m.current, true
}
