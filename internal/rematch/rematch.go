package rematch

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/loteria-client/internal/match"
)

var ErrNoMatch = errors.New("no match to act on")
var ErrNotHost = errors.New("only the host can do that")
var ErrHostConfirms = errors.New("the host is already counted as confirmed")
var ErrAlreadyPending = errors.New("a rematch is already pending")
var ErrNotPending = errors.New("no rematch is pending")
var ErrQuorum = errors.New("not enough players confirmed the rematch")
var ErrNoRetry = errors.New("no failed rematch proposal to retry")

type State string

const (
	StateNone            State = "none"
	StateProposalPending State = "proposal-pending"
	StateQuorumReached   State = "quorum-reached"
	StateRejected        State = "rejected"
	StateCreated         State = "created"
)

// RequiredQuorum is the number of explicit confirmations the host needs before
// creating a rematch. Matches start with at least four players, so in practice
// this is maxPlayers; the floor of two is kept as documented.
func RequiredQuorum(maxPlayers int) int {
	return max(2, maxPlayers)
}

// Status is a read-only view of the coordinator.
type Status struct {
	State          State
	Confirmations  int
	Required       int
	RetryAvailable bool
	NewMatchID     int64
}

// Coordinator tracks the rematch vote for the local user. It is not safe for
// concurrent use; the supervisor loop owns it.
type Coordinator struct {
	state         State
	confirmations int
	required      int
	retry         bool
	newMatchID    int64
}

func NewCoordinator() *Coordinator {
	return &Coordinator{state: StateNone}
}

func (c *Coordinator) Status() Status {
	return Status{
		State:          c.state,
		Confirmations:  c.confirmations,
		Required:       c.required,
		RetryAvailable: c.retry,
		NewMatchID:     c.newMatchID,
	}
}

// CheckInitiate validates a proposal before any network call.
func (c *Coordinator) CheckInitiate(s *match.Snapshot) error {
	if s == nil {
		return ErrNoMatch
	}
	if !s.Viewer.IsHost {
		return ErrNotHost
	}
	if s.Phase == match.PhaseRematchPending {
		return ErrAlreadyPending
	}
	return nil
}

func (c *Coordinator) CheckConfirm(s *match.Snapshot) error {
	if s == nil {
		return ErrNoMatch
	}
	if s.Phase != match.PhaseRematchPending {
		return ErrNotPending
	}
	if s.Viewer.IsHost {
		return ErrHostConfirms
	}
	return nil
}

func (c *Coordinator) CheckCreate(s *match.Snapshot) error {
	if s == nil {
		return ErrNoMatch
	}
	if !s.Viewer.IsHost {
		return ErrNotHost
	}
	if s.Phase != match.PhaseRematchPending {
		return ErrNotPending
	}
	have, need := len(match.UniquePlayers(s.RematchConfirmations)), RequiredQuorum(s.MaxPlayers)
	if have < need {
		return fmt.Errorf("%w: %d of %d", ErrQuorum, have, need)
	}
	return nil
}

// Observe advances the state from a reconciled snapshot.
func (c *Coordinator) Observe(s *match.Snapshot) {
	if s == nil {
		return
	}
	c.confirmations = len(match.UniquePlayers(s.RematchConfirmations))
	c.required = RequiredQuorum(s.MaxPlayers)

	switch s.Phase {
	case match.PhaseRematchPending:
		if c.state == StateRejected || c.state == StateCreated {
			return
		}
		c.retry = false
		if c.confirmations >= c.required {
			c.state = StateQuorumReached
		} else {
			c.state = StateProposalPending
		}
	case match.PhaseStarted, match.PhaseWaiting:
		if c.state != StateCreated {
			c.state = StateNone
		}
	}
}

// ProposalSent records a successful propose command.
func (c *Coordinator) ProposalSent() {
	c.retry = false
	c.state = StateProposalPending
}

// ProposalFailed arms the manual retry path.
func (c *Coordinator) ProposalFailed() {
	c.retry = true
}

func (c *Coordinator) RetryAvailable() bool { return c.retry }

func (c *Coordinator) CheckRetry(s *match.Snapshot) error {
	if !c.retry {
		return ErrNoRetry
	}
	return c.CheckInitiate(s)
}

func (c *Coordinator) Rejected() {
	c.state = StateRejected
}

func (c *Coordinator) Created(newMatchID int64) {
	c.state = StateCreated
	c.newMatchID = newMatchID
}

// Reset forgets the vote, e.g. when the tracked match changes.
func (c *Coordinator) Reset() {
	*c = Coordinator{state: StateNone}
}
