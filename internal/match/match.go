package match

import (
	"errors"
	"fmt"
	"slices"
)

var ErrMissingMatch = errors.New("snapshot has no match")
var ErrUnknownPhase = errors.New("unknown match phase")
var ErrTooManyConfirmations = errors.New("rematch confirmations exceed max players")
var ErrBoardShape = errors.New("board marks do not match board cards")

type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseStarted        Phase = "started"
	PhaseFinished       Phase = "finished"
	PhaseRematchPending Phase = "rematch-pending"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseStarted, PhaseFinished, PhaseRematchPending:
		return true
	}
	return false
}

type Card struct {
	ID     int64
	Number int
	Name   string
	Image  string
}

type Player struct {
	ID    int64
	Email string
}

// Viewer holds the flags the server reports about the local user.
type Viewer struct {
	UserID    int64
	Email     string
	IsHost    bool
	IsCheater bool
}

type Board struct {
	Cards []Card
	Marks []bool
}

func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	return &Board{Cards: slices.Clone(b.Cards), Marks: slices.Clone(b.Marks)}
}

func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	return slices.Equal(b.Cards, o.Cards) && slices.Equal(b.Marks, o.Marks)
}

// Snapshot is the server-reported state of a match as observed at one poll.
type Snapshot struct {
	MatchID              int64
	Phase                Phase
	TotalPlayers         int
	MaxPlayers           int
	CurrentCard          *Card
	AnnouncedCards       []int64
	WinnerID             *int64
	WinnerEmail          string
	Cheaters             []Player
	RematchConfirmations []Player
	Viewer               Viewer
	Board                *Board
}

// Validate reports why a snapshot cannot be trusted, or nil.
func (s *Snapshot) Validate() error {
	if s == nil || s.MatchID <= 0 {
		return ErrMissingMatch
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPhase, s.Phase)
	}
	if s.MaxPlayers < 0 {
		return fmt.Errorf("max players must not be negative, got %d", s.MaxPlayers)
	}
	// Zero seats means the server did not say; confirmations cannot be bounded.
	if n := len(UniquePlayers(s.RematchConfirmations)); s.MaxPlayers > 0 && n > s.MaxPlayers {
		return fmt.Errorf("%w: %d > %d", ErrTooManyConfirmations, n, s.MaxPlayers)
	}
	if s.Board != nil && len(s.Board.Marks) != len(s.Board.Cards) {
		return ErrBoardShape
	}
	return nil
}

func (s *Snapshot) HasWinner() bool {
	return s.WinnerID != nil && *s.WinnerID > 0
}

func (s *Snapshot) ViewerIsWinner() bool {
	return s.HasWinner() && *s.WinnerID == s.Viewer.UserID
}

func (s *Snapshot) HasConfirmed(userID int64) bool {
	return slices.ContainsFunc(s.RematchConfirmations, func(p Player) bool { return p.ID == userID })
}

// Clone returns a deep copy so presenters never share slices with the engine.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.CurrentCard != nil {
		card := *s.CurrentCard
		c.CurrentCard = &card
	}
	if s.WinnerID != nil {
		id := *s.WinnerID
		c.WinnerID = &id
	}
	c.AnnouncedCards = slices.Clone(s.AnnouncedCards)
	c.Cheaters = slices.Clone(s.Cheaters)
	c.RematchConfirmations = slices.Clone(s.RematchConfirmations)
	c.Board = s.Board.Clone()
	return &c
}

// UniquePlayers deduplicates by user id, keeping first occurrence order.
func UniquePlayers(ps []Player) []Player {
	seen := make(map[int64]bool, len(ps))
	out := make([]Player, 0, len(ps))
	for _, p := range ps {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
