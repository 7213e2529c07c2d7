package engine

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/loteria-client/internal/match"
)

type EventKind string

const (
	EvtInvalidated      EventKind = "Invalidated"
	EvtBoardReset       EventKind = "BoardReset"
	EvtRedirected       EventKind = "Redirected"
	EvtWinnerDeclared   EventKind = "WinnerDeclared"
	EvtCheatersDetected EventKind = "CheatersDetected"
	EvtSelfFlagged      EventKind = "SelfFlagged"
	EvtRematchProposed  EventKind = "RematchProposed"
	EvtBoardUpdated     EventKind = "BoardUpdated"
)

/*
	Evaluation order is fixed:
	Invalidated (terminal, nothing after it) -> BoardReset -> Redirected ->
	WinnerDeclared -> CheatersDetected | SelfFlagged -> RematchProposed -> BoardUpdated
	SelfFlagged suppresses CheatersDetected for the same pass.
*/

type Event struct {
	Kind    EventKind
	MatchID int64
	// Redirected only.
	FromMatchID int64
	// WinnerDeclared only.
	WinnerID    int64
	WinnerEmail string
	Self        bool
	// CheatersDetected only, in server order.
	Cheaters []match.Player
	// Invalidated only.
	Reason string
}

// SessionState is everything the engine remembers between polls. It is a value:
// Reconcile returns a new one and never mutates its input.
type SessionState struct {
	MatchID         int64
	Previous        *match.Snapshot
	PrevPhase       match.Phase
	SeenCheaters    map[int64]string
	WinnerNotified  bool
	RematchPrompted bool
	Board           *match.Board
}

func (s SessionState) clone() SessionState {
	c := s
	c.SeenCheaters = maps.Clone(s.SeenCheaters)
	if c.SeenCheaters == nil {
		c.SeenCheaters = map[int64]string{}
	}
	c.Board = s.Board.Clone()
	return c
}

// Reconcile compares the current snapshot with what the session has seen so far
// and returns the ordered events plus the next session state.
func Reconcile(prev SessionState, cur *match.Snapshot) ([]Event, SessionState) {
	next := prev.clone()

	if reason, bad := invalid(prev, cur); bad {
		next.MatchID = 0
		next.Previous = nil
		next.PrevPhase = ""
		next.SeenCheaters = map[int64]string{}
		next.Board = nil
		return []Event{{Kind: EvtInvalidated, MatchID: prev.MatchID, Reason: reason}}, next
	}

	var events []Event
	previous := prev.Previous

	if prev.MatchID == 0 {
		// First observation adopts whatever match the server reports.
		next.MatchID = cur.MatchID
	}

	if prev.PrevPhase == match.PhaseRematchPending && cur.Phase == match.PhaseStarted {
		events = append(events, Event{Kind: EvtBoardReset, MatchID: cur.MatchID})
		next.Board = nil
		next.RematchPrompted = false
	}

	if prev.MatchID != 0 && cur.MatchID != prev.MatchID {
		events = append(events, Event{Kind: EvtRedirected, MatchID: cur.MatchID, FromMatchID: prev.MatchID})
		next.MatchID = cur.MatchID
		next.SeenCheaters = map[int64]string{}
		next.WinnerNotified = false
		next.RematchPrompted = false
		// Per-match history does not carry over to the new match.
		previous = nil
	}

	if cur.Phase == match.PhaseFinished && cur.HasWinner() && !next.WinnerNotified {
		events = append(events, Event{
			Kind:        EvtWinnerDeclared,
			MatchID:     cur.MatchID,
			WinnerID:    *cur.WinnerID,
			WinnerEmail: cur.WinnerEmail,
			Self:        cur.ViewerIsWinner(),
		})
		next.WinnerNotified = true
	}

	selfFlagged := cur.Viewer.IsCheater && (previous == nil || !previous.Viewer.IsCheater)
	if fresh := newCheaters(next.SeenCheaters, cur); len(fresh) > 0 && !cur.Viewer.IsCheater {
		events = append(events, Event{Kind: EvtCheatersDetected, MatchID: cur.MatchID, Cheaters: fresh})
	}
	for _, c := range cur.Cheaters {
		if c.ID != cur.Viewer.UserID {
			next.SeenCheaters[c.ID] = c.Email
		}
	}
	if selfFlagged {
		events = append(events, Event{Kind: EvtSelfFlagged, MatchID: cur.MatchID})
	}

	if cur.Phase == match.PhaseRematchPending && !cur.Viewer.IsHost && !cur.Viewer.IsCheater &&
		!next.RematchPrompted && !cur.HasConfirmed(cur.Viewer.UserID) {
		events = append(events, Event{Kind: EvtRematchProposed, MatchID: cur.MatchID})
		next.RematchPrompted = true
	}

	if cur.Board != nil && !cur.Board.Equal(next.Board) {
		events = append(events, Event{Kind: EvtBoardUpdated, MatchID: cur.MatchID})
		next.Board = cur.Board.Clone()
	}

	next.Previous = cur.Clone()
	next.PrevPhase = cur.Phase
	return events, next
}

func invalid(prev SessionState, cur *match.Snapshot) (string, bool) {
	if cur == nil {
		return "no match reported", true
	}
	if err := cur.Validate(); err != nil {
		return err.Error(), true
	}
	if prev.MatchID != 0 && cur.MatchID != prev.MatchID && prev.PrevPhase != match.PhaseRematchPending {
		return "match does not match the tracked match", true
	}
	return "", false
}

// newCheaters returns flagged players not seen before, excluding the viewer.
func newCheaters(seen map[int64]string, cur *match.Snapshot) []match.Player {
	var fresh []match.Player
	for _, c := range match.UniquePlayers(cur.Cheaters) {
		if c.ID == cur.Viewer.UserID {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return slices.Clip(fresh)
}
