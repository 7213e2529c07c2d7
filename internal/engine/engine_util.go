package engine

// NewSessionState starts tracking matchID with nothing observed yet.
func NewSessionState(matchID int64) SessionState {
	return SessionState{
		MatchID:      matchID,
		SeenCheaters: map[int64]string{},
	}
}

func ContainsEvent(events []Event, kind EventKind) bool {
	for _, event := range events {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, kind EventKind) (Event, bool) {
	for _, event := range events {
		if event.Kind == kind {
			return event, true
		}
	}
	return Event{}, false
}

// Track switches the session to another match, e.g. after the host created a
// rematch. Per-match flags start over.
func (s SessionState) Track(matchID int64) SessionState {
	next := s.clone()
	if next.MatchID == matchID {
		return next
	}
	next.MatchID = matchID
	next.SeenCheaters = map[int64]string{}
	next.WinnerNotified = false
	next.RematchPrompted = false
	next.Previous = nil
	return next
}
