package engine

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/loteria-client/internal/match"
)

const (
	MsgMatchGone       = "The match ended or does not exist"
	MsgYouWon          = "Congratulations, you won!"
	MsgExpelled        = "You have been expelled from the match for cheating"
	MsgRematchStarted  = "The rematch has started"
	MsgRematchProposed = "The host proposed a rematch, accept or reject it"
)

// Effects is the union of everything a reconciliation pass asks the supervisor
// to do. Applying it twice has the same outcome as applying it once.
type Effects struct {
	StopPolling    bool
	ClearPersisted bool
	Persist        int64
	Navigate       *match.Target
	ResetBoard     bool
	PromptRematch  bool
	Terminal       bool
	Lines          []string
}

// Notify reports whether the pass produced anything worth showing.
func (e Effects) Notify() bool { return len(e.Lines) > 0 }

// Message joins all lines so one tick posts exactly one notification.
func (e Effects) Message() string { return strings.Join(e.Lines, "\n") }

// Plan folds events into effects. Terminal events win over redirects: once the
// session is over nothing is persisted and navigation goes home.
func Plan(events []Event) Effects {
	var fx Effects
	for _, ev := range events {
		switch ev.Kind {
		case EvtInvalidated:
			fx.terminal()
			fx.Lines = []string{MsgMatchGone}
			return fx

		case EvtBoardReset:
			fx.ResetBoard = true
			fx.Lines = append(fx.Lines, MsgRematchStarted)

		case EvtRedirected:
			if !fx.Terminal {
				fx.Persist = ev.MatchID
				target := match.MatchPage(ev.MatchID)
				fx.Navigate = &target
			}
			fx.Lines = append(fx.Lines, fmt.Sprintf("Moved to rematch #%d", ev.MatchID))

		case EvtWinnerDeclared:
			fx.terminal()
			fx.Lines = append(fx.Lines, winnerLine(ev))

		case EvtCheatersDetected:
			emails := make([]string, 0, len(ev.Cheaters))
			for _, c := range ev.Cheaters {
				emails = append(emails, c.Email)
			}
			fx.Lines = append(fx.Lines, "Cheating detected: "+strings.Join(emails, ", "))

		case EvtSelfFlagged:
			fx.terminal()
			fx.Lines = append(fx.Lines, MsgExpelled)

		case EvtRematchProposed:
			fx.PromptRematch = true
			fx.Lines = append(fx.Lines, MsgRematchProposed)
		}
	}
	return fx
}

func (fx *Effects) terminal() {
	fx.Terminal = true
	fx.StopPolling = true
	fx.ClearPersisted = true
	fx.Persist = 0
	home := match.Home()
	fx.Navigate = &home
}

func winnerLine(ev Event) string {
	if ev.Self {
		return MsgYouWon
	}
	if ev.WinnerEmail != "" {
		return ev.WinnerEmail + " won the match"
	}
	return "Another player won the match"
}
