package types

import (
	"time"

	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
)

// ClientMessage is what a feed client sends over the socket.
type ClientMessage struct {
	Type     string `json:"type"` // "Command"
	ID       string `json:"id,omitempty"`
	Command  string `json:"command,omitempty"`
	Position int    `json:"position,omitempty"`
	Accept   bool   `json:"accept,omitempty"`
}

// ServerMessage is what the feed pushes to clients.
type ServerMessage struct {
	Type  string `json:"type"` // "View" | "Navigate" | "Ack" | "Error"
	ID    string `json:"id,omitempty"`
	View  *View  `json:"view,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// CommandRequest is the body of POST /commands/{name}.
type CommandRequest struct {
	Position int  `json:"position,omitempty"`
	Accept   bool `json:"accept,omitempty"`
}

type StartRequest struct {
	MatchID int64 `json:"matchId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type Card struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
}

type Slot struct {
	Card   Card `json:"card"`
	Marked bool `json:"marked"`
}

type Notification struct {
	Text      string `json:"text"`
	Severity  string `json:"severity"`
	ExpiresAt string `json:"expiresAt"`
}

type Rematch struct {
	State          string `json:"state"`
	Confirmations  int    `json:"confirmations"`
	Required       int    `json:"required"`
	RetryAvailable bool   `json:"retryAvailable"`
	NewMatchID     int64  `json:"newMatchId,omitempty"`
}

type View struct {
	Status         string        `json:"status"`
	Generation     uint64        `json:"generation"`
	MatchID        int64         `json:"matchId"`
	InFlight       bool          `json:"inFlight"`
	Phase          string        `json:"phase,omitempty"`
	TotalPlayers   int           `json:"totalPlayers,omitempty"`
	MaxPlayers     int           `json:"maxPlayers,omitempty"`
	CurrentCard    *Card         `json:"currentCard,omitempty"`
	AnnouncedCards []int64       `json:"announcedCards,omitempty"`
	WinnerEmail    string        `json:"winnerEmail,omitempty"`
	Cheaters       []string      `json:"cheaters,omitempty"`
	IsHost         bool          `json:"isHost"`
	IsCheater      bool          `json:"isCheater"`
	Board          []Slot        `json:"board,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
	Rematch        Rematch       `json:"rematch"`
}

func ViewMessage(v supervisor.View) ServerMessage {
	payload := FromView(v)
	return ServerMessage{Type: "View", View: &payload}
}

func NavigateMessage(t match.Target) ServerMessage {
	return ServerMessage{Type: "Navigate", Path: t.Path()}
}

func FromView(v supervisor.View) View {
	out := View{
		Status:     string(v.Status),
		Generation: v.Generation,
		MatchID:    v.MatchID,
		InFlight:   v.InFlight,
		Rematch: Rematch{
			State:          string(v.Rematch.State),
			Confirmations:  v.Rematch.Confirmations,
			Required:       v.Rematch.Required,
			RetryAvailable: v.Rematch.RetryAvailable,
			NewMatchID:     v.Rematch.NewMatchID,
		},
	}
	if s := v.Snapshot; s != nil {
		out.Phase = string(s.Phase)
		out.TotalPlayers = s.TotalPlayers
		out.MaxPlayers = s.MaxPlayers
		out.AnnouncedCards = s.AnnouncedCards
		out.WinnerEmail = s.WinnerEmail
		out.IsHost = s.Viewer.IsHost
		out.IsCheater = s.Viewer.IsCheater
		if s.CurrentCard != nil {
			c := fromCard(*s.CurrentCard)
			out.CurrentCard = &c
		}
		for _, p := range s.Cheaters {
			out.Cheaters = append(out.Cheaters, p.Email)
		}
	}
	if b := v.Board; b != nil {
		out.Board = make([]Slot, len(b.Cards))
		for i, c := range b.Cards {
			out.Board[i] = Slot{Card: fromCard(c), Marked: i < len(b.Marks) && b.Marks[i]}
		}
	}
	if n := v.Notification; n != nil {
		out.Notification = &Notification{
			Text:      n.Text,
			Severity:  string(n.Severity),
			ExpiresAt: n.ExpiresAt().UTC().Format(time.RFC3339),
		}
	}
	return out
}

func fromCard(c match.Card) Card {
	return Card{ID: c.ID, Number: c.Number, Name: c.Name, Image: c.Image}
}

// ToCommand maps a command name from the feed or the control API.
func ToCommand(name string, position int, accept bool) (supervisor.Command, bool) {
	kind := supervisor.CommandKind(name)
	switch kind {
	case supervisor.CmdStartMatch, supervisor.CmdRevealCard, supervisor.CmdLeave, supervisor.CmdEndMatch,
		supervisor.CmdInitiateRematch, supervisor.CmdCreateRematch, supervisor.CmdRetryProposal:
		return supervisor.Command{Kind: kind}, true
	case supervisor.CmdMarkSlot:
		return supervisor.Command{Kind: kind, Position: position}, true
	case supervisor.CmdConfirmRematch:
		return supervisor.Command{Kind: kind, Accept: accept}, true
	default:
		return supervisor.Command{}, false
	}
}
