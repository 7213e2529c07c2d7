// Package console renders the engine's views and navigation requests on a
// terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/pterm/pterm"

	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
)

const boardColumns = 4

// Console prints a view only when something a player would notice changed.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	lastView string
	lastNote string
}

func New(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Present(v supervisor.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key := viewKey(v); key != c.lastView {
		c.lastView = key
		c.renderView(v)
	}

	note := ""
	if v.Notification != nil {
		note = v.Notification.Text
	}
	if note != c.lastNote {
		c.lastNote = note
		if v.Notification != nil {
			printerFor(v.Notification.Severity).WithWriter(c.w).Println(note)
		}
	}
}

func (c *Console) GoTo(t match.Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pterm.Info.WithWriter(c.w).Printfln("Navigating to %s", t.Path())
}

func (c *Console) renderView(v supervisor.View) {
	s := v.Snapshot
	if s == nil {
		pterm.Info.WithWriter(c.w).Printfln("Match #%d: %s, waiting for data", v.MatchID, v.Status)
		return
	}

	role := "player"
	if s.Viewer.IsHost {
		role = "host"
	}
	pterm.Info.WithWriter(c.w).Printfln("Match #%d (%s) players %d/%d, you are the %s",
		s.MatchID, s.Phase, s.TotalPlayers, s.MaxPlayers, role)

	if s.CurrentCard != nil {
		pterm.Info.WithWriter(c.w).Printfln("Current card: %d %s (%d announced)",
			s.CurrentCard.Number, s.CurrentCard.Name, len(s.AnnouncedCards))
	}
	if s.Phase == match.PhaseRematchPending {
		pterm.Info.WithWriter(c.w).Printfln("Rematch: %d of %d confirmed",
			v.Rematch.Confirmations, v.Rematch.Required)
	}
	if v.Board != nil && len(v.Board.Cards) > 0 {
		_ = pterm.DefaultTable.WithWriter(c.w).WithData(boardRows(v.Board)).Render()
	}
}

// boardRows lays the board out in a grid; marked slots are bracketed.
func boardRows(b *match.Board) pterm.TableData {
	var rows pterm.TableData
	var row []string
	for i, card := range b.Cards {
		cell := strconv.Itoa(i) + ": " + card.Name
		if i < len(b.Marks) && b.Marks[i] {
			cell = "[" + cell + "]"
		}
		row = append(row, cell)
		if len(row) == boardColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func printerFor(sev notify.Severity) *pterm.PrefixPrinter {
	switch sev {
	case notify.SeverityError:
		return &pterm.Error
	case notify.SeverityWarning:
		return &pterm.Warning
	default:
		return &pterm.Success
	}
}

func viewKey(v supervisor.View) string {
	s := v.Snapshot
	if s == nil {
		return fmt.Sprintf("%d|%s", v.MatchID, v.Status)
	}
	card := int64(0)
	if s.CurrentCard != nil {
		card = s.CurrentCard.ID
	}
	marks := 0
	if v.Board != nil {
		for _, m := range v.Board.Marks {
			if m {
				marks++
			}
		}
	}
	return fmt.Sprintf("%d|%s|%s|%d|%d|%d|%d|%d", s.MatchID, v.Status, s.Phase, s.TotalPlayers,
		card, marks, v.Rematch.Confirmations, len(s.Cheaters))
}
