package transport

import (
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/pkg/types"
)

func phaseFromWire(estado string) match.Phase {
	switch estado {
	case "esperando":
		return match.PhaseWaiting
	case "iniciado":
		return match.PhaseStarted
	case "finalizado":
		return match.PhaseFinished
	case "revancha_pendiente":
		return match.PhaseRematchPending
	default:
		// Unknown phases fail snapshot validation downstream.
		return match.Phase(estado)
	}
}

func cardFromWire(c types.MazoCarta) match.Card {
	return match.Card{ID: c.ID, Number: c.Numero, Name: c.Nombre, Image: c.Imagen}
}

func playersFromWire(js []types.Jugador) []match.Player {
	if len(js) == 0 {
		return nil
	}
	out := make([]match.Player, 0, len(js))
	for _, j := range js {
		out = append(out, match.Player{ID: j.ID, Email: j.Email})
	}
	return out
}

// snapshotFromWire returns nil when the server reports no match.
func snapshotFromWire(r types.EstadoJuegoResponse) *match.Snapshot {
	if r.Juego == nil {
		return nil
	}
	j := r.Juego
	seats := j.MaxJugadores
	if seats == 0 {
		// Older servers omit maxJugadores; the seated players are the best bound.
		seats = j.TotalJugadores
	}
	s := &match.Snapshot{
		MatchID:              j.ID,
		Phase:                phaseFromWire(j.Estado),
		TotalPlayers:         j.TotalJugadores,
		MaxPlayers:           seats,
		AnnouncedCards:       j.CartasAnunciadas,
		WinnerID:             j.GanadorID,
		WinnerEmail:          j.GanadorEmail,
		Cheaters:             playersFromWire(j.Tramposos),
		RematchConfirmations: playersFromWire(j.ConfirmacionesRevancha),
		Viewer: match.Viewer{
			UserID:    r.Usuario.ID,
			Email:     r.Usuario.Email,
			IsHost:    r.Usuario.EsAnfitrion || j.EsAnfitrion,
			IsCheater: r.Usuario.EsTramposo,
		},
	}
	if j.CartaActual != nil {
		card := cardFromWire(*j.CartaActual)
		s.CurrentCard = &card
	}
	if r.Cartilla != nil {
		b := &match.Board{Marks: r.Cartilla.Fichas}
		for _, c := range r.Cartilla.Cartas {
			b.Cards = append(b.Cards, cardFromWire(c))
		}
		s.Board = b
	}
	return s
}

func markResultFromWire(r types.MarcarFichaResponse) match.MarkResult {
	return match.MarkResult{
		Message:  r.Message,
		Marked:   r.TotalFichas,
		Complete: r.CartillaCompleta,
		Cheater:  r.EsTramposo || r.Expulsado,
		Winner:   r.Ganador,
	}
}

func pageFromWire(r types.ListarPartidasResponse) match.Page {
	p := match.Page{Current: r.Meta.CurrentPage, Last: r.Meta.LastPage}
	for _, m := range r.Partidas {
		p.Matches = append(p.Matches, match.OpenMatch{
			ID:           m.ID,
			HostEmail:    m.AnfitrionEmail,
			MaxPlayers:   m.MaxJugadores,
			TotalPlayers: m.TotalJugadores,
			CreatedAt:    m.CreadoEn,
		})
	}
	return p
}
