package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/pkg/types"
)

// GetMatchState reads the snapshot of the match the user is in. A nil snapshot
// with a nil error means the server reports no match for this user.
func (c *Client) GetMatchState(ctx context.Context) (*match.Snapshot, error) {
	var resp types.EstadoJuegoResponse
	if err := c.do(ctx, http.MethodGet, "/juego/estado", nil, &resp, true); err != nil {
		return nil, err
	}
	return snapshotFromWire(resp), nil
}

func (c *Client) StartMatch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/juego/iniciar", struct{}{}, nil, false)
}

func (c *Client) RevealCard(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/juego/revelar-carta", struct{}{}, nil, false)
}

func (c *Client) MarkSlot(ctx context.Context, position int) (match.MarkResult, error) {
	var resp types.MarcarFichaResponse
	err := c.do(ctx, http.MethodPost, "/juego/marcar-ficha", types.MarcarFichaRequest{Posicion: position}, &resp, false)
	if err != nil {
		return match.MarkResult{}, err
	}
	return markResultFromWire(resp), nil
}

func (c *Client) LeaveMatch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/juego/salir", struct{}{}, nil, false)
}

func (c *Client) EndMatch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/juego/finalizar", struct{}{}, nil, false)
}

func (c *Client) ProposeRematch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/juego/revancha/proponer", struct{}{}, nil, false)
}

func (c *Client) ConfirmRematch(ctx context.Context, accept bool) error {
	return c.do(ctx, http.MethodPost, "/juego/revancha/confirmar", types.ConfirmarRevanchaRequest{Acepta: accept}, nil, false)
}

// CreateRematch returns the id of the newly created match.
func (c *Client) CreateRematch(ctx context.Context) (int64, error) {
	var resp types.JuegoResponse
	if err := c.do(ctx, http.MethodPost, "/juego/revancha/crear", struct{}{}, &resp, false); err != nil {
		return 0, err
	}
	if resp.Juego == nil || resp.Juego.ID <= 0 {
		return 0, failure.New(failure.KindDomain, "rematch created without a match id")
	}
	return resp.Juego.ID, nil
}

func (c *Client) CreateMatch(ctx context.Context) (int64, error) {
	var resp types.JuegoResponse
	if err := c.do(ctx, http.MethodPost, "/juego/crear", struct{}{}, &resp, false); err != nil {
		return 0, err
	}
	if resp.Juego == nil || resp.Juego.ID <= 0 {
		return 0, failure.New(failure.KindDomain, "no match information received")
	}
	return resp.Juego.ID, nil
}

func (c *Client) JoinMatch(ctx context.Context, code int64) (int64, error) {
	var resp types.JuegoResponse
	if err := c.do(ctx, http.MethodPost, "/juego/unirse", types.UnirseRequest{CodigoJuego: code}, &resp, false); err != nil {
		return 0, err
	}
	if resp.Juego == nil || resp.Juego.ID <= 0 {
		return 0, failure.New(failure.KindDomain, "no match information received")
	}
	return resp.Juego.ID, nil
}

func (c *Client) ListMatches(ctx context.Context, page int) (match.Page, error) {
	if page < 1 {
		page = 1
	}
	var resp types.ListarPartidasResponse
	if err := c.do(ctx, http.MethodGet, "/juego/listar?page="+strconv.Itoa(page), nil, &resp, false); err != nil {
		return match.Page{}, err
	}
	return pageFromWire(resp), nil
}
