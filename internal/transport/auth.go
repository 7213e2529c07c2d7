package transport

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/pkg/types"
)

func (c *Client) Login(ctx context.Context, email, password string) (match.Identity, error) {
	var resp types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", types.LoginRequest{Email: email, Password: password}, &resp, false); err != nil {
		return match.Identity{}, err
	}
	if resp.Token == nil || resp.Token.Value == "" {
		return match.Identity{}, failure.New(failure.KindAuth, "login returned no token")
	}
	c.tokens.SetToken(resp.Token.Value)
	return identityFromWire(resp), nil
}

// Refresh exchanges the current token for a new one.
func (c *Client) Refresh(ctx context.Context) error {
	if c.tokens.Token() == "" {
		return failure.New(failure.KindAuth, "no token available")
	}
	var resp types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", struct{}{}, &resp, false); err != nil {
		return err
	}
	if resp.Token == nil || resp.Token.Value == "" {
		return failure.New(failure.KindAuth, "no token in refresh response")
	}
	c.tokens.SetToken(resp.Token.Value)
	return nil
}

func (c *Client) Me(ctx context.Context) (match.Identity, error) {
	var resp types.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp, false); err != nil {
		return match.Identity{}, err
	}
	if resp.User == nil {
		return match.Identity{}, failure.New(failure.KindAuth, "not logged in")
	}
	return identityFromWire(resp), nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil, false)
	c.tokens.SetToken("")
	return err
}

func identityFromWire(r types.AuthResponse) match.Identity {
	if r.User == nil {
		return match.Identity{}
	}
	return match.Identity{ID: r.User.ID, Email: r.User.Email}
}
