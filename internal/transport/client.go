// Package transport talks JSON over HTTP to the game server. It implements the
// state read, the match commands, the auth refresh and the lobby operations the
// engine and the CLI consume. Every failure comes back as a *failure.Error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/pkg/types"
)

const DefaultTimeout = 10 * time.Second

// TokenStore keeps the bearer token between requests.
type TokenStore interface {
	Token() string
	SetToken(string)
}

// MemoryTokens is a TokenStore that lives as long as the process.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryTokens) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryTokens) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithTokens(ts TokenStore) Option { return func(c *Client) { c.tokens = ts } }
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	log    *zap.Logger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		tokens: &MemoryTokens{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tokens exposes the token store so callers can seed or inspect it.
func (c *Client) Tokens() TokenStore { return c.tokens }

// do sends one request. read marks state reads, whose 4xx answers mean the
// match is gone rather than that a command was refused.
func (c *Client) do(ctx context.Context, method, path string, body, out any, read bool) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return ctxErr
		}
		return failure.Wrap(failure.KindTransient, "game server unreachable", err)
	}
	defer resp.Body.Close()

	c.log.Debug("game server call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg types.MessageResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg)
		return failure.FromStatus(resp.StatusCode, msg.Message, read)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		kind := failure.KindDomain
		if read {
			kind = failure.KindValidation
		}
		return failure.Wrap(kind, "malformed response from game server", err)
	}
	return nil
}
