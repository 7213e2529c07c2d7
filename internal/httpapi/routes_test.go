package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/hub"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/rematch"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/types"
)

type fakeController struct {
	mu      sync.Mutex
	view    supervisor.View
	err     error
	cmds    []supervisor.Command
	started []int64
	stopped int
}

func (c *fakeController) View(context.Context) (supervisor.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view, nil
}

func (c *fakeController) Do(_ context.Context, cmd supervisor.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds = append(c.cmds, cmd)
	return c.err
}

func (c *fakeController) Start(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, id)
	return c.err
}

func (c *fakeController) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return nil
}

func (c *fakeController) Resume(context.Context) error {
	return supervisor.ErrNoMatch
}

func (c *fakeController) Commands() []supervisor.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]supervisor.Command(nil), c.cmds...)
}

func (c *fakeController) Calls() ([]int64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.started...), c.stopped
}

func newServer(t *testing.T, ctrl *fakeController, h *hub.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(SetupRoutes(ctrl, h, nil))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, &fakeController{}, nil)
	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGetView(t *testing.T) {
	ctrl := &fakeController{view: supervisor.View{
		Status:   supervisor.StatusPolling,
		MatchID:  5,
		Snapshot: &match.Snapshot{MatchID: 5, Phase: match.PhaseStarted, MaxPlayers: 4, Cheaters: []match.Player{{ID: 9, Email: "x@y"}}},
		Board:    &match.Board{Cards: []match.Card{{ID: 1, Name: "El Gallo"}}, Marks: []bool{true}},
		Rematch:  rematch.Status{State: rematch.StateNone},
	}}
	srv := newServer(t, ctrl, nil)

	res, err := http.Get(srv.URL + "/view")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var v types.View
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	assert.Equal(t, "polling", v.Status)
	assert.Equal(t, int64(5), v.MatchID)
	assert.Equal(t, "started", v.Phase)
	assert.Equal(t, []string{"x@y"}, v.Cheaters)
	require.Len(t, v.Board, 1)
	assert.True(t, v.Board[0].Marked)
	assert.Equal(t, "El Gallo", v.Board[0].Card.Name)
}

func TestRunCommand(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
		want   *supervisor.Command
	}{
		{"mark slot", "/commands/mark", `{"position":3}`, nil, http.StatusNoContent, &supervisor.Command{Kind: supervisor.CmdMarkSlot, Position: 3}},
		{"reject rematch", "/commands/confirm-rematch", `{"accept":false}`, nil, http.StatusNoContent, &supervisor.Command{Kind: supervisor.CmdConfirmRematch}},
		{"empty body", "/commands/start", ``, nil, http.StatusNoContent, &supervisor.Command{Kind: supervisor.CmdStartMatch}},
		{"unknown", "/commands/fly", `{}`, nil, http.StatusNotFound, nil},
		{"bad json", "/commands/mark", `{`, nil, http.StatusBadRequest, nil},
		{"local rule", "/commands/create-rematch", `{}`, failure.Wrap(failure.KindBusinessRule, "quorum", rematch.ErrQuorum), http.StatusConflict, &supervisor.Command{Kind: supervisor.CmdCreateRematch}},
		{"server refused", "/commands/reveal", `{}`, failure.New(failure.KindDomain, "no"), http.StatusUnprocessableEntity, &supervisor.Command{Kind: supervisor.CmdRevealCard}},
		{"server down", "/commands/leave", `{}`, failure.New(failure.KindTransient, "down"), http.StatusBadGateway, &supervisor.Command{Kind: supervisor.CmdLeave}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &fakeController{err: tc.err}
			srv := newServer(t, ctrl, nil)

			res := post(t, srv.URL+tc.path, tc.body)
			assert.Equal(t, tc.status, res.StatusCode)

			if tc.want == nil {
				assert.Empty(t, ctrl.Commands())
				return
			}
			assert.Equal(t, []supervisor.Command{*tc.want}, ctrl.Commands())
			if tc.err != nil {
				var body types.ErrorResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
				assert.Equal(t, string(failure.KindOf(tc.err)), body.Kind)
			}
		})
	}
}

func TestPollingControls(t *testing.T) {
	ctrl := &fakeController{}
	srv := newServer(t, ctrl, nil)

	assert.Equal(t, http.StatusAccepted, post(t, srv.URL+"/polling/start", `{"matchId":12}`).StatusCode)
	assert.Equal(t, http.StatusNoContent, post(t, srv.URL+"/polling/stop", ``).StatusCode)
	assert.Equal(t, http.StatusNotFound, post(t, srv.URL+"/polling/resume", ``).StatusCode)
	started, stopped := ctrl.Calls()
	assert.Equal(t, []int64{12}, started)
	assert.Equal(t, 1, stopped)
}

func TestFeedPushesViewsAndRunsCommands(t *testing.T) {
	h := hub.NewHub(context.Background(), nil)
	t.Cleanup(h.Close)
	ctrl := &fakeController{}
	srv := newServer(t, ctrl, h)

	h.Present(supervisor.View{Status: supervisor.StatusPolling, MatchID: 8})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() types.ServerMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var m types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	first := read()
	require.Equal(t, "View", first.Type)
	assert.Equal(t, int64(8), first.View.MatchID)

	payload, _ := json.Marshal(types.ClientMessage{Type: "Command", ID: "c1", Command: "mark", Position: 2})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
	ack := read()
	assert.Equal(t, "Ack", ack.Type)
	assert.Equal(t, "c1", ack.ID)
	assert.Equal(t, []supervisor.Command{{Kind: supervisor.CmdMarkSlot, Position: 2}}, ctrl.Commands())

	h.GoTo(match.Home())
	nav := read()
	assert.Equal(t, "Navigate", nav.Type)
	assert.Equal(t, "/home", nav.Path)
}
