package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/hub"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/types"
)

// Commander runs user commands coming in over the feed.
type Commander interface {
	Do(ctx context.Context, cmd supervisor.Command) error
}

const (
	writeTimeout   = 3 * time.Second
	readTimeout    = 60 * time.Second
	commandTimeout = 15 * time.Second
	outboxSize     = 16
)

func Handler(h *hub.Hub, cmds Commander, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The feed is served on a local address only.
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, outboxSize)
		clientID := uuid.NewString()
		clog := log.With(zap.String("client_id", clientID))

		select {
		case h.Inbox() <- hub.Subscribe{ClientID: clientID, Outbox: out}:
		case <-h.Done():
			conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		}
		defer func() {
			select {
			case h.Inbox() <- hub.Unsubscribe{ClientID: clientID}:
			case <-h.Done():
			}
		}()
		clog.Debug("feed client connected")

		// Replies to commands share the connection with the hub's pushes.
		replies := make(chan types.ServerMessage, outboxSize)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for {
				var msg types.ServerMessage
				var ok bool
				select {
				case msg, ok = <-out:
					if !ok {
						// Dropped by the hub or hub shut down.
						conn.Close(websocket.StatusTryAgainLater, "feed closed")
						return
					}
				case msg = <-replies:
				case <-writeCtx.Done():
					return
				}
				if err := write(writeCtx, conn, msg); err != nil {
					clog.Debug("feed write failed", zap.Error(err))
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("feed client left")
				default:
					clog.Debug("feed read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reply(replies, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			if cm.Type != "Command" {
				reply(replies, types.ServerMessage{Type: "Error", ID: cm.ID, Error: "unknown type"})
				continue
			}
			cmd, ok := types.ToCommand(cm.Command, cm.Position, cm.Accept)
			if !ok {
				reply(replies, types.ServerMessage{Type: "Error", ID: cm.ID, Error: "unknown command"})
				continue
			}

			// Commands wait for the server; run them off the reader loop.
			go func(id string) {
				ctx, cancel := context.WithTimeout(writeCtx, commandTimeout)
				defer cancel()
				if err := cmds.Do(ctx, cmd); err != nil {
					reply(replies, types.ServerMessage{
						Type:  "Error",
						ID:    id,
						Error: failure.Message(err),
						Kind:  string(failure.KindOf(err)),
					})
					return
				}
				reply(replies, types.ServerMessage{Type: "Ack", ID: id})
			}(cm.ID)
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// reply never blocks the caller; a client that stops reading loses replies.
func reply(replies chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case replies <- msg:
	default:
	}
}
