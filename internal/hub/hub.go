package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/types"
)

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	ClientID string
	Outbox   chan types.ServerMessage // where this client wants to receive messages
}

type Unsubscribe struct{ ClientID string }

type Publish struct{ Msg types.ServerMessage }

type GetState struct {
	Reply chan State
}

type ShutdownHub struct{}

func (Subscribe) isHubMsg()   {}
func (Unsubscribe) isHubMsg() {}
func (Publish) isHubMsg()     {}
func (GetState) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

// State is a test-only reflection of the hub.
type State struct {
	NumClients int
	Published  int
	Last       *types.ServerMessage
}

// Hub fans views and navigation requests out to feed subscribers. It is both a
// supervisor.Presenter and a supervisor.Navigator.
type Hub struct {
	inbox     chan HubMsg
	clients   map[string]chan types.ServerMessage
	last      *types.ServerMessage
	published int
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]chan types.ServerMessage),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Present(v supervisor.View) {
	h.send(Publish{Msg: types.ViewMessage(v)})
}

func (h *Hub) GoTo(t match.Target) {
	h.send(Publish{Msg: types.NavigateMessage(t)})
}

func (h *Hub) send(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Close() {
	h.send(ShutdownHub{})
	<-h.done
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register client and replay the latest view so it starts in sync.
				h.clients[msg.ClientID] = msg.Outbox
				if h.last != nil {
					h.deliver(msg.ClientID, msg.Outbox, *h.last)
				}

			case Unsubscribe:
				delete(h.clients, msg.ClientID)

			case Publish:
				h.published++
				if msg.Msg.Type == "View" {
					last := msg.Msg
					h.last = &last
				}
				h.broadcast(msg.Msg)

			case GetState:
				msg.Reply <- State{NumClients: len(h.clients), Published: h.published, Last: h.last}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // Tell client no more messages
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) broadcast(m types.ServerMessage) {
	for id, ch := range h.clients {
		h.deliver(id, ch, m)
	}
}

func (h *Hub) deliver(id string, ch chan types.ServerMessage, m types.ServerMessage) {
	select {
	case ch <- m:
	default:
		// Client is slow/full - drop them.
		h.log.Warn("dropping slow feed client", zap.String("client_id", id))
		close(ch)
		delete(h.clients, id)
	}
}
