package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/types"
)

func getState(t *testing.T, h *Hub) State {
	t.Helper()
	reply := make(chan State, 1)
	h.Inbox() <- GetState{Reply: reply}
	select {
	case st := <-reply:
		return st
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for hub state")
	}
	return State{}
}

func recv(t *testing.T, ch <-chan types.ServerMessage) types.ServerMessage {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for message")
	}
	return types.ServerMessage{}
}

func TestHub_BroadcastsViewsAndNavigation(t *testing.T) {
	h := NewHub(context.Background(), nil)
	defer h.Close()

	out := make(chan types.ServerMessage, 4)
	h.Inbox() <- Subscribe{ClientID: "a", Outbox: out}

	h.Present(supervisor.View{Status: supervisor.StatusPolling, MatchID: 3})
	h.GoTo(match.MatchPage(4))

	v := recv(t, out)
	if v.Type != "View" || v.View == nil || v.View.MatchID != 3 || v.View.Status != "polling" {
		t.Fatalf("unexpected view message: %+v", v)
	}
	nav := recv(t, out)
	if nav.Type != "Navigate" || nav.Path != "/game/4" {
		t.Fatalf("unexpected navigate message: %+v", nav)
	}
}

func TestHub_ReplaysLastViewOnSubscribe(t *testing.T) {
	h := NewHub(context.Background(), nil)
	defer h.Close()

	h.Present(supervisor.View{MatchID: 1})
	h.Present(supervisor.View{MatchID: 2})
	h.GoTo(match.Home())
	if st := getState(t, h); st.Published != 3 {
		t.Fatalf("want 3 published, got %d", st.Published)
	}

	out := make(chan types.ServerMessage, 1)
	h.Inbox() <- Subscribe{ClientID: "late", Outbox: out}
	if m := recv(t, out); m.View == nil || m.View.MatchID != 2 {
		t.Fatalf("want replay of latest view, got %+v", m)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(context.Background(), nil)
	defer h.Close()

	slow := make(chan types.ServerMessage) // unbuffered and never read
	h.Inbox() <- Subscribe{ClientID: "slow", Outbox: slow}
	if st := getState(t, h); st.NumClients != 1 {
		t.Fatalf("want 1 client, got %d", st.NumClients)
	}

	h.Present(supervisor.View{})
	if st := getState(t, h); st.NumClients != 0 {
		t.Fatalf("slow client not dropped, %d clients left", st.NumClients)
	}
	if _, ok := <-slow; ok {
		t.Fatalf("expected closed outbox")
	}
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	h := NewHub(context.Background(), nil)
	out := make(chan types.ServerMessage, 1)
	h.Inbox() <- Subscribe{ClientID: "a", Outbox: out}
	h.Close()

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox")
		}
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}

	// Publishing after shutdown must not block.
	h.Present(supervisor.View{})
}
