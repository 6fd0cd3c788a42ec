package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "client-1", Send: make(chan []byte, 256)}

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if _, open := <-client.Send; open {
		t.Fatal("send channel should be closed after unregister")
	}
}

func TestHubUnregisterTwice(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "client-1", Send: make(chan []byte, 1)}
	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not panic on a closed channel
}

func TestHubEmitReachesAllClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := &Client{ID: "a", Send: make(chan []byte, 4)}
	b := &Client{ID: "b", Send: make(chan []byte, 4)}
	hub.Register(a)
	hub.Register(b)

	hub.Emit("appointmentCreated", map[string]int{"id": 7})

	for _, client := range []*Client{a, b} {
		select {
		case data := <-client.Send:
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if ev.Event != "appointmentCreated" {
				t.Errorf("event = %q, want appointmentCreated", ev.Event)
			}
			if ev.Timestamp.IsZero() {
				t.Error("event should carry a timestamp")
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s received nothing", client.ID)
		}
	}
}

func TestHubEmitSkipsFullBuffers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{ID: "slow", Send: make(chan []byte)} // no buffer, nobody reading
	hub.Register(slow)

	done := make(chan struct{})
	go func() {
		hub.Emit("appointmentDeleted", 1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit must not block on a stuck client")
	}
}

func TestWebSocketEndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	NewHandler(hub).RegisterRoutes(e.Group(""))
	srv := httptest.NewServer(e)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}

	// Give the server a moment to register the client.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", hub.ClientCount())
	}

	hub.Emit("blockedSlotCreated", map[string]string{"reason": "holiday"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != "blockedSlotCreated" {
		t.Errorf("event = %q, want blockedSlotCreated", ev.Event)
	}
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.Emit("anything", nil) // must be a no-op
}
