package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	h := New("")
	done := make(chan struct{})
	go func() {
		h.Publish("worktree.created", map[string]any{"folder_name": "widgets-login"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no clients connected")
	}
}

func TestTokenAuthentication(t *testing.T) {
	h := New("secret-token")
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, wsURL+"?token=wrong", nil); err == nil { //nolint:bodyclose
		t.Fatal("expected dial with wrong token to fail")
	}

	conn, _, err := websocket.Dial(ctx, wsURL+"?token=secret-token", nil)
	if err != nil {
		t.Fatalf("dial with valid token failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
}

func TestPublishReachesConnectedClient(t *testing.T) {
	h := New("")
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.Publish("agent.created", map[string]any{"agent_id": "a-1", "folder_name": "widgets-login"})

	_, payload, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Type != "agent.created" {
		t.Fatalf("event type = %q, want agent.created", evt.Type)
	}
	if evt.Data["agent_id"] != "a-1" {
		t.Fatalf("event data = %v", evt.Data)
	}
	if evt.Ts == 0 {
		t.Fatalf("event missing timestamp")
	}
}
