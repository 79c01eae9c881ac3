package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyTargetsOwner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	alice := &Client{hub: hub, userID: "alice", send: make(chan []byte, 4)}
	bob := &Client{hub: hub, userID: "bob", send: make(chan []byte, 4)}
	hub.register <- alice
	hub.register <- bob

	hub.Notify("alice", "budget.alert", map[string]string{"status": "warning"})

	select {
	case msg := <-alice.send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, "budget.alert", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the event")
	}

	select {
	case <-bob.send:
		t.Fatal("bob received alice's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_StoppedHubReleasesCallers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, userID: "alice", send: make(chan []byte, 1)}
	require.True(t, hub.join(client))
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, open := <-client.send
	assert.False(t, open, "send channel closed on shutdown")

	returned := make(chan bool, 1)
	go func() {
		hub.leave(client)
		returned <- hub.join(&Client{hub: hub, userID: "bob", send: make(chan []byte, 1)})
	}()
	select {
	case joined := <-returned:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("leave/join blocked on a stopped hub")
	}

	// Notify stays non-blocking
	hub.Notify("alice", "ping", nil)
}

func TestServeWs_AfterShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	cancel()
	<-hub.done

	tokens := auth.NewTokenService("ws-secret-ws-secret-ws-secret-0000", time.Hour, "bookkeeping", nil)
	r := gin.New()
	r.GET("/ws", ServeWs(hub, tokens))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, _, err := tokens.Issue(auth.Identity{UserID: "u-1", Email: "u1@example.com"})
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)
	tokens := auth.NewTokenService("ws-secret-ws-secret-ws-secret-0000", time.Hour, "bookkeeping", nil)

	r := gin.New()
	r.GET("/ws", ServeWs(hub, tokens))
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("rejects missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("delivers events to the token owner", func(t *testing.T) {
		token, _, err := tokens.Issue(auth.Identity{UserID: "u-7", Email: "u7@example.com"})
		require.NoError(t, err)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		// registration completes after the handshake, so keep notifying until one arrives
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					hub.Notify("u-7", "ping", nil)
				}
			}
		}()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), `"type":"ping"`)
	})
}
