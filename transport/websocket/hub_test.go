package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
)

func newClient(hub *Hub, sessionID string) *Client {
	return &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
}

func testState() *engine.State {
	return &engine.State{
		ConfigName:    "duel",
		Width:         5,
		Height:        5,
		Round:         2,
		Started:       true,
		ActiveFaction: engine.Ally,
		Phase:         engine.PhaseStart,
		AwaitingInput: true,
		PendingAlly:   []engine.UnitID{1},
		Units: []engine.Unit{
			{ID: 1, Faction: engine.Ally, Position: engine.Pos(0, 0), MoveRange: 2, RemainingMoveRange: 2},
		},
	}
}

func decode(t *testing.T, data []byte) Message {
	t.Helper()
	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	return message
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c1 := newClient(hub, "s1")
	c2 := newClient(hub, "s1")

	hub.registerClient(c1)
	hub.registerClient(c2)
	assert.Equal(t, 2, hub.ClientCount("s1"))

	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.ClientCount("s1"))
	assert.True(t, hub.sessions["s1"][c2])

	_, open := <-c1.send
	assert.False(t, open, "send channel closed on unregister")

	hub.unregisterClient(c1)
	hub.unregisterClient(c2)
	assert.NotContains(t, hub.sessions, "s1", "empty sessions are dropped")
}

func TestHub_BroadcastIsScopedToSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	watcher := newClient(hub, "s1")
	other := newClient(hub, "s2")
	hub.registerClient(watcher)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "s1", Event: EventStateUpdate, State: testState()})

	message := decode(t, <-watcher.send)
	assert.Equal(t, "s1", message.SessionID)
	assert.Equal(t, EventStateUpdate, message.Event)
	require.NotNil(t, message.State)
	assert.Equal(t, 2, message.State.Round)
	assert.Equal(t, engine.Pos(0, 0), message.State.Units[0].Position)

	assert.Len(t, other.send, 0)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{hub: hub, sessionID: "s1", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s1", Event: "ping"})

	assert.Equal(t, 0, hub.ClientCount("s1"))
}

func TestHub_BroadcastHelpers(t *testing.T) {
	hub := startHub(t)
	client := newClient(hub, "s1")
	hub.register <- client

	t.Run("state", func(t *testing.T) {
		hub.BroadcastToSession("s1", testState())
		message := decode(t, <-client.send)
		assert.Equal(t, EventStateUpdate, message.Event)
		assert.NotNil(t, message.State)
	})

	t.Run("result", func(t *testing.T) {
		hub.BroadcastResult("s1", &service.ActionResult{
			Action:  "move",
			Success: true,
			State:   testState(),
			Events:  []service.BattleEvent{{Type: engine.EventUnitMoved, Round: 2}},
		})
		message := decode(t, <-client.send)
		assert.Equal(t, EventActionResult, message.Event)
		assert.NotNil(t, message.State)
		data, ok := message.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "move", data["action"])
	})

	t.Run("custom event", func(t *testing.T) {
		hub.BroadcastEvent("s1", EventSessionEnded, "bye")
		message := decode(t, <-client.send)
		assert.Equal(t, EventSessionEnded, message.Event)
		assert.Equal(t, "bye", message.Data)
	})

	t.Run("nil result", func(t *testing.T) {
		hub.BroadcastResult("s1", nil)
		hub.BroadcastEvent("s1", "marker", nil)
		message := decode(t, <-client.send)
		assert.Equal(t, "marker", message.Event)
	})
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newClient(hub, "s1")
	hub.register <- client
	cancel()

	<-hub.stopped
	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ClientCount("s1"))

	done := make(chan struct{})
	go func() {
		hub.BroadcastEvent("s1", "late", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after the hub stopped")
	}
}

func newWSServer(t *testing.T, hub *Hub) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), testState())
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestServeWS(t *testing.T) {
	hub := startHub(t)
	url := newWSServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?session=ws-test", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	initial := decode(t, data)
	assert.Equal(t, EventStateUpdate, initial.Event, "initial state is sent on connect")
	assert.Equal(t, "duel", initial.State.ConfigName)

	require.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 1 }, time.Second, 5*time.Millisecond)

	state := testState()
	state.Round = 7
	hub.BroadcastToSession("ws-test", state)

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 7, decode(t, data).State.Round)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 0 }, time.Second, 5*time.Millisecond)
}

func TestServeWS_MultipleWatchers(t *testing.T) {
	hub := startHub(t)
	url := newWSServer(t, hub)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url+"?session=shared", nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, _, err = conn.ReadMessage()
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return hub.ClientCount("shared") == 3 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("shared", "round_started", map[string]int{"round": 3})

	for _, conn := range conns {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "round_started", decode(t, data).Event)
	}
}
