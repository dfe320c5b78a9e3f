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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/notify"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// dialClient upgrades one connection into the hub and returns the
// client side.
func dialClient(t *testing.T, hub *Hub, gameID, playerID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Serve(conn, gameID, playerID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) notify.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var note notify.Notification
	require.NoError(t, json.Unmarshal(payload, &note))
	return note
}

func waitForPlayers(t *testing.T, hub *Hub, gameID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.ConnectedPlayers(gameID)) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("game %s never reached %d connected players", gameID, n)
}

func TestGameNotificationsBroadcastToTheGame(t *testing.T) {
	hub := NewHub(context.Background(), nil, zap.NewNop().Sugar())
	c1 := dialClient(t, hub, "g1", "p1")
	c2 := dialClient(t, hub, "g1", "p2")
	other := dialClient(t, hub, "g2", "p9")
	waitForPlayers(t, hub, "g1", 2)
	waitForPlayers(t, hub, "g2", 1)

	hub.HandleNotification(notify.Notification{Kind: notify.KindGame, GameID: "g1", Version: 4})

	for _, conn := range []*websocket.Conn{c1, c2} {
		note := readNotification(t, conn)
		assert.Equal(t, notify.KindGame, note.Kind)
		assert.Equal(t, "g1", note.GameID)
		assert.Equal(t, int64(4), note.Version)
	}

	// The other game's client sees nothing.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "no notification should arrive for game g2")
}

func TestAchievementNotificationsTargetOnePlayer(t *testing.T) {
	hub := NewHub(context.Background(), nil, zap.NewNop().Sugar())
	c1 := dialClient(t, hub, "g1", "p1")
	c2 := dialClient(t, hub, "g1", "p2")
	waitForPlayers(t, hub, "g1", 2)

	hub.HandleNotification(notify.Notification{Kind: notify.KindAchievements, GameID: "g1", PlayerID: "p1"})

	note := readNotification(t, c1)
	assert.Equal(t, notify.KindAchievements, note.Kind)
	assert.Equal(t, "p1", note.PlayerID)

	require.NoError(t, c2.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := c2.ReadMessage()
	assert.Error(t, err, "the unlock is private to p1")
}

func TestSecondConnectionReplacesTheFirst(t *testing.T) {
	hub := NewHub(context.Background(), nil, zap.NewNop().Sugar())
	first := dialClient(t, hub, "g1", "p1")
	waitForPlayers(t, hub, "g1", 1)

	second := dialClient(t, hub, "g1", "p1")
	waitForPlayers(t, hub, "g1", 1)

	hub.HandleNotification(notify.Notification{Kind: notify.KindGame, GameID: "g1", Version: 2})
	note := readNotification(t, second)
	assert.Equal(t, int64(2), note.Version)

	// The first connection was closed by the replacement.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
}

func TestDisconnectRemovesTheClient(t *testing.T) {
	hub := NewHub(context.Background(), nil, zap.NewNop().Sugar())
	conn := dialClient(t, hub, "g1", "p1")
	waitForPlayers(t, hub, "g1", 1)

	require.NoError(t, conn.Close())
	waitForPlayers(t, hub, "g1", 0)

	// Notifying an empty game is harmless.
	hub.HandleNotification(notify.Notification{Kind: notify.KindGame, GameID: "g1", Version: 9})
}

func TestHandleNotificationWithNoClients(t *testing.T) {
	hub := NewHub(context.Background(), nil, zap.NewNop().Sugar())
	hub.HandleNotification(notify.Notification{Kind: notify.KindGame, GameID: "nobody", Version: 1})
	assert.Empty(t, hub.ConnectedPlayers("nobody"))
}
