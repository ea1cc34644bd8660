package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHubBroadcastsInOrder(t *testing.T) {
	hub := NewHub(nil)
	conn, _, err := dialHub(t, hub, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Emit(SystemUsage, map[string]string{"cpu": "1.00%", "mem": "2.0GB"}))
	require.NoError(t, hub.Emit(GenerateAnswer, map[string]any{"done": true}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, SystemUsage, first.Event)
	assert.Equal(t, "1.00%", first.Payload["cpu"])
	assert.Equal(t, GenerateAnswer, second.Event)
	assert.Equal(t, true, second.Payload["done"])
}

func TestHubWithoutListenersAccepts(t *testing.T) {
	hub := NewHub(nil)
	assert.NoError(t, hub.Emit(SystemUsage, "x"))
}

func TestHubClosed(t *testing.T) {
	hub := NewHub(nil)
	conn, _, err := dialHub(t, hub, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.ErrorIs(t, hub.Emit(SystemUsage, "x"), ErrClosed)
	assert.Equal(t, 0, hub.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"tauri://localhost"})

	_, resp, err := dialHub(t, hub, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubAcceptsAllowedOrigin(t *testing.T) {
	hub := NewHub([]string{"tauri://localhost"})

	conn, _, err := dialHub(t, hub, http.Header{"Origin": []string{"tauri://localhost"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHubDropsListenerOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	conn, _, err := dialHub(t, hub, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubDropsListenerThatStopsReading(t *testing.T) {
	hub := NewHub(nil)
	conn, _, err := dialHub(t, hub, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	payload := strings.Repeat("x", 64*1024)
	deadline := time.Now().Add(10 * time.Second)
	emits := 0
	for hub.Clients() > 0 {
		require.True(t, time.Now().Before(deadline), "listener still connected after %d emits", emits)

		start := time.Now()
		require.NoError(t, hub.Emit(GenerateAnswer, payload))
		assert.Less(t, time.Since(start), time.Second, "Emit blocked")
		emits++
	}

	assert.Greater(t, emits, clientSendSize)
	assert.NoError(t, hub.Emit(GenerateAnswer, "after drop"))
}
