package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, allowed []string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("founder", []string{StreamPitchDeck}, allowed, w, r)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	waitSubscribers(t, hub, StreamPitchDeck, 1)
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, stream string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(stream) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, nil)

	hub.Publish(StreamPitchDeck, EventSlideExtracted, map[string]any{"page": 2})

	msg := readMessage(t, conn)
	require.Equal(t, StreamPitchDeck, msg.Stream)
	require.Equal(t, EventSlideExtracted, msg.Event)
	require.EqualValues(t, 2, msg.Data.(map[string]any)["page"])
}

func TestPingReplies(t *testing.T) {
	conn := dialHub(t, NewHub(), nil)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	require.Equal(t, "pong", readMessage(t, conn).Event)
}

func TestSubscribeUnsubscribeAndDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, nil)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "unsubscribe", "streams": []string{StreamPitchDeck}}))
	waitSubscribers(t, hub, StreamPitchDeck, 0)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "subscribe", "streams": []string{" Pitch-Deck "}}))
	waitSubscribers(t, hub, StreamPitchDeck, 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, StreamPitchDeck, 0)
}

func TestDisallowedStreamsAreIgnored(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, []string{StreamPitchDeck})

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "subscribe", "streams": []string{"other"}}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))

	require.Equal(t, "pong", readMessage(t, conn).Event)
	require.Zero(t, hub.Subscribers("other"))
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, nil)

	hub.Close()
	waitSubscribers(t, hub, StreamPitchDeck, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://portal.example.com"})
	request := func(host, origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://"+host+"/api/realtime", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	require.True(t, check(request("api.internal:8080", "")))
	require.True(t, check(request("api.internal:8080", "http://api.internal:3000")))
	require.True(t, check(request("api.internal:8080", "http://localhost:5173")))
	require.True(t, check(request("api.internal:8080", "https://PORTAL.example.com")))
	require.False(t, check(request("api.internal:8080", "https://evil.example.com")))
}

func TestParseStreams(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, ParseStreams(" A,b", "", "a", "c,,B"))
	require.Empty(t, ParseStreams("", " , "))
}
