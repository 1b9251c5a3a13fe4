package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

type recordingHandler struct {
	mu           sync.Mutex
	connects     int
	disconnects  int
	packets      [][]byte
	onPacket     func([]byte)
	connectedSig chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{connectedSig: make(chan struct{}, 8)}
}

func (h *recordingHandler) OnConnected() {
	h.mu.Lock()
	h.connects++
	h.mu.Unlock()
	h.connectedSig <- struct{}{}
}

func (h *recordingHandler) OnDisconnected() {
	h.mu.Lock()
	h.disconnects++
	h.mu.Unlock()
}

func (h *recordingHandler) OnPacket(data []byte) {
	h.mu.Lock()
	h.packets = append(h.packets, data)
	fn := h.onPacket
	h.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects, h.disconnects
}

func (h *recordingHandler) packetCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.packets)
}

// echoServer upgrades each connection and pushes the given messages.
func echoServer(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			conn.WriteMessage(websocket.TextMessage, []byte(m))
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func awaitConnected(t *testing.T, h *recordingHandler) {
	t.Helper()
	select {
	case <-h.connectedSig:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for connection")
	}
}

func TestStartDeliversPackets(t *testing.T) {
	srv := echoServer(t, `{"type":"a"}`, `{"type":"b"}`)
	h := newRecordingHandler()

	c := New(wsURL(srv), "", h)
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	awaitConnected(t, h)

	assert.Eventually(t, func() bool { return h.packetCount() == 2 },
		3*time.Second, 10*time.Millisecond)
	assert.True(t, c.Connected())
}

func TestPanicInHandlerDoesNotKillReadLoop(t *testing.T) {
	srv := echoServer(t, `{"type":"bad"}`, `{"type":"good"}`)
	h := newRecordingHandler()
	h.onPacket = func(data []byte) {
		if strings.Contains(string(data), "bad") {
			panic("malformed packet")
		}
	}

	c := New(wsURL(srv), "", h)
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	awaitConnected(t, h)

	assert.Eventually(t, func() bool { return h.packetCount() == 2 },
		3*time.Second, 10*time.Millisecond)
}

func TestReconnectAfterServerDrop(t *testing.T) {
	var mu sync.Mutex
	accepted := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		accepted++
		n := accepted
		mu.Unlock()

		if n == 1 {
			// Drop the first connection immediately.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	h := newRecordingHandler()
	c := New(wsURL(srv), "", h)
	c.backoffBase = 10 * time.Millisecond
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)

	awaitConnected(t, h)
	awaitConnected(t, h)

	connects, disconnects := h.counts()
	assert.Equal(t, 2, connects)
	assert.GreaterOrEqual(t, disconnects, 1)
	assert.True(t, c.Connected())
}

func TestSendJSONRoundTrip(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
	}))
	t.Cleanup(srv.Close)

	h := newRecordingHandler()
	c := New(wsURL(srv), "", h)
	require.NoError(t, c.Start())
	t.Cleanup(c.Stop)
	awaitConnected(t, h)

	require.NoError(t, c.SendJSON(map[string]string{"type": "subscribe"}))
	select {
	case data := <-received:
		assert.JSONEq(t, `{"type":"subscribe"}`, string(data))
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the packet")
	}
}

func TestSendJSONWhenDisconnected(t *testing.T) {
	h := newRecordingHandler()
	c := New("ws://127.0.0.1:1", "", h)

	err := c.SendJSON(map[string]string{"type": "subscribe"})
	assert.Error(t, err)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	c := New("ws://unused", "", newRecordingHandler())

	first := c.backoffDelay(1)
	assert.GreaterOrEqual(t, first, time.Second)
	assert.LessOrEqual(t, first, 2*time.Second)

	fourth := c.backoffDelay(4)
	assert.GreaterOrEqual(t, fourth, 8*time.Second)
	assert.LessOrEqual(t, fourth, 9*time.Second)

	assert.Equal(t, maxBackoff, c.backoffDelay(7))
}

func TestBackoffDelayNeverNegativeOnLongOutage(t *testing.T) {
	c := New("ws://unused", "", newRecordingHandler())

	// High attempt counts previously overflowed the shift into a
	// negative delay that slipped past the cap.
	for _, attempt := range []uint32{35, 64, 100, 1 << 20} {
		delay := c.backoffDelay(attempt)
		assert.Equal(t, maxBackoff, delay, "attempt %d", attempt)
	}
}

func TestStopHaltsReconnection(t *testing.T) {
	srv := echoServer(t)
	h := newRecordingHandler()

	c := New(wsURL(srv), "", h)
	c.backoffBase = 10 * time.Millisecond
	require.NoError(t, c.Start())
	awaitConnected(t, h)

	c.Stop()
	assert.False(t, c.Connected())

	// No further connection attempts after Stop.
	time.Sleep(100 * time.Millisecond)
	connects, _ := h.counts()
	assert.Equal(t, 1, connects)
}
