package livechannel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

// trackingServer accepts tracking subscriptions and hands every connection to the test
type trackingServer struct {
	upgrader websocket.Upgrader
	silent   bool

	accepted   atomic.Int32
	conns      chan *websocket.Conn
	closeCodes chan int
}

func newTrackingServer(t *testing.T, silent bool) (*trackingServer, string) {
	t.Helper()

	tracking := &trackingServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		silent:     silent,
		conns:      make(chan *websocket.Conn, 8),
		closeCodes: make(chan int, 8),
	}

	server := httptest.NewServer(tracking)
	t.Cleanup(server.Close)

	return tracking, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tracking"
}

func (s *trackingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.accepted.Add(1)
	s.conns <- conn

	// a silent server never reads, so pings go unanswered
	if s.silent {
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					s.closeCodes <- closeErr.Code
				}
				return
			}
		}
	}()
}

func (s *trackingServer) next(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(waitFor):
		t.Fatal("no tracking connection accepted")
		return nil
	}
}

func newWebsocketChannel(url string, handler Handler) *Channel {
	channel := New(url, handler)
	channel.ReconnectInterval = 20 * time.Millisecond
	channel.Dialer = WebsocketDialer{
		PingInterval: 20 * time.Millisecond,
		PongWait:     200 * time.Millisecond,
	}

	return channel
}

func TestWebsocketChannelLifecycle(t *testing.T) {
	server, url := newTrackingServer(t, false)
	handler := &recordingHandler{}
	channel := newWebsocketChannel(url, handler)

	channel.Connect(context.Background())
	first := server.next(t)
	waitForState(t, channel, StateConnected)

	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`{"type":"location_update","data":{"latitude":1.0,"longitude":2.0,"speed":3.0}}`)))
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_route_request"}`)))

	require.Eventually(t, func() bool { return handler.routeRequests.Load() == 1 }, waitFor, tick)
	require.Equal(t, 1, handler.positionCount())
	handler.mu.Lock()
	assert.Equal(t, shuttle.Position{Latitude: 1, Longitude: 2, Speed: 3}, handler.positions[0])
	handler.mu.Unlock()

	// drop the socket without a close handshake
	first.Close()

	second := server.next(t)
	require.Eventually(t, func() bool { return handler.connected.Load() == 2 }, waitFor, tick)
	assert.Equal(t, int32(1), handler.disconnected.Load())
	assert.Equal(t, StateConnected, channel.State())

	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"type":"location_update","data":{"latitude":4.0,"longitude":5.0,"speed":6.0}}`)))
	require.Eventually(t, func() bool { return handler.positionCount() == 2 }, waitFor, tick)

	require.NoError(t, channel.Close())

	select {
	case code := <-server.closeCodes:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(waitFor):
		t.Fatal("server did not see a close frame")
	}

	time.Sleep(10 * channel.ReconnectInterval)
	assert.Equal(t, int32(2), server.accepted.Load(), "no redial after Close")
	assert.Equal(t, StateDisconnected, channel.State())
}

func TestWebsocketChannelDetectsSilentServer(t *testing.T) {
	server, url := newTrackingServer(t, true)
	handler := &recordingHandler{}
	channel := newWebsocketChannel(url, handler)
	defer channel.Close()

	channel.Connect(context.Background())
	server.next(t)
	waitForState(t, channel, StateConnected)

	require.Eventually(t, func() bool { return handler.disconnected.Load() >= 1 }, waitFor, tick, "unanswered pings end the connection")
}

func TestWebsocketDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := WebsocketDialer{}.Dial(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"))
	assert.Error(t, err)
}
