package livechannel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the read side of an established tracking connection
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var SystemClock Clock = systemClock{}

const (
	DefaultPongWait     = 60 * time.Second
	DefaultPingInterval = DefaultPongWait * 9 / 10
)

// WebsocketDialer opens the tracking feed with gorilla/websocket. The
// connection pings the server every PingInterval and a read fails once
// nothing, pongs included, arrived for PongWait, so a half-open socket
// surfaces as a lost connection.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header

	PingInterval time.Duration
	PongWait     time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	pingInterval := d.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	pongWait := d.PongWait
	if pongWait <= 0 {
		pongWait = DefaultPongWait
	}

	return newWebsocketConn(conn, pingInterval, pongWait), nil
}

type websocketConn struct {
	*websocket.Conn

	pongWait  time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

func newWebsocketConn(conn *websocket.Conn, pingInterval, pongWait time.Duration) *websocketConn {
	c := &websocketConn{
		Conn:     conn,
		pongWait: pongWait,
		done:     make(chan struct{}),
	}

	c.extendDeadline()
	conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	go c.keepAlive(pingInterval)

	return c
}

func (c *websocketConn) extendDeadline() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
}

func (c *websocketConn) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				return
			}
		}
	}
}

func (c *websocketConn) ReadMessage() (int, []byte, error) {
	messageType, p, err := c.Conn.ReadMessage()
	if err == nil {
		c.extendDeadline()
	}

	return messageType, p, err
}

func (c *websocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(time.Second)
		_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

		err = c.Conn.Close()
	})

	return err
}
