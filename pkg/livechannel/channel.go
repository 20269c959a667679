package livechannel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/metrics"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const DefaultReconnectInterval = 5 * time.Second

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives the side effects of the channel. Calls come from the
// channel's reader goroutine.
type Handler interface {
	OnConnected()
	OnDisconnected()
	OnLocationUpdate(position shuttle.Position)
	OnNewRouteRequest()
}

// Channel keeps one subscription to the tracking feed alive.
//
// A lost connection arms a single reconnect timer which keeps firing every
// ReconnectInterval until a connection succeeds. There is never more than
// one timer outstanding: further close events while it is pending do not
// schedule another one. A deliberate Close stops the timer for good.
type Channel struct {
	URL               string
	ReconnectInterval time.Duration

	Dialer  Dialer
	Clock   Clock
	Handler Handler
	Metrics *metrics.Collector

	// held while a Handler callback runs, Close waits on it
	dispatchMu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       Conn
	generation uint64
	reconnect  *pendingReconnect
	closing    bool

	ctx    context.Context
	cancel context.CancelFunc
}

type pendingReconnect struct {
	timer Timer
}

func New(url string, handler Handler) *Channel {
	return &Channel{
		URL:               url,
		ReconnectInterval: DefaultReconnectInterval,
		Dialer:            WebsocketDialer{},
		Clock:             SystemClock,
		Handler:           handler,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connect starts the subscription. It returns immediately, the handshake
// happens in the background. A closed channel can not be reconnected.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.ctx == nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
	c.mu.Unlock()

	c.connect()
}

// Close shuts the channel down without scheduling a reconnect. No Handler
// callback runs once it has returned.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.cancelReconnectLocked()

	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.generation++
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// wait out a running callback, later ones see closing
	c.dispatchMu.Lock()
	c.dispatchMu.Unlock()

	c.Metrics.SetConnected(false)
	log.Info().Str("url", c.URL).Msg("Live channel closed")

	if conn != nil {
		return conn.Close()
	}

	return nil
}

func (c *Channel) connect() {
	c.mu.Lock()
	if c.closing || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.generation++
	generation := c.generation
	ctx := c.ctx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	go c.run(ctx, generation)
}

func (c *Channel) run(ctx context.Context, generation uint64) {
	conn, err := c.Dialer.Dial(ctx, c.URL)
	if err != nil {
		c.lost(generation, err)
		return
	}

	c.mu.Lock()
	if c.closing || generation != c.generation {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.state = StateConnected
	c.conn = conn
	c.cancelReconnectLocked()
	c.mu.Unlock()

	log.Info().Str("url", c.URL).Msg("Live channel connected")
	c.Metrics.SetConnected(true)
	c.notify(generation, c.Handler.OnConnected)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.lost(generation, err)
			return
		}

		c.dispatch(generation, frame)
	}
}

// lost moves a live or connecting generation back to Disconnected. Events
// from a superseded generation or after Close are ignored.
func (c *Channel) lost(generation uint64, cause error) {
	c.mu.Lock()
	if c.closing || generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.conn = nil
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	log.Warn().Err(cause).Str("url", c.URL).Msg("Live channel disconnected, reconnecting")
	c.Metrics.SetConnected(false)

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if !c.isClosing() {
		c.Handler.OnDisconnected()
	}
}

func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closing
}

// notify runs a Handler callback only while generation is still the live
// connection of an open channel.
func (c *Channel) notify(generation uint64, callback func()) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	live := !c.closing && generation == c.generation
	c.mu.Unlock()

	if live {
		callback()
	}
}

func (c *Channel) scheduleReconnectLocked() {
	if c.reconnect != nil {
		return
	}

	pending := &pendingReconnect{}
	pending.timer = c.Clock.AfterFunc(c.ReconnectInterval, func() { c.reconnectFired(pending) })
	c.reconnect = pending
}

func (c *Channel) reconnectFired(pending *pendingReconnect) {
	c.mu.Lock()
	if c.closing || c.reconnect != pending {
		c.mu.Unlock()
		return
	}
	// Same logical timer, armed again until a connection succeeds
	pending.timer = c.Clock.AfterFunc(c.ReconnectInterval, func() { c.reconnectFired(pending) })
	attempt := c.state == StateDisconnected
	c.mu.Unlock()

	if attempt {
		log.Info().Str("url", c.URL).Msg("Attempting to reconnect live channel")
		c.Metrics.ReconnectAttempted()
		c.connect()
	}
}

func (c *Channel) cancelReconnectLocked() {
	if c.reconnect == nil {
		return
	}

	c.reconnect.timer.Stop()
	c.reconnect = nil
}

func (c *Channel) dispatch(generation uint64, frame []byte) {
	message, err := shuttle.ParseChannelMessage(frame)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(frame)).Msg("Dropping live channel message")
		c.Metrics.MessageDropped()
		return
	}

	switch message.Type {
	case shuttle.MessageTypeLocationUpdate:
		position, err := message.Position()
		if err != nil {
			log.Warn().Err(err).Msg("Dropping location update")
			c.Metrics.MessageDropped()
			return
		}

		c.Metrics.MessageReceived(string(message.Type))
		c.notify(generation, func() { c.Handler.OnLocationUpdate(position) })
	case shuttle.MessageTypeNewRouteRequest:
		c.Metrics.MessageReceived(string(message.Type))

		if request, ok := message.RouteRequest(); ok {
			log.Debug().
				Int("id", request.ID).
				Str("from", request.From).
				Str("to", request.To).
				Msg("New route request announced")
		}

		c.notify(generation, c.Handler.OnNewRouteRequest)
	}
}
