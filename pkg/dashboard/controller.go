package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/shuttletrack/pkg/livechannel"
	"github.com/travigo/shuttletrack/pkg/mapview"
	"github.com/travigo/shuttletrack/pkg/metrics"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const DefaultRefreshInterval = 10 * time.Second

// Source is the backend the dashboard reads from. A false result means
// "nothing new", the widget keeps what it shows.
type Source interface {
	GetCurrentLocation(ctx context.Context) (shuttle.Position, bool)
	GetDistanceToday(ctx context.Context) (float64, bool)
	GetActiveRoute(ctx context.Context) (shuttle.ActiveRoute, bool)
	GetStops(ctx context.Context) ([]shuttle.Stop, bool)
}

type LiveChannel interface {
	Connect(ctx context.Context)
	Close() error
	State() livechannel.State
}

// Sink receives every change to the dashboard, e.g. a redis mirror
type Sink interface {
	Name() string
	PublishSnapshot(ctx context.Context, snapshot Snapshot) error
	PublishPosition(ctx context.Context, position shuttle.Position) error
}

// Controller wires the backend, the live channel and the board together
type Controller struct {
	Source  Source
	Board   *Board
	Channel LiveChannel
	Sinks   []Sink
	Metrics *metrics.Collector

	RefreshInterval time.Duration

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func NewController(source Source, view mapview.View) *Controller {
	return &Controller{
		Source:          source,
		Board:           NewBoard(view),
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Start runs the startup sequence in order, then leaves the live channel
// and the fallback refresh running until Stop or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.ctx = ctx
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	log.Info().Msg("Initializing shuttle dashboard")

	c.Board.Map.Init()

	if stops, ok := c.Source.GetStops(ctx); ok {
		c.Board.RenderStops(stops)
		log.Info().Int("stops", len(stops)).Msg("Rendered stops")
	}

	c.refreshDistance(ctx)
	c.refreshActiveRoute(ctx)

	if !c.refreshLocation(ctx) {
		c.Board.RenderWaitingForGPS()
		c.publish(ctx, nil)
	}

	if c.Channel != nil {
		c.Channel.Connect(ctx)
	}

	go c.refreshLoop(ctx, c.done)

	log.Info().Dur("refresh", c.RefreshInterval).Msg("Dashboard initialized")
}

// Stop cancels the fallback refresh and closes the live channel on purpose
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		done := c.done
		c.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}

		if c.Channel != nil {
			if err := c.Channel.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close live channel")
			}
		}

		log.Info().Msg("Dashboard stopped")
	})
}

func (c *Controller) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh is one tick of the fallback timer. The location is only polled
// while the live channel is not delivering it.
func (c *Controller) Refresh(ctx context.Context) {
	c.Metrics.RefreshTicked()

	c.refreshDistance(ctx)
	c.refreshActiveRoute(ctx)

	if c.Channel == nil || c.Channel.State() != livechannel.StateConnected {
		c.refreshLocation(ctx)
	}
}

func (c *Controller) refreshDistance(ctx context.Context) {
	if today, ok := c.Source.GetDistanceToday(ctx); ok {
		c.Board.RenderDistance(today)
		c.publish(ctx, nil)
	}
}

func (c *Controller) refreshActiveRoute(ctx context.Context) {
	if route, ok := c.Source.GetActiveRoute(ctx); ok {
		c.Board.RenderActiveRoute(route)
		c.publish(ctx, nil)
	}
}

func (c *Controller) refreshLocation(ctx context.Context) bool {
	position, ok := c.Source.GetCurrentLocation(ctx)
	if !ok {
		return false
	}

	c.Board.RenderPosition(position)
	c.publish(ctx, &position)

	return true
}

func (c *Controller) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *Controller) OnConnected() {
	c.Board.RenderConnected()
	c.publish(c.context(), nil)
}

func (c *Controller) OnDisconnected() {
	c.Board.RenderDisconnected()
	c.publish(c.context(), nil)
}

func (c *Controller) OnLocationUpdate(position shuttle.Position) {
	c.Board.RenderPosition(position)
	c.publish(c.context(), &position)
}

// OnNewRouteRequest only invalidates, the route itself is re-fetched
func (c *Controller) OnNewRouteRequest() {
	c.refreshActiveRoute(c.context())
}

func (c *Controller) publish(ctx context.Context, position *shuttle.Position) {
	if len(c.Sinks) == 0 {
		return
	}

	snapshot := c.Board.Snapshot()

	p := pool.New()
	for _, sink := range c.Sinks {
		sink := sink

		p.Go(func() {
			if err := sink.PublishSnapshot(ctx, snapshot); err != nil {
				log.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to publish dashboard snapshot")
				c.Metrics.SinkFailed(sink.Name())
			}

			if position == nil {
				return
			}
			if err := sink.PublishPosition(ctx, *position); err != nil {
				log.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to publish shuttle position")
				c.Metrics.SinkFailed(sink.Name())
			}
		})
	}
	p.Wait()
}
