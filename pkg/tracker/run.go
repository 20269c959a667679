package tracker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/api"
	"github.com/travigo/shuttletrack/pkg/config"
	"github.com/travigo/shuttletrack/pkg/consumer"
	"github.com/travigo/shuttletrack/pkg/dashboard"
	"github.com/travigo/shuttletrack/pkg/livechannel"
	"github.com/travigo/shuttletrack/pkg/mapview"
	"github.com/travigo/shuttletrack/pkg/metrics"
	"github.com/travigo/shuttletrack/pkg/mirror"
	"github.com/travigo/shuttletrack/pkg/redis_client"
	"github.com/travigo/shuttletrack/pkg/shuttle"
	"github.com/travigo/shuttletrack/pkg/shuttleapi"
)

const shutdownTimeout = 5 * time.Second

// Run starts the dashboard and blocks until ctx is cancelled or the process
// receives SIGINT/SIGTERM. A remote config that cannot be loaded aborts startup.
func Run(ctx context.Context, settings config.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(settings.RefreshInterval, settings.ReconnectInterval)

	client, remote, err := connectBackend(ctx, settings)
	if err != nil {
		return err
	}
	client.Metrics = collector

	controller := dashboard.NewController(client, mapview.New())
	controller.RefreshInterval = settings.RefreshInterval
	controller.Metrics = collector

	if settings.RedisEnabled() {
		if err := redis_client.Connect(settings); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redis_client.Close()

		client.Stops = shuttleapi.NewRedisStopCache(redis_client.Client, settings.StopCacheExpiration)

		redisMirror, err := mirror.NewRedisMirror(redis_client.Client, redis_client.QueueConnection, settings.LocationQueueLimit)
		if err != nil {
			return err
		}
		controller.Sinks = append(controller.Sinks, redisMirror)
	}

	channel := livechannel.New(remote.LiveChannelURL(), controller)
	channel.ReconnectInterval = settings.ReconnectInterval
	channel.Metrics = collector
	controller.Channel = channel

	webApp := api.NewApp(controller.Board, channel, collector)
	go func() {
		log.Info().Str("listen", settings.Listen).Msg("Starting status API")
		if err := api.SetupServer(settings.Listen, webApp); err != nil {
			log.Error().Err(err).Msg("Status API stopped")
		}
	}()

	controller.Start(ctx)

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	controller.Stop()

	if err := webApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down status API cleanly")
	}

	return nil
}

func connectBackend(ctx context.Context, settings config.Settings) (*shuttleapi.Client, *config.Remote, error) {
	client := shuttleapi.NewClient("", settings.RequestTimeout)

	remote, err := config.LoadRemote(ctx, client.HTTP, settings.ConfigURL, settings.Scheme)
	if err != nil {
		return nil, nil, err
	}
	client.BaseURL = remote.BaseURL()

	log.Info().Str("base_url", client.BaseURL).Msg("Loaded remote config")

	return client, remote, nil
}

type inspection struct {
	BaseURL        string
	LiveChannelURL string
	Location       *shuttle.Position
	Distance       *shuttle.DistanceStats
	ActiveRoute    *shuttle.ActiveRoute
	Stops          []shuttle.Stop
}

// Inspect fetches every REST resource once and pretty prints the result
func Inspect(ctx context.Context, settings config.Settings) error {
	client, remote, err := connectBackend(ctx, settings)
	if err != nil {
		return err
	}

	result := inspection{
		BaseURL:        remote.BaseURL(),
		LiveChannelURL: remote.LiveChannelURL(),
	}

	if position, ok := client.GetCurrentLocation(ctx); ok {
		result.Location = &position
	}
	if distance, ok := client.GetDistanceStats(ctx); ok {
		result.Distance = &distance
	}
	if route, ok := client.GetActiveRoute(ctx); ok {
		result.ActiveRoute = &route
	}
	if stops, ok := client.GetStops(ctx); ok {
		result.Stops = stops
	}

	pretty.Println(result)

	return nil
}

// Tail consumes the location queue filled by a running dashboard with a redis
// mirror and logs every position until interrupted.
func Tail(ctx context.Context, settings config.Settings) error {
	if !settings.RedisEnabled() {
		return fmt.Errorf("tail needs a redis address")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redis_client.Connect(settings); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redis_client.Close()

	locationConsumer := &consumer.RedisConsumer{
		Connection:      redis_client.QueueConnection,
		QueueName:       mirror.LocationsQueue,
		NumberConsumers: 1,
		BatchSize:       20,
		Timeout:         2 * time.Second,
		Consumer: &consumer.LocationConsumer{
			Handle: func(position shuttle.Position) {
				log.Info().
					Float64("latitude", position.Latitude).
					Float64("longitude", position.Longitude).
					Float64("speed", position.Speed).
					Msg("Shuttle position")
			},
		},
	}
	if err := locationConsumer.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	locationConsumer.Stop()

	return nil
}
