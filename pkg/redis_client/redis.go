package redis_client

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/config"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const queueConnectionTag = "shuttletrack"

func Connect(settings config.Settings) error {
	options := &redis.Options{
		Addr: settings.RedisAddress,
		DB:   settings.RedisDatabase,
	}
	if settings.RedisPassword != "" {
		options.Password = settings.RedisPassword
	}

	Client = redis.NewClient(options)

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	errChan := make(chan error, 10)
	go logQueueErrors(errChan)

	QueueConnection, err = rmq.OpenConnectionWithRedisClient(queueConnectionTag, Client, errChan)
	if err != nil {
		return err
	}

	log.Info().Str("address", settings.RedisAddress).Int("database", settings.RedisDatabase).Msg("Connected to redis")

	return nil
}

func logQueueErrors(errChan <-chan error) {
	for err := range errChan {
		log.Warn().Err(err).Msg("Redis queue error")
	}
}

func Close() {
	if QueueConnection != nil {
		<-QueueConnection.StopAllConsuming()
	}
	if Client != nil {
		Client.Close()
	}
}
