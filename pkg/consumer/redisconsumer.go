package consumer

import (
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

type RedisConsumer struct {
	Connection rmq.Connection
	QueueName  string

	NumberConsumers int
	BatchSize       int

	Timeout      time.Duration
	PollDuration time.Duration

	Consumer rmq.BatchConsumer

	queue rmq.Queue
}

func (c *RedisConsumer) Start() error {
	log.Info().Str("queue", c.QueueName).Int("consumers", c.NumberConsumers).Msg("Starting consumers")

	queue, err := c.Connection.OpenQueue(c.QueueName)
	if err != nil {
		return fmt.Errorf("open queue %s: %w", c.QueueName, err)
	}
	pollDuration := c.PollDuration
	if pollDuration <= 0 {
		pollDuration = time.Second
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), pollDuration); err != nil {
		return fmt.Errorf("start consuming %s: %w", c.QueueName, err)
	}
	c.queue = queue

	for i := 0; i < c.NumberConsumers; i++ {
		tag := fmt.Sprintf("%s-%d", c.QueueName, i)
		if _, err := queue.AddBatchConsumer(tag, int64(c.BatchSize), c.Timeout, c.Consumer); err != nil {
			return fmt.Errorf("add consumer %s: %w", tag, err)
		}
	}

	return nil
}

// Stop waits for in-flight batches to finish
func (c *RedisConsumer) Stop() {
	if c.queue == nil {
		return
	}

	<-c.queue.StopConsuming()
	log.Info().Str("queue", c.QueueName).Msg("Stopped consumers")
}
