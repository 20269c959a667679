package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/dashboard"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const (
	SnapshotKey    = "shuttletrack:dashboard"
	LocationsQueue = "shuttle-locations"
)

// KeyValueStore is the part of the redis client the mirror writes with
type KeyValueStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisMirror copies the dashboard into redis: the latest snapshot under a
// single key, positions onto a queue for downstream consumers.
//
// The queue holds at most QueueLimit ready positions. Once it is full new
// positions are dropped until a consumer catches up. Positions are only
// published with a Queue, a Backlog and a positive limit.
type RedisMirror struct {
	Store KeyValueStore
	Queue rmq.Queue

	QueueLimit int64
	// Backlog reports the ready deliveries on the location queue
	Backlog func() (int64, error)
}

func NewRedisMirror(client *redis.Client, connection rmq.Connection, queueLimit int) (*RedisMirror, error) {
	mirror := &RedisMirror{
		Store:      client,
		QueueLimit: int64(queueLimit),
	}
	if queueLimit == 0 {
		return mirror, nil
	}

	queue, err := connection.OpenQueue(LocationsQueue)
	if err != nil {
		return nil, fmt.Errorf("open queue %s: %w", LocationsQueue, err)
	}
	mirror.Queue = queue
	mirror.Backlog = func() (int64, error) {
		return ReadyCount(connection, LocationsQueue)
	}

	return mirror, nil
}

// ReadyCount returns how many deliveries are waiting on a queue
func ReadyCount(connection rmq.Connection, queueName string) (int64, error) {
	stats, err := connection.CollectStats([]string{queueName})
	if err != nil {
		return 0, err
	}

	return stats.QueueStats[queueName].ReadyCount, nil
}

func (m *RedisMirror) Name() string {
	return "redis"
}

func (m *RedisMirror) PublishSnapshot(ctx context.Context, snapshot dashboard.Snapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return m.Store.Set(ctx, SnapshotKey, snapshotJSON, 0).Err()
}

func (m *RedisMirror) PublishPosition(_ context.Context, position shuttle.Position) error {
	if m.Queue == nil || m.Backlog == nil || m.QueueLimit <= 0 {
		return nil
	}

	ready, err := m.Backlog()
	if err != nil {
		return fmt.Errorf("count %s backlog: %w", LocationsQueue, err)
	}
	if ready >= m.QueueLimit {
		log.Debug().Int64("ready", ready).Int64("limit", m.QueueLimit).Msg("Location queue full, dropping position")
		return nil
	}

	positionJSON, err := json.Marshal(position)
	if err != nil {
		return err
	}

	return m.Queue.PublishBytes(positionJSON)
}
