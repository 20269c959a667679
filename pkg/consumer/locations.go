package consumer

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

// LocationConsumer decodes positions published by the redis mirror
type LocationConsumer struct {
	Handle func(position shuttle.Position)
}

func (c *LocationConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		var position shuttle.Position
		if err := json.Unmarshal([]byte(delivery.Payload()), &position); err != nil {
			log.Error().Err(err).Str("payload", delivery.Payload()).Msg("Failed to decode shuttle position")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject delivery")
			}
			continue
		}

		c.Handle(position)

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack delivery")
		}
	}
}
