package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/shuttletrack/pkg/livechannel"
)

type ChannelState interface {
	State() livechannel.State
}

func Health(channel ChannelState) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := livechannel.StateDisconnected
		if channel != nil {
			state = channel.State()
		}

		return c.JSON(fiber.Map{
			"status":       "ok",
			"live_channel": state.String(),
		})
	}
}

func APIVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": "v0.1",
	})
}
