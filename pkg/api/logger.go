package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scrapes and probes hit these every few seconds, keep them out of info logs
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		startTime := time.Now()
		err = c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()

		requestLogger := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(startTime)).
			Logger()

		var event *zerolog.Event
		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			event = requestLogger.Warn()
		case code >= fiber.StatusInternalServerError:
			event = requestLogger.Error()
		case quietPaths[c.Path()]:
			event = requestLogger.Debug()
		default:
			event = requestLogger.Info()
		}
		event.Msg(msg)

		return nil
	}
}
