package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/shuttletrack/pkg/dashboard"
)

type SnapshotSource interface {
	Snapshot() dashboard.Snapshot
}

func DashboardRouter(router fiber.Router, board SnapshotSource) {
	router.Get("/", func(c *fiber.Ctx) error {
		return getDashboard(c, board)
	})
	router.Get("/map", func(c *fiber.Ctx) error {
		return c.JSON(board.Snapshot().Map)
	})
	router.Get("/stops", func(c *fiber.Ctx) error {
		stops := board.Snapshot().Stops
		if stops == nil {
			stops = []dashboard.StopRow{}
		}

		return c.JSON(stops)
	})
}

func getDashboard(c *fiber.Ctx, board SnapshotSource) error {
	snapshot := board.Snapshot()

	switch c.Query("detail") {
	case "", "full":
		return c.JSON(snapshot)
	case "basic":
		snapshotReduced, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, snapshot)
		if err != nil {
			log.Error().Err(err).Msg("Sheriff could not reduce dashboard snapshot")

			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sheriff could not reduce dashboard snapshot",
			})
		}

		return c.JSON(snapshotReduced)
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "detail must be one of basic, full",
		})
	}
}
