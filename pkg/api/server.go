package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/travigo/shuttletrack/pkg/api/routes"
	"github.com/travigo/shuttletrack/pkg/metrics"
)

func NewApp(board routes.SnapshotSource, channel routes.ChannelState, collector *metrics.Collector) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/version", routes.APIVersion)
	webApp.Get("/health", routes.Health(channel))

	if collector != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	routes.DashboardRouter(webApp.Group("/dashboard"), board)

	return webApp
}

func SetupServer(listen string, webApp *fiber.App) error {
	return webApp.Listen(listen)
}
