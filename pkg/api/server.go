package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/onebusaway/pkg/api/routes"
)

func NewApp(stops *routes.Stops) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.StopsRouter(group.Group("/stops"), stops)
	routes.StatsRouter(group.Group("/stats"), stops)

	return webApp
}

func SetupServer(listen string, stops *routes.Stops) error {
	return NewApp(stops).Listen(listen)
}
