package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/onebusaway/pkg/stats"
)

func StatsRouter(router fiber.Router, stops *Stops) {
	router.Get("/stops", stops.getStopsStats)
}

func (s *Stops) getStopsStats(c *fiber.Ctx) error {
	stopsStats, err := stats.GetStops(c.UserContext(), s.Store)
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(stopsStats)
}
