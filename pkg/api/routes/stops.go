package routes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/dashboard"
	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/travigo/onebusaway/pkg/sensor"
	"github.com/travigo/onebusaway/pkg/statecache"
)

type SensorCache interface {
	Get(ctx context.Context, stopIdentifier string) ([]*sensor.Entity, error)
	Delete(ctx context.Context, stopIdentifier string) error
}

type Stops struct {
	Store   ctdf.StopConfigStore
	Flow    *configflow.Flow
	Sensors SensorCache

	NewClient func(url string, key string) configflow.ArrivalsFetcher
	Now       func() time.Time
}

func NewStops(store ctdf.StopConfigStore, flow *configflow.Flow, sensors SensorCache) *Stops {
	return &Stops{
		Store:   store,
		Flow:    flow,
		Sensors: sensors,
		NewClient: func(url string, key string) configflow.ArrivalsFetcher {
			return onebusaway.NewClient(url, key)
		},
		Now: time.Now,
	}
}

func StopsRouter(router fiber.Router, stops *Stops) {
	router.Get("/", stops.listStops)
	router.Post("/", stops.createStop)
	router.Get("/:identifier", stops.getStop)
	router.Put("/:identifier", stops.updateStop)
	router.Delete("/:identifier", stops.deleteStop)
	router.Get("/:identifier/sensors", stops.getStopSensors)
	router.Get("/:identifier/arrivals", stops.getStopArrivals)
	router.Get("/:identifier/dashboard", stops.getStopDashboard)
}

func sendReduced(c *fiber.Ctx, groups []string, data interface{}) error {
	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, data)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce response",
		})
	}

	return c.JSON(reduced)
}

func sendError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

func sendFlowError(c *fiber.Ctx, err error) error {
	var formErr *configflow.FormError
	if !errors.As(err, &formErr) {
		log.Error().Err(err).Msg("Stop config flow failed")
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	if formErr.Errors["base"] == configflow.ErrorNotFound {
		c.Status(fiber.StatusNotFound)
	} else {
		c.Status(fiber.StatusBadRequest)
	}

	return c.JSON(fiber.Map{
		"errors": formErr.Errors,
	})
}

func (s *Stops) lookupStop(c *fiber.Ctx) (*ctdf.StopConfig, error) {
	stopConfig, err := s.Store.Get(c.UserContext(), c.Params("identifier"))
	if errors.Is(err, ctdf.ErrStopConfigNotFound) {
		return nil, sendError(c, fiber.StatusNotFound, "Could not find Stop matching Stop Identifier")
	} else if err != nil {
		return nil, sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return stopConfig, nil
}

func (s *Stops) listStops(c *fiber.Ctx) error {
	stopConfigs, err := s.Store.List(c.UserContext())
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return sendReduced(c, []string{"basic"}, stopConfigs)
}

func (s *Stops) getStop(c *fiber.Ctx) error {
	stopConfig, err := s.lookupStop(c)
	if stopConfig == nil {
		return err
	}

	return sendReduced(c, []string{"basic", "detailed"}, stopConfig)
}

func (s *Stops) createStop(c *fiber.Ctx) error {
	var input configflow.UserInput
	if err := c.BodyParser(&input); err != nil {
		return sendError(c, fiber.StatusBadRequest, "Request body must be a stop config")
	}

	stopConfig, err := s.Flow.Create(c.UserContext(), input)
	if err != nil {
		return sendFlowError(c, err)
	}

	c.Status(fiber.StatusCreated)
	return sendReduced(c, []string{"basic", "detailed"}, stopConfig)
}

func (s *Stops) updateStop(c *fiber.Ctx) error {
	var input configflow.UserInput
	if err := c.BodyParser(&input); err != nil {
		return sendError(c, fiber.StatusBadRequest, "Request body must be a stop config")
	}

	stopConfig, err := s.Flow.Update(c.UserContext(), c.Params("identifier"), input)
	if err != nil {
		return sendFlowError(c, err)
	}

	return sendReduced(c, []string{"basic", "detailed"}, stopConfig)
}

func (s *Stops) deleteStop(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	err := s.Store.Delete(c.UserContext(), identifier)
	if errors.Is(err, ctdf.ErrStopConfigNotFound) {
		return sendError(c, fiber.StatusNotFound, "Could not find Stop matching Stop Identifier")
	} else if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	if s.Sensors != nil {
		if err := s.Sensors.Delete(c.UserContext(), identifier); err != nil {
			log.Error().Err(err).Str("stop", identifier).Msg("Failed to remove cached sensors")
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Stops) getStopSensors(c *fiber.Ctx) error {
	stopConfig, err := s.lookupStop(c)
	if stopConfig == nil {
		return err
	}

	entities, err := s.Sensors.Get(c.UserContext(), stopConfig.PrimaryIdentifier)
	if errors.Is(err, statecache.ErrNotCached) {
		return sendError(c, fiber.StatusNotFound, "Sensors for this stop have not been computed yet")
	} else if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(entities)
}

func (s *Stops) getStopArrivals(c *fiber.Ctx) error {
	count, err := strconv.Atoi(c.Query("count", "10"))
	if err != nil || count < 0 {
		return sendError(c, fiber.StatusBadRequest, "Parameter count should be a positive integer")
	}

	stopConfig, err := s.lookupStop(c)
	if stopConfig == nil {
		return err
	}

	arrivalFilter, err := stopConfig.GetArrivalFilter()
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	response, err := s.NewClient(stopConfig.URL, stopConfig.Token).GetArrivalsAndDepartures(c.UserContext(), stopConfig.StopID)
	if onebusaway.IsAuthentication(err) {
		return sendError(c, fiber.StatusBadGateway, "OneBusAway rejected the credentials for this stop")
	} else if err != nil {
		return sendError(c, fiber.StatusBadGateway, err.Error())
	}

	now := s.Now()
	arrivals := arrivalFilter.Apply(ctdf.ComputeArrivals(response.Data.Entry.ArrivalsAndDepartures, now), now)
	if len(arrivals) > count {
		arrivals = arrivals[:count]
	}

	return sendReduced(c, []string{"basic", "detailed"}, arrivals)
}

func (s *Stops) getStopDashboard(c *fiber.Ctx) error {
	stopConfig, err := s.lookupStop(c)
	if stopConfig == nil {
		return err
	}

	arrivals, err := strconv.Atoi(c.Query("arrivals", strconv.Itoa(stopConfig.GetMaxArrivals())))
	if err != nil || arrivals < 0 {
		return sendError(c, fiber.StatusBadRequest, "Parameter arrivals should be a positive integer")
	}

	rendered, err := dashboard.Render(dashboard.StopCard(stopConfig, arrivals))
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/yaml; charset=utf-8")
	return c.Send(rendered)
}
