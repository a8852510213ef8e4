package sensor

import (
	"fmt"
	"time"

	"github.com/travigo/onebusaway/pkg/ctdf"
)

// Arrival sensors linger a little after the vehicle is due so a late bus doesn't vanish instantly
const arrivalExpiryGrace = time.Minute

type StopSensorsInput struct {
	StopConfig    *ctdf.StopConfig
	Arrivals      []*ctdf.Arrival
	ServiceAlerts []*ctdf.ServiceAlert

	Now         time.Time
	NextRefresh time.Time
}

// BuildStopSensors produces the parent, arrival, situations & next refresh sensors of a stop
func BuildStopSensors(input StopSensorsInput) []*Entity {
	stopConfig := input.StopConfig
	title := stopConfig.Title
	if title == "" {
		title = stopConfig.StopID
	}

	parent := &Entity{
		EntityID: EntityID(stopConfig.StopID, ""),
		State:    StateUnknown,
		Attributes: map[string]interface{}{
			"friendly_name": fmt.Sprintf("OneBusAway %s", title),
			"icon":          Icon,
			"attribution":   Attribution,
			"stop_id":       stopConfig.StopID,
			"arrivals":      len(input.Arrivals),
		},
	}
	if len(input.Arrivals) > 0 {
		parent.State = formatTimestamp(input.Arrivals[0].Time)
		parent.Attributes["device_class"] = "timestamp"
		parent.Attributes["route_name"] = input.Arrivals[0].RouteShortName
	}

	entities := []*Entity{parent}

	for i, arrival := range input.Arrivals {
		entities = append(entities, buildArrivalSensor(stopConfig.StopID, i, arrival, input.Now))
	}

	entities = append(entities, buildSituationsSensor(stopConfig.StopID, title, input.ServiceAlerts, input.Now))
	entities = append(entities, &Entity{
		EntityID: EntityID(stopConfig.StopID, "next_refresh"),
		State:    formatTimestamp(input.NextRefresh),
		Attributes: map[string]interface{}{
			"friendly_name": fmt.Sprintf("OneBusAway %s next refresh", title),
			"device_class":  "timestamp",
			"icon":          "mdi:refresh",
		},
	})

	return entities
}

func buildArrivalSensor(stopID string, index int, arrival *ctdf.Arrival, now time.Time) *Entity {
	return &Entity{
		EntityID: EntityID(stopID, fmt.Sprintf("arrival_%d", index)),
		State:    formatTimestamp(arrival.Time),
		Attributes: map[string]interface{}{
			"friendly_name": arrival.Name(),
			"device_class":  "timestamp",
			"icon":          Icon,
			"attribution":   Attribution,
			"unique_id":     fmt.Sprintf("%s_%d", stopID, arrival.Time.Unix()),
			"route_name":    arrival.RouteShortName,
			"headsign":      arrival.Headsign,
			"Type":          string(arrival.Type),
			"minutes":       arrival.MinutesUntil(now),
			"trip_id":       arrival.TripID,
		},
		ExpiresAt: arrival.Time.Add(arrivalExpiryGrace),
	}
}

func buildSituationsSensor(stopID string, title string, serviceAlerts []*ctdf.ServiceAlert, now time.Time) *Entity {
	var active []*ctdf.ServiceAlert
	for _, serviceAlert := range serviceAlerts {
		if serviceAlert.IsValid(now) {
			active = append(active, serviceAlert)
		}
	}

	return &Entity{
		EntityID: EntityID(stopID, "situations"),
		State:    fmt.Sprint(len(active)),
		Attributes: map[string]interface{}{
			"friendly_name":    fmt.Sprintf("OneBusAway %s situations", title),
			"icon":             "mdi:alert-circle-outline",
			"markdown_content": RenderSituationsMarkdown(active),
		},
	}
}
