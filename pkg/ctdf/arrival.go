package ctdf

import (
	"time"

	"github.com/travigo/onebusaway/pkg/onebusaway"
	"golang.org/x/exp/slices"
)

type ArrivalType string

const (
	ArrivalTypePredicted ArrivalType = "Predicted"
	ArrivalTypeScheduled ArrivalType = "Scheduled"
)

const (
	unknownHeadsign = "Unknown"
	unknownRoute    = "Unknown Route"
)

type Arrival struct {
	StopID string `groups:"basic" csv:"stop_id"`

	Time time.Time   `groups:"basic" csv:"time"`
	Type ArrivalType `groups:"basic" csv:"type"`

	RouteShortName string `groups:"basic" csv:"route"`
	Headsign       string `groups:"basic" csv:"headsign"`

	RouteID   string `groups:"detailed" csv:"route_id"`
	TripID    string `groups:"detailed" csv:"trip_id"`
	VehicleID string `groups:"detailed" csv:"vehicle_id"`

	SituationIDs []string `groups:"detailed" csv:"-"`
}

// Name is the human readable "<route> to <headsign>" label of the arrival
func (a *Arrival) Name() string {
	return a.RouteShortName + " to " + a.Headsign
}

// MinutesUntil rounds down the time left until the arrival, never below zero
func (a *Arrival) MinutesUntil(now time.Time) int {
	minutes := int(a.Time.Sub(now).Minutes())
	if minutes < 0 {
		return 0
	}

	return minutes
}

// ComputeArrivals picks the upcoming time for every arrival & departure after the given time.
// A prediction is preferred, otherwise the scheduled departure is used. Records with neither
// in the future are dropped. The result is ordered by time.
func ComputeArrivals(arrivalsAndDepartures []onebusaway.ArrivalAndDeparture, after time.Time) []*Arrival {
	current := after.UnixMilli()
	arrivals := []*Arrival{}

	for _, record := range arrivalsAndDepartures {
		var arrivalTime int64
		var arrivalType ArrivalType

		if record.PredictedArrivalTime != 0 && record.PredictedArrivalTime > current {
			arrivalTime = record.PredictedArrivalTime
			arrivalType = ArrivalTypePredicted
		} else if record.ScheduledDepartureTime != 0 && record.ScheduledDepartureTime > current {
			arrivalTime = record.ScheduledDepartureTime
			arrivalType = ArrivalTypeScheduled
		} else {
			continue
		}

		headsign := record.TripHeadsign
		if headsign == "" {
			headsign = unknownHeadsign
		}
		routeShortName := record.RouteShortName
		if routeShortName == "" {
			routeShortName = unknownRoute
		}

		arrivals = append(arrivals, &Arrival{
			StopID:         record.StopID,
			Time:           time.UnixMilli(arrivalTime).UTC(),
			Type:           arrivalType,
			RouteShortName: routeShortName,
			Headsign:       headsign,
			RouteID:        record.RouteID,
			TripID:         record.TripID,
			VehicleID:      record.VehicleID,
			SituationIDs:   record.SituationIDs,
		})
	}

	slices.SortStableFunc(arrivals, func(a, b *Arrival) int {
		return a.Time.Compare(b.Time)
	})

	return arrivals
}
