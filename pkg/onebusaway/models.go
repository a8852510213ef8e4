package onebusaway

type ArrivalsAndDeparturesResponse struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Version     int    `json:"version"`

	Data struct {
		Entry      StopArrivals `json:"entry"`
		References References   `json:"references"`
	} `json:"data"`
}

type StopArrivals struct {
	StopID                string                `json:"stopId"`
	ArrivalsAndDepartures []ArrivalAndDeparture `json:"arrivalsAndDepartures"`
	NearbyStopIDs         []string              `json:"nearbyStopIds"`
	SituationIDs          []string              `json:"situationIds"`
}

// ArrivalAndDeparture is a single vehicle visit to the stop. All times are
// epoch milliseconds and zero when the server did not provide them.
type ArrivalAndDeparture struct {
	RouteID        string `json:"routeId"`
	RouteShortName string `json:"routeShortName"`
	RouteLongName  string `json:"routeLongName"`
	TripID         string `json:"tripId"`
	TripHeadsign   string `json:"tripHeadsign"`
	StopID         string `json:"stopId"`
	StopSequence   int    `json:"stopSequence"`
	VehicleID      string `json:"vehicleId"`
	ServiceDate    int64  `json:"serviceDate"`

	Predicted              bool  `json:"predicted"`
	PredictedArrivalTime   int64 `json:"predictedArrivalTime"`
	PredictedDepartureTime int64 `json:"predictedDepartureTime"`
	ScheduledArrivalTime   int64 `json:"scheduledArrivalTime"`
	ScheduledDepartureTime int64 `json:"scheduledDepartureTime"`

	NumberOfStopsAway int     `json:"numberOfStopsAway"`
	DistanceFromStop  float64 `json:"distanceFromStop"`
	Status            string  `json:"status"`
	LastUpdateTime    int64   `json:"lastUpdateTime"`

	SituationIDs []string `json:"situationIds"`
}

type References struct {
	Agencies   []Agency    `json:"agencies"`
	Routes     []Route     `json:"routes"`
	Stops      []Stop      `json:"stops"`
	Situations []Situation `json:"situations"`
}

type Agency struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Timezone string `json:"timezone"`
}

type Route struct {
	ID        string `json:"id"`
	AgencyID  string `json:"agencyId"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Type      int    `json:"type"`
}

type Stop struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Direction string  `json:"direction"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

type Situation struct {
	ID           string `json:"id"`
	CreationTime int64  `json:"creationTime"`
	Reason       string `json:"reason"`
	Severity     string `json:"severity"`

	Summary     TranslatedString `json:"summary"`
	Description TranslatedString `json:"description"`
	URL         TranslatedString `json:"url"`

	ActiveWindows []TimeRange        `json:"activeWindows"`
	AllAffects    []AffectedEntities `json:"allAffects"`
}

type TranslatedString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type AffectedEntities struct {
	AgencyID    string `json:"agencyId"`
	RouteID     string `json:"routeId"`
	StopID      string `json:"stopId"`
	TripID      string `json:"tripId"`
	DirectionID string `json:"directionId"`
}

// Situation looks up a referenced situation by ID
func (r *References) Situation(id string) *Situation {
	for i := range r.Situations {
		if r.Situations[i].ID == id {
			return &r.Situations[i]
		}
	}

	return nil
}
