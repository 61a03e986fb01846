package arrivals

import "time"

// Payload mirrors the feed's response envelope. The vehicle-arrival data
// appears in one of two shapes: a flat arrivalsAndDepartures list carrying
// route ids directly, or a stopTimes list whose entries only reference a trip
// and need the references table to resolve their route.
type Payload struct {
	Data struct {
		Entry      Entry      `json:"entry"`
		References References `json:"references"`
	} `json:"data"`
}

// Entry holds the per-stop arrival data of one response
type Entry struct {
	StopID                string              `json:"stopId"`
	ArrivalsAndDepartures []ArrivalDeparture  `json:"arrivalsAndDepartures"`
	StopTimes             []ScheduledStopTime `json:"stopTimes"`
}

// References carries the secondary lookup tables of the response
type References struct {
	Trips map[string]TripRef `json:"trips"`
}

// TripRef resolves a trip reference to its route
type TripRef struct {
	RouteID string `json:"routeId"`
}

// ArrivalDeparture is one entry of the flat list shape. Epoch fields may be
// seconds or milliseconds; the normalizer detects which by magnitude.
type ArrivalDeparture struct {
	RouteID                string `json:"routeId"`
	TripID                 string `json:"tripId"`
	ScheduledArrivalTime   *int64 `json:"scheduledArrivalTime"`
	ScheduledDepartureTime *int64 `json:"scheduledDepartureTime"`
	PredictedArrivalTime   *int64 `json:"predictedArrivalTime"`
	PredictedDepartureTime *int64 `json:"predictedDepartureTime"`
}

// ScheduledStopTime is one entry of the per-stop scheduled-time shape
type ScheduledStopTime struct {
	TripID                 string `json:"tripId"`
	DepartureTime          *int64 `json:"departureTime"`
	PredictedDepartureTime *int64 `json:"predictedDepartureTime"`
}

// Arrival is the normalized record both shapes converge on. One poll yields
// zero or more arrivals sharing a snapshot timestamp.
type Arrival struct {
	StopID       string
	RouteID      string
	TripID       string
	Scheduled    *time.Time
	Predicted    *time.Time
	DelaySeconds *int
}
