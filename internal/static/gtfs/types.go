package gtfs

// Parsed rows keep the declared column subset only. Nil fields were empty or
// the null-marker token in the source file.

// Stop is a row from stops.txt
type Stop struct {
	StopID   *string
	StopName *string
	StopLat  *string
	StopLon  *string
}

// Route is a row from routes.txt
type Route struct {
	RouteID        *string
	RouteShortName *string
	RouteDesc      *string
}

// Trip is a row from trips.txt
type Trip struct {
	RouteID      *string
	ServiceID    *string
	TripID       *string
	TripHeadsign *string
	DirectionID  *string
	ShapeID      *string
}

// StopTime is a row from stop_times.txt
type StopTime struct {
	TripID        *string
	ArrivalTime   *string
	DepartureTime *string
	StopID        *string
	StopSequence  *string
}

// CalendarDate is a row from calendar_dates.txt
type CalendarDate struct {
	ServiceID     *string
	Date          *string
	ExceptionType *string
}
