package arrivals

import (
	"encoding/json"
	"testing"
	"time"
)

func i64(v int64) *int64 { return &v }

func TestEpochToTime_SecondsAndMillis(t *testing.T) {
	base := int64(1735689600) // 2025-01-01T00:00:00Z
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := epochToTime(base); !got.Equal(want) {
		t.Errorf("seconds: got %v, want %v", got, want)
	}
	if got := epochToTime(base * 1000); !got.Equal(want) {
		t.Errorf("milliseconds: got %v, want %v", got, want)
	}
}

func TestNormalize_FlatListShape(t *testing.T) {
	p := &Payload{}
	p.Data.Entry = Entry{
		StopID: "BKK_F00950",
		ArrivalsAndDepartures: []ArrivalDeparture{
			{
				RouteID:              "BKK_1005",
				TripID:               "T1",
				ScheduledArrivalTime: i64(1735690000),
				PredictedArrivalTime: i64(1735690120),
			},
			// Whitespace inside the route id still matches
			{
				RouteID:                "BKK_ 1005",
				TripID:                 "T2",
				ScheduledDepartureTime: i64(1735690300),
			},
			// Other route filtered out
			{
				RouteID:              "BKK_0200",
				TripID:               "T3",
				ScheduledArrivalTime: i64(1735690400),
			},
		},
	}

	records := Normalize(p, "BKK_1005")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.StopID != "BKK_F00950" || r.TripID != "T1" {
		t.Errorf("unexpected record identity: %+v", r)
	}
	if r.DelaySeconds == nil || *r.DelaySeconds != 120 {
		t.Errorf("expected 120s delay, got %v", r.DelaySeconds)
	}

	// No predicted time: falls back to scheduled, delay zero
	r = records[1]
	if r.Predicted == nil || r.Scheduled == nil || !r.Predicted.Equal(*r.Scheduled) {
		t.Errorf("expected predicted fallback to scheduled: %+v", r)
	}
	if r.DelaySeconds == nil || *r.DelaySeconds != 0 {
		t.Errorf("expected zero delay on fallback, got %v", r.DelaySeconds)
	}
}

func TestNormalize_StopTimesShape(t *testing.T) {
	p := &Payload{}
	p.Data.Entry = Entry{
		StopID: "BKK_F00950",
		StopTimes: []ScheduledStopTime{
			{TripID: "T1", DepartureTime: i64(1735690000), PredictedDepartureTime: i64(1735690060)},
			{TripID: "T2", DepartureTime: i64(1735690300)},
			{TripID: "T9", DepartureTime: i64(1735690500)}, // unresolvable trip
		},
	}
	p.Data.References = References{
		Trips: map[string]TripRef{
			"T1": {RouteID: "BKK_1005"},
			"T2": {RouteID: "BKK_1005"},
		},
	}

	records := Normalize(p, "BKK_1005")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RouteID != "BKK_1005" {
		t.Errorf("route not resolved from references: %q", records[0].RouteID)
	}
	if records[0].DelaySeconds == nil || *records[0].DelaySeconds != 60 {
		t.Errorf("expected 60s delay, got %v", records[0].DelaySeconds)
	}
	if records[1].Predicted == nil || !records[1].Predicted.Equal(*records[1].Scheduled) {
		t.Errorf("expected predicted fallback in stopTimes shape: %+v", records[1])
	}
}

func TestNormalize_FlatListTakesPrecedence(t *testing.T) {
	p := &Payload{}
	p.Data.Entry = Entry{
		StopID: "BKK_F00950",
		ArrivalsAndDepartures: []ArrivalDeparture{
			{RouteID: "BKK_1005", TripID: "T1", ScheduledArrivalTime: i64(1735690000)},
		},
		StopTimes: []ScheduledStopTime{
			{TripID: "T2", DepartureTime: i64(1735690300)},
		},
	}
	p.Data.References = References{Trips: map[string]TripRef{"T2": {RouteID: "BKK_1005"}}}

	records := Normalize(p, "BKK_1005")
	if len(records) != 1 || records[0].TripID != "T1" {
		t.Fatalf("flat list should shadow stopTimes, got %+v", records)
	}
}

func TestNormalize_MillisecondEpochs(t *testing.T) {
	p := &Payload{}
	p.Data.Entry = Entry{
		StopID: "BKK_F00950",
		ArrivalsAndDepartures: []ArrivalDeparture{
			{
				RouteID:              "BKK_1005",
				TripID:               "T1",
				ScheduledArrivalTime: i64(1735690000000),
				PredictedArrivalTime: i64(1735690090000),
			},
		},
	}

	records := Normalize(p, "BKK_1005")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].DelaySeconds == nil || *records[0].DelaySeconds != 90 {
		t.Errorf("millisecond epochs not scaled: delay=%v", records[0].DelaySeconds)
	}
}

func TestNormalize_EmptyPayload(t *testing.T) {
	p := &Payload{}
	if records := Normalize(p, "BKK_1005"); len(records) != 0 {
		t.Errorf("expected no records from empty payload, got %d", len(records))
	}
}

func TestHeadways_PlausibilityWindow(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) *time.Time {
		ts := base.Add(time.Duration(sec) * time.Second)
		return &ts
	}

	// Gaps of 30s, 90s and 4000s: only the 90s gap survives
	records := []Arrival{
		{Predicted: at(0)},
		{Predicted: at(30)},
		{Predicted: at(120)},
		{Predicted: at(4120)},
		{Scheduled: at(9999)}, // nil predicted excluded
	}

	headways := Headways(records)
	if len(headways) != 1 || headways[0] != 90 {
		t.Errorf("expected [90], got %v", headways)
	}
}

func TestHeadways_SortsUnorderedPredictions(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) *time.Time {
		ts := base.Add(time.Duration(sec) * time.Second)
		return &ts
	}

	records := []Arrival{
		{Predicted: at(600)},
		{Predicted: at(0)},
		{Predicted: at(300)},
	}

	headways := Headways(records)
	if len(headways) != 2 || headways[0] != 300 || headways[1] != 300 {
		t.Errorf("expected [300 300], got %v", headways)
	}
}

func TestHeadways_BoundaryGaps(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) *time.Time {
		ts := base.Add(time.Duration(sec) * time.Second)
		return &ts
	}

	// 60 and 3600 are inclusive bounds
	records := []Arrival{
		{Predicted: at(0)},
		{Predicted: at(60)},
		{Predicted: at(3660)},
	}

	headways := Headways(records)
	if len(headways) != 2 || headways[0] != 60 || headways[1] != 3600 {
		t.Errorf("expected [60 3600], got %v", headways)
	}
}

func TestPayload_UnmarshalBothShapes(t *testing.T) {
	raw := `{"data":{"entry":{"stopId":"BKK_F00950","stopTimes":[{"tripId":"T1","departureTime":1735690000,"predictedDepartureTime":1735690060}]},"references":{"trips":{"T1":{"routeId":"BKK_1005"}}}}}`

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if p.Data.Entry.StopID != "BKK_F00950" {
		t.Errorf("unexpected stopId: %q", p.Data.Entry.StopID)
	}
	if len(p.Data.Entry.StopTimes) != 1 || p.Data.Entry.StopTimes[0].TripID != "T1" {
		t.Fatalf("stopTimes not parsed: %+v", p.Data.Entry.StopTimes)
	}
	if p.Data.References.Trips["T1"].RouteID != "BKK_1005" {
		t.Errorf("references not parsed: %+v", p.Data.References)
	}
}
