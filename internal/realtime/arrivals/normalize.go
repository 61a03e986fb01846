package arrivals

import (
	"sort"
	"strings"
	"time"
)

const (
	// Epoch values above this are milliseconds
	millisThreshold = int64(1e12)

	// Headway plausibility window: gaps below reject duplicate or
	// near-simultaneous predictions, gaps above are stale noise
	minHeadwaySec = 60
	maxHeadwaySec = 3600
)

// epochToTime converts an epoch value to UTC, detecting seconds vs
// milliseconds by magnitude.
func epochToTime(v int64) time.Time {
	if v > millisThreshold {
		v /= 1000
	}
	return time.Unix(v, 0).UTC()
}

func epochPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := epochToTime(*v)
	return &t
}

// normalizeRoute strips whitespace so "BKK_1005" and "BKK_ 1005" compare equal
func normalizeRoute(id string) string {
	return strings.ReplaceAll(id, " ", "")
}

// Normalize flattens either response shape into arrival records for the
// target route. The flat list takes precedence when non-empty; otherwise the
// stopTimes entries are resolved through the trip reference table. A missing
// predicted time falls back to the scheduled one, making the delay zero by
// construction; the delay is only computed when both sides are present.
func Normalize(p *Payload, targetRouteID string) []Arrival {
	target := normalizeRoute(targetRouteID)
	entry := p.Data.Entry

	var out []Arrival

	if len(entry.ArrivalsAndDepartures) > 0 {
		for _, a := range entry.ArrivalsAndDepartures {
			if normalizeRoute(a.RouteID) != target {
				continue
			}
			sched := firstEpoch(a.ScheduledArrivalTime, a.ScheduledDepartureTime)
			pred := firstEpoch(a.PredictedArrivalTime, a.PredictedDepartureTime)
			out = append(out, build(entry.StopID, a.RouteID, a.TripID, sched, pred))
		}
		return out
	}

	for _, st := range entry.StopTimes {
		ref, ok := p.Data.References.Trips[st.TripID]
		if !ok || normalizeRoute(ref.RouteID) != target {
			continue
		}
		sched := epochPtr(st.DepartureTime)
		pred := epochPtr(st.PredictedDepartureTime)
		out = append(out, build(entry.StopID, ref.RouteID, st.TripID, sched, pred))
	}
	return out
}

func firstEpoch(values ...*int64) *time.Time {
	for _, v := range values {
		if v != nil {
			return epochPtr(v)
		}
	}
	return nil
}

func build(stopID, routeID, tripID string, sched, pred *time.Time) Arrival {
	if pred == nil {
		pred = sched
	}
	var delay *int
	if sched != nil && pred != nil {
		d := int(pred.Sub(*sched) / time.Second)
		delay = &d
	}
	return Arrival{
		StopID:       stopID,
		RouteID:      routeID,
		TripID:       tripID,
		Scheduled:    sched,
		Predicted:    pred,
		DelaySeconds: delay,
	}
}

// Headways derives the gaps between consecutive predicted times of one
// snapshot, sorted ascending, keeping only gaps inside the plausibility
// window.
func Headways(records []Arrival) []int {
	var preds []time.Time
	for _, r := range records {
		if r.Predicted != nil {
			preds = append(preds, *r.Predicted)
		}
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].Before(preds[j]) })

	var headways []int
	for i := 1; i < len(preds); i++ {
		gap := int(preds[i].Sub(preds[i-1]) / time.Second)
		if gap >= minHeadwaySec && gap <= maxHeadwaySec {
			headways = append(headways, gap)
		}
	}
	return headways
}
