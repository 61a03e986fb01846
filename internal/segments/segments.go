// Package segments turns ordered per-trip stop events into directional travel
// segments with wraparound-aware scheduled durations.
package segments

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// secondsPerDay is the rollover applied when an arrival reads earlier than the
// departure it follows.
const secondsPerDay = 86400

// StopEvent is one scheduled arrival/departure within a trip, joined to the
// trip's route and service. Time and sequence fields come straight from
// staging and may be absent or malformed.
type StopEvent struct {
	TripID        string
	RouteID       string
	ServiceID     *string
	StopID        string
	ArrivalTime   *string
	DepartureTime *string
	StopSequence  *string
}

// Segment is the travel leg between two consecutive stops of one trip
type Segment struct {
	RouteID        string
	ServiceID      *string
	TripID         string
	FromStopID     string
	ToStopID       string
	FromDepTimeSec int
	ToArrTimeSec   int
	DurationSec    int
}

// ParseTimeOfDay converts "HH:MM:SS" to seconds since midnight. Hours may
// exceed 23: post-midnight service belongs to the prior service day and is
// encoded as 24:xx:xx and up, so no modulo is applied here.
func ParseTimeOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}
	return h*3600 + m*60 + sec, nil
}

// DurationSec computes the scheduled duration between a departure and the
// following arrival, both in raw (non-wrapped) seconds since midnight. When
// the raw arrival reads earlier than the departure, the arrival is treated as
// having rolled into the next calendar day. The comparison is on raw values
// even when both exceed 24h; feeds that encode both sides inconsistently past
// midnight are out of scope for this correction.
func DurationSec(depSec, arrSec int) int {
	if arrSec < depSec {
		return arrSec + secondsPerDay - depSec
	}
	return arrSec - depSec
}

// Derive pairs each stop event of one trip with its immediate successor in
// stop-sequence order and emits one segment per valid adjacent pair. Events
// without a numeric stop sequence are excluded up front; a pair is dropped
// when it has no successor or when either endpoint's time fails to parse.
func Derive(events []StopEvent) []Segment {
	ordered := make([]orderedEvent, 0, len(events))
	for _, ev := range events {
		if ev.StopSequence == nil {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSpace(*ev.StopSequence))
		if err != nil {
			continue
		}
		ordered = append(ordered, orderedEvent{seq: seq, ev: ev})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	var segs []Segment
	for i := 0; i+1 < len(ordered); i++ {
		from := ordered[i].ev
		to := ordered[i+1].ev

		if from.DepartureTime == nil || to.ArrivalTime == nil {
			continue
		}
		depSec, err := ParseTimeOfDay(*from.DepartureTime)
		if err != nil {
			continue
		}
		arrSec, err := ParseTimeOfDay(*to.ArrivalTime)
		if err != nil {
			continue
		}

		segs = append(segs, Segment{
			RouteID:        from.RouteID,
			ServiceID:      from.ServiceID,
			TripID:         from.TripID,
			FromStopID:     from.StopID,
			ToStopID:       to.StopID,
			FromDepTimeSec: depSec,
			ToArrTimeSec:   arrSec,
			DurationSec:    DurationSec(depSec, arrSec),
		})
	}
	return segs
}

type orderedEvent struct {
	seq int
	ev  StopEvent
}
