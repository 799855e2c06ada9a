package journal

import "encoding/json"

// HasKind reports whether any event in events has the given kind, used by
// the orchestrator's resume protocol to decide "has the Planner already
// terminated?" (spec §4.5).
func HasKind(events []Event, kind Kind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

// LastOfKind returns the most recent event of the given kind, if any.
func LastOfKind(events []Event, kind Kind) (Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i], true
		}
	}
	return Event{}, false
}

// FilterKind returns every event of the given kind, in original order.
func FilterKind(events []Event, kind Kind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Decode unmarshals ev's payload into v.
func Decode(ev Event, v any) error {
	return json.Unmarshal(ev.Payload, v)
}
