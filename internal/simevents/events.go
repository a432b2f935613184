// Package simevents implements the append-only, tick-stamped event journal
// of spec component C4. Events are never retracted; step(n) returns only
// the slice produced during that call.
package simevents

// EventType is the closed set of journal event kinds (spec §4.4).
type EventType string

const (
	UpButtonPressed     EventType = "UP_BUTTON_PRESSED"
	DownButtonPressed   EventType = "DOWN_BUTTON_PRESSED"
	PassingFloor        EventType = "PASSING_FLOOR"
	StoppedAtFloor      EventType = "STOPPED_AT_FLOOR"
	ElevatorApproaching EventType = "ELEVATOR_APPROACHING"
	Idle                EventType = "IDLE"
	PassengerBoard      EventType = "PASSENGER_BOARD"
	PassengerAlight     EventType = "PASSENGER_ALIGHT"
	ElevatorMove        EventType = "ELEVATOR_MOVE"
)

// Event is one journal entry: a tick stamp, a type, and a free-form data
// payload whose keys are fixed per event type (spec §4.4 — part of the
// external contract, so handlers must not rename or drop keys).
type Event struct {
	Tick int            `json:"tick"`
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// Journal is the ordered, unbounded, append-only event log for one
// simulation lifetime.
type Journal struct {
	events []Event
}

// Append records a new event at the end of the journal.
func (j *Journal) Append(tick int, eventType EventType, data map[string]any) {
	j.events = append(j.events, Event{Tick: tick, Type: eventType, Data: data})
}

// Len returns the number of events recorded so far.
func (j *Journal) Len() int {
	return len(j.events)
}

// Since returns the events appended after index start, i.e. events[start:].
// Used by step(n) to return exactly the slice it produced (spec §4.3 step 3).
func (j *Journal) Since(start int) []Event {
	if start >= len(j.events) {
		return nil
	}
	out := make([]Event, len(j.events)-start)
	copy(out, j.events[start:])
	return out
}

// All returns every event recorded, for get_state snapshots.
func (j *Journal) All() []Event {
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}
