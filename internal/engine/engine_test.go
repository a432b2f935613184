package engine

import (
	"testing"

	"github.com/elevatorsim/engine/internal/domain"
	"github.com/elevatorsim/engine/internal/simevents"
	"github.com/elevatorsim/engine/internal/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, building traffic.BuildingConfig, entries []traffic.TrafficEntry) *Engine {
	t.Helper()
	pattern := &traffic.Pattern{Name: "test", Entries: entries, Building: building}
	eng, err := New([]*traffic.Pattern{pattern})
	require.NoError(t, err)
	return eng
}

func findEvents(events []simevents.Event, t simevents.EventType) []simevents.Event {
	var out []simevents.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// S1 - single elevator, two-floor round trip.
func TestScenarioS1RoundTrip(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 2, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	entries := []traffic.TrafficEntry{{ID: 1, Origin: 0, Destination: 1, Tick: 0}}
	eng := newTestEngine(t, building, entries)

	tick, events, err := eng.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 1, tick)
	assert.Len(t, findEvents(events, simevents.UpButtonPressed), 1)

	require.NoError(t, eng.GoToFloor(0, 1, true))

	for i := 0; i < 50; i++ {
		snap := eng.GetState()
		if snap.Passengers[0].Status == string(domain.PassengerCompleted) {
			break
		}
		_, _, err := eng.Step(1)
		require.NoError(t, err)
	}

	snap := eng.GetState()
	require.Len(t, snap.Passengers, 1)
	p := snap.Passengers[0]
	assert.Equal(t, string(domain.PassengerCompleted), p.Status)
	assert.Greater(t, p.PickupTick, 0)
	assert.Greater(t, p.DropoffTick, p.PickupTick)

	boards := findEvents(snap.Events, simevents.PassengerBoard)
	alights := findEvents(snap.Events, simevents.PassengerAlight)
	assert.Len(t, boards, 1)
	assert.Len(t, alights, 1)
}

// S2 - deceleration at distance 1, never overshoots.
func TestScenarioS2NoOvershoot(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 6, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	require.NoError(t, eng.GoToFloor(0, 5, true))

	var sawTargetStop bool
	for i := 0; i < 100; i++ {
		_, events, err := eng.Step(1)
		require.NoError(t, err)
		for _, ev := range events {
			if ev.Type == simevents.StoppedAtFloor {
				floor := ev.Data["floor"].(int)
				assert.Equal(t, 5, floor, "must stop exactly at target, never overshoot")
				sawTargetStop = true
			}
		}
		snap := eng.GetState()
		el := snap.Elevators[0]
		assert.LessOrEqual(t, el.Position.CurrentFloor, 5)
		if sawTargetStop {
			break
		}
	}
	require.True(t, sawTargetStop)

	final := eng.GetState().Elevators[0]
	assert.Equal(t, 5, final.Position.CurrentFloor)
	assert.Equal(t, 0, final.Position.FloorUpPosition)
	assert.Equal(t, "STOPPED", final.RunStatus)
}

// S3 - next_target_floor queueing: mid-transit reassignment doesn't preempt
// the current destination.
func TestScenarioS3QueuedTarget(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 10, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	require.NoError(t, eng.GoToFloor(0, 3, false))

	// Drive until elevator is at floor 1, mid-transit.
	for i := 0; i < 100; i++ {
		snap := eng.GetState()
		if snap.Elevators[0].Position.CurrentFloor >= 1 {
			break
		}
		_, _, err := eng.Step(1)
		require.NoError(t, err)
	}
	require.NoError(t, eng.GoToFloor(0, 7, false))

	var stoppedAt3 bool
	for i := 0; i < 100; i++ {
		_, events, err := eng.Step(1)
		require.NoError(t, err)
		for _, ev := range events {
			if ev.Type == simevents.StoppedAtFloor && ev.Data["floor"] == 3 {
				stoppedAt3 = true
			}
		}
		if stoppedAt3 {
			break
		}
	}
	require.True(t, stoppedAt3, "elevator must still stop at 3 before adopting the queued target")

	for i := 0; i < 100; i++ {
		snap := eng.GetState()
		if snap.Elevators[0].Position.CurrentFloor == 7 && snap.Elevators[0].RunStatus == "STOPPED" {
			return
		}
		_, _, err := eng.Step(1)
		require.NoError(t, err)
	}
	t.Fatal("elevator never reached floor 7 after adopting the queued target")
}

// S4 - immediate override skips the original target entirely.
func TestScenarioS4ImmediateOverride(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 10, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	require.NoError(t, eng.GoToFloor(0, 3, false))

	for i := 0; i < 100; i++ {
		snap := eng.GetState()
		if snap.Elevators[0].Position.CurrentFloor >= 1 {
			break
		}
		_, _, err := eng.Step(1)
		require.NoError(t, err)
	}
	require.NoError(t, eng.GoToFloor(0, 7, true))

	var stops []int
	for i := 0; i < 100; i++ {
		_, events, err := eng.Step(1)
		require.NoError(t, err)
		for _, ev := range events {
			if ev.Type == simevents.StoppedAtFloor {
				stops = append(stops, ev.Data["floor"].(int))
			}
		}
		snap := eng.GetState()
		if snap.Elevators[0].Position.CurrentFloor == 7 && snap.Elevators[0].RunStatus == "STOPPED" {
			break
		}
	}
	assert.Equal(t, []int{7}, stops, "STOPPED_AT_FLOOR must be emitted only at 7, no stop at 3")
}

// S5 - capacity saturation: excess passengers remain queued in arrival order.
func TestScenarioS5CapacitySaturation(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 6, ElevatorsCount: 1, MaxCapacity: 2, Duration: 1000}
	entries := []traffic.TrafficEntry{
		{ID: 1, Origin: 0, Destination: 5, Tick: 0},
		{ID: 2, Origin: 0, Destination: 5, Tick: 0},
		{ID: 3, Origin: 0, Destination: 5, Tick: 0},
		{ID: 4, Origin: 0, Destination: 5, Tick: 0},
		{ID: 5, Origin: 0, Destination: 5, Tick: 0},
	}
	eng := newTestEngine(t, building, entries)
	_, _, err := eng.Step(1)
	require.NoError(t, err)
	require.NoError(t, eng.GoToFloor(0, 5, false))
	_, _, err = eng.Step(1)
	require.NoError(t, err)

	snap := eng.GetState()
	require.Len(t, snap.Elevators[0].Passengers, 2)
	assert.Equal(t, []int{1, 2}, snap.Elevators[0].Passengers)
	require.Len(t, snap.Floors[0].UpQueue, 3)
	assert.Equal(t, []int{3, 4, 5}, snap.Floors[0].UpQueue)
}

// S6 - percentile metric: non-standard trimmed-mean definition.
func TestScenarioS6PercentileMetric(t *testing.T) {
	var samples []traffic.PassengerSample
	for i := 1; i <= 20; i++ {
		samples = append(samples, traffic.PassengerSample{Completed: true, FloorWaitTicks: i, ArrivalWaitTicks: i})
	}
	m := traffic.Compute(samples, 20, nil)
	assert.InDelta(t, 10.5, m.AverageFloorWaitTime, 1e-9)
	assert.InDelta(t, 10.0, m.P95FloorWaitTime, 1e-9)
}

// P8 - monotonic time.
func TestMonotonicTick(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 3, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	prev := 0
	for i := 0; i < 10; i++ {
		tick, _, err := eng.Step(1)
		require.NoError(t, err)
		assert.Equal(t, prev+1, tick)
		prev = tick
	}
}

// Step rejects non-positive ticks (spec §4.6).
func TestStepRejectsNonPositiveTicks(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 3, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	_, _, err := eng.Step(0)
	require.Error(t, err)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrTypeValidation, de.Type)
}

// GoToFloor validates floor range and elevator existence (spec §4.2/§7).
func TestGoToFloorValidation(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 3, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)

	err := eng.GoToFloor(0, 10, false)
	require.Error(t, err)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrTypeValidation, de.Type)

	err = eng.GoToFloor(99, 1, false)
	require.Error(t, err)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrTypeNotFound, de.Type)
}

// NextTrafficRound returns NO_MORE_SCENARIOS past the last scenario.
func TestNextTrafficRoundExhausted(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 3, ElevatorsCount: 1, MaxCapacity: 10, Duration: 1000}
	eng := newTestEngine(t, building, nil)
	err := eng.NextTrafficRound(false)
	require.Error(t, err)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrTypeNoMoreScenarios, de.Type)
}

// TrafficInfo reports the scenario's declared duration, not the tick of its
// last traffic entry — a scenario can be scheduled to run well past (or
// before) its busiest moment.
func TestTrafficInfoReportsDuration(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 10, ElevatorsCount: 3, MaxCapacity: 10, Duration: 5000}
	entries := []traffic.TrafficEntry{
		{ID: 1, Origin: 0, Destination: 7, Tick: 0},
		{ID: 2, Origin: 3, Destination: 0, Tick: 5},
		{ID: 3, Origin: 9, Destination: 2, Tick: 35},
	}
	eng := newTestEngine(t, building, entries)

	info := eng.TrafficInfo()
	assert.Equal(t, 5000, info.MaxTick)
	assert.NotEqual(t, 35, info.MaxTick)
}

// P2 - queue correctness: after a multi-tick run, every WAITING passenger
// appears in exactly one floor queue, and no floor queue references a
// passenger that isn't WAITING.
func TestQueueMembershipIsExact(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 6, ElevatorsCount: 2, MaxCapacity: 4, Duration: 1000}
	entries := []traffic.TrafficEntry{
		{ID: 1, Origin: 0, Destination: 4, Tick: 0},
		{ID: 2, Origin: 5, Destination: 1, Tick: 0},
		{ID: 3, Origin: 2, Destination: 3, Tick: 1},
		{ID: 4, Origin: 0, Destination: 5, Tick: 2},
		{ID: 5, Origin: 3, Destination: 0, Tick: 3},
	}
	eng := newTestEngine(t, building, entries)
	_, _, err := eng.Step(40)
	require.NoError(t, err)

	s := eng.state
	queued := make(map[int]int) // passenger id -> number of floor queues it appears in
	for _, f := range s.floors {
		for _, id := range f.UpQueue {
			queued[id]++
		}
		for _, id := range f.DownQueue {
			queued[id]++
		}
	}

	for id, count := range queued {
		assert.LessOrEqual(t, count, 1, "passenger %d appears in more than one floor queue", id)
		p, ok := s.passengers[id]
		require.True(t, ok, "queued passenger %d has no passenger record", id)
		assert.Equal(t, domain.PassengerWaiting, p.Status(), "passenger %d is queued but not WAITING", id)
	}

	for id, p := range s.passengers {
		if p.Status() != domain.PassengerWaiting {
			continue
		}
		assert.Equal(t, 1, queued[id], "WAITING passenger %d is not in exactly one floor queue", id)
	}
}

// P5 - event/tick stamping across step(n) slicing: the events a single
// step(n) call returns all carry tick values within (old_tick, old_tick+n],
// and are exactly the slice journal.Since(old_tick_index) would return.
func TestStepEventsAreStampedWithinWindow(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 6, ElevatorsCount: 2, MaxCapacity: 4, Duration: 1000}
	entries := []traffic.TrafficEntry{
		{ID: 1, Origin: 0, Destination: 4, Tick: 0},
		{ID: 2, Origin: 5, Destination: 1, Tick: 2},
		{ID: 3, Origin: 2, Destination: 3, Tick: 4},
	}
	eng := newTestEngine(t, building, entries)

	_, _, err := eng.Step(3)
	require.NoError(t, err)
	oldTick := eng.state.tick
	oldIndex := eng.state.journal.Len()

	const n = 5
	newTick, events, err := eng.Step(n)
	require.NoError(t, err)
	require.Equal(t, oldTick+n, newTick)

	for _, ev := range events {
		assert.Greater(t, ev.Tick, oldTick)
		assert.LessOrEqual(t, ev.Tick, oldTick+n)
	}
	assert.Equal(t, eng.state.journal.Since(oldIndex), events)
}

// P6 - determinism: two engines built from identical scenarios, driven by
// an identical command sequence, end up in identical states.
func TestIdenticalRunsAreDeterministic(t *testing.T) {
	building := traffic.BuildingConfig{FloorsCount: 8, ElevatorsCount: 3, MaxCapacity: 6, Duration: 2000}
	entries := []traffic.TrafficEntry{
		{ID: 1, Origin: 0, Destination: 7, Tick: 0},
		{ID: 2, Origin: 3, Destination: 0, Tick: 1},
		{ID: 3, Origin: 6, Destination: 2, Tick: 3},
		{ID: 4, Origin: 1, Destination: 5, Tick: 6},
	}

	run := func() Snapshot {
		eng := newTestEngine(t, building, append([]traffic.TrafficEntry(nil), entries...))
		require.NoError(t, eng.GoToFloor(0, 4, false))
		_, _, err := eng.Step(10)
		require.NoError(t, err)
		require.NoError(t, eng.GoToFloor(1, 2, true))
		_, _, err = eng.Step(15)
		require.NoError(t, err)
		return eng.GetState()
	}

	a, b := run(), run()
	assert.Equal(t, a, b)
}
