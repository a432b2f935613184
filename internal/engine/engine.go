// Package engine implements the tick pipeline (spec component C3) and the
// thread-safe command/query surface (component C6) around it. A single
// mutex serializes every public operation (spec §5): the engine is pure
// state with no internal I/O, so finer-grained locking would add risk
// without throughput gain, as the teacher's own manager package reasons for
// its collection-level lock.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/elevatorsim/engine/internal/domain"
	"github.com/elevatorsim/engine/internal/simelevator"
	"github.com/elevatorsim/engine/internal/simevents"
	"github.com/elevatorsim/engine/internal/simpassenger"
	"github.com/elevatorsim/engine/internal/traffic"
	"github.com/elevatorsim/engine/metrics"
)

// Engine owns the one simulation instance this process runs (spec §5:
// "single engine instance, multi-client").
type Engine struct {
	mu      sync.Mutex
	state   *simulationState
	breaker *Breaker
	logger  *slog.Logger

	building      traffic.BuildingConfig
	scenarios     []*traffic.Pattern
	scenarioIndex int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBreaker overrides the default circuit breaker tuning.
func WithBreaker(b *Breaker) Option {
	return func(e *Engine) { e.breaker = b }
}

// New constructs an Engine over the given scenarios, building the initial
// SimulationState from the first scenario. scenarios must be non-empty.
func New(scenarios []*traffic.Pattern, opts ...Option) (*Engine, error) {
	if len(scenarios) == 0 {
		return nil, domain.NewValidationError("at least one traffic scenario is required", nil)
	}
	e := &Engine{
		breaker:   NewBreaker(5, 30*time.Second, 2),
		logger:    slog.Default(),
		scenarios: scenarios,
		building:  scenarios[0].Building,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = newSimulationState(e.building, scenarios[0])
	return e, nil
}

// snapshotLocked builds a Snapshot from the current state. Caller must hold mu.
func (e *Engine) snapshotLocked() Snapshot {
	s := e.state
	snap := Snapshot{
		Tick:    s.tick,
		Events:  s.journal.All(),
		Metrics: computeMetrics(s),
	}
	for _, el := range s.elevators {
		snap.Elevators = append(snap.Elevators, elevatorSnapshot(el))
	}
	for _, f := range s.floors {
		snap.Floors = append(snap.Floors, FloorSnapshot{
			FloorNumber: f.Number,
			UpQueue:     append([]int(nil), f.UpQueue...),
			DownQueue:   append([]int(nil), f.DownQueue...),
		})
	}
	for _, p := range s.passengers {
		snap.Passengers = append(snap.Passengers, passengerSnapshot(p))
	}
	sort.Slice(snap.Passengers, func(i, j int) bool {
		return snap.Passengers[i].ID < snap.Passengers[j].ID
	})
	return snap
}

func elevatorSnapshot(e *simelevator.Elevator) ElevatorSnapshot {
	var next *int
	if e.NextTargetFloor != nil {
		v := *e.NextTargetFloor
		next = &v
	}
	dests := make(map[int]int, len(e.PassengerDestinations))
	for k, v := range e.PassengerDestinations {
		dests[k] = v
	}
	return ElevatorSnapshot{
		ID: e.ID,
		Position: PositionSnapshot{
			CurrentFloor:    e.Position.CurrentFloor,
			FloorUpPosition: e.Position.FloorUpPosition,
			TargetFloor:     e.Position.TargetFloor,
		},
		CurrentFloorFloat:      e.Position.CurrentFloorFloat(),
		NextTargetFloor:        next,
		TargetFloorDirection:   string(e.TargetFloorDirection()),
		Passengers:             append([]int(nil), e.Passengers...),
		MaxCapacity:            e.MaxCapacity,
		RunStatus:              string(e.RunStatus),
		LastTickDirection:      string(e.LastTickDirection),
		PassengerDestinations:  dests,
		EnergyConsumed:         e.EnergyConsumed,
		EnergyRate:             e.EnergyRate,
		IsIdle:                 e.IsIdle(),
		IsFull:                 e.IsFull(),
		LoadFactor:             e.LoadFactor(),
	}
}

func passengerSnapshot(p *simpassenger.Passenger) PassengerSnapshot {
	var elevatorID *int
	if p.HasElevator {
		v := p.ElevatorID
		elevatorID = &v
	}
	return PassengerSnapshot{
		ID:          p.ID,
		Origin:      p.Origin,
		Destination: p.Destination,
		ArriveTick:  p.ArriveTick,
		PickupTick:  p.PickupTick,
		DropoffTick: p.DropoffTick,
		ElevatorID:  elevatorID,
		Status:      string(p.Status()),
	}
}

func computeMetrics(s *simulationState) traffic.Metrics {
	samples := make([]traffic.PassengerSample, 0, len(s.passengers))
	for _, p := range s.passengers {
		if p.Status() != domain.PassengerCompleted {
			samples = append(samples, traffic.PassengerSample{})
			continue
		}
		samples = append(samples, traffic.PassengerSample{
			Completed:        true,
			FloorWaitTicks:   p.FloorWaitTicks(),
			ArrivalWaitTicks: p.ArrivalWaitTicks(),
		})
	}
	energies := make([]float64, len(s.elevators))
	for i, el := range s.elevators {
		energies[i] = el.EnergyConsumed
	}
	return traffic.Compute(samples, len(s.passengers), energies)
}

// GetState takes a coherent snapshot of the whole SimulationState under the
// engine lock (spec §4.6 get_state), satisfying invariants 1-5 of §3.
func (e *Engine) GetState() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Step advances the simulation by ticks pipeline iterations and returns the
// new tick and the event slice produced during this call (spec §4.3/§4.6).
func (e *Engine) Step(ticks int) (int, []simevents.Event, error) {
	if ticks < 1 {
		return 0, nil, domain.NewValidationError("ticks must be >= 1", nil).WithContext("ticks", ticks)
	}
	if !e.breaker.Allow() {
		return 0, nil, domain.NewInternalError("circuit breaker open: engine has surfaced repeated invariant violations", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	startIndex := s.journal.Len()

	for i := 0; i < ticks; i++ {
		tickStart := time.Now()
		s.tick++
		phaseStatus(s)
		phaseArrivals(s)
		phaseMove(s)
		phaseStops(s)
		forceComplete(s, e.building.Duration)
		metrics.ObserveTick(time.Since(tickStart).Seconds())

		if err := checkInvariants(s, e.building.FloorsCount); err != nil {
			e.breaker.RecordFailure()
			metrics.SetBreakerState(int(e.breaker.State()))
			e.logger.Error("tick invariant violation", "tick", s.tick, "error", err)
			return 0, nil, err
		}
	}

	e.breaker.RecordSuccess()
	metrics.SetBreakerState(int(e.breaker.State()))

	produced := s.journal.Since(startIndex)
	for _, ev := range produced {
		metrics.RecordEvent(string(ev.Type))
	}
	for _, el := range s.elevators {
		metrics.SetEnergyConsumed(strconv.Itoa(el.ID), el.EnergyConsumed)
	}
	for _, f := range s.floors {
		metrics.SetFloorQueueDepth(strconv.Itoa(f.Number), "up", float64(len(f.UpQueue)))
		metrics.SetFloorQueueDepth(strconv.Itoa(f.Number), "down", float64(len(f.DownQueue)))
	}

	return s.tick, produced, nil
}

// GoToFloor issues a dispatch command for one elevator (spec §4.2/§4.6).
func (e *Engine) GoToFloor(elevatorID, floor int, immediate bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if floor < 0 || floor >= e.building.FloorsCount {
		return domain.NewValidationError("floor out of range", nil).
			WithContext("floor", floor).WithContext("floors_count", e.building.FloorsCount)
	}
	el := e.findElevator(elevatorID)
	if el == nil {
		return domain.NewNotFoundError(fmt.Sprintf("elevator %d does not exist", elevatorID), nil)
	}

	if immediate {
		el.SetImmediateTarget(floor)
	} else {
		el.SetNextTarget(floor)
	}
	return nil
}

func (e *Engine) findElevator(id int) *simelevator.Elevator {
	for _, el := range e.state.elevators {
		if el.ID == id {
			return el
		}
	}
	return nil
}

// Reset reinitializes the SimulationState from the current traffic scenario
// and building config (spec §4.6 reset).
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pattern := e.scenarios[e.scenarioIndex]
	e.building = pattern.Building
	e.state = newSimulationState(e.building, pattern)
	return nil
}

// NextTrafficRound advances to the next scenario file; if fullReset, the
// entire SimulationState is rebuilt, otherwise only the traffic queue is
// replaced and state.tick continues (spec §4.5/§4.6).
func (e *Engine) NextTrafficRound(fullReset bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scenarioIndex+1 >= len(e.scenarios) {
		return domain.NewNoMoreScenariosError("no further traffic scenarios are configured", nil)
	}
	e.scenarioIndex++
	pattern := e.scenarios[e.scenarioIndex]
	e.building = pattern.Building

	if fullReset {
		e.state = newSimulationState(e.building, pattern)
		return nil
	}
	e.state.trafficQ = traffic.NewQueue(pattern)
	return nil
}

// TrafficInfoResult is the traffic_info() response (spec §4.6/§6). MaxTick
// is the scenario's declared run length (Building.Duration) — the tick a
// client should expect the scenario to run to, not merely the last tick any
// entry happens to be scheduled on.
type TrafficInfoResult struct {
	CurrentIndex int `json:"current_index"`
	TotalFiles   int `json:"total_files"`
	MaxTick      int `json:"max_tick"`
}

// TrafficInfo reports the current scenario rotation position.
func (e *Engine) TrafficInfo() TrafficInfoResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	return TrafficInfoResult{
		CurrentIndex: e.scenarioIndex,
		TotalFiles:   len(e.scenarios),
		MaxTick:      e.scenarios[e.scenarioIndex].Building.Duration,
	}
}

// BreakerState reports the circuit breaker's current state, for health
// checks.
func (e *Engine) BreakerState() BreakerState {
	return e.breaker.State()
}

// BreakerOpen reports whether the circuit breaker is currently refusing
// Step calls, satisfying health.EngineStatus.
func (e *Engine) BreakerOpen() bool {
	return e.breaker.State() == BreakerOpen
}

// CurrentTick reports the simulation's current tick, satisfying
// health.EngineStatus.
func (e *Engine) CurrentTick() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.tick
}
