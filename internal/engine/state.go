package engine

import (
	"github.com/elevatorsim/engine/internal/simelevator"
	"github.com/elevatorsim/engine/internal/simevents"
	"github.com/elevatorsim/engine/internal/simfloor"
	"github.com/elevatorsim/engine/internal/simpassenger"
	"github.com/elevatorsim/engine/internal/traffic"
)

// simulationState is the engine's sole shared resource (spec §5): it is
// exclusively owned by the engine and mutated only under Engine.mu.
type simulationState struct {
	tick       int
	elevators  []*simelevator.Elevator
	floors     []*simfloor.Floor
	passengers map[int]*simpassenger.Passenger
	journal    simevents.Journal
	trafficQ   *traffic.Queue
}

func newSimulationState(building traffic.BuildingConfig, pattern *traffic.Pattern) *simulationState {
	s := &simulationState{
		passengers: make(map[int]*simpassenger.Passenger),
	}
	s.floors = make([]*simfloor.Floor, building.FloorsCount)
	for i := range s.floors {
		s.floors[i] = simfloor.New(i)
	}
	s.elevators = make([]*simelevator.Elevator, building.ElevatorsCount)
	for i := range s.elevators {
		s.elevators[i] = simelevator.New(i, 0, building.MaxCapacity, building.EnergyRateFor(i))
	}
	if pattern != nil {
		s.trafficQ = traffic.NewQueue(pattern)
	}
	return s
}

// PositionSnapshot is the wire-facing view of a Position (spec §6 encoding).
type PositionSnapshot struct {
	CurrentFloor    int `json:"current_floor"`
	FloorUpPosition int `json:"floor_up_position"`
	TargetFloor     int `json:"target_floor"`
}

// ElevatorSnapshot is the wire-facing, immutable view of one Elevator.
type ElevatorSnapshot struct {
	ID                    int              `json:"id"`
	Position              PositionSnapshot `json:"position"`
	CurrentFloorFloat     float64          `json:"current_floor_float"`
	NextTargetFloor       *int             `json:"next_target_floor"`
	TargetFloorDirection  string           `json:"target_floor_direction"`
	Passengers            []int            `json:"passengers"`
	MaxCapacity           int              `json:"max_capacity"`
	RunStatus             string           `json:"run_status"`
	LastTickDirection     string           `json:"last_tick_direction"`
	PassengerDestinations map[int]int      `json:"passenger_destinations"`
	EnergyConsumed        float64          `json:"energy_consumed"`
	EnergyRate            float64          `json:"energy_rate"`
	IsIdle                bool             `json:"is_idle"`
	IsFull                bool             `json:"is_full"`
	LoadFactor            float64          `json:"load_factor"`
}

// FloorSnapshot is the wire-facing view of one Floor.
type FloorSnapshot struct {
	FloorNumber int   `json:"floor_number"`
	UpQueue     []int `json:"up_queue"`
	DownQueue   []int `json:"down_queue"`
}

// PassengerSnapshot is the wire-facing view of one Passenger.
type PassengerSnapshot struct {
	ID          int    `json:"id"`
	Origin      int    `json:"origin"`
	Destination int    `json:"destination"`
	ArriveTick  int    `json:"arrive_tick"`
	PickupTick  int    `json:"pickup_tick"`
	DropoffTick int    `json:"dropoff_tick"`
	ElevatorID  *int   `json:"elevator_id"`
	Status      string `json:"status"`
}

// Snapshot is the immutable SimulationState view returned by get_state,
// taken under the engine lock per spec §4.6/§9 (explicit snapshot, not a
// transparent remote-state proxy).
type Snapshot struct {
	Tick       int                 `json:"tick"`
	Elevators  []ElevatorSnapshot  `json:"elevators"`
	Floors     []FloorSnapshot     `json:"floors"`
	Passengers []PassengerSnapshot `json:"passengers"`
	Events     []simevents.Event   `json:"events"`
	Metrics    traffic.Metrics     `json:"metrics"`
}
