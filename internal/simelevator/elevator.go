// Package simelevator implements the per-elevator state machine of spec
// component C2: run-status transitions, the next-target queue, and the
// go_to_floor command contract. It holds no internal mutex: the engine's
// single mutex (spec §5) serializes every access, so per-elevator locking
// would add risk without throughput gain, exactly as the teacher repo
// reasons for its manager-level collection lock.
package simelevator

import (
	"github.com/elevatorsim/engine/internal/domain"
	"github.com/elevatorsim/engine/internal/position"
)

// Elevator is one car: its physical position, run-status, passenger load,
// and energy accounting.
type Elevator struct {
	ID                    int
	Position              position.Position
	NextTargetFloor       *int
	Passengers            []int
	MaxCapacity           int
	RunStatus             domain.RunStatus
	LastTickDirection     domain.Direction
	PassengerDestinations map[int]int
	EnergyConsumed        float64
	EnergyRate            float64

	// MovedDirectionThisTick is a transient, per-tick scratch field: Phase C
	// sets it to the direction actually moved this tick (or leaves it
	// DirectionStopped if the elevator didn't move), and Phase D reads it to
	// decide which floor queue direction to board from and to refresh
	// LastTickDirection. It carries no meaning between ticks and is reset to
	// DirectionStopped at the start of every Phase A.
	MovedDirectionThisTick domain.Direction
}

// New constructs an idle elevator parked at startFloor.
func New(id, startFloor, maxCapacity int, energyRate float64) *Elevator {
	return &Elevator{
		ID:                    id,
		Position:              position.New(startFloor, startFloor),
		MaxCapacity:           maxCapacity,
		RunStatus:             domain.RunStatusStopped,
		LastTickDirection:     domain.DirectionStopped,
		PassengerDestinations: make(map[int]int),
		EnergyRate:            energyRate,
	}
}

// TargetFloorDirection is the derived vertical direction toward the current
// target, per spec §3 ("never stored").
func (e *Elevator) TargetFloorDirection() domain.Direction {
	return e.Position.TargetDirection()
}

// IsIdle reports run_status=STOPPED, no queued next target, and no current
// directional commitment.
func (e *Elevator) IsIdle() bool {
	return e.RunStatus == domain.RunStatusStopped &&
		e.NextTargetFloor == nil &&
		e.TargetFloorDirection() == domain.DirectionStopped
}

// IsFull reports |passengers| = max_capacity.
func (e *Elevator) IsFull() bool {
	return len(e.Passengers) >= e.MaxCapacity
}

// LoadFactor is |passengers| / max_capacity.
func (e *Elevator) LoadFactor() float64 {
	if e.MaxCapacity == 0 {
		return 0
	}
	return float64(len(e.Passengers)) / float64(e.MaxCapacity)
}

// SetNextTarget queues floor as next_target_floor, overwriting any existing
// queued value (spec §4.2 go_to_floor, immediate=false).
func (e *Elevator) SetNextTarget(floor int) {
	f := floor
	e.NextTargetFloor = &f
}

// SetImmediateTarget flips the live target_floor atomically (spec §4.2
// go_to_floor, immediate=true). The elevator's current speed phase is
// retained; distance_to_target is simply re-evaluated on the next move.
func (e *Elevator) SetImmediateTarget(floor int) {
	e.Position.TargetFloor = floor
}

// AdoptNextTarget clears next_target_floor and promotes it to the live
// target, per Phase A2 (spec §4.2/§4.3).
func (e *Elevator) AdoptNextTarget() bool {
	if e.NextTargetFloor == nil {
		return false
	}
	e.Position.TargetFloor = *e.NextTargetFloor
	e.NextTargetFloor = nil
	return true
}

// AddPassenger appends a boarding passenger id and records its destination
// for indicator-light / pressed-floor queries.
func (e *Elevator) AddPassenger(passengerID, destination int) {
	e.Passengers = append(e.Passengers, passengerID)
	e.PassengerDestinations[passengerID] = destination
}

// RemovePassenger removes a passenger that has alighted, preserving the
// relative order of the remaining passengers.
func (e *Elevator) RemovePassenger(passengerID int) {
	for i, id := range e.Passengers {
		if id == passengerID {
			e.Passengers = append(e.Passengers[:i], e.Passengers[i+1:]...)
			break
		}
	}
	delete(e.PassengerDestinations, passengerID)
}

// Clone returns a deep copy for snapshotting under the engine lock.
func (e *Elevator) Clone() *Elevator {
	clone := *e
	if e.NextTargetFloor != nil {
		v := *e.NextTargetFloor
		clone.NextTargetFloor = &v
	}
	if len(e.Passengers) > 0 {
		clone.Passengers = append([]int(nil), e.Passengers...)
	}
	clone.PassengerDestinations = make(map[int]int, len(e.PassengerDestinations))
	for k, v := range e.PassengerDestinations {
		clone.PassengerDestinations[k] = v
	}
	return &clone
}
