// Package simpassenger models passengers and their derived lifecycle status.
package simpassenger

import "github.com/elevatorsim/engine/internal/domain"

// Passenger tracks one rider from arrival to completion. PickupTick and
// DropoffTick use 0 as the "not yet" sentinel per spec §3.
type Passenger struct {
	ID          int
	Origin      int
	Destination int
	ArriveTick  int
	PickupTick  int
	DropoffTick int
	ElevatorID  int
	HasElevator bool
	Cancelled   bool
}

// New constructs a Passenger freshly materialized from a traffic entry.
func New(id, origin, destination, arriveTick int) *Passenger {
	return &Passenger{ID: id, Origin: origin, Destination: destination, ArriveTick: arriveTick}
}

// Status derives the passenger's lifecycle state per spec §3.
func (p *Passenger) Status() domain.PassengerStatus {
	switch {
	case p.Cancelled:
		return domain.PassengerCancelled
	case p.DropoffTick > 0:
		return domain.PassengerCompleted
	case p.PickupTick > 0:
		return domain.PassengerInElevator
	default:
		return domain.PassengerWaiting
	}
}

// Board marks the passenger as picked up by elevatorID at tick.
func (p *Passenger) Board(elevatorID, tick int) {
	p.PickupTick = tick
	p.ElevatorID = elevatorID
	p.HasElevator = true
}

// Alight marks the passenger as dropped off at tick.
func (p *Passenger) Alight(tick int) {
	p.DropoffTick = tick
}

// Cancel forces terminal CANCELLED status, used only by max-duration
// force-completion (spec §4.3 step g).
func (p *Passenger) Cancel(tick int) {
	p.Cancelled = true
	p.DropoffTick = tick
}

// FloorWaitTicks is pickup_tick - arrive_tick; only meaningful once boarded.
func (p *Passenger) FloorWaitTicks() int {
	return p.PickupTick - p.ArriveTick
}

// ArrivalWaitTicks is dropoff_tick - arrive_tick; only meaningful once completed.
func (p *Passenger) ArrivalWaitTicks() int {
	return p.DropoffTick - p.ArriveTick
}

// TravelsUp reports whether this passenger's destination is above its origin.
func (p *Passenger) TravelsUp() bool {
	return p.Destination > p.Origin
}

// Clone returns a deep copy for snapshotting.
func (p *Passenger) Clone() *Passenger {
	clone := *p
	return &clone
}
