package engine

// phases.go implements the four-phase tick pipeline of spec §4.3 (component
// C3). Phases run strictly in order A-B-C-D; within a phase, elevators are
// visited in ascending id (the elevators slice is already ordered that way
// since index == id by construction).

import (
	"fmt"

	"github.com/elevatorsim/engine/internal/domain"
	"github.com/elevatorsim/engine/internal/simelevator"
	"github.com/elevatorsim/engine/internal/simevents"
	"github.com/elevatorsim/engine/internal/simpassenger"
	"github.com/elevatorsim/engine/metrics"
)

// phaseStatus is Phase A: run-status transitions and Phase A2 target
// adoption (spec §4.2).
func phaseStatus(s *simulationState) {
	for _, e := range s.elevators {
		e.MovedDirectionThisTick = domain.DirectionStopped

		dir := e.TargetFloorDirection()
		if dir == domain.DirectionStopped {
			if e.NextTargetFloor == nil {
				continue // leave idle this tick
			}
			e.AdoptNextTarget()
			newDir := e.TargetFloorDirection()
			if newDir != domain.DirectionStopped {
				boardOnAdoption(s, e, newDir)
				e.RunStatus = domain.RunStatusStartUp
			}
			continue
		}

		// dir is nonzero here. A target can have become nonzero while the
		// elevator was still STOPPED via an immediate override issued
		// between step calls (spec §4.2); that doesn't go through Phase A2
		// adoption/boarding, but it still needs the STOPPED -> START_UP
		// transition.
		switch e.RunStatus {
		case domain.RunStatusStopped:
			e.RunStatus = domain.RunStatusStartUp
		case domain.RunStatusStartUp:
			e.RunStatus = domain.RunStatusConstant
		}
	}
}

// boardOnAdoption implements Phase A2's turnaround boarding: passengers
// waiting at the elevator's current floor whose travel direction matches
// the newly adopted target_floor_direction board immediately, before the
// elevator starts moving (spec §4.2 Phase A2).
func boardOnAdoption(s *simulationState, e *simelevator.Elevator, newDir domain.Direction) {
	floor := s.floors[e.Position.CurrentFloor]
	for !e.IsFull() {
		var id int
		var ok bool
		if newDir == domain.DirectionUp {
			id, ok = floor.PopUp()
		} else {
			id, ok = floor.PopDown()
		}
		if !ok {
			break
		}
		boardPassenger(s, e, floor.Number, id)
	}
}

func boardPassenger(s *simulationState, e *simelevator.Elevator, floorNumber, passengerID int) {
	p := s.passengers[passengerID]
	p.Board(e.ID, s.tick)
	e.AddPassenger(passengerID, p.Destination)
	s.journal.Append(s.tick, simevents.PassengerBoard, map[string]any{
		"elevator":  e.ID,
		"floor":     floorNumber,
		"passenger": passengerID,
	})
}

// phaseArrivals is Phase B: materialize passengers whose traffic entries are
// now due, enqueue them on their origin floor, and emit the button-pressed
// event (spec §4.3 step d).
func phaseArrivals(s *simulationState) {
	if s.trafficQ == nil {
		return
	}
	for {
		entry, ok := s.trafficQ.PopDue(s.tick)
		if !ok {
			break
		}
		p := simpassenger.New(entry.ID, entry.Origin, entry.Destination, s.tick)
		s.passengers[entry.ID] = p

		floor := s.floors[entry.Origin]
		floor.Enqueue(entry.ID, entry.Destination)

		eventType := simevents.DownButtonPressed
		if p.TravelsUp() {
			eventType = simevents.UpButtonPressed
		}
		s.journal.Append(s.tick, eventType, map[string]any{
			"floor":     entry.Origin,
			"passenger": entry.ID,
		})
	}
}

// phaseMove is Phase C: advance every elevator whose target_floor_direction
// is not STOPPED (spec §4.3 step e).
func phaseMove(s *simulationState) {
	for _, e := range s.elevators {
		dir := e.TargetFloorDirection()
		if dir == domain.DirectionStopped {
			continue
		}

		oldFloat := e.Position.CurrentFloorFloat()
		oldFloor := e.Position.CurrentFloor
		speed := e.RunStatus.Speed()
		delta := speed
		if dir == domain.DirectionDown {
			delta = -speed
		}

		preview := e.Position
		preview.Advance(delta)

		s.journal.Append(s.tick, simevents.ElevatorMove, map[string]any{
			"elevator":      e.ID,
			"from_position": oldFloat,
			"to_position":   preview.CurrentFloorFloat(),
			"direction":     string(dir),
			"status":        e.RunStatus.WireStatus(),
		})

		e.Position.Advance(delta)
		e.MovedDirectionThisTick = dir
		e.EnergyConsumed += e.EnergyRate

		if e.RunStatus == domain.RunStatusConstant && e.Position.DistanceToTarget() == 1 {
			e.RunStatus = domain.RunStatusStartDown
		}

		if e.Position.CurrentFloor != oldFloor && e.Position.CurrentFloor != e.Position.TargetFloor {
			s.journal.Append(s.tick, simevents.PassingFloor, map[string]any{
				"elevator":  e.ID,
				"floor":     e.Position.CurrentFloor,
				"direction": string(dir),
			})
		}

		if e.RunStatus == domain.RunStatusStartDown && e.Position.DistanceToTarget() <= 1 && !e.Position.IsAtTarget() {
			s.journal.Append(s.tick, simevents.ElevatorApproaching, map[string]any{
				"elevator":  e.ID,
				"floor":     e.Position.TargetFloor,
				"direction": string(dir),
			})
		}

		if e.Position.IsAtTarget() {
			e.RunStatus = domain.RunStatusStopped
			s.journal.Append(s.tick, simevents.StoppedAtFloor, map[string]any{
				"elevator": e.ID,
				"floor":    e.Position.CurrentFloor,
				"reason":   "move_reached",
			})
		}
	}
}

// phaseStops is Phase D: alight then board for every elevator at rest this
// tick (spec §4.3 step f).
func phaseStops(s *simulationState) {
	for _, e := range s.elevators {
		if e.RunStatus != domain.RunStatusStopped {
			continue
		}

		alight(s, e)

		boardDir := e.MovedDirectionThisTick
		wasTrulyIdleBeforeBoard := e.IsIdle()
		board(s, e, boardDir, wasTrulyIdleBeforeBoard)

		if e.NextTargetFloor == nil && e.TargetFloorDirection() == domain.DirectionStopped {
			s.journal.Append(s.tick, simevents.Idle, map[string]any{
				"elevator": e.ID,
				"floor":    e.Position.CurrentFloor,
			})
		}

		e.LastTickDirection = boardDir
	}
}

func alight(s *simulationState, e *simelevator.Elevator) {
	current := append([]int(nil), e.Passengers...)
	for _, id := range current {
		p := s.passengers[id]
		if p.Destination != e.Position.CurrentFloor {
			continue
		}
		p.Alight(s.tick)
		e.RemovePassenger(id)
		metrics.RecordPassengerCompleted()
		s.journal.Append(s.tick, simevents.PassengerAlight, map[string]any{
			"elevator":  e.ID,
			"floor":     e.Position.CurrentFloor,
			"passenger": id,
		})
	}
}

func board(s *simulationState, e *simelevator.Elevator, dir domain.Direction, dualDirection bool) {
	floor := s.floors[e.Position.CurrentFloor]

	boardFrom := func(popUp bool) bool {
		if e.IsFull() {
			return false
		}
		var id int
		var ok bool
		if popUp {
			id, ok = floor.PopUp()
		} else {
			id, ok = floor.PopDown()
		}
		if !ok {
			return false
		}
		boardPassenger(s, e, floor.Number, id)
		return true
	}

	if dualDirection {
		for boardFrom(true) {
		}
		for boardFrom(false) {
		}
		return
	}

	switch dir {
	case domain.DirectionUp:
		for boardFrom(true) {
		}
	case domain.DirectionDown:
		for boardFrom(false) {
		}
	}
}

// forceComplete cancels every non-terminal passenger once max_duration_ticks
// is reached (spec §4.3 step g / §9).
func forceComplete(s *simulationState, maxDurationTicks int) {
	if s.tick < maxDurationTicks {
		return
	}
	for _, p := range s.passengers {
		switch p.Status() {
		case domain.PassengerWaiting, domain.PassengerInElevator:
			p.Cancel(s.tick)
			metrics.RecordPassengerCancelled()
		}
	}
}

// checkInvariants validates the spec §3 invariants at a tick boundary; a
// violation is an INTERNAL error per spec §7 and aborts the current step.
func checkInvariants(s *simulationState, floorsCount int) error {
	inElevator := 0
	waiting := 0
	completed := 0
	for _, p := range s.passengers {
		switch p.Status() {
		case domain.PassengerInElevator:
			inElevator++
		case domain.PassengerWaiting:
			waiting++
		case domain.PassengerCompleted:
			completed++
		}
	}
	totalInElevators := 0
	for _, e := range s.elevators {
		totalInElevators += len(e.Passengers)
		if len(e.Passengers) > e.MaxCapacity {
			return domain.NewInternalError(fmt.Sprintf("elevator %d over capacity", e.ID), nil)
		}
		if !e.Position.Normalized() {
			return domain.NewInternalError(fmt.Sprintf("elevator %d floor_up_position out of range", e.ID), nil)
		}
		if e.Position.CurrentFloor < 0 || e.Position.CurrentFloor >= floorsCount {
			return domain.NewInternalError(fmt.Sprintf("elevator %d current_floor out of range", e.ID), nil)
		}
		if e.Position.TargetFloor < 0 || e.Position.TargetFloor >= floorsCount {
			return domain.NewInternalError(fmt.Sprintf("elevator %d target_floor out of range", e.ID), nil)
		}
	}
	if totalInElevators != inElevator {
		return domain.NewInternalError("passenger conservation violated: elevator occupancy mismatch", nil)
	}
	if inElevator+waiting+completed+countCancelled(s) != len(s.passengers) {
		return domain.NewInternalError("passenger conservation violated: total mismatch", nil)
	}
	return nil
}

func countCancelled(s *simulationState) int {
	n := 0
	for _, p := range s.passengers {
		if p.Status() == domain.PassengerCancelled {
			n++
		}
	}
	return n
}
