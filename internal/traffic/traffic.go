// Package traffic holds arrival scheduling data (spec component C5): the
// TrafficEntry/TrafficPattern types, the building configuration they travel
// with, the bit-exact JSON wire format of spec §6, and the aggregate metrics
// of spec §4.5.
package traffic

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/elevatorsim/engine/internal/domain"
)

// TrafficEntry is one scheduled passenger arrival.
type TrafficEntry struct {
	ID          int `json:"id"`
	Origin      int `json:"origin"`
	Destination int `json:"destination"`
	Tick        int `json:"tick"`
}

// BuildingConfig is the input to SimulationState construction (spec §6).
type BuildingConfig struct {
	FloorsCount    int       `json:"floors"`
	ElevatorsCount int       `json:"elevators"`
	MaxCapacity    int       `json:"elevator_capacity"`
	EnergyRates    []float64 `json:"elevator_energy_rates,omitempty"`
	Scenario       string    `json:"scenario"`
	Duration       int       `json:"duration"`
}

// EnergyRateFor returns the configured rate for elevator index i, defaulting
// to 1.0 when elevator_energy_rates is absent or short (spec §6).
func (b BuildingConfig) EnergyRateFor(i int) float64 {
	if i >= 0 && i < len(b.EnergyRates) {
		return b.EnergyRates[i]
	}
	return 1.0
}

// Validate checks the building configuration against spec invariants.
func (b BuildingConfig) Validate() error {
	if b.FloorsCount < 1 {
		return domain.NewValidationError("floors must be at least 1", nil).WithContext("floors", b.FloorsCount)
	}
	if b.ElevatorsCount < 1 {
		return domain.NewValidationError("elevators must be at least 1", nil).WithContext("elevators", b.ElevatorsCount)
	}
	if b.MaxCapacity < 1 {
		return domain.NewValidationError("elevator_capacity must be at least 1", nil).WithContext("elevator_capacity", b.MaxCapacity)
	}
	if b.Duration < 1 {
		return domain.NewValidationError("duration must be at least 1", nil).WithContext("duration", b.Duration)
	}
	return nil
}

// Pattern is one named traffic scenario: entries sorted by tick ascending,
// ties broken by id ascending (spec §4.5 — a stable sort, load-time only;
// input need not be pre-sorted).
type Pattern struct {
	Name        string
	Description string
	Entries     []TrafficEntry
	Metadata    map[string]string
	Building    BuildingConfig
}

// wireFile mirrors the bit-exact JSON shape of spec §6.
type wireFile struct {
	Building BuildingConfig `json:"building"`
	Traffic  []TrafficEntry `json:"traffic"`
}

// ParseFile decodes one traffic scenario file from JSON per the spec §6
// schema, sorts entries by (tick, id), and validates the building config.
func ParseFile(data []byte) (*Pattern, error) {
	var wf wireFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, domain.NewValidationError("malformed traffic file", err)
	}
	if err := wf.Building.Validate(); err != nil {
		return nil, err
	}
	entries := append([]TrafficEntry(nil), wf.Traffic...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Tick != entries[j].Tick {
			return entries[i].Tick < entries[j].Tick
		}
		return entries[i].ID < entries[j].ID
	})
	return &Pattern{
		Name:        wf.Building.Scenario,
		Description: fmt.Sprintf("%s (%d entries)", wf.Building.Scenario, len(entries)),
		Entries:     entries,
		Building:    wf.Building,
	}, nil
}

// LastScheduledTick returns the highest scheduled arrival tick, or 0 if there
// are none. This is strictly internal bookkeeping (e.g. sanity-checking that
// a scenario's Building.Duration comfortably covers its own entries) and must
// never be substituted for Building.Duration when reporting the scenario's
// expected run length — spec §4.5 defines max_tick as the latter, not the
// former.
func (p *Pattern) LastScheduledTick() int {
	max := 0
	for _, e := range p.Entries {
		if e.Tick > max {
			max = e.Tick
		}
	}
	return max
}

// Queue is the runtime cursor over a Pattern's already-sorted entries.
type Queue struct {
	entries []TrafficEntry
	cursor  int
}

// NewQueue builds a Queue over pattern's entries.
func NewQueue(p *Pattern) *Queue {
	return &Queue{entries: p.Entries}
}

// PopDue removes and returns the entry at the head of the queue if its tick
// is <= currentTick, in FIFO (already-sorted) order.
func (q *Queue) PopDue(currentTick int) (TrafficEntry, bool) {
	if q.cursor >= len(q.entries) {
		return TrafficEntry{}, false
	}
	head := q.entries[q.cursor]
	if head.Tick > currentTick {
		return TrafficEntry{}, false
	}
	q.cursor++
	return head, true
}
