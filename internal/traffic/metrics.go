package traffic

import "sort"

// PassengerSample is the minimal view Metrics needs from a completed or
// outstanding passenger; kept decoupled from simpassenger to avoid an import
// cycle (engine depends on both traffic and simpassenger).
type PassengerSample struct {
	Completed        bool
	FloorWaitTicks   int
	ArrivalWaitTicks int
}

// Metrics is the on-demand aggregate KPI set of spec §4.5.
type Metrics struct {
	CompletedPassengers    int     `json:"completed_passengers"`
	TotalPassengers        int     `json:"total_passengers"`
	CompletionRate         float64 `json:"completion_rate"`
	AverageFloorWaitTime   float64 `json:"average_floor_wait_time"`
	P95FloorWaitTime       float64 `json:"p95_floor_wait_time"`
	P95ArrivalWaitTime     float64 `json:"p95_arrival_wait_time"`
	TotalEnergyConsumption float64 `json:"total_energy_consumption"`
}

// Compute derives Metrics from the full passenger sample set plus the
// elevators' energy counters. total is the total passenger count including
// those still waiting/in-elevator/cancelled (spec §4.5/§9: cancelled
// passengers count toward total_passengers but are excluded from wait-time
// statistics).
func Compute(samples []PassengerSample, total int, energyConsumed []float64) Metrics {
	var floorWaits, arrivalWaits []int
	completed := 0
	for _, s := range samples {
		if !s.Completed {
			continue
		}
		completed++
		floorWaits = append(floorWaits, s.FloorWaitTicks)
		arrivalWaits = append(arrivalWaits, s.ArrivalWaitTicks)
	}

	var totalEnergy float64
	for _, e := range energyConsumed {
		totalEnergy += e
	}

	m := Metrics{
		CompletedPassengers:    completed,
		TotalPassengers:        total,
		TotalEnergyConsumption: totalEnergy,
	}
	if total > 0 {
		m.CompletionRate = float64(completed) / float64(total)
	}
	m.AverageFloorWaitTime = mean(floorWaits)
	m.P95FloorWaitTime = trimmedMeanExcludingWorst5Percent(floorWaits)
	m.P95ArrivalWaitTime = trimmedMeanExcludingWorst5Percent(arrivalWaits)
	return m
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// trimmedMeanExcludingWorst5Percent implements the spec's NON-STANDARD
// "p95" definition (§4.5/§9): sort ascending, take the shortest
// floor(n*0.95) values (all of them when that count is 0, i.e. n=1), and
// mean those — not the 95th-percentile order statistic. This is preserved verbatim for wire compatibility even though
// the name is misleading; do not "fix" it to a real percentile.
func trimmedMeanExcludingWorst5Percent(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	// Integer arithmetic avoids float64(0.95) rounding from nudging the
	// cutoff below the intended floor(n*0.95), e.g. for n=20.
	keep := len(sorted) * 95 / 100
	if keep <= 0 {
		keep = len(sorted)
	}
	return mean(sorted[:keep])
}
