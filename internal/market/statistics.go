// Package market computes population-level statistics over the live firm
// population. Every function only looks at active firms and recomputes its
// result from scratch; nothing is cached between calls, so a statistic taken
// halfway through a step reflects the firms already updated in that step.
package market

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"techrace/internal/model"
)

// ActiveTARs returns the TAR values of active firms in population order.
func ActiveTARs(firms []model.Firm) []float64 {
	values := make([]float64, 0, len(firms))
	for _, firm := range firms {
		if firm.Active {
			values = append(values, firm.TAR)
		}
	}
	return values
}

func CountActive(firms []model.Firm) int {
	count := 0
	for _, firm := range firms {
		if firm.Active {
			count++
		}
	}
	return count
}

// CountInnovating counts active firms that decided to innovate in their last
// update.
func CountInnovating(firms []model.Firm) int {
	count := 0
	for _, firm := range firms {
		if firm.Active && firm.DecidesToInnovate {
			count++
		}
	}
	return count
}

// CountByState splits the active firms into leaders and followers.
func CountByState(firms []model.Firm) (leaders, followers int) {
	for _, firm := range firms {
		if !firm.Active {
			continue
		}
		if firm.State() == model.Leader {
			leaders++
		} else {
			followers++
		}
	}
	return leaders, followers
}

// MedianTAR returns 0 when no firm is active.
func MedianTAR(firms []model.Firm) float64 {
	values := ActiveTARs(firms)
	if len(values) == 0 {
		return 0
	}
	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// MaxTAR returns 0 when no firm is active.
func MaxTAR(firms []model.Firm) float64 {
	values := ActiveTARs(firms)
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// Skewness is the moment coefficient m3 / m2^1.5 of active TARs. Fewer than
// three active firms, or a population with no spread, yields 0.
func Skewness(firms []model.Firm) float64 {
	values := ActiveTARs(firms)
	if len(values) < 3 {
		return 0
	}
	if floats.Min(values) == floats.Max(values) {
		return 0
	}
	m2 := stat.Moment(2, values, nil)
	if m2 == 0 {
		return 0
	}
	m3 := stat.Moment(3, values, nil)
	return m3 / math.Pow(m2, 1.5)
}

// QuartileThresholds splits [min, max] of active TARs into four equal-width
// bins and returns the three interior boundaries.
func QuartileThresholds(firms []model.Firm) [model.IntervalCount - 1]float64 {
	var thresholds [model.IntervalCount - 1]float64
	values := ActiveTARs(firms)
	if len(values) == 0 {
		return thresholds
	}
	lo, hi := floats.Min(values), floats.Max(values)
	width := (hi - lo) / model.IntervalCount
	for i := range thresholds {
		thresholds[i] = lo + width*float64(i+1)
	}
	return thresholds
}

// IntervalOf treats each boundary as the inclusive upper bound of its bucket;
// anything above the last boundary lands in the top bucket.
func IntervalOf(tar float64, thresholds [model.IntervalCount - 1]float64) int {
	return sort.SearchFloat64s(thresholds[:], tar)
}

// CountsPerInterval buckets active firms against thresholds computed from the
// same population.
func CountsPerInterval(firms []model.Firm) [model.IntervalCount]int {
	var counts [model.IntervalCount]int
	thresholds := QuartileThresholds(firms)
	for _, firm := range firms {
		if firm.Active {
			counts[IntervalOf(firm.TAR, thresholds)]++
		}
	}
	return counts
}

// Snapshot bundles every statistic the clock publishes after a step.
type Snapshot struct {
	Active         int
	Innovating     int
	MedianTAR      float64
	MaxTAR         float64
	Skewness       float64
	Thresholds     [model.IntervalCount - 1]float64
	IntervalCounts [model.IntervalCount]int
	Leaders        int
	Followers      int
}

func TakeSnapshot(firms []model.Firm) Snapshot {
	leaders, followers := CountByState(firms)
	return Snapshot{
		Active:         CountActive(firms),
		Innovating:     CountInnovating(firms),
		MedianTAR:      MedianTAR(firms),
		MaxTAR:         MaxTAR(firms),
		Skewness:       Skewness(firms),
		Thresholds:     QuartileThresholds(firms),
		IntervalCounts: CountsPerInterval(firms),
		Leaders:        leaders,
		Followers:      followers,
	}
}
