package dkenergy

import (
	"math"
	"sort"
)

// PricePoint is one hourly spot price in DKK/MWh.
type PricePoint struct {
	Time  string
	Price float64
}

// CheapestHours returns the n lowest-priced points in ascending price order.
// Equal prices keep their chronological order. points is not modified.
func CheapestHours(points []PricePoint, n int) []PricePoint {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// CheapestWindow slides a window of n points over the chronological series
// and returns the start index and mean of the lowest-mean window. The first
// minimal window wins ties. ok is false when fewer than n points exist.
func CheapestWindow(points []PricePoint, n int) (start int, avg float64, ok bool) {
	if n <= 0 || len(points) < n {
		return 0, 0, false
	}
	best := math.Inf(1)
	for i := 0; i+n <= len(points); i++ {
		var sum float64
		for _, p := range points[i : i+n] {
			sum += p.Price
		}
		if m := sum / float64(n); m < best {
			best, start = m, i
		}
	}
	return start, best, true
}
