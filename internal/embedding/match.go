package embedding

import "math"

// Default tolerances for authorized matching and intruder dedup.
const (
	AuthTolerance     = 0.5
	IntruderTolerance = 0.6
)

// Distance returns the Euclidean distance between a and b. Vectors of
// different length are infinitely far apart.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// NearestMatch returns the index and distance of the reference closest to
// probe. The lowest index wins ties. References at a non-finite distance are
// skipped; ok is false when no reference is left.
func NearestMatch(probe Embedding, refs []Embedding) (index int, distance float64, ok bool) {
	index, distance = -1, math.Inf(1)
	for i, ref := range refs {
		d := Distance(probe, ref)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		if d < distance {
			index, distance = i, d
		}
	}
	if index < 0 {
		return -1, 0, false
	}
	return index, distance, true
}

// IsMatch reports whether some reference lies within tolerance of probe.
func IsMatch(probe Embedding, refs []Embedding, tolerance float64) bool {
	_, d, ok := NearestMatch(probe, refs)
	return ok && d <= tolerance
}
