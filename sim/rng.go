package sim

import (
	"math"
	"math/rand"
)

// RandomStream is a deterministic seeded generator producing the uniform
// deviates and derived variates used by the production line. The same seed
// yields the identical output sequence given the identical call order; this
// is the basis for run reproducibility, so each variate below draws exactly
// one uniform per call.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type RandomStream struct {
	seed int64
	rng  *rand.Rand
}

// NewRandomStream creates a RandomStream from a seed value.
func NewRandomStream(seed int64) *RandomStream {
	return &RandomStream{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed this stream was created with.
func (s *RandomStream) Seed() int64 { return s.seed }

// Uniform returns the next deviate in [0,1).
func (s *RandomStream) Uniform() float64 {
	return s.rng.Float64()
}

// Exponential returns −ln(U)·mean, used for interarrival and failure
// intervals. mean must be positive.
func (s *RandomStream) Exponential(mean float64) float64 {
	u := s.Uniform()
	if u == 0 {
		u = math.SmallestNonzeroFloat64 // prevent ln(0) → +Inf
	}
	return -math.Log(u) * mean
}

// Triangular returns a deviate from the triangular distribution on
// [low, high] with the given mode, via the standard inverse-CDF split at
// the mode fraction. Used for per-stage processing durations.
func (s *RandomStream) Triangular(low, mode, high float64) float64 {
	if high <= low {
		return low
	}
	u := s.Uniform()
	cut := (mode - low) / (high - low)
	if u < cut {
		return low + math.Sqrt(u*(high-low)*(mode-low))
	}
	return high - math.Sqrt((1-u)*(high-low)*(high-mode))
}
