package sim

import (
	"math"
	"testing"
)

func TestRandomStream_SameSeedIdenticalSequence(t *testing.T) {
	s1 := NewRandomStream(42)
	s2 := NewRandomStream(42)

	for i := 0; i < 100; i++ {
		var v1, v2 float64
		switch i % 3 {
		case 0:
			v1, v2 = s1.Uniform(), s2.Uniform()
		case 1:
			v1, v2 = s1.Exponential(1.8), s2.Exponential(1.8)
		case 2:
			v1, v2 = s1.Triangular(0.8, 1.0, 1.2), s2.Triangular(0.8, 1.0, 1.2)
		}
		if v1 != v2 {
			t.Fatalf("draw %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestRandomStream_DifferentSeedsDiverge(t *testing.T) {
	s1 := NewRandomStream(1)
	s2 := NewRandomStream(2)
	same := true
	for i := 0; i < 10; i++ {
		if s1.Uniform() != s2.Uniform() {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical sequences")
	}
}

func TestRandomStream_ExponentialMean(t *testing.T) {
	s := NewRandomStream(7)
	const n = 50000
	const mean = 2.5

	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.Exponential(mean)
		if v < 0 {
			t.Fatalf("exponential draw %d is negative: %v", i, v)
		}
		sum += v
	}
	got := sum / n
	if math.Abs(got-mean)/mean > 0.05 {
		t.Errorf("sample mean %.3f deviates more than 5%% from %v", got, mean)
	}
}

func TestRandomStream_TriangularBounds(t *testing.T) {
	tests := []struct {
		name            string
		low, mode, high float64
	}{
		{"symmetric", 0.8, 1.0, 1.2},
		{"left-skewed", 1.0, 1.1, 3.0},
		{"right-skewed", 1.0, 2.9, 3.0},
		{"mode-at-low", 2.0, 2.0, 4.0},
		{"mode-at-high", 2.0, 4.0, 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRandomStream(42)
			for i := 0; i < 10000; i++ {
				v := s.Triangular(tt.low, tt.mode, tt.high)
				if v < tt.low || v > tt.high {
					t.Fatalf("draw %d = %v outside [%v, %v]", i, v, tt.low, tt.high)
				}
			}
		})
	}
}

func TestRandomStream_TriangularMean(t *testing.T) {
	// E[X] = (low + mode + high) / 3
	s := NewRandomStream(11)
	low, mode, high := 0.8, 1.0, 1.5
	want := (low + mode + high) / 3

	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.Triangular(low, mode, high)
	}
	got := sum / n
	if math.Abs(got-want)/want > 0.02 {
		t.Errorf("sample mean %.4f deviates more than 2%% from %.4f", got, want)
	}
}

func TestRandomStream_TriangularDegenerate(t *testing.T) {
	s := NewRandomStream(42)
	if got := s.Triangular(2.0, 2.0, 2.0); got != 2.0 {
		t.Errorf("degenerate triangular = %v, want 2.0", got)
	}
}
