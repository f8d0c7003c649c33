package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); !almostEqual(got, 5) {
		t.Errorf("Mean = %v, want 5", got)
	}
	if got := StdDev(values); math.Abs(got-2.138089935) > 1e-6 {
		t.Errorf("StdDev = %v, want ~2.138", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); !almostEqual(got, 2) {
		t.Errorf("odd median = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); !almostEqual(got, 2.5) {
		t.Errorf("even median = %v, want 2.5", got)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := Percentile(values, 50); !almostEqual(got, 3) {
		t.Errorf("p50 = %v, want 3", got)
	}
	if got := Percentile(values, 100); !almostEqual(got, 5) {
		t.Errorf("p100 = %v, want 5", got)
	}
	if got := Percentile(values, 25); !almostEqual(got, 2) {
		t.Errorf("p25 = %v, want 2", got)
	}
}

func TestShannonEntropy(t *testing.T) {
	// Uniform distribution over 4 outcomes has entropy log2(4) = 2 bits
	if got := ShannonEntropy([]float64{1, 1, 1, 1}); !almostEqual(got, 2) {
		t.Errorf("uniform entropy = %v, want 2", got)
	}
	// Deterministic distribution has zero entropy
	if got := ShannonEntropy([]float64{5, 0, 0}); !almostEqual(got, 0) {
		t.Errorf("deterministic entropy = %v, want 0", got)
	}
	if got := NormalizedEntropy([]float64{1, 1, 1, 1}); !almostEqual(got, 1) {
		t.Errorf("normalized uniform entropy = %v, want 1", got)
	}
}
