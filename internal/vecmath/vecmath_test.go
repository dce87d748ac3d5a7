package vecmath

import (
	"math"
	"testing"
)

const tolerance = 1e-6

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   []float32
		expect float64
	}{
		{
			name:   "identical vectors",
			a:      []float32{0.3, -1.2, 4},
			b:      []float32{0.3, -1.2, 4},
			expect: 1,
		},
		{
			name:   "orthogonal vectors",
			a:      []float32{1, 0},
			b:      []float32{0, 1},
			expect: 0,
		},
		{
			name:   "opposite vectors",
			a:      []float32{1, 2},
			b:      []float32{-1, -2},
			expect: -1,
		},
		{
			name:   "scale does not matter",
			a:      []float32{1, 1},
			b:      []float32{10, 10},
			expect: 1,
		},
		{
			name:   "zero vector",
			a:      []float32{1, 2, 3},
			b:      []float32{0, 0, 0},
			expect: 0,
		},
		{
			name:   "length mismatch",
			a:      []float32{1, 2, 3},
			b:      []float32{1, 2},
			expect: 0,
		},
		{
			name:   "empty",
			expect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expect) > tolerance {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCosineSimilarityZeroIsExact(t *testing.T) {
	if got := CosineSimilarity([]float32{0, 0}, []float32{0.5, 0.5}); got != 0 {
		t.Fatalf("expected exactly 0, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	unit := Normalize(v)

	if math.Abs(Norm(unit)-1) > tolerance {
		t.Fatalf("expected unit norm, got %v", Norm(unit))
	}
	if math.Abs(float64(unit[0])-0.6) > tolerance || math.Abs(float64(unit[1])-0.8) > tolerance {
		t.Fatalf("unexpected normalized vector: %v", unit)
	}
	if v[0] != 3 || v[1] != 4 {
		t.Fatalf("input must not be modified, got %v", v)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector must stay zero, got %v", zero)
	}
}
