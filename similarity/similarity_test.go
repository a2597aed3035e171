package similarity

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
)

const eps = 1e-9

func scenarioMatrix(t *testing.T) *matrix.Interaction {
	t.Helper()
	m, err := matrix.Build([]core.Rating{
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 2, ItemID: 10, Value: 4.0},
		{UserID: 2, ItemID: 20, Value: 5.0},
		{UserID: 3, ItemID: 10, Value: 1.0},
	})
	if err != nil {
		t.Fatalf("matrix.Build() error = %v", err)
	}
	return m
}

func mustVectors(t *testing.T, ids []int64, dim int, data []float64) matrix.Vectors {
	t.Helper()
	v, err := matrix.NewVectors(ids, dim, data)
	if err != nil {
		t.Fatalf("NewVectors() error = %v", err)
	}
	return v
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 2}, b: []float64{-1, -2}, want: -1},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 2}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > eps {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPearson(t *testing.T) {
	if got := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); math.Abs(got-1) > eps {
		t.Errorf("Pearson(linear) = %v, want 1", got)
	}
	if got := Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}); math.Abs(got+1) > eps {
		t.Errorf("Pearson(reversed) = %v, want -1", got)
	}
	if got := Pearson([]float64{2, 2, 2}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("Pearson(constant) = %v, want 0", got)
	}
}

func TestCompute_Scenario(t *testing.T) {
	m := scenarioMatrix(t)
	s, err := Compute(context.Background(), m, matrix.AxisUsers)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got, want := s.IDs(), []int64{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}

	s12, _ := s.At(1, 2)
	s13, _ := s.At(1, 3)
	if !(s12 > s13) {
		t.Errorf("sim(1,2) = %v, sim(1,3) = %v, want sim(1,2) > sim(1,3)", s12, s13)
	}
	want12 := (5.0*4 + 3.0*5) / (math.Sqrt(34) * math.Sqrt(41))
	if math.Abs(s12-want12) > eps {
		t.Errorf("sim(1,2) = %v, want %v", s12, want12)
	}

	items, err := Compute(context.Background(), m, matrix.AxisItems)
	if err != nil {
		t.Fatalf("Compute(items) error = %v", err)
	}
	if got, want := items.IDs(), []int64{10, 20}; !reflect.DeepEqual(got, want) {
		t.Errorf("item IDs() = %v, want %v", got, want)
	}
}

func TestCompute_SymmetricWithUnitDiagonal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, dim = 37, 11
	ids := make([]int64, n)
	data := make([]float64, n*dim)
	for i := range ids {
		ids[i] = int64(i + 100)
	}
	for i := range data {
		if rng.Intn(3) == 0 {
			data[i] = float64(rng.Intn(10)+1) / 2
		}
	}
	for i := 0; i < n; i++ {
		data[i*dim+i%dim] = 1
	}
	// 第 5 行置零，检查零范数的特殊处理
	for j := 0; j < dim; j++ {
		data[5*dim+j] = 0
	}

	s, err := FromVectors(context.Background(), mustVectors(t, ids, dim, data))
	if err != nil {
		t.Fatalf("FromVectors() error = %v", err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, _ := s.At(ids[i], ids[j])
			b, _ := s.At(ids[j], ids[i])
			if a != b {
				t.Fatalf("At(%d,%d) = %v != At(%d,%d) = %v", ids[i], ids[j], a, ids[j], ids[i], b)
			}
			if math.IsNaN(a) {
				t.Fatalf("At(%d,%d) is NaN", ids[i], ids[j])
			}
			if i == 5 && a != 0 {
				t.Fatalf("zero-norm row: At(%d,%d) = %v, want 0", ids[i], ids[j], a)
			}
		}
		diag, _ := s.At(ids[i], ids[i])
		if i != 5 && math.Abs(diag-1) > eps {
			t.Errorf("diagonal At(%d,%d) = %v, want 1", ids[i], ids[i], diag)
		}
	}
}

func TestCompute_ParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n, dim = 64, 20
	ids := make([]int64, n)
	data := make([]float64, n*dim)
	for i := range ids {
		ids[i] = int64(i)
	}
	for i := range data {
		data[i] = float64(rng.Intn(6))
	}
	v := mustVectors(t, ids, dim, data)

	serial, err := FromVectors(context.Background(), v, WithWorkers(1))
	if err != nil {
		t.Fatalf("serial FromVectors() error = %v", err)
	}
	for _, workers := range []int{2, 4, 16} {
		parallel, err := FromVectors(context.Background(), v, WithWorkers(workers))
		if err != nil {
			t.Fatalf("FromVectors(workers=%d) error = %v", workers, err)
		}
		if !reflect.DeepEqual(serial.packed, parallel.packed) {
			t.Errorf("workers=%d result differs from serial", workers)
		}
	}
}

func TestCompute_Pearson(t *testing.T) {
	v := mustVectors(t, []int64{1, 2, 3}, 3, []float64{
		1, 2, 3,
		2, 4, 6,
		3, 2, 1,
	})
	s, err := FromVectors(context.Background(), v, WithMetric(MetricPearson))
	if err != nil {
		t.Fatalf("FromVectors() error = %v", err)
	}
	if got, _ := s.At(1, 2); math.Abs(got-1) > eps {
		t.Errorf("pearson(1,2) = %v, want 1", got)
	}
	if got, _ := s.At(1, 3); math.Abs(got+1) > eps {
		t.Errorf("pearson(1,3) = %v, want -1", got)
	}
}

func TestCompute_Errors(t *testing.T) {
	m := scenarioMatrix(t)

	t.Run("too large", func(t *testing.T) {
		_, err := Compute(context.Background(), m, matrix.AxisUsers, WithMaxEntries(5))
		if !core.IsTooLarge(err) {
			t.Fatalf("Compute() error = %v, want too large", err)
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := Compute(context.Background(), m, matrix.AxisUsers, WithMetric("jaccard"))
		if !core.IsInvalidInput(err) {
			t.Fatalf("Compute() error = %v, want invalid input", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Compute(ctx, m, matrix.AxisUsers)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Compute() error = %v, want context.Canceled", err)
		}
	})
}

func TestMatrix_UnknownID(t *testing.T) {
	s, err := Compute(context.Background(), scenarioMatrix(t), matrix.AxisUsers)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if _, err := s.At(1, 99); !core.IsUnknownEntity(err) {
		t.Errorf("At(1, 99) error = %v, want unknown entity", err)
	}
	if _, err := s.Row(99); !core.IsUnknownEntity(err) {
		t.Errorf("Row(99) error = %v, want unknown entity", err)
	}
	row, err := s.Row(3)
	if err != nil {
		t.Fatalf("Row(3) error = %v", err)
	}
	if len(row) != 3 || math.Abs(row[2]-1) > eps {
		t.Errorf("Row(3) = %v, want len 3 with unit diagonal", row)
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": MetricCosine, "cosine": MetricCosine, "pearson": MetricPearson} {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMetric("jaccard"); err == nil {
		t.Error("ParseMetric(jaccard) error = nil, want error")
	}
}
