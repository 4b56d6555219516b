package ddpg

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewProjectionInvalidArguments(t *testing.T) {
	if _, err := NewProjection(0, []int{0}); err == nil {
		t.Error("expected error for non-positive full dimensionality")
	}
	if _, err := NewProjection(6, []int{}); err == nil {
		t.Error("expected error for empty index list")
	}
	if _, err := NewProjection(6, []int{0, 6}); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := NewProjection(6, []int{0, -1}); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := NewProjection(6, []int{0, 1, 1}); err == nil {
		t.Error("expected error for duplicate index")
	}
	if _, err := NewProjection(2, []int{0, 1, 0}); err == nil {
		t.Error("expected error for more indices than dimensions")
	}
}

func TestReduce(t *testing.T) {
	projection, err := NewProjection(6, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("could not create projection: %v", err)
	}

	full := mat.NewVecDense(6, []float64{1.0, 2.0, 3.0, 4.0, 5.0, 6.0})
	reduced, err := projection.Reduce(full)
	if err != nil {
		t.Fatalf("could not reduce vector: %v", err)
	}

	expected := []float64{1.0, 2.0, 3.0}
	for i := range expected {
		if reduced[i] != expected[i] {
			t.Errorf("wrong component %v: want(%v) have(%v)", i,
				expected[i], reduced[i])
		}
	}

	// Vectors of the wrong dimensionality cannot be reduced
	if _, err := projection.Reduce(mat.NewVecDense(3, nil)); err == nil {
		t.Error("expected error when reducing mis-sized vector")
	}
}

func TestExpandZeroFills(t *testing.T) {
	projection, err := NewProjection(6, []int{0, 2, 4})
	if err != nil {
		t.Fatalf("could not create projection: %v", err)
	}

	full, err := projection.Expand([]float64{1.0, 2.0, 3.0})
	if err != nil {
		t.Fatalf("could not expand vector: %v", err)
	}

	expected := []float64{1.0, 0.0, 2.0, 0.0, 3.0, 0.0}
	for i := range expected {
		if full.AtVec(i) != expected[i] {
			t.Errorf("wrong component %v: want(%v) have(%v)", i,
				expected[i], full.AtVec(i))
		}
	}

	if _, err := projection.Expand([]float64{1.0}); err == nil {
		t.Error("expected error when expanding mis-sized vector")
	}
}

func TestReduceExpandRoundTrip(t *testing.T) {
	projection, err := NewProjection(4, []int{1, 3})
	if err != nil {
		t.Fatalf("could not create projection: %v", err)
	}

	full := mat.NewVecDense(4, []float64{0.0, 7.0, 0.0, -2.5})
	reduced, err := projection.Reduce(full)
	if err != nil {
		t.Fatalf("could not reduce vector: %v", err)
	}
	expanded, err := projection.Expand(reduced)
	if err != nil {
		t.Fatalf("could not expand vector: %v", err)
	}

	for i := 0; i < full.Len(); i++ {
		if expanded.AtVec(i) != full.AtVec(i) {
			t.Errorf("round trip changed component %v: want(%v) have(%v)",
				i, full.AtVec(i), expanded.AtVec(i))
		}
	}
}
