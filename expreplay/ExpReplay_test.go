package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/quadrl/timestep"
)

// transitionOf returns a transition whose every component is filled
// with the value v, for easy identification in the buffer
func transitionOf(v float64) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{v, v}),
		Action:    mat.NewVecDense(1, []float64{v}),
		Reward:    v,
		Discount:  0.5,
		NextState: mat.NewVecDense(2, []float64{v, v}),
	}
}

func TestSampleEmptyBuffer(t *testing.T) {
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        2,
		MaxReplayCapacity: 4,
		MinReplayCapacity: 2,
	}
	buffer, err := c.Create(2, 1, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	_, _, _, _, _, err = buffer.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("expected empty buffer error, got %v", err)
	}
}

func TestSampleInsufficientSamples(t *testing.T) {
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        2,
		MaxReplayCapacity: 4,
		MinReplayCapacity: 3,
	}
	buffer, err := c.Create(2, 1, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	if err := buffer.Add(transitionOf(1.0)); err != nil {
		t.Fatalf("could not add transition: %v", err)
	}

	_, _, _, _, _, err = buffer.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("expected insufficient samples error, got %v", err)
	}
	if IsEmptyBuffer(err) {
		t.Errorf("non-empty buffer reported as empty")
	}
}

func TestSampleBatch(t *testing.T) {
	batchSize := 3
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        batchSize,
		MaxReplayCapacity: 8,
		MinReplayCapacity: 3,
	}
	buffer, err := c.Create(2, 1, 14)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	stored := map[float64]bool{}
	for i := 1; i <= 4; i++ {
		v := float64(i)
		stored[v] = true
		if err := buffer.Add(transitionOf(v)); err != nil {
			t.Fatalf("could not add transition: %v", err)
		}
	}

	S, A, R, discounts, NextS, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}

	if len(S) != batchSize*2 || len(NextS) != batchSize*2 {
		t.Errorf("wrong state batch size: states[%v] nextStates[%v]",
			len(S), len(NextS))
	}
	if len(A) != batchSize || len(R) != batchSize {
		t.Errorf("wrong batch size: actions[%v] rewards[%v]", len(A), len(R))
	}

	// Every sampled transition must be one that was stored, with all
	// of its components taken from the same insertion position
	for i := 0; i < batchSize; i++ {
		v := R[i]
		if !stored[v] {
			t.Errorf("sampled reward %v was never stored", v)
		}
		if A[i] != v || S[2*i] != v || S[2*i+1] != v || NextS[2*i] != v {
			t.Errorf("sampled transition components misaligned at row %v", i)
		}
		if discounts[i] != 0.5 {
			t.Errorf("wrong discount: want(0.5) have(%v)", discounts[i])
		}
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	batchSize := 3
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        batchSize,
		MaxReplayCapacity: 4,
		MinReplayCapacity: 3,
	}
	buffer, err := c.Create(2, 1, 0)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	for i := 1; i <= batchSize; i++ {
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatalf("could not add transition: %v", err)
		}
	}

	// With exactly one batch worth of stored transitions, sampling
	// without replacement must return each stored transition exactly
	// once per batch
	for trial := 0; trial < 50; trial++ {
		_, _, R, _, _, err := buffer.Sample()
		if err != nil {
			t.Fatalf("could not sample: %v", err)
		}

		seen := make(map[float64]bool, batchSize)
		for _, v := range R {
			if seen[v] {
				t.Fatalf("transition with reward %v sampled twice in one "+
					"batch: %v", v, R)
			}
			seen[v] = true
		}
	}
}

func TestAddEvictsOldest(t *testing.T) {
	maxCapacity := 3
	c := Config{
		SampleMethod:      Fifo,
		SampleSize:        3,
		MaxReplayCapacity: maxCapacity,
		MinReplayCapacity: 1,
	}
	buffer, err := c.Create(2, 1, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	for i := 1; i <= 5; i++ {
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatalf("could not add transition: %v", err)
		}
	}

	if buffer.Capacity() != maxCapacity {
		t.Errorf("wrong capacity after overflow: want(%v) have(%v)",
			maxCapacity, buffer.Capacity())
	}

	// Transitions 1 and 2 should have been evicted, leaving 3, 4, 5
	// in insertion order
	_, _, R, _, _, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample: %v", err)
	}
	expected := []float64{3.0, 4.0, 5.0}
	for i := range expected {
		if R[i] != expected[i] {
			t.Errorf("wrong transition at position %v: want(%v) have(%v)",
				i, expected[i], R[i])
		}
	}
}

func TestAddInvalidDimensions(t *testing.T) {
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        1,
		MaxReplayCapacity: 2,
		MinReplayCapacity: 1,
	}
	buffer, err := c.Create(4, 2, 1)
	if err != nil {
		t.Fatalf("could not create buffer: %v", err)
	}

	// The buffer was created for 4-dimensional states and
	// 2-dimensional actions
	if err := buffer.Add(transitionOf(1.0)); err == nil {
		t.Error("expected error when adding mis-sized transition")
	}
}
