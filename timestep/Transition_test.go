package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewTransition(t *testing.T) {
	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	action := mat.NewVecDense(1, []float64{0.5})
	nextState := mat.NewVecDense(2, []float64{3.0, 4.0})

	step := New(First, 0.0, 1.0, state, 0)
	nextStep := New(Mid, -1.0, 0.9, nextState, 1)

	transition := NewTransition(step, action, nextStep)

	if transition.Reward != -1.0 {
		t.Errorf("wrong reward: want(-1) have(%v)", transition.Reward)
	}
	if transition.Discount != 0.9 {
		t.Errorf("wrong discount: want(0.9) have(%v)", transition.Discount)
	}
	if transition.Terminal {
		t.Error("mid-episode transition marked terminal")
	}
	if transition.State.AtVec(0) != 1.0 ||
		transition.NextState.AtVec(0) != 3.0 {
		t.Error("transition states misassigned")
	}
}

func TestNewTransitionTerminal(t *testing.T) {
	state := mat.NewVecDense(1, []float64{1.0})
	action := mat.NewVecDense(1, []float64{0.0})
	nextState := mat.NewVecDense(1, []float64{2.0})

	step := New(Mid, 0.0, 0.9, state, 3)
	lastStep := New(Last, 1.0, 0.9, nextState, 4)

	transition := NewTransition(step, action, lastStep)

	if !transition.Terminal {
		t.Error("terminal transition not marked terminal")
	}
	if transition.Discount != 0.0 {
		t.Errorf("terminal transition has nonzero discount: %v",
			transition.Discount)
	}
}
