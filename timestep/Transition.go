package timestep

import (
	"gonum.org/v1/gonum/mat"
)

// Transition packages together a single environmental transition
// (S, A, R, S') along with the discount to apply to action values of
// the next state. Terminal transitions carry a discount of 0 so that
// bootstrapped update targets are cut off at episode ends.
type Transition struct {
	State  mat.Vector
	Action mat.Vector

	Reward   float64
	Discount float64

	NextState mat.Vector

	// Terminal indicates whether NextState is the last state in an
	// episode
	Terminal bool
}

// NewTransition packages and returns the transition between two
// consecutive timesteps, where action was taken in the first of the
// two.
func NewTransition(step TimeStep, action mat.Vector,
	nextStep TimeStep) Transition {
	discount := nextStep.Discount
	if nextStep.Last() {
		discount = 0.0
	}

	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		Discount:  discount,
		NextState: nextStep.Observation,
		Terminal:  nextStep.Last(),
	}
}
