// Package environment outlines the interfaces needed to implement
// concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/quadrl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Task implements the reward scheme for taking actions in some
// environment
type Task interface {
	GetReward(state mat.Vector, action mat.Vector,
		nextState mat.Vector) float64
	AtGoal(state mat.Vector) bool
}

// Environment implements an environment, which computes rewards for a
// Task
type Environment interface {
	// Reset resets the environment between episodes, returning the
	// first timestep of the new episode
	Reset() timestep.TimeStep

	// Step takes one environmental step given an action, returning
	// the next timestep and whether it is the last of the episode
	Step(action mat.Vector) (timestep.TimeStep, bool)

	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
