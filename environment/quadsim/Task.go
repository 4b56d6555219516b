package quadsim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Hover implements a hovering task: the agent is rewarded for holding
// the body at a target height. Rewards are the negative absolute
// height error, so the maximum achievable reward is 0 at the target.
type Hover struct {
	targetHeight float64
	tolerance    float64
}

// NewHover returns a new Hover task with the given target height.
// The tolerance parameter determines how close to the target height
// the body must be for the task to consider the goal reached.
func NewHover(targetHeight, tolerance float64) *Hover {
	return &Hover{
		targetHeight: targetHeight,
		tolerance:    tolerance,
	}
}

// GetReward returns the reward for transitioning to nextState
func (h *Hover) GetReward(state, action, nextState mat.Vector) float64 {
	return -math.Abs(nextState.AtVec(2) - h.targetHeight)
}

// AtGoal returns whether the state is within tolerance of the target
// height
func (h *Hover) AtGoal(state mat.Vector) bool {
	return math.Abs(state.AtVec(2)-h.targetHeight) < h.tolerance
}
