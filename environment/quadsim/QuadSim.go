// Package quadsim implements a minimal point-mass quadcopter
// environment. A rigid body of fixed mass moves in a bounded box under
// gravity, driven by a 3-dimensional linear force. The full action
// space also exposes 3 torque dimensions for interface compatibility
// with a real flight controller, but the point mass carries no
// attitude, so torques are accepted and ignored.
package quadsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/quadrl/environment"
	"github.com/samuelfneumann/quadrl/timestep"
	"github.com/samuelfneumann/quadrl/utils/floatutils"
)

// Default physical constants
const (
	PositionBound float64 = 150.0 // +/- Position bounds (m)
	SpeedBound    float64 = 50.0  // +/- Velocity bounds (m/s)
	ForceBound    float64 = 25.0  // +/- Linear force bounds (N)
	TorqueBound   float64 = 25.0  // +/- Torque bounds (N*m), unused

	dt      float64 = 0.02 // Simulation timestep (s)
	Gravity float64 = 9.81
	Mass    float64 = 2.0

	// ActionDims is the full actuation dimensionality: force xyz
	// followed by torque xyz
	ActionDims int = 6

	// ObservationDims is position xyz followed by velocity xyz
	ObservationDims int = 6
)

// QuadSim implements the environment.Environment interface for a
// point-mass quadcopter. State observations are the concatenation of
// position and velocity. Actions are 6-dimensional; only the first
// three (linear force) dimensions affect the dynamics. Forces outside
// the legal bounds are clipped before integration.
type QuadSim struct {
	environment.Task
	starter environment.Starter

	dt      float64
	gravity float64
	mass    float64

	positionBounds r1.Interval
	speedBounds    r1.Interval
	forceBounds    r1.Interval

	stepLimit int
	lastStep  timestep.TimeStep
	discount  float64
}

// New creates and returns a new QuadSim environment along with the
// first timestep of the first episode. The starter samples starting
// positions; starting velocities are always zero. An episode ends
// after stepLimit steps or when the task reports the goal reached.
func New(task environment.Task, starter environment.Starter,
	discount float64, stepLimit int) (*QuadSim, timestep.TimeStep, error) {
	if stepLimit <= 0 {
		return nil, timestep.TimeStep{}, fmt.Errorf("quadsim: step limit "+
			"must be > 0 \n\thave(%v)", stepLimit)
	}

	q := &QuadSim{
		Task:    task,
		starter: starter,

		dt:      dt,
		gravity: Gravity,
		mass:    Mass,

		positionBounds: r1.Interval{Min: -PositionBound, Max: PositionBound},
		speedBounds:    r1.Interval{Min: -SpeedBound, Max: SpeedBound},
		forceBounds:    r1.Interval{Min: -ForceBound, Max: ForceBound},

		stepLimit: stepLimit,
		discount:  discount,
	}

	firstStep := q.Reset()

	return q, firstStep, nil
}

// Reset resets the environment and returns a starting state drawn
// from the Starter
func (q *QuadSim) Reset() timestep.TimeStep {
	position := q.starter.Start()
	state := mat.NewVecDense(ObservationDims, nil)
	for i := 0; i < position.Len() && i < 3; i++ {
		state.SetVec(i, floatutils.ClipInterval(position.AtVec(i),
			q.positionBounds))
	}

	startStep := timestep.New(timestep.First, 0, q.discount, state, 0)
	q.lastStep = startStep

	return startStep
}

// Step takes one environmental step given an action and returns the
// next timestep and whether that timestep is the last in the episode
func (q *QuadSim) Step(action mat.Vector) (timestep.TimeStep, bool) {
	if action.Len() != ActionDims {
		panic(fmt.Sprintf("step: invalid action dimensions \n\twant(%v)"+
			"\n\thave(%v)", ActionDims, action.Len()))
	}

	obs := q.lastStep.Observation
	nextState := mat.NewVecDense(ObservationDims, nil)

	// Integrate the linear dynamics; torque dimensions are ignored
	for i := 0; i < 3; i++ {
		force := floatutils.ClipInterval(action.AtVec(i), q.forceBounds)

		accel := force / q.mass
		if i == 2 {
			accel -= q.gravity
		}

		velocity := obs.AtVec(3+i) + accel*q.dt
		velocity = floatutils.ClipInterval(velocity, q.speedBounds)

		position := obs.AtVec(i) + velocity*q.dt
		position = floatutils.ClipInterval(position, q.positionBounds)

		nextState.SetVec(i, position)
		nextState.SetVec(3+i, velocity)
	}

	reward := q.GetReward(obs, action, nextState)

	number := q.lastStep.Number + 1
	stepType := timestep.Mid
	discount := q.discount
	if number >= q.stepLimit || q.AtGoal(nextState) {
		stepType = timestep.Last
		discount = 0.0
	}

	step := timestep.New(stepType, reward, discount, nextState, number)
	q.lastStep = step

	return step, step.Last()
}

// DiscountSpec returns the spec of the environment's discount
func (q *QuadSim) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	discount := mat.NewVecDense(1, []float64{q.discount})

	return environment.NewSpec(shape, environment.Discount, discount,
		discount, environment.Continuous)
}

// ObservationSpec returns the spec of the environment's observations
func (q *QuadSim) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lower := make([]float64, ObservationDims)
	upper := make([]float64, ObservationDims)
	for i := 0; i < 3; i++ {
		lower[i], upper[i] = q.positionBounds.Min, q.positionBounds.Max
		lower[3+i], upper[3+i] = q.speedBounds.Min, q.speedBounds.Max
	}

	return environment.NewSpec(shape, environment.Observation,
		mat.NewVecDense(ObservationDims, lower),
		mat.NewVecDense(ObservationDims, upper), environment.Continuous)
}

// ActionSpec returns the spec of the environment's actions
func (q *QuadSim) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)

	lower := make([]float64, ActionDims)
	upper := make([]float64, ActionDims)
	for i := 0; i < 3; i++ {
		lower[i], upper[i] = q.forceBounds.Min, q.forceBounds.Max
		lower[3+i], upper[3+i] = -TorqueBound, TorqueBound
	}

	return environment.NewSpec(shape, environment.Action,
		mat.NewVecDense(ActionDims, lower),
		mat.NewVecDense(ActionDims, upper), environment.Continuous)
}

// RewardSpec returns the spec of the environment's rewards
func (q *QuadSim) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)

	lower := mat.NewVecDense(1, []float64{math.Inf(-1)})
	upper := mat.NewVecDense(1, []float64{0.0})

	return environment.NewSpec(shape, environment.Reward, lower, upper,
		environment.Continuous)
}
