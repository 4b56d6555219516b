// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm for environments with continuous action spaces.
//
// DDPG learns a deterministic policy μ(s) together with an action
// value function Q(s, a). The critic is trained on bootstrapped update
// targets computed by target networks, and the actor is trained by
// ascending the sampled policy gradient:
//
//	∇J ≈ mean[∇_a Q(s, a)|a=μ(s) * ∇_θ μ(s)]
//
// Exploration is performed by perturbing the policy's actions with
// temporally correlated Ornstein-Uhlenbeck noise.
package ddpg

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/quadrl/environment"
	"github.com/samuelfneumann/quadrl/expreplay"
	"github.com/samuelfneumann/quadrl/network"
	"github.com/samuelfneumann/quadrl/noise"
	ts "github.com/samuelfneumann/quadrl/timestep"
)

// DDPG implements the Deep Deterministic Policy Gradient algorithm.
//
// Four networks take part in learning: a train actor and train critic
// whose weights are adapted by solvers, and a target actor and target
// critic which compute the critic's update targets and slowly track
// the train networks through Polyak averaging. Two further clones
// support the train networks: a batch-1 behaviour actor for action
// selection and a forward-only critic clone on which gradients of the
// value estimates with respect to actions are computed.
type DDPG struct {
	// Action selection
	behaviourActor   network.NeuralNet
	behaviourActorVM G.VM

	// Actor training. The policy gradient cannot be computed on the
	// train actor's graph alone: the critic lives on a separate
	// graph. Instead, ∇_a Q(s, a) is computed on the critic's graph
	// and fed into actionGradients, through which the chain rule
	// to the actor's weights is completed.
	trainActor      network.NeuralNet
	trainActorVM    G.VM
	actorSolver     G.Solver
	actionGradients *G.Node

	targetActor   network.NeuralNet
	targetActorVM G.VM

	// Critic training
	trainCritic   network.ActionValueNet
	trainCriticVM G.VM
	criticSolver  G.Solver
	qTargets      *G.Node

	// Forward-only critic clone on which ∇_a Q(s, a) is computed.
	// Kept consistent with trainCritic by Set() after each critic
	// update.
	gradCritic   network.ActionValueNet
	gradCriticVM G.VM

	targetCritic   network.ActionValueNet
	targetCriticVM G.VM

	gamma float64 // Discount factor for update targets
	tau   float64 // Polyak averaging constant

	noise      *noise.OUNoise
	resetNoise bool

	replay expreplay.ExperienceReplayer

	// Projections between the environment's spaces and the subspaces
	// the agent observes and controls
	stateProjection  Projection
	actionProjection Projection

	// Last timestep observed, needed to construct transitions for
	// the replay buffer
	nextStep ts.TimeStep

	batchSize  int
	stateDims  int
	actionDims int
	eval       bool // Whether or not in evaluation mode
}

// New creates and returns a new DDPG agent
func New(e env.Environment, config Config, seed int64) (*DDPG, error) {
	// Ensure environment has continuous actions
	if e.ActionSpec().Cardinality != env.Continuous {
		return &DDPG{}, fmt.Errorf("ddpg: cannot use non-continuous " +
			"actions")
	}

	// Ensure the configuration is valid
	if err := config.Validate(); err != nil {
		return &DDPG{}, fmt.Errorf("ddpg: %v", err)
	}

	stateProjection, err := NewProjection(e.ObservationSpec().Shape.Len(),
		config.StateIndices)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: invalid state projection: %v", err)
	}
	actionProjection, err := NewProjection(e.ActionSpec().Shape.Len(),
		config.ActionIndices)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: invalid action projection: %v", err)
	}

	batchSize := config.BatchSize()
	stateDims := stateProjection.Dims()
	actionDims := actionProjection.Dims()

	// Action bounds for the dimensions the agent controls
	lowerBound, err := actionProjection.Reduce(e.ActionSpec().LowerBound)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not reduce action bounds: "+
			"%v", err)
	}
	upperBound, err := actionProjection.Reduce(e.ActionSpec().UpperBound)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not reduce action bounds: "+
			"%v", err)
	}

	init := config.InitWFn.InitWFn()

	// Behaviour actor for selecting single actions
	behaviourActor, err := network.NewBoundedMLP(stateDims, 1, G.NewGraph(),
		config.ActorLayers, config.ActorBiases, config.ActorActivations,
		init, lowerBound, upperBound)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create behaviour "+
			"actor: %v", err)
	}
	behaviourActorVM := G.NewTapeMachine(behaviourActor.Graph())

	// Train actor, which learns the policy weights
	trainActor, err := behaviourActor.CloneWithBatch(batchSize)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create train actor: "+
			"%v", err)
	}
	gTrainActor := trainActor.Graph()

	// The solver descends gradients, so the sampled policy gradient
	// is negated to ascend the value estimates
	actionGradients := G.NewMatrix(gTrainActor, tensor.Float64,
		G.WithShape(batchSize, actionDims), G.WithName("actionGradients"))
	score := G.Must(G.HadamardProd(trainActor.Prediction(),
		actionGradients))
	score = G.Must(G.Sum(score, 1))
	actorCost := G.Must(G.Neg(G.Must(G.Mean(score))))

	if _, err := G.Grad(actorCost, trainActor.Learnables()...); err != nil {
		return &DDPG{}, fmt.Errorf("new: could not compute actor "+
			"gradient: %v", err)
	}
	trainActorVM := G.NewTapeMachine(gTrainActor,
		G.BindDualValues(trainActor.Learnables()...))

	// Target actor, which selects the bootstrapped actions of the
	// critic's update targets
	targetActor, err := behaviourActor.CloneWithBatch(batchSize)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create target actor: "+
			"%v", err)
	}
	targetActorVM := G.NewTapeMachine(targetActor.Graph())

	// Train critic, which learns the action value weights by
	// minimizing the mean squared error to the update targets:
	// r + γQ'(s', μ'(s'))
	trainCritic, err := network.NewActionValueMLP(stateDims, actionDims,
		batchSize, G.NewGraph(), config.CriticLayers, config.CriticBiases,
		config.CriticActivations, init)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create train critic: "+
			"%v", err)
	}
	gTrainCritic := trainCritic.Graph()

	qTargets := G.NewMatrix(gTrainCritic, tensor.Float64,
		G.WithShape(batchSize, 1), G.WithName("qTargets"))
	criticLosses := G.Must(G.Sub(trainCritic.Prediction(), qTargets))
	criticLosses = G.Must(G.Square(criticLosses))
	criticCost := G.Must(G.Mean(criticLosses))

	if _, err := G.Grad(criticCost,
		trainCritic.Learnables()...); err != nil {
		return &DDPG{}, fmt.Errorf("new: could not compute critic "+
			"gradient: %v", err)
	}
	trainCriticVM := G.NewTapeMachine(gTrainCritic,
		G.BindDualValues(trainCritic.Learnables()...))

	// Critic clone on which ∇_a Q(s, a) is computed for the actor
	// update
	gradCriticClone, err := trainCritic.CloneWithBatch(batchSize)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create gradient "+
			"critic: %v", err)
	}
	gradCritic := gradCriticClone.(network.ActionValueNet)

	gradCost := G.Must(G.Sum(gradCritic.Prediction()))
	if _, err := G.Grad(gradCost, gradCritic.ActionInput()); err != nil {
		return &DDPG{}, fmt.Errorf("new: could not compute action "+
			"gradient: %v", err)
	}
	gradCriticVM := G.NewTapeMachine(gradCritic.Graph(),
		G.BindDualValues(gradCritic.ActionInput()))

	// Target critic, which computes the value estimates of the update
	// targets
	targetCriticClone, err := trainCritic.CloneWithBatch(batchSize)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create target critic: "+
			"%v", err)
	}
	targetCritic := targetCriticClone.(network.ActionValueNet)
	targetCriticVM := G.NewTapeMachine(targetCritic.Graph())

	// Exploration noise over the controlled action dimensions
	ouNoise, err := config.Noise.Create(actionDims, uint64(seed))
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create exploration "+
			"noise: %v", err)
	}

	// Create the experience replay buffer, which stores transitions
	// in the agent's reduced state and action spaces
	replay, err := config.ExpReplay.Create(stateDims, actionDims, seed)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create experience "+
			"replay buffer: %v", err)
	}

	return &DDPG{
		behaviourActor:   behaviourActor,
		behaviourActorVM: behaviourActorVM,

		trainActor:      trainActor,
		trainActorVM:    trainActorVM,
		actorSolver:     config.ActorSolver.Solver,
		actionGradients: actionGradients,

		targetActor:   targetActor,
		targetActorVM: targetActorVM,

		trainCritic:   trainCritic,
		trainCriticVM: trainCriticVM,
		criticSolver:  config.CriticSolver.Solver,
		qTargets:      qTargets,

		gradCritic:   gradCritic,
		gradCriticVM: gradCriticVM,

		targetCritic:   targetCritic,
		targetCriticVM: targetCriticVM,

		gamma: config.Gamma,
		tau:   config.Tau,

		noise:      ouNoise,
		resetNoise: config.ResetNoise,

		replay: replay,

		stateProjection:  stateProjection,
		actionProjection: actionProjection,

		nextStep:   ts.TimeStep{},
		batchSize:  batchSize,
		stateDims:  stateDims,
		actionDims: actionDims,
		eval:       false,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DDPG) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)", t.Number)
	}
	d.nextStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep, adding the transition that the action generated to the
// experience replay buffer.
func (d *DDPG) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	state, err := d.stateProjection.Reduce(d.nextStep.Observation)
	if err != nil {
		return fmt.Errorf("observe: could not reduce state: %v", err)
	}
	nextState, err := d.stateProjection.Reduce(nextStep.Observation)
	if err != nil {
		return fmt.Errorf("observe: could not reduce next state: %v", err)
	}
	reducedAction, err := d.actionProjection.Reduce(action)
	if err != nil {
		return fmt.Errorf("observe: could not reduce action: %v", err)
	}

	// Terminal transitions carry a discount of 0 so that update
	// targets are not bootstrapped past the end of the episode
	discount := d.gamma
	if nextStep.Last() {
		discount = 0.0
	}

	transition := ts.Transition{
		State:     mat.NewVecDense(d.stateDims, state),
		Action:    mat.NewVecDense(d.actionDims, reducedAction),
		Reward:    nextStep.Reward,
		Discount:  discount,
		NextState: mat.NewVecDense(d.stateDims, nextState),
		Terminal:  nextStep.Last(),
	}
	if err := d.replay.Add(transition); err != nil {
		return fmt.Errorf("observe: could not add to replay buffer: %v", err)
	}

	d.nextStep = nextStep
	return nil
}

// SelectAction runs the behaviour actor's computational graph and
// returns the selected action, expanded to the environment's full
// action dimensionality. In training mode, exploration noise is added
// to the actor's action before expansion.
func (d *DDPG) SelectAction(t ts.TimeStep) *mat.VecDense {
	obs, err := d.stateProjection.Reduce(t.Observation)
	if err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}
	if err := d.behaviourActor.SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}

	// Run the behaviour actor's computational graph
	if err := d.behaviourActorVM.RunAll(); err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}
	action := tensorToFloats(d.behaviourActor.Output())
	d.behaviourActorVM.Reset()

	if !d.eval {
		perturbation := d.noise.Sample()
		for i := range action {
			action[i] += perturbation[i]
		}
	}

	fullAction, err := d.actionProjection.Expand(action)
	if err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}
	return fullAction
}

// Step updates the weights of the agent's actor and critic networks
func (d *DDPG) Step() error {
	// Don't update if replay buffer is empty or has insufficient
	// samples to sample
	S, A, R, discounts, NextS, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("step: could not sample replay buffer: %v", err)
	}

	// Predict the actions the target policy takes in the next states
	if err := d.targetActor.SetInput(NextS); err != nil {
		return fmt.Errorf("step: could not set target actor input: %v", err)
	}
	if err := d.targetActorVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target actor: %v", err)
	}
	nextActions := tensorToFloats(d.targetActor.Output())
	d.targetActorVM.Reset()

	// Compute the value estimates of the next state-action pairs
	if err := d.targetCritic.SetInput(NextS); err != nil {
		return fmt.Errorf("step: could not set target critic input: %v", err)
	}
	if err := d.targetCritic.SetActions(nextActions); err != nil {
		return fmt.Errorf("step: could not set target critic actions: %v",
			err)
	}
	if err := d.targetCriticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target critic: %v", err)
	}
	nextValues := tensorToFloats(d.targetCritic.Output())
	d.targetCriticVM.Reset()

	// Compute the update targets: r + γQ'(s', μ'(s'))
	targets := make([]float64, d.batchSize)
	for i := range targets {
		targets[i] = R[i] + discounts[i]*nextValues[i]
	}

	// Run the critic's learning step
	if err := d.trainCritic.SetInput(S); err != nil {
		return fmt.Errorf("step: could not set train critic input: %v", err)
	}
	if err := d.trainCritic.SetActions(A); err != nil {
		return fmt.Errorf("step: could not set train critic actions: %v",
			err)
	}
	targetTensor := tensor.New(tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize, 1))
	if err := G.Let(d.qTargets, targetTensor); err != nil {
		return fmt.Errorf("step: could not set update targets: %v", err)
	}
	if err := d.trainCriticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run train critic: %v", err)
	}
	if err := d.criticSolver.Step(d.trainCritic.Model()); err != nil {
		return fmt.Errorf("step: could not step critic solver: %v", err)
	}
	d.trainCriticVM.Reset()

	// Compute ∇_a Q(s, a) at a = μ(s) on the newly updated critic
	if err := d.gradCritic.Set(d.trainCritic); err != nil {
		return fmt.Errorf("step: could not sync gradient critic: %v", err)
	}
	if err := d.gradCritic.SetInput(S); err != nil {
		return fmt.Errorf("step: could not set gradient critic input: %v",
			err)
	}
	if err := d.gradCritic.SetActions(A); err != nil {
		return fmt.Errorf("step: could not set gradient critic actions: "+
			"%v", err)
	}
	if err := d.gradCriticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run gradient critic: %v", err)
	}
	actionGrad, err := d.gradCritic.ActionInput().Grad()
	if err != nil {
		return fmt.Errorf("step: could not read action gradient: %v", err)
	}
	actionGradients := tensorToFloats(actionGrad)
	d.gradCriticVM.Reset()

	// Run the actor's learning step along the sampled policy gradient
	if err := d.trainActor.SetInput(S); err != nil {
		return fmt.Errorf("step: could not set train actor input: %v", err)
	}
	gradTensor := tensor.New(tensor.WithBacking(actionGradients),
		tensor.WithShape(d.batchSize, d.actionDims))
	if err := G.Let(d.actionGradients, gradTensor); err != nil {
		return fmt.Errorf("step: could not set action gradients: %v", err)
	}
	if err := d.trainActorVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run train actor: %v", err)
	}
	if err := d.actorSolver.Step(d.trainActor.Model()); err != nil {
		return fmt.Errorf("step: could not step actor solver: %v", err)
	}
	d.trainActorVM.Reset()

	// Update the target networks to slowly track the train networks
	if err := d.targetActor.Polyak(d.trainActor, d.tau); err != nil {
		return fmt.Errorf("step: could not update target actor: %v", err)
	}
	if err := d.targetCritic.Polyak(d.trainCritic, d.tau); err != nil {
		return fmt.Errorf("step: could not update target critic: %v", err)
	}

	// The behaviour actor selects actions with the newly learned
	// weights
	if err := d.behaviourActor.Set(d.trainActor); err != nil {
		return fmt.Errorf("step: could not sync behaviour actor: %v", err)
	}

	return nil
}

// EndEpisode performs cleanup at the end of an episode. The
// exploration noise process state is carried across episode
// boundaries unless the agent was configured to reset it.
func (d *DDPG) EndEpisode() {
	if d.resetNoise {
		d.noise.Reset()
	}
}

// Eval sets the agent into evaluation mode, where actions are selected
// without exploration noise
func (d *DDPG) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DDPG) Train() {
	d.eval = false
}

// GobEncode implements the gob.GobEncoder interface by encoding the
// weights of the agent's train and target networks.
func (d *DDPG) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	nets := []network.NeuralNet{d.trainActor, d.targetActor,
		d.trainCritic, d.targetCritic}
	for _, net := range nets {
		encoder, ok := net.(gob.GobEncoder)
		if !ok {
			return nil, fmt.Errorf("gobencode: network cannot be " +
				"serialized")
		}
		data, err := encoder.GobEncode()
		if err != nil {
			return nil, fmt.Errorf("gobencode: could not encode network: "+
				"%v", err)
		}
		if err := enc.Encode(data); err != nil {
			return nil, fmt.Errorf("gobencode: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The weights of
// the agent's networks are replaced with the decoded weights; the
// agent's computational graphs, replay buffer, and noise process are
// left untouched.
func (d *DDPG) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	nets := []network.NeuralNet{d.trainActor, d.targetActor,
		d.trainCritic, d.targetCritic}
	for _, net := range nets {
		var data []byte
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("gobdecode: %v", err)
		}

		// Decode into a scratch clone, then copy the weights in, so
		// that the loss graphs and VMs built on the existing networks
		// stay valid
		clone, err := net.Clone()
		if err != nil {
			return fmt.Errorf("gobdecode: could not clone network: %v", err)
		}
		decoder, ok := clone.(gob.GobDecoder)
		if !ok {
			return fmt.Errorf("gobdecode: network cannot be deserialized")
		}
		if err := decoder.GobDecode(data); err != nil {
			return fmt.Errorf("gobdecode: could not decode network: %v", err)
		}
		if err := net.Set(clone); err != nil {
			return fmt.Errorf("gobdecode: could not set weights: %v", err)
		}
	}

	if err := d.behaviourActor.Set(d.trainActor); err != nil {
		return fmt.Errorf("gobdecode: could not sync behaviour actor: %v",
			err)
	}
	if err := d.gradCritic.Set(d.trainCritic); err != nil {
		return fmt.Errorf("gobdecode: could not sync gradient critic: %v",
			err)
	}

	return nil
}

// tensorToFloats returns a copy of the data backing a computed value
func tensorToFloats(v G.Value) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out
	case float64:
		return []float64{data}
	default:
		panic(fmt.Sprintf("tensortofloats: unknown value type %T", data))
	}
}
