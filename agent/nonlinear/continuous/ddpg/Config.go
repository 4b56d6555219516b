package ddpg

import (
	"fmt"

	"github.com/samuelfneumann/quadrl/agent"
	env "github.com/samuelfneumann/quadrl/environment"
	"github.com/samuelfneumann/quadrl/expreplay"
	"github.com/samuelfneumann/quadrl/initwfn"
	"github.com/samuelfneumann/quadrl/network"
	"github.com/samuelfneumann/quadrl/noise"
	"github.com/samuelfneumann/quadrl/solver"
)

// Default hyperparameters
const (
	DefaultGamma float64 = 0.7
	DefaultTau   float64 = 0.001

	DefaultBufferCapacity int = 100_000
	DefaultBatchSize      int = 64

	DefaultActorLearningRate  float64 = 0.0001
	DefaultCriticLearningRate float64 = 0.001
)

// Config implements a configuration for a DDPG agent
type Config struct {
	ActorLayers      []int                 // Actor hidden layer sizes
	ActorBiases      []bool                // Whether actor layers have bias units
	ActorActivations []*network.Activation // Activations of actor layers

	CriticLayers      []int                 // Critic hidden layer sizes
	CriticBiases      []bool                // Whether critic layers have bias units
	CriticActivations []*network.Activation // Activations of critic layers

	ActorSolver  *solver.Solver // Ascends the policy gradient
	CriticSolver *solver.Solver // Descends the value gradient

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Exploration noise added to actions during training
	Noise noise.Config

	// Experience replay parameters
	ExpReplay expreplay.Config

	// Indices of the environment's observation and action vectors
	// that the agent observes and controls. Actions chosen by the
	// agent are expanded to the environment's full action
	// dimensionality with 0's before being sent to the environment.
	StateIndices  []int
	ActionIndices []int

	Gamma float64 // Discount factor for update targets
	Tau   float64 // Polyak averaging constant

	// Whether the exploration noise process is reset to its mean at
	// episode ends. Carrying the process state across episodes keeps
	// exploration temporally correlated over an entire run.
	ResetNoise bool
}

// NewDefaultConfig returns a Config with default hyperparameters
// which observes and controls the given indices of an environment's
// observation and action vectors.
func NewDefaultConfig(stateIndices, actionIndices []int) Config {
	actorSolver, err := solver.NewDefaultAdam(DefaultActorLearningRate,
		DefaultBatchSize)
	if err != nil {
		panic(fmt.Sprintf("newdefaultconfig: could not create actor "+
			"solver: %v", err))
	}
	criticSolver, err := solver.NewDefaultAdam(DefaultCriticLearningRate,
		DefaultBatchSize)
	if err != nil {
		panic(fmt.Sprintf("newdefaultconfig: could not create critic "+
			"solver: %v", err))
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("newdefaultconfig: could not create weight "+
			"initializer: %v", err))
	}

	return Config{
		ActorLayers:      []int{32, 64, 32},
		ActorBiases:      []bool{true, true, true},
		ActorActivations: []*network.Activation{network.ReLU(),
			network.ReLU(), network.ReLU()},

		CriticLayers:      []int{64, 64},
		CriticBiases:      []bool{true, true},
		CriticActivations: []*network.Activation{network.ReLU(),
			network.ReLU()},

		ActorSolver:  actorSolver,
		CriticSolver: criticSolver,
		InitWFn:      init,

		Noise: noise.NewDefaultConfig(),

		ExpReplay: expreplay.Config{
			SampleMethod:      expreplay.Uniform,
			SampleSize:        DefaultBatchSize,
			MaxReplayCapacity: DefaultBufferCapacity,
			MinReplayCapacity: DefaultBatchSize + 1,
		},

		StateIndices:  stateIndices,
		ActionIndices: actionIndices,

		Gamma: DefaultGamma,
		Tau:   DefaultTau,
	}
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.SampleSize
}

// CreateAgent creates and returns the agent that this Config describes
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	return New(e, c, int64(seed))
}

// ValidAgent returns whether the agent is a valid agent for
// construction with this Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DDPG)
	return ok
}

// Validate ensures that the Config is a valid configuration
func (c Config) Validate() error {
	if len(c.ActorLayers) != len(c.ActorBiases) ||
		len(c.ActorLayers) != len(c.ActorActivations) {
		return fmt.Errorf("invalid actor architecture: "+
			"layers[%v] biases[%v] activations[%v] must have equal length",
			len(c.ActorLayers), len(c.ActorBiases), len(c.ActorActivations))
	}
	if len(c.CriticLayers) != len(c.CriticBiases) ||
		len(c.CriticLayers) != len(c.CriticActivations) {
		return fmt.Errorf("invalid critic architecture: "+
			"layers[%v] biases[%v] activations[%v] must have equal length",
			len(c.CriticLayers), len(c.CriticBiases),
			len(c.CriticActivations))
	}

	if c.ActorSolver == nil {
		return fmt.Errorf("no actor solver given")
	}
	if c.CriticSolver == nil {
		return fmt.Errorf("no critic solver given")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("no weight initializer given")
	}

	if len(c.StateIndices) == 0 {
		return fmt.Errorf("no state indices given")
	}
	if len(c.ActionIndices) == 0 {
		return fmt.Errorf("no action indices given")
	}

	if c.Gamma < 0.0 || c.Gamma > 1.0 {
		return fmt.Errorf("discount factor must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}
	if c.Tau <= 0.0 || c.Tau > 1.0 {
		return fmt.Errorf("polyak averaging constant must be in (0, 1] "+
			"\n\thave(%v)", c.Tau)
	}

	if c.ExpReplay.SampleSize <= 0 {
		return fmt.Errorf("sample batch size must be positive "+
			"\n\thave(%v)", c.ExpReplay.SampleSize)
	}
	// Learning starts only once the buffer holds strictly more
	// transitions than a sample batch
	if c.ExpReplay.MinReplayCapacity <= c.ExpReplay.SampleSize {
		return fmt.Errorf("minimum replay capacity (%v) must exceed "+
			"sample batch size (%v)", c.ExpReplay.MinReplayCapacity,
			c.ExpReplay.SampleSize)
	}

	return nil
}
