package ddpg

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/quadrl/environment"
	"github.com/samuelfneumann/quadrl/environment/quadsim"
	"github.com/samuelfneumann/quadrl/expreplay"
	"github.com/samuelfneumann/quadrl/network"
	"github.com/samuelfneumann/quadrl/solver"
	ts "github.com/samuelfneumann/quadrl/timestep"
)

const testBatchSize int = 4

// newTestAgent returns a DDPG agent with small networks on a
// quadcopter hover environment
func newTestAgent(t *testing.T, seed uint64) (*DDPG,
	environment.Environment) {
	horizontal := r1.Interval{Min: -5.0, Max: 5.0}
	vertical := r1.Interval{Min: 1.0, Max: 10.0}
	starter := environment.NewUniformStarter([]r1.Interval{horizontal,
		horizontal, vertical}, seed)

	task := quadsim.NewHover(5.0, 0.25)
	quad, _, err := quadsim.New(task, starter, 1.0, 100)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	actorSolver, err := solver.NewDefaultAdam(0.01, testBatchSize)
	if err != nil {
		t.Fatalf("could not create actor solver: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(0.01, testBatchSize)
	if err != nil {
		t.Fatalf("could not create critic solver: %v", err)
	}

	config := NewDefaultConfig([]int{0, 1, 2}, []int{0, 1, 2})
	config.ActorLayers = []int{8}
	config.ActorBiases = []bool{true}
	config.ActorActivations = []*network.Activation{network.ReLU()}
	config.CriticLayers = []int{8}
	config.CriticBiases = []bool{true}
	config.CriticActivations = []*network.Activation{network.ReLU()}
	config.ActorSolver = actorSolver
	config.CriticSolver = criticSolver
	config.ExpReplay = expreplay.Config{
		SampleMethod:      expreplay.Uniform,
		SampleSize:        testBatchSize,
		MaxReplayCapacity: 32,
		MinReplayCapacity: testBatchSize + 1,
	}

	agent, err := New(quad, config, int64(seed))
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}

	return agent, quad
}

// runSteps interacts the agent with the environment for n steps,
// learning along the way
func runSteps(t *testing.T, agent *DDPG, e environment.Environment,
	n int) {
	step := e.Reset()
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first step: %v", err)
	}
	for i := 0; i < n; i++ {
		action := agent.SelectAction(step)
		step, _ = e.Step(action)
		if err := agent.Observe(action, step); err != nil {
			t.Fatalf("could not observe step: %v", err)
		}
		if err := agent.Step(); err != nil {
			t.Fatalf("could not step agent: %v", err)
		}
		if step.Last() {
			agent.EndEpisode()
			step = e.Reset()
			if err := agent.ObserveFirst(step); err != nil {
				t.Fatalf("could not observe first step: %v", err)
			}
		}
	}
}

// weightValues returns copies of the values of a network's learnable
// weights
func weightValues(net network.NeuralNet) [][]float64 {
	learnables := net.Learnables()
	values := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		values[i] = make([]float64, len(data))
		copy(values[i], data)
	}
	return values
}

func sameWeights(a, b [][]float64) bool {
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestSelectActionExpandsToFullActionSpace(t *testing.T) {
	agent, e := newTestAgent(t, 37)
	step := e.Reset()

	// In evaluation mode, no exploration noise is added, so the force
	// dimensions must respect the actor's bounds exactly
	agent.Eval()
	action := agent.SelectAction(step)

	if action.Len() != quadsim.ActionDims {
		t.Fatalf("wrong action dimensionality: want(%v) have(%v)",
			quadsim.ActionDims, action.Len())
	}
	for i := 0; i < 3; i++ {
		if action.AtVec(i) < -quadsim.ForceBound ||
			action.AtVec(i) > quadsim.ForceBound {
			t.Errorf("force dimension %v out of bounds: %v", i,
				action.AtVec(i))
		}
	}
	for i := 3; i < quadsim.ActionDims; i++ {
		if action.AtVec(i) != 0.0 {
			t.Errorf("uncontrolled dimension %v not zero-filled: %v", i,
				action.AtVec(i))
		}
	}

	// Uncontrolled dimensions stay zero-filled in training mode too,
	// where exploration noise perturbs the controlled dimensions
	agent.Train()
	action = agent.SelectAction(step)
	for i := 3; i < quadsim.ActionDims; i++ {
		if action.AtVec(i) != 0.0 {
			t.Errorf("uncontrolled dimension %v not zero-filled: %v", i,
				action.AtVec(i))
		}
	}
}

func TestStepRequiresMinimumReplayCapacity(t *testing.T) {
	agent, e := newTestAgent(t, 14)

	actorBefore := weightValues(agent.trainActor)
	criticBefore := weightValues(agent.trainCritic)

	// Learning requires strictly more stored transitions than a batch,
	// so a buffer holding exactly one batch leaves all weights untouched
	runSteps(t, agent, e, testBatchSize)

	if !sameWeights(actorBefore, weightValues(agent.trainActor)) {
		t.Error("actor weights changed before buffer exceeded batch size")
	}
	if !sameWeights(criticBefore, weightValues(agent.trainCritic)) {
		t.Error("critic weights changed before buffer exceeded batch size")
	}

	// Once the buffer holds enough transitions, learning proceeds
	runSteps(t, agent, e, 2)

	if sameWeights(actorBefore, weightValues(agent.trainActor)) {
		t.Error("actor weights unchanged after learning steps")
	}
	if sameWeights(criticBefore, weightValues(agent.trainCritic)) {
		t.Error("critic weights unchanged after learning steps")
	}
}

func TestStepSyncsNetworks(t *testing.T) {
	agent, e := newTestAgent(t, 6)
	runSteps(t, agent, e, testBatchSize+5)

	// The behaviour actor must follow the train actor exactly
	if !sameWeights(weightValues(agent.trainActor),
		weightValues(agent.behaviourActor)) {
		t.Error("behaviour actor out of sync with train actor")
	}

	// The gradient critic must follow the train critic exactly
	if !sameWeights(weightValues(agent.trainCritic),
		weightValues(agent.gradCritic)) {
		t.Error("gradient critic out of sync with train critic")
	}

	// The target networks track the train networks slowly, so after a
	// few updates their weights must differ from the train weights
	if sameWeights(weightValues(agent.trainActor),
		weightValues(agent.targetActor)) {
		t.Error("target actor tracks train actor exactly")
	}
	if sameWeights(weightValues(agent.trainCritic),
		weightValues(agent.targetCritic)) {
		t.Error("target critic tracks train critic exactly")
	}
}

func TestObserveStoresTransitions(t *testing.T) {
	agent, e := newTestAgent(t, 98)

	step := e.Reset()
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first step: %v", err)
	}

	for i := 1; i <= 3; i++ {
		action := agent.SelectAction(step)
		step, _ = e.Step(action)
		if err := agent.Observe(action, step); err != nil {
			t.Fatalf("could not observe step: %v", err)
		}
		if agent.replay.Capacity() != i {
			t.Errorf("wrong replay capacity: want(%v) have(%v)", i,
				agent.replay.Capacity())
		}
	}
}

func TestGobEncodeDecodeRestoresWeights(t *testing.T) {
	agent, e := newTestAgent(t, 3)
	runSteps(t, agent, e, testBatchSize+3)

	actorWeights := weightValues(agent.trainActor)
	criticWeights := weightValues(agent.trainCritic)

	data, err := agent.GobEncode()
	if err != nil {
		t.Fatalf("could not encode agent: %v", err)
	}

	// Learn some more so the restored weights differ from the current
	// ones
	runSteps(t, agent, e, 5)
	if sameWeights(actorWeights, weightValues(agent.trainActor)) {
		t.Fatal("actor weights unchanged by additional learning")
	}

	if err := agent.GobDecode(data); err != nil {
		t.Fatalf("could not decode agent: %v", err)
	}

	if !sameWeights(actorWeights, weightValues(agent.trainActor)) {
		t.Error("actor weights not restored from checkpoint")
	}
	if !sameWeights(criticWeights, weightValues(agent.trainCritic)) {
		t.Error("critic weights not restored from checkpoint")
	}
	if !sameWeights(weightValues(agent.trainActor),
		weightValues(agent.behaviourActor)) {
		t.Error("behaviour actor out of sync after restore")
	}
}

func TestConfigValidate(t *testing.T) {
	config := NewDefaultConfig([]int{0, 1, 2}, []int{0, 1, 2})
	if err := config.Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}

	invalidTau := config
	invalidTau.Tau = 0.0
	if err := invalidTau.Validate(); err == nil {
		t.Error("expected error for tau outside (0, 1]")
	}

	invalidGamma := config
	invalidGamma.Gamma = 1.5
	if err := invalidGamma.Validate(); err == nil {
		t.Error("expected error for discount factor outside [0, 1]")
	}

	invalidArch := config
	invalidArch.ActorBiases = []bool{true}
	if err := invalidArch.Validate(); err == nil {
		t.Error("expected error for mismatched actor architecture")
	}

	invalidReplay := config
	invalidReplay.ExpReplay.MinReplayCapacity = 1
	if err := invalidReplay.Validate(); err == nil {
		t.Error("expected error for minimum capacity below batch size")
	}

	equalReplay := config
	equalReplay.ExpReplay.MinReplayCapacity = config.ExpReplay.SampleSize
	if err := equalReplay.Validate(); err == nil {
		t.Error("expected error for minimum capacity equal to batch size")
	}

	invalidIndices := config
	invalidIndices.ActionIndices = nil
	if err := invalidIndices.Validate(); err == nil {
		t.Error("expected error for empty action indices")
	}
}

// observation returns a full-dimensional observation vector whose
// every component is v
func observation(v float64) *mat.VecDense {
	data := make([]float64, quadsim.ObservationDims)
	for i := range data {
		data[i] = v
	}
	return mat.NewVecDense(quadsim.ObservationDims, data)
}

func TestTimeStepDiscountCutsOffAtEpisodeEnd(t *testing.T) {
	agent, _ := newTestAgent(t, 55)

	first := ts.New(ts.First, 0.0, 1.0, observation(1.0), 0)
	if err := agent.ObserveFirst(first); err != nil {
		t.Fatalf("could not observe first step: %v", err)
	}

	last := ts.New(ts.Last, 1.0, 0.0, observation(2.0), 1)
	action := agent.SelectAction(first)
	if err := agent.Observe(action, last); err != nil {
		t.Fatalf("could not observe step: %v", err)
	}

	// A single terminal transition samples with discount 0 regardless
	// of the agent's discount factor
	for i := 0; i < testBatchSize; i++ {
		if err := agent.Observe(action, last); err != nil {
			t.Fatalf("could not observe step: %v", err)
		}
	}
	_, _, _, discounts, _, err := agent.replay.Sample()
	if err != nil {
		t.Fatalf("could not sample replay buffer: %v", err)
	}
	for i, discount := range discounts {
		if discount != 0.0 {
			t.Errorf("terminal transition %v has nonzero discount: %v", i,
				discount)
		}
	}
}
