package network

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
)

// newActor returns a small bounded network for testing
func newActor(t *testing.T, batch int, init G.InitWFn) NeuralNet {
	net, err := NewBoundedMLP(3, batch, G.NewGraph(), []int{8},
		[]bool{true}, []*Activation{ReLU()}, init,
		[]float64{-25.0, -25.0, -25.0}, []float64{25.0, 25.0, 25.0})
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	return net
}

// weightValues returns copies of the values of a network's learnable
// weights
func weightValues(t *testing.T, net NeuralNet) [][]float64 {
	learnables := net.Learnables()
	values := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		values[i] = make([]float64, len(data))
		copy(values[i], data)
	}
	return values
}

func TestBoundedMLPOutputWithinBounds(t *testing.T) {
	net := newActor(t, 1, G.Uniform(-1.0, 1.0))
	vm := G.NewTapeMachine(net.Graph())

	inputs := [][]float64{
		{0.0, 0.0, 0.0},
		{100.0, -250.0, 3.0},
		{-1000.0, 1000.0, -1000.0},
	}
	for _, input := range inputs {
		if err := net.SetInput(input); err != nil {
			t.Fatalf("could not set input: %v", err)
		}
		if err := vm.RunAll(); err != nil {
			t.Fatalf("could not run forward pass: %v", err)
		}
		output := net.Output().Data().([]float64)
		vm.Reset()

		if len(output) != 3 {
			t.Fatalf("wrong output size: want(3) have(%v)", len(output))
		}
		for i, action := range output {
			if action < -25.0 || action > 25.0 {
				t.Errorf("output %v out of bounds for input %v: %v", i,
					input, action)
			}
		}
	}
}

func TestCloneCopiesWeights(t *testing.T) {
	net := newActor(t, 1, G.Uniform(-1.0, 1.0))

	cloned, err := net.CloneWithBatch(4)
	if err != nil {
		t.Fatalf("could not clone network: %v", err)
	}
	if cloned.BatchSize() != 4 {
		t.Errorf("wrong clone batch size: want(4) have(%v)",
			cloned.BatchSize())
	}
	if cloned.Graph() == net.Graph() {
		t.Error("clone shares the source network's graph")
	}

	original := weightValues(t, net)
	clone := weightValues(t, cloned)
	for i := range original {
		for j := range original[i] {
			if original[i][j] != clone[i][j] {
				t.Fatalf("clone weights differ at learnable %v", i)
			}
		}
	}
}

func TestSet(t *testing.T) {
	source := newActor(t, 1, G.Uniform(-1.0, 1.0))
	dest := newActor(t, 1, G.Zeroes())

	if err := dest.Set(source); err != nil {
		t.Fatalf("could not set weights: %v", err)
	}

	sourceWeights := weightValues(t, source)
	destWeights := weightValues(t, dest)
	for i := range sourceWeights {
		for j := range sourceWeights[i] {
			if sourceWeights[i][j] != destWeights[i][j] {
				t.Fatalf("weights differ at learnable %v after Set", i)
			}
		}
	}
}

func TestPolyak(t *testing.T) {
	tau := 0.1
	source := newActor(t, 1, G.Uniform(-1.0, 1.0))
	dest := newActor(t, 1, G.Uniform(-1.0, 1.0))

	sourceWeights := weightValues(t, source)
	destBefore := weightValues(t, dest)

	if err := dest.Polyak(source, tau); err != nil {
		t.Fatalf("could not average weights: %v", err)
	}

	destAfter := weightValues(t, dest)
	for i := range destAfter {
		for j := range destAfter[i] {
			expected := tau*sourceWeights[i][j] + (1-tau)*destBefore[i][j]
			if math.Abs(destAfter[i][j]-expected) > 1e-10 {
				t.Fatalf("wrong averaged weight at learnable %v: want(%v) "+
					"have(%v)", i, expected, destAfter[i][j])
			}
		}
	}

	// Polyak with tau = 0 leaves the weights untouched
	destBefore = weightValues(t, dest)
	if err := dest.Polyak(source, 0.0); err != nil {
		t.Fatalf("could not average weights: %v", err)
	}
	destAfter = weightValues(t, dest)
	for i := range destAfter {
		for j := range destAfter[i] {
			if destAfter[i][j] != destBefore[i][j] {
				t.Fatalf("weights changed at learnable %v by Polyak with "+
					"tau = 0", i)
			}
		}
	}

	// Polyak with tau = 1 copies the source weights exactly
	if err := dest.Polyak(source, 1.0); err != nil {
		t.Fatalf("could not average weights: %v", err)
	}
	destAfter = weightValues(t, dest)
	for i := range destAfter {
		for j := range destAfter[i] {
			if math.Abs(destAfter[i][j]-sourceWeights[i][j]) > 1e-10 {
				t.Fatalf("weights differ at learnable %v after Polyak "+
					"with tau = 1", i)
			}
		}
	}
}

func TestPolyakAccumulatesExponentialAverage(t *testing.T) {
	tau := 0.25
	dest := newActor(t, 1, G.Uniform(-1.0, 1.0))
	expected := weightValues(t, dest)

	// Repeated averaging against changing source weights must leave the
	// destination at the exponential moving average of the source
	// weight history
	for step := 0; step < 5; step++ {
		source := newActor(t, 1, G.Uniform(-1.0, 1.0))
		sourceWeights := weightValues(t, source)
		for i := range expected {
			for j := range expected[i] {
				expected[i][j] = tau*sourceWeights[i][j] +
					(1-tau)*expected[i][j]
			}
		}

		if err := dest.Polyak(source, tau); err != nil {
			t.Fatalf("could not average weights: %v", err)
		}
	}

	destWeights := weightValues(t, dest)
	for i := range destWeights {
		for j := range destWeights[i] {
			if math.Abs(destWeights[i][j]-expected[i][j]) > 1e-10 {
				t.Fatalf("wrong averaged weight at learnable %v after "+
					"repeated averaging: want(%v) have(%v)", i,
					expected[i][j], destWeights[i][j])
			}
		}
	}
}

func TestActionValueMLPRespondsToActions(t *testing.T) {
	net, err := NewActionValueMLP(3, 3, 2, G.NewGraph(), []int{8},
		[]bool{true}, []*Activation{ReLU()}, G.Uniform(-1.0, 1.0))
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	vm := G.NewTapeMachine(net.Graph())

	states := []float64{
		1.0, 2.0, 3.0,
		-1.0, 0.5, 0.0,
	}

	if err := net.SetInput(states); err != nil {
		t.Fatalf("could not set states: %v", err)
	}
	if err := net.SetActions([]float64{
		1.0, 1.0, 1.0,
		0.0, 0.0, 0.0,
	}); err != nil {
		t.Fatalf("could not set actions: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run forward pass: %v", err)
	}
	first := net.Output().Data().([]float64)
	firstValues := make([]float64, len(first))
	copy(firstValues, first)
	vm.Reset()

	if len(firstValues) != 2 {
		t.Fatalf("wrong output size: want(2) have(%v)", len(firstValues))
	}

	// Same states with different actions must produce different value
	// estimates
	if err := net.SetInput(states); err != nil {
		t.Fatalf("could not set states: %v", err)
	}
	if err := net.SetActions([]float64{
		-5.0, 3.0, 2.0,
		10.0, -10.0, 1.0,
	}); err != nil {
		t.Fatalf("could not set actions: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run forward pass: %v", err)
	}
	second := net.Output().Data().([]float64)
	vm.Reset()

	if firstValues[0] == second[0] && firstValues[1] == second[1] {
		t.Error("value estimates do not depend on the action input")
	}
}
