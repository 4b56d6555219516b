package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// actionValueMLP implements a multi-layered perceptron predicting a
// single action value Q(s, a) per sample. States and actions enter
// the graph as separate input nodes and are concatenated along the
// feature dimension before the first layer. Keeping the action as its
// own input node means gradients of the prediction with respect to
// the action can be computed, which is what drives the actor's policy
// gradient step.
type actionValueMLP struct {
	mlp

	stateFeatures  int
	actionFeatures int

	stateInput  *G.Node
	actionInput *G.Node
}

// NewActionValueMLP creates and returns a new multi-layered perceptron
// mapping a batch of (state, action) pairs to a batch of scalar value
// estimates. The graph parameter g is populated with the network.
//
// The architecture parameters behave as in NewBoundedMLP. A final
// linear layer with a bias unit and a single output is always added.
func NewActionValueMLP(stateFeatures, actionFeatures, batch int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (ActionValueNet, error) {
	if err := validateArchitecture(hiddenSizes, biases,
		activations); err != nil {
		return nil, fmt.Errorf("newactionvaluemlp: %v", err)
	}
	if stateFeatures <= 0 || actionFeatures <= 0 {
		return nil, fmt.Errorf("newactionvaluemlp: state and action "+
			"features must be positive \n\thave(%v, %v)", stateFeatures,
			actionFeatures)
	}

	// Add the final value-prediction layer
	sizes := append(append([]int{}, hiddenSizes...), 1)
	layerBiases := append(append([]bool{}, biases...), true)
	layerActivations := append(append([]*Activation{}, activations...),
		Identity())

	stateInput := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, stateFeatures), G.WithName("state"),
		G.WithInit(G.Zeroes()))
	actionInput := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, actionFeatures), G.WithName("action"),
		G.WithInit(G.Zeroes()))

	features := stateFeatures + actionFeatures
	layers := addfcLayers(g, sizes, layerBiases, layerActivations, init,
		features, "", "")

	network := &actionValueMLP{
		mlp: mlp{
			g:           g,
			layers:      layers,
			inputs:      []*G.Node{stateInput, actionInput},
			numOutputs:  1,
			numInputs:   features,
			batchSize:   batch,
			hiddenSizes: sizes,
			biases:      layerBiases,
			activations: layerActivations,
		},
		stateFeatures:  stateFeatures,
		actionFeatures: actionFeatures,
		stateInput:     stateInput,
		actionInput:    actionInput,
	}

	input := G.Must(G.Concat(1, stateInput, actionInput))
	pred, err := network.forward(input)
	if err != nil {
		return nil, fmt.Errorf("newactionvaluemlp: could not compute "+
			"forward pass: %v", err)
	}
	network.setPrediction(pred)

	return network, nil
}

// SetActions sets the value of the network's action input node before
// running the forward pass.
func (a *actionValueMLP) SetActions(actions []float64) error {
	return a.setInputN(1, actions)
}

// ActionInput returns the node at which actions enter the network
func (a *actionValueMLP) ActionInput() *G.Node {
	return a.actionInput
}

// StateFeatures returns the number of state features per sample
func (a *actionValueMLP) StateFeatures() int {
	return a.stateFeatures
}

// ActionFeatures returns the number of action features per sample
func (a *actionValueMLP) ActionFeatures() int {
	return a.actionFeatures
}

// Clone clones an actionValueMLP
func (a *actionValueMLP) Clone() (NeuralNet, error) {
	return a.CloneWithBatch(a.batchSize)
}

// CloneWithBatch clones an actionValueMLP to a new graph with a new
// input batch size
func (a *actionValueMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	stateInput := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(batchSize, a.stateFeatures), G.WithName("state"),
		G.WithInit(G.Zeroes()))
	actionInput := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(batchSize, a.actionFeatures), G.WithName("action"),
		G.WithInit(G.Zeroes()))

	network := &actionValueMLP{
		mlp: mlp{
			g:           graph,
			layers:      a.cloneLayersTo(graph),
			inputs:      []*G.Node{stateInput, actionInput},
			numOutputs:  1,
			numInputs:   a.numInputs,
			batchSize:   batchSize,
			hiddenSizes: a.hiddenSizes,
			biases:      a.biases,
			activations: a.activations,
		},
		stateFeatures:  a.stateFeatures,
		actionFeatures: a.actionFeatures,
		stateInput:     stateInput,
		actionInput:    actionInput,
	}

	input := G.Must(G.Concat(1, stateInput, actionInput))
	pred, err := network.forward(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}
	network.setPrediction(pred)

	return network, nil
}

// GobEncode implements the gob.GobEncoder interface
func (a *actionValueMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	numHidden := len(a.hiddenSizes) - 1
	err := encodeAll(enc, a.stateFeatures, a.actionFeatures, a.batchSize,
		a.hiddenSizes[:numHidden], a.biases[:numHidden],
		a.activations[:numHidden])
	if err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}

	if err := a.encodeLayers(enc); err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *actionValueMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var stateFeatures, actionFeatures, batchSize int
	var hiddenSizes []int
	var biases []bool
	var activations []*Activation

	err := decodeAll(dec, &stateFeatures, &actionFeatures, &batchSize,
		&hiddenSizes, &biases, &activations)
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	newNet, err := NewActionValueMLP(stateFeatures, actionFeatures,
		batchSize, G.NewGraph(), hiddenSizes, biases, activations,
		G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new network: %v",
			err)
	}
	newMLP := newNet.(*actionValueMLP)

	if err := newMLP.decodeLayers(dec); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	*a = *newMLP
	return nil
}
