package network

import (
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp holds the machinery shared by the feedforward networks in this
// package: the graph, the fully connected layers, the input nodes, and
// the weight bookkeeping needed for training and target-network
// synchronization. Concrete network types embed an mlp and add their
// own head (bounded actions, action-value prediction).
type mlp struct {
	g      *G.ExprGraph
	layers []Layer
	inputs []*G.Node

	numOutputs int
	numInputs  int // Total features across all input nodes
	batchSize  int

	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// Graph returns the computational graph of the network
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the batch size of inputs to the network
func (m *mlp) BatchSize() int {
	return m.batchSize
}

// Features returns the total number of input features per sample
func (m *mlp) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs from the network
func (m *mlp) Outputs() int {
	return m.numOutputs
}

// forward chains the network's layers on the input node. The caller
// stores the resulting node as the network's prediction.
func (m *mlp) forward(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "forward: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	return pred, nil
}

// setPrediction records the node holding the network's output and
// registers a read of its value.
func (m *mlp) setPrediction(pred *G.Node) {
	m.prediction = pred
	G.Read(m.prediction, &m.predVal)
}

// setInputN sets the value of the network's i-th input node
func (m *mlp) setInputN(i int, input []float64) error {
	node := m.inputs[i]
	if len(input) != node.Shape().TotalSize() {
		return fmt.Errorf("setinput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", node.Shape().TotalSize(), len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(node.Shape()...),
	)
	return G.Let(node, inputTensor)
}

// SetInput sets the value of the network's first input node before
// running the forward pass.
func (m *mlp) SetInput(input []float64) error {
	return m.setInputN(0, input)
}

// Set sets the weights of the network to be equal to the weights of
// another network
func (m *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("set: differing number of learnables \n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of the network to a polyak average between
// its existing weights and the weights of another network
func (m *mlp) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("polyak: differing number of learnables "+
			"\n\twant(%v)\n\thave(%v)", len(nodes), len(sourceNodes))
	}
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		err = G.Let(nodes[i], newWeights)
		if err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in the network
func (m *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for i := range m.layers {
			learnables = append(learnables, m.layers[i].Weights())
			if bias := m.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnable nodes with their gradients.
func (m *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(m.layers))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// Output returns the output of the network after its graph has been
// run
func (m *mlp) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the network
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}

// cloneLayersTo clones the network's layers to a new graph
func (m *mlp) cloneLayersTo(g *G.ExprGraph) []Layer {
	layers := make([]Layer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].CloneTo(g)
	}
	return layers
}

// encodeLayers gob encodes each layer's weight values
func (m *mlp) encodeLayers(enc *gob.Encoder) error {
	for i, layer := range m.layers {
		fc, ok := layer.(*fcLayer)
		if !ok {
			return fmt.Errorf("encodelayers: layer %v is not serializable", i)
		}
		if err := enc.Encode(fc); err != nil {
			return fmt.Errorf("encodelayers: could not encode layer %v: %v",
				i, err)
		}
	}
	return nil
}

// decodeLayers decodes weight values into the network's existing
// layers
func (m *mlp) decodeLayers(dec *gob.Decoder) error {
	for i, layer := range m.layers {
		fc, ok := layer.(*fcLayer)
		if !ok {
			return fmt.Errorf("decodelayers: layer %v is not serializable", i)
		}
		if err := dec.Decode(fc); err != nil {
			return fmt.Errorf("decodelayers: could not decode layer %v: %v",
				i, err)
		}
	}
	return nil
}

// encodeAll encodes each value in turn, stopping at the first error
func encodeAll(enc *gob.Encoder, values ...interface{}) error {
	for _, value := range values {
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("could not encode %T: %v", value, err)
		}
	}
	return nil
}

// decodeAll decodes into each pointer in turn, stopping at the first
// error
func decodeAll(dec *gob.Decoder, values ...interface{}) error {
	for _, value := range values {
		if err := dec.Decode(value); err != nil {
			return fmt.Errorf("could not decode %T: %v", value, err)
		}
	}
	return nil
}

// validateArchitecture ensures one activation and one bias flag exist
// per hidden layer
func validateArchitecture(hiddenSizes []int, biases []bool,
	activations []*Activation) error {
	if len(hiddenSizes) != len(activations) {
		return fmt.Errorf("invalid number of activations\n\twant(%d)"+
			"\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return fmt.Errorf("invalid number of biases\n\twant(%d)\n\thave(%d)",
			len(hiddenSizes), len(biases))
	}
	return nil
}
