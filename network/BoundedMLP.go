package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// boundedMLP implements a multi-layered perceptron whose outputs are
// constrained element-wise to a closed interval [lowerBound[i],
// upperBound[i]]. A tanh head squashes the final linear layer into
// (-1, 1), which is then rescaled per dimension:
//
//	out[i] = tanh(z[i]) * (upper[i]-lower[i])/2 + (upper[i]+lower[i])/2
//
// This is the actor body of a deterministic policy-gradient agent:
// predictions are always legal actions, regardless of the weights.
type boundedMLP struct {
	mlp

	lowerBound []float64
	upperBound []float64

	scale *G.Node
	shift *G.Node
}

// NewBoundedMLP creates and returns a new multi-layered perceptron
// with bounded outputs. The number of outputs equals len(lowerBound).
// The graph parameter g is populated with the network.
//
// The network has len(hiddenSizes) hidden layers, where hiddenSizes[i]
// is the number of units in hidden layer i, biases[i] whether the
// layer has a bias unit, and activations[i] its activation function.
// A final layer with a bias unit and a tanh activation is always
// added, and its output is rescaled into the given bounds. The
// parameter init determines the weight initialization scheme.
func NewBoundedMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, activations []*Activation, init G.InitWFn,
	lowerBound, upperBound []float64) (NeuralNet, error) {
	if err := validateArchitecture(hiddenSizes, biases,
		activations); err != nil {
		return nil, fmt.Errorf("newboundedmlp: %v", err)
	}
	if len(lowerBound) == 0 {
		return nil, fmt.Errorf("newboundedmlp: no output bounds given")
	}
	if len(lowerBound) != len(upperBound) {
		return nil, fmt.Errorf("newboundedmlp: bounds have differing "+
			"lengths \n\twant(%v)\n\thave(%v)", len(lowerBound),
			len(upperBound))
	}
	for i := range lowerBound {
		if lowerBound[i] >= upperBound[i] {
			return nil, fmt.Errorf("newboundedmlp: lower bound %v not below "+
				"upper bound %v at dimension %v", lowerBound[i],
				upperBound[i], i)
		}
	}

	outputs := len(lowerBound)

	// Add the squashed output layer
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	layerBiases := append(append([]bool{}, biases...), true)
	layerActivations := append(append([]*Activation{}, activations...),
		TanH())

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("state"), G.WithInit(G.Zeroes()))

	layers := addfcLayers(g, sizes, layerBiases, layerActivations, init,
		features, "", "")

	network := &boundedMLP{
		mlp: mlp{
			g:           g,
			layers:      layers,
			inputs:      []*G.Node{input},
			numOutputs:  outputs,
			numInputs:   features,
			batchSize:   batch,
			hiddenSizes: sizes,
			biases:      layerBiases,
			activations: layerActivations,
		},
		lowerBound: append([]float64{}, lowerBound...),
		upperBound: append([]float64{}, upperBound...),
	}

	if err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("newboundedmlp: could not compute forward "+
			"pass: %v", err)
	}

	return network, nil
}

// fwd performs the forward pass of the boundedMLP on the input node,
// rescaling the squashed trunk output into the network's bounds.
func (b *boundedMLP) fwd(input *G.Node) error {
	pred, err := b.forward(input)
	if err != nil {
		return err
	}

	scaleBacking := make([]float64, b.numOutputs)
	shiftBacking := make([]float64, b.numOutputs)
	for i := range scaleBacking {
		scaleBacking[i] = (b.upperBound[i] - b.lowerBound[i]) / 2.0
		shiftBacking[i] = (b.upperBound[i] + b.lowerBound[i]) / 2.0
	}

	b.scale = G.NewVector(
		b.g,
		tensor.Float64,
		G.WithShape(b.numOutputs),
		G.WithName("actionScale"),
		G.WithValue(tensor.New(
			tensor.WithBacking(scaleBacking),
			tensor.WithShape(b.numOutputs),
		)),
	)
	b.shift = G.NewVector(
		b.g,
		tensor.Float64,
		G.WithShape(b.numOutputs),
		G.WithName("actionShift"),
		G.WithValue(tensor.New(
			tensor.WithBacking(shiftBacking),
			tensor.WithShape(b.numOutputs),
		)),
	)

	pred = G.Must(G.BroadcastHadamardProd(pred, b.scale, nil, []byte{0}))
	pred = G.Must(G.BroadcastAdd(pred, b.shift, nil, []byte{0}))
	b.setPrediction(pred)

	return nil
}

// Clone clones a boundedMLP
func (b *boundedMLP) Clone() (NeuralNet, error) {
	return b.CloneWithBatch(b.batchSize)
}

// CloneWithBatch clones a boundedMLP to a new graph with a new input
// batch size
func (b *boundedMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, b.numInputs),
		G.WithName("state"),
		G.WithInit(G.Zeroes()),
	)

	network := &boundedMLP{
		mlp: mlp{
			g:           graph,
			layers:      b.cloneLayersTo(graph),
			inputs:      []*G.Node{input},
			numOutputs:  b.numOutputs,
			numInputs:   b.numInputs,
			batchSize:   batchSize,
			hiddenSizes: b.hiddenSizes,
			biases:      b.biases,
			activations: b.activations,
		},
		lowerBound: b.lowerBound,
		upperBound: b.upperBound,
	}

	if err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	return network, nil
}

// LowerBound returns the element-wise lower bound on the network's
// outputs
func (b *boundedMLP) LowerBound() []float64 {
	return b.lowerBound
}

// UpperBound returns the element-wise upper bound on the network's
// outputs
func (b *boundedMLP) UpperBound() []float64 {
	return b.upperBound
}

// GobEncode implements the gob.GobEncoder interface
func (b *boundedMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// The final squashed layer is reconstructed by NewBoundedMLP, so
	// only the constructor-form architecture is stored
	numHidden := len(b.hiddenSizes) - 1
	err := encodeAll(enc, b.numInputs, b.batchSize,
		b.hiddenSizes[:numHidden], b.biases[:numHidden],
		b.activations[:numHidden], b.lowerBound, b.upperBound)
	if err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}

	if err := b.encodeLayers(enc); err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (b *boundedMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numInputs, batchSize int
	var hiddenSizes []int
	var biases []bool
	var activations []*Activation
	var lowerBound, upperBound []float64

	err := decodeAll(dec, &numInputs, &batchSize, &hiddenSizes, &biases,
		&activations, &lowerBound, &upperBound)
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	newNet, err := NewBoundedMLP(numInputs, batchSize, G.NewGraph(),
		hiddenSizes, biases, activations, G.Zeroes(), lowerBound, upperBound)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new network: %v",
			err)
	}
	newMLP := newNet.(*boundedMLP)

	if err := newMLP.decodeLayers(dec); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	*b = *newMLP
	return nil
}
