// Package network implements neural network function approximators
// using Gorgonia. Networks only populate a gorgonia.ExprGraph with
// their layers and forward pass. They hold no virtual machine of their
// own: an external VM must be run on a network's graph before its
// Output() can be read.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network function approximator. Networks are
// cloned, never shared: each role a network plays (action selection,
// training, update targets) gets its own clone on its own graph, and
// weights are kept consistent between clones with Set() or Polyak().
type NeuralNet interface {
	// Graph returns the computational graph that the network populates
	Graph() *G.ExprGraph

	// Clone clones the network to a new graph with the same batch size
	Clone() (NeuralNet, error)

	// CloneWithBatch clones the network to a new graph with a new
	// input batch size
	CloneWithBatch(int) (NeuralNet, error)

	// BatchSize returns the number of rows in a batch of inputs
	BatchSize() int

	// Features returns the total number of input features per sample
	Features() int

	// Outputs returns the number of values the network predicts per
	// sample
	Outputs() int

	// SetInput sets the value of the network's observation input node
	// before running the forward pass
	SetInput([]float64) error

	// Set sets the weights of the network to equal those of another
	// network with the same architecture
	Set(NeuralNet) error

	// Polyak sets the weights of the network to an exponential average
	// between its own weights and those of another network:
	//
	//	w_dest <- tau*w_source + (1-tau)*w_dest
	Polyak(NeuralNet, float64) error

	// Learnables returns the nodes of the graph that hold learnable
	// weights
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the value of the network's prediction after the
	// graph has been run
	Output() G.Value

	// Prediction returns the node of the computational graph that
	// stores the network's prediction
	Prediction() *G.Node
}

// ActionValueNet is a NeuralNet that predicts action values Q(s, a)
// from a state and an action input. The action enters the graph as a
// separate input node so that gradients of the prediction with respect
// to actions can be computed.
type ActionValueNet interface {
	NeuralNet

	// SetActions sets the value of the network's action input node
	SetActions([]float64) error

	// ActionInput returns the node of the computational graph at which
	// actions enter the network
	ActionInput() *G.Node

	// StateFeatures and ActionFeatures return the number of state and
	// action features per sample
	StateFeatures() int
	ActionFeatures() int
}
