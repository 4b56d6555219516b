package expreplay

import (
	"fmt"
	"math/rand"
)

// SelectorType describes the sampling strategies that are available
type SelectorType string

const (
	// Uniform draws samples uniformly at random from the buffer
	Uniform SelectorType = "uniform"

	// Fifo draws the oldest samples in the buffer
	Fifo SelectorType = "fifo"
)

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects the indices at which data should be sampled from
	// the experience replay buffer
	choose(c *cache) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int
}

// CreateSelector is a factory method for creating a Selector of the
// given type
func CreateSelector(t SelectorType, batchSize int,
	seed int64) (Selector, error) {
	switch t {
	case Uniform:
		return NewUniformSelector(batchSize, seed), nil
	case Fifo:
		return NewFifoSelector(batchSize), nil
	default:
		return nil, fmt.Errorf("createselector: no such selector type "+
			"(%v)", t)
	}
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data
// uniformly randomly from an experience replay buffer
func NewUniformSelector(samples int, seed int64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the
// buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer. Indices are drawn without replacement, so a batch never
// contains the same stored transition twice.
func (u *uniformSelector) choose(c *cache) []int {
	n := u.BatchSize()
	if n > c.Capacity() {
		n = c.Capacity()
	}

	return u.rng.Perm(c.Capacity())[:n]
}

// fifoSelector is a Selector which selects the oldest data in an
// experience replay buffer first
type fifoSelector struct {
	samples int
}

// NewFifoSelector returns a new Selector which draws the oldest data
// from an experience replay buffer
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the
// buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose selects the indices of the oldest data in the buffer
func (f *fifoSelector) choose(c *cache) []int {
	return c.insertOrder(f.BatchSize())
}
