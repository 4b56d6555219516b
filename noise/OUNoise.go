// Package noise implements stochastic processes for exploration in
// continuous action spaces
package noise

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Default Ornstein-Uhlenbeck process parameters
const (
	DefaultMu    float64 = 0.0
	DefaultTheta float64 = 0.15
	DefaultSigma float64 = 0.3
)

// OUNoise implements an Ornstein-Uhlenbeck process for generating
// temporally correlated exploration noise. Each call to Sample()
// advances the process state by
//
//	x <- x + theta*(mu - x) + sigma*xi
//
// where xi is a vector of independent standard normal draws, mu is
// the long-run process mean, theta the speed of mean reversion, and
// sigma the noise magnitude.
//
// The process state persists across episodes unless Reset() is called
// explicitly.
type OUNoise struct {
	mu    float64
	theta float64
	sigma float64

	state []float64
	dist  distuv.Normal
}

// Config describes a configuration of an Ornstein-Uhlenbeck process
type Config struct {
	Mu    float64
	Theta float64
	Sigma float64
}

// NewDefaultConfig returns a Config with the default process
// parameters
func NewDefaultConfig() Config {
	return Config{
		Mu:    DefaultMu,
		Theta: DefaultTheta,
		Sigma: DefaultSigma,
	}
}

// Create creates and returns the OUNoise that the Config describes,
// generating perturbations of the given dimensionality
func (c Config) Create(dims int, seed uint64) (*OUNoise, error) {
	return NewOUNoise(dims, c.Mu, c.Theta, c.Sigma, seed)
}

// NewOUNoise returns a new Ornstein-Uhlenbeck process over vectors of
// the given dimensionality, with its state initialized to mu.
func NewOUNoise(dims int, mu, theta, sigma float64,
	seed uint64) (*OUNoise, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("newounoise: dims must be > 0 \n\thave(%v)",
			dims)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("newounoise: sigma must be >= 0 "+
			"\n\thave(%v)", sigma)
	}

	source := rand.NewSource(seed)
	dist := distuv.Normal{
		Mu:    0.0,
		Sigma: 1.0,
		Src:   source,
	}

	noise := &OUNoise{
		mu:    mu,
		theta: theta,
		sigma: sigma,
		state: make([]float64, dims),
		dist:  dist,
	}
	noise.Reset()

	return noise, nil
}

// Dims returns the dimensionality of the perturbations generated by
// the process
func (o *OUNoise) Dims() int {
	return len(o.state)
}

// Reset sets the internal process state back to the long-run mean mu
func (o *OUNoise) Reset() {
	for i := range o.state {
		o.state[i] = o.mu
	}
}

// Sample advances the process by one step and returns a copy of the
// new process state
func (o *OUNoise) Sample() []float64 {
	for i := range o.state {
		o.state[i] += o.theta*(o.mu-o.state[i]) + o.sigma*o.dist.Rand()
	}

	sample := make([]float64, len(o.state))
	copy(sample, o.state)
	return sample
}
