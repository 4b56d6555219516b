package noise

import (
	"math"
	"testing"
)

func TestSampleDeterministicBySeed(t *testing.T) {
	config := NewDefaultConfig()

	noise1, err := config.Create(3, 42)
	if err != nil {
		t.Fatalf("could not create noise process: %v", err)
	}
	noise2, err := config.Create(3, 42)
	if err != nil {
		t.Fatalf("could not create noise process: %v", err)
	}

	for i := 0; i < 10; i++ {
		sample1 := noise1.Sample()
		sample2 := noise2.Sample()
		for j := range sample1 {
			if sample1[j] != sample2[j] {
				t.Fatalf("identically seeded processes diverged at step "+
					"%v: %v != %v", i, sample1[j], sample2[j])
			}
		}
	}
}

func TestSampleEvolvesState(t *testing.T) {
	noise, err := NewOUNoise(2, 0.0, 0.15, 0.3, 19)
	if err != nil {
		t.Fatalf("could not create noise process: %v", err)
	}

	// Successive samples must differ: the process state drifts
	// towards the mean and is perturbed at every step
	first := noise.Sample()
	second := noise.Sample()
	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
		}
	}
	if same {
		t.Error("process state did not evolve between samples")
	}

	// Samples must be copies of the internal state, not aliases
	first[0] = math.Inf(1)
	third := noise.Sample()
	if math.IsInf(third[0], 1) {
		t.Error("sample aliases internal process state")
	}
}

func TestReset(t *testing.T) {
	mu := 1.5
	noise, err := NewOUNoise(3, mu, 0.15, 0.3, 23)
	if err != nil {
		t.Fatalf("could not create noise process: %v", err)
	}

	for i := 0; i < 5; i++ {
		noise.Sample()
	}
	noise.Reset()

	// After a reset the internal state sits at mu, so the next sample
	// is a single step of the process from its long-run mean
	sample := noise.Sample()
	for i := range sample {
		deviation := math.Abs(sample[i] - mu)
		if deviation > 10*0.3 {
			t.Errorf("sample after reset too far from mean: %v", sample[i])
		}
	}
}

func TestNewOUNoiseInvalidArguments(t *testing.T) {
	if _, err := NewOUNoise(0, 0.0, 0.15, 0.3, 1); err == nil {
		t.Error("expected error for non-positive dimensionality")
	}
	if _, err := NewOUNoise(2, 0.0, 0.15, -0.3, 1); err == nil {
		t.Error("expected error for negative sigma")
	}
}
