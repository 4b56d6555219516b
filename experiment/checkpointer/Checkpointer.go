// Package checkpointer implements functionality for saving agent
// state periodically during an experiment
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/quadrl/timestep"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}

// Load restores a previously checkpointed object from the file at
// filename into the given Serializable.
func Load(filename string, into Serializable) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("load: could not read checkpoint: %v", err)
	}
	if err := into.GobDecode(data); err != nil {
		return fmt.Errorf("load: could not decode checkpoint: %v", err)
	}
	return nil
}
