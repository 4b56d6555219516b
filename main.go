package main

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/quadrl/agent/nonlinear/continuous/ddpg"
	"github.com/samuelfneumann/quadrl/environment"
	"github.com/samuelfneumann/quadrl/environment/quadsim"
	"github.com/samuelfneumann/quadrl/experiment"
	"github.com/samuelfneumann/quadrl/experiment/checkpointer"
	"github.com/samuelfneumann/quadrl/experiment/tracker"
)

func main() {
	var seed uint64 = 192382

	// Create the environment. The quadcopter starts each episode at a
	// random position near the target hover height with zero velocity.
	horizontal := r1.Interval{Min: -10.0, Max: 10.0}
	vertical := r1.Interval{Min: 1.0, Max: 20.0}
	starter := environment.NewUniformStarter([]r1.Interval{horizontal,
		horizontal, vertical}, seed)

	task := quadsim.NewHover(10.0, 0.5)
	quad, _, err := quadsim.New(task, starter, 1.0, 500)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}

	// Create the learning algorithm. The agent observes only the
	// quadcopter's position and controls only its linear force; the
	// remaining dimensions of the environment's observation and
	// action spaces are hidden from the agent.
	config := ddpg.NewDefaultConfig([]int{0, 1, 2}, []int{0, 1, 2})
	agent, err := ddpg.New(quad, config, int64(seed))
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}

	// Track episodic returns and per-episode statistics
	stats, err := tracker.NewEpisodeStats("./stats.csv")
	if err != nil {
		log.Fatalf("could not create stats file: %v", err)
	}
	trackers := []tracker.Tracker{tracker.NewReturn("./data.bin"), stats}

	// Checkpoint the agent's network weights periodically
	checkpointers := []checkpointer.Checkpointer{
		checkpointer.NewNStep(10_000, agent,
			checkpointer.FileTimer("./ddpg", ".bin")),
	}

	// Experiment
	e := experiment.NewOnline(quad, agent, 100_000, trackers, checkpointers)
	if err := e.Run(); err != nil {
		log.Fatalf("experiment failed: %v", err)
	}
	e.Save()

	data := tracker.LoadData("./data.bin")
	if len(data) > 10 {
		data = data[len(data)-10:]
	}
	fmt.Println(data)
}
