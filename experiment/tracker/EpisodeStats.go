package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	ts "github.com/samuelfneumann/quadrl/timestep"
)

// Column names of the CSV file written by an EpisodeStats Tracker
var statsHeader = []string{"episode", "total_reward"}

// EpisodeStats tracks per-episode statistics in an experiment and
// writes them to a CSV file. The file holds one header row followed
// by one row per completed episode, recording the episode number and
// the total reward accumulated over that episode.
//
// Unlike other Trackers, EpisodeStats writes each row as soon as the
// episode completes, so that the statistics of a running experiment
// can be monitored from the file. Save() only closes the file.
type EpisodeStats struct {
	file   *os.File
	writer *csv.Writer

	episode       int
	currentReturn float64
}

// NewEpisodeStats creates and returns a new *EpisodeStats Tracker
// which writes its statistics to the CSV file at filename. The header
// row is written immediately.
func NewEpisodeStats(filename string) (*EpisodeStats, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("newepisodestats: could not create stats "+
			"file: %v", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(statsHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("newepisodestats: could not write stats "+
			"header: %v", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("newepisodestats: could not write stats "+
			"header: %v", err)
	}

	return &EpisodeStats{
		file:    file,
		writer:  writer,
		episode: 1,
	}, nil
}

// Filename returns the name of the file the Tracker writes to
func (e *EpisodeStats) Filename() string {
	return e.file.Name()
}

// Track accumulates the reward seen on a timestep into the running
// episode total. When the last timestep of an episode is tracked, the
// episode's statistics are written to the CSV file and the running
// total is reset for the next episode.
func (e *EpisodeStats) Track(step ts.TimeStep) {
	e.currentReturn += step.Reward

	if !step.Last() {
		return
	}

	row := []string{
		strconv.Itoa(e.episode),
		strconv.FormatFloat(e.currentReturn, 'f', -1, 64),
	}
	if err := e.writer.Write(row); err != nil {
		panic(fmt.Sprintf("track: could not write stats row: %v", err))
	}
	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		panic(fmt.Sprintf("track: could not write stats row: %v", err))
	}

	e.episode++
	e.currentReturn = 0.0
}

// Save closes the Tracker's CSV file. All statistics rows have
// already been written when their episodes completed.
func (e *EpisodeStats) Save() {
	e.file.Close()
}
