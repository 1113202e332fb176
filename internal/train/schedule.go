package train

import "math"

// ExplorationRate is the exploration probability for a 0-based episode index.
func ExplorationRate(episode int, epsMin, epsMax, decay float64) float64 {
	return epsMin + (epsMax-epsMin)*math.Exp(-decay*float64(episode))
}

// Epsilon is ExplorationRate with c's bounds.
func (c Config) Epsilon(episode int) float64 {
	return ExplorationRate(episode, c.EpsilonMin, c.EpsilonMax, c.DecayRate)
}

// IsCheckpoint reports whether 0-based episode closes an evaluation interval.
func (c Config) IsCheckpoint(episode int) bool {
	if c.CheckpointCount <= 0 {
		return false
	}
	if episode == c.Episodes-1 {
		return true
	}
	interval := c.Episodes / c.CheckpointCount
	if interval <= 0 {
		interval = 1
	}
	return (episode+1)%interval == 0
}
