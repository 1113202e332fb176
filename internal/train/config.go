// Package train runs tabular Q-learning self-play between the attack and
// defence roles.
package train

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
)

type Config struct {
	RunID        string             `json:"run_id"`
	Episodes     int                `json:"episodes"`
	LearningRate float64            `json:"learning_rate"`
	Discount     float64            `json:"discount_factor"`
	EpsilonMax   float64            `json:"epsilon_max"`
	EpsilonMin   float64            `json:"epsilon_min"`
	DecayRate    float64            `json:"decay_rate"`
	Rewards      model.RewardScheme `json:"rewards"`
	// CheckpointCount is how many evenly spaced evaluations to take; the
	// final episode is always evaluated. Zero disables checkpoints.
	CheckpointCount int `json:"checkpoint_count"`
	EvalGames       int `json:"eval_games"`
	// Seed drives self-play. EvalSeed drives checkpoint evaluation and never
	// touches the training stream.
	Seed     uint64 `json:"seed"`
	EvalSeed uint64 `json:"eval_seed"`
}

func DefaultConfig() Config {
	return Config{
		Episodes:        100000,
		LearningRate:    0.1,
		Discount:        0.9,
		EpsilonMax:      1.0,
		EpsilonMin:      0.01,
		DecayRate:       0.0001,
		Rewards:         model.DefaultRewards(),
		CheckpointCount: 10,
		EvalGames:       1000,
		Seed:            1,
		EvalSeed:        2,
	}
}

func (c Config) Validate() error {
	if c.RunID != "" {
		if err := model.ValidateRunID(c.RunID); err != nil {
			return err
		}
	}
	switch {
	case c.Episodes <= 0:
		return errors.Errorf("episodes must be positive, got %d", c.Episodes)
	case !inUnit(c.LearningRate) || c.LearningRate == 0:
		return errors.Errorf("learning rate must be in (0,1], got %g", c.LearningRate)
	case !inUnit(c.Discount):
		return errors.Errorf("discount factor must be in [0,1], got %g", c.Discount)
	case !inUnit(c.EpsilonMin) || !inUnit(c.EpsilonMax):
		return errors.Errorf("epsilon bounds must be in [0,1], got min=%g max=%g", c.EpsilonMin, c.EpsilonMax)
	case c.EpsilonMin > c.EpsilonMax:
		return errors.Errorf("epsilon min %g exceeds max %g", c.EpsilonMin, c.EpsilonMax)
	case c.DecayRate < 0 || math.IsNaN(c.DecayRate):
		return errors.Errorf("decay rate must be non-negative, got %g", c.DecayRate)
	case c.CheckpointCount < 0:
		return errors.Errorf("checkpoint count must be non-negative, got %d", c.CheckpointCount)
	case c.CheckpointCount > 0 && c.EvalGames <= 0:
		return errors.Errorf("eval games must be positive when checkpoints are enabled, got %d", c.EvalGames)
	}
	return nil
}

func (c Config) Hyperparameters() model.Hyperparameters {
	return model.Hyperparameters{
		LearningRate: c.LearningRate,
		Discount:     c.Discount,
		EpsilonMax:   c.EpsilonMax,
		EpsilonMin:   c.EpsilonMin,
		DecayRate:    c.DecayRate,
		Episodes:     c.Episodes,
	}
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
