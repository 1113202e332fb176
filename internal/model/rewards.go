package model

import "github.com/bartoszstec/tic-tac-toe/internal/board"

// RoleRewards is the reward shaping of one role. Step is paid after every
// non-terminal move the role makes; Win, Loss and Draw at the end of a game.
type RoleRewards struct {
	Step float64 `json:"step"`
	Win  float64 `json:"win"`
	Loss float64 `json:"loss"`
	Draw float64 `json:"draw"`
}

type RewardScheme struct {
	Attack  RoleRewards `json:"attack"`
	Defence RoleRewards `json:"defence"`
}

// DefaultRewards penalises the attacker for drawn-out play and rewards the
// defender for draws.
func DefaultRewards() RewardScheme {
	return RewardScheme{
		Attack:  RoleRewards{Step: -0.1, Win: 1, Loss: -1, Draw: 0},
		Defence: RoleRewards{Step: 0, Win: 1, Loss: -1, Draw: 1},
	}
}

func (s RewardScheme) For(r Role) RoleRewards {
	if r == Defence {
		return s.Defence
	}
	return s.Attack
}

// Step is the live-step reward of r.
func (s RewardScheme) Step(r Role) float64 {
	return s.For(r).Step
}

// Terminal is the end-of-game reward of r for outcome.
func (s RewardScheme) Terminal(r Role, outcome board.Outcome) float64 {
	rr := s.For(r)
	switch {
	case outcome == board.OutcomeDraw:
		return rr.Draw
	case outcome.Winner() == r.Mark():
		return rr.Win
	default:
		return rr.Loss
	}
}
