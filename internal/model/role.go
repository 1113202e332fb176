package model

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Role is one of the two trained agents. Attack plays X and moves first,
// Defence plays O.
type Role int8

const (
	Attack Role = iota
	Defence
)

var Roles = [2]Role{Attack, Defence}

// ParseRole maps a strategy label to a Role, rejecting anything else with
// ErrUnknownStrategy.
func ParseRole(label string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "attack", "offence", "offense":
		return Attack, nil
	case "defence", "defense":
		return Defence, nil
	default:
		return Attack, errors.Wrapf(ErrUnknownStrategy, "%q", label)
	}
}

// RoleForMark is the inverse of Role.Mark.
func RoleForMark(m board.Mark) (Role, bool) {
	switch m {
	case board.X:
		return Attack, true
	case board.O:
		return Defence, true
	default:
		return Attack, false
	}
}

func (r Role) String() string {
	if r == Defence {
		return "defence"
	}
	return "attack"
}

func (r Role) Mark() board.Mark {
	if r == Defence {
		return board.O
	}
	return board.X
}

func (r Role) Opponent() Role {
	if r == Defence {
		return Attack
	}
	return Defence
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
