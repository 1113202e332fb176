package board

import "github.com/pkg/errors"

// Key is the immutable, row-major encoding of a board: one of 'X', 'O' or '-'
// per cell. It is the only value-table map key.
type Key string

const keyLen = Size * Size

// Encode maps a board to its key. Equal boards always give equal keys.
func Encode(b Board) Key {
	buf := make([]byte, keyLen)
	for i, c := range Actions {
		buf[i] = markSymbol(b[c.Row][c.Col])
	}
	return Key(buf)
}

// Key is shorthand for Encode(b).
func (b Board) Key() Key {
	return Encode(b)
}

// ParseKey validates s as a state key.
func ParseKey(s string) (Key, error) {
	if len(s) != keyLen {
		return "", errors.Errorf("state key %q must have %d symbols", s, keyLen)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'X', 'O', '-':
		default:
			return "", errors.Errorf("state key %q: invalid symbol %q at %d", s, s[i], i)
		}
	}
	return Key(s), nil
}

// Board decodes a key produced by Encode or accepted by ParseKey.
func (k Key) Board() Board {
	var b Board
	for i, c := range Actions {
		if i >= len(k) {
			break
		}
		switch k[i] {
		case 'X':
			b[c.Row][c.Col] = X
		case 'O':
			b[c.Row][c.Col] = O
		}
	}
	return b
}

func markSymbol(m Mark) byte {
	switch m {
	case X:
		return 'X'
	case O:
		return 'O'
	default:
		return '-'
	}
}
