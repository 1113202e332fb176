package model

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidRunID = errors.New("invalid run id")

// ValidateRunID rejects ids that cannot be used as a single path element.
// Run ids name artifact directories and checkpoint files.
func ValidateRunID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.Wrap(ErrInvalidRunID, "run id is required")
	case id == "." || strings.Contains(id, ".."):
		return errors.Wrapf(ErrInvalidRunID, "%q", id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return errors.Wrapf(ErrInvalidRunID, "%q contains a path separator", id)
	}
	return nil
}
