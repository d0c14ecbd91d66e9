package signal

import (
	"github.com/roverops/sentinel/pkg/errors"
)

// Selector maps mission selector values to return waypoints. The table comes
// from configuration; any value outside it is invalid and selects nothing.
type Selector struct {
	table map[int]string
}

// NewSelector builds a selector from the configured table.
func NewSelector(table map[int]string) (*Selector, error) {
	if len(table) == 0 {
		return nil, errors.New(errors.CodeInvalidSelector, "selector table is empty", nil)
	}
	copied := make(map[int]string, len(table))
	for value, id := range table {
		copied[value] = id
	}
	return &Selector{table: copied}, nil
}

// Resolve maps a selector value to its waypoint id.
func (s *Selector) Resolve(value int) (string, error) {
	id, ok := s.table[value]
	if !ok {
		return "", errors.New(errors.CodeInvalidSelector, "selector maps to no waypoint", nil).
			WithContext("value", value).
			WithRecoverable(true)
	}
	return id, nil
}
