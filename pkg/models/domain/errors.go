package domain

import (
	"errors"
	"fmt"
)

var ErrMissingDate = errors.New("missing date")

// RecordError reports a node record that cannot take part in a computation.
type RecordError struct {
	Node  string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("node %s: field %s: %v", e.Node, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
