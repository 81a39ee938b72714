package nodes

import "errors"

var (
	ErrInvalidInput  = errors.New("user input is empty")
	ErrStateMissing  = errors.New("graph state is missing")
	ErrRouteMissing  = errors.New("routing decision is missing")
	ErrOutputMissing = errors.New("final output is missing")
)
