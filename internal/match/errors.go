package match

import "errors"

// ErrNotFound is returned when a match does not exist
var ErrNotFound = errors.New("match not found")

// ErrInvalidTransition is returned when a control action is not valid
// for the match's current status
var ErrInvalidTransition = errors.New("invalid status transition")
