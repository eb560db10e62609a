package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotOpen     = errors.New("session is not open")
	ErrAlreadyJoined      = errors.New("player already joined")
	ErrNotInSession       = errors.New("player is not in session")
	ErrPlayerNotEligible  = errors.New("player is not eligible")
	ErrSessionNotFormed   = errors.New("session teams are not formed")
	ErrAlreadyReported    = errors.New("session result already reported")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrInvalidSide        = errors.New("invalid winning side")
	ErrNoFormedSession    = errors.New("no formed session awaiting a result")

	// Collaborator failures. The session is left untouched and the whole
	// operation may be retried.
	ErrLookupTimeout = errors.New("membership lookup timed out")
	ErrLookupFailed  = errors.New("membership lookup failed")
)

type InvalidCapacityError struct {
	Capacity int
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("invalid capacity %d: must be even and between %d and %d", e.Capacity, MinCapacity, MaxCapacity)
}
