package types

import "errors"

// Allocation failure taxonomy. ErrInsufficientCapacity is a normal
// user-facing outcome; the seat errors indicate the ledger refused a
// bind and are only expected from direct seat-move requests.
var (
	ErrInsufficientCapacity = errors.New("not enough free seats")
	ErrSeatConflict         = errors.New("seat is already assigned to another reservation")
	ErrSeatInvalid          = errors.New("seat is blocked or does not exist")
	ErrConcurrencyConflict  = errors.New("conflicting concurrent update, retry")
)
