package reactions

import "errors"

var (
	// ErrNotFound indicates the target item or channel does not exist.
	ErrNotFound = errors.New("target not found")
	// ErrSelfSubscription indicates a user attempted to subscribe to their own channel.
	ErrSelfSubscription = errors.New("cannot subscribe to own channel")
	// ErrInvalidPolarity indicates a reaction request with an unknown polarity.
	ErrInvalidPolarity = errors.New("invalid reaction polarity")
	// ErrInconsistentState indicates an actor was observed in both reaction
	// sets at once. The engine never produces that state; seeing it means
	// something else corrupted the relation and the toggle is refused.
	ErrInconsistentState = errors.New("reaction state inconsistent")
)
