package conversation

import "errors"

var (
	// ErrInvalidIndex is returned by manual removal when the index is out of range.
	ErrInvalidIndex = errors.New("conversation: invalid message index")

	// ErrBudgetExceeded reports that the initial messages did not fit the
	// token budget and were discarded.
	ErrBudgetExceeded = errors.New("conversation: token budget exceeded")
)
