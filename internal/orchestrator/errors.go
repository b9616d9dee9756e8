package orchestrator

import "errors"

var (
	// ErrAborted is returned when the human chose to end the conversation.
	ErrAborted = errors.New("orchestrator: aborted by user")

	// ErrRetriesExhausted is returned when a bounded retry policy ran out of
	// attempts on transient failures.
	ErrRetriesExhausted = errors.New("orchestrator: retries exhausted")

	// ErrNoUserMessage is returned when a turn starts on a history whose
	// last message cannot open a conversation.
	ErrNoUserMessage = errors.New("orchestrator: history has no message to answer")
)
