package engine

import "errors"

// Engine errors. Every fallible transition reports failure through one
// of these; normal in-progress mutations never fail.
var (
	ErrNoQuestions    = errors.New("test has no questions")
	ErrNotInProgress  = errors.New("attempt is not in progress")
	ErrAlreadyStarted = errors.New("an attempt is already in progress")
	ErrBadSnapshot    = errors.New("snapshot does not match the test")
)
