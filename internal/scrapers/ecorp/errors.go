package ecorp

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeTimeout means the anti-bot challenge did not clear within its bound.
	ErrChallengeTimeout = errors.New("challenge did not clear")
	// ErrNoResults means the search did not produce a result link.
	ErrNoResults = errors.New("no search results")
	// ErrIncompleteRecord means the detail page was extracted but carries no control number.
	ErrIncompleteRecord = errors.New("record has no control number")
	// ErrAttemptsExhausted is returned by Driver.Run once every attempt has failed.
	ErrAttemptsExhausted = errors.New("all attempts failed")
)

// Stage is the step of an attempt that was running when it failed.
type Stage string

const (
	StageOpen            Stage = "open"
	StageNavigate        Stage = "navigate"
	StageSearchChallenge Stage = "search_challenge"
	StageSearch          Stage = "search"
	StageResults         Stage = "results"
	StageDetailChallenge Stage = "detail_challenge"
	StageExtract         Stage = "extract"
)

// AttemptError wraps whatever ended a single attempt.
type AttemptError struct {
	Attempt int
	Stage   Stage
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d: %s: %v", e.Attempt, e.Stage, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}
