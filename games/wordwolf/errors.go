/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import "errors"

var (
	ErrTooFewPlayers     = errors.New("too few players")
	ErrDuplicatePlayer   = errors.New("duplicate player name")
	ErrMissingWords      = errors.New("missing words")
	ErrMinorityCount     = errors.New("minority count out of range")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNoVoteSelected    = errors.New("no vote selected")
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrDiscussionMinutes = errors.New("discussion minutes out of range")
	ErrCardNotFound      = errors.New("card not found")

	// ErrNotAvailable is returned when there is no theme to choose from.
	// It is not a ValidationError: the caller degrades to an empty pair.
	ErrNotAvailable = errors.New("no themes available")
)

// ValidationError carries a user-facing message for a recoverable guard failure.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, message string) error {
	return &ValidationError{Err: err, Message: message}
}

// IsValidation reports whether err is a recoverable validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
