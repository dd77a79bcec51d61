package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotInRoom        = errors.New("not in a room")
	ErrWriteFailed      = errors.New("store write failed")
	ErrSourceLoad       = errors.New("audio source failed to load")
	ErrBadPosition      = errors.New("invalid seek position")
)

// AuxError wraps an error with a user-friendly suggestion.
type AuxError struct {
	Err        error
	Suggestion string
}

func (e *AuxError) Error() string {
	return e.Err.Error()
}

func (e *AuxError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &AuxError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var auxErr *AuxError
	if errors.As(err, &auxErr) && auxErr.Suggestion != "" {
		return auxErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrPermissionDenied) || strings.Contains(errStr, "permission denied") {
		return "Only the room host can do this. Ask the host, or have them run 'auxroom host <your-id>'"
	}

	if errors.Is(err, ErrRoomNotFound) || strings.Contains(errStr, "room not found") {
		return "Check the room code, or create a new room with 'auxroom create'"
	}

	if errors.Is(err, ErrUserNotFound) {
		return "Run 'auxroom members' to see who is in the room"
	}

	if errors.Is(err, ErrNotInRoom) {
		return "Join a room first with 'auxroom join <room>'"
	}

	if errors.Is(err, ErrWriteFailed) || strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") {
		return "Check that Redis is reachable at the address in your config"
	}

	if errors.Is(err, ErrSourceLoad) {
		return "The track could not be opened on this device. Others in the room may still hear it"
	}

	if errors.Is(err, ErrBadPosition) {
		return "Seek positions must be within the track, e.g. 'auxroom seek 1:30'"
	}

	return ""
}

// WriteFailure tags a failed store write with ErrWriteFailed while keeping
// the cause visible in the message.
func WriteFailure(op string, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrWriteFailed, cause)
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
