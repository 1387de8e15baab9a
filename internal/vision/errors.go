package vision

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Kind classifies analysis failures. The zero value is KindTransport so that
// anything unrecognised is reported as a service failure.
type Kind int

const (
	KindTransport Kind = iota
	KindConfiguration
	KindAuth
	KindFormat
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindFormat:
		return "format"
	case KindValidation:
		return "validation"
	default:
		return "transport"
	}
}

// Backends wrap these with %w so the analyzer can classify them.
var (
	ErrMissingCredential = errors.New("credential not configured")
	ErrUnauthorized      = errors.New("credential rejected")
)

const (
	msgConfiguration = "The AI service API key is not configured. Please set the API key environment variable and restart."
	msgAuth          = "The AI service API key is invalid or missing. Please check your configuration."
	msgTransport     = "Failed to get analysis from AI. Please check your connection or API key and try again."
	msgFormat        = "The AI's response was not in the expected recipe format. Please try again or use a clearer photo."
)

// excerptLimit caps how much of a raw reply reaches an error message.
const excerptLimit = 200

// Error is a classified failure. Error() is safe to show to users; the
// underlying cause is only reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a local, pre-request error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func formatError(raw string, cause error) *Error {
	return &Error{
		Kind:    KindFormat,
		Message: fmt.Sprintf("%s Raw response: %s", msgFormat, excerpt(raw)),
		Err:     cause,
	}
}

// Classify maps any error onto the taxonomy. *Error values pass through.
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, ErrMissingCredential):
		return &Error{Kind: KindConfiguration, Message: msgConfiguration, Err: err}
	case errors.Is(err, ErrUnauthorized):
		return &Error{Kind: KindAuth, Message: msgAuth, Err: err}
	default:
		return &Error{Kind: KindTransport, Message: msgTransport, Err: err}
	}
}

// excerpt returns at most excerptLimit runes of s, marking truncation.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:excerptLimit]) + "..."
}
