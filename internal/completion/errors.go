package completion

import (
	"errors"
	"fmt"
)

// Kind classifies a completion failure.
type Kind int

const (
	// KindConfiguration means the client cannot make requests at all.
	KindConfiguration Kind = iota + 1
	// KindTransport covers network failures and non-2xx responses.
	KindTransport
	// KindProtocol means the response arrived but could not be used.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

const (
	msgNoCredential   = "completion API key not configured; set OPENROUTER_API_KEY"
	msgInvalidFormat  = "invalid response format"
	msgUnexpected     = "an unexpected error occurred while communicating with the completion API"
	msgStatusTemplate = "completion request failed with status %d"
)

// Error is returned by Client for every failed request.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is a configuration failure.
func IsConfiguration(err error) bool { return hasKind(err, KindConfiguration) }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return hasKind(err, KindTransport) }

// IsProtocol reports whether err is a protocol failure.
func IsProtocol(err error) bool { return hasKind(err, KindProtocol) }

func hasKind(err error, k Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}
