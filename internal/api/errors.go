package api

import (
	"errors"
	"fmt"
)

// ErrNoChoices is returned when a chat response decodes cleanly but carries
// no choices to act on.
var ErrNoChoices = errors.New("no choices in chat response")

// ErrEmptyMessage is returned when an assistant message carries neither
// content nor tool calls. A valid message always has one of the two.
var ErrEmptyMessage = errors.New("assistant message has no content and no tool calls")

// TransportError wraps a network-level failure: the request never produced
// an HTTP response.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the remote API. Message is taken from
// the body's error envelope when one is present, otherwise the raw body.
type APIError struct {
	Status  int
	Type    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.Status)
}

// DecodeError is a 2xx response whose body could not be parsed into the
// expected shape. Raw keeps the body verbatim for diagnostics.
type DecodeError struct {
	Status int
	Raw    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errorEnvelope covers the two envelope shapes the API emits:
// {"type": ..., "message": ...} and {"error": {"message": ...}}.
type errorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Nested  struct {
		Message string `json:"message"`
	} `json:"error"`
}
