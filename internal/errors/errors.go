// Package errors provides standardized error codes for the bridge.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (server, protocol, session)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by host automation rules for
// programmatic error handling. Human-readable messages are provided
// alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// Server domain - listener and connection lifecycle errors
	CodeServerBindFailed    = "server.bind_failed"    // Listening address unavailable
	CodeServerUpgradeFailed = "server.upgrade_failed" // WebSocket upgrade failed
	CodeServerSendFailed    = "server.send_failed"    // Failed to write a frame to the peer

	// Protocol domain - wire message errors
	CodeProtocolMalformed    = "protocol.malformed"     // Undecodable inbound frame
	CodeProtocolMissingField = "protocol.missing_field" // Event lacks a field its tag requires
	CodeProtocolEncodeFailed = "protocol.encode_failed" // Command could not be serialized

	// Session domain - peer slot errors
	CodeSessionNoPeer = "session.no_peer" // Send attempted with no attached peer

	// General domain - catch-all
	CodeUnknown = "error.unknown" // Unknown error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "protocol.malformed")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// BindFailed creates a "server.bind_failed" error.
// This is the only server-start error that propagates to the caller;
// the host uses it to report a failed plugin start.
func BindFailed(addr string, cause error) *CodedError {
	return Wrap(CodeServerBindFailed, fmt.Sprintf("failed to listen on %s", addr), cause)
}

// Malformed creates a "protocol.malformed" error.
// This indicates an inbound frame that is not valid JSON or lacks a
// command field. The frame is logged and dropped, never fatal.
func Malformed(reason string, cause error) *CodedError {
	return Wrap(CodeProtocolMalformed, reason, cause)
}

// MissingField creates a "protocol.missing_field" error.
// This indicates a decodable event whose tag requires a data field
// (e.g. data.url) that is absent. The event is logged and dropped.
func MissingField(field, tag string) *CodedError {
	return New(CodeProtocolMissingField, fmt.Sprintf("event %q has no %s field", tag, field))
}

// NoPeer creates a "session.no_peer" error.
// Callers sending commands treat this as a documented silent drop,
// not a failure they surface.
func NoPeer() *CodedError {
	return New(CodeSessionNoPeer, "no peer attached")
}

// SendFailed creates a "server.send_failed" error.
func SendFailed(cause error) *CodedError {
	return Wrap(CodeServerSendFailed, "failed to write frame to peer", cause)
}
