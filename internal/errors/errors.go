// Package errors defines the error taxonomy shared by the digest pipeline.
// Handlers use the codes to decide whether a failure is reported to the user,
// retried, or only logged.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown    = "UNKNOWN"
	CodeValidation = "VALIDATION" // malformed digest parameter, never retried
	CodeBlocked    = "BLOCKED"    // provider declined to answer, never retried
	CodeUpstream   = "UPSTREAM"   // transient LLM/send failure, retry-governed
	CodeDatabase   = "DATABASE"   // store insert/query failure
	CodeContent    = "CONTENT"    // malformed payload, message discarded
)

// ApplicationError is the interface implemented by all typed errors below.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic coded application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *Error) Code() string { return e.code }

func (e *Error) Unwrap() error { return e.err }

// Code returns the application error code for err, or CodeUnknown if err
// does not carry one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeUnknown
}

// ValidationError reports a malformed user-supplied digest parameter.
// It names the offending parameter so handlers can echo it back.
type ValidationError struct {
	base  Error
	Param string
}

func (e *ValidationError) Error() string { return e.base.Error() }

func (e *ValidationError) Code() string { return e.base.Code() }

func (e *ValidationError) Unwrap() error { return e.base.Unwrap() }

func NewValidationError(param, message string) error {
	return &ValidationError{
		base:  Error{code: CodeValidation, message: fmt.Sprintf("%s: %s", param, message)},
		Param: param,
	}
}

// BlockedError reports that the LLM provider declined to answer.
// Reason carries the provider's stated block reason for the user.
type BlockedError struct {
	base   Error
	Reason string
}

func (e *BlockedError) Error() string { return e.base.Error() }

func (e *BlockedError) Code() string { return e.base.Code() }

func (e *BlockedError) Unwrap() error { return e.base.Unwrap() }

func NewBlockedError(reason string) error {
	return &BlockedError{
		base:   Error{code: CodeBlocked, message: fmt.Sprintf("blocked by provider: %s", reason)},
		Reason: reason,
	}
}

// UpstreamError reports a transient failure talking to the LLM or send API.
type UpstreamError struct {
	base Error
}

func (e *UpstreamError) Error() string { return e.base.Error() }

func (e *UpstreamError) Code() string { return e.base.Code() }

func (e *UpstreamError) Unwrap() error { return e.base.Unwrap() }

func NewUpstreamError(message string, cause error) error {
	return &UpstreamError{base: Error{code: CodeUpstream, message: message, err: cause}}
}

// DatabaseError reports a store insert or query failure.
type DatabaseError struct {
	base Error
}

func (e *DatabaseError) Error() string { return e.base.Error() }

func (e *DatabaseError) Code() string { return e.base.Code() }

func (e *DatabaseError) Unwrap() error { return e.base.Unwrap() }

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{base: Error{code: CodeDatabase, message: message, err: cause}}
}

// ContentError reports a malformed inbound payload, e.g. an image that
// fails JPEG signature validation. The triggering message is discarded.
type ContentError struct {
	base Error
}

func (e *ContentError) Error() string { return e.base.Error() }

func (e *ContentError) Code() string { return e.base.Code() }

func (e *ContentError) Unwrap() error { return e.base.Unwrap() }

func NewContentError(message string) error {
	return &ContentError{base: Error{code: CodeContent, message: message}}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsBlocked reports whether err is a BlockedError, returning the provider
// reason when it is.
func IsBlocked(err error) (string, bool) {
	var b *BlockedError
	if errors.As(err, &b) {
		return b.Reason, true
	}
	return "", false
}
