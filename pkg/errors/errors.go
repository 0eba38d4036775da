// Package errors provides the unified error type and factory functions for
// FamilyScope.  Every layer (domain, application, infrastructure, interfaces)
// uses AppError as the single carrier for structured error information, which
// keeps HTTP responses, CLI output, logging and metrics labels consistent.
//
// The acquisition pipeline surfaces four failure classes, each mapped onto a
// code in codes.go:
//
//	InvalidIdentifier  → CodeInvalidIdentifier (PAT_003)
//	NotFound           → CodePatentNotFound    (PAT_001)
//	UpstreamError      → CodeUpstream          (PAT_005, carries Status)
//	ParseFailure       → CodeParseFailure      (PAT_006)
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stack capture
// ─────────────────────────────────────────────────────────────────────────────

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		// Trim standard-library noise to keep traces readable.
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout FamilyScope.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work across layers.
//
// Usage:
//
//	return errors.New(errors.CodePatentNotFound, "patent 10123456 not found")
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save family")
//	return errors.Upstream(503, "registry unavailable").WithDetail(body)
type AppError struct {
	// Code is the typed error code that uniquely identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (identifiers, upstream bodies) that
	// aids debugging.
	Detail string

	// Cause is the underlying error that triggered this AppError.
	Cause error

	// Status is the upstream HTTP status for CodeUpstream errors, zero when the
	// failure happened before a response was received.
	Status int

	// Stack contains the formatted call-stack captured at creation time.  It is
	// not included in Error() output.
	Stack string
}

// ─────────────────────────────────────────────────────────────────────────────
// error interface implementation
// ─────────────────────────────────────────────────────────────────────────────

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>: <cause>"; empty segments are omitted.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code.String(), e.Message)
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// CodeString returns the code as a plain string, letting packages that must
// not import pkg/errors (logging) label entries by code.
func (e *AppError) CodeString() string {
	return string(e.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with fmt.Sprintf formatting of the message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil so it can be used inline.
//
// When err is already an *AppError and code is CodeUnknown the original code
// (and upstream status) is preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	var status int
	var ae *AppError
	if errors.As(err, &ae) {
		if code == CodeUnknown {
			code = ae.Code
		}
		status = ae.Status
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Status:  status,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline taxonomy
// ─────────────────────────────────────────────────────────────────────────────

// InvalidIdentifier reports a raw patent identifier that normalized to nothing.
func InvalidIdentifier(raw string) *AppError {
	return &AppError{
		Code:    CodeInvalidIdentifier,
		Message: "patent identifier could not be normalized",
		Detail:  fmt.Sprintf("raw=%q", raw),
		Stack:   captureStack(1),
	}
}

// PatentNotFound reports a well-formed identifier with no registry match.
func PatentNotFound(number string) *AppError {
	return &AppError{
		Code:    CodePatentNotFound,
		Message: "patent not found in registry",
		Detail:  "patent_number=" + number,
		Stack:   captureStack(1),
	}
}

// Upstream reports a transport failure or non-2xx answer from an external
// source.  status is zero when no response was received.
func Upstream(status int, message string) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: message,
		Status:  status,
		Stack:   captureStack(1),
	}
}

// ParseFailure reports analysis output that did not contain a parseable JSON
// object.
func ParseFailure(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeParseFailure,
		Message: message,
		Cause:   cause,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
//
//	if errors.IsCode(err, errors.CodePatentNotFound) { ... }
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether any error in err's chain is an *AppError with
// CodeNotFound, CodePatentNotFound or CodeFamilyMemberNotFound.
func IsNotFound(err error) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			switch ae.Code {
			case CodeNotFound, CodePatentNotFound, CodeFamilyMemberNotFound:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsInvalidIdentifier reports whether err is an InvalidIdentifier failure.
func IsInvalidIdentifier(err error) bool { return IsCode(err, CodeInvalidIdentifier) }

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool { return IsCode(err, CodeUpstream) }

// IsParseFailure reports whether err is a ParseFailure.
func IsParseFailure(err error) bool { return IsCode(err, CodeParseFailure) }

// UpstreamStatus returns the HTTP status carried by the first AppError in
// err's chain that has one, or zero.
func UpstreamStatus(err error) int {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Status != 0 {
			return ae.Status
		}
		err = errors.Unwrap(err)
	}
	return 0
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factory functions for the most common error conditions
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
		Stack:   captureStack(1),
	}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidParam,
		Message: message,
		Stack:   captureStack(1),
	}
}

// InvalidState constructs a CodeEnrichmentStageInvalid AppError, used for
// enrichment state machine violations.
func InvalidState(message string) *AppError {
	return &AppError{
		Code:    ErrCodeEnrichmentStageInvalid,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Conflict constructs a CodeConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Stack:   captureStack(1),
	}
}

// RateLimit constructs a CodeRateLimit AppError.
func RateLimit(message string) *AppError {
	return &AppError{
		Code:    CodeRateLimit,
		Message: message,
		Stack:   captureStack(1),
	}
}

//Personal.AI order the ending
