/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
)

// ErrorKind classifies caller-correctable failures. Anything outside these
// kinds is an internal failure and must not leak store details to the caller.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
)

// Error is a tagged domain error surfaced verbatim at the API boundary.
type Error struct {
	Kind    ErrorKind
	Field   string // offending field for invalid input, empty otherwise
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes errors.Is match on kind so callers can compare against the
// exported sentinels below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
)

func unauthorizedError(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func invalidInputError(field, message string) error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: message}
}

func notFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func conflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf extracts the domain error kind, or "" for internal failures.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
