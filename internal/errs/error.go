// Package errs contains the error taxonomy shared by the storage, service and transport layers.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the coarse error class callers branch on.
type Kind string

// Error kinds.
const (
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindTransient         Kind = "TRANSIENT"
	KindCascadeIncomplete Kind = "CASCADE_INCOMPLETE"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindInternal          Kind = "INTERNAL"
)

// Code is the machine-readable reason within a kind.
type Code string

// Error codes.
const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeForbidden               Code = "FORBIDDEN"
	CodeConditionFailed         Code = "CONDITION_FAILED"
	CodeVersionConflict         Code = "VERSION_CONFLICT"
	CodeAlreadyExists           Code = "ALREADY_EXISTS"
	CodeValidation              Code = "VALIDATION"
	CodeTransient               Code = "TRANSIENT"
	CodeUnauthenticated         Code = "UNAUTHENTICATED"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeRecipientNotFound       Code = "RECIPIENT_NOT_FOUND"
	CodeSelfShareNotAllowed     Code = "SELF_SHARE_NOT_ALLOWED"
	CodeCodeGenerationExhausted Code = "CODE_GENERATION_EXHAUSTED"
	CodeInviteNotFound          Code = "INVITE_NOT_FOUND"
	CodeInviteExpired           Code = "INVITE_EXPIRED"
	CodeInviteAlreadyUsed       Code = "INVITE_ALREADY_USED"
	CodeNotOwner                Code = "NOT_OWNER"
	CodeTargetIsCurrentOwner    Code = "TARGET_IS_CURRENT_OWNER"
	CodeOwnerChanged            Code = "OWNER_CHANGED"
	CodeInvalidLineItem         Code = "INVALID_LINE_ITEM"
	CodeCatalogUnavailable      Code = "CATALOG_UNAVAILABLE"
	CodeInvalidDateRange        Code = "INVALID_DATE_RANGE"
	CodeCatalogImmutable        Code = "CATALOG_IMMUTABLE"
	CodeCascadeIncomplete       Code = "CASCADE_INCOMPLETE"
)

// Error is a structured error with enough detail to render an actionable message.
type Error struct {
	Kind     Kind
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches by code when the target carries one, otherwise by kind.
// This lets errors.Is(err, ErrConflict) match every conflict while
// errors.Is(err, ErrInviteAlreadyUsed) matches only that reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind and code.
func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// With returns a copy of e carrying additional metadata (entity ids, constraint names).
func (e *Error) With(kv ...string) *Error {
	cp := *e
	cp.Metadata = make(map[string]string, len(e.Metadata)+len(kv)/2)
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		cp.Metadata[kv[i]] = kv[i+1]
	}
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Invalid builds an InvalidInput error with a formatted message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Code: CodeValidation, Message: "validation: " + fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// Meta returns the metadata attached to err, or nil for foreign errors.
func Meta(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
