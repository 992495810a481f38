package errs

// Kind sentinels: errors.Is(err, ErrNotFound) matches any NotFound error.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}
	// ErrForbidden indicates the actor lacks the required permission.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "forbidden"}
	// ErrConflict indicates a uniqueness or optimistic-check violation.
	ErrConflict = &Error{Kind: KindConflict, Message: "conflict"}
	// ErrInvalidInput indicates malformed ids, ranges or references.
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	// ErrTransient indicates storage throttling or timeouts; safe to retry.
	ErrTransient = &Error{Kind: KindTransient, Message: "temporarily unavailable"}
	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = &Error{Kind: KindUnauthenticated, Message: "unauthorized"}
)

// Storage signals.
var (
	// ErrConditionFailed is returned by the storage layer when a conditional write's precondition did not hold.
	ErrConditionFailed = New(KindConflict, CodeConditionFailed, "condition failed")
	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = New(KindConflict, CodeVersionConflict, "version conflict")
	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = New(KindConflict, CodeAlreadyExists, "already exists")
	// ErrRateLimited indicates a temporary lock after too many failed attempts.
	ErrRateLimited = New(KindRateLimited, CodeRateLimited, "rate limited")
)

// Sharing and invites.
var (
	ErrRecipientNotFound       = New(KindNotFound, CodeRecipientNotFound, "recipient account not found")
	ErrSelfShareNotAllowed     = New(KindInvalidInput, CodeSelfShareNotAllowed, "cannot share a profile with its owner")
	ErrCodeGenerationExhausted = New(KindConflict, CodeCodeGenerationExhausted, "could not generate a unique invite code")
	ErrInviteNotFound          = New(KindNotFound, CodeInviteNotFound, "invite not found")
	ErrInviteExpired           = New(KindConflict, CodeInviteExpired, "invite expired")
	ErrInviteAlreadyUsed       = New(KindConflict, CodeInviteAlreadyUsed, "invite already used")
)

// Ownership.
var (
	ErrNotOwner             = New(KindForbidden, CodeNotOwner, "actor does not own the profile")
	ErrTargetIsCurrentOwner = New(KindInvalidInput, CodeTargetIsCurrentOwner, "new owner is the current owner")
	ErrOwnerChanged         = New(KindConflict, CodeOwnerChanged, "profile owner changed concurrently")
)

// Catalogs, campaigns and orders.
var (
	ErrInvalidLineItem    = New(KindInvalidInput, CodeInvalidLineItem, "line item not in catalog")
	ErrCatalogUnavailable = New(KindInvalidInput, CodeCatalogUnavailable, "catalog missing or deleted")
	ErrInvalidDateRange   = New(KindInvalidInput, CodeInvalidDateRange, "start date is after end date")
	ErrCatalogImmutable   = New(KindForbidden, CodeCatalogImmutable, "admin-managed catalog cannot be changed")
)

// ErrCascadeIncomplete reports a partial cascade; the soft-deleted profile is kept for a later retry.
var ErrCascadeIncomplete = New(KindCascadeIncomplete, CodeCascadeIncomplete, "profile deletion incomplete")
