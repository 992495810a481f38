// Package limiter throttles invite-code redemption attempts per account and client address.
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Limiter controls redemption attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a redemption is currently allowed and optional retry-after.
	Allow(ctx context.Context, accountID uuid.UUID, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful redemption.
	Success(ctx context.Context, accountID uuid.UUID, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, accountID uuid.UUID, ipHash []byte) (bool, time.Duration, error)
}
