package services

import (
	"context"
	"errors"

	"neodukaan-backend/internal/settlement"
	"neodukaan-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrCheckoutInProgress: another request with the same idempotency key holds the lock.
	ErrCheckoutInProgress = errors.New("a checkout with this idempotency key is in progress")
	ErrArchiveDisabled    = errors.New("report archive is not configured")
)

// invalid builds the same validation error the settlement engine returns, so
// handlers map both the same way.
func invalid(field, reason string) error {
	return &settlement.ValidationError{Field: field, Reason: reason}
}

// writeTx runs fn in a transaction and retries once on a concurrent modification.
func writeTx(ctx context.Context, s store.Store, shopID string, fn func(tx store.Tx) error) error {
	err := s.WithTransaction(ctx, shopID, fn)
	if errors.Is(err, store.ErrStaleWrite) {
		err = s.WithTransaction(ctx, shopID, fn)
	}
	return err
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}
