package mongo

import (
	"context"
	"errors"
	"fmt"

	apperrors "campusbook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc receives the session-bound context; repositories detect
// it and skip their own timeout wrapping inside a transaction.
type TransactionFunc func(ctx context.Context) error

// TransactionManager runs a function inside a single Mongo transaction so
// the ledger's check-then-write sequence commits atomically.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{client: client}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("failed to start session: %w", err))
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if IsUnavailable(err) {
			return apperrors.StoreUnavailable(err)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// IsUnavailable classifies driver errors that mean the store could not be
// reached, as opposed to a definite answer. A timed-out check must never be
// treated as "no conflict found".
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorLabel("TransientTransactionError")
}
