package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/pkg/config"
	"campusbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LockCollectionName = "Slot_locks"

// SlotLockRepository provides store-level advisory locks. A unique _id
// insert either succeeds (lock acquired) or fails with a duplicate key
// (lock held by a concurrent create).
type SlotLockRepository interface {
	Acquire(ctx context.Context, lock *model.SlotLock) error
	Release(ctx context.Context, lockID, holder string) error
	EnsureIndexes(ctx context.Context) error
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
}

func NewSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoSlotLockRepository) Acquire(ctx context.Context, lock *model.SlotLock) error {
	lock.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	return nil
}

// Release deletes the lock only if this holder still owns it. A lock that
// outlived its TTL and was re-acquired under a different holder is left
// alone.
func (r *mongoSlotLockRepository) Release(ctx context.Context, lockID, holder string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "holder": holder})
	return err
}

// EnsureIndexes installs the TTL index that reaps locks abandoned by
// crashed processes. Normal operation releases locks explicitly.
func (r *mongoSlotLockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
