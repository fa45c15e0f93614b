package model

import "time"

// SlotLock is an advisory lock document serializing the check-then-write
// region of booking creation. The unique _id makes a concurrent insert for
// the same facility or user fail with a duplicate key error. Holder fences
// release: after TTL expiry another request may hold the same _id, and the
// original holder must not delete it out from under them.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
