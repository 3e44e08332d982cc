// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the oracle's
// RandomRequest ledger. Rows are append-then-fulfill: nothing here deletes.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// CreateRandomRequest inserts a pending request row. The monotonically
// increasing ID is assigned by the database and written back onto the struct.
func CreateRandomRequest(ctx context.Context, db *gorm.DB, r *domain.RandomRequest) error {
	r.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(r).Error
}

// GetRandomRequest fetches a request by ID, or ErrNotFound.
func GetRandomRequest(ctx context.Context, db *gorm.DB, id uint64) (*domain.RandomRequest, error) {
	var r domain.RandomRequest
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// FulfillRandomRequest records words against a pending request and flips it
// to fulfilled. The update is guarded on fulfilled = false: a second delivery
// matches no row and returns ErrSlotConflict-style zero-affected semantics
// via the returned bool, leaving the first delivery's words untouched.
func FulfillRandomRequest(ctx context.Context, db *gorm.DB, id uint64, words []uint64, now time.Time) (bool, error) {
	// Struct-based update so the serializer encodes Words; only non-zero
	// fields are written.
	res := db.WithContext(ctx).
		Model(&domain.RandomRequest{}).
		Where("id = ? AND fulfilled = ?", id, false).
		Updates(&domain.RandomRequest{Fulfilled: true, Words: words, FulfilledAt: &now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountPendingRequests returns how many requests still await fulfillment.
func CountPendingRequests(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.RandomRequest{}).
		Where("fulfilled = ?", false).
		Count(&total).Error
	return total, err
}
