// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Pet and
// GeneticProfile models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a pet is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Guarded updates (breeding slot claims and releases) report a failed
//     guard as ErrSlotConflict so the service layer can reject the call
//     without inspecting row counts.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see breeding.Coordinator) which enforces eligibility, escrow, and
// kinship rules.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrSlotConflict is returned when a guarded breeding-slot update matched no
// row: the pet is already in another breeding, or the slot was already
// released.
var ErrSlotConflict = errors.New("breeding slot conflict")

// CreatePet inserts a new Pet row. The ID is assigned by the database and
// written back onto the struct.
func CreatePet(ctx context.Context, db *gorm.DB, p *domain.Pet) error {
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetPet fetches a single pet by ID, or ErrNotFound.
func GetPet(ctx context.Context, db *gorm.DB, id uint64) (*domain.Pet, error) {
	var p domain.Pet
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPets returns the total number of pets owned by ownerID.
func CountPets(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Pet{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListPetsPage returns a paginated slice of pets for ownerID, ordered by
// creation time descending. The caller computes offset and limit.
func ListPetsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.Pet, error) {
	var out []domain.Pet
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PetsStats returns the pet count and newest creation timestamp for ownerID
// in one query. Handlers derive weak ETags from the pair.
func PetsStats(ctx context.Context, db *gorm.DB, ownerID string) (int64, *time.Time, error) {
	var row struct {
		N  int64
		TS *time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.Pet{}).
		Select("COUNT(*) AS n, MAX(created_at) AS ts").
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return row.N, row.TS, nil
}

// ClaimBreedingSlot marks petID as participating in breeding requestID.
// The update is guarded on the slot being free; a busy pet returns
// ErrSlotConflict and changes nothing.
func ClaimBreedingSlot(ctx context.Context, db *gorm.DB, petID, requestID uint64) error {
	res := db.WithContext(ctx).
		Model(&domain.Pet{}).
		Where("id = ? AND active_breeding_id = 0", petID).
		Update("active_breeding_id", requestID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSlotConflict
	}
	return nil
}

// ReleaseBreedingSlot clears petID's slot, guarded on it still referencing
// requestID so a stale release can never clobber a newer breeding.
func ReleaseBreedingSlot(ctx context.Context, db *gorm.DB, petID, requestID uint64) error {
	res := db.WithContext(ctx).
		Model(&domain.Pet{}).
		Where("id = ? AND active_breeding_id = ?", petID, requestID).
		Update("active_breeding_id", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSlotConflict
	}
	return nil
}

// IncrementBreedCount bumps petID's breed counter by one.
func IncrementBreedCount(ctx context.Context, db *gorm.DB, petID uint64) error {
	return db.WithContext(ctx).
		Model(&domain.Pet{}).
		Where("id = ?", petID).
		UpdateColumn("breed_count", gorm.Expr("breed_count + 1")).Error
}

// GetProfile fetches the genetic profile attached to petID, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, petID uint64) (*domain.GeneticProfile, error) {
	var gp domain.GeneticProfile
	if err := db.WithContext(ctx).First(&gp, "pet_id = ?", petID).Error; err != nil {
		return nil, err
	}
	return &gp, nil
}

// CreateProfile inserts a genetic profile row. Profiles are write-once; there
// is deliberately no update function.
func CreateProfile(ctx context.Context, db *gorm.DB, gp *domain.GeneticProfile) error {
	gp.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(gp).Error
}
