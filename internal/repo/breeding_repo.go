// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// BreedingRequest state machine and the BreedingCombination lookup table.
//
// BreedingRequest rows are historical records: they are created once and
// mutated by the two guarded transitions below, never deleted. Combination
// rows are admin-configured and normalized so (a,b) and (b,a) share a row.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// CreateBreedingRequest inserts a new request row in the Initiated phase.
func CreateBreedingRequest(ctx context.Context, db *gorm.DB, r *domain.BreedingRequest) error {
	return db.WithContext(ctx).Create(r).Error
}

// GetBreedingRequest fetches a breeding request by ID, or ErrNotFound.
func GetBreedingRequest(ctx context.Context, db *gorm.DB, id uint64) (*domain.BreedingRequest, error) {
	var r domain.BreedingRequest
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetBreedingRequestByOracleID finds the request that oracle request
// oracleID was opened for, or ErrNotFound.
func GetBreedingRequestByOracleID(ctx context.Context, db *gorm.DB, oracleID uint64) (*domain.BreedingRequest, error) {
	var r domain.BreedingRequest
	if err := db.WithContext(ctx).First(&r, "oracle_request_id = ?", oracleID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// AttachOracleRequest records the oracle request id on a breeding request,
// moving it from Initiated to AwaitingRandomness. Guarded on the id not yet
// being set and the request still being live; a failed guard reports false.
func AttachOracleRequest(ctx context.Context, db *gorm.DB, id, oracleID uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BreedingRequest{}).
		Where("id = ? AND oracle_request_id = 0 AND completed = ? AND cancelled = ?", id, false, false).
		Update("oracle_request_id", oracleID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompleteBreedingRequest flips a live request to completed and records the
// minted child. Guarded on completed = false; a failed guard reports false.
func CompleteBreedingRequest(ctx context.Context, db *gorm.DB, id, childID uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BreedingRequest{}).
		Where("id = ? AND completed = ? AND cancelled = ?", id, false, false).
		Updates(map[string]any{"completed": true, "child_id": childID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CancelBreedingRequest flips an Initiated request to cancelled. Guarded so a
// request that already entered AwaitingRandomness (oracle id attached) can
// never be cancelled.
func CancelBreedingRequest(ctx context.Context, db *gorm.DB, id uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BreedingRequest{}).
		Where("id = ? AND oracle_request_id = 0 AND completed = ? AND cancelled = ?", id, false, false).
		Update("cancelled", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListBreedingRequestsByOwner returns an owner's requests, newest first.
func ListBreedingRequestsByOwner(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.BreedingRequest, error) {
	var out []domain.BreedingRequest
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// normalizePair orders an element pair so the smaller value comes first.
func normalizePair(a, b domain.Element) (domain.Element, domain.Element) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetCombination looks up the combination row for an element pair,
// normalizing argument order. Returns ErrNotFound when unconfigured.
func GetCombination(ctx context.Context, db *gorm.DB, a, b domain.Element) (*domain.BreedingCombination, error) {
	a, b = normalizePair(a, b)
	var c domain.BreedingCombination
	if err := db.WithContext(ctx).First(&c, "element_a = ? AND element_b = ?", a, b).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCombination writes a combination row, normalizing its pair. Existing
// rows for the pair are overwritten; this is an admin-write path and the
// place where malformed configuration is rejected (before any breeding can
// read it).
func UpsertCombination(ctx context.Context, db *gorm.DB, c *domain.BreedingCombination) error {
	c.ElementA, c.ElementB = normalizePair(c.ElementA, c.ElementB)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "element_a"}, {Name: "element_b"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"result_element", "mutation_chance", "special", "species_name", "updated_at",
			}),
		}).
		Create(c).Error
}

// ListCombinations returns every configured combination, ordered by pair.
func ListCombinations(ctx context.Context, db *gorm.DB) ([]domain.BreedingCombination, error) {
	var out []domain.BreedingCombination
	err := db.WithContext(ctx).
		Order("element_a, element_b").
		Find(&out).Error
	return out, err
}

// SeedDefaultCombinations installs the four canonical special combinations
// if the table is empty. Idempotent; used at startup.
func SeedDefaultCombinations(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.BreedingCombination{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	now := time.Now().UTC()
	defaults := []domain.BreedingCombination{
		{ElementA: domain.ElementFire, ElementB: domain.ElementWater, ResultElement: domain.ElementSteam, MutationChance: 10, Special: true, SpeciesName: "Mistling", CreatedAt: now},
		{ElementA: domain.ElementFire, ElementB: domain.ElementEarth, ResultElement: domain.ElementLava, MutationChance: 10, Special: true, SpeciesName: "Cinderox", CreatedAt: now},
		{ElementA: domain.ElementWater, ElementB: domain.ElementEarth, ResultElement: domain.ElementMud, MutationChance: 8, Special: true, SpeciesName: "Boggart", CreatedAt: now},
		{ElementA: domain.ElementWater, ElementB: domain.ElementAir, ResultElement: domain.ElementStorm, MutationChance: 12, Special: true, SpeciesName: "Galewing", CreatedAt: now},
	}
	return db.WithContext(ctx).Create(&defaults).Error
}
