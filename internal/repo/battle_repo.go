// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for battle records
// and mystery-box mint orders, the two non-breeding randomness consumers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// CreateBattleRecord inserts a pending battle row.
func CreateBattleRecord(ctx context.Context, db *gorm.DB, b *domain.BattleRecord) error {
	b.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(b).Error
}

// GetBattleRecord fetches a battle by ID, or ErrNotFound.
func GetBattleRecord(ctx context.Context, db *gorm.DB, id uint64) (*domain.BattleRecord, error) {
	var b domain.BattleRecord
	if err := db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBattleByOracleID finds the battle awaiting oracle request oracleID.
func GetBattleByOracleID(ctx context.Context, db *gorm.DB, oracleID uint64) (*domain.BattleRecord, error) {
	var b domain.BattleRecord
	if err := db.WithContext(ctx).First(&b, "oracle_request_id = ?", oracleID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// AttachBattleOracle records the oracle request id on a pending battle.
// Guarded on the id not yet being set.
func AttachBattleOracle(ctx context.Context, db *gorm.DB, id, oracleID uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BattleRecord{}).
		Where("id = ? AND oracle_request_id = 0 AND resolved = ?", id, false).
		Update("oracle_request_id", oracleID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteUnattachedBattle removes a battle whose oracle request never opened.
// Guarded so an attached or resolved battle is never touched.
func DeleteUnattachedBattle(ctx context.Context, db *gorm.DB, id uint64) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND oracle_request_id = 0 AND resolved = ?", id, false).
		Delete(&domain.BattleRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ResolveBattle records the outcome. Guarded on resolved = false; a repeat
// resolution reports false and changes nothing.
func ResolveBattle(ctx context.Context, db *gorm.DB, id, winnerID uint64, scoreA, scoreB int, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.BattleRecord{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{
			"resolved":    true,
			"winner_id":   winnerID,
			"score_a":     scoreA,
			"score_b":     scoreB,
			"resolved_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateMintOrder inserts a pending mystery-box order.
func CreateMintOrder(ctx context.Context, db *gorm.DB, m *domain.MintOrder) error {
	m.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(m).Error
}

// GetMintOrder fetches a mint order by ID, or ErrNotFound.
func GetMintOrder(ctx context.Context, db *gorm.DB, id uint64) (*domain.MintOrder, error) {
	var m domain.MintOrder
	if err := db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMintOrderByOracleID finds the order awaiting oracle request oracleID.
func GetMintOrderByOracleID(ctx context.Context, db *gorm.DB, oracleID uint64) (*domain.MintOrder, error) {
	var m domain.MintOrder
	if err := db.WithContext(ctx).First(&m, "oracle_request_id = ?", oracleID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// AttachMintOracle records the oracle request id on a pending order.
// Guarded on the id not yet being set.
func AttachMintOracle(ctx context.Context, db *gorm.DB, id, oracleID uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.MintOrder{}).
		Where("id = ? AND oracle_request_id = 0 AND fulfilled = ?", id, false).
		Update("oracle_request_id", oracleID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteUnattachedMintOrder removes an order whose oracle request never
// opened. Guarded so an attached or fulfilled order is never touched.
func DeleteUnattachedMintOrder(ctx context.Context, db *gorm.DB, id uint64) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND oracle_request_id = 0 AND fulfilled = ?", id, false).
		Delete(&domain.MintOrder{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FulfillMintOrder attaches the minted pet. Guarded on fulfilled = false.
func FulfillMintOrder(ctx context.Context, db *gorm.DB, id, petID uint64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.MintOrder{}).
		Where("id = ? AND fulfilled = ?", id, false).
		Updates(map[string]any{"fulfilled": true, "pet_id": petID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
