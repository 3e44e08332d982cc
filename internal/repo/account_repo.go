// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the utility-token account ledger.
// Debits are guarded on sufficient balance so a transfer inside a
// transaction either moves the full amount or changes nothing.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// ErrInsufficientFunds is returned when a debit would take a balance
// negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// GetBalance returns userID's balance; missing accounts read as zero.
func GetBalance(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var acc domain.Account
	err := db.WithContext(ctx).First(&acc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Credit adds amount to userID's balance, creating the account on first use.
func Credit(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": now,
			}),
		}).
		Create(&domain.Account{UserID: userID, Balance: amount, UpdatedAt: now}).Error
}

// Debit subtracts amount from userID's balance. Guarded on the balance
// covering the amount; a short account returns ErrInsufficientFunds and
// changes nothing.
func Debit(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Transfer moves amount from one account to another. Call inside a
// transaction so the debit and credit commit together.
func Transfer(ctx context.Context, db *gorm.DB, from, to string, amount int64) error {
	if err := Debit(ctx, db, from, amount); err != nil {
		return err
	}
	return Credit(ctx, db, to, amount)
}
