// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the admin surface. Each function is context-aware and safe to call from
// services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
)

// SystemStats is the aggregate snapshot served by the admin stats endpoint.
type SystemStats struct {
	Pets             int64 `json:"pets"`
	PendingRequests  int64 `json:"pending_requests"`
	OpenBreedings    int64 `json:"open_breedings"`
	CompletedBreeds  int64 `json:"completed_breedings"`
	ResolvedBattles  int64 `json:"resolved_battles"`
	OutstandingBoxes int64 `json:"outstanding_boxes"`
}

// GatherStats runs the aggregate counts behind SystemStats. Counts are taken
// in separate lightweight queries; the snapshot is not transactional, which
// is fine for an operational dashboard.
func GatherStats(ctx context.Context, db *gorm.DB) (SystemStats, error) {
	var s SystemStats
	type count struct {
		dst   *int64
		model any
		where string
		args  []any
	}
	counts := []count{
		{&s.Pets, &domain.Pet{}, "", nil},
		{&s.PendingRequests, &domain.RandomRequest{}, "fulfilled = ?", []any{false}},
		{&s.OpenBreedings, &domain.BreedingRequest{}, "completed = ? AND cancelled = ?", []any{false, false}},
		{&s.CompletedBreeds, &domain.BreedingRequest{}, "completed = ?", []any{true}},
		{&s.ResolvedBattles, &domain.BattleRecord{}, "resolved = ?", []any{true}},
		{&s.OutstandingBoxes, &domain.MintOrder{}, "fulfilled = ?", []any{false}},
	}
	for _, c := range counts {
		q := db.WithContext(ctx).Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return SystemStats{}, err
		}
	}
	return s, nil
}
