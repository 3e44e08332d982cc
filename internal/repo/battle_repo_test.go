package repo

import (
	"context"
	"testing"
	"time"

	"github.com/petverse/go-pets-backend/internal/domain"
)

func TestBattleRecord_CreateGetAndResolveOnce(t *testing.T) {
	db := newTestDB(t, &domain.BattleRecord{})
	ctx := context.Background()

	b := &domain.BattleRecord{ChallengerID: "u1", PetAID: 1, PetBID: 2, OracleRequestID: 33}
	if err := CreateBattleRecord(ctx, db, b); err != nil {
		t.Fatalf("CreateBattleRecord: %v", err)
	}
	if b.ID == 0 {
		t.Fatalf("expected assigned ID")
	}

	got, err := GetBattleRecord(ctx, db, b.ID)
	if err != nil || got.Resolved || got.WinnerID != 0 {
		t.Fatalf("unexpected fresh battle: %+v err=%v", got, err)
	}

	byOracle, err := GetBattleByOracleID(ctx, db, 33)
	if err != nil || byOracle.ID != b.ID {
		t.Fatalf("lookup by oracle id failed: %+v err=%v", byOracle, err)
	}
	if _, err := GetBattleByOracleID(ctx, db, 404); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	ok, err := ResolveBattle(ctx, db, b.ID, 1, 340, 290, now)
	if err != nil || !ok {
		t.Fatalf("resolve = (%v, %v), want (true, nil)", ok, err)
	}
	// A repeat resolution matches no row.
	ok, err = ResolveBattle(ctx, db, b.ID, 2, 1, 999, now.Add(time.Hour))
	if err != nil || ok {
		t.Fatalf("second resolve = (%v, %v), want (false, nil)", ok, err)
	}

	got, _ = GetBattleRecord(ctx, db, b.ID)
	if !got.Resolved || got.WinnerID != 1 || got.ScoreA != 340 || got.ScoreB != 290 {
		t.Fatalf("resolution not recorded: %+v", got)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(now) {
		t.Fatalf("resolved_at not recorded: %v", got.ResolvedAt)
	}
}

func TestMintOrder_CreateGetAndFulfillOnce(t *testing.T) {
	db := newTestDB(t, &domain.MintOrder{})
	ctx := context.Background()

	m := &domain.MintOrder{OwnerID: "u1", Cost: 200, OracleRequestID: 71}
	if err := CreateMintOrder(ctx, db, m); err != nil {
		t.Fatalf("CreateMintOrder: %v", err)
	}

	got, err := GetMintOrder(ctx, db, m.ID)
	if err != nil || got.Fulfilled || got.PetID != 0 {
		t.Fatalf("unexpected fresh order: %+v err=%v", got, err)
	}

	byOracle, err := GetMintOrderByOracleID(ctx, db, 71)
	if err != nil || byOracle.ID != m.ID {
		t.Fatalf("lookup by oracle id failed: %+v err=%v", byOracle, err)
	}

	ok, err := FulfillMintOrder(ctx, db, m.ID, 12)
	if err != nil || !ok {
		t.Fatalf("fulfill = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = FulfillMintOrder(ctx, db, m.ID, 13)
	if err != nil || ok {
		t.Fatalf("second fulfill = (%v, %v), want (false, nil)", ok, err)
	}

	got, _ = GetMintOrder(ctx, db, m.ID)
	if !got.Fulfilled || got.PetID != 12 {
		t.Fatalf("fulfillment not recorded: %+v", got)
	}
}

func TestAttachBattleOracle_Guarded(t *testing.T) {
	db := newTestDB(t, &domain.BattleRecord{})
	ctx := context.Background()

	b := &domain.BattleRecord{ChallengerID: "u1", PetAID: 1, PetBID: 2}
	if err := CreateBattleRecord(ctx, db, b); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ok, err := AttachBattleOracle(ctx, db, b.ID, 5)
	if err != nil || !ok {
		t.Fatalf("attach = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = AttachBattleOracle(ctx, db, b.ID, 6)
	if err != nil || ok {
		t.Fatalf("second attach = (%v, %v), want (false, nil)", ok, err)
	}
	got, _ := GetBattleRecord(ctx, db, b.ID)
	if got.OracleRequestID != 5 {
		t.Fatalf("oracle id = %d, want 5", got.OracleRequestID)
	}
}

func TestAttachMintOracle_Guarded(t *testing.T) {
	db := newTestDB(t, &domain.MintOrder{})
	ctx := context.Background()

	m := &domain.MintOrder{OwnerID: "u1", Cost: 200}
	if err := CreateMintOrder(ctx, db, m); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ok, err := AttachMintOracle(ctx, db, m.ID, 9)
	if err != nil || !ok {
		t.Fatalf("attach = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = AttachMintOracle(ctx, db, m.ID, 10)
	if err != nil || ok {
		t.Fatalf("second attach = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDeleteUnattached_Guarded(t *testing.T) {
	db := newTestDB(t, &domain.BattleRecord{}, &domain.MintOrder{})
	ctx := context.Background()

	fresh := &domain.BattleRecord{ChallengerID: "u1", PetAID: 1, PetBID: 2}
	attached := &domain.BattleRecord{ChallengerID: "u1", PetAID: 3, PetBID: 4, OracleRequestID: 7}
	for _, b := range []*domain.BattleRecord{fresh, attached} {
		if err := CreateBattleRecord(ctx, db, b); err != nil {
			t.Fatalf("CreateBattleRecord: %v", err)
		}
	}
	if ok, err := DeleteUnattachedBattle(ctx, db, fresh.ID); err != nil || !ok {
		t.Fatalf("delete fresh = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := DeleteUnattachedBattle(ctx, db, attached.ID); err != nil || ok {
		t.Fatalf("delete attached = (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := GetBattleRecord(ctx, db, attached.ID); err != nil {
		t.Fatalf("attached battle should survive: %v", err)
	}

	order := &domain.MintOrder{OwnerID: "u1", Cost: 200}
	paid := &domain.MintOrder{OwnerID: "u1", Cost: 200, OracleRequestID: 9}
	for _, m := range []*domain.MintOrder{order, paid} {
		if err := CreateMintOrder(ctx, db, m); err != nil {
			t.Fatalf("CreateMintOrder: %v", err)
		}
	}
	if ok, err := DeleteUnattachedMintOrder(ctx, db, order.ID); err != nil || !ok {
		t.Fatalf("delete order = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := DeleteUnattachedMintOrder(ctx, db, paid.ID); err != nil || ok {
		t.Fatalf("delete attached order = (%v, %v), want (false, nil)", ok, err)
	}
}
