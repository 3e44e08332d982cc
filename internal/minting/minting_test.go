package minting

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newHarness(t *testing.T) (*Service, *oracle.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	osvc := oracle.NewService(db, oracle.DevProvider{})
	s := NewService(db, osvc)
	osvc.RegisterRequester(s.Requester, s)
	return s, osvc, db
}

func fund(t *testing.T, db *gorm.DB, owner string, amount int64) {
	t.Helper()
	if err := repo.Credit(context.Background(), db, owner, amount); err != nil {
		t.Fatalf("fund %s: %v", owner, err)
	}
}

func balance(t *testing.T, db *gorm.DB, owner string) int64 {
	t.Helper()
	b, err := repo.GetBalance(context.Background(), db, owner)
	if err != nil {
		t.Fatalf("balance %s: %v", owner, err)
	}
	return b
}

func TestPurchase_DebitsAndOpensRequest(t *testing.T) {
	s, osvc, db := newHarness(t)
	ctx := context.Background()
	fund(t, db, "u1", 500)

	m, err := s.Purchase(ctx, "u1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if m.Cost != BoxCost {
		t.Fatalf("cost = %d, want %d", m.Cost, BoxCost)
	}
	if got := balance(t, db, "u1"); got != 300 {
		t.Fatalf("buyer balance = %d, want 300", got)
	}
	if got := balance(t, db, s.TreasuryAccount); got != BoxCost {
		t.Fatalf("treasury balance = %d, want %d", got, BoxCost)
	}
	if m.OracleRequestID == 0 {
		t.Fatal("oracle request was not attached")
	}
	rr, err := osvc.Get(ctx, m.OracleRequestID)
	if err != nil {
		t.Fatalf("get oracle request: %v", err)
	}
	if rr.Kind != domain.KindMinting {
		t.Fatalf("kind = %v, want minting", rr.Kind)
	}
	if rr.CorrelationID != m.ID {
		t.Fatalf("correlation = %d, want order id %d", rr.CorrelationID, m.ID)
	}
}

func TestPurchase_InsufficientBalance(t *testing.T) {
	s, _, db := newHarness(t)
	ctx := context.Background()
	fund(t, db, "u1", BoxCost-1)

	if _, err := s.Purchase(ctx, "u1"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := balance(t, db, "u1"); got != BoxCost-1 {
		t.Fatalf("buyer balance = %d, want untouched %d", got, BoxCost-1)
	}
	var n int64
	if err := db.Model(&domain.MintOrder{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("orders = %d, want 0 after rejected purchase", n)
	}
}

func TestFulfill_HatchesPet(t *testing.T) {
	s, osvc, db := newHarness(t)
	ctx := context.Background()
	fund(t, db, "u1", 500)

	m, err := s.Purchase(ctx, "u1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// words: DNA seed, element (Lava), rarity roll (Legendary bucket), stat
	// spread, species variant 1.
	words := []uint64{0xdeadbeefcafe, uint64(domain.ElementLava), 97, 7, 1}
	if err := osvc.ManualFulfill(ctx, m.OracleRequestID, words); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Fulfilled || got.PetID == 0 {
		t.Fatalf("order not fulfilled: %+v", got)
	}
	pet, err := repo.GetPet(ctx, db, got.PetID)
	if err != nil {
		t.Fatalf("get pet: %v", err)
	}
	if pet.OwnerID != "u1" {
		t.Fatalf("owner = %q, want u1", pet.OwnerID)
	}
	if pet.Element != domain.ElementLava {
		t.Fatalf("element = %v, want lava", pet.Element)
	}
	if pet.Rarity != domain.RarityLegendary {
		t.Fatalf("rarity = %v, want legendary", pet.Rarity)
	}
	if pet.Species != "Magma Whelp" {
		t.Fatalf("species = %q, want Magma Whelp", pet.Species)
	}
	if pet.Generation != 0 || pet.Parent1ID != 0 || pet.Parent2ID != 0 {
		t.Fatalf("minted pet has breeding ancestry: %+v", pet)
	}
	if pet.Level != 1 || pet.Happiness != 100 {
		t.Fatalf("level/happiness = %d/%d, want 1/100", pet.Level, pet.Happiness)
	}
	for i, v := range pet.Stats() {
		if v < statBase[domain.RarityLegendary] || v > statBase[domain.RarityLegendary]+40 {
			t.Fatalf("stat %d = %d outside legendary spread", i, v)
		}
	}
	if _, err := repo.GetProfile(ctx, db, pet.ID); err != nil {
		t.Fatalf("minted pet has no genetic profile: %v", err)
	}

	// Replays must not mint a second pet.
	if err := s.OnRandomnessFulfilled(ctx, s.OracleID, oracle.Fulfillment{
		RequestID: m.OracleRequestID,
		Kind:      domain.KindMinting,
		Words:     words,
	}); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("replay: got %v, want ErrAlreadyFulfilled", err)
	}
	var pets int64
	if err := db.Model(&domain.Pet{}).Count(&pets).Error; err != nil {
		t.Fatalf("count pets: %v", err)
	}
	if pets != 1 {
		t.Fatalf("pets = %d, want exactly 1", pets)
	}
}

func TestRarityBuckets(t *testing.T) {
	cases := []struct {
		roll uint64
		want domain.Rarity
	}{
		{0, domain.RarityCommon},
		{59, domain.RarityCommon},
		{60, domain.RarityRare},
		{84, domain.RarityRare},
		{85, domain.RarityEpic},
		{96, domain.RarityEpic},
		{97, domain.RarityLegendary},
		{99, domain.RarityLegendary},
		{159, domain.RarityCommon}, // wraps modulo 100
	}
	for _, tc := range cases {
		if got := mintRarity(tc.roll); got != tc.want {
			t.Errorf("mintRarity(%d) = %v, want %v", tc.roll, got, tc.want)
		}
	}
}

func TestOnRandomnessFulfilled_Authorization(t *testing.T) {
	s, _, db := newHarness(t)
	ctx := context.Background()
	fund(t, db, "u1", 500)
	m, err := s.Purchase(ctx, "u1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	f := oracle.Fulfillment{RequestID: m.OracleRequestID, Kind: domain.KindMinting, Words: []uint64{1, 2, 3, 4, 5}}
	if err := s.OnRandomnessFulfilled(ctx, "impostor", f); !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("impostor: got %v, want ErrUnauthorizedCaller", err)
	}
	wrong := f
	wrong.Kind = domain.KindBreeding
	if err := s.OnRandomnessFulfilled(ctx, s.OracleID, wrong); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("wrong kind: got %v, want ErrWrongKind", err)
	}
	short := f
	short.Words = []uint64{1, 2, 3, 4}
	if err := s.OnRandomnessFulfilled(ctx, s.OracleID, short); !errors.Is(err, ErrInsufficientRandomness) {
		t.Fatalf("short words: got %v, want ErrInsufficientRandomness", err)
	}
	unknown := f
	unknown.RequestID = 9999
	if err := s.OnRandomnessFulfilled(ctx, s.OracleID, unknown); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("unknown request: got %v, want ErrOrderNotFound", err)
	}
	if err := s.OnRandomnessFulfilled(ctx, s.OracleID, f); err != nil {
		t.Fatalf("legitimate fulfill: %v", err)
	}
}

type brokenConsumer struct{}

func (brokenConsumer) OnRandomnessFulfilled(context.Context, string, oracle.Fulfillment) error {
	return errors.New("downstream unavailable")
}

func TestReprocess_RecoversFromSwallowedCallback(t *testing.T) {
	s, osvc, db := newHarness(t)
	ctx := context.Background()
	fund(t, db, "u1", 500)
	m, err := s.Purchase(ctx, "u1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if err := s.Reprocess(ctx, "u1", m.ID); !errors.Is(err, ErrRandomnessPending) {
		t.Fatalf("premature reprocess: got %v, want ErrRandomnessPending", err)
	}

	osvc.RegisterRequester(s.Requester, brokenConsumer{})
	if err := osvc.ManualFulfill(ctx, m.OracleRequestID, []uint64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fulfilled {
		t.Fatal("order fulfilled despite failing consumer")
	}

	if err := s.Reprocess(ctx, "u2", m.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign reprocess: got %v, want ErrNotOwner", err)
	}
	if err := s.Reprocess(ctx, "u1", m.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	got, err = s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Fulfilled || got.PetID == 0 {
		t.Fatal("reprocess did not hatch the order")
	}
	if err := s.Reprocess(ctx, "u1", m.ID); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("double reprocess: got %v, want ErrAlreadyFulfilled", err)
	}
}

type downSource struct{}

func (downSource) Request(context.Context, string, domain.RequestKind, uint64) (uint64, error) {
	return 0, errors.New("provider unreachable")
}

func TestPurchase_OracleFailureLeavesBalanceUntouched(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db, downSource{})
	ctx := context.Background()
	fund(t, db, "u1", 500)

	if _, err := s.Purchase(ctx, "u1"); err == nil {
		t.Fatal("expected purchase to fail")
	}
	if got := balance(t, db, "u1"); got != 500 {
		t.Fatalf("buyer balance = %d, want untouched 500", got)
	}
	if got := balance(t, db, s.TreasuryAccount); got != 0 {
		t.Fatalf("treasury balance = %d, want 0", got)
	}
	var n int64
	if err := db.Model(&domain.MintOrder{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("orders = %d, want 0 after failed purchase", n)
	}
}

func TestReprocess_BeforeOracleRequest(t *testing.T) {
	s, _, db := newHarness(t)
	ctx := context.Background()
	m := &domain.MintOrder{OwnerID: "u1", Cost: BoxCost}
	if err := repo.CreateMintOrder(ctx, db, m); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := s.Reprocess(ctx, "u1", m.ID); !errors.Is(err, ErrNotRequested) {
		t.Fatalf("reprocess: got %v, want ErrNotRequested", err)
	}
}
