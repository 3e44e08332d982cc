package domain

import (
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{Pet{}, "pets"},
		{GeneticProfile{}, "genetic_profiles"},
		{RandomRequest{}, "random_requests"},
		{BreedingRequest{}, "breeding_requests"},
		{BreedingCombination{}, "breeding_combinations"},
		{Account{}, "accounts"},
		{BattleRecord{}, "battle_records"},
		{MintOrder{}, "mint_orders"},
		{Idempotency{}, "idempotency"},
	}
	for _, tc := range cases {
		if got := tc.model.TableName(); got != tc.want {
			t.Fatalf("%T.TableName() = %q; want %q", tc.model, got, tc.want)
		}
	}
}

func TestMigrations_TablesAndIndexes(t *testing.T) {
	db := newDomainDB(t)

	models := []any{
		&Pet{}, &GeneticProfile{}, &RandomRequest{}, &BreedingRequest{},
		&BreedingCombination{}, &Account{}, &BattleRecord{}, &MintOrder{},
		&Idempotency{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range models {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Pet{}, "idx_owner_pets") {
		t.Fatal("expected index idx_owner_pets on pets")
	}
	if !m.HasIndex(&BreedingCombination{}, "ux_combo_pair") {
		t.Fatal("expected unique index ux_combo_pair on breeding_combinations")
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatal("expected unique index ux_user_scope_key on idempotency")
	}

	// The combination pair index must reject duplicate normalized pairs.
	c1 := &BreedingCombination{ElementA: ElementFire, ElementB: ElementWater, ResultElement: ElementSteam, SpeciesName: "Mistling"}
	if err := db.Create(c1).Error; err != nil {
		t.Fatalf("insert combination: %v", err)
	}
	dup := &BreedingCombination{ElementA: ElementFire, ElementB: ElementWater, ResultElement: ElementMud, SpeciesName: "Other"}
	if err := db.Create(dup).Error; err == nil {
		t.Fatal("expected unique violation inserting duplicate element pair")
	}
}

func TestPetStatsRoundTrip(t *testing.T) {
	var p Pet
	want := Stats{11, 22, 33, 44, 55, 66}
	p.SetStats(want)
	if got := p.Stats(); got != want {
		t.Fatalf("Stats() = %v; want %v", got, want)
	}
	if p.Strength != 11 || p.Luck != 66 {
		t.Fatalf("named columns not updated: %+v", p)
	}
}

func TestBreedingRequestAwaiting(t *testing.T) {
	r := &BreedingRequest{}
	if r.Awaiting() {
		t.Fatal("initiated request should not be awaiting randomness")
	}
	r.OracleRequestID = 7
	if !r.Awaiting() {
		t.Fatal("request with oracle id attached should be awaiting")
	}
	r.Completed = true
	if r.Awaiting() {
		t.Fatal("completed request should not be awaiting")
	}
}
