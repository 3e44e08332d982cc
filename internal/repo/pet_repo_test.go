package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/petverse/go-pets-backend/internal/domain"
	"gorm.io/gorm"
)

func seedPet(t *testing.T, db *gorm.DB, owner string) *domain.Pet {
	t.Helper()
	p := &domain.Pet{
		OwnerID:   owner,
		Name:      "Sparky",
		Species:   "Emberling",
		Element:   domain.ElementFire,
		Rarity:    domain.RarityCommon,
		DNA:       strings.Repeat("ab", 32),
		Level:     10,
		Happiness: 100,
	}
	if err := CreatePet(context.Background(), db, p); err != nil {
		t.Fatalf("seed pet: %v", err)
	}
	return p
}

func TestCreateAndGetPet(t *testing.T) {
	db := newTestDB(t, &domain.Pet{})
	ctx := context.Background()

	p := seedPet(t, db, "u1")
	if p.ID == 0 {
		t.Fatalf("expected assigned ID, got 0")
	}

	got, err := GetPet(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetPet: %v", err)
	}
	if got.OwnerID != "u1" || got.DNA != p.DNA || got.Element != domain.ElementFire {
		t.Fatalf("unexpected pet: %+v", got)
	}

	if _, err := GetPet(ctx, db, 9999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing pet, got %v", err)
	}
}

func TestListPetsPage_FilterOrderAndPaging(t *testing.T) {
	db := newTestDB(t, &domain.Pet{})
	ctx := context.Background()

	// Three pets for u1 with distinct creation times, one for u2.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p := &domain.Pet{
			OwnerID: "u1", Name: fmt.Sprintf("p%d", i), Species: "Emberling",
			DNA: strings.Repeat("00", 32), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed u1 pet %d: %v", i, err)
		}
	}
	if err := db.Create(&domain.Pet{OwnerID: "u2", Name: "x", Species: "Emberling", DNA: strings.Repeat("00", 32), CreatedAt: base}).Error; err != nil {
		t.Fatalf("seed u2 pet: %v", err)
	}

	total, err := CountPets(ctx, db, "u1")
	if err != nil || total != 3 {
		t.Fatalf("CountPets = (%d, %v), want (3, nil)", total, err)
	}

	page, err := ListPetsPage(ctx, db, "u1", 0, 2)
	if err != nil {
		t.Fatalf("ListPetsPage: %v", err)
	}
	if len(page) != 2 || page[0].Name != "p2" || page[1].Name != "p1" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page2, err := ListPetsPage(ctx, db, "u1", 2, 2)
	if err != nil || len(page2) != 1 || page2[0].Name != "p0" {
		t.Fatalf("unexpected second page: %+v err=%v", page2, err)
	}
}

func TestBreedingSlot_ClaimAndRelease(t *testing.T) {
	db := newTestDB(t, &domain.Pet{})
	ctx := context.Background()
	p := seedPet(t, db, "u1")

	if err := ClaimBreedingSlot(ctx, db, p.ID, 7); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// Second claim must fail: the pet is busy.
	if err := ClaimBreedingSlot(ctx, db, p.ID, 8); err != ErrSlotConflict {
		t.Fatalf("expected ErrSlotConflict on busy pet, got %v", err)
	}

	got, err := GetPet(ctx, db, p.ID)
	if err != nil || got.ActiveBreedingID != 7 {
		t.Fatalf("slot not recorded: %+v err=%v", got, err)
	}

	// Release guarded on the request id: a stale release changes nothing.
	if err := ReleaseBreedingSlot(ctx, db, p.ID, 8); err != ErrSlotConflict {
		t.Fatalf("expected ErrSlotConflict on stale release, got %v", err)
	}
	if err := ReleaseBreedingSlot(ctx, db, p.ID, 7); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, err = GetPet(ctx, db, p.ID)
	if err != nil || got.ActiveBreedingID != 0 {
		t.Fatalf("slot not cleared: %+v err=%v", got, err)
	}

	// Free again; a new claim succeeds.
	if err := ClaimBreedingSlot(ctx, db, p.ID, 9); err != nil {
		t.Fatalf("re-claim after release: %v", err)
	}
}

func TestIncrementBreedCount(t *testing.T) {
	db := newTestDB(t, &domain.Pet{})
	ctx := context.Background()
	p := seedPet(t, db, "u1")

	for i := 0; i < 3; i++ {
		if err := IncrementBreedCount(ctx, db, p.ID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	got, err := GetPet(ctx, db, p.ID)
	if err != nil || got.BreedCount != 3 {
		t.Fatalf("expected breed_count=3, got %+v err=%v", got, err)
	}
}

func TestProfile_CreateAndGet(t *testing.T) {
	db := newTestDB(t, &domain.Pet{}, &domain.GeneticProfile{})
	ctx := context.Background()
	p := seedPet(t, db, "u1")

	if _, err := GetProfile(ctx, db, p.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before create, got %v", err)
	}

	gp := &domain.GeneticProfile{
		PetID:           p.ID,
		DominantGenes:   strings.Repeat("0a", 32),
		RecessiveGenes:  strings.Repeat("0b", 32),
		ElementAffinity: []int{90, 40, 45, 50, 55, 60, 65, 70},
		StatPotential:   []int{100, 110, 120, 130, 140, 150},
		Traits:          []int{3, 17},
		Generation:      2,
		MutationCount:   1,
	}
	if err := CreateProfile(ctx, db, gp); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	got, err := GetProfile(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Generation != 2 || got.MutationCount != 1 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if len(got.ElementAffinity) != 8 || got.ElementAffinity[0] != 90 {
		t.Fatalf("affinity not round-tripped: %v", got.ElementAffinity)
	}
	if len(got.Traits) != 2 || got.Traits[1] != 17 {
		t.Fatalf("traits not round-tripped: %v", got.Traits)
	}

	// Profiles are write-once: a second create for the same pet fails.
	if err := CreateProfile(ctx, db, &domain.GeneticProfile{PetID: p.ID, DominantGenes: gp.DominantGenes, RecessiveGenes: gp.RecessiveGenes, ElementAffinity: []int{}, StatPotential: []int{}, Traits: []int{}}); err == nil {
		t.Fatalf("expected duplicate profile insert to fail")
	}
}

func TestPetsStats(t *testing.T) {
	db := newTestDB(t, &domain.Pet{})
	ctx := context.Background()

	// Empty collection: zero count, no timestamp.
	n, ts, err := PetsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("PetsStats empty: %v", err)
	}
	if n != 0 || ts != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, ts)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		p := &domain.Pet{
			OwnerID: "u1", Name: fmt.Sprintf("p%d", i), Species: "Emberling",
			DNA: strings.Repeat("00", 32), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed pet %d: %v", i, err)
		}
	}
	// Another owner's pet must not leak into the stats.
	if err := db.Create(&domain.Pet{OwnerID: "u2", Name: "x", Species: "Emberling", DNA: strings.Repeat("00", 32), CreatedAt: base.Add(48 * time.Hour)}).Error; err != nil {
		t.Fatalf("seed u2 pet: %v", err)
	}

	n, ts, err = PetsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("PetsStats: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if ts == nil || !ts.Equal(base.Add(time.Hour)) {
		t.Fatalf("latest = %v, want %v", ts, base.Add(time.Hour))
	}
}
