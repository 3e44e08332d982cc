// Package domain defines the persistence models for pets, genetic profiles,
// oracle randomness requests, and breeding requests. These types are mapped
// with GORM and form the core data layer of the pet game backend.
package domain

import (
	"time"
)

// Pet is the backend's ledger view of a collectible pet. Token ownership
// bookkeeping proper (transfers, approvals) lives in the NFT collaborator;
// this row carries the gameplay state the breeding and battle engines need.
//
// Fields:
//   - ID: token id, assigned by the database; never reused.
//   - OwnerID: current owner identity (X-User-ID convention).
//   - Species: display species name, set at mint or by a special combination.
//   - Element / Rarity: enum-backed columns validated at call boundaries.
//   - DNA: 64-char hex encoding of the 256-bit genetic bit pattern.
//   - Generation: 0 for genesis pets, max(parents)+1 for bred offspring.
//   - BreedCount: times this pet has produced offspring.
//   - Parent1ID / Parent2ID: 0 for genesis pets.
//   - ActiveBreedingID: the exclusive breeding-slot marker. 0 means the pet
//     is free; nonzero is the id of the one open BreedingRequest referencing
//     it. Cleared exactly when that request completes or is cancelled.
type Pet struct {
	ID        uint64  `json:"id"         gorm:"primaryKey;autoIncrement"`
	OwnerID   string  `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_pets"`
	Name      string  `json:"name"       gorm:"type:varchar(64);not null"`
	Species   string  `json:"species"    gorm:"type:varchar(64);not null"`
	Element   Element `json:"element"    gorm:"not null"`
	Rarity    Rarity  `json:"rarity"     gorm:"not null"`
	DNA       string  `json:"dna"        gorm:"type:char(64);not null"`
	Level     int     `json:"level"      gorm:"not null;default:1"`
	Happiness int     `json:"happiness"  gorm:"not null;default:100"`

	Generation int    `json:"generation"  gorm:"not null;default:0"`
	BreedCount int    `json:"breed_count" gorm:"not null;default:0"`
	Parent1ID  uint64 `json:"parent1_id"  gorm:"not null;default:0"`
	Parent2ID  uint64 `json:"parent2_id"  gorm:"not null;default:0"`

	ActiveBreedingID uint64 `json:"active_breeding_id" gorm:"not null;default:0;index"`

	Strength     int `json:"strength"     gorm:"not null"`
	Agility      int `json:"agility"      gorm:"not null"`
	Intelligence int `json:"intelligence" gorm:"not null"`
	Vitality     int `json:"vitality"     gorm:"not null"`
	Charm        int `json:"charm"        gorm:"not null"`
	Luck         int `json:"luck"         gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Pet.
func (Pet) TableName() string { return "pets" }

// Stats returns the pet's stat vector in canonical order.
func (p *Pet) Stats() Stats {
	return Stats{p.Strength, p.Agility, p.Intelligence, p.Vitality, p.Charm, p.Luck}
}

// SetStats writes a stat vector back onto the named columns.
func (p *Pet) SetStats(s Stats) {
	p.Strength, p.Agility, p.Intelligence, p.Vitality, p.Charm, p.Luck =
		s[0], s[1], s[2], s[3], s[4], s[5]
}

// GeneticProfile is the derived per-pet genetic record, created once (lazily
// from the pet's DNA, or by breeding resolution) and never mutated afterwards.
//
// Fields:
//   - PetID: 1:1 key to the owning pet.
//   - DominantGenes / RecessiveGenes: 64-char hex encodings of 256-bit
//     opaque gene patterns.
//   - ElementAffinity: 8 per-element scores in [0,100].
//   - StatPotential: 6 per-stat ceilings.
//   - Traits: ordered inheritable trait identifiers.
//   - MutationCount: monotonically non-decreasing across generations
//     (sum of parents' counts plus 0 or 1).
type GeneticProfile struct {
	PetID           uint64 `json:"pet_id"          gorm:"primaryKey"`
	DominantGenes   string `json:"dominant_genes"  gorm:"type:char(64);not null"`
	RecessiveGenes  string `json:"recessive_genes" gorm:"type:char(64);not null"`
	ElementAffinity []int  `json:"element_affinity" gorm:"serializer:json;not null"`
	StatPotential   []int  `json:"stat_potential"   gorm:"serializer:json;not null"`
	Traits          []int  `json:"traits"           gorm:"serializer:json;not null"`
	Generation      int    `json:"generation"      gorm:"not null;default:0"`
	MutationCount   int    `json:"mutation_count"  gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for GeneticProfile.
func (GeneticProfile) TableName() string { return "genetic_profiles" }

// RandomRequest is one row of the oracle's request/fulfillment ledger.
// Rows transition exactly once from pending to fulfilled and are never
// deleted; the table doubles as the audit trail.
//
// Fields:
//   - ID: monotonically increasing handle, assigned at request time.
//   - Requester: identity of the consumer that opened the request;
//     fulfillment callbacks are routed to it and to nothing else.
//   - Kind: request domain tag, used only for word-count validation.
//   - CorrelationID: opaque value meaningful only to the requester.
//   - Fulfilled: monotonic false→true.
//   - Words: JSON-encoded random words; empty until fulfilled, fixed
//     length (per kind) thereafter.
type RandomRequest struct {
	ID            uint64      `json:"id"             gorm:"primaryKey;autoIncrement"`
	Requester     string      `json:"requester"      gorm:"type:varchar(64);not null;index"`
	Kind          RequestKind `json:"kind"           gorm:"not null"`
	CorrelationID uint64      `json:"correlation_id" gorm:"not null"`
	Fulfilled     bool        `json:"fulfilled"      gorm:"not null;default:false"`
	Words         []uint64    `json:"words"          gorm:"serializer:json"`

	CreatedAt   time.Time  `json:"created_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}

// TableName returns the database table name for RandomRequest.
func (RandomRequest) TableName() string { return "random_requests" }

// BreedingRequest is one in-flight or historical breeding operation.
// Lifecycle: created at initiation (escrow taken, cooldown set); mutated once
// to attach OracleRequestID when randomness is requested; mutated a final
// time to Completed when the oracle callback resolves it. Never deleted.
//
// The phase discriminant is implicit: OracleRequestID == 0 means Initiated,
// nonzero with Completed == false means AwaitingRandomness.
type BreedingRequest struct {
	ID        uint64 `json:"id"         gorm:"primaryKey;autoIncrement"`
	OwnerID   string `json:"owner_id"   gorm:"type:varchar(64);not null;index"`
	Parent1ID uint64 `json:"parent1_id" gorm:"not null"`
	Parent2ID uint64 `json:"parent2_id" gorm:"not null"`

	InitiatedAt time.Time `json:"initiated_at" gorm:"not null"`
	ReadyAt     time.Time `json:"ready_at"     gorm:"not null"`
	Completed   bool      `json:"completed"    gorm:"not null;default:false"`
	Cancelled   bool      `json:"cancelled"    gorm:"not null;default:false"`

	// OracleRequestID is set exactly once, when the cooldown has elapsed
	// and randomness is requested. Indexed: fulfillment callbacks look the
	// row up by it.
	OracleRequestID uint64 `json:"oracle_request_id" gorm:"not null;default:0;index"`

	// ChildID is the minted offspring, set on completion.
	ChildID uint64 `json:"child_id" gorm:"not null;default:0"`

	// Modifiers chosen at initiation; immutable afterwards.
	Cost         int64 `json:"cost"          gorm:"not null"`
	UseBoost     bool  `json:"use_boost"     gorm:"not null;default:false"`
	UseSerum     bool  `json:"use_serum"     gorm:"not null;default:false"`
	UseEssence   bool  `json:"use_essence"   gorm:"not null;default:false"`
	FacilityTier int   `json:"facility_tier" gorm:"not null;default:0"`
}

// TableName returns the database table name for BreedingRequest.
func (BreedingRequest) TableName() string { return "breeding_requests" }

// Awaiting reports whether the request sits between its randomness request
// and the oracle callback.
func (r *BreedingRequest) Awaiting() bool {
	return r.OracleRequestID != 0 && !r.Completed && !r.Cancelled
}

// BreedingCombination maps a pair of elements to a breeding outcome. Rows are
// stored with ElementA <= ElementB so that (a,b) and (b,a) hit the same row;
// lookups normalize the same way, which makes symmetry structural rather than
// a convention callers must remember.
type BreedingCombination struct {
	ID             uint    `json:"id"              gorm:"primaryKey;autoIncrement"`
	ElementA       Element `json:"element_a"       gorm:"not null;uniqueIndex:ux_combo_pair,priority:1"`
	ElementB       Element `json:"element_b"       gorm:"not null;uniqueIndex:ux_combo_pair,priority:2"`
	ResultElement  Element `json:"result_element"  gorm:"not null"`
	MutationChance int     `json:"mutation_chance" gorm:"not null"`
	Special        bool    `json:"special"         gorm:"not null;default:false"`
	SpeciesName    string  `json:"species_name"    gorm:"type:varchar(64);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for BreedingCombination.
func (BreedingCombination) TableName() string { return "breeding_combinations" }

// Account is a utility-token balance row. The coordinator escrow is itself an
// account, so every debit has a matching credit and the table sums to a
// constant under breeding operations.
type Account struct {
	UserID    string    `json:"user_id" gorm:"type:varchar(64);primaryKey"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// BattleRecord is one requested or resolved battle. It follows the same
// two-phase shape as BreedingRequest: created pending with an oracle request
// attached, resolved exactly once by the fulfillment callback.
type BattleRecord struct {
	ID           uint64 `json:"id"            gorm:"primaryKey;autoIncrement"`
	ChallengerID string `json:"challenger_id" gorm:"type:varchar(64);not null;index"`
	PetAID       uint64 `json:"pet_a_id"      gorm:"not null"`
	PetBID       uint64 `json:"pet_b_id"      gorm:"not null"`

	OracleRequestID uint64 `json:"oracle_request_id" gorm:"not null;default:0;index"`
	Resolved        bool   `json:"resolved"          gorm:"not null;default:false"`
	WinnerID        uint64 `json:"winner_id"         gorm:"not null;default:0"`
	ScoreA          int    `json:"score_a"           gorm:"not null;default:0"`
	ScoreB          int    `json:"score_b"           gorm:"not null;default:0"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// TableName returns the database table name for BattleRecord.
func (BattleRecord) TableName() string { return "battle_records" }

// MintOrder is one purchased mystery box awaiting (or holding) its randomly
// generated pet.
type MintOrder struct {
	ID      uint64 `json:"id"       gorm:"primaryKey;autoIncrement"`
	OwnerID string `json:"owner_id" gorm:"type:varchar(64);not null;index"`
	Cost    int64  `json:"cost"     gorm:"not null"`

	OracleRequestID uint64 `json:"oracle_request_id" gorm:"not null;default:0;index"`
	Fulfilled       bool   `json:"fulfilled"         gorm:"not null;default:false"`
	PetID           uint64 `json:"pet_id"            gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MintOrder.
func (MintOrder) TableName() string { return "mint_orders" }
