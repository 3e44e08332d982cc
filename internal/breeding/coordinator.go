// Package breeding implements the two-phase breeding state machine:
// Initiated (escrow taken, cooldown running, parents' slots held) →
// AwaitingRandomness (oracle request attached, irrevocable) → Completed
// (offspring minted, slots released). Requests are historical records and
// are never deleted.
//
// The coordinator is a randomness consumer: it implements the oracle
// callback contract and additionally exposes a pull-based Reprocess path,
// because the oracle commits fulfillments even when a callback fails.
package breeding

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/genetics"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
	"github.com/petverse/go-pets-backend/internal/utils"
)

// Eligibility and cost constants.
const (
	BaseCooldown     = 48 * time.Hour
	FacilityCooldown = 4 * time.Hour // reduction per facility tier
	MaxFacilityTier  = 3

	MinLevel     = 10
	MinHappiness = 80

	BaseCost         int64 = 100
	BoostCost        int64 = 50
	SerumCost        int64 = 75
	EssenceCost      int64 = 120
	FacilityTierCost int64 = 25

	// Offspring generation consumes four words: DNA seed, element, rarity,
	// mutation.
	minWords = 4
)

var (
	breedingsInitiated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "breedings_initiated_total",
		Help: "Total number of breeding requests initiated.",
	})
	breedingsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "breedings_completed_total",
		Help: "Total number of breeding requests completed.",
	})
	specialCombinations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "breeding_special_combinations_total",
		Help: "Total number of offspring born from special element combinations.",
	})
)

func init() {
	prometheus.MustRegister(breedingsInitiated, breedingsCompleted, specialCombinations)
}

// breedAllowance maps rarity to how many offspring a pet may produce.
var breedAllowance = map[domain.Rarity]int{
	domain.RarityCommon:    5,
	domain.RarityRare:      4,
	domain.RarityEpic:      3,
	domain.RarityLegendary: 2,
}

// Modifiers are the optional add-ons chosen at initiation; immutable
// afterwards.
type Modifiers struct {
	UseBoost     bool `json:"use_boost"`     // halves the remaining cooldown
	UseSerum     bool `json:"use_serum"`     // guarantees rare-or-better offspring
	UseEssence   bool `json:"use_essence"`   // forces parent1's element
	FacilityTier int  `json:"facility_tier"` // 0..3, shortens cooldown per tier
}

// Cost returns the total utility-token cost for these modifiers.
func (m Modifiers) Cost() int64 {
	cost := BaseCost
	if m.UseBoost {
		cost += BoostCost
	}
	if m.UseSerum {
		cost += SerumCost
	}
	if m.UseEssence {
		cost += EssenceCost
	}
	return cost + FacilityTierCost*int64(m.FacilityTier)
}

// RandomSource is the slice of the oracle the coordinator depends on.
type RandomSource interface {
	Request(ctx context.Context, requester string, kind domain.RequestKind, correlationID uint64) (uint64, error)
}

// Coordinator orchestrates breeding. It validates eligibility, escrows the
// cost, holds the per-parent exclusive slots, requests randomness after the
// cooldown, and materializes the offspring when words arrive.
type Coordinator struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Oracle is the randomness source requests are opened against.
	Oracle RandomSource
	// OracleID is the identity fulfillment callbacks must present.
	OracleID string
	// Requester is the name this coordinator registered with the oracle.
	Requester string
	// EscrowAccount holds breeding fees between initiation and settlement.
	EscrowAccount string
	// BaseMutationRate is the mutation percentage before generation and
	// history adjustments.
	BaseMutationRate int
	// CancelEnabled switches on the Initiated-phase cancellation path.
	// AwaitingRandomness is irrevocable regardless.
	CancelEnabled bool
	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// NewCoordinator constructs a Coordinator with default identities and rates.
func NewCoordinator(db *gorm.DB, src RandomSource) *Coordinator {
	return &Coordinator{
		DB:               db,
		Oracle:           src,
		OracleID:         "oracle",
		Requester:        "breeding",
		EscrowAccount:    "breeding:escrow",
		BaseMutationRate: 5,
		Now:              func() time.Time { return time.Now().UTC() },
	}
}

// Initiate validates the pairing, debits the cost into escrow, claims both
// parents' breeding slots, and persists a new request in the Initiated
// phase. All checks pass or nothing changes.
func (c *Coordinator) Initiate(ctx context.Context, ownerID string, parent1ID, parent2ID uint64, mods Modifiers) (*domain.BreedingRequest, error) {
	if mods.FacilityTier < 0 || mods.FacilityTier > MaxFacilityTier {
		return nil, ErrInvalidModifiers
	}
	if parent1ID == parent2ID {
		return nil, ErrSameParent
	}

	p1, err := c.loadPet(ctx, parent1ID)
	if err != nil {
		return nil, err
	}
	p2, err := c.loadPet(ctx, parent2ID)
	if err != nil {
		return nil, err
	}

	if p1.OwnerID != ownerID || p2.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if p1.ActiveBreedingID != 0 || p2.ActiveBreedingID != 0 {
		return nil, ErrParentBusy
	}
	for _, p := range []*domain.Pet{p1, p2} {
		if p.Level < MinLevel || p.Happiness < MinHappiness {
			return nil, ErrIneligibleParent
		}
		if p.BreedCount >= breedAllowance[p.Rarity] {
			return nil, ErrBreedLimit
		}
	}
	if related(p1, p2) {
		return nil, ErrKinship
	}

	cost := mods.Cost()
	now := c.Now()
	cooldown := BaseCooldown - FacilityCooldown*time.Duration(mods.FacilityTier)
	if mods.UseBoost {
		cooldown /= 2
	}

	req := &domain.BreedingRequest{
		OwnerID:      ownerID,
		Parent1ID:    p1.ID,
		Parent2ID:    p2.ID,
		InitiatedAt:  now,
		ReadyAt:      now.Add(cooldown),
		Cost:         cost,
		UseBoost:     mods.UseBoost,
		UseSerum:     mods.UseSerum,
		UseEssence:   mods.UseEssence,
		FacilityTier: mods.FacilityTier,
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.Transfer(ctx, tx, ownerID, c.EscrowAccount, cost); err != nil {
			if errors.Is(err, repo.ErrInsufficientFunds) {
				return ErrInsufficientBalance
			}
			return err
		}
		if err := repo.CreateBreedingRequest(ctx, tx, req); err != nil {
			return err
		}
		for _, pid := range []uint64{p1.ID, p2.ID} {
			if err := repo.ClaimBreedingSlot(ctx, tx, pid, req.ID); err != nil {
				if errors.Is(err, repo.ErrSlotConflict) {
					return ErrParentBusy
				}
				return err
			}
		}
		// Lazy profile creation so breeding resolution always has both.
		if _, err := c.loadOrDeriveProfile(ctx, tx, p1); err != nil {
			return err
		}
		if _, err := c.loadOrDeriveProfile(ctx, tx, p2); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	breedingsInitiated.Inc()
	log.Info().
		Uint64("breeding_id", req.ID).
		Str("owner", ownerID).
		Uint64("parent1", p1.ID).
		Uint64("parent2", p2.ID).
		Int64("cost", cost).
		Time("ready_at", req.ReadyAt).
		Msg("breeding initiated")
	return req, nil
}

// Complete moves a ready request into the AwaitingRandomness phase by
// opening an oracle request for it. It costs nothing further and is the
// point of no return: once randomness is requested the breeding can no
// longer be cancelled.
func (c *Coordinator) Complete(ctx context.Context, ownerID string, requestID uint64) (uint64, error) {
	req, err := c.loadRequest(ctx, requestID)
	if err != nil {
		return 0, err
	}
	if req.OwnerID != ownerID {
		return 0, ErrNotOwner
	}
	if req.Completed || req.Cancelled {
		return 0, ErrAlreadyCompleted
	}
	if req.OracleRequestID != 0 {
		return 0, ErrAlreadyRequested
	}
	if c.Now().Before(req.ReadyAt) {
		return 0, ErrNotReady
	}

	oracleID, err := c.Oracle.Request(ctx, c.Requester, domain.KindBreeding, req.ID)
	if err != nil {
		return 0, err
	}
	ok, err := repo.AttachOracleRequest(ctx, c.DB, req.ID, oracleID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrAlreadyRequested
	}

	log.Info().
		Uint64("breeding_id", req.ID).
		Uint64("oracle_request_id", oracleID).
		Msg("breeding awaiting randomness")
	return oracleID, nil
}

// OnRandomnessFulfilled is the oracle callback. Only the configured oracle
// identity may invoke it, and only with breeding-kind fulfillments.
func (c *Coordinator) OnRandomnessFulfilled(ctx context.Context, callerID string, f oracle.Fulfillment) error {
	if callerID != c.OracleID {
		return ErrUnauthorizedCaller
	}
	if f.Kind != domain.KindBreeding {
		return ErrWrongKind
	}
	req, err := repo.GetBreedingRequestByOracleID(ctx, c.DB, f.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if req.Completed || req.Cancelled {
		return ErrAlreadyCompleted
	}
	return c.resolve(ctx, req, f.Words)
}

// Reprocess is the pull-based recovery path: after a swallowed callback
// failure the owner re-runs resolution against the words already committed
// in the oracle ledger.
func (c *Coordinator) Reprocess(ctx context.Context, ownerID string, requestID uint64) error {
	req, err := c.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.OwnerID != ownerID {
		return ErrNotOwner
	}
	if req.Completed || req.Cancelled {
		return ErrAlreadyCompleted
	}
	if req.OracleRequestID == 0 {
		return ErrNotRequested
	}

	rr, err := repo.GetRandomRequest(ctx, c.DB, req.OracleRequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if !rr.Fulfilled {
		return ErrRandomnessPending
	}
	return c.resolve(ctx, req, rr.Words)
}

// Cancel voids an Initiated-phase request, refunding escrow and releasing
// both slots. Only available when the deployment enables it; a request that
// already asked for randomness is irrevocable either way.
func (c *Coordinator) Cancel(ctx context.Context, ownerID string, requestID uint64) error {
	if !c.CancelEnabled {
		return ErrCancelDisabled
	}
	req, err := c.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.OwnerID != ownerID {
		return ErrNotOwner
	}
	if req.Completed || req.Cancelled || req.OracleRequestID != 0 {
		return ErrNotCancellable
	}

	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.CancelBreedingRequest(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotCancellable
		}
		for _, pid := range []uint64{req.Parent1ID, req.Parent2ID} {
			if err := repo.ReleaseBreedingSlot(ctx, tx, pid, req.ID); err != nil {
				return err
			}
		}
		return repo.Transfer(ctx, tx, c.EscrowAccount, ownerID, req.Cost)
	})
	if err != nil {
		return err
	}

	log.Info().Uint64("breeding_id", req.ID).Msg("breeding cancelled")
	return nil
}

// Get returns a request visible to its owner.
func (c *Coordinator) Get(ctx context.Context, ownerID string, requestID uint64) (*domain.BreedingRequest, error) {
	req, err := c.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return req, nil
}

// Compatibility scores a prospective pairing without mutating anything.
func (c *Coordinator) Compatibility(ctx context.Context, petID, otherID uint64) (score, bonus int, err error) {
	p1, err := c.loadPet(ctx, petID)
	if err != nil {
		return 0, 0, err
	}
	p2, err := c.loadPet(ctx, otherID)
	if err != nil {
		return 0, 0, err
	}
	score, bonus = genetics.Compatibility(p1.Element, p2.Element, p1.Rarity, p2.Rarity, p1.Generation, p2.Generation)
	return score, bonus, nil
}

// resolve materializes the offspring from the fulfilled words and closes the
// request. Runs in one transaction guarded by the completed flag, so a
// replayed callback or a concurrent reprocess commits at most once.
func (c *Coordinator) resolve(ctx context.Context, req *domain.BreedingRequest, words []uint64) error {
	if len(words) < minWords {
		return ErrInsufficientRandomness
	}

	p1, err := c.loadPet(ctx, req.Parent1ID)
	if err != nil {
		return err
	}
	p2, err := c.loadPet(ctx, req.Parent2ID)
	if err != nil {
		return err
	}
	d1, err := domain.ParseDNA(p1.DNA)
	if err != nil {
		return err
	}
	d2, err := domain.ParseDNA(p2.DNA)
	if err != nil {
		return err
	}

	combo, err := repo.GetCombination(ctx, c.DB, p1.Element, p2.Element)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	rate := c.BaseMutationRate
	if combo != nil {
		rate += combo.MutationChance
	}

	childDNA := genetics.CombineDNA(d1, d2, nil, rate, words[0])

	var forced *domain.Element
	if req.UseEssence {
		e := p1.Element
		forced = &e
	}
	element := genetics.OffspringElement(p1.Element, p2.Element, genetics.MixWord(childDNA, words[1]), forced)
	rarity := genetics.OffspringRarity(p1.Rarity, p2.Rarity, genetics.MixWord(childDNA, words[2]), req.UseSerum)

	gen := p1.Generation
	if p2.Generation > gen {
		gen = p2.Generation
	}
	gen++

	stats := genetics.OffspringStats(p1.Stats(), p2.Stats(), childDNA, gen)

	var child *domain.Pet
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof1, err := c.loadOrDeriveProfile(ctx, tx, p1)
		if err != nil {
			return err
		}
		prof2, err := c.loadOrDeriveProfile(ctx, tx, p2)
		if err != nil {
			return err
		}

		mutated, mtype := genetics.MutationRoll(
			p1.Generation, p2.Generation,
			prof1.MutationCount, prof2.MutationCount,
			rate, genetics.MixWord(childDNA, words[3]),
		)
		if mutated {
			element, rarity, stats = applyMutation(mtype, element, rarity, stats, genetics.MixWord(childDNA, words[3]))
		}

		special := combo != nil && combo.Special && element == combo.ResultElement
		species := p1.Species
		if special {
			species = combo.SpeciesName
		} else if words[0]%2 == 1 {
			species = p2.Species
		}
		species = utils.SpeciesName(species)

		child = &domain.Pet{
			OwnerID:    req.OwnerID,
			Name:       species,
			Species:    species,
			Element:    element,
			Rarity:     rarity,
			DNA:        childDNA.String(),
			Level:      1,
			Happiness:  100,
			Generation: gen,
			Parent1ID:  req.Parent1ID,
			Parent2ID:  req.Parent2ID,
		}
		child.SetStats(stats)
		if err := repo.CreatePet(ctx, tx, child); err != nil {
			return err
		}

		prof := genetics.OffspringProfile(prof1, prof2, childDNA, element, words[0], mutated)
		if err := repo.CreateProfile(ctx, tx, prof.ToModel(child.ID)); err != nil {
			return err
		}

		for _, pid := range []uint64{req.Parent1ID, req.Parent2ID} {
			if err := repo.IncrementBreedCount(ctx, tx, pid); err != nil {
				return err
			}
		}

		ok, err := repo.CompleteBreedingRequest(ctx, tx, req.ID, child.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCompleted
		}
		for _, pid := range []uint64{req.Parent1ID, req.Parent2ID} {
			if err := repo.ReleaseBreedingSlot(ctx, tx, pid, req.ID); err != nil {
				return err
			}
		}

		if special {
			specialCombinations.Inc()
			log.Info().
				Uint64("breeding_id", req.ID).
				Str("species", species).
				Msg("special combination offspring")
		}
		return nil
	})
	if err != nil {
		return err
	}

	breedingsCompleted.Inc()
	log.Info().
		Uint64("breeding_id", req.ID).
		Uint64("child_id", child.ID).
		Str("element", element.String()).
		Str("rarity", rarity.String()).
		Msg("breeding completed")
	return nil
}

// applyMutation adjusts offspring attributes for an occurred mutation.
// Deterministic in the roll DNA.
func applyMutation(mtype domain.MutationType, element domain.Element, rarity domain.Rarity, stats domain.Stats, roll domain.DNA) (domain.Element, domain.Rarity, domain.Stats) {
	boostStat := func() {
		i := int(roll.Segment(0)) % domain.StatCount
		stats[i] += 25
		if stats[i] > domain.StatMax {
			stats[i] = domain.StatMax
		}
	}
	bumpRarity := func() {
		if rarity < domain.RarityLegendary {
			rarity++
		}
	}
	rerollElement := func() {
		element = domain.Element(roll.Segment(1) % domain.ElementCount)
	}

	switch mtype {
	case domain.MutationStats:
		boostStat()
	case domain.MutationElement:
		rerollElement()
	case domain.MutationRarity:
		bumpRarity()
	case domain.MutationMultiple:
		boostStat()
		rerollElement()
		bumpRarity()
	}
	return element, rarity, stats
}

// related reports parent/offspring or shared-immediate-parent kinship.
// Genesis pets carry zero parent ids, which never match.
func related(p1, p2 *domain.Pet) bool {
	if p1.Parent1ID == p2.ID || p1.Parent2ID == p2.ID {
		return true
	}
	if p2.Parent1ID == p1.ID || p2.Parent2ID == p1.ID {
		return true
	}
	for _, a := range []uint64{p1.Parent1ID, p1.Parent2ID} {
		if a == 0 {
			continue
		}
		if a == p2.Parent1ID || a == p2.Parent2ID {
			return true
		}
	}
	return false
}

func (c *Coordinator) loadPet(ctx context.Context, id uint64) (*domain.Pet, error) {
	p, err := repo.GetPet(ctx, c.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	return p, nil
}

func (c *Coordinator) loadRequest(ctx context.Context, id uint64) (*domain.BreedingRequest, error) {
	req, err := repo.GetBreedingRequest(ctx, c.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// loadOrDeriveProfile returns the pet's genetic profile, deriving and
// persisting one deterministically from its DNA on first touch.
func (c *Coordinator) loadOrDeriveProfile(ctx context.Context, db *gorm.DB, p *domain.Pet) (genetics.Profile, error) {
	m, err := repo.GetProfile(ctx, db, p.ID)
	if err == nil {
		return genetics.ProfileFromModel(m)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return genetics.Profile{}, err
	}

	dna, err := domain.ParseDNA(p.DNA)
	if err != nil {
		return genetics.Profile{}, err
	}
	prof := genetics.DeriveProfile(dna, p.Element, p.Generation)
	if err := repo.CreateProfile(ctx, db, prof.ToModel(p.ID)); err != nil {
		return genetics.Profile{}, err
	}
	return prof, nil
}
