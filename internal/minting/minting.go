// Package minting sells mystery boxes and hatches generation-zero pets from
// oracle randomness. A purchase debits the buyer, opens a five-word oracle
// request, and the fulfillment callback derives the pet: one word seeds the
// DNA, one picks the element, one the rarity, one the stat spread and one
// the species variant.
package minting

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/genetics"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
	"github.com/petverse/go-pets-backend/internal/utils"
)

const (
	// BoxCost is the mystery box price in game currency units.
	BoxCost int64 = 200
	// minWords is the randomness a mint consumes.
	minWords = 5
)

var (
	// ErrInsufficientBalance is returned when the buyer cannot cover the box.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrOrderNotFound indicates the mint order id is unknown.
	ErrOrderNotFound = errors.New("mint order not found")
	// ErrAlreadyFulfilled is returned for operations on a hatched order.
	ErrAlreadyFulfilled = errors.New("mint order already fulfilled")
	// ErrRandomnessPending is returned on a reprocess attempt while the
	// oracle request is still unfulfilled.
	ErrRandomnessPending = errors.New("randomness not fulfilled yet")
	// ErrNotRequested is returned on a reprocess attempt for an order whose
	// oracle request never opened.
	ErrNotRequested = errors.New("randomness not requested yet")
	// ErrNotOwner is returned when someone else's order is reprocessed.
	ErrNotOwner = errors.New("order belongs to another account")
	// ErrUnauthorizedCaller is returned for callbacks from identities other
	// than the configured oracle.
	ErrUnauthorizedCaller = errors.New("caller is not the configured oracle")
	// ErrWrongKind is returned when a fulfillment carries a non-minting kind.
	ErrWrongKind = errors.New("wrong request kind")
	// ErrInsufficientRandomness is returned when a fulfillment carries fewer
	// than five words.
	ErrInsufficientRandomness = errors.New("insufficient randomness")
)

var petsMinted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "pets_minted_total",
	Help: "Total number of generation-zero pets minted, by rarity.",
}, []string{"rarity"})

func init() {
	prometheus.MustRegister(petsMinted)
}

// Generation-zero rarities are rolled against their own buckets rather than
// the parent-derived breeding table.
func mintRarity(roll uint64) domain.Rarity {
	switch r := roll % 100; {
	case r < 60:
		return domain.RarityCommon
	case r < 85:
		return domain.RarityRare
	case r < 97:
		return domain.RarityEpic
	default:
		return domain.RarityLegendary
	}
}

// Two species per element; the fifth word picks the variant.
var speciesByElement = map[domain.Element][2]string{
	domain.ElementFire:  {"emberling", "cinder pup"},
	domain.ElementWater: {"dewfin", "tide sprite"},
	domain.ElementEarth: {"pebblekin", "moss golem"},
	domain.ElementAir:   {"zephyrling", "cloud wisp"},
	domain.ElementSteam: {"mistling", "vapor imp"},
	domain.ElementLava:  {"cinderox", "magma whelp"},
	domain.ElementMud:   {"boggart", "silt crawler"},
	domain.ElementStorm: {"galewing", "thunder kit"},
}

// Per-rarity stat floors for generation zero.
var statBase = map[domain.Rarity]int{
	domain.RarityCommon:    50,
	domain.RarityRare:      70,
	domain.RarityEpic:      90,
	domain.RarityLegendary: 110,
}

// RandomSource is the slice of the oracle this service depends on.
type RandomSource interface {
	Request(ctx context.Context, requester string, kind domain.RequestKind, correlationID uint64) (uint64, error)
}

// Service sells boxes and hatches pets on fulfillment.
type Service struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Oracle is the randomness source.
	Oracle RandomSource
	// OracleID is the identity fulfillment callbacks must present.
	OracleID string
	// Requester is the name this service registered with the oracle.
	Requester string
	// TreasuryAccount receives box payments.
	TreasuryAccount string
}

// NewService constructs a minting Service with default identities.
func NewService(db *gorm.DB, src RandomSource) *Service {
	return &Service{
		DB:              db,
		Oracle:          src,
		OracleID:        "oracle",
		Requester:       "minting",
		TreasuryAccount: "minting:treasury",
	}
}

// Purchase sells one mystery box. The order and its oracle request are opened
// first; the buyer is debited only in the transaction that attaches the
// request. A failed oracle call leaves the balance untouched and discards
// the order.
func (s *Service) Purchase(ctx context.Context, ownerID string) (*domain.MintOrder, error) {
	bal, err := repo.GetBalance(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	if bal < BoxCost {
		return nil, ErrInsufficientBalance
	}

	m := &domain.MintOrder{OwnerID: ownerID, Cost: BoxCost}
	if err := repo.CreateMintOrder(ctx, s.DB, m); err != nil {
		return nil, err
	}

	oracleID, err := s.Oracle.Request(ctx, s.Requester, domain.KindMinting, m.ID)
	if err != nil {
		s.discard(ctx, m.ID)
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.Transfer(ctx, tx, ownerID, s.TreasuryAccount, BoxCost); err != nil {
			if errors.Is(err, repo.ErrInsufficientFunds) {
				return ErrInsufficientBalance
			}
			return err
		}
		ok, err := repo.AttachMintOracle(ctx, tx, m.ID, oracleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyFulfilled
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, m.ID)
		return nil, err
	}
	m.OracleRequestID = oracleID

	log.Info().
		Uint64("order_id", m.ID).
		Uint64("oracle_request_id", oracleID).
		Str("owner", ownerID).
		Msg("mystery box purchased")
	return m, nil
}

// discard best-effort removes an order that never got its oracle request.
func (s *Service) discard(ctx context.Context, id uint64) {
	if _, err := repo.DeleteUnattachedMintOrder(ctx, s.DB, id); err != nil {
		log.Warn().Err(err).Uint64("order_id", id).Msg("could not discard unpaid mint order")
	}
}

// Get returns a mint order by id.
func (s *Service) Get(ctx context.Context, id uint64) (*domain.MintOrder, error) {
	m, err := repo.GetMintOrder(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return m, nil
}

// OnRandomnessFulfilled is the oracle callback.
func (s *Service) OnRandomnessFulfilled(ctx context.Context, callerID string, f oracle.Fulfillment) error {
	if callerID != s.OracleID {
		return ErrUnauthorizedCaller
	}
	if f.Kind != domain.KindMinting {
		return ErrWrongKind
	}
	m, err := repo.GetMintOrderByOracleID(ctx, s.DB, f.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if m.Fulfilled {
		return ErrAlreadyFulfilled
	}
	return s.hatch(ctx, m, f.Words)
}

// Reprocess re-runs hatching from the committed oracle words after a
// swallowed callback failure.
func (s *Service) Reprocess(ctx context.Context, ownerID string, orderID uint64) error {
	m, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if m.OwnerID != ownerID {
		return ErrNotOwner
	}
	if m.Fulfilled {
		return ErrAlreadyFulfilled
	}
	if m.OracleRequestID == 0 {
		return ErrNotRequested
	}
	rr, err := repo.GetRandomRequest(ctx, s.DB, m.OracleRequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotRequested
		}
		return err
	}
	if !rr.Fulfilled {
		return ErrRandomnessPending
	}
	return s.hatch(ctx, m, rr.Words)
}

func (s *Service) hatch(ctx context.Context, m *domain.MintOrder, words []uint64) error {
	if len(words) < minWords {
		return ErrInsufficientRandomness
	}

	seg := genetics.ExpandWords(words[0], 4)
	dna := domain.DNA{seg[0], seg[1], seg[2], seg[3]}
	element := domain.Element(words[1] % domain.ElementCount)
	rarity := mintRarity(words[2])

	names := speciesByElement[element]
	species := utils.SpeciesName(names[words[4]%2])
	stats := mintStats(rarity, genetics.MixWord(dna, words[3]))

	pet := &domain.Pet{
		OwnerID:   m.OwnerID,
		Name:      species,
		Species:   species,
		Element:   element,
		Rarity:    rarity,
		DNA:       dna.String(),
		Level:     1,
		Happiness: 100,
	}
	pet.SetStats(stats)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreatePet(ctx, tx, pet); err != nil {
			return err
		}
		profile := genetics.DeriveProfile(dna, element, 0)
		if err := repo.CreateProfile(ctx, tx, profile.ToModel(pet.ID)); err != nil {
			return err
		}
		ok, err := repo.FulfillMintOrder(ctx, tx, m.ID, pet.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyFulfilled
		}
		return nil
	})
	if err != nil {
		return err
	}

	petsMinted.WithLabelValues(rarity.String()).Inc()
	log.Info().
		Uint64("order_id", m.ID).
		Uint64("pet_id", pet.ID).
		Str("species", species).
		Str("rarity", rarity.String()).
		Msg("mystery box hatched")
	return nil
}

// mintStats spreads each stat over its rarity floor using one DNA segment,
// giving up to 40 points of per-stat variance.
func mintStats(rarity domain.Rarity, roll domain.DNA) domain.Stats {
	base := statBase[rarity]
	var st domain.Stats
	for i := range st {
		v := base + int(roll.Segment(i)%41)
		if v > domain.StatMax {
			v = domain.StatMax
		}
		st[i] = v
	}
	return st
}
