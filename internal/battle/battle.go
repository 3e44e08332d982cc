// Package battle implements the battle randomness consumer. It follows the
// same two-phase adapter shape as the breeding coordinator: a challenge
// opens an oracle request, the fulfillment callback resolves the fight, and
// a pull-based Reprocess path covers swallowed callbacks.
package battle

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
)

// Battle resolution consumes three words: variance for each side and a
// tie-break.
const minWords = 3

var (
	// ErrPetNotFound indicates a referenced combatant does not exist.
	ErrPetNotFound = errors.New("pet not found")
	// ErrNotOwner is returned when the challenger does not own their pet.
	ErrNotOwner = errors.New("challenger does not own this pet")
	// ErrSamePet is returned when a pet is challenged against itself.
	ErrSamePet = errors.New("a pet cannot battle itself")
	// ErrBattleNotFound indicates the battle id is unknown.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrAlreadyResolved is returned for operations on a finished battle.
	ErrAlreadyResolved = errors.New("battle already resolved")
	// ErrRandomnessPending is returned on a reprocess attempt while the
	// oracle request is still unfulfilled.
	ErrRandomnessPending = errors.New("randomness not fulfilled yet")
	// ErrNotRequested is returned on a reprocess attempt for a battle whose
	// oracle request never opened.
	ErrNotRequested = errors.New("randomness not requested yet")
	// ErrUnauthorizedCaller is returned for callbacks from identities other
	// than the configured oracle.
	ErrUnauthorizedCaller = errors.New("caller is not the configured oracle")
	// ErrWrongKind is returned when a fulfillment carries a non-battle kind.
	ErrWrongKind = errors.New("wrong request kind")
	// ErrInsufficientRandomness is returned when a fulfillment carries fewer
	// than three words.
	ErrInsufficientRandomness = errors.New("insufficient randomness")
)

var battlesResolved = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "battles_resolved_total",
	Help: "Total number of battles resolved.",
})

func init() {
	prometheus.MustRegister(battlesResolved)
}

// beats is the element advantage cycle; an advantaged attacker's score is
// raised by 15%.
var beats = map[domain.Element]domain.Element{
	domain.ElementFire:  domain.ElementAir,
	domain.ElementAir:   domain.ElementEarth,
	domain.ElementEarth: domain.ElementWater,
	domain.ElementWater: domain.ElementFire,
	domain.ElementSteam: domain.ElementLava,
	domain.ElementLava:  domain.ElementMud,
	domain.ElementMud:   domain.ElementStorm,
	domain.ElementStorm: domain.ElementSteam,
}

// RandomSource is the slice of the oracle this service depends on.
type RandomSource interface {
	Request(ctx context.Context, requester string, kind domain.RequestKind, correlationID uint64) (uint64, error)
}

// Service runs challenges and resolves them on fulfillment.
type Service struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Oracle is the randomness source.
	Oracle RandomSource
	// OracleID is the identity fulfillment callbacks must present.
	OracleID string
	// Requester is the name this service registered with the oracle.
	Requester string
	// Now supplies the current time; tests substitute a fixed clock.
	Now func() time.Time
}

// NewService constructs a battle Service with default identities.
func NewService(db *gorm.DB, src RandomSource) *Service {
	return &Service{
		DB:        db,
		Oracle:    src,
		OracleID:  "oracle",
		Requester: "battle",
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Challenge opens a battle between the challenger's pet and an opponent and
// requests randomness for its resolution.
func (s *Service) Challenge(ctx context.Context, challengerID string, petAID, petBID uint64) (*domain.BattleRecord, error) {
	if petAID == petBID {
		return nil, ErrSamePet
	}
	a, err := repo.GetPet(ctx, s.DB, petAID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	if _, err := repo.GetPet(ctx, s.DB, petBID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	if a.OwnerID != challengerID {
		return nil, ErrNotOwner
	}

	b := &domain.BattleRecord{ChallengerID: challengerID, PetAID: petAID, PetBID: petBID}
	if err := repo.CreateBattleRecord(ctx, s.DB, b); err != nil {
		return nil, err
	}
	oracleID, err := s.Oracle.Request(ctx, s.Requester, domain.KindBattle, b.ID)
	if err != nil {
		if _, derr := repo.DeleteUnattachedBattle(ctx, s.DB, b.ID); derr != nil {
			log.Warn().Err(derr).Uint64("battle_id", b.ID).Msg("could not discard unrequested battle")
		}
		return nil, err
	}
	if _, err := repo.AttachBattleOracle(ctx, s.DB, b.ID, oracleID); err != nil {
		return nil, err
	}
	b.OracleRequestID = oracleID

	log.Info().
		Uint64("battle_id", b.ID).
		Uint64("oracle_request_id", oracleID).
		Uint64("pet_a", petAID).
		Uint64("pet_b", petBID).
		Msg("battle challenged")
	return b, nil
}

// Get returns a battle record by id.
func (s *Service) Get(ctx context.Context, id uint64) (*domain.BattleRecord, error) {
	b, err := repo.GetBattleRecord(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return b, nil
}

// OnRandomnessFulfilled is the oracle callback.
func (s *Service) OnRandomnessFulfilled(ctx context.Context, callerID string, f oracle.Fulfillment) error {
	if callerID != s.OracleID {
		return ErrUnauthorizedCaller
	}
	if f.Kind != domain.KindBattle {
		return ErrWrongKind
	}
	b, err := repo.GetBattleByOracleID(ctx, s.DB, f.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBattleNotFound
		}
		return err
	}
	if b.Resolved {
		return ErrAlreadyResolved
	}
	return s.resolve(ctx, b, f.Words)
}

// Reprocess re-runs resolution from the committed oracle words after a
// swallowed callback failure.
func (s *Service) Reprocess(ctx context.Context, challengerID string, battleID uint64) error {
	b, err := s.Get(ctx, battleID)
	if err != nil {
		return err
	}
	if b.ChallengerID != challengerID {
		return ErrNotOwner
	}
	if b.Resolved {
		return ErrAlreadyResolved
	}
	if b.OracleRequestID == 0 {
		return ErrNotRequested
	}
	rr, err := repo.GetRandomRequest(ctx, s.DB, b.OracleRequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotRequested
		}
		return err
	}
	if !rr.Fulfilled {
		return ErrRandomnessPending
	}
	return s.resolve(ctx, b, rr.Words)
}

func (s *Service) resolve(ctx context.Context, b *domain.BattleRecord, words []uint64) error {
	if len(words) < minWords {
		return ErrInsufficientRandomness
	}
	a, err := repo.GetPet(ctx, s.DB, b.PetAID)
	if err != nil {
		return err
	}
	d, err := repo.GetPet(ctx, s.DB, b.PetBID)
	if err != nil {
		return err
	}

	scoreA := score(a, d.Element, words[0])
	scoreB := score(d, a.Element, words[1])

	winner := b.PetAID
	if scoreB > scoreA || (scoreB == scoreA && words[2]%2 == 1) {
		winner = b.PetBID
	}

	ok, err := repo.ResolveBattle(ctx, s.DB, b.ID, winner, scoreA, scoreB, s.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}

	battlesResolved.Inc()
	log.Info().
		Uint64("battle_id", b.ID).
		Uint64("winner", winner).
		Int("score_a", scoreA).
		Int("score_b", scoreB).
		Msg("battle resolved")
	return nil
}

// score computes a combatant's battle score: a stat-weighted base, a level
// term, a word-derived variance of up to 50, and a 15% element-advantage
// raise.
func score(p *domain.Pet, opponent domain.Element, word uint64) int {
	st := p.Stats()
	base := 3*st[0] + 2*st[1] + st[2] + 2*st[3] + st[4] + st[5] + 10*p.Level
	base += int(word % 50)
	if beats[p.Element] == opponent {
		base += base * 15 / 100
	}
	return base
}
