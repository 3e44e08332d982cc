// Package oracle implements the randomness request/fulfillment ledger: an
// allow-listed set of consumers open requests, an external randomness source
// (or an administrator, through the manual escape hatch) delivers words
// exactly once per request, and the oracle synchronously invokes the
// requesting consumer's callback.
//
// Fault isolation is the central design point: a consumer callback that
// errors or panics never rolls back the oracle's own fulfillment record.
// The ledger is the source of truth; consumers that miss a callback recover
// through their own pull-based reprocess paths, reading the fulfilled words
// directly.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/repo"
)

var (
	// oracleRequests counts opened requests by kind.
	oracleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total number of randomness requests opened.",
		},
		[]string{"kind"},
	)

	// oracleFulfillments counts committed fulfillments by kind and delivery
	// mode ("source" or "manual").
	oracleFulfillments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_fulfillments_total",
			Help: "Total number of randomness fulfillments committed.",
		},
		[]string{"kind", "mode"},
	)

	// oracleCallbackFailures counts swallowed consumer callback failures.
	oracleCallbackFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_callback_failures_total",
			Help: "Total number of consumer callbacks that errored or panicked.",
		},
		[]string{"requester"},
	)
)

func init() {
	prometheus.MustRegister(oracleRequests, oracleFulfillments, oracleCallbackFailures)
}

// Fulfillment is the payload delivered to a consumer callback.
type Fulfillment struct {
	RequestID     uint64
	Kind          domain.RequestKind
	CorrelationID uint64
	Words         []uint64
}

// Consumer is the callback contract a randomness requester implements.
// callerID names who is invoking the callback; consumers must reject
// identities other than their configured oracle.
type Consumer interface {
	OnRandomnessFulfilled(ctx context.Context, callerID string, f Fulfillment) error
}

// Service is the oracle. Registered requesters and per-kind word counts are
// kept in memory under a lock (they are admin configuration, not ledger
// state); the request ledger itself lives in the database.
type Service struct {
	// DB is the GORM handle used for the request ledger.
	DB *gorm.DB
	// ID is the identity the oracle presents when invoking callbacks.
	ID string
	// Provider is the randomness source used when fulfillment is triggered
	// without explicit words.
	Provider Provider

	mu         sync.RWMutex
	consumers  map[string]Consumer
	wordCounts map[domain.RequestKind]int
}

// NewService constructs a Service with the default per-kind word counts.
func NewService(db *gorm.DB, p Provider) *Service {
	return &Service{
		DB:       db,
		ID:       "oracle",
		Provider: p,
		consumers: map[string]Consumer{},
		wordCounts: map[domain.RequestKind]int{
			domain.KindMinting:  5,
			domain.KindBattle:   3,
			domain.KindBreeding: 4,
			domain.KindEvent:    2,
		},
	}
}

// RegisterRequester allow-lists name and binds its callback.
func (s *Service) RegisterRequester(name string, c Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers[name] = c
}

// RemoveRequester revokes name's ability to open requests. Pending requests
// it already opened stay in the ledger; their callbacks are simply dropped.
func (s *Service) RemoveRequester(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.consumers, name)
}

// SetWordCount configures how many words kind's fulfillments must carry.
func (s *Service) SetWordCount(kind domain.RequestKind, n int) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	if n < 1 || n > 10 {
		return ErrInvalidWordCount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wordCounts[kind] = n
	return nil
}

// WordCount returns the configured word count for kind.
func (s *Service) WordCount(kind domain.RequestKind) (int, error) {
	if !kind.Valid() {
		return 0, ErrUnknownKind
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wordCounts[kind], nil
}

// WordCounts returns a copy of the full per-kind configuration.
func (s *Service) WordCounts() map[domain.RequestKind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.RequestKind]int, len(s.wordCounts))
	for k, v := range s.wordCounts {
		out[k] = v
	}
	return out
}

// Request opens a pending request for an allow-listed requester and returns
// its fresh monotonically increasing id. The external randomness source is
// expected to eventually deliver words for it via Fulfill.
func (s *Service) Request(ctx context.Context, requester string, kind domain.RequestKind, correlationID uint64) (uint64, error) {
	s.mu.RLock()
	_, allowed := s.consumers[requester]
	count := s.wordCounts[kind]
	s.mu.RUnlock()

	if !allowed {
		return 0, ErrUnauthorizedRequester
	}
	if !kind.Valid() || count == 0 {
		return 0, ErrUnknownKind
	}

	r := &domain.RandomRequest{
		Requester:     requester,
		Kind:          kind,
		CorrelationID: correlationID,
	}
	if err := repo.CreateRandomRequest(ctx, s.DB, r); err != nil {
		return 0, err
	}

	oracleRequests.WithLabelValues(kind.String()).Inc()
	log.Info().
		Uint64("request_id", r.ID).
		Str("requester", requester).
		Str("kind", kind.String()).
		Uint64("correlation_id", correlationID).
		Msg("randomness requested")
	return r.ID, nil
}

// Get returns the ledger row for id. Words are readable after fulfillment
// regardless of whether the consumer callback succeeded.
func (s *Service) Get(ctx context.Context, id uint64) (*domain.RandomRequest, error) {
	r, err := repo.GetRandomRequest(ctx, s.DB, id)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// Fulfill records a delivery from the trusted randomness source and invokes
// the requester's callback.
func (s *Service) Fulfill(ctx context.Context, id uint64, words []uint64) error {
	return s.fulfill(ctx, id, words, "source")
}

// FulfillFromProvider draws the configured number of words from the bound
// Provider and fulfills id with them. This is the path local deployments use
// in place of an external randomness service.
func (s *Service) FulfillFromProvider(ctx context.Context, id uint64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Fulfilled {
		return ErrAlreadyFulfilled
	}
	count, err := s.WordCount(r.Kind)
	if err != nil {
		return err
	}
	words, err := s.Provider.RandomWords(ctx, count)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	return s.fulfill(ctx, id, words, "source")
}

// ManualFulfill is the privileged escape hatch for recovering from a stuck
// randomness source. It enforces the same once-only and word-count
// invariants as Fulfill.
func (s *Service) ManualFulfill(ctx context.Context, id uint64, words []uint64) error {
	return s.fulfill(ctx, id, words, "manual")
}

func (s *Service) fulfill(ctx context.Context, id uint64, words []uint64, mode string) error {
	r, err := repo.GetRandomRequest(ctx, s.DB, id)
	if err != nil {
		if err == repo.ErrNotFound {
			return ErrNotFound
		}
		return err
	}
	if r.Fulfilled {
		return ErrAlreadyFulfilled
	}

	count, err := s.WordCount(r.Kind)
	if err != nil {
		return err
	}
	if len(words) != count {
		return ErrWordCount
	}

	// Guarded flip; a racing delivery loses here and the first words stand.
	ok, err := repo.FulfillRandomRequest(ctx, s.DB, id, words, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyFulfilled
	}

	oracleFulfillments.WithLabelValues(r.Kind.String(), mode).Inc()
	log.Info().
		Uint64("request_id", id).
		Str("kind", r.Kind.String()).
		Str("mode", mode).
		Msg("randomness fulfilled")

	s.deliver(ctx, r, words)
	return nil
}

// deliver invokes the requester's callback, swallowing errors and panics.
// The fulfillment above has already committed; a misbehaving consumer must
// never be able to brick the shared ledger.
func (s *Service) deliver(ctx context.Context, r *domain.RandomRequest, words []uint64) {
	s.mu.RLock()
	c, ok := s.consumers[r.Requester]
	s.mu.RUnlock()
	if !ok {
		oracleCallbackFailures.WithLabelValues(r.Requester).Inc()
		log.Warn().
			Uint64("request_id", r.ID).
			Str("requester", r.Requester).
			Msg("no registered consumer for fulfilled request")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			oracleCallbackFailures.WithLabelValues(r.Requester).Inc()
			log.Error().
				Uint64("request_id", r.ID).
				Str("requester", r.Requester).
				Interface("panic", rec).
				Msg("consumer callback panicked")
		}
	}()

	f := Fulfillment{
		RequestID:     r.ID,
		Kind:          r.Kind,
		CorrelationID: r.CorrelationID,
		Words:         words,
	}
	if err := c.OnRandomnessFulfilled(ctx, s.ID, f); err != nil {
		oracleCallbackFailures.WithLabelValues(r.Requester).Inc()
		log.Error().
			Err(err).
			Uint64("request_id", r.ID).
			Str("requester", r.Requester).
			Msg("consumer callback failed")
	}
}
