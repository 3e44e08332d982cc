// Pet HTTP handlers.
//
// This file exposes REST endpoints for pet resources:
//   - GET /pets                              (list, paginated, ETag support)
//   - GET /pets/{id}                         (fetch one)
//   - GET /pets/{id}/profile                 (genetic profile)
//   - GET /pets/{id}/compatibility/{other}   (breeding compatibility score)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/breeding"
	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/repo"
	"github.com/petverse/go-pets-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// BreedingService defines the breeding lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BreedingService interface {
	// Initiate opens a breeding between two parents owned by ownerID.
	Initiate(ctx context.Context, ownerID string, parent1ID, parent2ID uint64, mods breeding.Modifiers) (*domain.BreedingRequest, error)
	// Complete requests oracle randomness once the cooldown has elapsed and
	// returns the oracle request id.
	Complete(ctx context.Context, ownerID string, requestID uint64) (uint64, error)
	// Reprocess re-runs offspring resolution from committed randomness.
	Reprocess(ctx context.Context, ownerID string, requestID uint64) error
	// Cancel aborts a breeding before randomness was requested.
	Cancel(ctx context.Context, ownerID string, requestID uint64) error
	// Get returns one breeding request owned by ownerID.
	Get(ctx context.Context, ownerID string, requestID uint64) (*domain.BreedingRequest, error)
	// Compatibility scores a prospective pairing.
	Compatibility(ctx context.Context, petID, otherID uint64) (score, bonus int, err error)
}

// BattleService defines battle operations consumed by HTTP handlers.
type BattleService interface {
	// Challenge opens a battle between the challenger's pet and an opponent.
	Challenge(ctx context.Context, challengerID string, petAID, petBID uint64) (*domain.BattleRecord, error)
	// Get returns one battle record.
	Get(ctx context.Context, id uint64) (*domain.BattleRecord, error)
	// Reprocess re-runs battle resolution from committed randomness.
	Reprocess(ctx context.Context, challengerID string, battleID uint64) error
}

// MintingService defines mystery-box operations consumed by HTTP handlers.
type MintingService interface {
	// Purchase debits the buyer and opens a mint order.
	Purchase(ctx context.Context, ownerID string) (*domain.MintOrder, error)
	// Get returns one mint order.
	Get(ctx context.Context, id uint64) (*domain.MintOrder, error)
	// Reprocess re-runs hatching from committed randomness.
	Reprocess(ctx context.Context, ownerID string, orderID uint64) error
}

// OracleService defines the randomness ledger operations consumed by the
// provider and admin endpoints.
type OracleService interface {
	// Get returns one randomness request from the ledger.
	Get(ctx context.Context, id uint64) (*domain.RandomRequest, error)
	// ManualFulfill writes operator-supplied words into a pending request.
	ManualFulfill(ctx context.Context, id uint64, words []uint64) error
	// FulfillFromProvider draws words from the configured entropy source.
	FulfillFromProvider(ctx context.Context, id uint64) error
	// SetWordCount reconfigures how many words a request kind consumes.
	SetWordCount(kind domain.RequestKind, n int) error
	// WordCounts snapshots the per-kind word configuration.
	WordCounts() map[domain.RequestKind]int
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for pets, breeding, battles, minting, and
// the randomness oracle. It depends on abstract service interfaces to keep
// transport concerns separate from business logic; the DB handle is used only
// for read paths (listing, ETags, idempotency records).
type Handlers struct {
	db        *gorm.DB
	breedSvc  BreedingService
	battleSvc BattleService
	mintSvc   MintingService
	oracleSvc OracleService

	// IdempotencyTTL bounds replay detection for unsafe endpoints.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(db *gorm.DB, breedSvc BreedingService, battleSvc BattleService, mintSvc MintingService, oracleSvc OracleService) *Handlers {
	return &Handlers{
		db:             db,
		breedSvc:       breedSvc,
		battleSvc:      battleSvc,
		mintSvc:        mintSvc,
		oracleSvc:      oracleSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPetsResponse wraps a page of pets and pagination information.
type ListPetsResponse struct {
	Pets       []domain.Pet `json:"pets"`
	Pagination Pagination   `json:"pagination"`
}

// CompatibilityResponse reports the compatibility score for a pairing.
type CompatibilityResponse struct {
	PetID        uint64 `json:"pet_id"`
	OtherID      uint64 `json:"other_id"`
	Score        int    `json:"score"`
	ElementBonus int    `json:"element_bonus"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// pathID parses the named path parameter as a positive integer id. On failure
// it writes a 400 response and reports ok=false.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

//
// Handlers
//

// ListPets godoc
// @ID          listPets
// @Summary     List pets (paginated)
// @Description Returns a page of the user's pets. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Pets
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPetsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pets [get]
func (h *Handlers) ListPets(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	count, maxTS, err := repo.PetsStats(ctx, h.db, uid)
	if err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"pets:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	total, err := repo.CountPets(ctx, h.db, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListPetsPage(ctx, h.db, uid, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPetsResponse{
		Pets: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetPet godoc
// @ID          getPet
// @Summary     Fetch a pet
// @Description Returns one pet by id. Pets are public; ownership is not required to view.
// @Tags        Pets
// @Produce     json
//
// @Param       id  path  int  true  "Pet ID"  minimum(1)
//
// @Success     200  {object} domain.Pet
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Pet not found"
// @Router      /pets/{id} [get]
func (h *Handlers) GetPet(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	p, err := repo.GetPet(c.Request.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "pet not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// GetPetProfile godoc
// @ID          getPetProfile
// @Summary     Fetch a pet's genetic profile
// @Description Returns the derived genetic trait profile for a pet.
// @Tags        Pets
// @Produce     json
//
// @Param       id  path  int  true  "Pet ID"  minimum(1)
//
// @Success     200  {object} domain.GeneticProfile
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Profile not found"
// @Router      /pets/{id}/profile [get]
func (h *Handlers) GetPetProfile(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	gp, err := repo.GetProfile(c.Request.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "genetic profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gp)
}

// GetCompatibility godoc
// @ID          getCompatibility
// @Summary     Score a prospective pairing
// @Description Returns the breeding compatibility score and element bonus for two pets.
// @Tags        Pets
// @Produce     json
//
// @Param       id        path  int  true  "Pet ID"        minimum(1)
// @Param       other_id  path  int  true  "Other pet ID"  minimum(1)
//
// @Success     200  {object} handlers.CompatibilityResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Pet not found"
// @Router      /pets/{id}/compatibility/{other_id} [get]
func (h *Handlers) GetCompatibility(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	other, okOther := pathID(c, "other_id")
	if !okOther {
		return
	}
	score, bonus, err := h.breedSvc.Compatibility(c.Request.Context(), id, other)
	if err != nil {
		if errors.Is(err, breeding.ErrPetNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "pet not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CompatibilityResponse{
		PetID:        id,
		OtherID:      other,
		Score:        score,
		ElementBonus: bonus,
	})
}

// GetWallet godoc
// @ID          getWallet
// @Summary     Fetch the current user's token balance
// @Tags        Wallet
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} map[string]any
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /wallet [get]
func (h *Handlers) GetWallet(c *gin.Context) {
	uid := userID(c)
	bal, err := repo.GetBalance(c.Request.Context(), h.db, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"user_id": uid, "balance": bal})
}
