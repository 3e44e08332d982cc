// Oracle and administration HTTP handlers.
//
// This file exposes the randomness-provider and operator surfaces:
//   - GET  /oracle/requests/{id}                (inspect the randomness ledger)
//   - POST /oracle/requests/{id}/fulfill        (provider: draw words from the entropy source)
//   - POST /admin/oracle/requests/{id}/fulfill  (operator: supply explicit words)
//   - GET  /admin/oracle/word-counts            (per-kind word configuration)
//   - PUT  /admin/oracle/word-counts            (reconfigure a kind)
//   - GET  /admin/combinations                  (breeding combination table)
//   - PUT  /admin/combinations                  (upsert one combination)
//   - POST /admin/wallet/credit                 (faucet for the utility token)
//   - GET  /admin/stats                         (operational counters)
//
// The router guards these routes with shared-secret header checks; handlers
// assume the caller is already authenticated.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
)

//
// DTOs
//

// FulfillRequest is the JSON payload for the operator fulfill endpoint.
type FulfillRequest struct {
	// Words are the randomness words to deliver; the count must match the
	// kind's configuration.
	Words []uint64 `json:"words" binding:"required,min=1"`
}

// WordCountUpdate is the JSON payload for reconfiguring a request kind.
type WordCountUpdate struct {
	// Kind is the numeric request kind (0=minting 1=battle 2=breeding 3=event).
	Kind uint8 `json:"kind"`
	// Count is the number of words the kind consumes, 1..10.
	Count int `json:"count" binding:"required"`
}

// CombinationUpdate is the JSON payload for upserting a breeding combination.
type CombinationUpdate struct {
	ElementA       domain.Element `json:"element_a"`
	ElementB       domain.Element `json:"element_b"`
	ResultElement  domain.Element `json:"result_element"`
	MutationChance int            `json:"mutation_chance"`
	Special        bool           `json:"special"`
	SpeciesName    string         `json:"species_name" binding:"required,min=1,max=64"`
}

// CreditRequest is the JSON payload for the token faucet.
type CreditRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// failOracle translates oracle sentinel errors into HTTP responses.
func failOracle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, oracle.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, oracle.ErrAlreadyFulfilled):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, oracle.ErrWordCount), errors.Is(err, oracle.ErrInvalidWordCount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeFulfillFailed, err.Error())
	}
}

//
// Handlers
//

// GetOracleRequest godoc
// @ID          getOracleRequest
// @Summary     Inspect a randomness request
// @Description Returns one entry from the randomness ledger, including delivered words once fulfilled.
// @Tags        Oracle
// @Produce     json
//
// @Param       id  path  int  true  "Oracle request ID"  minimum(1)
//
// @Success     200  {object} domain.RandomRequest
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /oracle/requests/{id} [get]
func (h *Handlers) GetOracleRequest(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	rr, err := h.oracleSvc.Get(c.Request.Context(), id)
	if err != nil {
		failOracle(c, err)
		return
	}
	ok(c, http.StatusOK, rr)
}

// FulfillFromProvider godoc
// @ID          fulfillFromProvider
// @Summary     Fulfill a request from the entropy source
// @Description Draws the configured number of words from the entropy provider and delivers them to the requesting consumer. Requires the provider key.
// @Tags        Oracle
// @Produce     json
//
// @Param       X-Provider-Key  header  string  true  "Shared provider secret"
// @Param       id              path    int     true  "Oracle request ID"  minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Already fulfilled"
// @Router      /oracle/requests/{id}/fulfill [post]
func (h *Handlers) FulfillFromProvider(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.oracleSvc.FulfillFromProvider(c.Request.Context(), id); err != nil {
		failOracle(c, err)
		return
	}
	noContent(c)
}

// ManualFulfill godoc
// @ID          manualFulfill
// @Summary     Fulfill a request with explicit words
// @Description Delivers operator-supplied randomness words to the requesting consumer. The word count must match the kind's configuration. Requires the admin key.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
// @Param       id         path    int     true  "Oracle request ID"  minimum(1)
// @Param       body       body    handlers.FulfillRequest  true  "Words payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request / word count mismatch"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Already fulfilled"
// @Router      /admin/oracle/requests/{id}/fulfill [post]
func (h *Handlers) ManualFulfill(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	var req FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "words required")
		return
	}
	if err := h.oracleSvc.ManualFulfill(c.Request.Context(), id, req.Words); err != nil {
		failOracle(c, err)
		return
	}
	noContent(c)
}

// GetWordCounts godoc
// @ID          getWordCounts
// @Summary     List per-kind word counts
// @Tags        Admin
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
//
// @Success     200  {object} map[string]int
// @Router      /admin/oracle/word-counts [get]
func (h *Handlers) GetWordCounts(c *gin.Context) {
	counts := h.oracleSvc.WordCounts()
	out := make(map[string]int, len(counts))
	for k, n := range counts {
		out[k.String()] = n
	}
	ok(c, http.StatusOK, out)
}

// SetWordCount godoc
// @ID          setWordCount
// @Summary     Reconfigure a kind's word count
// @Description Changes how many randomness words one request kind consumes (1..10). In-flight requests keep the count they were created with.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
// @Param       body       body    handlers.WordCountUpdate  true  "Word count payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request / out of range"
// @Router      /admin/oracle/word-counts [put]
func (h *Handlers) SetWordCount(c *gin.Context) {
	var req WordCountUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind and count required")
		return
	}
	kind := domain.RequestKind(req.Kind)
	if !kind.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown request kind")
		return
	}
	if err := h.oracleSvc.SetWordCount(kind, req.Count); err != nil {
		failOracle(c, err)
		return
	}
	noContent(c)
}

// ListCombinations godoc
// @ID          listCombinations
// @Summary     List breeding combinations
// @Tags        Admin
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
//
// @Success     200  {array} domain.BreedingCombination
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/combinations [get]
func (h *Handlers) ListCombinations(c *gin.Context) {
	combos, err := repo.ListCombinations(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, combos)
}

// UpsertCombination godoc
// @ID          upsertCombination
// @Summary     Upsert a breeding combination
// @Description Creates or overwrites the combination row for an element pair. The pair is normalized, so (fire, water) and (water, fire) address the same row.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
// @Param       body       body    handlers.CombinationUpdate  true  "Combination payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/combinations [put]
func (h *Handlers) UpsertCombination(c *gin.Context) {
	var req CombinationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "species_name required")
		return
	}
	if !req.ElementA.Valid() || !req.ElementB.Valid() || !req.ResultElement.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown element")
		return
	}
	if req.MutationChance < 0 || req.MutationChance > 50 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mutation_chance must be in [0,50]")
		return
	}
	err := repo.UpsertCombination(c.Request.Context(), h.db, &domain.BreedingCombination{
		ElementA:       req.ElementA,
		ElementB:       req.ElementB,
		ResultElement:  req.ResultElement,
		MutationChance: req.MutationChance,
		Special:        req.Special,
		SpeciesName:    req.SpeciesName,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// CreditWallet godoc
// @ID          creditWallet
// @Summary     Credit a user's token balance
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
// @Param       body       body    handlers.CreditRequest  true  "Credit payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/wallet/credit [post]
func (h *Handlers) CreditWallet(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id and positive amount required")
		return
	}
	if err := repo.Credit(c.Request.Context(), h.db, req.UserID, req.Amount); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// GetStats godoc
// @ID          getStats
// @Summary     Operational counters
// @Description Returns aggregate counts for dashboards: pets, pending randomness, open and completed breedings, resolved battles, outstanding boxes.
// @Tags        Admin
// @Produce     json
//
// @Param       X-API-Key  header  string  true  "Admin secret"
//
// @Success     200  {object} repo.SystemStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := repo.GatherStats(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}
