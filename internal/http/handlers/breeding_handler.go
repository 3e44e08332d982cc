// Breeding HTTP handlers.
//
// This file exposes REST endpoints for the breeding lifecycle:
//   - POST /breeding                  (initiate; escrow taken, cooldown set)
//   - GET  /breeding                  (list the user's breedings, paginated)
//   - GET  /breeding/{id}             (fetch one)
//   - POST /breeding/{id}/complete    (request randomness after the cooldown)
//   - POST /breeding/{id}/reprocess   (re-run resolution from stored words)
//   - POST /breeding/{id}/cancel      (abort before randomness, refund escrow)
//
// Handlers are transport-thin:
//   - validate & normalize inputs
//   - delegate to the breeding coordinator
//   - implement idempotency semantics on the initiate endpoint
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// initiation exists for (user, key), the handler returns the recorded breeding
// request and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petverse/go-pets-backend/internal/breeding"
	"github.com/petverse/go-pets-backend/internal/domain"
	"github.com/petverse/go-pets-backend/internal/repo"
)

// idemScopeBreeding keys idempotency records written by InitiateBreeding.
const idemScopeBreeding = "breeding"

//
// DTOs
//

// InitiateBreedingRequest is the JSON payload for starting a breeding.
type InitiateBreedingRequest struct {
	// Parent1ID and Parent2ID are the two distinct parents, both owned by the
	// caller.
	Parent1ID uint64 `json:"parent1_id" binding:"required" example:"12"`
	Parent2ID uint64 `json:"parent2_id" binding:"required" example:"34"`
	// Modifiers selects optional paid boosts for this breeding.
	Modifiers breeding.Modifiers `json:"modifiers"`
}

// CompleteBreedingResponse reports the oracle request opened by Complete.
type CompleteBreedingResponse struct {
	RequestID       uint64 `json:"request_id"`
	OracleRequestID uint64 `json:"oracle_request_id"`
}

// ListBreedingsResponse contains a page of breeding requests and pagination
// metadata.
type ListBreedingsResponse struct {
	Breedings  []domain.BreedingRequest `json:"breedings"`
	Pagination Pagination               `json:"pagination"`
}

//
// Helpers
//

// failBreeding translates coordinator sentinel errors into HTTP responses.
// Unknown errors become 500s with the breed_failed code.
func failBreeding(c *gin.Context, err error) {
	switch {
	case errors.Is(err, breeding.ErrPetNotFound), errors.Is(err, breeding.ErrRequestNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, breeding.ErrNotOwner), errors.Is(err, breeding.ErrCancelDisabled):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, breeding.ErrSameParent),
		errors.Is(err, breeding.ErrInvalidModifiers),
		errors.Is(err, breeding.ErrIneligibleParent),
		errors.Is(err, breeding.ErrBreedLimit),
		errors.Is(err, breeding.ErrKinship):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, breeding.ErrInsufficientBalance):
		fail(c, http.StatusPaymentRequired, ErrCodePaymentDue, err.Error())
	case errors.Is(err, breeding.ErrParentBusy),
		errors.Is(err, breeding.ErrNotReady),
		errors.Is(err, breeding.ErrAlreadyRequested),
		errors.Is(err, breeding.ErrAlreadyCompleted),
		errors.Is(err, breeding.ErrNotRequested),
		errors.Is(err, breeding.ErrRandomnessPending),
		errors.Is(err, breeding.ErrNotCancellable):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeBreedFailed, err.Error())
	}
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// InitiateBreeding godoc
// @ID          initiateBreeding
// @Summary     Start a breeding
// @Description Validates both parents, charges the breeding cost into escrow, reserves both pets, and starts the cooldown.
// @Description Supports idempotency via the Idempotency-Key header (same key → same breeding).
// @Tags        Breeding
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "User ID that owns both parents"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.InitiateBreedingRequest  true  "Breeding payload"
//
// @Success     201  {object}  domain.BreedingRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / ineligible parents"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient balance"
// @Failure     409  {object}  handlers.ErrorResponse  "Parent already breeding"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /breeding [post]
func (h *Handlers) InitiateBreeding(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	var req InitiateBreedingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "parent1_id and parent2_id required")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, h.db, currentUser, idemScopeBreeding, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if id, err2 := strconv.ParseUint(rec.ResultID, 10, 64); err2 == nil {
				if prev, err3 := h.breedSvc.Get(ctx, currentUser, id); err3 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, prev)
					return
				}
			}
		}
	}

	br, err := h.breedSvc.Initiate(ctx, currentUser, req.Parent1ID, req.Parent2ID, req.Modifiers)
	if err != nil {
		failBreeding(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		_, _ = repo.CreateIdempotency(ctx, h.db, currentUser, idemScopeBreeding, idemKey,
			strconv.FormatUint(br.ID, 10), http.StatusCreated, h.IdempotencyTTL)
	}

	ok(c, http.StatusCreated, br)
}

// ListBreedings godoc
// @ID          listBreedings
// @Summary     List breedings (paginated)
// @Description Returns a page of the user's breeding requests, newest first.
// @Tags        Breeding
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListBreedingsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /breeding [get]
func (h *Handlers) ListBreedings(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	items, err := repo.ListBreedingRequestsByOwner(ctx, h.db, uid, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	var total int64
	if err := h.db.WithContext(ctx).Model(&domain.BreedingRequest{}).
		Where("owner_id = ?", uid).Count(&total).Error; err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListBreedingsResponse{
		Breedings: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetBreeding godoc
// @ID          getBreeding
// @Summary     Fetch a breeding request
// @Tags        Breeding
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    int     true  "Breeding request ID"    minimum(1)
//
// @Success     200  {object} domain.BreedingRequest
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /breeding/{id} [get]
func (h *Handlers) GetBreeding(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	br, err := h.breedSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failBreeding(c, err)
		return
	}
	ok(c, http.StatusOK, br)
}

// CompleteBreeding godoc
// @ID          completeBreeding
// @Summary     Request randomness for a matured breeding
// @Description Once the cooldown has elapsed, opens the oracle randomness request that will resolve the offspring.
// @Tags        Breeding
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the breeding"  example(user123)
// @Param       id         path    int     true  "Breeding request ID"             minimum(1)
//
// @Success     202  {object} handlers.CompleteBreedingResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Cooldown still running / already requested"
// @Router      /breeding/{id}/complete [post]
func (h *Handlers) CompleteBreeding(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	oracleID, err := h.breedSvc.Complete(c.Request.Context(), userID(c), id)
	if err != nil {
		failBreeding(c, err)
		return
	}
	ok(c, http.StatusAccepted, CompleteBreedingResponse{RequestID: id, OracleRequestID: oracleID})
}

// ReprocessBreeding godoc
// @ID          reprocessBreeding
// @Summary     Re-run offspring resolution
// @Description Re-runs offspring resolution from already-committed oracle words after a failed delivery.
// @Tags        Breeding
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the breeding"  example(user123)
// @Param       id         path    int     true  "Breeding request ID"             minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Randomness pending / already completed"
// @Router      /breeding/{id}/reprocess [post]
func (h *Handlers) ReprocessBreeding(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.breedSvc.Reprocess(c.Request.Context(), userID(c), id); err != nil {
		failBreeding(c, err)
		return
	}
	noContent(c)
}

// CancelBreeding godoc
// @ID          cancelBreeding
// @Summary     Cancel a breeding before randomness
// @Description Aborts an initiated breeding, releases both parents, and refunds the escrowed cost. Disabled unless the operator enables cancellation.
// @Tags        Breeding
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the breeding"  example(user123)
// @Param       id         path    int     true  "Breeding request ID"             minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Cancellation disabled"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Past the point of no return"
// @Router      /breeding/{id}/cancel [post]
func (h *Handlers) CancelBreeding(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.breedSvc.Cancel(c.Request.Context(), userID(c), id); err != nil {
		failBreeding(c, err)
		return
	}
	noContent(c)
}
