// Mystery-box HTTP handlers.
//
// This file exposes REST endpoints for mystery boxes:
//   - POST /boxes                  (purchase; debits the buyer, opens a randomness request)
//   - GET  /boxes/{id}             (fetch one order)
//   - POST /boxes/{id}/reprocess   (re-run hatching from stored words)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// purchase exists for (user, key), the handler returns the recorded order and
// sets `Idempotency-Replayed: true` instead of charging again.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petverse/go-pets-backend/internal/minting"
	"github.com/petverse/go-pets-backend/internal/repo"
)

// idemScopeBoxes keys idempotency records written by PurchaseBox.
const idemScopeBoxes = "mystery-box"

// failMinting translates minting sentinel errors into HTTP responses.
func failMinting(c *gin.Context, err error) {
	switch {
	case errors.Is(err, minting.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, minting.ErrNotOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, minting.ErrInsufficientBalance):
		fail(c, http.StatusPaymentRequired, ErrCodePaymentDue, err.Error())
	case errors.Is(err, minting.ErrAlreadyFulfilled),
		errors.Is(err, minting.ErrNotRequested),
		errors.Is(err, minting.ErrRandomnessPending):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeMintFailed, err.Error())
	}
}

// PurchaseBox godoc
// @ID          purchaseBox
// @Summary     Buy a mystery box
// @Description Debits the caller for one mystery box. The generation-zero pet inside hatches asynchronously once the oracle delivers randomness.
// @Description Supports idempotency via the Idempotency-Key header (same key → same order, single charge).
// @Tags        Minting
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Buying user ID"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
//
// @Success     201  {object}  domain.MintOrder
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient balance"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /boxes [post]
func (h *Handlers) PurchaseBox(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, h.db, currentUser, idemScopeBoxes, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if id, err2 := strconv.ParseUint(rec.ResultID, 10, 64); err2 == nil {
				if prev, err3 := h.mintSvc.Get(ctx, id); err3 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, prev)
					return
				}
			}
		}
	}

	m, err := h.mintSvc.Purchase(ctx, currentUser)
	if err != nil {
		failMinting(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		_, _ = repo.CreateIdempotency(ctx, h.db, currentUser, idemScopeBoxes, idemKey,
			strconv.FormatUint(m.ID, 10), http.StatusCreated, h.IdempotencyTTL)
	}

	ok(c, http.StatusCreated, m)
}

// GetBox godoc
// @ID          getBox
// @Summary     Fetch a mystery-box order
// @Tags        Minting
// @Produce     json
//
// @Param       id  path  int  true  "Order ID"  minimum(1)
//
// @Success     200  {object} domain.MintOrder
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /boxes/{id} [get]
func (h *Handlers) GetBox(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	m, err := h.mintSvc.Get(c.Request.Context(), id)
	if err != nil {
		failMinting(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// ReprocessBox godoc
// @ID          reprocessBox
// @Summary     Re-run hatching
// @Description Re-runs mystery-box hatching from already-committed oracle words after a failed delivery.
// @Tags        Minting
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buying user ID"  example(user123)
// @Param       id         path    int     true  "Order ID"        minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Randomness pending / already hatched"
// @Router      /boxes/{id}/reprocess [post]
func (h *Handlers) ReprocessBox(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.mintSvc.Reprocess(c.Request.Context(), userID(c), id); err != nil {
		failMinting(c, err)
		return
	}
	noContent(c)
}
