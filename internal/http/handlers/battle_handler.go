// Battle HTTP handlers.
//
// This file exposes REST endpoints for battles:
//   - POST /battles                  (challenge; opens a randomness request)
//   - GET  /battles/{id}             (fetch one)
//   - POST /battles/{id}/reprocess   (re-run resolution from stored words)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petverse/go-pets-backend/internal/battle"
)

//
// DTOs
//

// ChallengeRequest is the JSON payload for opening a battle.
type ChallengeRequest struct {
	// PetID is the challenger's own pet.
	PetID uint64 `json:"pet_id" binding:"required" example:"12"`
	// OpponentID is the pet being challenged; any owner.
	OpponentID uint64 `json:"opponent_id" binding:"required" example:"34"`
}

//
// Helpers
//

// failBattle translates battle sentinel errors into HTTP responses.
func failBattle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, battle.ErrPetNotFound), errors.Is(err, battle.ErrBattleNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, battle.ErrNotOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, battle.ErrSamePet):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, battle.ErrAlreadyResolved),
		errors.Is(err, battle.ErrNotRequested),
		errors.Is(err, battle.ErrRandomnessPending):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeBattleFailed, err.Error())
	}
}

//
// Handlers
//

// Challenge godoc
// @ID          challenge
// @Summary     Open a battle
// @Description Challenges an opponent pet with one of the caller's pets. The outcome resolves asynchronously once the oracle delivers randomness.
// @Tags        Battles
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that owns the challenging pet"  example(user123)
// @Param       body       body    handlers.ChallengeRequest  true  "Challenge payload"
//
// @Success     201  {object}  domain.BattleRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Pet not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /battles [post]
func (h *Handlers) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pet_id and opponent_id required")
		return
	}
	b, err := h.battleSvc.Challenge(c.Request.Context(), userID(c), req.PetID, req.OpponentID)
	if err != nil {
		failBattle(c, err)
		return
	}
	ok(c, http.StatusCreated, b)
}

// GetBattle godoc
// @ID          getBattle
// @Summary     Fetch a battle
// @Tags        Battles
// @Produce     json
//
// @Param       id  path  int  true  "Battle ID"  minimum(1)
//
// @Success     200  {object} domain.BattleRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Router      /battles/{id} [get]
func (h *Handlers) GetBattle(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	b, err := h.battleSvc.Get(c.Request.Context(), id)
	if err != nil {
		failBattle(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// ReprocessBattle godoc
// @ID          reprocessBattle
// @Summary     Re-run battle resolution
// @Description Re-runs battle resolution from already-committed oracle words after a failed delivery.
// @Tags        Battles
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID that opened the battle"  example(user123)
// @Param       id         path    int     true  "Battle ID"                        minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Randomness pending / already resolved"
// @Router      /battles/{id}/reprocess [post]
func (h *Handlers) ReprocessBattle(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}
	if err := h.battleSvc.Reprocess(c.Request.Context(), userID(c), id); err != nil {
		failBattle(c, err)
		return
	}
	noContent(c)
}
