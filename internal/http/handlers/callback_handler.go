package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-inline-answer-bot/internal/http/middleware"
	"github.com/tbourn/go-inline-answer-bot/internal/services"
)

// CallbackRequest is the payload of POST /ai-callback. AnswerText must be a
// JSON string; the empty string is accepted.
type CallbackRequest struct {
	ReservationID string  `json:"reservationId" example:"3f2b8c1e-7d4a-4c9b-8e2f-1a2b3c4d5e6f"`
	AnswerText    *string `json:"answerText" example:"Recursion is..."`
}

// CallbackResponse acknowledges a completed callback.
type CallbackResponse struct {
	OK     bool `json:"ok" example:"true"`
	Replay bool `json:"replay,omitempty" example:"false"`
}

// AICallback godoc
// @ID          aiCallback
// @Summary     Complete a reservation with an external answer
// @Description Marks the reservation ready and delivers the answer to whoever selected it. Retries with the same Idempotency-Key are acknowledged without re-delivery.
// @Tags        Reservations
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key   header  string                    false  "Deduplicates retries"  example(cb-3f2b8c1e-1)
// @Param       X-Callback-Token  header  string                    false  "Shared secret when CALLBACK_TOKEN is set"
// @Param       body              body    handlers.CallbackRequest  true   "Answer payload"
//
// @Success     200  {object}  handlers.CallbackResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or malformed fields"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad callback token"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown reservation"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ai-callback [post]
func (h *Handlers) AICallback(c *gin.Context) {
	if middleware.IsReplay(c) {
		ok(c, http.StatusOK, CallbackResponse{OK: true, Replay: true})
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ReservationID) == "" || req.AnswerText == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reservationId and answerText are required")
		return
	}

	_, err := h.completer.Complete(c.Request.Context(), req.ReservationID, *req.AnswerText)
	switch {
	case err == nil:
		ok(c, http.StatusOK, CallbackResponse{OK: true})
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reservation not found")
	case errors.Is(err, services.ErrBadRequest):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reservationId is required")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("callback failed")
		fail(c, http.StatusInternalServerError, ErrCodeCallbackFailed, "could not complete reservation")
	}
}
