package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/http/middleware"
	"github.com/tbourn/go-inline-answer-bot/internal/services"
)

// ReservationResponse is the JSON view of a reservation. AnswerText is null
// while the reservation is pending.
type ReservationResponse struct {
	ReservationID      string  `json:"reservationId" example:"3f2b8c1e-7d4a-4c9b-8e2f-1a2b3c4d5e6f"`
	UserQuery          string  `json:"userQuery" example:"Explain recursion"`
	Status             string  `json:"status" enums:"pending,ready,failed" example:"ready"`
	AnswerText         *string `json:"answerText" example:"Recursion is..."`
	CreatedAtTimestamp int64   `json:"createdAtTimestamp" example:"1714564800000"`
}

func toResponse(r domain.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ReservationID:      r.ID,
		UserQuery:          r.Query,
		Status:             string(r.Status),
		CreatedAtTimestamp: r.CreatedAt.UnixMilli(),
	}
	if r.Status != domain.StatusPending && r.Answer != nil {
		a := *r.Answer
		resp.AnswerText = &a
	}
	return resp
}

// etag changes whenever the status or the answer changes.
func etag(r domain.Reservation) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.AnswerText()))
	return fmt.Sprintf(`W/"res:%s:%s:%08x"`, r.ID, r.Status, h.Sum32())
}

// GetReservation godoc
// @ID          getReservation
// @Summary     Get a reservation
// @Description Returns the reservation with its status and, once terminal, the answer. Supports weak ETag via If-None-Match.
// @Tags        Reservations
// @Produce     json
//
// @Param       id             path    string  true   "Reservation id"              example(3f2b8c1e-7d4a-4c9b-8e2f-1a2b3c4d5e6f)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ReservationResponse
// @Header      200  {string} ETag  "Weak ETag for the current state"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Unknown reservation"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reservation/{id} [get]
func (h *Handlers) GetReservation(c *gin.Context) {
	r, err := h.reader.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reservation not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "could not load reservation")
		return
	}

	tag := etag(r)
	c.Header("ETag", tag)
	c.Header("Cache-Control", "no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == tag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, toResponse(r))
}

// AnswerPage renders the human-readable status page for a reservation.
// Pending reservations get a page that refreshes itself.
func (h *Handlers) AnswerPage(c *gin.Context) {
	r, err := h.reader.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.HTML(http.StatusNotFound, tmplNotFound, pageData{Title: "Not found"})
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("status page lookup failed")
		c.HTML(http.StatusInternalServerError, tmplNotFound, pageData{Title: "Unavailable"})
		return
	}

	data := pageData{
		Title:     "Answer",
		Query:     r.Query,
		Status:    string(r.Status),
		Pending:   r.Status == domain.StatusPending,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC1123),
	}
	if data.Pending {
		data.Title = "Answer pending"
		data.Refresh = pendingRefreshSeconds
	} else {
		data.Answer = r.AnswerText()
	}
	c.Header("Cache-Control", "no-cache")
	c.HTML(http.StatusOK, tmplAnswer, data)
}
