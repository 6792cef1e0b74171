package handlers

import (
	"context"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// ReservationReader resolves reservations for the status views.
// Unknown ids must yield an error matching services.ErrNotFound.
type ReservationReader interface {
	Get(ctx context.Context, id string) (domain.Reservation, error)
}

// Completer applies an externally produced answer to a reservation.
type Completer interface {
	Complete(ctx context.Context, id, answer string) (domain.Reservation, error)
}

// Handlers groups the status surface endpoints.
type Handlers struct {
	reader    ReservationReader
	completer Completer
}

// New binds handlers to their services.
func New(reader ReservationReader, completer Completer) *Handlers {
	return &Handlers{reader: reader, completer: completer}
}
